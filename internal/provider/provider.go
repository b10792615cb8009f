package provider

import (
	"context"
	"fmt"
	"strings"
)

// Maximum push payload lengths (in characters).
const (
	MaxPushTitle = 120
	MaxPushBody  = 240
)

// Provider is the outbound push delivery port. Implementations make exactly
// one delivery attempt per call; retry policy is the caller's decision.
type Provider interface {
	Send(ctx context.Context, msg PushMessage) (*ProviderResponse, error)
}

// PushMessage is one notification addressed to a device token.
type PushMessage struct {
	Token string
	Title string
	Body  string
	Data  map[string]string
}

func (m PushMessage) Validate() error {
	if strings.TrimSpace(m.Token) == "" {
		return fmt.Errorf("device token is required")
	}
	if strings.TrimSpace(m.Title) == "" {
		return fmt.Errorf("title is required")
	}
	if titleLen := len([]rune(m.Title)); titleLen > MaxPushTitle {
		return fmt.Errorf("title exceeds %d characters (got %d)", MaxPushTitle, titleLen)
	}
	if bodyLen := len([]rune(m.Body)); bodyLen > MaxPushBody {
		return fmt.Errorf("body exceeds %d characters (got %d)", MaxPushBody, bodyLen)
	}
	return nil
}

// ProviderResponse stores push channel call metadata for audit and persistence.
type ProviderResponse struct {
	StatusCode int
	Body       string
	MessageID  string
}
