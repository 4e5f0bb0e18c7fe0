package middleware

import (
	"context"
	"fmt"

	"firebase.google.com/go/v4/auth"

	"github.com/enjoysite/friendmap/internal/auth/domain"
)

// FirebaseVerifier validates Firebase ID tokens, including those of
// anonymous Firebase users signed in by the web client.
type FirebaseVerifier struct {
	client *auth.Client
}

func NewFirebaseVerifier(client *auth.Client) *FirebaseVerifier {
	return &FirebaseVerifier{client: client}
}

func (v *FirebaseVerifier) Verify(ctx context.Context, token string) (*domain.Principal, error) {
	decoded, err := v.client.VerifyIDToken(ctx, token)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidToken, err)
	}

	p := &domain.Principal{UID: decoded.UID, Provider: domain.ProviderFirebase}
	if name, ok := decoded.Claims["name"].(string); ok {
		p.DisplayName = name
	}
	return p, nil
}
