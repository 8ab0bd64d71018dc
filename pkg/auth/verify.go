package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/scrcr/scrcr-server/pkg/observability"
)

// SessionVerifier turns a session token into a live account view. The
// account is re-fetched on every call; token claims are never trusted as
// the current role or status.
type SessionVerifier struct {
	store   CredentialStore
	codec   *TokenCodec
	metrics *observability.Metrics
}

// NewSessionVerifier wires the verification path. metrics may be nil.
func NewSessionVerifier(store CredentialStore, codec *TokenCodec, metrics *observability.Metrics) *SessionVerifier {
	return &SessionVerifier{store: store, codec: codec, metrics: metrics}
}

// Verify validates the token signature and expiry, re-fetches the account,
// and returns its sanitized view. It fails with ErrTokenExpired,
// ErrTokenInvalid, or ErrAccountGone when the account is missing or no
// longer active.
func (v *SessionVerifier) Verify(ctx context.Context, tokenString string) (*PublicAccount, error) {
	claims, err := v.codec.Verify(tokenString)
	if err != nil {
		switch {
		case errors.Is(err, ErrTokenExpired):
			v.observe("expired")
		default:
			v.observe("invalid")
		}
		return nil, err
	}

	account, err := v.store.FindByID(ctx, claims.AccountID)
	if err != nil {
		if errors.Is(err, ErrAccountNotFound) {
			v.observe("gone")
			return nil, ErrAccountGone
		}
		v.observe("error")
		return nil, fmt.Errorf("fetching account for session: %w", err)
	}

	if account.Status != StatusActive {
		v.observe("gone")
		return nil, ErrAccountGone
	}

	v.observe("success")
	return account.Public(), nil
}

func (v *SessionVerifier) observe(outcome string) {
	if v.metrics != nil {
		v.metrics.SessionVerifyTotal.WithLabelValues(outcome).Inc()
	}
}
