package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/scrcr/scrcr-server/pkg/observability"
)

// LoginResult is the outcome of a successful authentication.
type LoginResult struct {
	Account *PublicAccount
	Token   string
}

// Authenticator validates credentials against the store, enforces the
// lockout policy, and issues session tokens.
type Authenticator struct {
	store     CredentialStore
	codec     *TokenCodec
	threshold int
	lockFor   time.Duration
	metrics   *observability.Metrics
	logger    *observability.Logger
	now       func() time.Time
}

// NewAuthenticator wires the login path. metrics may be nil.
func NewAuthenticator(store CredentialStore, codec *TokenCodec, threshold int, lockFor time.Duration, metrics *observability.Metrics, logger *observability.Logger) *Authenticator {
	if logger == nil {
		logger = observability.NewLogger(observability.InfoLevel, nil)
	}
	return &Authenticator{
		store:     store,
		codec:     codec,
		threshold: threshold,
		lockFor:   lockFor,
		metrics:   metrics,
		logger:    logger,
		now:       time.Now,
	}
}

// Login authenticates username/password and returns a signed token plus the
// sanitized account. Failures return one of ErrInvalidCredentials,
// ErrAccountLocked or ErrAccountInactive; unknown usernames and password
// mismatches are indistinguishable to the caller.
func (a *Authenticator) Login(ctx context.Context, username, password string) (*LoginResult, error) {
	account, err := a.store.FindByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, ErrAccountNotFound) {
			a.observe("failure")
			return nil, ErrInvalidCredentials
		}
		a.observe("error")
		return nil, fmt.Errorf("looking up account: %w", err)
	}

	if account.LockedAt(a.now()) {
		a.observe("locked")
		return nil, ErrAccountLocked
	}

	if !CheckPassword(account.PasswordHash, password) {
		count, lockedUntil, err := a.store.RecordFailedAttempt(ctx, account.ID, a.threshold, a.lockFor)
		if err != nil {
			a.observe("error")
			return nil, fmt.Errorf("recording failed attempt: %w", err)
		}
		if lockedUntil != nil {
			a.logger.WithFields(map[string]interface{}{
				"username":     username,
				"attempts":     count,
				"locked_until": lockedUntil,
			}).Warn("account locked after repeated failures")
			if a.metrics != nil {
				a.metrics.ObserveLockout()
			}
			a.observe("locked")
			return nil, ErrAccountLocked
		}
		a.observe("failure")
		return nil, ErrInvalidCredentials
	}

	// A matching password on a disabled account still fails, without
	// touching the failure counter.
	if account.Status == StatusInactive {
		a.observe("inactive")
		return nil, ErrAccountInactive
	}

	if err := a.store.RecordSuccessfulLogin(ctx, account.ID); err != nil {
		a.observe("error")
		return nil, fmt.Errorf("recording successful login: %w", err)
	}
	account.Status = StatusActive
	account.FailedAttempts = 0
	account.LockedUntil = nil

	token, err := a.codec.Issue(account)
	if err != nil {
		a.observe("error")
		return nil, err
	}

	a.observe("success")
	a.logger.WithField("username", username).Info("login succeeded")
	return &LoginResult{Account: account.Public(), Token: token}, nil
}

func (a *Authenticator) observe(outcome string) {
	if a.metrics != nil {
		a.metrics.ObserveLogin(outcome)
	}
}
