// Package guard implements the view-layer role guard. It decorates page
// fragments with an allowed/denied/loading decision derived from the
// session, purely as a UX refinement. The request gatekeeper in
// pkg/middleware remains the authority; a guard decision never grants
// access on its own.
package guard

import (
	"context"

	"github.com/scrcr/scrcr-server/pkg/auth"
	"github.com/scrcr/scrcr-server/pkg/contextkeys"
)

// State is the tagged rendering state of a guarded fragment.
type State int

const (
	// StateLoading means the session is not yet known. Render a
	// placeholder, never the protected content.
	StateLoading State = iota
	// StateDenied means the session is absent or the role is not
	// permitted. Render the fallback.
	StateDenied
	// StateAllowed means the protected content may render.
	StateAllowed
)

func (s State) String() string {
	switch s {
	case StateLoading:
		return "loading"
	case StateDenied:
		return "denied"
	case StateAllowed:
		return "allowed"
	}
	return "unknown"
}

// Decision pairs the state with the account it was derived from. Account
// is nil unless the state is StateAllowed. Denial is set only by
// CheckResource when the state is StateDenied.
type Decision struct {
	State   State
	Account *auth.PublicAccount
	Denial  *Denial
}

// Denial names the refused resource and the role that asked, so the view
// layer can surface a notification without reconstructing either.
type Denial struct {
	Resource string    `json:"resource"`
	Role     auth.Role `json:"role,omitempty"`
}

// SessionSource yields the current session, or ErrPending while it is
// still being resolved.
type SessionSource interface {
	Session(ctx context.Context) (*auth.PublicAccount, error)
}

// SessionFunc adapts a function to SessionSource.
type SessionFunc func(ctx context.Context) (*auth.PublicAccount, error)

func (f SessionFunc) Session(ctx context.Context) (*auth.PublicAccount, error) {
	return f(ctx)
}

// ErrPending signals that the session is still loading and no decision
// can be made yet.
var ErrPending = pendingError{}

type pendingError struct{}

func (pendingError) Error() string { return "session pending" }

// RoleGuard evaluates guard decisions against a session source.
type RoleGuard struct {
	source SessionSource
}

// New builds a guard over the given session source.
func New(source SessionSource) *RoleGuard {
	return &RoleGuard{source: source}
}

// FromContext builds a guard over the session already stored in the
// request context by the gatekeeper or session middleware.
func FromContext() *RoleGuard {
	return New(SessionFunc(func(ctx context.Context) (*auth.PublicAccount, error) {
		account, _ := contextkeys.GetSession(ctx).(*auth.PublicAccount)
		return account, nil
	}))
}

// Check evaluates the guard for the given allowed roles. An empty role
// list admits any authenticated account. Errors other than ErrPending are
// treated as denied; the guard never fails open.
func (g *RoleGuard) Check(ctx context.Context, allowed ...auth.Role) Decision {
	account, err := g.source.Session(ctx)
	if err != nil {
		if err == ErrPending {
			return Decision{State: StateLoading}
		}
		return Decision{State: StateDenied}
	}
	if account == nil {
		return Decision{State: StateDenied}
	}
	if len(allowed) == 0 {
		return Decision{State: StateAllowed, Account: account}
	}
	for _, role := range allowed {
		if account.Role == role {
			return Decision{State: StateAllowed, Account: account}
		}
	}
	return Decision{State: StateDenied}
}

// CheckResource is Check with the guarded resource named, so a denial
// carries enough detail for the notification the view fires.
func (g *RoleGuard) CheckResource(ctx context.Context, resource string, allowed ...auth.Role) Decision {
	decision := g.Check(ctx, allowed...)
	if decision.State == StateDenied {
		denial := &Denial{Resource: resource}
		if account, err := g.source.Session(ctx); err == nil && account != nil {
			denial.Role = account.Role
		}
		decision.Denial = denial
	}
	return decision
}
