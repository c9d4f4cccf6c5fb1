package auth

import (
	"context"

	"github.com/devduo/studio-backend/errs"
	"github.com/devduo/studio-backend/kvstore"
	"github.com/rs/zerolog"
)

// Session keys kept in the local store
const (
	SessionFlagKey = "admin_auth"
	SessionUserKey = "admin_user"
)

// Gate is the two-state admin session: anonymous or authenticated. The state lives in the local
// key-value store so it survives restarts of the process that owns it. It carries no expiry and no
// server-side validation.
type Gate struct {
	verifier Verifier
	kv       kvstore.Store
	logger   zerolog.Logger
}

func NewGate(verifier Verifier, kv kvstore.Store, logger zerolog.Logger) *Gate {
	return &Gate{verifier: verifier, kv: kv, logger: logger}
}

// Login switches to authenticated when the pair is accepted by the verifier. It reports the outcome
// and never fails; a store write error is logged and the login still counts.
func (g *Gate) Login(ctx context.Context, username, password string) bool {
	if !g.verifier.Verify(ctx, username, password) {
		return false
	}
	if err := g.kv.Set(ctx, SessionFlagKey, []byte("true")); err != nil {
		g.logger.Error().Err(err).Msg("Could not persist session flag")
	}
	if err := g.kv.Set(ctx, SessionUserKey, []byte(username)); err != nil {
		g.logger.Error().Err(err).Msg("Could not persist session user")
	}
	return true
}

// Logout clears the session
func (g *Gate) Logout(ctx context.Context) error {
	if err := g.kv.Delete(ctx, SessionFlagKey); err != nil {
		return errs.NewLocalStorageError("logout", err)
	}
	if err := g.kv.Delete(ctx, SessionUserKey); err != nil {
		return errs.NewLocalStorageError("logout", err)
	}
	return nil
}

// Authenticated reports whether the session flag is set
func (g *Gate) Authenticated(ctx context.Context) bool {
	value, ok, err := g.kv.Get(ctx, SessionFlagKey)
	if err != nil {
		g.logger.Error().Err(err).Msg("Could not read session flag")
		return false
	}
	return ok && string(value) == "true"
}

// User returns the stored username, or "" when anonymous
func (g *Gate) User(ctx context.Context) string {
	if !g.Authenticated(ctx) {
		return ""
	}
	value, ok, err := g.kv.Get(ctx, SessionUserKey)
	if err != nil || !ok {
		return ""
	}
	return string(value)
}

// Require is the route guard for admin commands
func (g *Gate) Require(ctx context.Context) error {
	if !g.Authenticated(ctx) {
		return errs.NewNotAuthenticatedError()
	}
	return nil
}
