package auth

import (
	"context"
	"net/http"

	"github.com/descope/go-sdk/descope"
	"github.com/descope/go-sdk/descope/client"
	"github.com/rs/zerolog"
)

// PasswordSignIn is the part of the Descope password API the verifier needs
type PasswordSignIn interface {
	SignIn(ctx context.Context, loginID, password string, w http.ResponseWriter) (*descope.AuthenticationInfo, error)
}

// DescopeVerifier delegates the credential check to a Descope project
type DescopeVerifier struct {
	password PasswordSignIn
	logger   zerolog.Logger
}

// NewDescopeVerifier builds a verifier for the given Descope project
func NewDescopeVerifier(projectID string, logger zerolog.Logger) (*DescopeVerifier, error) {
	descopeClient, err := client.NewWithConfig(&client.Config{ProjectID: projectID})
	if err != nil {
		return nil, err
	}
	return NewDescopeVerifierWith(descopeClient.Auth.Password(), logger), nil
}

func NewDescopeVerifierWith(password PasswordSignIn, logger zerolog.Logger) *DescopeVerifier {
	return &DescopeVerifier{password: password, logger: logger}
}

func (v *DescopeVerifier) Verify(ctx context.Context, username, password string) bool {
	info, err := v.password.SignIn(ctx, username, password, nil)
	if err != nil {
		v.logger.Debug().Err(err).Str("username", username).Msg("Descope sign-in rejected")
		return false
	}
	return info != nil
}
