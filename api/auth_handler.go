package api

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/devduo/studio-backend/errs"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const maxLoginBodyBytes = 4 << 10

type credentialVerifier interface {
	Verify(ctx context.Context, username, password string) bool
}

type tokenIssuer interface {
	tokenParser
	Issue(username string) (string, time.Time, error)
}

type loginRecorder interface {
	RecordLogin(ok bool)
}

type authHandler struct {
	responder    Responder
	logger       zerolog.Logger
	verifier     credentialVerifier
	tokens       tokenIssuer
	logins       loginRecorder
	secureCookie bool
}

func newAuthHandler(verifier credentialVerifier, tokens tokenIssuer, logins loginRecorder, secureCookie bool) authHandler {
	logger := log.With().Str("handlerName", "authHandler").Logger()

	return authHandler{
		responder:    NewResponder(logger),
		logger:       logger,
		verifier:     verifier,
		tokens:       tokens,
		logins:       logins,
		secureCookie: secureCookie,
	}
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// LoginResponse is returned by a successful login
type LoginResponse struct {
	Success   bool      `json:"success"`
	Token     string    `json:"token"`
	Username  string    `json:"username"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// SessionResponse describes the caller's session
type SessionResponse struct {
	Success       bool   `json:"success"`
	Authenticated bool   `json:"authenticated"`
	Username      string `json:"username,omitempty"`
}

// login checks the credential pair and hands out a session token, both in the body and as an
// HttpOnly cookie
// @Summary Admin login
// @Tags Auth
// @Accept json
// @Produce json
// @Success 200 {object} LoginResponse
// @Failure 401 {object} ErrorResponse "Unauthorized - Invalid credentials"
// @Failure 429 {object} ErrorResponse "Too Many Requests"
// @Router /api/auth/login [post]
func (h authHandler) login() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req loginRequest
		if err := decodeJSON(w, r, maxLoginBodyBytes, &req); err != nil {
			h.responder.WriteError(w, err)
			return
		}

		if req.Username == "" {
			h.responder.WriteError(w, errs.NewMissingRequiredFieldError("username"))
			return
		}

		// Credentials are compared as sent, without trimming or case folding
		ok := h.verifier.Verify(r.Context(), req.Username, req.Password)
		if h.logins != nil {
			h.logins.RecordLogin(ok)
		}
		if !ok {
			h.logger.Warn().Str("username", req.Username).Str("client", clientAddress(r)).Msg("Rejected admin login")
			h.responder.WriteError(w, errs.NewInvalidCredentialsError())
			return
		}

		token, expires, err := h.tokens.Issue(req.Username)
		if err != nil {
			h.responder.WriteError(w, err)
			return
		}

		http.SetCookie(w, &http.Cookie{
			Name:     sessionCookieName,
			Value:    token,
			Path:     "/",
			Expires:  expires,
			HttpOnly: true,
			Secure:   h.secureCookie,
			SameSite: http.SameSiteLaxMode,
		})

		h.logger.Info().Str("username", req.Username).Msg("Admin logged in")
		h.responder.WriteJSON(w, LoginResponse{
			Success:   true,
			Token:     token,
			Username:  req.Username,
			ExpiresAt: expires,
		})
	}
}

// logout clears the session cookie. Issued tokens stay valid until they expire.
// @Summary Admin logout
// @Tags Auth
// @Router /api/auth/logout [post]
func (h authHandler) logout() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		http.SetCookie(w, &http.Cookie{
			Name:     sessionCookieName,
			Value:    "",
			Path:     "/",
			MaxAge:   -1,
			HttpOnly: true,
			Secure:   h.secureCookie,
			SameSite: http.SameSiteLaxMode,
		})
		h.responder.WriteJSON(w, map[string]any{
			"success": true,
			"message": "Logged out",
		})
	}
}

// session reports whether the request carries a valid session
// @Summary Current session
// @Tags Auth
// @Produce json
// @Success 200 {object} SessionResponse
// @Router /api/auth/session [get]
func (h authHandler) session() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		username, err := h.tokens.Parse(requestToken(r))
		if err != nil {
			if !errs.IsMissingTokenError(err) {
				h.logger.Debug().Err(err).Msg("Session token rejected")
			}
			h.responder.WriteJSON(w, SessionResponse{Success: true})
			return
		}
		h.responder.WriteJSON(w, SessionResponse{
			Success:       true,
			Authenticated: true,
			Username:      strings.TrimSpace(username),
		})
	}
}
