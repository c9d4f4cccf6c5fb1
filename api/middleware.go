package api

import (
	"math"
	"net"
	"net/http"
	"runtime/debug"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/devduo/studio-backend/errs"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"
)

// sessionCookieName carries the session token for browser clients
const sessionCookieName = "studio_session"

// tokenParser is the part of auth.Tokens the middleware needs
type tokenParser interface {
	Parse(token string) (string, error)
}

type authMiddleware struct {
	responder Responder
	tokens    tokenParser
}

func newAuthMiddleware(tokens tokenParser) authMiddleware {
	logger := log.With().Str("handlerName", "authMiddleware").Logger()
	return authMiddleware{
		responder: NewResponder(logger),
		tokens:    tokens,
	}
}

// authenticate accepts a bearer token or the session cookie
func (m authMiddleware) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		username, err := m.tokens.Parse(requestToken(r))
		if err != nil {
			m.responder.WriteError(w, err)
			return
		}

		updatedReq := r.WithContext(ctxWithUsername(r.Context(), username))
		next.ServeHTTP(w, updatedReq)
	})
}

func requestToken(r *http.Request) string {
	if authHeader := r.Header.Get("Authorization"); strings.HasPrefix(authHeader, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer "))
	}
	if cookie, err := r.Cookie(sessionCookieName); err == nil {
		return cookie.Value
	}
	return ""
}

type statusResponseWriter struct {
	http.ResponseWriter
	status      int
	wroteHeader bool
}

func (w *statusResponseWriter) WriteHeader(statusCode int) {
	if !w.wroteHeader {
		w.status = statusCode
		w.wroteHeader = true
		w.ResponseWriter.WriteHeader(statusCode)
	}
}

func (w *statusResponseWriter) Write(b []byte) (int, error) {
	if !w.wroteHeader {
		w.WriteHeader(http.StatusOK)
	}
	return w.ResponseWriter.Write(b)
}

func LogInternalServerErrors(next http.Handler) http.Handler {
	responder := NewResponder(log.With().Str("handlerName", "recoverer").Logger())

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		srw := &statusResponseWriter{ResponseWriter: w, status: http.StatusOK}

		defer func() {
			if err := recover(); err != nil {
				log.Error().
					Str("method", r.Method).
					Str("path", r.URL.Path).
					Interface("panic", err).
					Str("stack", string(debug.Stack())).
					Msg("Recovered from panic")

				if !srw.wroteHeader {
					responder.WriteError(srw, errs.NewInternalError("internal server error"))
				}
			}
		}()

		next.ServeHTTP(srw, r)

		if srw.status == http.StatusInternalServerError {
			log.Error().
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Msg("500 error response")
		}
	})
}

// CORSCheckMiddleware rejects preflight requests from origins outside allowedOrigins with a JSON
// error instead of a bare 403
func CORSCheckMiddleware(allowedOrigins []string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")
			if origin == "" {
				next.ServeHTTP(w, r)
				return
			}

			if !originAllowed(allowedOrigins, origin) && r.Method == http.MethodOptions {
				responder := NewResponder(log.Logger)
				responder.WriteError(w, errs.NewCORSError(origin))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func originAllowed(allowedOrigins []string, origin string) bool {
	for _, allowedOrigin := range allowedOrigins {
		if allowedOrigin == "*" || allowedOrigin == origin {
			return true
		}
	}
	return false
}

// corsMiddleware sets the CORS headers for the admin panel origins
func corsMiddleware(allowedOrigins []string) func(http.Handler) http.Handler {
	return cors.Handler(cors.Options{
		AllowOriginFunc: func(_ *http.Request, origin string) bool {
			return originAllowed(allowedOrigins, origin)
		},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "Authorization"},
		AllowCredentials: true,
		MaxAge:           300,
	})
}

// statusRecorder counts responses by status code
type statusRecorder interface {
	RecordHTTPStatus(statusCode int)
}

// HTTPLoggingMiddleware logs every request at a level picked from its status code and counts the
// status with statuses
func HTTPLoggingMiddleware(logger zerolog.Logger, statuses statusRecorder) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			srw := &statusResponseWriter{ResponseWriter: w, status: http.StatusOK}

			next.ServeHTTP(srw, r)

			duration := time.Since(start)
			if statuses != nil {
				statuses.RecordHTTPStatus(srw.status)
			}

			var logEvent *zerolog.Event
			switch {
			case srw.status >= 500:
				logEvent = logger.Error()
			case srw.status >= 400:
				logEvent = logger.Warn()
			default:
				logEvent = logger.Info()
			}

			logEvent.
				Str("requestID", middleware.GetReqID(r.Context())).
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Int("status", srw.status).
				Dur("duration", duration).
				Str("remote_addr", r.RemoteAddr).
				Msg("HTTP Request")
		})
	}
}

// clientLimiter is one client's token bucket and when it was last used
type clientLimiter struct {
	limiter    *rate.Limiter
	lastAccess time.Time
}

// loginLimiter throttles login attempts per client address
type loginLimiter struct {
	responder Responder
	limit     rate.Limit
	burst     int
	idle      time.Duration

	mu        sync.Mutex
	clients   map[string]*clientLimiter
	lastSweep time.Time
}

// newLoginLimiter allows perMinute attempts per client, bursting up to the same number
func newLoginLimiter(perMinute int) *loginLimiter {
	if perMinute <= 0 {
		perMinute = 10
	}
	return &loginLimiter{
		responder: NewResponder(log.With().Str("handlerName", "loginLimiter").Logger()),
		limit:     rate.Limit(float64(perMinute) / 60.0),
		burst:     perMinute,
		idle:      10 * time.Minute,
		clients:   make(map[string]*clientLimiter),
		lastSweep: time.Now(),
	}
}

func (l *loginLimiter) middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		client := clientAddress(r)
		if !l.get(client).Allow() {
			retryAfter := int(math.Ceil(1.0 / float64(l.limit)))
			if retryAfter < 1 {
				retryAfter = 1
			}
			w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
			log.Warn().Str("client", client).Msg("login rate limit exceeded")
			l.responder.WriteError(w, errs.NewRateLimitedError("Too many login attempts. Please try again later."))
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (l *loginLimiter) get(client string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()
	if now.Sub(l.lastSweep) > l.idle {
		for key, c := range l.clients {
			if now.Sub(c.lastAccess) > l.idle {
				delete(l.clients, key)
			}
		}
		l.lastSweep = now
	}

	c, ok := l.clients[client]
	if !ok {
		c = &clientLimiter{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.clients[client] = c
	}
	c.lastAccess = now
	return c.limiter
}

func clientAddress(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
