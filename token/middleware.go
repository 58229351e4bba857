package token

import (
	"context"
	"errors"
	"net/http"
	"strings"
)

var (
	ErrTokenNotFound     = errors.New("token: token not found in request")
	ErrTokenInvalidInput = errors.New("token: invalid token source")
)

// Extractor pulls a raw token out of an incoming request.
type Extractor func(*http.Request) (string, error)

// Skipper decides whether a request bypasses verification.
type Skipper func(*http.Request) bool

// ErrorHandler renders a verification failure to the client.
type ErrorHandler func(http.ResponseWriter, *http.Request, error)

// MiddlewareOption configures the middleware.
type MiddlewareOption func(*middlewareConfig)

type middlewareConfig struct {
	verifier     Verifier
	extractor    Extractor
	skipper      Skipper
	errorHandler ErrorHandler
}

// WithExtractor overrides the default bearer-header extractor.
func WithExtractor(extractor Extractor) MiddlewareOption {
	return func(cfg *middlewareConfig) {
		if extractor != nil {
			cfg.extractor = extractor
		}
	}
}

// WithSkipper installs a predicate for requests that skip verification.
func WithSkipper(skipper Skipper) MiddlewareOption {
	return func(cfg *middlewareConfig) {
		if skipper != nil {
			cfg.skipper = skipper
		}
	}
}

// WithErrorHandler overrides the default 401 error response.
func WithErrorHandler(handler ErrorHandler) MiddlewareOption {
	return func(cfg *middlewareConfig) {
		if handler != nil {
			cfg.errorHandler = handler
		}
	}
}

// BearerExtractor reads the token from an "Authorization: Bearer" header.
func BearerExtractor() Extractor {
	return func(r *http.Request) (string, error) {
		header := r.Header.Get("Authorization")
		if header == "" {
			return "", ErrTokenNotFound
		}
		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			return "", ErrTokenInvalidInput
		}
		raw := strings.TrimSpace(parts[1])
		if raw == "" {
			return "", ErrTokenInvalidInput
		}
		return raw, nil
	}
}

// CookieExtractor reads the token from a named cookie.
func CookieExtractor(name string) Extractor {
	name = strings.TrimSpace(name)
	return func(r *http.Request) (string, error) {
		if name == "" {
			return "", ErrTokenInvalidInput
		}
		cookie, err := r.Cookie(name)
		if err != nil {
			if errors.Is(err, http.ErrNoCookie) {
				return "", ErrTokenNotFound
			}
			return "", err
		}
		value := strings.TrimSpace(cookie.Value)
		if value == "" {
			return "", ErrTokenInvalidInput
		}
		return value, nil
	}
}

// ChainExtractors tries each extractor in order, returning the first token
// found.
func ChainExtractors(extractors ...Extractor) Extractor {
	copied := append([]Extractor(nil), extractors...)
	return func(r *http.Request) (string, error) {
		var lastErr error = ErrTokenNotFound
		for _, extractor := range copied {
			if extractor == nil {
				continue
			}
			raw, err := extractor(r)
			if err == nil {
				return raw, nil
			}
			lastErr = err
		}
		return "", lastErr
	}
}

// Middleware verifies session tokens on incoming requests and exposes the
// verified claims to downstream handlers through the request context.
type Middleware struct {
	verifier     Verifier
	extractor    Extractor
	skipper      Skipper
	errorHandler ErrorHandler
}

var claimsContextKey = struct{}{}

// NewMiddleware builds a Middleware around the given verifier.
func NewMiddleware(verifier Verifier, opts ...MiddlewareOption) (*Middleware, error) {
	if verifier == nil {
		return nil, errors.New("token: middleware requires a verifier")
	}
	cfg := middlewareConfig{
		verifier:     verifier,
		extractor:    BearerExtractor(),
		skipper:      defaultSkipper,
		errorHandler: defaultErrorHandler,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	return &Middleware{
		verifier:     cfg.verifier,
		extractor:    cfg.extractor,
		skipper:      cfg.skipper,
		errorHandler: cfg.errorHandler,
	}, nil
}

// Handler wraps next with token verification.
func (m *Middleware) Handler(next http.Handler) http.Handler {
	if m == nil {
		panic("token: middleware is nil")
	}
	if next == nil {
		next = http.HandlerFunc(func(http.ResponseWriter, *http.Request) {})
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if m.skipper(r) {
			next.ServeHTTP(w, r)
			return
		}

		raw, err := m.extractor(r)
		if err != nil {
			m.errorHandler(w, r, err)
			return
		}

		claims, err := m.verifier.Verify(r.Context(), raw)
		if err != nil {
			m.errorHandler(w, r, err)
			return
		}

		ctx := context.WithValue(r.Context(), claimsContextKey, claims)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// ClaimsFromContext returns the verified claims stored by the middleware.
func ClaimsFromContext(ctx context.Context) (Claims, bool) {
	if ctx == nil {
		return Claims{}, false
	}
	claims, ok := ctx.Value(claimsContextKey).(Claims)
	return claims, ok
}

func defaultSkipper(*http.Request) bool { return false }

func defaultErrorHandler(w http.ResponseWriter, _ *http.Request, err error) {
	status := http.StatusUnauthorized
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		status = http.StatusGatewayTimeout
	}
	http.Error(w, err.Error(), status)
}
