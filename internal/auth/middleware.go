package auth

import (
	"context"
	"net/http"
	"slices"

	"go.uber.org/zap"
)

// DenyFunc writes a rejection response.
type DenyFunc func(w http.ResponseWriter, r *http.Request, status int, detail string)

func plainDeny(w http.ResponseWriter, _ *http.Request, status int, detail string) {
	http.Error(w, detail, status)
}

// DevPrincipal is the principal of every request in insecure dev mode.
var DevPrincipal = Principal{Subject: "dev", Email: "dev@localhost", Role: RoleAdmin}

// Authenticator turns request tokens into principals.
type Authenticator struct {
	verifier *Verifier
	cookie   string
	insecure bool
	forward  func(ctx context.Context, token string) context.Context
	deny     DenyFunc
	logger   *zap.Logger
}

// Option configures an Authenticator.
type Option func(*Authenticator)

// WithCookie names the cookie read when no Authorization header is sent.
func WithCookie(name string) Option {
	return func(a *Authenticator) { a.cookie = name }
}

// WithInsecureDev accepts every request as DevPrincipal when it carries no
// token. Never enable it outside local development.
func WithInsecureDev(on bool) Option {
	return func(a *Authenticator) { a.insecure = on }
}

// WithForward installs fn to attach the verified token to the request
// context, so downstream backend calls run as the user.
func WithForward(fn func(ctx context.Context, token string) context.Context) Option {
	return func(a *Authenticator) { a.forward = fn }
}

// WithDeny sets the writer of 401 and 403 responses.
func WithDeny(fn DenyFunc) Option {
	return func(a *Authenticator) { a.deny = fn }
}

// WithLogger sets the authenticator logger.
func WithLogger(l *zap.Logger) Option {
	return func(a *Authenticator) { a.logger = l }
}

// NewAuthenticator returns an authenticator using v. v may be nil only in
// insecure dev mode.
func NewAuthenticator(v *Verifier, opts ...Option) *Authenticator {
	a := &Authenticator{verifier: v, deny: plainDeny, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

func (a *Authenticator) principal(r *http.Request) (Principal, error) {
	token := TokenFromRequest(r, a.cookie)
	if token == "" && a.insecure {
		return DevPrincipal, nil
	}
	if a.verifier == nil {
		return Principal{}, ErrNoSecret
	}
	return a.verifier.Verify(token)
}

// Authenticate rejects requests without a valid token with 401 and stores
// the principal in the request context otherwise.
func (a *Authenticator) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p, err := a.principal(r)
		if err != nil {
			a.logger.Debug("authentication failed", zap.String("path", r.URL.Path), zap.Error(err))
			a.deny(w, r, http.StatusUnauthorized, "a valid access token is required")
			return
		}
		ctx := WithPrincipal(r.Context(), p)
		if a.forward != nil && p.Token != "" {
			ctx = a.forward(ctx, p.Token)
		}
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireRole authenticates the request and then requires one of roles:
// no or invalid token is 401, a valid token without the role is 403.
func (a *Authenticator) RequireRole(roles ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return a.Authenticate(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p, _ := FromContext(r.Context())
			if !slices.Contains(roles, p.Role) {
				a.logger.Info("role denied",
					zap.String("subject", p.Subject),
					zap.String("role", p.Role),
					zap.String("path", r.URL.Path),
				)
				a.deny(w, r, http.StatusForbidden, "this account may not use the dashboard")
				return
			}
			next.ServeHTTP(w, r)
		}))
	}
}
