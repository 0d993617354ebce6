package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/MicahParks/keyfunc"
	"github.com/golang-jwt/jwt/v4"
	"github.com/hiroki-koketsu/taskboard/internal/model"
)

var (
	ErrMissingAuthorization = errors.New("missing authorization header")
	ErrBadAuthorization     = errors.New("bad authorization header")
	ErrInvalidToken         = errors.New("invalid token")
)

// Verifier validates bearer JWTs and extracts the principal from the sub claim.
type Verifier struct {
	secret   []byte
	jwks     *keyfunc.JWKS
	audience string
	issuer   string
	parser   *jwt.Parser
}

// NewHMACVerifier accepts HS256 tokens signed with secret.
func NewHMACVerifier(secret, audience, issuer string) *Verifier {
	return &Verifier{
		secret:   []byte(secret),
		audience: audience,
		issuer:   issuer,
		parser:   jwt.NewParser(jwt.WithValidMethods([]string{"HS256"})),
	}
}

// NewJWKSVerifier accepts RS256 tokens whose keys are published at jwksURL.
func NewJWKSVerifier(jwksURL, audience, issuer string, logger *slog.Logger) (*Verifier, error) {
	jwks, err := keyfunc.Get(jwksURL, keyfunc.Options{
		RefreshInterval:   time.Hour,
		RefreshRateLimit:  5 * time.Minute,
		RefreshTimeout:    10 * time.Second,
		RefreshUnknownKID: true,
		RefreshErrorHandler: func(err error) {
			logger.Error("failed to refresh jwks", slog.Any("error", err))
		},
	})
	if err != nil {
		return nil, fmt.Errorf("load jwks: %w", err)
	}

	return &Verifier{
		jwks:     jwks,
		audience: audience,
		issuer:   issuer,
		parser:   jwt.NewParser(jwt.WithValidMethods([]string{"RS256"})),
	}, nil
}

// Close stops the background JWKS refresh, if any.
func (v *Verifier) Close() {
	if v.jwks != nil {
		v.jwks.EndBackground()
	}
}

// Verify parses the token and returns the principal it was issued for.
func (v *Verifier) Verify(tokenString string) (model.Principal, error) {
	token, err := v.parser.Parse(tokenString, v.keyFunc)
	if err != nil {
		return model.Principal{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return model.Principal{}, ErrInvalidToken
	}
	if v.audience != "" && !claims.VerifyAudience(v.audience, true) {
		return model.Principal{}, fmt.Errorf("%w: invalid audience", ErrInvalidToken)
	}
	if v.issuer != "" && !claims.VerifyIssuer(v.issuer, true) {
		return model.Principal{}, fmt.Errorf("%w: invalid issuer", ErrInvalidToken)
	}

	sub, ok := claims["sub"].(string)
	if !ok || sub == "" {
		return model.Principal{}, fmt.Errorf("%w: missing sub", ErrInvalidToken)
	}
	return model.Principal{ID: sub}, nil
}

func (v *Verifier) keyFunc(token *jwt.Token) (interface{}, error) {
	if v.jwks != nil {
		return v.jwks.Keyfunc(token)
	}
	if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
		return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
	}
	return v.secret, nil
}

// Middleware rejects requests without a valid bearer token and stores the
// principal in the request context.
func (v *Verifier) Middleware(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, err := BearerToken(r.Header.Get("Authorization"))
			if err == nil {
				var p model.Principal
				if p, err = v.Verify(token); err == nil {
					next.ServeHTTP(w, r.WithContext(WithPrincipal(r.Context(), p)))
					return
				}
			}

			logger.WarnContext(r.Context(), "authentication failed", slog.Any("error", err))
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusUnauthorized)
			json.NewEncoder(w).Encode(map[string]string{
				"error":   string(model.KindUnauthenticated),
				"message": "not authorized, token failed",
			})
		})
	}
}

// BearerToken extracts the token from an Authorization header value.
func BearerToken(header string) (string, error) {
	if header == "" {
		return "", ErrMissingAuthorization
	}
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(token) == "" {
		return "", ErrBadAuthorization
	}
	return strings.TrimSpace(token), nil
}

// IssueToken signs an HS256 token for subject, valid for ttl.
func IssueToken(secret, subject, audience, issuer string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"sub": subject,
		"iat": now.Unix(),
		"exp": now.Add(ttl).Unix(),
	}
	if audience != "" {
		claims["aud"] = audience
	}
	if issuer != "" {
		claims["iss"] = issuer
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

type principalKey struct{}

// WithPrincipal returns a copy of ctx carrying p.
func WithPrincipal(ctx context.Context, p model.Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

// PrincipalFrom returns the principal stored by the middleware.
func PrincipalFrom(ctx context.Context) (model.Principal, bool) {
	p, ok := ctx.Value(principalKey{}).(model.Principal)
	return p, ok && p.ID != ""
}
