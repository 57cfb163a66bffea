package httpapi

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/gorilla/mux"

	"venueadmin/internal/core"
)

const tokenIssuer = "venueadmin"

// ErrUnauthorized is returned for missing, malformed or expired credentials.
var ErrUnauthorized = errors.New("unauthorized")

// Claims identify the operator behind an API request.
type Claims struct {
	Operator string `json:"operator"`
	jwt.RegisteredClaims
}

// IssueToken signs an HS256 token for operator valid for ttl from now.
func IssueToken(secret []byte, operator string, ttl time.Duration, now time.Time) (string, time.Time, error) {
	if len(secret) == 0 {
		return "", time.Time{}, fmt.Errorf("jwt secret required")
	}
	if strings.TrimSpace(operator) == "" {
		return "", time.Time{}, fmt.Errorf("operator required")
	}
	expires := now.Add(ttl)
	claims := &Claims{
		Operator: operator,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   operator,
			Issuer:    tokenIssuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expires),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("could not sign token: %w", err)
	}
	return signed, expires, nil
}

// ValidateToken parses raw and returns its claims when the signature and
// validity window check out.
func ValidateToken(secret []byte, raw string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(raw, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return secret, nil
	})
	if err != nil {
		var ve *jwt.ValidationError
		switch {
		case errors.As(err, &ve) && ve.Errors&jwt.ValidationErrorMalformed != 0:
			return nil, fmt.Errorf("%w: token is malformed", ErrUnauthorized)
		case errors.As(err, &ve) && ve.Errors&(jwt.ValidationErrorExpired|jwt.ValidationErrorNotValidYet) != 0:
			return nil, fmt.Errorf("%w: token is expired or not active yet", ErrUnauthorized)
		default:
			return nil, fmt.Errorf("%w: %v", ErrUnauthorized, err)
		}
	}
	if !token.Valid {
		return nil, fmt.Errorf("%w: token is invalid", ErrUnauthorized)
	}
	if claims.Issuer != tokenIssuer {
		return nil, fmt.Errorf("%w: unexpected issuer %q", ErrUnauthorized, claims.Issuer)
	}
	return claims, nil
}

type operatorKey struct{}

// OperatorFromContext returns the operator authenticated for the request.
func OperatorFromContext(ctx context.Context) (string, bool) {
	op, ok := ctx.Value(operatorKey{}).(string)
	return op, ok
}

// RequireBearer rejects requests without a valid bearer token.
func RequireBearer(secret []byte, logger core.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			scheme, raw, ok := strings.Cut(header, " ")
			if !ok || !strings.EqualFold(scheme, "bearer") || strings.TrimSpace(raw) == "" {
				logger.Warn("request rejected", "path", r.URL.Path, "reason", "missing bearer token")
				writeError(w, http.StatusUnauthorized, "bearer token required")
				return
			}
			claims, err := ValidateToken(secret, strings.TrimSpace(raw))
			if err != nil {
				logger.Warn("request rejected", "path", r.URL.Path, "error", err)
				writeError(w, http.StatusUnauthorized, err.Error())
				return
			}
			ctx := context.WithValue(r.Context(), operatorKey{}, claims.Operator)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
