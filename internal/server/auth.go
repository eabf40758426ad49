package server

import (
	"errors"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/smallbiznis/guestlist/internal/accountcontext"
	"github.com/smallbiznis/guestlist/internal/config"
	obscontext "github.com/smallbiznis/guestlist/internal/observability/context"
)

var ErrMissingJWTSecret = errors.New("auth_jwt_secret_required")

// accountClaims is what the identity provider puts in a bearer token. The
// subject is the account id.
type accountClaims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

type tokenVerifier struct {
	secret []byte
	parser *jwt.Parser
}

func newTokenVerifier(cfg config.AuthConfig) (*tokenVerifier, error) {
	secret := strings.TrimSpace(cfg.JWTSecret)
	if secret == "" {
		return nil, ErrMissingJWTSecret
	}

	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
	}
	if issuer := strings.TrimSpace(cfg.JWTIssuer); issuer != "" {
		opts = append(opts, jwt.WithIssuer(issuer))
	}
	return &tokenVerifier{secret: []byte(secret), parser: jwt.NewParser(opts...)}, nil
}

func (v *tokenVerifier) Verify(raw string) (accountcontext.Account, error) {
	var claims accountClaims
	_, err := v.parser.ParseWithClaims(raw, &claims, func(*jwt.Token) (any, error) {
		return v.secret, nil
	})
	if err != nil {
		return accountcontext.Account{}, ErrUnauthorized
	}

	subject := strings.TrimSpace(claims.Subject)
	role := strings.ToLower(strings.TrimSpace(claims.Role))
	if subject == "" || role == "" {
		return accountcontext.Account{}, ErrUnauthorized
	}
	return accountcontext.Account{ID: subject, Role: role}, nil
}

// AuthRequired verifies the bearer token and stores the account on the
// request context.
func (s *Server) AuthRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		raw, ok := bearerToken(c.GetHeader("Authorization"))
		if !ok {
			AbortWithError(c, ErrUnauthorized)
			return
		}

		account, err := s.tokens.Verify(raw)
		if err != nil {
			AbortWithError(c, err)
			return
		}

		ctx := accountcontext.WithAccount(c.Request.Context(), account)
		ctx = obscontext.WithActor(ctx, account.Role, account.ID)
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

// RequireRole rejects callers whose token carries none of the given roles.
func (s *Server) RequireRole(roles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		account, ok := accountcontext.FromContext(c.Request.Context())
		if !ok {
			AbortWithError(c, ErrUnauthorized)
			return
		}
		for _, role := range roles {
			if account.Role == role {
				c.Next()
				return
			}
		}
		AbortWithError(c, ErrForbidden)
	}
}

func bearerToken(header string) (string, bool) {
	scheme, token, found := strings.Cut(strings.TrimSpace(header), " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}
