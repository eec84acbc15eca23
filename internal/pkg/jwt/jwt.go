package jwt

import (
	"errors"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"

	"staybook/internal/pkg/ids"
)

var (
	ErrInvalidToken  = errors.New("invalid token")
	ErrInvalidClaims = errors.New("invalid claims")
)

// Roles carried in tokens issued by the identity provider.
const (
	RoleGuest   = "guest"
	RolePartner = "partner"
	RoleAdmin   = "admin"
)

type Service struct {
	secret []byte
	ttl    time.Duration
}

type Claims struct {
	AccountID string `json:"account_id"`
	Role      string `json:"role"`
	jwtlib.RegisteredClaims
}

// Account parses the subject account id.
func (c *Claims) Account() (ids.AccountID, error) {
	return ids.Parse[ids.AccountID](c.AccountID)
}

func New(secret string, ttl time.Duration) *Service {
	return &Service{
		secret: []byte(secret),
		ttl:    ttl,
	}
}

// GenerateToken signs a token for account. Only the seed tool and tests
// issue tokens; production tokens come from the identity provider.
func (s *Service) GenerateToken(account ids.AccountID, role string) (string, error) {
	claims := Claims{
		AccountID: account.String(),
		Role:      role,
		RegisteredClaims: jwtlib.RegisteredClaims{
			Subject:   account.String(),
			ExpiresAt: jwtlib.NewNumericDate(time.Now().Add(s.ttl)),
			IssuedAt:  jwtlib.NewNumericDate(time.Now()),
		},
	}

	token := jwtlib.NewWithClaims(jwtlib.SigningMethodHS256, claims)
	return token.SignedString(s.secret)
}

func (s *Service) ValidateToken(tokenStr string) (*Claims, error) {
	token, err := jwtlib.ParseWithClaims(tokenStr, &Claims{}, func(t *jwtlib.Token) (any, error) {
		return s.secret, nil
	}, jwtlib.WithValidMethods([]string{jwtlib.SigningMethodHS256.Alg()}))
	if err != nil || !token.Valid {
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(*Claims)
	if !ok {
		return nil, ErrInvalidClaims
	}
	if _, err := claims.Account(); err != nil {
		return nil, ErrInvalidClaims
	}

	return claims, nil
}
