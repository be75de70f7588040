package identity

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const (
	ActorUser   = "user"
	ActorSystem = "system"
	ActorAI     = "ai"
)

type Claims struct {
	ActorID     string `json:"uid"`
	ActorType   string `json:"atype"`
	TenantID    string `json:"tid"`
	EmployeeID  string `json:"eid"`
	Role        string `json:"role"`
	DisplayName string `json:"name"`
	jwt.RegisteredClaims
}

// Actor identifies who is performing an operation, as established by the
// auth middleware from a verified token.
type Actor struct {
	ID          string
	Type        string
	TenantID    string
	EmployeeID  string
	Role        string
	DisplayName string
}

func GenerateToken(secret string, claims Claims, ttl time.Duration) (string, error) {
	claims.RegisteredClaims = jwt.RegisteredClaims{
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(ttl)),
		IssuedAt:  jwt.NewNumericDate(time.Now()),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}

func ParseToken(secret, tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if token.Method != jwt.SigningMethodHS256 {
			return nil, errors.New("unexpected signing method")
		}
		return []byte(secret), nil
	})
	if err != nil {
		return nil, err
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, errors.New("invalid token")
	}
	if claims.ActorType == "" {
		claims.ActorType = ActorUser
	}
	return claims, nil
}

func (c *Claims) Actor() Actor {
	return Actor{
		ID:          c.ActorID,
		Type:        c.ActorType,
		TenantID:    c.TenantID,
		EmployeeID:  c.EmployeeID,
		Role:        c.Role,
		DisplayName: c.DisplayName,
	}
}
