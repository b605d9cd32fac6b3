// Package auth issues and verifies the access tokens that identify the actor
// behind every lifecycle operation.
package auth

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/dmitrijs2005/credeval/internal/common"
	"github.com/golang-jwt/jwt/v5"
)

type Role string

const (
	RoleStudent   Role = "student"
	RoleEvaluator Role = "evaluator"
	RoleAdmin     Role = "admin"
)

// Claims carries the actor name recorded in the ledger and its role.
type Claims struct {
	jwt.RegisteredClaims
	Actor string `json:"actor"`
	Role  Role   `json:"role"`
}

// Actor is the verified identity of a caller.
type Actor struct {
	Name string
	Role Role
}

// Is reports whether the actor has one of roles. Admins pass every check.
func (a Actor) Is(roles ...Role) bool {
	return a.Role == RoleAdmin || slices.Contains(roles, a.Role)
}

func GenerateToken(actor string, role Role, secretKey []byte, validityDuration time.Duration) (string, error) {
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   actor,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(validityDuration)),
		},
		Actor: actor,
		Role:  role,
	})

	tokenString, err := token.SignedString(secretKey)
	if err != nil {
		return "", err
	}

	return tokenString, nil
}

// ParseToken verifies tokenString and returns its actor.
// Expired tokens yield common.ErrTokenExpired, anything else that fails
// verification yields common.ErrInvalidToken.
func ParseToken(tokenString string, secretKey []byte) (Actor, error) {
	claims := &Claims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		return secretKey, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return Actor{}, common.ErrTokenExpired
		}
		return Actor{}, fmt.Errorf("%w: %v", common.ErrInvalidToken, err)
	}

	if !token.Valid || claims.Actor == "" {
		return Actor{}, common.ErrInvalidToken
	}
	switch claims.Role {
	case RoleStudent, RoleEvaluator, RoleAdmin:
	default:
		return Actor{}, fmt.Errorf("%w: unknown role %q", common.ErrInvalidToken, claims.Role)
	}

	return Actor{Name: claims.Actor, Role: claims.Role}, nil
}

type ctxKey struct{}

func WithActor(ctx context.Context, a Actor) context.Context {
	return context.WithValue(ctx, ctxKey{}, a)
}

// ActorFromContext returns the actor stored by WithActor.
func ActorFromContext(ctx context.Context) (Actor, bool) {
	a, ok := ctx.Value(ctxKey{}).(Actor)
	return a, ok
}
