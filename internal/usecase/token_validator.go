package usecase

import (
	"salon-booking/internal/domain/booking"
	"salon-booking/internal/domain/user"
	"salon-booking/internal/pkg/jwt"

	"github.com/google/uuid"
)

// Identity is the authenticated caller of a booking operation.
type Identity struct {
	Actor    booking.Actor
	TenantID uuid.UUID
}

// TokenValidator provides token validation for middleware
type TokenValidator interface {
	ValidateToken(tokenString string) (Identity, error)
}

type tokenValidatorImpl struct {
	jwtService *jwt.Service
}

func NewTokenValidator(jwtService *jwt.Service) TokenValidator {
	return &tokenValidatorImpl{
		jwtService: jwtService,
	}
}

func (t *tokenValidatorImpl) ValidateToken(tokenString string) (Identity, error) {
	claims, err := t.jwtService.ValidateToken(tokenString)
	if err != nil {
		return Identity{}, err
	}

	role, err := user.NewRole(claims.Role)
	if err != nil {
		return Identity{}, err
	}

	return Identity{
		Actor:    booking.Actor{ID: claims.UserID, Role: role},
		TenantID: claims.TenantID,
	}, nil
}
