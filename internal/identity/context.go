package identity

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var (
	ErrMissingToken  = errors.New("invalid token in context")
	ErrInvalidClaims = errors.New("invalid claims")
)

// FromContext builds the Caller from the JWT the auth middleware stored in
// Fiber locals. Expected claims: sub (uuid), role, and department for
// department staff.
func FromContext(c *fiber.Ctx) (Caller, error) {
	token, ok := c.Locals("user").(*jwt.Token)
	if !ok || token == nil {
		return Caller{}, ErrMissingToken
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return Caller{}, ErrInvalidClaims
	}
	return FromClaims(claims)
}

func FromClaims(claims jwt.MapClaims) (Caller, error) {
	sub, ok := claims["sub"].(string)
	if !ok {
		return Caller{}, errors.New("missing sub claim")
	}
	id, err := uuid.Parse(sub)
	if err != nil {
		return Caller{}, errors.New("sub claim is not a uuid")
	}

	roleClaim, _ := claims["role"].(string)
	role := Role(roleClaim)
	if !role.Valid() {
		return Caller{}, errors.New("unknown role claim")
	}

	department, _ := claims["department"].(string)
	if role == RoleDepartment && department == "" {
		return Caller{}, errors.New("department claim required for department role")
	}

	return Caller{ID: id, Role: role, Department: department}, nil
}
