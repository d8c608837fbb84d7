package identity

import (
	"github.com/google/uuid"
	"github.com/storefront/payment-gateway/internal/core"
	"github.com/storefront/payment-gateway/internal/port/output"
)

// HeaderResolver implements the IdentityResolver output port against the
// identity headers stamped by the storefront's auth proxy. Session and role
// resolution live behind that proxy; this adapter only validates the shape
// of what it forwarded.
type HeaderResolver struct{}

// NewHeaderResolver creates a new header identity resolver
func NewHeaderResolver() output.IdentityResolver {
	return &HeaderResolver{}
}

// Resolve validates the forwarded user id and role.
func (r *HeaderResolver) Resolve(userID, role string) (*output.Identity, error) {
	if userID == "" {
		return nil, &core.UnauthorizedError{Msg: "missing identity"}
	}
	id, err := uuid.Parse(userID)
	if err != nil {
		return nil, &core.UnauthorizedError{Msg: "invalid identity"}
	}
	if role == "" {
		role = output.RoleCustomer
	}
	return &output.Identity{UserID: id, Role: role}, nil
}
