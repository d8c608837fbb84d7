package output

import "github.com/google/uuid"

// Role names understood by the payment endpoints.
const (
	RoleCustomer = "customer"
	RoleAdmin    = "admin"
)

// Identity is the resolved requester of an initiate or refund call.
type Identity struct {
	UserID uuid.UUID
	Role   string
}

// IdentityResolver is the output port to the authentication collaborator.
// Session and role resolution is owned elsewhere; payments only consume the
// result.
type IdentityResolver interface {
	Resolve(userID, role string) (*Identity, error)
}
