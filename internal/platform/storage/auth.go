package storage

import (
	"context"
	"errors"

	"github.com/a2h-store/api/internal/platform/auth"
)

// ErrPermissionDenied is returned when the caller may not access the object.
var ErrPermissionDenied = errors.New("storage: permission denied")

// AuthorizeProofAccess validates whether the identity may view a payment
// proof. Proofs are uploaded by anonymous shoppers, so there is no owner to
// match against; only staff and admins may read them back.
func AuthorizeProofAccess(identity *auth.Identity) error {
	if identity == nil {
		return ErrPermissionDenied
	}
	if identity.HasAnyRole(auth.RoleStaff, auth.RoleAdmin) {
		return nil
	}
	return ErrPermissionDenied
}

// AuthorizeProofAccessFromContext extracts the identity from context and
// validates proof access.
func AuthorizeProofAccessFromContext(ctx context.Context) (*auth.Identity, error) {
	identity, ok := auth.IdentityFromContext(ctx)
	if !ok {
		return nil, ErrPermissionDenied
	}
	if err := AuthorizeProofAccess(identity); err != nil {
		return nil, err
	}
	return identity, nil
}
