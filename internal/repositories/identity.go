package repositories

import (
	"context"
	"errors"

	"github.com/luct-edu/lecture-reporting-service/internal/models"
)

// ErrIdentityProviderDisabled is returned when no external identity provider is configured
var ErrIdentityProviderDisabled = errors.New("identity provider not configured")

// ExternalIdentity is a user as asserted by an external SSO provider
type ExternalIdentity struct {
	Subject  string
	Email    string
	FullName string
	Role     models.UserRole
}

// IdentityProvider exchanges an OAuth authorization code for a verified identity
type IdentityProvider interface {
	ExchangeCode(ctx context.Context, code, state string) (*ExternalIdentity, error)
}
