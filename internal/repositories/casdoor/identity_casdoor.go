package casdoor

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/casdoor/casdoor-go-sdk/casdoorsdk"
	"golang.org/x/oauth2"

	"github.com/luct-edu/lecture-reporting-service/internal/models"
	"github.com/luct-edu/lecture-reporting-service/internal/repositories"
)

// CasdoorConfig holds the configuration for Casdoor connection
type CasdoorConfig struct {
	Endpoint         string
	ClientID         string
	ClientSecret     string
	Certificate      string
	OrganizationName string
	ApplicationName  string
}

// tokenClient is the subset of the Casdoor SDK the provider needs
type tokenClient interface {
	GetOAuthToken(code string, state string) (*oauth2.Token, error)
	ParseJwtToken(token string) (*casdoorsdk.Claims, error)
}

type IdentityCasdoor struct {
	client tokenClient
}

func NewIdentityCasdoor(config CasdoorConfig) repositories.IdentityProvider {
	client := casdoorsdk.NewClient(
		config.Endpoint,
		config.ClientID,
		config.ClientSecret,
		config.Certificate,
		config.OrganizationName,
		config.ApplicationName,
	)
	return &IdentityCasdoor{client: client}
}

// ExchangeCode trades the OAuth code for a Casdoor token and reads the user from its claims
func (i *IdentityCasdoor) ExchangeCode(ctx context.Context, code, state string) (*repositories.ExternalIdentity, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	token, err := i.client.GetOAuthToken(code, state)
	if err != nil {
		return nil, fmt.Errorf("casdoor token exchange failed: %w", err)
	}

	claims, err := i.client.ParseJwtToken(token.AccessToken)
	if err != nil {
		return nil, fmt.Errorf("casdoor token invalid: %w", err)
	}

	email := strings.ToLower(strings.TrimSpace(claims.User.Email))
	if email == "" {
		return nil, fmt.Errorf("casdoor account has no email")
	}

	name := claims.User.DisplayName
	if name == "" {
		name = claims.User.Name
	}

	return &repositories.ExternalIdentity{
		Subject:  claims.User.Id,
		Email:    email,
		FullName: name,
		Role:     roleFromClaims(&claims.User),
	}, nil
}

// roleFromClaims picks the highest local role among the Casdoor roles and user type
func roleFromClaims(user *casdoorsdk.User) models.UserRole {
	if user.IsAdmin {
		return models.RoleAdmin
	}

	roles := []models.UserRole{MapCasdoorRole(user.Type)}
	for _, r := range user.Roles {
		if r != nil {
			roles = append(roles, MapCasdoorRole(r.Name))
		}
	}

	best := models.RoleStudent
	for _, r := range roles {
		if slices.Index(models.AllRoles, r) > slices.Index(models.AllRoles, best) {
			best = r
		}
	}
	return best
}

// MapCasdoorRole maps a Casdoor user type or role name to a local role, defaulting to student
func MapCasdoorRole(casdoorType string) models.UserRole {
	switch strings.ToLower(strings.TrimSpace(casdoorType)) {
	case "admin", "administrator":
		return models.RoleAdmin
	case "pl", "program-leader", "program_leader", "programleader":
		return models.RolePL
	case "prl", "principal-lecturer", "principal_lecturer":
		return models.RolePRL
	case "lecturer", "teacher", "instructor":
		return models.RoleLecturer
	default:
		return models.RoleStudent
	}
}
