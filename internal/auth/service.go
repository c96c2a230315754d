// Package auth verifies user credentials against the entity registry and
// issues bearer sessions.
package auth

import (
	"context"
	"fmt"

	"golang.org/x/crypto/bcrypt"

	"github.com/manara-erp/manara/internal/masterdata"
	"github.com/manara-erp/manara/internal/rbac"
	"github.com/manara-erp/manara/internal/shared"
)

// Directory is the registry view auth needs.
type Directory interface {
	Entities(kind masterdata.Kind) []masterdata.Entity
	AddEntity(ctx context.Context, e masterdata.Entity) (masterdata.Entity, error)
}

// Service wraps authentication business rules.
type Service struct {
	users    Directory
	sessions *Sessions
}

// NewService constructs a new Service.
func NewService(users Directory, sessions *Sessions) *Service {
	return &Service{users: users, sessions: sessions}
}

// Authenticate validates username/password credentials.
func (s *Service) Authenticate(ctx context.Context, username, password string) (*masterdata.User, error) {
	user, ok := s.findUser(username)
	if !ok || user.PasswordHash == "" {
		return nil, shared.ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, shared.ErrInvalidCredentials
	}
	return &user, nil
}

// Login authenticates and opens a session.
func (s *Service) Login(ctx context.Context, username, password string) (string, *shared.Actor, error) {
	user, err := s.Authenticate(ctx, username, password)
	if err != nil {
		return "", nil, err
	}
	actor := ActorFor(*user)
	token, err := s.sessions.Create(ctx, actor)
	if err != nil {
		return "", nil, fmt.Errorf("auth: create session: %w", err)
	}
	return token, &actor, nil
}

// Logout revokes a session token.
func (s *Service) Logout(ctx context.Context, token string) error {
	return s.sessions.Revoke(ctx, token)
}

// Resolve returns the actor behind a token.
func (s *Service) Resolve(ctx context.Context, token string) (*shared.Actor, error) {
	return s.sessions.Lookup(ctx, token)
}

func (s *Service) findUser(username string) (masterdata.User, bool) {
	for _, e := range s.users.Entities(masterdata.KindUser) {
		if u, ok := e.(masterdata.User); ok && u.Username == username {
			return u, true
		}
	}
	return masterdata.User{}, false
}

// ActorFor maps a registry user onto a request principal.
func ActorFor(u masterdata.User) shared.Actor {
	return shared.Actor{
		UserID:      u.ID,
		Username:    u.Username,
		Name:        u.Name,
		Role:        u.Role,
		Permissions: append([]string(nil), u.Permissions...),
	}
}

// HashPassword returns the bcrypt hash stored on users.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// SeedPasswords are the initial credentials of the built-in accounts.
type SeedPasswords struct {
	Admin string
	Staff string
}

// SeedUsers registers the built-in accounts when the registry has no users.
func SeedUsers(ctx context.Context, users Directory, pw SeedPasswords) (int, error) {
	if len(users.Entities(masterdata.KindUser)) > 0 {
		return 0, nil
	}
	all := actions(rbac.Actions...)
	seeds := []struct {
		user     masterdata.User
		password string
	}{
		{masterdata.User{ID: "1", Username: "admin", Name: "General Manager", Role: string(rbac.RoleAdmin), Permissions: all}, pw.Admin},
		{masterdata.User{ID: "2", Username: "acc", Name: "Accountant", Role: string(rbac.RoleAccountant), Permissions: actions(
			rbac.ActionView, rbac.ActionCreate, rbac.ActionPrint, rbac.ActionExport, rbac.ActionViewCosts, rbac.ActionViewAlerts)}, pw.Staff},
		{masterdata.User{ID: "3", Username: "sales", Name: "Sales", Role: string(rbac.RoleSales), Permissions: actions(
			rbac.ActionView, rbac.ActionCreate)}, pw.Staff},
		{masterdata.User{ID: "4", Username: "store", Name: "Warehouse Keeper", Role: string(rbac.RoleWarehouse), Permissions: actions(
			rbac.ActionView, rbac.ActionCreate, rbac.ActionUpdate, rbac.ActionManageStocks, rbac.ActionViewAlerts)}, pw.Staff},
	}
	for i, seed := range seeds {
		if seed.password == "" {
			return i, fmt.Errorf("auth: seed password for %s is empty", seed.user.Username)
		}
		hash, err := HashPassword(seed.password)
		if err != nil {
			return i, err
		}
		seed.user.PasswordHash = hash
		if _, err := users.AddEntity(ctx, seed.user); err != nil {
			return i, fmt.Errorf("auth: seed %s: %w", seed.user.Username, err)
		}
	}
	return len(seeds), nil
}

func actions(list ...rbac.Action) []string {
	out := make([]string, len(list))
	for i, a := range list {
		out[i] = string(a)
	}
	return out
}
