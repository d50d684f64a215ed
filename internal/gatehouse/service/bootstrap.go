package service

import (
	"context"
	"fmt"

	"github.com/gatehouselabs/gatehouse/internal/gatehouse/domain"
	"github.com/gatehouselabs/gatehouse/internal/gatehouse/store"
	"github.com/gatehouselabs/gatehouse/pkg/cryptox"
	"github.com/gatehouselabs/gatehouse/pkg/idx"
	"github.com/gatehouselabs/gatehouse/pkg/slogx"
)

// BootstrapService seeds the first user when the store is empty so a fresh
// deployment has something to log in with. User provisioning beyond this is
// out of scope and handled by operators directly.
type BootstrapService struct {
	Store store.Store
	Clock Clock
}

const bootstrapUsername = "admin"

// EnsureSeedUser creates the initial admin user with a generated password if
// no users exist yet. The password is logged exactly once, at creation.
func (s *BootstrapService) EnsureSeedUser(ctx context.Context) error {
	empty, err := s.Store.Users().IsEmpty(ctx)
	if err != nil {
		return fmt.Errorf("check users: %w", err)
	}
	if !empty {
		return nil
	}

	password, err := cryptox.GeneratePassword()
	if err != nil {
		return fmt.Errorf("generate seed password: %w", err)
	}
	hash, err := cryptox.HashPassword(password)
	if err != nil {
		return fmt.Errorf("hash seed password: %w", err)
	}

	now := s.Clock.now()
	user := domain.User{
		ID:           idx.New().String(),
		Username:     bootstrapUsername,
		PasswordHash: hash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.Store.Users().CreateUser(ctx, user); err != nil {
		return fmt.Errorf("create seed user: %w", err)
	}

	// Shown once; rotate it after first login.
	slogx.FromContext(ctx).Warn("seeded initial user",
		"username", bootstrapUsername,
		"password", password,
	)
	return nil
}
