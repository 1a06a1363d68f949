package repository

import (
	"context"

	"gorm.io/gorm"

	"listings/internal/model"
)

// RoleRepository manages roles and role membership. Both operations are
// idempotent so callers can run ensure-then-attach unconditionally.
type RoleRepository interface {
	Ensure(ctx context.Context, name string) (*model.Role, error)
	AddUser(ctx context.Context, user *model.User, role *model.Role) error
}

type roleRepository struct {
	db *gorm.DB
}

// NewRoleRepository builds a GORM-backed role store.
func NewRoleRepository(db *gorm.DB) RoleRepository {
	return &roleRepository{db: db}
}

// Ensure returns the role with the given name, creating it if absent.
func (r *roleRepository) Ensure(ctx context.Context, name string) (*model.Role, error) {
	var role model.Role
	if err := r.db.WithContext(ctx).Where(model.Role{Name: name}).FirstOrCreate(&role).Error; err != nil {
		return nil, err
	}
	return &role, nil
}

// AddUser attaches the role to the user. Appending an existing membership is
// a no-op at the join table, so repeated assignment does not duplicate rows.
func (r *roleRepository) AddUser(ctx context.Context, user *model.User, role *model.Role) error {
	return r.db.WithContext(ctx).Model(user).Association("Roles").Append(role)
}
