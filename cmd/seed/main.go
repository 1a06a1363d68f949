package main

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"listings/internal/config"
	"listings/internal/db"
	"listings/internal/logger"
	"listings/internal/model"
	"listings/internal/repository"
)

var baselineRoles = []string{"User", "Admin"}

func main() {
	cfg := config.Load()
	log := logger.New("listings-seed", cfg.Env)

	gormDB, err := db.NewMySQL(cfg.MySQLDSN)
	if err != nil {
		log.Fatalf("connect database: %v", err)
	}

	if err := gormDB.AutoMigrate(&model.User{}, &model.Role{}, &model.RefreshToken{}); err != nil {
		log.Fatalf("auto-migrate: %v", err)
	}

	ctx := context.Background()
	userRepo := repository.NewUserRepository(gormDB)
	roleRepo := repository.NewRoleRepository(gormDB)

	for _, name := range baselineRoles {
		if _, err := roleRepo.Ensure(ctx, name); err != nil {
			log.Fatalf("ensure role %q: %v", name, err)
		}
		log.Infof("role %q present", name)
	}

	if cfg.SeedAdminPassword == "" {
		log.Info("SEED_ADMIN_PASSWORD not set, skipping admin account")
		return
	}

	admin, err := seedAdmin(ctx, userRepo, cfg)
	if err != nil {
		log.Fatalf("seed admin: %v", err)
	}
	if admin == nil {
		log.Infof("admin account %q already present", cfg.SeedAdminEmail)
		return
	}

	for _, name := range baselineRoles {
		role, err := roleRepo.Ensure(ctx, name)
		if err != nil {
			log.Fatalf("ensure role %q: %v", name, err)
		}
		if err := roleRepo.AddUser(ctx, admin, role); err != nil {
			log.Fatalf("attach role %q: %v", name, err)
		}
	}
	log.Infof("admin account %q created", cfg.SeedAdminEmail)
}

// seedAdmin creates the admin account unless one already exists for the
// configured email. Returns nil without error when the account is present.
func seedAdmin(ctx context.Context, users repository.UserRepository, cfg *config.Config) (*model.User, error) {
	if _, err := users.FindByEmail(ctx, cfg.SeedAdminEmail); err == nil {
		return nil, nil
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	admin := &model.User{
		DisplayName: cfg.SeedAdminName,
		Email:       cfg.SeedAdminEmail,
	}
	if err := users.Create(ctx, admin, cfg.SeedAdminPassword); err != nil {
		return nil, err
	}
	return admin, nil
}
