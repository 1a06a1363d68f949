package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"listings/internal/repository"
)

const profileCacheTTL = 5 * time.Minute

// ProfileCache is the subset of the cache client the profile service needs.
type ProfileCache interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// Profile is the authenticated view of a user.
type Profile struct {
	Email    string   `json:"email"`
	UserName string   `json:"userName"`
	Roles    []string `json:"roles"`
}

// UserService exposes user-facing read operations.
type UserService interface {
	GetProfile(ctx context.Context, id string) (*Profile, error)
}

type userService struct {
	repo  repository.UserRepository
	cache ProfileCache
}

// NewUserService builds a UserService with repository and cache.
func NewUserService(repo repository.UserRepository, cache ProfileCache) UserService {
	return &userService{repo: repo, cache: cache}
}

func (s *userService) cacheKey(id string) string {
	return fmt.Sprintf("profile:%s", id)
}

// GetProfile returns the profile for the user id, reading through the cache.
func (s *userService) GetProfile(ctx context.Context, id string) (*Profile, error) {
	if data, _ := s.cache.Get(ctx, s.cacheKey(id)); data != nil {
		var cached Profile
		if err := json.Unmarshal(data, &cached); err == nil {
			return &cached, nil
		}
	}

	user, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	profile := &Profile{
		Email:    user.Email,
		UserName: user.DisplayName,
		Roles:    user.RoleNames(),
	}

	if payload, err := json.Marshal(profile); err == nil {
		_ = s.cache.Set(ctx, s.cacheKey(id), payload, profileCacheTTL)
	}
	return profile, nil
}
