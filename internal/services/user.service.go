package services

import (
	"context"
	"errors"

	"github.com/patronlabs/patron-gateway/internal/model"
	"github.com/patronlabs/patron-gateway/internal/repository"
	"github.com/patronlabs/patron-gateway/pkg/apperr"
)

type UserRepository interface {
	Create(ctx context.Context, u *model.User) (*model.User, error)
	GetByAddress(ctx context.Context, address string) (*model.User, error)
	Update(ctx context.Context, p model.UserUpdateRequest) (*model.User, error)
}

type UserService struct {
	userRepo UserRepository
}

func NewUserService(userRepo UserRepository) *UserService {
	return &UserService{
		userRepo: userRepo,
	}
}

func (s *UserService) Create(ctx context.Context, p model.UserCreateRequest) (*model.User, error) {
	if err := p.Validate(); err != nil {
		return nil, apperr.Validation(err.Error())
	}

	u, err := s.userRepo.Create(ctx, &model.User{Address: p.Address})
	if err != nil {
		if errors.Is(err, repository.ErrUserExists) {
			return nil, apperr.Conflict("user already exists")
		}
		return nil, apperr.Internal("failed to create user", err)
	}
	return u, nil
}

func (s *UserService) Profile(ctx context.Context, address string) (*model.User, error) {
	if address == "" {
		return nil, apperr.Validation("address is required")
	}

	u, err := s.userRepo.GetByAddress(ctx, address)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, apperr.NotFound("user not found")
		}
		return nil, apperr.Internal("failed to load profile", err)
	}
	return u, nil
}

func (s *UserService) UpdateProfile(ctx context.Context, p model.UserUpdateRequest) (*model.User, error) {
	if err := p.Validate(); err != nil {
		return nil, apperr.Validation(err.Error())
	}

	u, err := s.userRepo.Update(ctx, p)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, apperr.NotFound("user not found")
		}
		return nil, apperr.Internal("failed to update profile", err)
	}
	return u, nil
}
