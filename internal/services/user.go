package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/taskflowhq/taskflow-backend/internal/apierr"
	"github.com/taskflowhq/taskflow-backend/internal/logger"
	"github.com/taskflowhq/taskflow-backend/internal/repos"
	"github.com/taskflowhq/taskflow-backend/internal/requestdata"
	"github.com/taskflowhq/taskflow-backend/internal/types"
	"github.com/taskflowhq/taskflow-backend/internal/utils"
)

type UserService interface {
	GetMe(ctx context.Context) (*types.User, error)
	UpdateName(ctx context.Context, firstName, lastName string) (*types.User, error)
	ChangePassword(ctx context.Context, oldPassword, newPassword string) error
	SearchByName(ctx context.Context, name string) ([]*types.User, error)
}

type userService struct {
	db       *gorm.DB
	log      *logger.Logger
	userRepo repos.UserRepo
}

func NewUserService(db *gorm.DB, log *logger.Logger, userRepo repos.UserRepo) UserService {
	return &userService{
		db:       db,
		log:      log.With("service", "UserService"),
		userRepo: userRepo,
	}
}

func (us *userService) GetMe(ctx context.Context) (*types.User, error) {
	userID := requestdata.UserID(ctx)
	if userID == uuid.Nil {
		return nil, apierr.Unauthorized("no authenticated user")
	}
	found, err := us.userRepo.GetByIDs(ctx, nil, []uuid.UUID{userID})
	if err != nil {
		return nil, fmt.Errorf("fetching user: %w", err)
	}
	if len(found) == 0 {
		return nil, apierr.NotFound("user %s not found", userID)
	}
	return found[0], nil
}

func (us *userService) UpdateName(ctx context.Context, firstName, lastName string) (*types.User, error) {
	firstName = strings.TrimSpace(firstName)
	lastName = strings.TrimSpace(lastName)
	if firstName == "" || lastName == "" {
		return nil, apierr.InvalidInput("first and last name are required")
	}

	var updated *types.User
	if err := us.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		user, err := us.loadActing(ctx, tx)
		if err != nil {
			return err
		}
		user.FirstName = firstName
		user.LastName = lastName
		updated, err = us.userRepo.Save(ctx, tx, user)
		return err
	}); err != nil {
		return nil, err
	}
	return updated, nil
}

func (us *userService) ChangePassword(ctx context.Context, oldPassword, newPassword string) error {
	if !utils.ValidPassword(newPassword) {
		return apierr.InvalidInput("password must be at least 8 characters")
	}
	return us.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		user, err := us.loadActing(ctx, tx)
		if err != nil {
			return err
		}
		if !utils.CheckPassword(user.Password, oldPassword) {
			return apierr.Unauthorized("current password is incorrect")
		}
		hashed, err := utils.HashPassword(newPassword)
		if err != nil {
			return err
		}
		user.Password = hashed
		_, err = us.userRepo.Save(ctx, tx, user)
		return err
	})
}

func (us *userService) SearchByName(ctx context.Context, name string) ([]*types.User, error) {
	if strings.TrimSpace(name) == "" {
		return []*types.User{}, nil
	}
	return us.userRepo.SearchByName(ctx, nil, name)
}

func (us *userService) loadActing(ctx context.Context, tx *gorm.DB) (*types.User, error) {
	userID := requestdata.UserID(ctx)
	if userID == uuid.Nil {
		return nil, apierr.Unauthorized("no authenticated user")
	}
	found, err := us.userRepo.GetByIDs(ctx, tx, []uuid.UUID{userID})
	if err != nil {
		return nil, err
	}
	if len(found) == 0 {
		return nil, apierr.NotFound("user %s not found", userID)
	}
	return found[0], nil
}
