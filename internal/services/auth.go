package services

import (
	"context"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/taskflowhq/taskflow-backend/internal/apierr"
	"github.com/taskflowhq/taskflow-backend/internal/logger"
	"github.com/taskflowhq/taskflow-backend/internal/repos"
	"github.com/taskflowhq/taskflow-backend/internal/requestdata"
	"github.com/taskflowhq/taskflow-backend/internal/types"
	"github.com/taskflowhq/taskflow-backend/internal/utils"
)

type RegisterInput struct {
	Username  string `json:"username"`
	Email     string `json:"email"`
	Password  string `json:"password"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int64  `json:"expires_in"`
}

type AuthService interface {
	Register(ctx context.Context, input RegisterInput) (*types.User, error)
	Login(ctx context.Context, identifier, password string) (*TokenPair, error)
	Refresh(ctx context.Context, refreshToken string) (*TokenPair, error)
	Logout(ctx context.Context) error
	// ContextFromToken validates an access token and returns a context
	// carrying the acting user's identity.
	ContextFromToken(ctx context.Context, tokenString string) (context.Context, error)
}

type authService struct {
	db            *gorm.DB
	log           *logger.Logger
	userRepo      repos.UserRepo
	userTokenRepo repos.UserTokenRepo
	jwtSecretKey  []byte
	accessTTL     time.Duration
	refreshTTL    time.Duration
}

func NewAuthService(
	db *gorm.DB,
	log *logger.Logger,
	userRepo repos.UserRepo,
	userTokenRepo repos.UserTokenRepo,
	jwtSecretKey string,
	accessTTL time.Duration,
	refreshTTL time.Duration,
) AuthService {
	return &authService{
		db:            db,
		log:           log.With("service", "AuthService"),
		userRepo:      userRepo,
		userTokenRepo: userTokenRepo,
		jwtSecretKey:  []byte(jwtSecretKey),
		accessTTL:     accessTTL,
		refreshTTL:    refreshTTL,
	}
}

func (as *authService) Register(ctx context.Context, input RegisterInput) (*types.User, error) {
	username := utils.NormalizeUsername(input.Username)
	email := utils.NormalizeEmail(input.Email)
	if username == "" {
		return nil, apierr.InvalidInput("username is required")
	}
	if !utils.ValidEmail(email) {
		return nil, apierr.InvalidInput("a valid email is required")
	}
	if !utils.ValidPassword(input.Password) {
		return nil, apierr.InvalidInput("password must be at least 8 characters")
	}
	if input.FirstName == "" || input.LastName == "" {
		return nil, apierr.InvalidInput("first and last name are required")
	}

	hashed, err := utils.HashPassword(input.Password)
	if err != nil {
		return nil, err
	}

	user := &types.User{
		Username:  username,
		Email:     email,
		Password:  hashed,
		FirstName: input.FirstName,
		LastName:  input.LastName,
	}

	if err := as.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		usernameTaken, err := as.userRepo.UsernameExists(ctx, tx, username)
		if err != nil {
			return fmt.Errorf("checking username: %w", err)
		}
		if usernameTaken {
			return apierr.Conflict("username %q is already taken", username)
		}
		emailTaken, err := as.userRepo.EmailExists(ctx, tx, email)
		if err != nil {
			return fmt.Errorf("checking email: %w", err)
		}
		if emailTaken {
			return apierr.Conflict("email is already registered")
		}
		_, err = as.userRepo.Create(ctx, tx, []*types.User{user})
		return err
	}); err != nil {
		return nil, err
	}

	as.log.Info("User registered", "user_id", user.ID)
	return user, nil
}

func (as *authService) Login(ctx context.Context, identifier, password string) (*TokenPair, error) {
	if identifier == "" || password == "" {
		return nil, apierr.InvalidInput("identifier and password are required")
	}

	user, err := as.lookupByIdentifier(ctx, nil, identifier)
	if err != nil {
		return nil, err
	}
	if user == nil || !utils.CheckPassword(user.Password, password) {
		return nil, apierr.Unauthorized("invalid credentials")
	}

	var pair *TokenPair
	if err := as.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		p, err := as.issueTokens(ctx, tx, user)
		if err != nil {
			return err
		}
		pair = p
		return nil
	}); err != nil {
		return nil, err
	}
	return pair, nil
}

func (as *authService) Refresh(ctx context.Context, refreshToken string) (*TokenPair, error) {
	if refreshToken == "" {
		return nil, apierr.InvalidInput("refresh token is required")
	}

	var pair *TokenPair
	if err := as.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		stored, err := as.userTokenRepo.GetByRefreshToken(ctx, tx, refreshToken)
		if err != nil {
			return fmt.Errorf("looking up refresh token: %w", err)
		}
		if stored == nil || stored.ExpiresAt.Before(time.Now()) {
			return apierr.Unauthorized("invalid or expired refresh token")
		}
		users, err := as.userRepo.GetByIDs(ctx, tx, []uuid.UUID{stored.UserID})
		if err != nil {
			return err
		}
		if len(users) == 0 {
			return apierr.Unauthorized("invalid refresh token")
		}
		// Rotation: the presented token is invalidated with the rest.
		if err := as.userTokenRepo.DeleteByUserIDs(ctx, tx, []uuid.UUID{stored.UserID}); err != nil {
			return err
		}
		p, err := as.issueTokens(ctx, tx, users[0])
		if err != nil {
			return err
		}
		pair = p
		return nil
	}); err != nil {
		return nil, err
	}
	return pair, nil
}

func (as *authService) Logout(ctx context.Context) error {
	userID := requestdata.UserID(ctx)
	if userID == uuid.Nil {
		return apierr.Unauthorized("no authenticated user")
	}
	return as.userTokenRepo.DeleteByUserIDs(ctx, nil, []uuid.UUID{userID})
}

func (as *authService) ContextFromToken(ctx context.Context, tokenString string) (context.Context, error) {
	claims := jwt.RegisteredClaims{}
	token, err := jwt.ParseWithClaims(tokenString, &claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return as.jwtSecretKey, nil
	})
	if err != nil || !token.Valid {
		return nil, apierr.Unauthorized("invalid token")
	}
	userID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return nil, apierr.Unauthorized("invalid token subject")
	}
	return requestdata.WithRequestData(ctx, &requestdata.RequestData{
		TokenString: tokenString,
		UserID:      userID,
	}), nil
}

func (as *authService) lookupByIdentifier(ctx context.Context, tx *gorm.DB, identifier string) (*types.User, error) {
	byUsername, err := as.userRepo.GetByUsernames(ctx, tx, []string{utils.NormalizeUsername(identifier)})
	if err != nil {
		return nil, err
	}
	if len(byUsername) > 0 {
		return byUsername[0], nil
	}
	byEmail, err := as.userRepo.GetByEmails(ctx, tx, []string{utils.NormalizeEmail(identifier)})
	if err != nil {
		return nil, err
	}
	if len(byEmail) > 0 {
		return byEmail[0], nil
	}
	return nil, nil
}

func (as *authService) issueTokens(ctx context.Context, tx *gorm.DB, user *types.User) (*TokenPair, error) {
	now := time.Now()
	claims := jwt.RegisteredClaims{
		Subject:   user.ID.String(),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(as.accessTTL)),
	}
	access, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(as.jwtSecretKey)
	if err != nil {
		return nil, fmt.Errorf("signing access token: %w", err)
	}

	refresh := uuid.NewString() + uuid.NewString()
	if _, err := as.userTokenRepo.Create(ctx, tx, []*types.UserToken{{
		UserID:       user.ID,
		RefreshToken: refresh,
		ExpiresAt:    now.Add(as.refreshTTL),
	}}); err != nil {
		return nil, fmt.Errorf("persisting refresh token: %w", err)
	}

	return &TokenPair{
		AccessToken:  access,
		RefreshToken: refresh,
		ExpiresIn:    int64(as.accessTTL.Seconds()),
	}, nil
}
