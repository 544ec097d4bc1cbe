package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/taskforge/taskforge-backend/internal/apperr"
	"github.com/taskforge/taskforge-backend/internal/logger"
	"github.com/taskforge/taskforge-backend/internal/repos"
	"github.com/taskforge/taskforge-backend/internal/types"
)

// RegisterInput carries the fields for a new account.
type RegisterInput struct {
	Email     string
	Password  string
	FirstName string
	LastName  string
}

// TokenPair is the access/refresh pair handed out on login and refresh.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

// AuthService issues and validates credentials. Access tokens are short
// lived JWTs; refresh tokens are opaque and stored server side.
type AuthService interface {
	Register(ctx context.Context, in RegisterInput) (*types.User, error)
	Login(ctx context.Context, email, password string) (*TokenPair, error)
	Refresh(ctx context.Context, refreshToken string) (*TokenPair, error)
	Logout(ctx context.Context, userID uuid.UUID) error
	// ParseAccessToken validates the JWT and returns the subject user id.
	ParseAccessToken(tokenString string) (uuid.UUID, error)
}

type authService struct {
	db            *gorm.DB
	log           *logger.Logger
	userRepo      repos.UserRepo
	userTokenRepo repos.UserTokenRepo
	jwtSecretKey  string
	accessTTL     time.Duration
	refreshTTL    time.Duration
	now           func() time.Time
}

func NewAuthService(
	db *gorm.DB,
	baseLog *logger.Logger,
	userRepo repos.UserRepo,
	userTokenRepo repos.UserTokenRepo,
	jwtSecretKey string,
	accessTTL time.Duration,
	refreshTTL time.Duration,
) AuthService {
	return &authService{
		db:            db,
		log:           baseLog.With("service", "AuthService"),
		userRepo:      userRepo,
		userTokenRepo: userTokenRepo,
		jwtSecretKey:  jwtSecretKey,
		accessTTL:     accessTTL,
		refreshTTL:    refreshTTL,
		now:           time.Now,
	}
}

func (as *authService) Register(ctx context.Context, in RegisterInput) (*types.User, error) {
	email := strings.ToLower(strings.TrimSpace(in.Email))
	if email == "" || !strings.Contains(email, "@") {
		return nil, apperr.Unauthorized("a valid email is required")
	}
	if len(in.Password) < 8 {
		return nil, apperr.Unauthorized("password must be at least 8 characters")
	}

	exists, err := as.userRepo.EmailExists(ctx, nil, email)
	if err != nil {
		return nil, fmt.Errorf("check email: %w", err)
	}
	if exists {
		return nil, apperr.Conflict(fmt.Sprintf("email %s is already registered", email))
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	now := as.now().UTC()
	user := &types.User{
		ID:        uuid.New(),
		Email:     email,
		Password:  string(hash),
		FirstName: strings.TrimSpace(in.FirstName),
		LastName:  strings.TrimSpace(in.LastName),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if _, err := as.userRepo.Create(ctx, nil, []*types.User{user}); err != nil {
		return nil, apperr.FromStore(err)
	}
	as.log.Info("user registered", "user_id", user.ID)
	return user, nil
}

func (as *authService) Login(ctx context.Context, email, password string) (*TokenPair, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	user, err := as.userRepo.GetByEmail(ctx, nil, email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.Unauthorized("invalid email or password")
		}
		return nil, fmt.Errorf("load user: %w", err)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
		return nil, apperr.Unauthorized("invalid email or password")
	}

	var pair *TokenPair
	err = as.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var txErr error
		pair, txErr = as.issueTokens(ctx, tx, user)
		return txErr
	})
	if err != nil {
		return nil, err
	}
	return pair, nil
}

func (as *authService) Refresh(ctx context.Context, refreshToken string) (*TokenPair, error) {
	var pair *TokenPair
	err := as.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		token, err := as.userTokenRepo.GetByRefreshToken(ctx, tx, refreshToken)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperr.Unauthorized("unknown refresh token")
			}
			return fmt.Errorf("load refresh token: %w", err)
		}
		if token.ExpiresAt.Before(as.now()) {
			if err := as.userTokenRepo.DeleteByUserID(ctx, tx, token.UserID); err != nil {
				return fmt.Errorf("delete expired token: %w", err)
			}
			return apperr.Unauthorized("refresh token expired")
		}
		users, err := as.userRepo.GetByIDs(ctx, tx, []uuid.UUID{token.UserID})
		if err != nil {
			return fmt.Errorf("load user: %w", err)
		}
		if len(users) == 0 {
			return apperr.Unauthorized("user no longer exists")
		}
		// Rotate: the old refresh token is gone after a successful refresh.
		if err := as.userTokenRepo.DeleteByUserID(ctx, tx, token.UserID); err != nil {
			return fmt.Errorf("rotate refresh token: %w", err)
		}
		var txErr error
		pair, txErr = as.issueTokens(ctx, tx, users[0])
		return txErr
	})
	if err != nil {
		return nil, err
	}
	return pair, nil
}

func (as *authService) Logout(ctx context.Context, userID uuid.UUID) error {
	return as.userTokenRepo.DeleteByUserID(ctx, nil, userID)
}

func (as *authService) ParseAccessToken(tokenString string) (uuid.UUID, error) {
	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return []byte(as.jwtSecretKey), nil
	})
	if err != nil || !token.Valid {
		return uuid.Nil, apperr.Unauthorized("invalid access token")
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return uuid.Nil, apperr.Unauthorized("invalid token claims")
	}
	sub, err := claims.GetSubject()
	if err != nil {
		return uuid.Nil, apperr.Unauthorized("token has no subject")
	}
	userID, err := uuid.Parse(sub)
	if err != nil {
		return uuid.Nil, apperr.Unauthorized("token subject is not a user id")
	}
	return userID, nil
}

func (as *authService) issueTokens(ctx context.Context, tx *gorm.DB, user *types.User) (*TokenPair, error) {
	now := as.now().UTC()
	claims := jwt.MapClaims{
		"sub": user.ID.String(),
		"iat": now.Unix(),
		"exp": now.Add(as.accessTTL).Unix(),
	}
	accessToken, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(as.jwtSecretKey))
	if err != nil {
		return nil, fmt.Errorf("sign access token: %w", err)
	}

	refreshToken := uuid.New().String()
	record := &types.UserToken{
		ID:           uuid.New(),
		UserID:       user.ID,
		RefreshToken: refreshToken,
		ExpiresAt:    now.Add(as.refreshTTL),
		CreatedAt:    now,
	}
	if _, err := as.userTokenRepo.Create(ctx, tx, []*types.UserToken{record}); err != nil {
		return nil, fmt.Errorf("store refresh token: %w", err)
	}
	return &TokenPair{AccessToken: accessToken, RefreshToken: refreshToken}, nil
}
