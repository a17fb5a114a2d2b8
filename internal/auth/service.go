package auth

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/taiwoajasa245/streak-api/internal/store"
	"github.com/taiwoajasa245/streak-api/pkg/util"
)

var (
	ErrMissingCredentials = errors.New("username and passcode required")
	ErrInvalidPasscode    = errors.New("passcode must be 4 digits")
	ErrUsernameTaken      = errors.New("username already taken")
	ErrInvalidCredentials = errors.New("invalid credentials")
)

// SeedFunc returns the dailyMotivation a new user's document starts with.
type SeedFunc func() any

type AuthService struct {
	repo     Repository
	secret   string
	tokenTTL time.Duration
	seed     SeedFunc
	now      func() time.Time
	logger   *zap.Logger
}

func NewAuthService(repo Repository, secret string, tokenTTL time.Duration, seed SeedFunc, logger *zap.Logger) *AuthService {
	if seed == nil {
		seed = func() any { return nil }
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuthService{
		repo:     repo,
		secret:   secret,
		tokenTTL: tokenTTL,
		seed:     seed,
		now:      time.Now,
		logger:   logger.Named("auth"),
	}
}

func (s *AuthService) Register(ctx context.Context, username, passcode string) (*User, error) {
	username = strings.TrimSpace(username)
	passcode = strings.TrimSpace(passcode)

	if username == "" || passcode == "" {
		return nil, ErrMissingCredentials
	}
	if !util.IsPasscode(passcode) {
		return nil, ErrInvalidPasscode
	}

	hashed, err := util.HashPasscode(passcode)
	if err != nil {
		return nil, err
	}

	user := User{Username: username, Passcode: hashed, CreatedAt: s.now()}
	err = s.repo.CreateUser(ctx, user, NewDocument(s.seed()))
	if errors.Is(err, store.ErrUserAlreadyExists) {
		return nil, ErrUsernameTaken
	}
	if err != nil {
		s.logger.Error("failed to create user", zap.String("username", username), zap.Error(err))
		return nil, err
	}

	s.logger.Info("user registered", zap.String("username", username))
	return s.Login(ctx, username, passcode)
}

func (s *AuthService) Login(ctx context.Context, username, passcode string) (*User, error) {
	username = strings.TrimSpace(username)
	passcode = strings.TrimSpace(passcode)

	if username == "" || passcode == "" {
		return nil, ErrMissingCredentials
	}

	user, err := s.repo.GetUserByUsername(ctx, username)
	if err != nil {
		if !errors.Is(err, store.ErrUserNotFound) {
			s.logger.Error("failed to load user", zap.String("username", username), zap.Error(err))
			return nil, err
		}
		return nil, ErrInvalidCredentials
	}

	if util.IsPasscodeHash(user.Passcode) {
		if err := util.ComparePasscode(user.Passcode, passcode); err != nil {
			return nil, ErrInvalidCredentials
		}
	} else {
		if err := util.ComparePlainPasscode(user.Passcode, passcode); err != nil {
			return nil, ErrInvalidCredentials
		}
		s.upgradePasscode(ctx, user.Username, passcode)
	}

	token, err := util.GenerateJWT(s.secret, user.Username, s.tokenTTL)
	if err != nil {
		return nil, err
	}
	user.Token = token

	return user, nil
}

// upgradePasscode replaces a plaintext passcode with its hash. Failure only
// means the next login takes the plaintext path again.
func (s *AuthService) upgradePasscode(ctx context.Context, username, passcode string) {
	hashed, err := util.HashPasscode(passcode)
	if err == nil {
		err = s.repo.UpdatePasscode(ctx, username, hashed)
	}
	if err != nil {
		s.logger.Warn("failed to hash legacy passcode", zap.String("username", username), zap.Error(err))
		return
	}
	s.logger.Info("legacy passcode hashed", zap.String("username", username))
}

// Me returns the stored account for username without its passcode.
func (s *AuthService) Me(ctx context.Context, username string) (*User, error) {
	return s.repo.GetUserByUsername(ctx, username)
}

// ValidateToken returns the username a bearer token was issued to.
func (s *AuthService) ValidateToken(token string) (string, error) {
	claims, err := util.ValidateJWT(s.secret, token)
	if err != nil {
		return "", err
	}
	return claims.Username, nil
}
