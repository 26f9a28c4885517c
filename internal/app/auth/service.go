package auth

import (
	"context"
	"errors"
	"fmt"

	"docvault/internal/contracts"
	"docvault/internal/domain"
	"docvault/internal/infrastructure/tokens"
	"docvault/internal/repository/user_repo"
	"docvault/internal/util"
	"docvault/internal/validation"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// EventEmitter publishes fire-and-forget notifications to the email service.
type EventEmitter interface {
	Emit(ctx context.Context, pattern string, payload any)
}

type AuthService interface {
	Register(ctx context.Context, req *contracts.RegisterRequest) (*contracts.User, error)
	Login(ctx context.Context, req *contracts.LoginRequest) (*contracts.LoginResponse, error)
	VerifyEmail(ctx context.Context, token string) error
	RequestPasswordReset(ctx context.Context, req *contracts.PasswordResetRequest) error
	ResetPassword(ctx context.Context, req *contracts.ResetPasswordRequest) error
	GetUserProfile(ctx context.Context, userID string) (*contracts.User, error)
}

type authService struct {
	users      user_repo.UserRepository
	tokens     *tokens.Manager
	emails     EventEmitter
	validator  *validation.Validator
	bcryptCost int
	logger     *zap.Logger
}

type Option func(*authService)

// WithBcryptCost overrides the password hashing cost.
func WithBcryptCost(cost int) Option {
	return func(s *authService) { s.bcryptCost = cost }
}

func NewAuthService(
	users user_repo.UserRepository,
	tokenManager *tokens.Manager,
	emails EventEmitter,
	logger *zap.Logger,
	opts ...Option,
) AuthService {
	s := &authService{
		users:      users,
		tokens:     tokenManager,
		emails:     emails,
		validator:  validation.New(),
		bcryptCost: bcrypt.DefaultCost,
		logger:     logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *authService) Register(ctx context.Context, req *contracts.RegisterRequest) (*contracts.User, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, err
	}
	email := domain.NormalizeEmail(req.Email)

	if _, err := s.users.FindByEmail(ctx, email); err == nil {
		s.logger.Debug("Registration rejected, email taken", zap.String("email", email))
		return nil, domain.ErrUserAlreadyExists
	} else if !errors.Is(err, domain.ErrUserNotFound) {
		return nil, fmt.Errorf("failed to look up user: %w", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), s.bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}
	user, err := domain.NewUser(util.GenerateUUID(), email, string(hash))
	if err != nil {
		return nil, err
	}
	// The unique index still decides when two registrations race.
	if err := s.users.Create(ctx, user); err != nil {
		return nil, err
	}
	s.logger.Info("User registered", zap.String("user_id", user.ID))

	token, err := s.tokens.Issue(tokens.PurposeVerifyEmail, user.ID, user.Email)
	if err != nil {
		s.logger.Error("Failed to issue verification token", zap.String("user_id", user.ID), zap.Error(err))
	} else {
		s.emails.Emit(ctx, contracts.EventUserRegistered, contracts.UserRegisteredEvent{
			UserID: user.ID,
			Email:  user.Email,
			Token:  token,
		})
	}
	return mapUserToContract(user), nil
}

func (s *authService) Login(ctx context.Context, req *contracts.LoginRequest) (*contracts.LoginResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, err
	}
	user, err := s.users.FindByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return nil, domain.ErrInvalidCredentials
		}
		return nil, fmt.Errorf("failed to look up user: %w", err)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		s.logger.Debug("Login rejected, wrong password", zap.String("user_id", user.ID))
		return nil, domain.ErrInvalidCredentials
	}

	token, err := s.tokens.Issue(tokens.PurposeAccess, user.ID, user.Email)
	if err != nil {
		return nil, err
	}
	return &contracts.LoginResponse{User: *mapUserToContract(user), AccessToken: token}, nil
}

func (s *authService) VerifyEmail(ctx context.Context, token string) error {
	claims, err := s.tokens.Parse(token, tokens.PurposeVerifyEmail)
	if err != nil {
		return err
	}
	user, err := s.findTokenSubject(ctx, claims)
	if err != nil {
		return err
	}
	if user.IsEmailVerified {
		return nil
	}
	user.MarkEmailVerified()
	if err := s.users.Save(ctx, user); err != nil {
		return fmt.Errorf("failed to save user: %w", err)
	}
	s.logger.Info("Email verified", zap.String("user_id", user.ID))
	return nil
}

// RequestPasswordReset succeeds whether or not the email is registered.
func (s *authService) RequestPasswordReset(ctx context.Context, req *contracts.PasswordResetRequest) error {
	if err := s.validator.Struct(req); err != nil {
		return err
	}
	user, err := s.users.FindByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			s.logger.Debug("Password reset requested for unknown email")
			return nil
		}
		return fmt.Errorf("failed to look up user: %w", err)
	}

	token, err := s.tokens.Issue(tokens.PurposeResetPassword, user.ID, user.Email)
	if err != nil {
		return err
	}
	s.emails.Emit(ctx, contracts.EventPasswordResetRequested, contracts.PasswordResetRequestedEvent{
		UserID: user.ID,
		Email:  user.Email,
		Token:  token,
	})
	s.logger.Info("Password reset requested", zap.String("user_id", user.ID))
	return nil
}

func (s *authService) ResetPassword(ctx context.Context, req *contracts.ResetPasswordRequest) error {
	if err := s.validator.Struct(req); err != nil {
		return err
	}
	claims, err := s.tokens.Parse(req.Token, tokens.PurposeResetPassword)
	if err != nil {
		return err
	}
	user, err := s.findTokenSubject(ctx, claims)
	if err != nil {
		return err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.NewPassword), s.bcryptCost)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}
	user.ChangePassword(string(hash))
	if err := s.users.Save(ctx, user); err != nil {
		return fmt.Errorf("failed to save user: %w", err)
	}
	s.logger.Info("Password reset", zap.String("user_id", user.ID))
	return nil
}

func (s *authService) GetUserProfile(ctx context.Context, userID string) (*contracts.User, error) {
	if userID == "" {
		return nil, fmt.Errorf("%w: userId is required", domain.ErrValidation)
	}
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	return mapUserToContract(user), nil
}

// findTokenSubject loads the user a token was issued for. A token whose user
// no longer exists is treated as invalid.
func (s *authService) findTokenSubject(ctx context.Context, claims *tokens.Claims) (*domain.User, error) {
	user, err := s.users.FindByID(ctx, claims.UserID())
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return nil, fmt.Errorf("%w: user no longer exists", domain.ErrInvalidToken)
		}
		return nil, fmt.Errorf("failed to look up user: %w", err)
	}
	return user, nil
}

func mapUserToContract(u *domain.User) *contracts.User {
	return &contracts.User{
		ID:              u.ID,
		Email:           u.Email,
		IsEmailVerified: u.IsEmailVerified,
		CreatedAt:       u.CreatedAt,
		UpdatedAt:       u.UpdatedAt,
	}
}
