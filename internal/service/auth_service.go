package service

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/cinevault/cinevault-api/internal/models"
	appErrors "github.com/cinevault/cinevault-api/pkg/errors"
)

type authUserRepository interface {
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	FindByID(ctx context.Context, id string) (*models.User, error)
	FindByMobile(ctx context.Context, mobile string) (*models.User, error)
	FindByResetToken(ctx context.Context, token string) (*models.User, error)
	CreateWithSubscription(ctx context.Context, user *models.User, sub *models.Subscription) error
	Update(ctx context.Context, user *models.User) error
	ClearDeviceToken(ctx context.Context, id string) error
}

type authAdminRepository interface {
	FindByEmail(ctx context.Context, email string) (*models.AdminUser, error)
	FindByID(ctx context.Context, id string) (*models.AdminUser, error)
}

type tokenBlacklist interface {
	Add(ctx context.Context, entry *models.BlacklistedToken) error
	Contains(ctx context.Context, token string) (bool, error)
}

// AuthConfig defines configuration for authentication flows.
type AuthConfig struct {
	Secret           string
	TokenExpiry      time.Duration
	ResetTokenExpiry time.Duration
	Issuer           string
}

// AuthService provides authentication use cases for users and admins.
type AuthService struct {
	users     authUserRepository
	admins    authAdminRepository
	blacklist tokenBlacklist
	validator *validator.Validate
	logger    *zap.Logger
	config    AuthConfig
}

// NewAuthService constructs an AuthService instance.
func NewAuthService(users authUserRepository, admins authAdminRepository, blacklist tokenBlacklist, validate *validator.Validate, logger *zap.Logger, config AuthConfig) *AuthService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	if config.TokenExpiry <= 0 {
		config.TokenExpiry = 24 * time.Hour
	}
	if config.ResetTokenExpiry <= 0 {
		config.ResetTokenExpiry = 2 * time.Hour
	}
	return &AuthService{users: users, admins: admins, blacklist: blacklist, validator: validate, logger: logger, config: config}
}

// Register creates a user account with a default basic subscription and signs
// the caller in. Email and mobile number must be unique.
func (s *AuthService) Register(ctx context.Context, req models.RegisterRequest) (*models.AuthResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Validation(validationMessages(err))
	}

	email := strings.ToLower(strings.TrimSpace(req.Email))

	var problems []string
	if existing, err := s.users.FindByEmail(ctx, email); err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check email uniqueness")
	} else if existing != nil {
		problems = append(problems, "email has already been taken")
	}
	if existing, err := s.users.FindByMobile(ctx, req.MobileNumber); err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check mobile uniqueness")
	} else if existing != nil {
		problems = append(problems, "mobile_number has already been taken")
	}
	if len(problems) > 0 {
		return nil, appErrors.Validation(problems)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to hash password")
	}

	now := time.Now().UTC()
	user := &models.User{
		ID:                  uuid.NewString(),
		Email:               email,
		PasswordHash:        string(hash),
		FirstName:           req.FirstName,
		LastName:            req.LastName,
		MobileNumber:        req.MobileNumber,
		Role:                models.RoleUser,
		NotificationEnabled: true,
		CreatedAt:           now,
		UpdatedAt:           now,
	}
	sub := &models.Subscription{
		ID:        uuid.NewString(),
		UserID:    user.ID,
		PlanType:  models.PlanBasic,
		Status:    models.SubscriptionActive,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.users.CreateWithSubscription(ctx, user, sub); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create user")
	}

	token, err := s.issueToken(user.ID, user.Role, models.PrincipalUser)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to issue token")
	}

	s.logger.Info("user registered", zap.String("user_id", user.ID))
	return &models.AuthResponse{Token: token, User: user.Info()}, nil
}

// SignIn authenticates a user by email and password.
func (s *AuthService) SignIn(ctx context.Context, req models.LoginRequest) (*models.AuthResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Validation(validationMessages(err))
	}

	user, err := s.users.FindByEmail(ctx, strings.ToLower(req.Email))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrInvalidCredentials, "")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to fetch user")
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		return nil, appErrors.Clone(appErrors.ErrInvalidCredentials, "")
	}

	token, err := s.issueToken(user.ID, user.Role, models.PrincipalUser)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to issue token")
	}

	return &models.AuthResponse{Token: token, User: user.Info()}, nil
}

// AdminSignIn authenticates a back-office admin account.
func (s *AuthService) AdminSignIn(ctx context.Context, req models.LoginRequest) (*models.AuthResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Validation(validationMessages(err))
	}

	admin, err := s.admins.FindByEmail(ctx, strings.ToLower(req.Email))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrInvalidCredentials, "")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to fetch admin user")
	}

	if err := bcrypt.CompareHashAndPassword([]byte(admin.PasswordHash), []byte(req.Password)); err != nil {
		return nil, appErrors.Clone(appErrors.ErrInvalidCredentials, "")
	}

	token, err := s.issueToken(admin.ID, models.RoleAdmin, models.PrincipalAdmin)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to issue token")
	}

	return &models.AuthResponse{
		Token: token,
		User:  models.UserInfo{ID: admin.ID, Email: admin.Email, Role: models.RoleAdmin},
	}, nil
}

// SignOut blacklists the current token until its natural expiry and clears the
// caller's registered push device so a signed-out session receives nothing.
func (s *AuthService) SignOut(ctx context.Context, tokenString string, claims *models.JWTClaims) error {
	expiresAt := time.Now().UTC().Add(s.config.TokenExpiry)
	if claims.ExpiresAt != nil {
		expiresAt = claims.ExpiresAt.Time
	}

	entry := &models.BlacklistedToken{
		ID:        uuid.NewString(),
		UserID:    claims.UserID,
		Token:     tokenString,
		ExpiresAt: expiresAt,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.blacklist.Add(ctx, entry); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to blacklist token")
	}

	if claims.Kind == models.PrincipalUser {
		if err := s.users.ClearDeviceToken(ctx, claims.UserID); err != nil {
			s.logger.Warn("failed to clear device token on sign out", zap.String("user_id", claims.UserID), zap.Error(err))
		}
	}

	return nil
}

// ValidateToken parses and validates an access token, rejecting blacklisted
// tokens and tokens whose principal no longer exists.
func (s *AuthService) ValidateToken(ctx context.Context, tokenString string) (*models.JWTClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &models.JWTClaims{}, func(token *jwt.Token) (interface{}, error) {
		if token.Method != jwt.SigningMethodHS256 {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(s.config.Secret), nil
	})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrUnauthorized.Code, appErrors.ErrUnauthorized.Status, "invalid token")
	}

	claims, ok := token.Claims.(*models.JWTClaims)
	if !ok || !token.Valid {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "invalid token claims")
	}

	blacklisted, err := s.blacklist.Contains(ctx, tokenString)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check token blacklist")
	}
	if blacklisted {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "token has been revoked")
	}

	switch claims.Kind {
	case models.PrincipalAdmin:
		if _, err := s.admins.FindByID(ctx, claims.UserID); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, appErrors.Clone(appErrors.ErrUnauthorized, "account no longer exists")
			}
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load admin user")
		}
	default:
		if _, err := s.users.FindByID(ctx, claims.UserID); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, appErrors.Clone(appErrors.ErrUnauthorized, "account no longer exists")
			}
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load user")
		}
	}

	return claims, nil
}

// ForgotPassword issues a reset token for the account. The response does not
// reveal whether the email exists.
func (s *AuthService) ForgotPassword(ctx context.Context, req models.ForgotPasswordRequest) error {
	if err := s.validator.Struct(req); err != nil {
		return appErrors.Validation(validationMessages(err))
	}

	user, err := s.users.FindByEmail(ctx, strings.ToLower(req.Email))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			s.logger.Info("password reset requested for unknown email")
			return nil
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to fetch user")
	}

	token, err := generateResetToken()
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to generate reset token")
	}

	now := time.Now().UTC()
	user.ResetPasswordToken = &token
	user.ResetPasswordSentAt = &now
	user.UpdatedAt = now
	if err := s.users.Update(ctx, user); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store reset token")
	}

	s.logger.Info("password reset token issued", zap.String("user_id", user.ID))
	return nil
}

// ResetPassword consumes a reset token and sets a new password.
func (s *AuthService) ResetPassword(ctx context.Context, req models.ResetPasswordRequest) error {
	if err := s.validator.Struct(req); err != nil {
		return appErrors.Validation(validationMessages(err))
	}

	user, err := s.users.FindByResetToken(ctx, req.Token)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrUnauthorized, "reset token is invalid or expired")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to fetch user")
	}

	if user.ResetPasswordSentAt == nil || time.Since(*user.ResetPasswordSentAt) > s.config.ResetTokenExpiry {
		return appErrors.Clone(appErrors.ErrUnauthorized, "reset token is invalid or expired")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to hash password")
	}

	user.PasswordHash = string(hash)
	user.ResetPasswordToken = nil
	user.ResetPasswordSentAt = nil
	user.UpdatedAt = time.Now().UTC()
	if err := s.users.Update(ctx, user); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update password")
	}

	s.logger.Info("password reset completed", zap.String("user_id", user.ID))
	return nil
}

func (s *AuthService) issueToken(principalID string, role models.UserRole, kind models.PrincipalKind) (string, error) {
	issuedAt := time.Now().UTC()
	claims := &models.JWTClaims{
		UserID: principalID,
		Role:   role,
		Kind:   kind,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.config.Issuer,
			Subject:   principalID,
			ExpiresAt: jwt.NewNumericDate(issuedAt.Add(s.config.TokenExpiry)),
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			NotBefore: jwt.NewNumericDate(issuedAt),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(s.config.Secret))
}

func generateResetToken() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

// validationMessages flattens validator errors into per-field messages.
func validationMessages(err error) []string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return []string{err.Error()}
	}
	messages := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		switch fe.Tag() {
		case "required":
			messages = append(messages, fmt.Sprintf("%s is required", strings.ToLower(fe.Field())))
		case "email":
			messages = append(messages, fmt.Sprintf("%s is not a valid email address", strings.ToLower(fe.Field())))
		case "min":
			messages = append(messages, fmt.Sprintf("%s must be at least %s characters", strings.ToLower(fe.Field()), fe.Param()))
		case "len":
			messages = append(messages, fmt.Sprintf("%s must be exactly %s characters", strings.ToLower(fe.Field()), fe.Param()))
		default:
			messages = append(messages, fmt.Sprintf("%s is invalid", strings.ToLower(fe.Field())))
		}
	}
	return messages
}
