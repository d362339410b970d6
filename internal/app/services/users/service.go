// Package users handles accounts, session tokens and password resets.
package users

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/quest4deals/quest4deals/internal/app/domain/user"
	"github.com/quest4deals/quest4deals/internal/app/storage"
	"github.com/quest4deals/quest4deals/internal/email"
	"github.com/quest4deals/quest4deals/pkg/logger"
)

// ErrInvalidCredentials is returned when login or token validation fails.
var ErrInvalidCredentials = errors.New("invalid credentials")

// ErrInvalidResetToken is returned for unknown, used or expired reset
// tokens.
var ErrInvalidResetToken = errors.New("invalid or expired reset token")

const minPasswordLength = 8

// Claims is the JWT payload for a session token.
type Claims struct {
	UserID string `json:"user_id"`
	Email  string `json:"email"`
	jwt.RegisteredClaims
}

// Service manages user accounts.
type Service struct {
	store         storage.UserStore
	sender        email.Sender
	jwtSecret     []byte
	tokenTTL      time.Duration
	resetTokenTTL time.Duration
	log           *logger.Logger
	now           func() time.Time
}

// Config configures the users service.
type Config struct {
	JWTSecret     string
	TokenTTL      time.Duration
	ResetTokenTTL time.Duration
}

// New constructs a users service. A nil sender skips reset mail delivery.
func New(store storage.UserStore, sender email.Sender, cfg Config, log *logger.Logger) (*Service, error) {
	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("jwt secret is required")
	}
	if cfg.TokenTTL <= 0 {
		cfg.TokenTTL = 24 * time.Hour
	}
	if cfg.ResetTokenTTL <= 0 {
		cfg.ResetTokenTTL = time.Hour
	}
	if log == nil {
		log = logger.NewDefault("users")
	}
	return &Service{
		store:         store,
		sender:        sender,
		jwtSecret:     []byte(cfg.JWTSecret),
		tokenTTL:      cfg.TokenTTL,
		resetTokenTTL: cfg.ResetTokenTTL,
		log:           log,
		now:           time.Now,
	}, nil
}

// Register creates an account. Registering an email twice yields
// ErrDuplicate.
func (s *Service) Register(ctx context.Context, emailAddr, displayName, password string) (user.User, error) {
	emailAddr = strings.TrimSpace(strings.ToLower(emailAddr))
	if _, err := mail.ParseAddress(emailAddr); err != nil {
		return user.User{}, fmt.Errorf("invalid email address")
	}
	if len(password) < minPasswordLength {
		return user.User{}, fmt.Errorf("password must be at least %d characters", minPasswordLength)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return user.User{}, fmt.Errorf("hash password: %w", err)
	}

	created, err := s.store.CreateUser(ctx, user.User{
		Email:        emailAddr,
		DisplayName:  strings.TrimSpace(displayName),
		PasswordHash: string(hash),
	})
	if err != nil {
		return user.User{}, err
	}
	s.log.WithField("user_id", created.ID).Info("user registered")
	return created, nil
}

// Login verifies credentials and returns a signed session token.
func (s *Service) Login(ctx context.Context, emailAddr, password string) (string, user.User, error) {
	emailAddr = strings.TrimSpace(strings.ToLower(emailAddr))
	u, err := s.store.GetUserByEmail(ctx, emailAddr)
	if err != nil {
		if storage.IsNotFound(err) {
			return "", user.User{}, ErrInvalidCredentials
		}
		return "", user.User{}, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		return "", user.User{}, ErrInvalidCredentials
	}

	token, err := s.issueToken(u)
	if err != nil {
		return "", user.User{}, err
	}
	return token, u, nil
}

func (s *Service) issueToken(u user.User) (string, error) {
	now := s.now().UTC()
	claims := Claims{
		UserID: u.ID,
		Email:  u.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   u.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.tokenTTL)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.jwtSecret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// ParseToken validates a session token and returns its claims.
func (s *Service) ParseToken(tokenString string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return s.jwtSecret, nil
	})
	if err != nil || !token.Valid {
		return nil, ErrInvalidCredentials
	}
	return claims, nil
}

// Get returns one account.
func (s *Service) Get(ctx context.Context, id string) (user.User, error) {
	return s.store.GetUser(ctx, id)
}

// UpdateProfile changes the display name and/or email of an account.
func (s *Service) UpdateProfile(ctx context.Context, id string, displayName, emailAddr *string) (user.User, error) {
	u, err := s.store.GetUser(ctx, id)
	if err != nil {
		return user.User{}, err
	}

	if displayName != nil {
		u.DisplayName = strings.TrimSpace(*displayName)
	}
	if emailAddr != nil {
		addr := strings.TrimSpace(strings.ToLower(*emailAddr))
		if _, err := mail.ParseAddress(addr); err != nil {
			return user.User{}, fmt.Errorf("invalid email address")
		}
		u.Email = addr
	}

	return s.store.UpdateUser(ctx, u)
}

// Delete removes an account and, by cascade, its watchlist entries.
func (s *Service) Delete(ctx context.Context, id string) error {
	if err := s.store.DeleteUser(ctx, id); err != nil {
		return err
	}
	s.log.WithField("user_id", id).Info("user deleted")
	return nil
}

// RequestPasswordReset issues a single-use reset token for the account
// behind the email and mails it when a sender is configured. Unknown emails
// succeed without a token so callers cannot probe for accounts.
func (s *Service) RequestPasswordReset(ctx context.Context, emailAddr string) (string, error) {
	emailAddr = strings.TrimSpace(strings.ToLower(emailAddr))
	u, err := s.store.GetUserByEmail(ctx, emailAddr)
	if err != nil {
		if storage.IsNotFound(err) {
			return "", nil
		}
		return "", err
	}

	token, err := randomToken()
	if err != nil {
		return "", err
	}
	now := s.now().UTC()
	if err := s.store.CreateResetToken(ctx, user.ResetToken{
		Token:     token,
		UserID:    u.ID,
		ExpiresAt: now.Add(s.resetTokenTTL),
		CreatedAt: now,
	}); err != nil {
		return "", err
	}

	if s.sender != nil {
		body := fmt.Sprintf(
			"<p>Use the code below to reset your Quest4Deals password. It expires in %s.</p><p><strong>%s</strong></p>",
			s.resetTokenTTL, token,
		)
		if err := s.sender.Send(u.Email, "Reset your Quest4Deals password", body); err != nil {
			s.log.WithField("user_id", u.ID).WithError(err).Error("failed to send reset mail")
		}
	}

	s.log.WithField("user_id", u.ID).Info("password reset requested")
	return token, nil
}

// ResetPassword consumes a reset token and sets a new password. Tokens are
// single use and expire.
func (s *Service) ResetPassword(ctx context.Context, token, newPassword string) error {
	if len(newPassword) < minPasswordLength {
		return fmt.Errorf("password must be at least %d characters", minPasswordLength)
	}

	t, err := s.store.GetResetToken(ctx, token)
	if err != nil {
		if storage.IsNotFound(err) {
			return ErrInvalidResetToken
		}
		return err
	}
	if t.Used() || t.Expired(s.now().UTC()) {
		return ErrInvalidResetToken
	}

	u, err := s.store.GetUser(ctx, t.UserID)
	if err != nil {
		return err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	u.PasswordHash = string(hash)
	if _, err := s.store.UpdateUser(ctx, u); err != nil {
		return err
	}
	if err := s.store.MarkResetTokenUsed(ctx, token); err != nil {
		return err
	}

	s.log.WithField("user_id", u.ID).Info("password reset")
	return nil
}

func randomToken() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate token: %w", err)
	}
	return hex.EncodeToString(buf), nil
}
