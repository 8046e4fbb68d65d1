package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/fdg312/incident-hub/internal/config"
	"github.com/fdg312/incident-hub/internal/mailer"
	"github.com/fdg312/incident-hub/internal/storage"
)

var (
	ErrInvalidToken     = errors.New("invalid token")
	ErrTokenExpired     = errors.New("token expired")
	ErrUserNotFound     = errors.New("User not found. Please check your email address.")
	ErrInvalidPassword  = errors.New("Invalid password. Please try again.")
	ErrAccountExists    = errors.New("An account with this email already exists.")
	ErrTermsNotAccepted = errors.New("Please accept the Terms of Service and Privacy Policy to continue.")
	ErrNoAccountForMail = errors.New("No account found with this email address.")
)

// Messages returned on success
const (
	MsgSignInSuccess  = "Sign in successful!"
	MsgSignUpSuccess  = "Account created successfully!"
	MsgResetEmailSent = "Password reset instructions sent to your email."
)

// Demo account seeded outside production
const (
	DemoEmail     = "demo@example.com"
	DemoPassword  = "password123"
	DemoFirstName = "Demo"
	DemoLastName  = "User"
)

// Service управляет учётными записями и токенами
type Service struct {
	config   *config.Config
	accounts storage.AccountsStorage
	mailer   mailer.Sender
	hashCost int
	now      func() time.Time
}

func NewService(cfg *config.Config, accounts storage.AccountsStorage) *Service {
	return &Service{
		config:   cfg,
		accounts: accounts,
		mailer:   mailer.NewLocalSender(nil),
		hashCost: bcrypt.DefaultCost,
		now:      time.Now,
	}
}

// SignIn: вход по email и паролю
func (s *Service) SignIn(ctx context.Context, req *SignInRequest) (*AuthResponse, error) {
	account, err := s.accounts.GetAccountByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to load account: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(account.PasswordHash), []byte(req.Password)); err != nil {
		return nil, ErrInvalidPassword
	}

	return s.issue(account, MsgSignInSuccess)
}

// SignUp: регистрация новой учётной записи
func (s *Service) SignUp(ctx context.Context, req *SignUpRequest) (*AuthResponse, error) {
	if !req.AcceptTerms {
		return nil, ErrTermsNotAccepted
	}

	account, err := s.createAccount(ctx, req.Email, req.Password, req.FirstName, req.LastName)
	if err != nil {
		return nil, err
	}

	return s.issue(account, MsgSignUpSuccess)
}

// WithMailer replaces the default log-only sender.
func (s *Service) WithMailer(sender mailer.Sender) *Service {
	if sender != nil {
		s.mailer = sender
	}
	return s
}

// ForgotPassword mails reset instructions to an existing account.
func (s *Service) ForgotPassword(ctx context.Context, req *ForgotPasswordRequest) (*MessageResponse, error) {
	account, err := s.accounts.GetAccountByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, ErrNoAccountForMail
		}
		return nil, fmt.Errorf("failed to load account: %w", err)
	}

	if err := s.mailer.Send(ctx, mailer.PasswordReset(account.Email, account.FirstName)); err != nil {
		return nil, fmt.Errorf("failed to send reset email: %w", err)
	}

	return &MessageResponse{Message: MsgResetEmailSent}, nil
}

// Me returns the account behind a verified token subject.
func (s *Service) Me(ctx context.Context, userID string) (*UserDTO, error) {
	id, err := uuid.Parse(userID)
	if err != nil {
		return nil, ErrUserNotFound
	}

	account, err := s.accounts.GetAccountByID(ctx, id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to load account: %w", err)
	}

	dto := toUserDTO(account)
	return &dto, nil
}

// SeedDemoAccount создаёт демо-аккаунт, если его ещё нет
func (s *Service) SeedDemoAccount(ctx context.Context) error {
	_, err := s.createAccount(ctx, DemoEmail, DemoPassword, DemoFirstName, DemoLastName)
	if err != nil && !errors.Is(err, ErrAccountExists) {
		return err
	}
	return nil
}

func (s *Service) createAccount(ctx context.Context, email, password, firstName, lastName string) (*storage.Account, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.hashCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	account := &storage.Account{
		ID:           uuid.New(),
		Email:        strings.ToLower(strings.TrimSpace(email)),
		FirstName:    strings.TrimSpace(firstName),
		LastName:     strings.TrimSpace(lastName),
		PasswordHash: string(hash),
		CreatedAt:    s.now().UTC(),
	}

	if err := s.accounts.CreateAccount(ctx, account); err != nil {
		if errors.Is(err, storage.ErrAlreadyExists) {
			return nil, ErrAccountExists
		}
		return nil, fmt.Errorf("failed to create account: %w", err)
	}

	return account, nil
}

func (s *Service) issue(account *storage.Account, message string) (*AuthResponse, error) {
	ttl := s.tokenTTL()
	accessToken, err := s.generateJWTWithTTL(account.ID.String(), ttl)
	if err != nil {
		return nil, fmt.Errorf("failed to generate JWT: %w", err)
	}

	return &AuthResponse{
		AccessToken: accessToken,
		TokenType:   "Bearer",
		ExpiresIn:   int64(ttl.Seconds()),
		User:        toUserDTO(account),
		Message:     message,
	}, nil
}

func (s *Service) tokenTTL() time.Duration {
	return time.Duration(s.config.JWTTTLMinutes) * time.Minute
}

// generateJWT: генерация JWT токена
func (s *Service) generateJWT(userID string) (string, error) {
	return s.generateJWTWithTTL(userID, s.tokenTTL())
}

func (s *Service) generateJWTWithTTL(userID string, ttl time.Duration) (string, error) {
	now := s.now()
	exp := now.Add(ttl)

	claims := jwt.MapClaims{
		"sub": userID,
		"iss": s.config.JWTIssuer,
		"exp": exp.Unix(),
		"iat": now.Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(s.config.JWTSecret))
}

// VerifyJWT: проверка JWT токена, возвращает sub
func (s *Service) VerifyJWT(tokenString string) (string, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		return []byte(s.config.JWTSecret), nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(s.config.JWTIssuer),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return "", ErrTokenExpired
		}
		return "", ErrInvalidToken
	}

	if claims, ok := token.Claims.(jwt.MapClaims); ok && token.Valid {
		sub, ok := claims["sub"].(string)
		if !ok || sub == "" {
			return "", ErrInvalidToken
		}
		return sub, nil
	}

	return "", ErrInvalidToken
}
