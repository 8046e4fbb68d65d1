package auth

import (
	"time"

	"github.com/google/uuid"

	"github.com/fdg312/incident-hub/internal/storage"
)

// SignInRequest описывает вход по email и паролю
type SignInRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// SignUpRequest описывает регистрацию
type SignUpRequest struct {
	FirstName       string `json:"first_name"`
	LastName        string `json:"last_name"`
	Email           string `json:"email"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirm_password"`
	AcceptTerms     bool   `json:"accept_terms"`
}

// ForgotPasswordRequest описывает запрос на сброс пароля
type ForgotPasswordRequest struct {
	Email string `json:"email"`
}

// UserDTO это публичное представление учётной записи
type UserDTO struct {
	ID        uuid.UUID `json:"id"`
	Email     string    `json:"email"`
	FirstName string    `json:"first_name"`
	LastName  string    `json:"last_name"`
	CreatedAt time.Time `json:"created_at"`
}

// AuthResponse возвращается после входа или регистрации
type AuthResponse struct {
	AccessToken string  `json:"access_token"`
	TokenType   string  `json:"token_type"`
	ExpiresIn   int64   `json:"expires_in"`
	User        UserDTO `json:"user"`
	Message     string  `json:"message"`
}

// MessageResponse содержит одно сообщение
type MessageResponse struct {
	Message string `json:"message"`
}

// ErrorResponse задаёт формат ошибки
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

type ErrorDetail struct {
	Code    string      `json:"code"`
	Message string      `json:"message"`
	Fields  FieldErrors `json:"fields,omitempty"`
}

func toUserDTO(a *storage.Account) UserDTO {
	return UserDTO{
		ID:        a.ID,
		Email:     a.Email,
		FirstName: a.FirstName,
		LastName:  a.LastName,
		CreatedAt: a.CreatedAt,
	}
}
