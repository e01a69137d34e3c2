package dto

import (
	"time"

	"github.com/spec-kit/rapid-ticketing/internal/domain"
)

// LoginRequest payload.
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// AuthResponse carries the issued token.
type AuthResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

// UserSummary is the authenticated identity triple plus display attributes.
type UserSummary struct {
	ID          string      `json:"id"`
	EmpID       string      `json:"emp_id"`
	Username    string      `json:"username"`
	DisplayName string      `json:"display_name"`
	Email       string      `json:"email,omitempty"`
	Role        domain.Role `json:"role"`
	Department  string      `json:"department,omitempty"`
}

// UserResponse maps a domain user for API responses.
func UserResponse(user *domain.User) UserSummary {
	return UserSummary{
		ID:          user.ID,
		EmpID:       user.EmpID,
		Username:    user.Username,
		DisplayName: user.FullName,
		Email:       user.Email,
		Role:        user.Role,
		Department:  user.Department,
	}
}
