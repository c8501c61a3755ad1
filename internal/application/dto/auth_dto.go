// Package dto provides data transfer objects for the application layer.
package dto

import (
	"time"
)

// LoginRequest 登录请求 DTO
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email,max=255"`
	Password string `json:"password" binding:"required,min=1,max=128"`
}

// RegisterRequest 注册请求 DTO
type RegisterRequest struct {
	FirstName       string     `json:"first_name" binding:"required,max=100"`
	LastName        string     `json:"last_name" binding:"required,max=100"`
	Email           string     `json:"email" binding:"required,email,max=255,non_disposable_email"`
	PhoneNumber     string     `json:"phone_number" binding:"required,min=4,max=32"`
	Password        string     `json:"password" binding:"required,min=8,max=128"`
	ConfirmPassword string     `json:"confirm_password" binding:"required"`
	DateOfBirth     *time.Time `json:"date_of_birth,omitempty"`
}

// RefreshRequest 令牌刷新请求 DTO
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}

// TokenResponse 令牌响应 DTO
type TokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
	// ExpiresIn is the access token lifetime in seconds.
	ExpiresIn int64 `json:"expires_in"`
}

// PrincipalResponse describes the authenticated caller.
type PrincipalResponse struct {
	Subject     string   `json:"subject"`
	Authorities []string `json:"authorities"`
}

// RegisterResponse 注册响应 DTO
type RegisterResponse struct {
	Email string `json:"email"`
}
