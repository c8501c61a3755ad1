package dto

import "time"

// ProfileUpdateRequest 个人资料更新请求 DTO. Blank fields are left unchanged.
type ProfileUpdateRequest struct {
	FirstName   string     `json:"first_name" binding:"omitempty,max=100"`
	LastName    string     `json:"last_name" binding:"omitempty,max=100"`
	DateOfBirth *time.Time `json:"date_of_birth,omitempty"`
}

// ChangePasswordRequest 修改密码请求 DTO
type ChangePasswordRequest struct {
	CurrentPassword    string `json:"current_password" binding:"required,max=128"`
	NewPassword        string `json:"new_password" binding:"required,min=8,max=128"`
	ConfirmNewPassword string `json:"confirm_new_password" binding:"required"`
}
