package model

import "time"

// Student is a participant account.
type Student struct {
	ID           int       `json:"id"`
	Name         string    `json:"name"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// StudentLoginRequest is the payload for student login.
type StudentLoginRequest struct {
	Username string `json:"username" binding:"required,min=3,max=50"`
	Password string `json:"password" binding:"required,min=6,max=100"`
}

// CreateStudentRequest is the payload for creating a student.
type CreateStudentRequest struct {
	Name     string `json:"name" binding:"required,min=2,max=255"`
	Username string `json:"username" binding:"required,min=3,max=50"`
	Password string `json:"password" binding:"required,min=6,max=100"`
}

// UpdateStudentRequest is the payload for updating a student.
type UpdateStudentRequest struct {
	Name     string `json:"name" binding:"omitempty,min=2,max=255"`
	Username string `json:"username" binding:"omitempty,min=3,max=50"`
	Password string `json:"password" binding:"omitempty,min=6,max=100"`
}
