// Package demo is the users module served by cmd/wynk. It exercises the
// framework end to end: DTO validation, typed params, guards and interceptors.
package demo

import (
	"time"

	"github.com/google/uuid"
)

// User represents a user in the system
type User struct {
	ID        uuid.UUID `json:"id"`
	Email     string    `json:"email"`
	FirstName string    `json:"firstName"`
	LastName  string    `json:"lastName"`
	Roles     []string  `json:"roles,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// CreateUserDTO is the body of POST /users
type CreateUserDTO struct {
	Email     string   `json:"email" validate:"required,email"`
	FirstName string   `json:"firstName" validate:"required,min=1,max=64"`
	LastName  string   `json:"lastName" validate:"required,min=1,max=64"`
	Roles     []string `json:"roles" validate:"omitempty,dive,oneof=admin user"`
}

// UpdateUserDTO is the body of PATCH /users/{id}. Empty fields are left unchanged.
type UpdateUserDTO struct {
	Email     string `json:"email" validate:"omitempty,email"`
	FirstName string `json:"firstName" validate:"omitempty,max=64"`
	LastName  string `json:"lastName" validate:"omitempty,max=64"`
}

// ListQuery is the query string of GET /users
type ListQuery struct {
	Search string `json:"search" validate:"omitempty,max=64"`
	Limit  int    `json:"limit" validate:"omitempty,min=1,max=100"`
	Offset int    `json:"offset" validate:"omitempty,min=0"`
}

// Page is a slice of users plus the total before paging
type Page struct {
	Items []*User `json:"items"`
	Total int     `json:"total"`
}
