package models

import (
	"database/sql"
	"time"
)

type Role struct {
	ID          uint
	Name        string
	Slug        string
	Description sql.NullString
	IsSystem    bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

type Permission struct {
	ID   uint
	Name string
	Slug string
}

type Tenant struct {
	ID        string
	Name      string
	Domain    string
	IsActive  bool
	MaxUsers  sql.NullInt32
	CreatedAt time.Time
	UpdatedAt time.Time
}

type User struct {
	ID        uint
	FirstName string
	LastName  string
	Email     string
	IsAdmin   bool
}

type RoleAssignment struct {
	ID        uint
	UserID    uint
	RoleID    uint
	TenantID  sql.NullString
	CreatedAt time.Time
}
