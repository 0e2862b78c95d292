package models

import (
	"time"

	"gorm.io/gorm"
)

type AnalystRole string

const (
	RoleAdmin   AnalystRole = "ADMIN"
	RoleAnalyst AnalystRole = "ANALYST"
)

// Valid reports whether r is one of the known roles.
func (r AnalystRole) Valid() bool {
	return r == RoleAdmin || r == RoleAnalyst
}

type Analyst struct {
	ID        uint           `json:"id" gorm:"primaryKey"`
	Email     string         `json:"email" gorm:"uniqueIndex;not null"`
	Password  string         `json:"-" gorm:"not null"`
	Role      AnalystRole    `json:"role" gorm:"not null;default:'ANALYST'"`
	CreatedAt time.Time      `json:"createdAt"`
	UpdatedAt time.Time      `json:"updatedAt"`
	DeletedAt gorm.DeletedAt `json:"-" gorm:"index"`
}

func (Analyst) TableName() string {
	return "analysts"
}
