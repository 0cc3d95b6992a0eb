package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type UserType string

const (
	UserTypeClient     UserType = "client"
	UserTypeFreelancer UserType = "freelancer"
)

type Profile struct {
	ID            uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	Email         string         `gorm:"uniqueIndex;not null" json:"email"`
	Password      string         `gorm:"not null" json:"-"`
	FullName      string         `gorm:"not null" json:"full_name"`
	UserType      UserType       `gorm:"type:varchar(20);not null" json:"user_type"`
	WalletAddress *string        `gorm:"type:varchar(64)" json:"wallet_address"`
	CreatedAt     time.Time      `json:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at"`
	DeletedAt     gorm.DeletedAt `gorm:"index" json:"-"`
}

func (Profile) TableName() string {
	return "profiles"
}

// BeforeCreate hook to assign an id
func (p *Profile) BeforeCreate(tx *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}

// HasWallet reports whether the profile can receive a release
func (p *Profile) HasWallet() bool {
	return p.WalletAddress != nil && *p.WalletAddress != ""
}

func (p *Profile) IsClient() bool {
	return p.UserType == UserTypeClient
}

func (p *Profile) IsFreelancer() bool {
	return p.UserType == UserTypeFreelancer
}
