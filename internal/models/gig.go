package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type GigStatus string

const (
	GigOpen       GigStatus = "open"
	GigInProgress GigStatus = "in_progress"
	GigSubmitted  GigStatus = "submitted"
	GigCompleted  GigStatus = "completed"
	GigCancelled  GigStatus = "cancelled"
)

type Gig struct {
	ID              uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	ClientID        uuid.UUID       `gorm:"type:uuid;not null;index" json:"client_id"`
	FreelancerID    *uuid.UUID      `gorm:"type:uuid;index" json:"freelancer_id"`
	Title           string          `gorm:"not null" json:"title"`
	Description     string          `gorm:"type:text;not null" json:"description"`
	Budget          decimal.Decimal `gorm:"type:decimal(14,2);not null" json:"budget"`
	Status          GigStatus       `gorm:"type:varchar(20);not null;default:'open'" json:"status"`
	HasMilestones   bool            `gorm:"default:false" json:"has_milestones"`
	MilestoneCount  int             `gorm:"default:0" json:"milestone_count"`
	TotalPaidAmount decimal.Decimal `gorm:"type:decimal(14,2);not null;default:0" json:"total_paid_amount"`
	EscrowAddress   *string         `gorm:"type:varchar(64)" json:"escrow_address"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
	DeletedAt       gorm.DeletedAt  `gorm:"index" json:"-"`

	// Relations
	Client       Profile       `gorm:"foreignKey:ClientID" json:"client,omitempty"`
	Freelancer   *Profile      `gorm:"foreignKey:FreelancerID" json:"freelancer,omitempty"`
	Milestones   []Milestone   `gorm:"foreignKey:GigID;constraint:OnDelete:CASCADE" json:"milestones,omitempty"`
	Transactions []Transaction `gorm:"foreignKey:GigID;constraint:OnDelete:CASCADE" json:"transactions,omitempty"`
}

func (Gig) TableName() string {
	return "gigs"
}

func (g *Gig) BeforeCreate(tx *gorm.DB) error {
	if g.ID == uuid.Nil {
		g.ID = uuid.New()
	}
	return nil
}
