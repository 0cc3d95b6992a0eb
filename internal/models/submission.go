package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type SubmissionStatus string

const (
	SubmissionPending  SubmissionStatus = "pending"
	SubmissionApproved SubmissionStatus = "approved"
	SubmissionRejected SubmissionStatus = "rejected"
)

// Submission is a freelancer's deliverable for a non-milestone gig.
type Submission struct {
	ID             uuid.UUID        `gorm:"type:uuid;primaryKey" json:"id"`
	GigID          uuid.UUID        `gorm:"type:uuid;not null;index" json:"gig_id"`
	FreelancerID   uuid.UUID        `gorm:"type:uuid;not null;index" json:"freelancer_id"`
	DeliverableURL string           `gorm:"type:text;not null" json:"deliverable_url"`
	Notes          string           `gorm:"type:text" json:"notes"`
	Status         SubmissionStatus `gorm:"type:varchar(20);not null;default:'pending'" json:"status"`

	// Attachment storage fields
	AttachmentURL      string `gorm:"type:text" json:"attachment_url,omitempty"`
	AttachmentPublicID string `gorm:"type:text" json:"attachment_public_id,omitempty"`
	AttachmentName     string `gorm:"type:varchar(255)" json:"attachment_name,omitempty"`

	SubmittedAt time.Time  `json:"submitted_at"`
	ReviewedAt  *time.Time `json:"reviewed_at"`
	RejectionReason string `gorm:"type:text" json:"rejection_reason,omitempty"`

	Freelancer Profile `gorm:"foreignKey:FreelancerID" json:"freelancer,omitempty"`
}

func (Submission) TableName() string {
	return "submissions"
}

func (s *Submission) BeforeCreate(tx *gorm.DB) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	if s.SubmittedAt.IsZero() {
		s.SubmittedAt = time.Now()
	}
	return nil
}
