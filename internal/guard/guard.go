// Package guard decides which party may act on a gig. Every mutation handler
// calls Authorize before reading or writing further state.
package guard

import (
	"github.com/google/uuid"

	"GigVault/internal/apperrors"
	"GigVault/internal/models"
)

type Role string

const (
	// RoleClient covers: assign a freelancer, approve a submission or
	// milestone, delete the gig, close or refund escrow.
	RoleClient Role = "client"
	// RoleFreelancer covers: submit work, submit a milestone.
	RoleFreelancer Role = "freelancer"
)

// Authorize verifies that actorID is the party entitled to act as role on
// the gig. Failure short-circuits the caller with no side effect.
func Authorize(actorID uuid.UUID, gig *models.Gig, role Role) error {
	switch role {
	case RoleClient:
		if gig.ClientID == actorID {
			return nil
		}
	case RoleFreelancer:
		if gig.FreelancerID != nil && *gig.FreelancerID == actorID {
			return nil
		}
	}
	return apperrors.ErrUnauthorized
}
