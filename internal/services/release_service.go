package services

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"GigVault/internal/apperrors"
	"GigVault/internal/guard"
	"GigVault/internal/models"
	"GigVault/internal/x402"
)

type PaymentType string

const (
	PaymentMilestone PaymentType = "milestone"
	PaymentFull      PaymentType = "full"
)

type ReleaseRequest struct {
	MilestoneID *uuid.UUID
	GigID       *uuid.UUID
	PaymentType PaymentType
	Proof       *x402.PaymentProof
}

type ReleaseResult struct {
	// Challenge is set when no proof was attached; nothing was mutated and
	// the caller must retry with an X-Payment header.
	Challenge *x402.Challenge

	Message          string
	AmountReleased   decimal.Decimal
	FreelancerWallet string
	TxSignature      string
	EscrowAddress    *string
	Payer            string
	Network          string

	GigID        uuid.UUID
	FreelancerID uuid.UUID
	GigTitle     string
}

// ReleaseService gates fund release behind authorization, status transitions
// and x402 settlement, then advances gig/milestone state atomically.
type ReleaseService struct {
	db           *gorm.DB
	settler      Settler
	escrowWallet string
}

func NewReleaseService(db *gorm.DB, settler Settler) *ReleaseService {
	return &ReleaseService{
		db:           db,
		settler:      settler,
		escrowWallet: os.Getenv("ESCROW_WALLET_ADDRESS"),
	}
}

// Release runs the ordered flow: authenticate (done by caller), load, guard,
// status check, wallet check, challenge-or-settle, then one atomic write.
// Any failing step aborts with no side effect from later steps.
func (rs *ReleaseService) Release(actorID uuid.UUID, req ReleaseRequest) (*ReleaseResult, error) {
	switch req.PaymentType {
	case PaymentMilestone:
		if req.MilestoneID == nil || req.GigID != nil {
			return nil, apperrors.Newf(apperrors.CodeValidation, "milestone payment requires milestone_id")
		}
		return rs.releaseMilestone(actorID, *req.MilestoneID, req.Proof)
	case PaymentFull:
		if req.GigID == nil || req.MilestoneID != nil {
			return nil, apperrors.Newf(apperrors.CodeValidation, "full payment requires gig_id")
		}
		return rs.releaseFull(actorID, *req.GigID, req.Proof)
	default:
		return nil, apperrors.Newf(apperrors.CodeValidation, "payment_type must be milestone or full")
	}
}

func (rs *ReleaseService) releaseMilestone(actorID, milestoneID uuid.UUID, proof *x402.PaymentProof) (*ReleaseResult, error) {
	var milestone models.Milestone
	if err := rs.db.Preload("Gig").First(&milestone, "id = ?", milestoneID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.Newf(apperrors.CodeNotFound, "Milestone not found")
		}
		return nil, fmt.Errorf("failed to load milestone: %w", err)
	}
	gig := milestone.Gig

	if err := guard.Authorize(actorID, &gig, guard.RoleClient); err != nil {
		return nil, err
	}

	if milestone.Status != models.MilestoneSubmitted {
		return nil, apperrors.Newf(apperrors.CodeInvalidStatus, "Milestone must be in submitted status")
	}

	wallet, err := rs.freelancerWallet(gig.FreelancerID)
	if err != nil {
		return nil, err
	}

	if proof == nil {
		return rs.issueChallenge(milestone.ID, milestone.Amount)
	}

	settlement, err := rs.settle(milestone.ID, proof)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	err = rs.db.Transaction(func(tx *gorm.DB) error {
		// Conditional write: only one concurrent approval can flip the
		// status, the loser sees zero rows affected.
		res := tx.Model(&models.Milestone{}).
			Where("id = ? AND status = ?", milestone.ID, models.MilestoneSubmitted).
			Updates(map[string]interface{}{
				"status":       models.MilestonePaid,
				"approved_at":  now,
				"paid_at":      now,
				"tx_signature": settlement.Transaction,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return apperrors.Newf(apperrors.CodeInvalidStatus, "Milestone must be in submitted status")
		}

		if err := tx.Model(&models.Gig{}).
			Where("id = ?", gig.ID).
			Update("total_paid_amount", gorm.Expr("total_paid_amount + ?", milestone.Amount)).Error; err != nil {
			return err
		}

		txn := models.Transaction{
			GigID:       gig.ID,
			Type:        models.TransactionMilestoneRelease,
			Amount:      milestone.Amount,
			TxSignature: &settlement.Transaction,
			Status:      models.TransactionConfirmed,
		}
		return tx.Create(&txn).Error
	})
	if err != nil {
		return nil, err
	}

	return &ReleaseResult{
		Message:          "Milestone approved and funds released",
		AmountReleased:   milestone.Amount,
		FreelancerWallet: wallet,
		TxSignature:      settlement.Transaction,
		EscrowAddress:    gig.EscrowAddress,
		Payer:            settlement.Payer,
		Network:          settlement.Network,
		GigID:            gig.ID,
		FreelancerID:     *gig.FreelancerID,
		GigTitle:         gig.Title,
	}, nil
}

func (rs *ReleaseService) releaseFull(actorID, gigID uuid.UUID, proof *x402.PaymentProof) (*ReleaseResult, error) {
	var gig models.Gig
	if err := rs.db.First(&gig, "id = ?", gigID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.Newf(apperrors.CodeNotFound, "Gig not found")
		}
		return nil, fmt.Errorf("failed to load gig: %w", err)
	}

	if err := guard.Authorize(actorID, &gig, guard.RoleClient); err != nil {
		return nil, err
	}

	if gig.Status != models.GigSubmitted {
		return nil, apperrors.Newf(apperrors.CodeInvalidStatus, "Gig must be in submitted status")
	}

	wallet, err := rs.freelancerWallet(gig.FreelancerID)
	if err != nil {
		return nil, err
	}

	if proof == nil {
		return rs.issueChallenge(gig.ID, gig.Budget)
	}

	settlement, err := rs.settle(gig.ID, proof)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	err = rs.db.Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.Gig{}).
			Where("id = ? AND status = ?", gig.ID, models.GigSubmitted).
			Updates(map[string]interface{}{
				"status":            models.GigCompleted,
				"total_paid_amount": gorm.Expr("total_paid_amount + ?", gig.Budget),
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return apperrors.Newf(apperrors.CodeInvalidStatus, "Gig must be in submitted status")
		}

		if err := tx.Model(&models.Submission{}).
			Where("gig_id = ? AND status = ?", gig.ID, models.SubmissionPending).
			Updates(map[string]interface{}{
				"status":      models.SubmissionApproved,
				"reviewed_at": now,
			}).Error; err != nil {
			return err
		}

		txn := models.Transaction{
			GigID:       gig.ID,
			Type:        models.TransactionRelease,
			Amount:      gig.Budget,
			TxSignature: &settlement.Transaction,
			Status:      models.TransactionConfirmed,
		}
		return tx.Create(&txn).Error
	})
	if err != nil {
		return nil, err
	}

	return &ReleaseResult{
		Message:          "Payment approved and funds released",
		AmountReleased:   gig.Budget,
		FreelancerWallet: wallet,
		TxSignature:      settlement.Transaction,
		EscrowAddress:    gig.EscrowAddress,
		Payer:            settlement.Payer,
		Network:          settlement.Network,
		GigID:            gig.ID,
		FreelancerID:     *gig.FreelancerID,
		GigTitle:         gig.Title,
	}, nil
}

// freelancerWallet resolves the assigned freelancer's linked wallet. Absence
// is fatal to the call; no retry is possible without freelancer action.
func (rs *ReleaseService) freelancerWallet(freelancerID *uuid.UUID) (string, error) {
	if freelancerID == nil {
		return "", apperrors.Newf(apperrors.CodeInvalidStatus, "Gig has no assigned freelancer")
	}

	var freelancer models.Profile
	if err := rs.db.First(&freelancer, "id = ?", *freelancerID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", apperrors.Newf(apperrors.CodeNotFound, "Freelancer profile not found")
		}
		return "", fmt.Errorf("failed to load freelancer profile: %w", err)
	}

	if !freelancer.HasWallet() {
		return "", apperrors.ErrFreelancerWalletMissing
	}
	return *freelancer.WalletAddress, nil
}

// issueChallenge records the challenge for timeout enforcement and returns
// it. Gig and milestone state is untouched.
func (rs *ReleaseService) issueChallenge(resourceID uuid.UUID, amount decimal.Decimal) (*ReleaseResult, error) {
	record := models.PaymentChallenge{
		ResourceID:     resourceID,
		Amount:         amount,
		TimeoutSeconds: x402.DefaultTimeoutSeconds,
	}
	if err := rs.db.Create(&record).Error; err != nil {
		return nil, fmt.Errorf("failed to record payment challenge: %w", err)
	}

	challenge := x402.NewChallenge(amount, resourceID.String(), rs.escrowWallet)
	return &ReleaseResult{Challenge: &challenge}, nil
}

// settle validates the proof against the facilitator. A proof presented
// after the newest challenge for the resource has timed out is rejected
// without calling out.
func (rs *ReleaseService) settle(resourceID uuid.UUID, proof *x402.PaymentProof) (*SettlementResult, error) {
	var challenge models.PaymentChallenge
	err := rs.db.Where("resource_id = ?", resourceID).
		Order("issued_at DESC").
		First(&challenge).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.Newf(apperrors.CodeSettlementFailed, "No payment challenge issued for this resource")
		}
		return nil, fmt.Errorf("failed to load payment challenge: %w", err)
	}
	if challenge.Expired(time.Now()) {
		return nil, apperrors.Newf(apperrors.CodeSettlementFailed, "Payment challenge expired, request a new one")
	}

	settlement, err := rs.settler.Settle(proof)
	if err != nil {
		return nil, apperrors.Newf(apperrors.CodeSettlementFailed, "Payment settlement failed: %v", err)
	}
	if !settlement.Success {
		reason := settlement.ErrorReason
		if reason == "" {
			reason = "rejected by facilitator"
		}
		return nil, apperrors.Newf(apperrors.CodeSettlementFailed, "Payment settlement failed: %s", reason)
	}
	return settlement, nil
}
