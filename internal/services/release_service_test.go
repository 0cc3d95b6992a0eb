package services

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"GigVault/internal/apperrors"
	"GigVault/internal/models"
	"GigVault/internal/x402"
)

type fakeSettler struct {
	result *SettlementResult
	err    error
	calls  int
}

func (f *fakeSettler) Settle(proof *x402.PaymentProof) (*SettlementResult, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.result, nil
}

func okSettler() *fakeSettler {
	return &fakeSettler{result: &SettlementResult{
		Success:     true,
		Transaction: "settled-sig-001",
		Network:     "solana-devnet",
		Payer:       "client-wallet",
	}}
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&models.Profile{},
		&models.Gig{},
		&models.Milestone{},
		&models.Submission{},
		&models.Transaction{},
		&models.Notification{},
		&models.PaymentChallenge{},
	))
	return db
}

type fixture struct {
	db         *gorm.DB
	client     models.Profile
	freelancer models.Profile
	gig        models.Gig
	milestones []models.Milestone
}

// seedMilestoneGig creates a funded 1000 USDC gig with two 50% milestones,
// the first already submitted for approval.
func seedMilestoneGig(t *testing.T, db *gorm.DB, freelancerWallet bool) *fixture {
	t.Helper()

	clientWallet := "ClientWallet1111111111111111111111111111111"
	client := models.Profile{
		Email:         "client@example.com",
		Password:      "x",
		FullName:      "Client",
		UserType:      models.UserTypeClient,
		WalletAddress: &clientWallet,
	}
	require.NoError(t, db.Create(&client).Error)

	freelancer := models.Profile{
		Email:    "freelancer@example.com",
		Password: "x",
		FullName: "Freelancer",
		UserType: models.UserTypeFreelancer,
	}
	if freelancerWallet {
		wallet := "FreelancerWallet111111111111111111111111111"
		freelancer.WalletAddress = &wallet
	}
	require.NoError(t, db.Create(&freelancer).Error)

	gig := models.Gig{
		ClientID:        client.ID,
		FreelancerID:    &freelancer.ID,
		Title:           "Build landing page",
		Description:     "Two milestone landing page",
		Budget:          decimal.NewFromInt(1000),
		Status:          models.GigInProgress,
		HasMilestones:   true,
		MilestoneCount:  2,
		TotalPaidAmount: decimal.Zero,
		EscrowAddress:   &clientWallet,
	}
	require.NoError(t, db.Create(&gig).Error)

	now := time.Now()
	milestones := []models.Milestone{
		{
			GigID: gig.ID, Title: "Design", Percentage: 50,
			Amount: decimal.NewFromInt(500), SequenceOrder: 1,
			Status: models.MilestoneSubmitted, SubmittedAt: &now,
		},
		{
			GigID: gig.ID, Title: "Implementation", Percentage: 50,
			Amount: decimal.NewFromInt(500), SequenceOrder: 2,
			Status: models.MilestonePending,
		},
	}
	for i := range milestones {
		require.NoError(t, db.Create(&milestones[i]).Error)
	}

	return &fixture{db: db, client: client, freelancer: freelancer, gig: gig, milestones: milestones}
}

func validProof() *x402.PaymentProof {
	proof := &x402.PaymentProof{
		X402Version: 1,
		Scheme:      "exact",
		Network:     "solana-devnet",
	}
	proof.Payload.Transaction = "signed-transfer"
	return proof
}

func milestoneRequest(id uuid.UUID, proof *x402.PaymentProof) ReleaseRequest {
	return ReleaseRequest{MilestoneID: &id, PaymentType: PaymentMilestone, Proof: proof}
}

func fullRequest(id uuid.UUID, proof *x402.PaymentProof) ReleaseRequest {
	return ReleaseRequest{GigID: &id, PaymentType: PaymentFull, Proof: proof}
}

func TestReleaseValidation(t *testing.T) {
	db := newTestDB(t)
	rs := NewReleaseService(db, okSettler())
	id := uuid.New()

	tests := []struct {
		name string
		req  ReleaseRequest
	}{
		{"unknown payment type", ReleaseRequest{PaymentType: "weekly", MilestoneID: &id}},
		{"milestone type without milestone id", ReleaseRequest{PaymentType: PaymentMilestone, GigID: &id}},
		{"full type without gig id", ReleaseRequest{PaymentType: PaymentFull, MilestoneID: &id}},
		{"both ids present", ReleaseRequest{PaymentType: PaymentMilestone, MilestoneID: &id, GigID: &id}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := rs.Release(uuid.New(), tt.req)
			assert.ErrorIs(t, err, apperrors.ErrValidation)
		})
	}
}

func TestReleaseMilestoneNotFound(t *testing.T) {
	db := newTestDB(t)
	rs := NewReleaseService(db, okSettler())

	_, err := rs.Release(uuid.New(), milestoneRequest(uuid.New(), nil))
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestReleaseMilestoneUnauthorized(t *testing.T) {
	db := newTestDB(t)
	fx := seedMilestoneGig(t, db, true)
	settler := okSettler()
	rs := NewReleaseService(db, settler)

	// Neither the freelancer nor a stranger may approve
	for _, actor := range []uuid.UUID{fx.freelancer.ID, uuid.New()} {
		_, err := rs.Release(actor, milestoneRequest(fx.milestones[0].ID, nil))
		assert.ErrorIs(t, err, apperrors.ErrUnauthorized)
	}

	var milestone models.Milestone
	require.NoError(t, db.First(&milestone, "id = ?", fx.milestones[0].ID).Error)
	assert.Equal(t, models.MilestoneSubmitted, milestone.Status)
	assert.Zero(t, settler.calls)
}

func TestReleaseMilestoneInvalidStatus(t *testing.T) {
	db := newTestDB(t)
	fx := seedMilestoneGig(t, db, true)
	rs := NewReleaseService(db, okSettler())

	// Second milestone is still pending
	_, err := rs.Release(fx.client.ID, milestoneRequest(fx.milestones[1].ID, nil))
	assert.ErrorIs(t, err, apperrors.ErrInvalidStatus)

	var count int64
	require.NoError(t, db.Model(&models.Transaction{}).Count(&count).Error)
	assert.Zero(t, count, "failed release must not write transactions")
}

func TestReleaseMilestoneWalletMissing(t *testing.T) {
	db := newTestDB(t)
	fx := seedMilestoneGig(t, db, false)
	settler := okSettler()
	rs := NewReleaseService(db, settler)

	// Wallet check runs before the challenge, so amounts never leak and
	// nothing settles.
	_, err := rs.Release(fx.client.ID, milestoneRequest(fx.milestones[0].ID, nil))
	assert.ErrorIs(t, err, apperrors.ErrFreelancerWalletMissing)

	_, err = rs.Release(fx.client.ID, milestoneRequest(fx.milestones[0].ID, validProof()))
	assert.ErrorIs(t, err, apperrors.ErrFreelancerWalletMissing)
	assert.Zero(t, settler.calls)

	var milestone models.Milestone
	require.NoError(t, db.First(&milestone, "id = ?", fx.milestones[0].ID).Error)
	assert.Equal(t, models.MilestoneSubmitted, milestone.Status)
}

func TestReleaseMilestoneChallenge(t *testing.T) {
	db := newTestDB(t)
	fx := seedMilestoneGig(t, db, true)
	rs := NewReleaseService(db, okSettler())

	result, err := rs.Release(fx.client.ID, milestoneRequest(fx.milestones[0].ID, nil))
	require.NoError(t, err)
	require.NotNil(t, result.Challenge)

	require.Len(t, result.Challenge.Accepts, 1)
	option := result.Challenge.Accepts[0]
	assert.Equal(t, int64(500_000_000), option.MaxAmountRequired, "500 USDC in minor units")
	assert.Equal(t, fx.milestones[0].ID.String(), option.Resource)

	// A challenge never mutates gig or milestone state
	var milestone models.Milestone
	require.NoError(t, db.First(&milestone, "id = ?", fx.milestones[0].ID).Error)
	assert.Equal(t, models.MilestoneSubmitted, milestone.Status)

	var gig models.Gig
	require.NoError(t, db.First(&gig, "id = ?", fx.gig.ID).Error)
	assert.True(t, gig.TotalPaidAmount.IsZero())

	var challenges int64
	require.NoError(t, db.Model(&models.PaymentChallenge{}).
		Where("resource_id = ?", fx.milestones[0].ID).Count(&challenges).Error)
	assert.EqualValues(t, 1, challenges)
}

func TestReleaseMilestoneSettleWithoutChallenge(t *testing.T) {
	db := newTestDB(t)
	fx := seedMilestoneGig(t, db, true)
	settler := okSettler()
	rs := NewReleaseService(db, settler)

	_, err := rs.Release(fx.client.ID, milestoneRequest(fx.milestones[0].ID, validProof()))
	assert.ErrorIs(t, err, apperrors.ErrSettlementFailed)
	assert.Zero(t, settler.calls)
}

func TestReleaseMilestoneExpiredChallenge(t *testing.T) {
	db := newTestDB(t)
	fx := seedMilestoneGig(t, db, true)
	settler := okSettler()
	rs := NewReleaseService(db, settler)

	stale := models.PaymentChallenge{
		ResourceID:     fx.milestones[0].ID,
		Amount:         decimal.NewFromInt(500),
		TimeoutSeconds: x402.DefaultTimeoutSeconds,
		IssuedAt:       time.Now().Add(-10 * time.Minute),
	}
	require.NoError(t, db.Create(&stale).Error)

	_, err := rs.Release(fx.client.ID, milestoneRequest(fx.milestones[0].ID, validProof()))
	assert.ErrorIs(t, err, apperrors.ErrSettlementFailed)
	assert.Zero(t, settler.calls, "stale proofs are rejected without calling out")
}

func TestReleaseMilestoneSettlementFailure(t *testing.T) {
	db := newTestDB(t)
	fx := seedMilestoneGig(t, db, true)
	settler := &fakeSettler{result: &SettlementResult{Success: false, ErrorReason: "insufficient funds"}}
	rs := NewReleaseService(db, settler)

	_, err := rs.Release(fx.client.ID, milestoneRequest(fx.milestones[0].ID, nil))
	require.NoError(t, err)

	_, err = rs.Release(fx.client.ID, milestoneRequest(fx.milestones[0].ID, validProof()))
	assert.ErrorIs(t, err, apperrors.ErrSettlementFailed)

	var milestone models.Milestone
	require.NoError(t, db.First(&milestone, "id = ?", fx.milestones[0].ID).Error)
	assert.Equal(t, models.MilestoneSubmitted, milestone.Status)

	var count int64
	require.NoError(t, db.Model(&models.Transaction{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestReleaseMilestoneHappyPathAndReplay(t *testing.T) {
	db := newTestDB(t)
	fx := seedMilestoneGig(t, db, true)
	settler := okSettler()
	rs := NewReleaseService(db, settler)

	// First call: challenge, no mutation
	result, err := rs.Release(fx.client.ID, milestoneRequest(fx.milestones[0].ID, nil))
	require.NoError(t, err)
	require.NotNil(t, result.Challenge)

	// Second call with proof: settles exactly once
	result, err = rs.Release(fx.client.ID, milestoneRequest(fx.milestones[0].ID, validProof()))
	require.NoError(t, err)
	require.Nil(t, result.Challenge)
	assert.Equal(t, 1, settler.calls)
	assert.Equal(t, "settled-sig-001", result.TxSignature)
	assert.Equal(t, *fx.freelancer.WalletAddress, result.FreelancerWallet)
	assert.True(t, result.AmountReleased.Equal(decimal.NewFromInt(500)))

	var milestone models.Milestone
	require.NoError(t, db.First(&milestone, "id = ?", fx.milestones[0].ID).Error)
	assert.Equal(t, models.MilestonePaid, milestone.Status)
	assert.NotNil(t, milestone.ApprovedAt)
	assert.NotNil(t, milestone.PaidAt)
	require.NotNil(t, milestone.TxSignature)
	assert.Equal(t, "settled-sig-001", *milestone.TxSignature)

	var gig models.Gig
	require.NoError(t, db.First(&gig, "id = ?", fx.gig.ID).Error)
	assert.True(t, gig.TotalPaidAmount.Equal(decimal.NewFromInt(500)),
		"expected total_paid_amount 500, got %s", gig.TotalPaidAmount)

	var txns []models.Transaction
	require.NoError(t, db.Where("gig_id = ?", fx.gig.ID).Find(&txns).Error)
	require.Len(t, txns, 1)
	assert.Equal(t, models.TransactionMilestoneRelease, txns[0].Type)
	assert.Equal(t, models.TransactionConfirmed, txns[0].Status)
	assert.True(t, txns[0].Amount.Equal(decimal.NewFromInt(500)))

	// Third call (replay) fails with invalid status and writes nothing
	_, err = rs.Release(fx.client.ID, milestoneRequest(fx.milestones[0].ID, validProof()))
	assert.ErrorIs(t, err, apperrors.ErrInvalidStatus)

	require.NoError(t, db.Where("gig_id = ?", fx.gig.ID).Find(&txns).Error)
	assert.Len(t, txns, 1, "replay must not append transactions")
}

func TestReleaseAllMilestonesPaysFullBudget(t *testing.T) {
	db := newTestDB(t)
	fx := seedMilestoneGig(t, db, true)
	rs := NewReleaseService(db, okSettler())

	release := func(id uuid.UUID) {
		_, err := rs.Release(fx.client.ID, milestoneRequest(id, nil))
		require.NoError(t, err)
		_, err = rs.Release(fx.client.ID, milestoneRequest(id, validProof()))
		require.NoError(t, err)
	}

	release(fx.milestones[0].ID)

	// Freelancer submits milestone 2 once milestone 1 is paid
	now := time.Now()
	require.NoError(t, db.Model(&models.Milestone{}).
		Where("id = ?", fx.milestones[1].ID).
		Updates(map[string]interface{}{
			"status":       models.MilestoneSubmitted,
			"submitted_at": now,
		}).Error)

	release(fx.milestones[1].ID)

	var gig models.Gig
	require.NoError(t, db.First(&gig, "id = ?", fx.gig.ID).Error)
	assert.True(t, gig.TotalPaidAmount.Equal(gig.Budget),
		"all milestones paid must equal the budget, got %s of %s", gig.TotalPaidAmount, gig.Budget)
}

func seedFullPaymentGig(t *testing.T, db *gorm.DB) *fixture {
	t.Helper()
	fx := seedMilestoneGig(t, db, true)

	require.NoError(t, db.Model(&models.Gig{}).
		Where("id = ?", fx.gig.ID).
		Updates(map[string]interface{}{
			"has_milestones":  false,
			"milestone_count": 0,
			"status":          models.GigSubmitted,
		}).Error)
	require.NoError(t, db.Where("gig_id = ?", fx.gig.ID).Delete(&models.Milestone{}).Error)

	submission := models.Submission{
		GigID:          fx.gig.ID,
		FreelancerID:   fx.freelancer.ID,
		DeliverableURL: "https://example.com/deliverable.zip",
		Status:         models.SubmissionPending,
	}
	require.NoError(t, db.Create(&submission).Error)

	fx.gig.Status = models.GigSubmitted
	return fx
}

func TestReleaseFullPayment(t *testing.T) {
	db := newTestDB(t)
	fx := seedFullPaymentGig(t, db)
	settler := okSettler()
	rs := NewReleaseService(db, settler)

	result, err := rs.Release(fx.client.ID, fullRequest(fx.gig.ID, nil))
	require.NoError(t, err)
	require.NotNil(t, result.Challenge)
	assert.Equal(t, int64(1_000_000_000), result.Challenge.Accepts[0].MaxAmountRequired)

	result, err = rs.Release(fx.client.ID, fullRequest(fx.gig.ID, validProof()))
	require.NoError(t, err)
	require.Nil(t, result.Challenge)
	assert.True(t, result.AmountReleased.Equal(decimal.NewFromInt(1000)))

	var gig models.Gig
	require.NoError(t, db.First(&gig, "id = ?", fx.gig.ID).Error)
	assert.Equal(t, models.GigCompleted, gig.Status)
	assert.True(t, gig.TotalPaidAmount.Equal(gig.Budget))

	var submission models.Submission
	require.NoError(t, db.First(&submission, "gig_id = ?", fx.gig.ID).Error)
	assert.Equal(t, models.SubmissionApproved, submission.Status)
	assert.NotNil(t, submission.ReviewedAt)

	var txns []models.Transaction
	require.NoError(t, db.Where("gig_id = ?", fx.gig.ID).Find(&txns).Error)
	require.Len(t, txns, 1)
	assert.Equal(t, models.TransactionRelease, txns[0].Type)

	// Replay fails: gig already completed
	_, err = rs.Release(fx.client.ID, fullRequest(fx.gig.ID, validProof()))
	assert.ErrorIs(t, err, apperrors.ErrInvalidStatus)
}

func TestReleaseFullPaymentGigNotSubmitted(t *testing.T) {
	db := newTestDB(t)
	fx := seedMilestoneGig(t, db, true) // gig is in_progress
	rs := NewReleaseService(db, okSettler())

	_, err := rs.Release(fx.client.ID, fullRequest(fx.gig.ID, nil))
	assert.ErrorIs(t, err, apperrors.ErrInvalidStatus)
}
