package handlers_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"GigVault/internal/database"
	"GigVault/internal/handlers"
	"GigVault/internal/models"
	"GigVault/internal/routes"
)

const testWallet = "So11111111111111111111111111111111111111112"

// setupApp boots the full route tree against an isolated in-memory database.
// Tests share the global database handle, so none of them run in parallel.
func setupApp(t *testing.T) *fiber.App {
	t.Helper()
	t.Setenv("JWT_SECRET", "test-secret")
	t.Setenv("REDIS_URL", "")

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
	database.DB = db

	handlers.InitNotificationService()
	handlers.InitEventBus()
	handlers.InitReleaseService()

	app := fiber.New()
	routes.SetupRoutes(app)
	routes.SetupProfileRoutes(app)
	routes.SetupGigRoutes(app)
	routes.SetupReleaseRoutes(app)
	routes.SetupNotificationRoutes(app)
	return app
}

func doJSON(t *testing.T, app *fiber.App, method, path, token string, body interface{}) (int, map[string]interface{}) {
	t.Helper()

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	var decoded map[string]interface{}
	if len(raw) > 0 {
		require.NoError(t, json.Unmarshal(raw, &decoded), "body: %s", raw)
	}
	return resp.StatusCode, decoded
}

func signup(t *testing.T, app *fiber.App, email, userType string) string {
	t.Helper()
	status, body := doJSON(t, app, "POST", "/api/auth/signup", "", fiber.Map{
		"full_name": "Test User",
		"email":     email,
		"password":  "password123",
		"user_type": userType,
	})
	require.Equal(t, http.StatusCreated, status, "signup failed: %v", body)
	return body["token"].(string)
}

func connectWallet(t *testing.T, app *fiber.App, token string) {
	t.Helper()
	status, body := doJSON(t, app, "PUT", "/api/profile/wallet", token, fiber.Map{
		"wallet_address": testWallet,
	})
	require.Equal(t, http.StatusOK, status, "connect wallet failed: %v", body)
}

func createMilestoneGig(t *testing.T, app *fiber.App, token string) string {
	t.Helper()
	status, body := doJSON(t, app, "POST", "/api/gigs/", token, fiber.Map{
		"title":          "Build landing page",
		"description":    "Two milestone landing page",
		"budget":         "1000",
		"has_milestones": true,
		"milestones": []fiber.Map{
			{"title": "Design", "percentage": 50},
			{"title": "Implementation", "percentage": 50},
		},
	})
	require.Equal(t, http.StatusCreated, status, "create gig failed: %v", body)
	gig := body["gig"].(map[string]interface{})
	return gig["id"].(string)
}

func listMilestoneIDs(t *testing.T, app *fiber.App, token, gigID string) []string {
	t.Helper()
	status, body := doJSON(t, app, "GET", "/api/gigs/"+gigID+"/milestones", token, nil)
	require.Equal(t, http.StatusOK, status)

	raw := body["milestones"].([]interface{})
	ids := make([]string, len(raw))
	for i, m := range raw {
		ids[i] = m.(map[string]interface{})["id"].(string)
	}
	return ids
}

func TestSignupAndLogin(t *testing.T) {
	app := setupApp(t)

	token := signup(t, app, "alice@example.com", "client")
	assert.NotEmpty(t, token)

	// Duplicate email
	status, _ := doJSON(t, app, "POST", "/api/auth/signup", "", fiber.Map{
		"full_name": "Alice Again",
		"email":     "alice@example.com",
		"password":  "password123",
		"user_type": "client",
	})
	assert.Equal(t, http.StatusConflict, status)

	// Invalid role
	status, _ = doJSON(t, app, "POST", "/api/auth/signup", "", fiber.Map{
		"full_name": "Bob",
		"email":     "bob@example.com",
		"password":  "password123",
		"user_type": "admin",
	})
	assert.Equal(t, http.StatusBadRequest, status)

	status, body := doJSON(t, app, "POST", "/api/auth/login", "", fiber.Map{
		"email":    "alice@example.com",
		"password": "password123",
	})
	assert.Equal(t, http.StatusOK, status)
	assert.NotEmpty(t, body["token"])

	status, _ = doJSON(t, app, "POST", "/api/auth/login", "", fiber.Map{
		"email":    "alice@example.com",
		"password": "wrong-password",
	})
	assert.Equal(t, http.StatusUnauthorized, status)
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	app := setupApp(t)

	status, _ := doJSON(t, app, "GET", "/api/gigs/browse", "", nil)
	assert.Equal(t, http.StatusUnauthorized, status)

	status, _ = doJSON(t, app, "GET", "/api/gigs/browse", "not-a-jwt", nil)
	assert.Equal(t, http.StatusUnauthorized, status)
}

func TestCreateGigValidation(t *testing.T) {
	app := setupApp(t)

	clientToken := signup(t, app, "client@example.com", "client")
	freelancerToken := signup(t, app, "freelancer@example.com", "freelancer")

	// Wallet must be linked before funding escrow
	status, _ := doJSON(t, app, "POST", "/api/gigs/", clientToken, fiber.Map{
		"title":       "No wallet yet",
		"description": "d",
		"budget":      "100",
	})
	assert.Equal(t, http.StatusBadRequest, status)

	connectWallet(t, app, clientToken)
	connectWallet(t, app, freelancerToken)

	// Freelancers cannot post gigs
	status, _ = doJSON(t, app, "POST", "/api/gigs/", freelancerToken, fiber.Map{
		"title":       "Freelancer gig",
		"description": "d",
		"budget":      "100",
	})
	assert.Equal(t, http.StatusForbidden, status)

	// Zero budget
	status, _ = doJSON(t, app, "POST", "/api/gigs/", clientToken, fiber.Map{
		"title":       "Free work",
		"description": "d",
		"budget":      "0",
	})
	assert.Equal(t, http.StatusBadRequest, status)

	// Percentages must add up to exactly 100
	status, _ = doJSON(t, app, "POST", "/api/gigs/", clientToken, fiber.Map{
		"title":          "Bad split",
		"description":    "d",
		"budget":         "100",
		"has_milestones": true,
		"milestones": []fiber.Map{
			{"title": "A", "percentage": 60},
			{"title": "B", "percentage": 50},
		},
	})
	assert.Equal(t, http.StatusBadRequest, status)

	// Milestone gigs need at least two milestones
	status, _ = doJSON(t, app, "POST", "/api/gigs/", clientToken, fiber.Map{
		"title":          "One slot",
		"description":    "d",
		"budget":         "100",
		"has_milestones": true,
		"milestones": []fiber.Map{
			{"title": "A", "percentage": 100},
		},
	})
	assert.Equal(t, http.StatusBadRequest, status)

	// Valid milestone gig writes the escrow transaction
	gigID := createMilestoneGig(t, app, clientToken)

	var escrow int64
	require.NoError(t, database.DB.Model(&models.Transaction{}).
		Where("gig_id = ? AND type = ?", gigID, models.TransactionEscrow).
		Count(&escrow).Error)
	assert.EqualValues(t, 1, escrow)
}

func TestAcceptGig(t *testing.T) {
	app := setupApp(t)

	clientToken := signup(t, app, "client@example.com", "client")
	connectWallet(t, app, clientToken)
	gigID := createMilestoneGig(t, app, clientToken)

	first := signup(t, app, "first@example.com", "freelancer")
	second := signup(t, app, "second@example.com", "freelancer")

	// Wallet required before accepting
	status, _ := doJSON(t, app, "POST", "/api/gigs/"+gigID+"/accept", first, nil)
	assert.Equal(t, http.StatusBadRequest, status)

	connectWallet(t, app, first)
	connectWallet(t, app, second)

	// The client is not a freelancer
	status, _ = doJSON(t, app, "POST", "/api/gigs/"+gigID+"/accept", clientToken, nil)
	assert.Equal(t, http.StatusForbidden, status)

	status, _ = doJSON(t, app, "POST", "/api/gigs/"+gigID+"/accept", first, nil)
	assert.Equal(t, http.StatusOK, status)

	// The assignment is set exactly once
	status, body := doJSON(t, app, "POST", "/api/gigs/"+gigID+"/accept", second, nil)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Contains(t, body["error"], "no longer available")

	var gig models.Gig
	require.NoError(t, database.DB.First(&gig, "id = ?", gigID).Error)
	assert.Equal(t, models.GigInProgress, gig.Status)
	require.NotNil(t, gig.FreelancerID)
}

func TestSubmitMilestoneSequence(t *testing.T) {
	app := setupApp(t)

	clientToken := signup(t, app, "client@example.com", "client")
	connectWallet(t, app, clientToken)
	gigID := createMilestoneGig(t, app, clientToken)

	freelancerToken := signup(t, app, "freelancer@example.com", "freelancer")
	connectWallet(t, app, freelancerToken)
	status, _ := doJSON(t, app, "POST", "/api/gigs/"+gigID+"/accept", freelancerToken, nil)
	require.Equal(t, http.StatusOK, status)

	ids := listMilestoneIDs(t, app, freelancerToken, gigID)
	require.Len(t, ids, 2)

	// Milestone 2 is gated on milestone 1 being paid
	status, body := doJSON(t, app, "POST", "/api/milestones/"+ids[1]+"/submit", freelancerToken, fiber.Map{})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Contains(t, body["error"], "Previous milestone")

	// Only the assigned freelancer may submit
	status, _ = doJSON(t, app, "POST", "/api/milestones/"+ids[0]+"/submit", clientToken, fiber.Map{})
	assert.Equal(t, http.StatusForbidden, status)

	status, _ = doJSON(t, app, "POST", "/api/milestones/"+ids[0]+"/submit", freelancerToken, fiber.Map{
		"notes": "Design attached",
	})
	assert.Equal(t, http.StatusOK, status)

	// Re-submitting an already submitted milestone fails
	status, _ = doJSON(t, app, "POST", "/api/milestones/"+ids[0]+"/submit", freelancerToken, fiber.Map{})
	assert.Equal(t, http.StatusBadRequest, status)

	var milestone models.Milestone
	require.NoError(t, database.DB.First(&milestone, "id = ?", ids[0]).Error)
	assert.Equal(t, models.MilestoneSubmitted, milestone.Status)
	assert.NotNil(t, milestone.SubmittedAt)
}

func TestCancelGig(t *testing.T) {
	app := setupApp(t)

	clientToken := signup(t, app, "client@example.com", "client")
	connectWallet(t, app, clientToken)
	gigID := createMilestoneGig(t, app, clientToken)

	freelancerToken := signup(t, app, "freelancer@example.com", "freelancer")
	connectWallet(t, app, freelancerToken)

	// Only the client may cancel
	status, _ := doJSON(t, app, "POST", "/api/gigs/"+gigID+"/cancel", freelancerToken, nil)
	assert.Equal(t, http.StatusForbidden, status)

	status, _ = doJSON(t, app, "POST", "/api/gigs/"+gigID+"/cancel", clientToken, nil)
	assert.Equal(t, http.StatusOK, status)

	// Cancellation refunds the escrow
	var refund int64
	require.NoError(t, database.DB.Model(&models.Transaction{}).
		Where("gig_id = ? AND type = ?", gigID, models.TransactionRefund).
		Count(&refund).Error)
	assert.EqualValues(t, 1, refund)

	// An accepted gig can no longer be cancelled
	status, _ = doJSON(t, app, "POST", "/api/gigs/"+gigID+"/accept", freelancerToken, nil)
	assert.Equal(t, http.StatusBadRequest, status)
}
