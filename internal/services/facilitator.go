package services

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"

	"GigVault/internal/x402"
)

// Settler is the settlement port the release orchestrator depends on. The
// facilitator's settlement logic is an external system; we only consume its
// result.
type Settler interface {
	Settle(proof *x402.PaymentProof) (*SettlementResult, error)
}

type SettlementResult struct {
	Success     bool   `json:"success"`
	Transaction string `json:"transaction"`
	Network     string `json:"network"`
	Payer       string `json:"payer"`
	ErrorReason string `json:"errorReason,omitempty"`
}

type FacilitatorService struct {
	BaseURL string
	client  *http.Client
}

// NewFacilitatorService creates a client for the x402 payment facilitator
func NewFacilitatorService() *FacilitatorService {
	baseURL := os.Getenv("FACILITATOR_URL")
	if baseURL == "" {
		baseURL = "https://facilitator.payai.network"
	}
	return &FacilitatorService{
		BaseURL: baseURL,
		client:  &http.Client{},
	}
}

// makeRequest makes an HTTP request to the facilitator API
func (fs *FacilitatorService) makeRequest(method, endpoint string, payload interface{}) (*http.Response, error) {
	var body io.Reader
	if payload != nil {
		jsonData, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal payload: %w", err)
		}
		body = bytes.NewBuffer(jsonData)
	}

	req, err := http.NewRequest(method, fs.BaseURL+endpoint, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")

	return fs.client.Do(req)
}

// Settle submits a payment proof to the facilitator for settlement
func (fs *FacilitatorService) Settle(proof *x402.PaymentProof) (*SettlementResult, error) {
	resp, err := fs.makeRequest("POST", "/settle", proof)
	if err != nil {
		return nil, fmt.Errorf("failed to reach facilitator: %w", err)
	}
	defer resp.Body.Close()

	var result SettlementResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode settlement response: %w", err)
	}

	return &result, nil
}
