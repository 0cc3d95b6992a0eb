// Package x402 implements the wire format of the payment-required protocol:
// the 402 challenge body, the base64 X-Payment proof header and the base64
// X-Payment-Response receipt header.
package x402

import (
	"encoding/base64"
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"
)

const (
	Version = 1

	// Default settlement terms for the USDC asset (6 decimals).
	DefaultNetwork        = "solana-devnet"
	DefaultAsset          = "EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v"
	DefaultScheme         = "exact"
	DefaultTimeoutSeconds = 300

	assetDecimals = 6
)

// PaymentOption is one acceptable way to pay a challenge.
type PaymentOption struct {
	Scheme            string `json:"scheme"`
	Network           string `json:"network"`
	MaxAmountRequired int64  `json:"maxAmountRequired"`
	Asset             string `json:"asset"`
	PayTo             string `json:"payTo"`
	Resource          string `json:"resource"`
	MaxTimeoutSeconds int    `json:"maxTimeoutSeconds"`
}

// Challenge is the body of a 402 Payment Required response.
type Challenge struct {
	X402Version int             `json:"x402Version"`
	Error       string          `json:"error"`
	Accepts     []PaymentOption `json:"accepts"`
}

// PaymentProof is the decoded X-Payment header attached by a paying caller.
type PaymentProof struct {
	X402Version int    `json:"x402Version"`
	Scheme      string `json:"scheme"`
	Network     string `json:"network"`
	Payload     struct {
		Transaction string `json:"transaction"`
	} `json:"payload"`
}

// Receipt is the settlement summary carried back to the caller in the
// X-Payment-Response header.
type Receipt struct {
	Success     bool   `json:"success"`
	Transaction string `json:"transaction,omitempty"`
	Network     string `json:"network,omitempty"`
	Payer       string `json:"payer,omitempty"`
	ErrorReason string `json:"errorReason,omitempty"`
}

// ToMinorUnits scales a decimal currency amount to the settlement asset's
// integer minor-unit representation. Minor units exist only at the protocol
// boundary and are never persisted.
func ToMinorUnits(amount decimal.Decimal) int64 {
	return amount.Shift(assetDecimals).IntPart()
}

// NewChallenge builds a challenge for the given resource. The amount is the
// decimal currency amount owed; payTo is the escrow wallet.
func NewChallenge(amount decimal.Decimal, resource, payTo string) Challenge {
	return Challenge{
		X402Version: Version,
		Error:       "Payment required to release milestone funds",
		Accepts: []PaymentOption{
			{
				Scheme:            DefaultScheme,
				Network:           DefaultNetwork,
				MaxAmountRequired: ToMinorUnits(amount),
				Asset:             DefaultAsset,
				PayTo:             payTo,
				Resource:          resource,
				MaxTimeoutSeconds: DefaultTimeoutSeconds,
			},
		},
	}
}

// DecodeProof parses a base64 X-Payment header value.
func DecodeProof(header string) (*PaymentProof, error) {
	raw, err := base64.StdEncoding.DecodeString(header)
	if err != nil {
		return nil, fmt.Errorf("invalid payment header encoding: %w", err)
	}
	var proof PaymentProof
	if err := json.Unmarshal(raw, &proof); err != nil {
		return nil, fmt.Errorf("invalid payment header payload: %w", err)
	}
	return &proof, nil
}

// EncodeReceipt serializes a receipt for the X-Payment-Response header.
func EncodeReceipt(r Receipt) string {
	raw, _ := json.Marshal(r)
	return base64.StdEncoding.EncodeToString(raw)
}
