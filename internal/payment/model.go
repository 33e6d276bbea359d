package payment

import (
	"math"
	"time"

	"github.com/google/uuid"
)

type Status string

const (
	StatusPending Status = "Pending"
	StatusPaid    Status = "Paid"
	StatusFailed  Status = "Failed"
)

// MinorUnitsPerMajor converts local whole-unit amounts to the gateway's
// minor units (kobo, cents).
const MinorUnitsPerMajor = 100

// MaxMajorAmount is the largest major amount whose minor form fits in int64.
const MaxMajorAmount = math.MaxInt64 / MinorUnitsPerMajor

// ToMinor saturates at the int64 bounds instead of wrapping.
func ToMinor(major int64) int64 {
	switch {
	case major > MaxMajorAmount:
		return math.MaxInt64
	case major < -MaxMajorAmount:
		return math.MinInt64
	}
	return major * MinorUnitsPerMajor
}

// Classify compares the settled amount against the claimed total, both in
// minor units. Anything short of the claim is Pending.
func Classify(paidMinor, claimedMajor int64) Status {
	if claimedMajor > MaxMajorAmount || paidMinor < ToMinor(claimedMajor) {
		return StatusPending
	}
	return StatusPaid
}

// Payment is written once per gateway reference.
type Payment struct {
	ID            uuid.UUID `json:"id"`
	UserID        uint      `json:"userId"`
	AmountMinor   int64     `json:"amountMinor"`
	Reference     string    `json:"reference"`
	TransactionID string    `json:"transactionId"`
	PaymentMethod string    `json:"paymentMethod"`
	Status        Status    `json:"paymentStatus"`
	CreatedAt     time.Time `json:"createdAt"`
}

type InitializeResult struct {
	AuthorizationURL string `json:"authorizationUrl"`
	AccessCode       string `json:"accessCode,omitempty"`
	Reference        string `json:"reference"`
}

type Verification struct {
	Status          string
	Reference       string
	AmountPaidMinor int64
	Channel         string
	TransactionID   string
	CustomerEmail   string
	PaidAt          *time.Time
}

type Refund struct {
	Status      string
	AmountMinor int64
}
