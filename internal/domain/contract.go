// Package domain defines the persistence models for premium contracts,
// outbound notifications and reminder bookkeeping. These types are mapped
// with GORM and shared by the repository, service and HTTP layers.
package domain

import "time"

// PlanType identifies a purchasable subscription plan.
type PlanType string

const (
	Plan3Months PlanType = "3_MONTHS"
	Plan6Months PlanType = "6_MONTHS"
	Plan1Year   PlanType = "1_YEAR"
)

// ContractStatus is the coarse record status stored in contracts.status.
type ContractStatus string

const (
	StatusActive    ContractStatus = "ACTIVE"
	StatusExpired   ContractStatus = "EXPIRED"
	StatusCancelled ContractStatus = "CANCELLED"
)

// PaymentStatus records the outcome of the manual payment review.
type PaymentStatus string

const (
	PaymentPending  PaymentStatus = "PENDING"
	PaymentVerified PaymentStatus = "VERIFIED"
	PaymentFailed   PaymentStatus = "FAILED"
)

// PaymentMethod is how the user paid out of band.
type PaymentMethod string

const (
	PaymentBankTransfer PaymentMethod = "BANK_TRANSFER"
	PaymentEWallet      PaymentMethod = "E_WALLET"
)

// Valid reports whether m is a supported payment method.
func (m PaymentMethod) Valid() bool {
	return m == PaymentBankTransfer || m == PaymentEWallet
}

// State is the lifecycle state derived from (status, payment_status).
type State string

const (
	StatePendingReview State = "PENDING_REVIEW"
	StateVerified      State = "VERIFIED"
	StateRejected      State = "REJECTED"
	StateExpired       State = "EXPIRED"
	StateCancelled     State = "CANCELLED"
)

// Terminal reports whether no further transition may leave s.
func (s State) Terminal() bool {
	return s == StateRejected || s == StateExpired || s == StateCancelled
}

// Contract is a purchased subscription period, pending review or finalized.
//
// Fields:
//   - ID: stable UUID primary key (char(36)).
//   - UserID: owner of the contract; indexed for entitlement lookups.
//   - PlanType / PriceMinor / Currency / DurationMonths: copied from the plan
//     table at creation time and never changed afterwards.
//   - Status / PaymentStatus: together they encode the lifecycle state (see State).
//   - PaymentMethod: BANK_TRANSFER or E_WALLET.
//   - StartDate / EndDate: nil until payment is verified, then immutable.
//   - ContactChannel: phone number used for WhatsApp notifications.
//   - ContactEmail: optional address used for e-mail notifications.
//   - ReviewerID / ReviewedAt / ReviewerNotes: written only by adjudication.
//   - CreatedAt / UpdatedAt: timestamps managed by GORM.
type Contract struct {
	ID             string         `json:"id"               gorm:"type:char(36);primaryKey"`
	UserID         string         `json:"user_id"          gorm:"type:varchar(64);not null;index:idx_contracts_user"`
	PlanType       PlanType       `json:"plan_type"        gorm:"type:varchar(16);not null"`
	PriceMinor     int64          `json:"price_minor"      gorm:"not null"`
	Currency       string         `json:"currency"         gorm:"type:char(3);not null"`
	DurationMonths int            `json:"duration_months"  gorm:"not null"`
	Status         ContractStatus `json:"status"           gorm:"type:varchar(16);not null;index:idx_contracts_state,priority:1"`
	PaymentStatus  PaymentStatus  `json:"payment_status"   gorm:"type:varchar(16);not null;index:idx_contracts_state,priority:2"`
	PaymentMethod  PaymentMethod  `json:"payment_method"   gorm:"type:varchar(16);not null"`
	StartDate      *time.Time     `json:"start_date,omitempty"`
	EndDate        *time.Time     `json:"end_date,omitempty" gorm:"index"`
	ContactChannel string         `json:"contact_channel"  gorm:"type:varchar(32);not null"`
	ContactEmail   string         `json:"contact_email,omitempty" gorm:"type:varchar(255)"`
	ReviewerID     *string        `json:"reviewer_id,omitempty"    gorm:"type:varchar(64)"`
	ReviewedAt     *time.Time     `json:"reviewed_at,omitempty"`
	ReviewerNotes  *string        `json:"reviewer_notes,omitempty" gorm:"type:text"`
	CreatedAt      time.Time      `json:"created_at"       gorm:"index"`
	UpdatedAt      time.Time      `json:"updated_at"`
}

// TableName returns the database table name for Contract.
func (Contract) TableName() string { return "contracts" }

// State derives the lifecycle state from the stored status columns.
func (c *Contract) State() State {
	switch {
	case c.PaymentStatus == PaymentFailed:
		return StateRejected
	case c.Status == StatusCancelled:
		return StateCancelled
	case c.Status == StatusExpired:
		return StateExpired
	case c.PaymentStatus == PaymentVerified:
		return StateVerified
	default:
		return StatePendingReview
	}
}

// EntitledAt reports whether the contract grants premium access at t.
func (c *Contract) EntitledAt(t time.Time) bool {
	return c.State() == StateVerified && c.EndDate != nil && c.EndDate.After(t)
}
