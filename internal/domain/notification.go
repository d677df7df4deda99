package domain

import (
	"strings"
	"time"
)

// Channel is an outbound delivery channel.
type Channel string

const (
	ChannelEmail    Channel = "EMAIL"
	ChannelWhatsApp Channel = "WHATSAPP"
)

// Valid reports whether c is a supported channel.
func (c Channel) Valid() bool {
	return c == ChannelEmail || c == ChannelWhatsApp
}

// ParseChannels converts channel names, keeping valid ones in order and
// dropping duplicates.
func ParseChannels(names []string) []Channel {
	out := make([]Channel, 0, len(names))
	seen := make(map[Channel]bool, len(names))
	for _, n := range names {
		ch := Channel(strings.ToUpper(strings.TrimSpace(n)))
		if !ch.Valid() || seen[ch] {
			continue
		}
		seen[ch] = true
		out = append(out, ch)
	}
	return out
}

// DeliveryStatus tracks a notification through the dispatcher.
type DeliveryStatus string

const (
	DeliveryPending DeliveryStatus = "PENDING"
	DeliverySent    DeliveryStatus = "SENT"
	DeliveryFailed  DeliveryStatus = "FAILED"
)

// NotificationKind says which event produced a notification.
type NotificationKind string

const (
	KindContractActivated NotificationKind = "CONTRACT_ACTIVATED"
	KindContractRejected  NotificationKind = "CONTRACT_REJECTED"
	KindContractCancelled NotificationKind = "CONTRACT_CANCELLED"
	KindContractExpired   NotificationKind = "CONTRACT_EXPIRED"
	KindExpiryReminder    NotificationKind = "EXPIRY_REMINDER"
)

// Notification is a queued outbound message. Rows are never deleted so the
// table doubles as the delivery audit trail.
//
// Fields:
//   - ID: UUID primary key (char(36)).
//   - ContractID: contract the message is about; nullable and without FK so
//     reminders survive contract cleanup.
//   - Channel / Recipient: where the message goes.
//   - Kind: producing event.
//   - Subject / Message: rendered content.
//   - DeliveryStatus: PENDING until delivered (SENT) or given up (FAILED).
//   - Attempts / LastError: failure bookkeeping owned by the dispatcher.
//   - NextAttemptAt: earliest time the dispatcher may retry (nil = now).
//   - SentAt: delivery time for SENT rows.
type Notification struct {
	ID             string           `json:"id"              gorm:"type:char(36);primaryKey"`
	ContractID     *string          `json:"contract_id,omitempty" gorm:"type:char(36);index"`
	Channel        Channel          `json:"channel"         gorm:"type:varchar(16);not null"`
	Recipient      string           `json:"recipient"       gorm:"type:varchar(255);not null"`
	Kind           NotificationKind `json:"kind"            gorm:"type:varchar(32);not null"`
	Subject        string           `json:"subject"         gorm:"type:varchar(255)"`
	Message        string           `json:"message"         gorm:"type:text;not null"`
	DeliveryStatus DeliveryStatus   `json:"delivery_status" gorm:"type:varchar(16);not null;index:idx_notifications_queue,priority:1"`
	Attempts       int              `json:"attempts"        gorm:"not null;default:0"`
	LastError      *string          `json:"last_error,omitempty" gorm:"type:text"`
	NextAttemptAt  *time.Time       `json:"next_attempt_at,omitempty"`
	SentAt         *time.Time       `json:"sent_at,omitempty"`
	CreatedAt      time.Time        `json:"created_at"      gorm:"index:idx_notifications_queue,priority:2"`
	UpdatedAt      time.Time        `json:"updated_at"`
}

// TableName returns the database table name for Notification.
func (Notification) TableName() string { return "notifications" }

// ReminderLog marks that an expiry reminder was produced for a contract on
// a given UTC day. The unique index makes the scanner idempotent per day.
type ReminderLog struct {
	ID         uint      `gorm:"primaryKey"`
	ContractID string    `gorm:"type:char(36);not null;uniqueIndex:ux_reminder_contract_day,priority:1"`
	Day        string    `gorm:"type:char(10);not null;uniqueIndex:ux_reminder_contract_day,priority:2"`
	CreatedAt  time.Time `gorm:"not null"`
}

// TableName returns the database table name for ReminderLog.
func (ReminderLog) TableName() string { return "reminder_log" }

// PremiumStatus is the derived entitlement of a user. It is never persisted.
type PremiumStatus struct {
	IsPremium        bool       `json:"is_premium"`
	EndDate          *time.Time `json:"end_date,omitempty"`
	SourceContractID *string    `json:"source_contract_id,omitempty"`
	SourcePlanType   *PlanType  `json:"source_plan_type,omitempty"`
	AdminOverride    bool       `json:"admin_override,omitempty"`
}
