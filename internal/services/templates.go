package services

import (
	"math"
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/tbourn/go-premium-contracts/internal/domain"
)

// Templates renders notification subjects and bodies. Prices are formatted
// with the grouping rules of Lang (e.g. "Rp150.000" for Indonesian).
type Templates struct {
	Lang language.Tag
}

// NewTemplates returns Templates for lang, defaulting to Indonesian when
// lang is undetermined.
func NewTemplates(lang language.Tag) *Templates {
	if lang == language.Und {
		lang = language.Indonesian
	}
	return &Templates{Lang: lang}
}

var planLabels = map[domain.PlanType]string{
	domain.Plan3Months: "3 bulan",
	domain.Plan6Months: "6 bulan",
	domain.Plan1Year:   "1 tahun",
}

const dateLayout = "02/01/2006"

// Render returns the subject and body for a notification of kind about c.
// notes is included for rejections and cancellations when non-empty.
func (t *Templates) Render(kind domain.NotificationKind, c *domain.Contract, notes string, now time.Time) (subject, body string) {
	if t == nil {
		t = NewTemplates(language.Und)
	}
	p := message.NewPrinter(t.Lang)
	plan := cases.Title(t.Lang).String(planLabels[c.PlanType])
	if plan == "" {
		plan = string(c.PlanType)
	}
	notes = strings.TrimSpace(notes)

	switch kind {
	case domain.KindContractActivated:
		subject = "Langganan premium Anda aktif"
		body = p.Sprintf("Pembayaran paket %s sebesar Rp%d telah diverifikasi.", plan, c.PriceMinor)
		if c.EndDate != nil {
			body += p.Sprintf(" Akses premium berlaku hingga %s.", c.EndDate.UTC().Format(dateLayout))
		}
	case domain.KindContractRejected:
		subject = "Pembayaran tidak dapat diverifikasi"
		body = p.Sprintf("Pembayaran paket %s sebesar Rp%d tidak dapat diverifikasi.", plan, c.PriceMinor)
		if notes != "" {
			body += p.Sprintf(" Catatan: %s", notes)
		}
	case domain.KindContractCancelled:
		subject = "Langganan premium dibatalkan"
		body = p.Sprintf("Kontrak paket %s Anda telah dibatalkan.", plan)
		if notes != "" {
			body += p.Sprintf(" Alasan: %s", notes)
		}
	case domain.KindContractExpired:
		subject = "Langganan premium telah berakhir"
		body = p.Sprintf("Masa berlaku paket %s Anda telah berakhir. Perpanjang untuk tetap menikmati fitur premium.", plan)
	case domain.KindExpiryReminder:
		subject = "Langganan premium akan segera berakhir"
		days := 0
		end := now
		if c.EndDate != nil {
			end = c.EndDate.UTC()
			days = int(math.Ceil(end.Sub(now).Hours() / 24))
		}
		body = p.Sprintf("Paket %s Anda berakhir pada %s (%d hari lagi).", plan, end.Format(dateLayout), days)
	default:
		subject = string(kind)
		body = p.Sprintf("Pembaruan status kontrak %s.", c.ID)
	}
	return subject, body
}

// buildNotifications renders one PENDING notification per channel in
// channels. Channels without an address on the contract are skipped.
func buildNotifications(t *Templates, kind domain.NotificationKind, c *domain.Contract, notes string, channels []domain.Channel, now time.Time) []domain.Notification {
	subject, body := t.Render(kind, c, notes, now)
	out := make([]domain.Notification, 0, len(channels))
	for _, ch := range channels {
		recipient := recipientFor(ch, c)
		if recipient == "" {
			continue
		}
		id := c.ID
		out = append(out, domain.Notification{
			ContractID:     &id,
			Channel:        ch,
			Recipient:      recipient,
			Kind:           kind,
			Subject:        subject,
			Message:        body,
			DeliveryStatus: domain.DeliveryPending,
			CreatedAt:      now,
			UpdatedAt:      now,
		})
	}
	return out
}

func recipientFor(ch domain.Channel, c *domain.Contract) string {
	switch ch {
	case domain.ChannelWhatsApp:
		return strings.TrimSpace(c.ContactChannel)
	case domain.ChannelEmail:
		return strings.TrimSpace(c.ContactEmail)
	}
	return ""
}

// DefaultChannels is used when a service is constructed without channels.
var DefaultChannels = []domain.Channel{domain.ChannelWhatsApp, domain.ChannelEmail}

func channelsOrDefault(chs []domain.Channel) []domain.Channel {
	if len(chs) == 0 {
		return DefaultChannels
	}
	return chs
}

func nowFrom(f func() time.Time) time.Time {
	if f == nil {
		return time.Now().UTC()
	}
	return f().UTC()
}
