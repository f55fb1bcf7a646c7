package workflow

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/converge-ai/convergeai/intent"
	"github.com/converge-ai/convergeai/store"
)

// maxQuantity and businessHours are spec.md §4.5/§8's booking workflow
// bounds: a quantity of 0 or over 10 is rejected, and a preferred time
// outside 08:00–20:00 is rejected.
const maxQuantity = 10

var (
	businessHoursOpen  = mustParseTime("08:00")
	businessHoursClose = mustParseTime("20:00")
)

func mustParseTime(s string) time.Time {
	t, err := time.Parse("15:04", s)
	if err != nil {
		panic(err)
	}
	return t
}

// bookingSlotOrder is spec.md §4.5's required slot order for the booking
// workflow. special_instructions is optional and filled opportunistically
// only, so it is not part of the required order.
var bookingSlotOrder = []string{
	"subcategory_id",
	"rate_card_id",
	"quantity",
	"address_id",
	"preferred_date",
	"preferred_time",
}

// BookingMachine drives the booking slot-filling workflow.
type BookingMachine struct {
	Catalog   store.CatalogRepo
	Addresses AddressResolver
	Now       func() time.Time
}

var _ Machine = (*BookingMachine)(nil)

func (m *BookingMachine) now() time.Time {
	if m.Now != nil {
		return m.Now()
	}
	return time.Now().UTC()
}

func (m *BookingMachine) Slots() []string { return bookingSlotOrder }

var (
	dateRe             = regexp.MustCompile(`\b\d{4}-\d{2}-\d{2}\b`)
	relativeDateRe     = regexp.MustCompile(`(?i)\b(today|tomorrow)\b`)
	timeRe             = regexp.MustCompile(`(?i)\b([01]?\d|2[0-3]):([0-5]\d)\s*(am|pm)?\b`)
	hourOnlyRe         = regexp.MustCompile(`(?i)\b(1[0-2]|0?[1-9])\s*(am|pm)\b`)
	instructionNoteRe  = regexp.MustCompile(`(?i)\bnote[:\s]+(.+)$`)
)

func (m *BookingMachine) Extract(ctx context.Context, slot, utterance string, entities map[string]string, userRef uint64, state *store.WorkflowState) bool {
	d := state.Booking
	m.tryFillInstructions(utterance, d)

	switch slot {
	case "subcategory_id":
		return m.extractSubcategory(ctx, utterance, d)
	case "rate_card_id":
		return m.extractRateCard(ctx, utterance, d)
	case "quantity":
		return m.extractQuantity(utterance, entities, d)
	case "address_id":
		return m.extractAddress(ctx, utterance, userRef, d)
	case "preferred_date":
		return m.extractDate(utterance, entities, d)
	case "preferred_time":
		return m.extractTime(utterance, entities, d)
	case "special_instructions":
		return d.Slots.SpecialInstructions != nil
	default:
		return false
	}
}

func (m *BookingMachine) tryFillInstructions(utterance string, d *store.BookingDraft) {
	if d.Slots.SpecialInstructions != nil {
		return
	}
	if mm := instructionNoteRe.FindStringSubmatch(utterance); mm != nil {
		note := strings.TrimSpace(mm[1])
		d.Slots.SpecialInstructions = &note
	}
}

func (m *BookingMachine) extractSubcategory(ctx context.Context, utterance string, d *store.BookingDraft) bool {
	subs, err := m.Catalog.ListSubcategories(ctx, store.FindSubcategories{ActiveOnly: true})
	if err != nil {
		return false
	}
	lower := strings.ToLower(utterance)
	for _, s := range subs {
		if strings.Contains(lower, strings.ToLower(s.Name)) {
			id := s.ID
			d.Slots.SubcategoryID = &id
			q := s.Name
			d.Slots.ServiceQuery = &q
			return true
		}
	}
	return false
}

func (m *BookingMachine) extractRateCard(ctx context.Context, utterance string, d *store.BookingDraft) bool {
	if d.Slots.SubcategoryID == nil {
		return false
	}
	cards, err := m.Catalog.ListRateCards(ctx, store.FindRateCards{SubcategoryID: *d.Slots.SubcategoryID, ActiveOnly: true})
	if err != nil || len(cards) == 0 {
		return false
	}
	lower := strings.ToLower(utterance)
	for _, rc := range cards {
		if strings.Contains(lower, strings.ToLower(rc.Name)) {
			id := rc.ID
			d.Slots.RateCardID = &id
			return true
		}
	}
	if strings.Contains(lower, "any") || strings.Contains(lower, "cheapest") || strings.Contains(lower, "whatever") || strings.Contains(lower, "default") {
		cheapest := cards[0]
		for _, rc := range cards[1:] {
			if rc.Price < cheapest.Price {
				cheapest = rc
			}
		}
		id := cheapest.ID
		d.Slots.RateCardID = &id
		return true
	}
	return false
}

func (m *BookingMachine) extractQuantity(utterance string, entities map[string]string, d *store.BookingDraft) bool {
	if q, ok := entities["quantity"]; ok {
		if n, ok := intent.ParseQuantity(q); ok && n > 0 {
			d.Slots.Quantity = &n
			return true
		}
	}
	fields := strings.Fields(utterance)
	for _, f := range fields {
		if n, err := strconv.Atoi(strings.TrimFunc(f, func(r rune) bool { return r < '0' || r > '9' })); err == nil && n > 0 && n <= maxQuantity {
			d.Slots.Quantity = &n
			return true
		}
	}
	one := 1
	d.Slots.Quantity = &one
	return true
}

func (m *BookingMachine) extractAddress(ctx context.Context, utterance string, userRef uint64, d *store.BookingDraft) bool {
	if m.Addresses == nil {
		return false
	}
	resolved, ok, err := m.Addresses.Resolve(ctx, userRef, utterance)
	if err != nil || !ok {
		return false
	}
	d.Slots.AddressID = &resolved.AddressID
	d.Slots.AddressPincode = &resolved.Pincode
	return true
}

func (m *BookingMachine) extractDate(utterance string, entities map[string]string, d *store.BookingDraft) bool {
	if v, ok := entities["date"]; ok && v != "" {
		norm := normalizeRelativeDate(v)
		d.Slots.PreferredDate = &norm
		return true
	}
	if mm := dateRe.FindString(utterance); mm != "" {
		d.Slots.PreferredDate = &mm
		return true
	}
	if mm := relativeDateRe.FindString(utterance); mm != "" {
		norm := normalizeRelativeDate(mm)
		d.Slots.PreferredDate = &norm
		return true
	}
	return false
}

// normalizeRelativeDate resolves to a sentinel the booking agent's commit
// step expands against the clock at commit time; the workflow engine
// itself stays deterministic and clock-free.
func normalizeRelativeDate(v string) string {
	switch strings.ToLower(v) {
	case "today":
		return "today"
	case "tomorrow":
		return "tomorrow"
	default:
		return v
	}
}

func (m *BookingMachine) extractTime(utterance string, entities map[string]string, d *store.BookingDraft) bool {
	if v, ok := entities["time"]; ok && v != "" {
		if norm, ok := normalizeTime(v); ok {
			d.Slots.PreferredTime = &norm
			return true
		}
	}
	if mm := timeRe.FindStringSubmatch(utterance); mm != nil {
		if norm, ok := normalizeTime(mm[0]); ok {
			d.Slots.PreferredTime = &norm
			return true
		}
	}
	if mm := hourOnlyRe.FindStringSubmatch(utterance); mm != nil {
		if norm, ok := normalizeTime(mm[0]); ok {
			d.Slots.PreferredTime = &norm
			return true
		}
	}
	return false
}

func normalizeTime(raw string) (string, bool) {
	raw = strings.ToLower(strings.TrimSpace(raw))
	pm := strings.Contains(raw, "pm")
	raw = strings.TrimSuffix(strings.TrimSuffix(raw, "am"), "pm")
	raw = strings.TrimSpace(raw)
	parts := strings.SplitN(raw, ":", 2)
	hour, err := strconv.Atoi(strings.TrimSpace(parts[0]))
	if err != nil || hour < 0 || hour > 23 {
		return "", false
	}
	minute := 0
	if len(parts) == 2 {
		minute, err = strconv.Atoi(strings.TrimSpace(parts[1]))
		if err != nil || minute < 0 || minute > 59 {
			return "", false
		}
	}
	if pm && hour < 12 {
		hour += 12
	}
	return fmt.Sprintf("%02d:%02d", hour, minute), true
}

func (m *BookingMachine) IsSet(slot string, state *store.WorkflowState) bool {
	d := state.Booking
	switch slot {
	case "subcategory_id":
		return d.Slots.SubcategoryID != nil
	case "rate_card_id":
		return d.Slots.RateCardID != nil
	case "quantity":
		return d.Slots.Quantity != nil
	case "address_id":
		return d.Slots.AddressID != nil
	case "preferred_date":
		return d.Slots.PreferredDate != nil
	case "preferred_time":
		return d.Slots.PreferredTime != nil
	case "special_instructions":
		return d.Slots.SpecialInstructions != nil
	default:
		return false
	}
}

// Validate checks the newly-filled slot against catalog/serviceability
// rules, clearing the slot's value in state on failure so IsSet reports
// it unset again.
func (m *BookingMachine) Validate(ctx context.Context, slot string, state *store.WorkflowState) (string, bool) {
	d := state.Booking
	switch slot {
	case "rate_card_id":
		if d.Slots.RateCardID == nil {
			return "", true
		}
		if _, err := m.Catalog.GetRateCard(ctx, *d.Slots.RateCardID); err != nil {
			d.Slots.RateCardID = nil
			return "That service option isn't available right now.", false
		}
		return "", true
	case "address_id":
		if d.Slots.AddressID == nil || d.Slots.RateCardID == nil {
			return "", true
		}
		rc, err := m.Catalog.GetRateCard(ctx, *d.Slots.RateCardID)
		if err != nil {
			return "", true
		}
		pincode := ""
		if d.Slots.AddressPincode != nil {
			pincode = *d.Slots.AddressPincode
		}
		ok, err := m.Catalog.IsServiceable(ctx, rc.ProviderID, pincode)
		if err == nil && !ok {
			d.Slots.AddressID = nil
			d.Slots.AddressPincode = nil
			return "We don't currently serve that address for this service.", false
		}
		return "", true
	case "quantity":
		if d.Slots.Quantity != nil && (*d.Slots.Quantity < 1 || *d.Slots.Quantity > maxQuantity) {
			d.Slots.Quantity = nil
			return fmt.Sprintf("Please give me a quantity between 1 and %d.", maxQuantity), false
		}
		return "", true
	case "preferred_date":
		if d.Slots.PreferredDate == nil {
			return "", true
		}
		resolved, err := resolveDateForValidation(*d.Slots.PreferredDate, m.now())
		if err != nil {
			d.Slots.PreferredDate = nil
			return "I didn't understand that date. Could you give me a date like 2026-08-05?", false
		}
		if !resolved.After(truncateToDay(m.now())) {
			d.Slots.PreferredDate = nil
			return "Please choose a date starting tomorrow.", false
		}
		return "", true
	case "preferred_time":
		if d.Slots.PreferredTime == nil {
			return "", true
		}
		t, err := time.Parse("15:04", *d.Slots.PreferredTime)
		if err != nil {
			d.Slots.PreferredTime = nil
			return "Please give me a time like 14:30.", false
		}
		if t.Before(businessHoursOpen) || t.After(businessHoursClose) {
			d.Slots.PreferredTime = nil
			return "We only schedule between 08:00 and 20:00.", false
		}
		return "", true
	default:
		return "", true
	}
}

// resolveDateForValidation expands the "today"/"tomorrow" sentinels
// normalizeRelativeDate leaves in place, or parses an explicit
// YYYY-MM-DD date, against now.
func resolveDateForValidation(raw string, now time.Time) (time.Time, error) {
	switch raw {
	case "today":
		return truncateToDay(now), nil
	case "tomorrow":
		return truncateToDay(now.AddDate(0, 0, 1)), nil
	default:
		return time.Parse("2006-01-02", raw)
	}
}

func truncateToDay(t time.Time) time.Time {
	y, mo, d := t.Date()
	return time.Date(y, mo, d, 0, 0, 0, 0, t.Location())
}

func (m *BookingMachine) Prompt(slot string) string {
	switch slot {
	case "subcategory_id":
		return "What service would you like to book?"
	case "rate_card_id":
		return "Which plan would you like for that service?"
	case "quantity":
		return "How many units of this service do you need?"
	case "address_id":
		return "Which address should we send the provider to?"
	case "preferred_date":
		return "What date works for you?"
	case "preferred_time":
		return "What time would you like the service?"
	default:
		return "Could you share a bit more detail?"
	}
}

func (m *BookingMachine) Summary(state *store.WorkflowState) string {
	d := state.Booking
	service := "this service"
	if d.Slots.ServiceQuery != nil {
		service = *d.Slots.ServiceQuery
	}
	qty := 1
	if d.Slots.Quantity != nil {
		qty = *d.Slots.Quantity
	}
	date, tm := "", ""
	if d.Slots.PreferredDate != nil {
		date = *d.Slots.PreferredDate
	}
	if d.Slots.PreferredTime != nil {
		tm = *d.Slots.PreferredTime
	}
	return fmt.Sprintf("To confirm: %s (x%d) on %s at %s. Shall I go ahead and book this?", service, qty, date, tm)
}

func (m *BookingMachine) PendingSlot(state *store.WorkflowState) string { return state.Booking.PendingSlot }
func (m *BookingMachine) SetPendingSlot(state *store.WorkflowState, slot string) {
	state.Booking.PendingSlot = slot
}
func (m *BookingMachine) Confirmed(state *store.WorkflowState) bool { return state.Booking.Confirmed }
func (m *BookingMachine) SetConfirmed(state *store.WorkflowState, v bool) { state.Booking.Confirmed = v }
func (m *BookingMachine) Failures(state *store.WorkflowState) int { return state.Booking.SlotFailures }
func (m *BookingMachine) SetFailures(state *store.WorkflowState, n int) { state.Booking.SlotFailures = n }
func (m *BookingMachine) ConfirmAsked(state *store.WorkflowState) bool { return state.Booking.ConfirmAsked }
func (m *BookingMachine) SetConfirmAsked(state *store.WorkflowState, v bool) { state.Booking.ConfirmAsked = v }
