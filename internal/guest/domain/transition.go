package domain

import (
	"sort"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

// Transition is the planned effect of moving one guest to a new RSVP status.
// It is computed from the current row alone so the side effects can be
// inspected without a database.
type Transition struct {
	From   RSVPStatus
	To     RSVPStatus
	Method string
	Reason *string
	At     time.Time

	Archive    bool
	Restore    bool
	LogDecline bool
}

// PlanResponse plans a guest-initiated decision. Declining archives the
// guest; confirming brings an archived guest back.
func PlanResponse(g Guest, to RSVPStatus, method string, at time.Time) (Transition, error) {
	if to != StatusConfirmed && to != StatusDeclined {
		return Transition{}, ErrInvalidStatus
	}
	if strings.TrimSpace(method) == "" {
		method = MethodGuestForm
	}

	t := Transition{From: g.RSVPStatus, To: to, Method: method, At: at}
	switch to {
	case StatusDeclined:
		t.Archive = true
		t.LogDecline = true
	case StatusConfirmed:
		t.Restore = g.IsArchived
	}
	return t, nil
}

// PlanOverride plans an administrative status change. Archival is untouched.
func PlanOverride(g Guest, to RSVPStatus, reason string, at time.Time) (Transition, error) {
	if !to.Valid() {
		return Transition{}, ErrInvalidStatus
	}
	t := Transition{From: g.RSVPStatus, To: to, Method: MethodAdminOverride, At: at}
	if r := strings.TrimSpace(reason); r != "" {
		t.Reason = &r
	}
	return t, nil
}

// Apply mutates g and returns the columns to persist.
func (t Transition) Apply(g *Guest) map[string]any {
	at := t.At
	g.RSVPStatus = t.To
	if t.To == StatusPending {
		g.RSVPRespondedAt = nil
	} else {
		g.RSVPRespondedAt = &at
	}
	g.UpdatedAt = at

	fields := map[string]any{
		"rsvp_status":       t.To,
		"rsvp_responded_at": g.RSVPRespondedAt,
		"updated_at":        at,
	}

	switch {
	case t.Archive:
		g.IsArchived = true
		g.ArchivedAt = &at
		fields["is_archived"] = true
		fields["archived_at"] = &at
	case t.Restore:
		g.IsArchived = false
		g.ArchivedAt = nil
		fields["is_archived"] = false
		fields["archived_at"] = nil
	}
	return fields
}

func (t Transition) HistoryEntry(id, guestID snowflake.ID) HistoryEntry {
	return HistoryEntry{
		ID:           id,
		GuestID:      guestID,
		OldStatus:    t.From,
		NewStatus:    t.To,
		ChangedAt:    t.At,
		ChangeMethod: t.Method,
		ChangeReason: t.Reason,
	}
}

// ApplyPayload copies the submitted details onto g, replacing what was there,
// and returns the columns to persist. Contact fields are only replaced when
// given.
func ApplyPayload(g *Guest, p ResponsePayload) map[string]any {
	fields := map[string]any{}

	if email := strings.TrimSpace(p.Email); email != "" {
		g.Email = email
		fields["email"] = email
	}
	if phone := strings.TrimSpace(p.Phone); phone != "" {
		g.Phone = &phone
		fields["phone"] = &phone
	}

	g.PlusOneName, g.PlusOneEmail = nil, nil
	if p.PlusOne != nil && strings.TrimSpace(p.PlusOne.Name) != "" {
		name := strings.TrimSpace(p.PlusOne.Name)
		g.PlusOneName = &name
		if email := strings.TrimSpace(p.PlusOne.Email); email != "" {
			g.PlusOneEmail = &email
		}
	}
	fields["plus_one_name"] = g.PlusOneName
	fields["plus_one_email"] = g.PlusOneEmail

	g.DietaryNeeds = NormalizeSet(p.DietaryNeeds)
	g.Allergies = NormalizeSet(p.Allergies)
	fields["dietary_needs"] = g.DietaryNeeds
	fields["allergies"] = g.Allergies

	g.SpecialRequests = nil
	if req := strings.TrimSpace(p.SpecialRequests); req != "" {
		g.SpecialRequests = &req
	}
	fields["special_requests"] = g.SpecialRequests

	return fields
}

// NormalizeSet trims, lowercases, dedupes and sorts set members.
func NormalizeSet(values []string) datatypes.JSONSlice[string] {
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		v = strings.ToLower(strings.TrimSpace(v))
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	sort.Strings(out)
	return datatypes.JSONSlice[string](out)
}
