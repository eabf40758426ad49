package whatsapp

import (
	"strings"

	"go.mau.fi/whatsmeow/types"
)

// NormalizePhoneNumber turns what people type into the bare international
// digits WhatsApp addresses use. A national number with a leading 0 gets
// countryPrefix in place of the 0.
func NormalizePhoneNumber(raw, countryPrefix string) string {
	var b strings.Builder
	for _, r := range raw {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	digits := b.String()
	prefix := strings.TrimPrefix(strings.TrimSpace(countryPrefix), "+")

	switch {
	case strings.HasPrefix(digits, "00"):
		digits = digits[2:]
	case prefix != "" && strings.HasPrefix(digits, "0") && !strings.HasPrefix(strings.TrimSpace(raw), "+"):
		digits = prefix + digits[1:]
	}
	// "+62 0812..." style: the trunk 0 after the country code is dropped.
	if prefix != "" && strings.HasPrefix(digits, prefix+"0") {
		digits = prefix + digits[len(prefix)+1:]
	}
	return digits
}

// senderPhone returns the sender's number as +digits, or "" when the sender
// is not addressed by phone number.
func senderPhone(jid types.JID) string {
	if jid.Server != types.DefaultUserServer || jid.User == "" {
		return ""
	}
	return "+" + jid.User
}
