package domain

import (
	"strings"
	"unicode"
)

var (
	acceptWords    = []string{"yes", "y", "yep", "yeah", "accept", "accepting", "attending", "coming", "confirm", "✅"}
	declineWords   = []string{"no", "n", "nope", "decline", "declining", "❌"}
	declinePhrases = []string{"not coming", "can't come", "cannot come", "won't come", "can't make it", "not attending"}
)

// ParseReply reads a free-text chat reply as an RSVP decision. Declines are
// checked first so "not coming" is not read as "coming".
func ParseReply(text string) (RSVPStatus, bool) {
	text = strings.ToLower(strings.TrimSpace(text))
	if text == "" {
		return "", false
	}

	for _, phrase := range declinePhrases {
		if strings.Contains(text, phrase) {
			return StatusDeclined, true
		}
	}

	words := strings.FieldsFunc(text, func(r rune) bool {
		return unicode.IsSpace(r) || (unicode.IsPunct(r) && r != '\'')
	})
	var accept, decline bool
	for _, w := range words {
		if contains(declineWords, w) {
			decline = true
		}
		if contains(acceptWords, w) {
			accept = true
		}
	}
	if strings.Contains(text, "✅") {
		accept = true
	}
	if strings.Contains(text, "❌") {
		decline = true
	}

	switch {
	case decline && !accept:
		return StatusDeclined, true
	case accept && !decline:
		return StatusConfirmed, true
	default:
		return "", false
	}
}

func contains(list []string, v string) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}
