package services

import (
	"strings"

	"github.com/vitalform/backend-api/internal/models"
	"golang.org/x/text/unicode/norm"
)

// NormalizeTelegram canonicalizes a Telegram handle: NFKC fold, strip a
// leading @, lowercase. Idempotent.
func NormalizeTelegram(raw string) string {
	s := norm.NFKC.String(strings.TrimSpace(raw))
	s = strings.TrimPrefix(s, "@")
	return strings.ToLower(s)
}

// NormalizePhone canonicalizes a phone string by dropping whitespace,
// hyphens and parentheses. A leading + is kept. Idempotent.
func NormalizePhone(raw string) string {
	s := norm.NFKC.String(raw)
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		switch r {
		case ' ', '\t', '-', '(', ')', '.':
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// NormalizeContact dispatches on contact type. Unknown types normalize to
// the empty string, which callers treat as a validation failure.
func NormalizeContact(raw, contactType string) string {
	switch contactType {
	case models.ContactTypeTelegram:
		return NormalizeTelegram(raw)
	case models.ContactTypePhone:
		return NormalizePhone(raw)
	default:
		return ""
	}
}
