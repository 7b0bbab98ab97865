// Package utils holds small shared helpers with no dependencies on the rest
// of the service.
package utils

import "strings"

// MaskContact redacts a contact identifier for log output. Phone numbers keep
// their last four digits, handles keep their first two characters. Log lines
// stay correlatable without writing the identifier itself to disk.
func MaskContact(contact string) string {
	if contact == "" {
		return ""
	}
	if isPhone(contact) {
		return MaskPhone(contact)
	}
	if len(contact) <= 2 {
		return strings.Repeat("*", len(contact))
	}
	return contact[:2] + strings.Repeat("*", len(contact)-2)
}

// MaskPhone shows only the last four digits of a phone number.
func MaskPhone(phone string) string {
	if len(phone) <= 4 {
		return strings.Repeat("*", len(phone))
	}
	return strings.Repeat("*", len(phone)-4) + phone[len(phone)-4:]
}

// MaskToken shows the first six and last four characters of a token, enough
// to match a log line to a stored session without exposing the credential.
func MaskToken(token string) string {
	if len(token) <= 12 {
		return strings.Repeat("*", len(token))
	}
	return token[:6] + "..." + token[len(token)-4:]
}

// MaskSecret fully redacts a value regardless of length.
func MaskSecret(secret string) string {
	if secret == "" {
		return ""
	}
	return "********"
}

func isPhone(s string) bool {
	if s == "" {
		return false
	}
	for i, r := range s {
		if r >= '0' && r <= '9' {
			continue
		}
		if i == 0 && r == '+' {
			continue
		}
		return false
	}
	return true
}
