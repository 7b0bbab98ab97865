package models

import "time"

// Contact types accepted by the auth endpoints.
const (
	ContactTypeTelegram = "telegram"
	ContactTypePhone    = "phone"
)

// OneTimeCode is a short-lived login code bound to a normalized contact
// identifier. At most one live code exists per identifier; issuing a new one
// replaces any previous row.
type OneTimeCode struct {
	ContactIdentifier string    `json:"contact_identifier" db:"contact_identifier"`
	ContactType       string    `json:"contact_type" db:"contact_type"`
	Code              string    `json:"-" db:"code"`
	ExpiresAt         time.Time `json:"expires_at" db:"expires_at"`
	CreatedAt         time.Time `json:"created_at" db:"created_at"`
}

// Session is a long-lived bearer credential minted on successful OTP
// verification. One identifier may hold several concurrent sessions.
type Session struct {
	Token             string    `json:"-" db:"token"`
	ContactIdentifier string    `json:"contact_identifier" db:"contact_identifier"`
	ContactType       string    `json:"contact_type" db:"contact_type"`
	ExpiresAt         time.Time `json:"expires_at" db:"expires_at"`
	LastUsedAt        time.Time `json:"last_used_at" db:"last_used_at"`
	CreatedAt         time.Time `json:"created_at" db:"created_at"`
}

// ChatDirectoryEntry maps a Telegram username to the chat the bot may message.
// UserID is only set when the entry originates from a private one-to-one chat;
// entries without it must never be used as delivery targets.
type ChatDirectoryEntry struct {
	ContactIdentifier string    `json:"contact_identifier" db:"contact_identifier"`
	ChatID            int64     `json:"chat_id" db:"chat_id"`
	UserID            *int64    `json:"user_id" db:"user_id"`
	Username          string    `json:"username" db:"username"`
	FirstName         string    `json:"first_name" db:"first_name"`
	LastName          string    `json:"last_name" db:"last_name"`
	UpdatedAt         time.Time `json:"updated_at" db:"updated_at"`
}

// Trusted reports whether the entry is proven to come from a private chat.
func (e *ChatDirectoryEntry) Trusted() bool {
	return e != nil && e.UserID != nil
}

// DeliveryStatus is the outcome of a best-effort attempt to push a one-time
// code out through a messaging channel. Failures never abort code issuance.
type DeliveryStatus string

const (
	DeliveryStatusDelivered        DeliveryStatus = "delivered"
	DeliveryStatusRecipientUnknown DeliveryStatus = "recipient_unknown"
	DeliveryStatusChannelError     DeliveryStatus = "channel_error"
	DeliveryStatusNotAttempted     DeliveryStatus = "not_attempted"
)

// Identity is the resolved owner of a request: either the contact bound to a
// verified session, or inline contact data supplied by an anonymous caller.
type Identity struct {
	ContactIdentifier string `json:"contact"`
	ContactType       string `json:"contactType"`
	Authenticated     bool   `json:"authenticated"`
}

// OTPRequest is the body for requesting a one-time code. Exactly one of
// Telegram or Phone must be present.
type OTPRequest struct {
	Telegram string `json:"telegram"`
	Phone    string `json:"phone"`
}

// OTPVerifyRequest is the body for exchanging a code for a session.
type OTPVerifyRequest struct {
	Telegram string `json:"telegram"`
	Phone    string `json:"phone"`
	OTP      string `json:"otp" binding:"required"`
}

// AuthResponse is returned on successful OTP verification. ExpiresAt is a
// millisecond epoch so browser clients can feed it to Date directly.
type AuthResponse struct {
	Success      bool   `json:"success"`
	SessionToken string `json:"sessionToken"`
	ExpiresAt    int64  `json:"expiresAt"`
}

// HandshakeRequest is the body the bot sends to obtain a one-shot login token.
type HandshakeRequest struct {
	UserID   int64  `json:"userId" binding:"required"`
	BotToken string `json:"botToken" binding:"required"`
}

// HandshakeResponse carries the minted token and where to send the user.
type HandshakeResponse struct {
	Token       string `json:"token"`
	CallbackURL string `json:"callbackUrl"`
	ExpiresIn   int    `json:"expiresIn"`
}
