package services

import (
	cryptorand "crypto/rand"
	"encoding/hex"
	"fmt"
	"sync"
	"time"
)

const (
	defaultVaultTTL = 5 * time.Minute
	vaultTokenBytes = 16
)

// TokenVault holds short-lived bot handshake tokens. A token maps to the
// Telegram user id it was minted for; verification does not consume it, so
// callers delete explicitly once the exchange completes.
type TokenVault interface {
	Issue(userID int64) (string, error)
	Verify(token string) (int64, bool)
	Delete(token string)
}

type vaultEntry struct {
	userID    int64
	expiresAt time.Time
	timer     *time.Timer
}

// MemoryTokenVault is a process-local TokenVault. Entries self-destruct after
// the TTL via a per-token timer, and Verify double-checks expiry so a token is
// never honored late even if the timer has not fired yet.
type MemoryTokenVault struct {
	mu     sync.Mutex
	ttl    time.Duration
	now    func() time.Time
	tokens map[string]*vaultEntry
}

func NewMemoryTokenVault() *MemoryTokenVault {
	return NewMemoryTokenVaultWithTTL(defaultVaultTTL)
}

func NewMemoryTokenVaultWithTTL(ttl time.Duration) *MemoryTokenVault {
	return &MemoryTokenVault{
		ttl:    ttl,
		now:    time.Now,
		tokens: make(map[string]*vaultEntry),
	}
}

func (v *MemoryTokenVault) Issue(userID int64) (string, error) {
	buf := make([]byte, vaultTokenBytes)
	if _, err := cryptorand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate handshake token: %w", err)
	}
	token := hex.EncodeToString(buf)

	v.mu.Lock()
	defer v.mu.Unlock()

	v.tokens[token] = &vaultEntry{
		userID:    userID,
		expiresAt: v.now().Add(v.ttl),
		timer:     time.AfterFunc(v.ttl, func() { v.Delete(token) }),
	}
	return token, nil
}

func (v *MemoryTokenVault) Verify(token string) (int64, bool) {
	v.mu.Lock()
	defer v.mu.Unlock()

	entry, ok := v.tokens[token]
	if !ok {
		return 0, false
	}
	if v.now().After(entry.expiresAt) {
		entry.timer.Stop()
		delete(v.tokens, token)
		return 0, false
	}
	return entry.userID, true
}

func (v *MemoryTokenVault) Delete(token string) {
	v.mu.Lock()
	defer v.mu.Unlock()

	if entry, ok := v.tokens[token]; ok {
		entry.timer.Stop()
		delete(v.tokens, token)
	}
}
