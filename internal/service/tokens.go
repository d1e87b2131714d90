package service

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"
)

// Token sizes in random bytes. Hex encoding doubles the length.
const (
	joinSessionTokenBytes = 16
	inviteTokenBytes      = 32
)

// Clock returns the current time. Services take one so expiry logic can be tested.
type Clock func() time.Time

func systemClock() time.Time {
	return time.Now().UTC()
}

// TokenGenerator returns an unguessable hex token of n random bytes.
type TokenGenerator func(n int) (string, error)

func randomHexToken(n int) (string, error) {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate token: %w", err)
	}
	return hex.EncodeToString(buf), nil
}
