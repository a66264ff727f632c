package model

import (
	"crypto/sha256"
	"fmt"
	"time"
)

// Context is one city's bound knowledge. It is a value type: copies share
// nothing mutable, so a Context captured at submission time cannot change
// underneath an in-flight query.
type Context struct {
	BoundAt     time.Time
	City        City
	Text        string
	Fingerprint string
}

// Fingerprint returns the deterministic digest of knowledge text.
func Fingerprint(text string) string {
	sum := sha256.Sum256([]byte(text))
	return fmt.Sprintf("%x", sum)
}

// IsZero reports whether the context was never bound.
func (c Context) IsZero() bool {
	return c.City == "" && c.Text == "" && c.Fingerprint == ""
}

// Intact reports whether Text still hashes to Fingerprint.
func (c Context) Intact() bool {
	return c.Fingerprint != "" && Fingerprint(c.Text) == c.Fingerprint
}

// ShortFingerprint is the first 12 hex characters, for logs and display.
func (c Context) ShortFingerprint() string {
	if len(c.Fingerprint) <= 12 {
		return c.Fingerprint
	}
	return c.Fingerprint[:12]
}
