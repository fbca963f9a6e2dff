package model

import (
	"crypto/sha256"
	"encoding/hex"
	"time"
)

// Fingerprint is the hex encoded sha256 of a revision's raw bytes.
type Fingerprint string

func ComputeFingerprint(data []byte) Fingerprint {
	sum := sha256.Sum256(data)
	return Fingerprint(hex.EncodeToString(sum[:]))
}

func (f Fingerprint) String() string {
	return string(f)
}

// Short returns the first 8 chars, for log lines.
func (f Fingerprint) Short() string {
	if len(f) <= 8 {
		return string(f)
	}
	return string(f[:8])
}

type Revision struct {
	Fingerprint Fingerprint
	Source      string
}

type HistoryEntry struct {
	ObservedAt  time.Time
	Fingerprint Fingerprint
}
