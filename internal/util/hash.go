// Package util holds small helpers shared by cratescribe packages.
package util

import (
	"crypto/sha256"
	"encoding/hex"
	"time"
)

// RecordID derives a description record id from the manifest path and
// the time the description was generated.
func RecordID(manifestPath string, at time.Time) string {
	hasher := sha256.New()
	hasher.Write([]byte(manifestPath))
	hasher.Write([]byte(at.UTC().Format(time.RFC3339Nano)))
	return hex.EncodeToString(hasher.Sum(nil))[:16]
}
