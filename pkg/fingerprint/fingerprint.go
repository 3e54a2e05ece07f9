// Package fingerprint derives deterministic identities for player records so
// commits can skip rows the register already holds.
package fingerprint

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"

	"github.com/Ramsey-B/thistle/pkg/models"
	"github.com/Ramsey-B/thistle/pkg/normalizers"
)

// Record creates a deterministic fingerprint for a player record. The hash is
// computed over normalized fields in a fixed order, so cosmetic differences
// in case or surrounding whitespace do not produce distinct register rows.
func Record(rec models.PlayerRecord) string {
	parts := []string{
		normalizers.Trim(rec.PlayerID),
		normalizers.NormalizeName(rec.FirstName),
		normalizers.NormalizeName(rec.LastName),
		normalizers.ApplyChain(rec.Postcode, "trim", "uppercase"),
		normalizers.Trim(rec.DOB),
		normalizers.NormalizePhone(rec.Mobile),
		normalizers.NormalizeEmail(rec.Email),
		normalizers.NormalizeCasino(rec.Casino),
		normalizers.Trim(rec.NetworkID),
	}

	canonical := strings.Join(parts, "\x1f")
	hash := sha256.Sum256([]byte(canonical))
	return hex.EncodeToString(hash[:])
}

// HasChanged compares two fingerprints to detect changes
func HasChanged(oldFingerprint, newFingerprint string) bool {
	return oldFingerprint != newFingerprint
}
