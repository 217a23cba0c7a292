package ir

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
)

// Domain prefix for model fingerprints.
// Version suffix enables future algorithm migration.
const DomainModel = "rowbridge/model/v1"

// hashWithDomain computes SHA-256 hash with domain separation.
// Format: SHA256(domain + 0x00 + data)
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// ModelHash fingerprints a model's table layout. Owner is excluded, so the
// same model resolved for different users hashes identically.
func ModelHash(def ModelDefinition) (string, error) {
	def.Owner = ""
	data, err := json.Marshal(def)
	if err != nil {
		return "", fmt.Errorf("ModelHash: failed to marshal: %w", err)
	}
	return hashWithDomain(DomainModel, data), nil
}
