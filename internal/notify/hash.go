package notify

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
)

// DomainEvent prefixes content ids of completion events.
// Version suffix enables future algorithm migration.
const DomainEvent = "arclot/notify-event/v1"

// hashWithDomain computes SHA256(domain + 0x00 + data).
// The null byte separator prevents domain/data boundary ambiguity.
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// EventID computes the content id of the event published for one sink role
// of one lot. The id is stable across retries given the same inputs.
func EventID(role, lot, manifest string) string {
	// Struct fields marshal in declaration order, so the encoding is
	// deterministic.
	data, _ := json.Marshal(struct {
		Role     string `json:"role"`
		Lot      string `json:"lot"`
		Manifest string `json:"manifest"`
	}{role, lot, manifest})
	return hashWithDomain(DomainEvent, data)
}
