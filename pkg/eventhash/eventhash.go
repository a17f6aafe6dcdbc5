// Package eventhash produces the integrity hash stored alongside audit
// event payloads. Map keys are marshaled in sorted order, so two payloads
// describing the same state hash identically.
package eventhash

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
)

func Sum(payload any) (string, []byte, error) {
	b, err := json.Marshal(payload)
	if err != nil {
		return "", nil, err
	}
	sum := sha256.Sum256(b)
	return "sha256:" + hex.EncodeToString(sum[:]), b, nil
}
