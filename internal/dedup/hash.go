// Package dedup computes the content hashes used as import identity keys.
package dedup

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
)

// Hash returns a hex SHA-256 over the identity fields. encoding/json sorts map
// keys, so the result does not depend on insertion order.
func Hash(fields map[string]string) string {
	b, err := json.Marshal(fields)
	if err != nil {
		// a map[string]string always marshals
		panic(err)
	}
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}

// LocationHash is the identity of an imported location.
func LocationHash(titleDe, titleEn string) string {
	return Hash(map[string]string{"titleDe": titleDe, "titleEn": titleEn})
}

// EventHash is the identity of an event imported from the feed.
func EventHash(externalID string) string {
	return Hash(map[string]string{"externalId": externalID})
}
