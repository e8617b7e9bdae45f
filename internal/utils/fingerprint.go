package utils

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

// CartFingerprint derives a stable idempotency key from the checkout inputs.
// Item order must not matter: the same cart submitted twice hashes the same.
func CartFingerprint(clerkID string, items []FingerprintItem, shippingAddress interface{}) string {
	parts := make([]string, 0, len(items))
	for _, it := range items {
		parts = append(parts, fmt.Sprintf("%s|%s|%.2f|%d", it.ProductID, it.Size, it.Price, it.Quantity))
	}
	sort.Strings(parts)

	addr, _ := json.Marshal(shippingAddress)

	h := sha256.New()
	h.Write([]byte(clerkID))
	h.Write([]byte{0})
	h.Write([]byte(strings.Join(parts, ";")))
	h.Write([]byte{0})
	h.Write(addr)

	return hex.EncodeToString(h.Sum(nil))
}

type FingerprintItem struct {
	ProductID string
	Size      string
	Price     float64
	Quantity  int
}
