package utils

import (
	"crypto/rand"
	"math/big"
	"time"
)

// maxOrderCode keeps generated codes within what the payment provider
// accepts for a numeric merchant order code.
const maxOrderCode = int64(9007199254740991) // 2^53-1, safe for JS clients

// GenerateOrderCode returns a random positive merchant order code. The
// previous scheme (truncated unix timestamp) collides under load; uniqueness
// is still enforced by the orders.orderCode index, this just makes retries
// on collision rare.
func GenerateOrderCode() int64 {
	n, err := rand.Int(rand.Reader, big.NewInt(maxOrderCode-1))
	if err != nil {
		// fallback: time-based entropy
		return time.Now().UnixNano() % maxOrderCode
	}
	return n.Int64() + 1
}
