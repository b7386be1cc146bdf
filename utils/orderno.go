package utils

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"time"
)

// OrderNumberPrefix is the brand prefix on every order number
const OrderNumberPrefix = "HG"

// GenerateOrderNumber returns an order number in the format HG-YYYY-XXXXX,
// where XXXXX is a zero-padded random 5-digit suffix. Suffixes are random,
// not sequential, so callers must retry against the unique index on
// orders.order_number.
func GenerateOrderNumber() string {
	year := time.Now().Year()
	n, err := rand.Int(rand.Reader, big.NewInt(100000))
	if err != nil {
		// crypto/rand only fails when the platform entropy source is broken;
		// fall back to a time-derived suffix rather than panicking mid-checkout
		n = big.NewInt(time.Now().UnixNano() % 100000)
	}
	return fmt.Sprintf("%s-%d-%05d", OrderNumberPrefix, year, n.Int64())
}
