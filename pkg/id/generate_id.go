package id

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"math/big"
	"time"
)

// NewID32 returns exactly 32 hex characters (no separators/prefixes).
func NewID32() string {
	b := make([]byte, 16)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}

// newRef builds a human-readable reference: prefix + unix millis + 3 random digits.
func newRef(prefix string) string {
	n, _ := rand.Int(rand.Reader, big.NewInt(1000))
	return fmt.Sprintf("%s%d%03d", prefix, time.Now().UnixMilli(), n.Int64())
}

// NewLoanAccountNumber returns a loan account number like LN1736123456789042.
func NewLoanAccountNumber() string { return newRef("LN") }

// NewTransactionRef returns a transaction reference like TXN1736123456789042.
func NewTransactionRef() string { return newRef("TXN") }

// NewOrderID returns a payment order id like ORD1736123456789042.
func NewOrderID() string { return newRef("ORD") }

// NewRefundID returns a refund reference like RF1736123456789042.
func NewRefundID() string { return newRef("RF") }
