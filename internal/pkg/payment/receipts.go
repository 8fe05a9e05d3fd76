package payment

import (
	"time"

	"github.com/ManuelReschke/BookForge/internal/pkg/cache"
)

const receiptTTL = 24 * time.Hour

// ReceiptStore remembers which gateway order a (user, receipt) pair created,
// so repeated order requests skip the gateway round trip.
type ReceiptStore interface {
	Lookup(userID, receipt string) (string, bool)
	Remember(userID, receipt, gatewayOrderID string)
}

type redisReceiptStore struct{}

// NewRedisReceiptStore returns a ReceiptStore backed by the shared cache.
func NewRedisReceiptStore() ReceiptStore {
	return redisReceiptStore{}
}

func (redisReceiptStore) Lookup(userID, receipt string) (string, bool) {
	orderID, err := cache.Get(receiptKey(userID, receipt))
	if err != nil || orderID == "" {
		return "", false
	}
	return orderID, true
}

func (redisReceiptStore) Remember(userID, receipt, gatewayOrderID string) {
	_ = cache.Set(receiptKey(userID, receipt), gatewayOrderID, receiptTTL)
}

func receiptKey(userID, receipt string) string {
	return "payment:receipt:" + userID + ":" + receipt
}
