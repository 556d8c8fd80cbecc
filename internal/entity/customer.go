// Package entity defines the persisted domain entities.
package entity

import (
	"time"

	"github.com/google/uuid"
)

// Customer is the sole persisted entity. The field declaration order is
// load-bearing: it defines the column order for generated INSERT and
// UPDATE statements (see internal/storage).
//
// CustomerID and CustomerCode are immutable after creation. Optional
// string fields use "" for absent; LastPurchaseDate is date-only.
type Customer struct {
	CustomerID              uuid.UUID  `json:"customerID"`
	CustomerType            string     `json:"customerType"`
	CustomerCode            string     `json:"customerCode"`
	CustomerName            string     `json:"customerName"`
	CustomerPhoneNumber     string     `json:"customerPhoneNumber"`
	CustomerEmail           string     `json:"customerEmail"`
	CustomerShippingAddress string     `json:"customerShippingAddress"`
	CustomerTaxCode         string     `json:"customerTaxCode"`
	LastPurchaseDate        *time.Time `json:"lastPurchaseDate"`
	PurchasedItemCode       string     `json:"purchasedItemCode"`
	PurchasedItemName       string     `json:"purchasedItemName"`
	CustomerAvatarURL       string     `json:"customerAvatarUrl"`
	IsDeleted               bool       `json:"-"`
}
