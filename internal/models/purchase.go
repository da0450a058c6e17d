package models

// PurchaseRecord is one row of the state-wise purchase table.
type PurchaseRecord struct {
	State       string  `json:"state"`
	PurchasedKg float64 `json:"purchased_kg"`
}
