package ledger

import "fmt"

// WarningKind classifies a condition absorbed while applying a transaction.
type WarningKind string

const (
	WarnReferenceNotFound WarningKind = "reference_not_found"
	WarnInsufficientStock WarningKind = "insufficient_stock"
)

// Warning describes a non-fatal condition. The transaction is still recorded.
type Warning struct {
	Kind          WarningKind `json:"kind"`
	TransactionID string      `json:"transactionId,omitempty"`
	ProductID     string      `json:"productId,omitempty"`
	WarehouseID   string      `json:"warehouseId,omitempty"`
	SafeID        string      `json:"safeId,omitempty"`
	Requested     int         `json:"requested,omitempty"`
	Available     int         `json:"available,omitempty"`
}

func (w Warning) String() string {
	switch w.Kind {
	case WarnInsufficientStock:
		return fmt.Sprintf("insufficient stock for product %s in warehouse %s: requested %d, available %d",
			w.ProductID, w.WarehouseID, w.Requested, w.Available)
	case WarnReferenceNotFound:
		if w.SafeID != "" {
			return fmt.Sprintf("safe %s not found", w.SafeID)
		}
		return fmt.Sprintf("product %s not found", w.ProductID)
	}
	return string(w.Kind)
}

// Outcome is the result of appending to the log.
type Outcome struct {
	Transaction Transaction `json:"transaction"`
	Warnings    []Warning   `json:"warnings,omitempty"`
}

// HasWarnings reports whether anything was absorbed.
func (o Outcome) HasWarnings() bool {
	return len(o.Warnings) > 0
}
