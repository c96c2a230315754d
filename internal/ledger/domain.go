// Package ledger defines the records shared by the stock ledger, the cash
// ledger and the transaction log.
package ledger

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// TransactionType enumerates supported ledger movements.
type TransactionType string

const (
	TypeSale       TransactionType = "sale"
	TypePurchase   TransactionType = "purchase"
	TypeLoss       TransactionType = "loss"
	TypeTransfer   TransactionType = "transfer"
	TypeSalary     TransactionType = "salary"
	TypeAccounting TransactionType = "accounting"
)

// Valid reports whether t is a known transaction type.
func (t TransactionType) Valid() bool {
	switch t {
	case TypeSale, TypePurchase, TypeLoss, TypeTransfer, TypeSalary, TypeAccounting:
		return true
	}
	return false
}

// MovesStock reports whether transactions of this type touch product quantities.
func (t TransactionType) MovesStock() bool {
	return t != TypeSalary && t != TypeAccounting
}

var (
	// ErrInvalidTransaction covers structurally unusable transactions.
	ErrInvalidTransaction = errors.New("ledger: invalid transaction")
	// ErrInvalidEntry covers structurally unusable accounting entries.
	ErrInvalidEntry = errors.New("ledger: invalid accounting entry")
)

// TransactionItem is one line of a transaction. Price and Cost are snapshots
// taken when the transaction was recorded.
type TransactionItem struct {
	ProductID     string          `json:"productId"`
	ProductName   string          `json:"productName"`
	Quantity      int             `json:"quantity"`
	BoxQuantity   int             `json:"boxQuantity,omitempty"`
	PieceQuantity int             `json:"pieceQuantity,omitempty"`
	Price         decimal.Decimal `json:"price"`
	Cost          decimal.Decimal `json:"cost"`
	LossQuantity  int             `json:"lossQuantity,omitempty"`
	Unit          string          `json:"unit,omitempty"`
	Packaging     string          `json:"packaging,omitempty"`
}

// Outbound is the quantity leaving stock for a sale or loss line.
func (i TransactionItem) Outbound() int {
	return i.Quantity + i.LossQuantity
}

// LineTotal is price times quantity.
func (i TransactionItem) LineTotal() decimal.Decimal {
	return i.Price.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// LineCost is the snapshot cost times quantity.
func (i TransactionItem) LineCost() decimal.Decimal {
	return i.Cost.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// Transaction is an immutable entry of the transaction log.
type Transaction struct {
	ID              string            `json:"id"`
	Date            string            `json:"date"`
	Type            TransactionType   `json:"type"`
	Items           []TransactionItem `json:"items"`
	TotalAmount     decimal.Decimal   `json:"totalAmount"`
	TotalCost       decimal.Decimal   `json:"totalCost"`
	EntityID        string            `json:"entityId,omitempty"`
	EntityName      string            `json:"entityName"`
	WarehouseID     string            `json:"warehouseId,omitempty"`
	FromWarehouseID string            `json:"fromWarehouseId,omitempty"`
	ToWarehouseID   string            `json:"toWarehouseId,omitempty"`
	SafeID          string            `json:"safeId,omitempty"`
	BranchID        string            `json:"branchId,omitempty"`
	IsRevenue       bool              `json:"isRevenue,omitempty"`
}

// Clone returns a copy that does not share the items slice.
func (t Transaction) Clone() Transaction {
	out := t
	if t.Items != nil {
		out.Items = make([]TransactionItem, len(t.Items))
		copy(out.Items, t.Items)
	}
	return out
}

// Validate checks structural requirements only. Business conditions such as
// missing references or oversell are reported as warnings when applied.
func (t Transaction) Validate() error {
	if !t.Type.Valid() {
		return fmt.Errorf("%w: unknown type %q", ErrInvalidTransaction, t.Type)
	}
	if t.Date == "" {
		return fmt.Errorf("%w: date required", ErrInvalidTransaction)
	}
	for _, item := range t.Items {
		if item.Quantity < 0 || item.LossQuantity < 0 {
			return fmt.Errorf("%w: negative quantity for %s", ErrInvalidTransaction, item.ProductID)
		}
	}
	if t.Type == TypeTransfer && (t.FromWarehouseID == "" || t.ToWarehouseID == "") {
		return fmt.Errorf("%w: transfer requires source and destination", ErrInvalidTransaction)
	}
	if len(t.Items) > 0 && t.Type.MovesStock() && t.Type != TypeTransfer && t.WarehouseID == "" {
		return fmt.Errorf("%w: %s with items requires a warehouse", ErrInvalidTransaction, t.Type)
	}
	return nil
}

// EntryType is the polarity of an accounting entry.
type EntryType string

const (
	EntryRevenue EntryType = "revenue"
	EntryExpense EntryType = "expense"
)

// AccountingEntry is a manual revenue or expense booked against a safe.
type AccountingEntry struct {
	ID         string          `json:"id"`
	Date       string          `json:"date"`
	Type       EntryType       `json:"type"`
	Category   string          `json:"category"`
	Amount     decimal.Decimal `json:"amount"`
	SafeID     string          `json:"safeId"`
	Note       string          `json:"note,omitempty"`
	BranchID   string          `json:"branchId,omitempty"`
	EntityID   string          `json:"entityId,omitempty"`
	EntityType string          `json:"entityType,omitempty"`
}

// Validate checks the entry shape.
func (e AccountingEntry) Validate() error {
	if e.Type != EntryRevenue && e.Type != EntryExpense {
		return fmt.Errorf("%w: unknown type %q", ErrInvalidEntry, e.Type)
	}
	if !e.Amount.IsPositive() {
		return fmt.Errorf("%w: amount must be positive", ErrInvalidEntry)
	}
	if e.Date == "" {
		return fmt.Errorf("%w: date required", ErrInvalidEntry)
	}
	return nil
}

// Mirror builds the synthetic log transaction that represents the entry.
func (e AccountingEntry) Mirror() Transaction {
	name := e.Note
	if name == "" {
		name = fmt.Sprintf("%s: %s", e.Type, e.Category)
	}
	return Transaction{
		ID:          e.ID,
		Date:        e.Date,
		Type:        TypeAccounting,
		Items:       []TransactionItem{},
		TotalAmount: e.Amount,
		TotalCost:   decimal.Zero,
		EntityID:    e.EntityID,
		EntityName:  name,
		SafeID:      e.SafeID,
		BranchID:    e.BranchID,
		IsRevenue:   e.Type == EntryRevenue,
	}
}

// SalaryPayment records a payroll disbursement.
type SalaryPayment struct {
	ID           string          `json:"id"`
	EmployeeID   string          `json:"employeeId"`
	EmployeeName string          `json:"employeeName"`
	Month        int             `json:"month"`
	Year         int             `json:"year"`
	Bonus        decimal.Decimal `json:"bonus"`
	Deduction    decimal.Decimal `json:"deduction"`
	NetSalary    decimal.Decimal `json:"netSalary"`
	Date         string          `json:"date"`
	SafeID       string          `json:"safeId,omitempty"`
	BranchID     string          `json:"branchId,omitempty"`
}

// Transaction builds the salary transaction appended to the log.
func (p SalaryPayment) Transaction() Transaction {
	return Transaction{
		ID:          p.ID,
		Date:        p.Date,
		Type:        TypeSalary,
		Items:       []TransactionItem{},
		TotalAmount: p.NetSalary,
		TotalCost:   decimal.Zero,
		EntityID:    p.EmployeeID,
		EntityName:  fmt.Sprintf("salary: %s (%d/%d)", p.EmployeeName, p.Month, p.Year),
		SafeID:      p.SafeID,
		BranchID:    p.BranchID,
	}
}

// NewTransactionID returns a time-ordered unique identifier.
func NewTransactionID() string {
	if id, err := uuid.NewV7(); err == nil {
		return id.String()
	}
	return uuid.NewString()
}
