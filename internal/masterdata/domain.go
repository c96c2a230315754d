package masterdata

import (
	"errors"

	"github.com/shopspring/decimal"
)

// Kind names a registry collection.
type Kind string

const (
	KindProduct   Kind = "product"
	KindCustomer  Kind = "customer"
	KindSupplier  Kind = "supplier"
	KindWarehouse Kind = "warehouse"
	KindBranch    Kind = "branch"
	KindSafe      Kind = "safe"
	KindEmployee  Kind = "employee"
	KindUser      Kind = "user"
)

// Kinds lists every registry collection in display order.
var Kinds = []Kind{KindProduct, KindCustomer, KindSupplier, KindWarehouse, KindBranch, KindSafe, KindEmployee, KindUser}

// Valid reports whether k is a known collection.
func (k Kind) Valid() bool {
	for _, known := range Kinds {
		if k == known {
			return true
		}
	}
	return false
}

var (
	// ErrDuplicateID is returned when adding a record whose id already exists.
	ErrDuplicateID = errors.New("masterdata: duplicate id")
	// ErrNotFound is returned when updating or removing an unknown record.
	ErrNotFound = errors.New("masterdata: record not found")
	// ErrInvalidEntity covers empty ids and unknown kinds.
	ErrInvalidEntity = errors.New("masterdata: invalid entity")
)

// Entity is implemented by every registry record.
type Entity interface {
	EntityID() string
	EntityKind() Kind
}

// DisplayName returns the human name of e.
func DisplayName(e Entity) string {
	switch v := e.(type) {
	case Product:
		return v.Name
	case Customer:
		return v.Name
	case Supplier:
		return v.Name
	case Warehouse:
		return v.Name
	case Branch:
		return v.Name
	case Safe:
		return v.Name
	case Employee:
		return v.Name
	case User:
		return v.Name
	}
	return ""
}

// WarehouseStock is the quantity of a product held in one warehouse.
type WarehouseStock struct {
	WarehouseID string `json:"warehouseId" validate:"required"`
	Quantity    int    `json:"quantity" validate:"min=0"`
}

// Product is a stock-keeping unit. Stocks is owned by the stock ledger.
type Product struct {
	ID            string           `json:"id"`
	Name          string           `json:"name" validate:"required,max=200"`
	SKU           string           `json:"sku"`
	Price         decimal.Decimal  `json:"price" validate:"gte=0"`
	Cost          *decimal.Decimal `json:"cost,omitempty"`
	MinThreshold  int              `json:"minThreshold" validate:"min=0"`
	Stocks        []WarehouseStock `json:"stocks" validate:"dive"`
	OpeningStocks []WarehouseStock `json:"openingStocks,omitempty"`
	ItemsPerBox   int              `json:"itemsPerBox,omitempty" validate:"min=0"`
	Unit          string           `json:"unit,omitempty"`
	Packaging     string           `json:"packaging,omitempty"`
	BranchID      string           `json:"branchId,omitempty"`
}

func (p Product) EntityID() string { return p.ID }
func (p Product) EntityKind() Kind { return KindProduct }

// TotalStock sums quantities across warehouses.
func (p Product) TotalStock() int {
	total := 0
	for _, s := range p.Stocks {
		total += s.Quantity
	}
	return total
}

// StockAt returns the quantity held in a warehouse and whether a stock row exists.
func (p Product) StockAt(warehouseID string) (int, bool) {
	for _, s := range p.Stocks {
		if s.WarehouseID == warehouseID {
			return s.Quantity, true
		}
	}
	return 0, false
}

// QuantityFromPacks converts a box and piece count into units.
func (p Product) QuantityFromPacks(boxes, pieces int) int {
	perBox := p.ItemsPerBox
	if perBox <= 0 {
		perBox = 1
	}
	return boxes*perBox + pieces
}

// Clone returns a deep copy so callers cannot alias stock slices.
func (p Product) Clone() Product {
	out := p
	out.Stocks = cloneStocks(p.Stocks)
	out.OpeningStocks = cloneStocks(p.OpeningStocks)
	if p.Cost != nil {
		cost := *p.Cost
		out.Cost = &cost
	}
	return out
}

func cloneStocks(in []WarehouseStock) []WarehouseStock {
	if in == nil {
		return nil
	}
	out := make([]WarehouseStock, len(in))
	copy(out, in)
	return out
}

type Customer struct {
	ID      string `json:"id"`
	Name    string `json:"name" validate:"required,max=200"`
	Phone   string `json:"phone"`
	Address string `json:"address"`
}

func (c Customer) EntityID() string { return c.ID }
func (c Customer) EntityKind() Kind { return KindCustomer }

type Supplier struct {
	ID       string `json:"id"`
	Name     string `json:"name" validate:"required,max=200"`
	Contact  string `json:"contact"`
	Category string `json:"category"`
	Rating   int    `json:"rating" validate:"min=0,max=5"`
}

func (s Supplier) EntityID() string { return s.ID }
func (s Supplier) EntityKind() Kind { return KindSupplier }

type Warehouse struct {
	ID       string `json:"id"`
	Name     string `json:"name" validate:"required,max=200"`
	Location string `json:"location"`
	Manager  string `json:"manager"`
}

func (w Warehouse) EntityID() string { return w.ID }
func (w Warehouse) EntityKind() Kind { return KindWarehouse }

type Branch struct {
	ID   string `json:"id"`
	Name string `json:"name" validate:"required,max=200"`
	City string `json:"city"`
}

func (b Branch) EntityID() string { return b.ID }
func (b Branch) EntityKind() Kind { return KindBranch }

// Safe is a cash box. Balance is owned by the cash ledger; OpeningBalance is
// the position the safe was registered with.
type Safe struct {
	ID             string          `json:"id"`
	Name           string          `json:"name" validate:"required,max=200"`
	Balance        decimal.Decimal `json:"balance"`
	OpeningBalance decimal.Decimal `json:"openingBalance"`
}

func (s Safe) EntityID() string { return s.ID }
func (s Safe) EntityKind() Kind { return KindSafe }

type Employee struct {
	ID          string          `json:"id"`
	Name        string          `json:"name" validate:"required,max=200"`
	Position    string          `json:"position"`
	Department  string          `json:"department"`
	BaseSalary  decimal.Decimal `json:"baseSalary" validate:"gte=0"`
	Phone       string          `json:"phone"`
	JoiningDate string          `json:"joiningDate"`
	Status      string          `json:"status" validate:"omitempty,oneof=active on_leave terminated"`
	BranchID    string          `json:"branchId,omitempty"`
}

func (e Employee) EntityID() string { return e.ID }
func (e Employee) EntityKind() Kind { return KindEmployee }

// User is an operator account. Permissions are extra action grants on top of the role.
type User struct {
	ID           string   `json:"id"`
	Username     string   `json:"username" validate:"required,max=64"`
	PasswordHash string   `json:"passwordHash,omitempty"`
	Name         string   `json:"name" validate:"required,max=200"`
	Role         string   `json:"role" validate:"required,oneof=admin accountant sales warehouse"`
	Permissions  []string `json:"permissions,omitempty"`
}

func (u User) EntityID() string { return u.ID }
func (u User) EntityKind() Kind { return KindUser }

// New returns a zero record for kind, used when decoding payloads.
func New(kind Kind) (Entity, error) {
	switch kind {
	case KindProduct:
		return &Product{}, nil
	case KindCustomer:
		return &Customer{}, nil
	case KindSupplier:
		return &Supplier{}, nil
	case KindWarehouse:
		return &Warehouse{}, nil
	case KindBranch:
		return &Branch{}, nil
	case KindSafe:
		return &Safe{}, nil
	case KindEmployee:
		return &Employee{}, nil
	case KindUser:
		return &User{}, nil
	}
	return nil, ErrInvalidEntity
}

// Deref turns a decoded pointer record back into its value form.
func Deref(e Entity) Entity {
	switch v := e.(type) {
	case *Product:
		return v.Clone()
	case *Customer:
		return *v
	case *Supplier:
		return *v
	case *Warehouse:
		return *v
	case *Branch:
		return *v
	case *Safe:
		return *v
	case *Employee:
		return *v
	case *User:
		return cloneUser(*v)
	}
	return e
}

// WithID returns e with its identifier replaced.
func WithID(e Entity, id string) Entity {
	switch v := Deref(e).(type) {
	case Product:
		v.ID = id
		return v
	case Customer:
		v.ID = id
		return v
	case Supplier:
		v.ID = id
		return v
	case Warehouse:
		v.ID = id
		return v
	case Branch:
		v.ID = id
		return v
	case Safe:
		v.ID = id
		return v
	case Employee:
		v.ID = id
		return v
	case User:
		v.ID = id
		return v
	}
	return e
}

func cloneUser(u User) User {
	if u.Permissions != nil {
		perms := make([]string, len(u.Permissions))
		copy(perms, u.Permissions)
		u.Permissions = perms
	}
	return u
}
