package domain

import (
	"time"
)

// AccountStatus represents the lifecycle state of a platform account.
type AccountStatus string

const (
	// AccountStatusActive indicates the account may shop and, for staff, work orders.
	AccountStatusActive AccountStatus = "ACTIVE"
	// AccountStatusDisabled indicates the account has been deactivated.
	AccountStatusDisabled AccountStatus = "DISABLED"
)

// Account is a platform account. The role is not stored; it is derived from
// the identifier prefix (see RoleOf).
type Account struct {
	ID        string
	Name      string
	Email     string
	Phone     string
	Address   string
	Status    AccountStatus
	CreatedAt time.Time
	UpdatedAt time.Time
}

// ProductStatus represents the catalogue visibility of a product.
type ProductStatus string

const (
	// ProductStatusActive indicates the product can be carted and ordered.
	ProductStatusActive ProductStatus = "ACTIVE"
	// ProductStatusRetired indicates the product is no longer orderable.
	ProductStatusRetired ProductStatus = "RETIRED"
)

// Product is a catalogue entry. Price is in minor currency units.
type Product struct {
	ID          string
	Name        string
	Description string
	Price       int64
	SalePercent int
	ImageURL    string
	Status      ProductStatus
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// CartLine is one (account, product) entry in a cart. A cart holds at most
// one line per product for a given account; adding the same product again
// increases Quantity on the existing line.
type CartLine struct {
	ID        string
	AccountID string
	ProductID string
	Quantity  int
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Buyer holds the delivery contact recorded on an order. It is snapshotted
// from the account at checkout and may be overridden per order.
type Buyer struct {
	Name    string
	Phone   string
	Address string
}

// Order is a placed order. Orders are never deleted; cancellation is a
// status. ChefID and ShipperID are stamped by the staff members who claim
// the order during its workflow.
type Order struct {
	ID          string
	AccountID   string
	Buyer       Buyer
	Note        string
	Status      OrderStatus
	VoucherID   string
	SalePercent int
	ChefID      string
	ShipperID   string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// OrderLine is one product position on an order. UnitPrice is the catalogue
// price captured at checkout and is never recomputed afterwards.
type OrderLine struct {
	ID        string
	OrderID   string
	ProductID string
	Quantity  int
	UnitPrice int64
}

// Total returns the line total in minor currency units.
func (l OrderLine) Total() int64 {
	return l.UnitPrice * int64(l.Quantity)
}
