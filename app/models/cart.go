package models

import "github.com/shopspring/decimal"

// CartLine is one (user, product, quantity) row. The composite primary key
// guarantees a single line per pair.
type CartLine struct {
	UserID    uint `gorm:"primaryKey;autoIncrement:false" json:"user_id"`
	ProductID uint `gorm:"primaryKey;autoIncrement:false" json:"product_id"`
	Quantity  int  `gorm:"not null"                       json:"quantity"`

	User    User    `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE"    json:"-"`
	Product Product `gorm:"foreignKey:ProductID;constraint:OnDelete:CASCADE" json:"-"`
}

func (CartLine) TableName() string { return "cart" }

// CartView is a cart line joined with the current product record.
type CartView struct {
	ID          uint            `json:"id"`
	Name        string          `json:"name"`
	Price       decimal.Decimal `json:"price"`
	Image       *string         `json:"image"`
	Description *string         `json:"description"`
	Category    string          `json:"category"`
	Quantity    int             `json:"quantity"`
}

// AddResult tells whether AddItem created a line or bumped an existing one.
type AddResult int

const (
	Inserted AddResult = iota + 1
	Increased
)

func (r AddResult) String() string {
	switch r {
	case Inserted:
		return "inserted"
	case Increased:
		return "increased"
	default:
		return "unknown"
	}
}

// RemoveResult tells whether RemoveItem deleted a line.
type RemoveResult int

const (
	Removed RemoveResult = iota + 1
	NotInCart
)

func (r RemoveResult) String() string {
	switch r {
	case Removed:
		return "removed"
	case NotInCart:
		return "not_in_cart"
	default:
		return "unknown"
	}
}
