package stock

import (
	"time"

	"github.com/shopspring/decimal"
)

// Cart holds stock reserved for one customer. A converted cart has been
// checked out; its reservations are final and never released.
type Cart struct {
	ID          string     `gorm:"primaryKey;column:id;type:varchar(36)" json:"id"`
	UserID      string     `gorm:"column:user_id;size:255;index:idx_cart_user;not null" json:"userId"`
	SessionKey  string     `gorm:"column:session_key;size:64" json:"sessionKey,omitempty"`
	Items       []CartItem `gorm:"foreignKey:CartID;constraint:OnDelete:CASCADE" json:"items"`
	CreatedAt   time.Time  `gorm:"column:created_at;autoCreateTime" json:"createdAt"`
	UpdatedAt   time.Time  `gorm:"column:updated_at;autoUpdateTime;index:idx_cart_idle,priority:2" json:"updatedAt"`
	ConvertedAt *time.Time `gorm:"column:converted_at;index:idx_cart_idle,priority:1" json:"convertedAt,omitempty"`
}

// TableName returns the GORM table name.
func (Cart) TableName() string { return "carts" }

// Converted reports whether the cart has been checked out.
func (c *Cart) Converted() bool { return c.ConvertedAt != nil }

// Total returns the sum of unit price times quantity over all items.
func (c *Cart) Total() decimal.Decimal {
	total := decimal.Zero
	for _, it := range c.Items {
		total = total.Add(it.UnitPrice.Mul(decimal.NewFromInt(int64(it.Quantity))))
	}
	return total
}

// CartItem is a quantity of one product reserved in a cart.
type CartItem struct {
	ID        uint            `gorm:"primaryKey;column:id" json:"id"`
	CartID    string          `gorm:"column:cart_id;type:varchar(36);uniqueIndex:idx_cart_product,priority:1;not null" json:"cartId"`
	ProductID uint            `gorm:"column:product_id;uniqueIndex:idx_cart_product,priority:2;not null" json:"productId"`
	Quantity  int             `gorm:"column:quantity;not null" json:"quantity"`
	UnitPrice decimal.Decimal `gorm:"column:unit_price;type:decimal(10,2);not null" json:"unitPrice"`
	CreatedAt time.Time       `gorm:"column:created_at;autoCreateTime" json:"createdAt"`
	UpdatedAt time.Time       `gorm:"column:updated_at;autoUpdateTime" json:"updatedAt"`
}

// TableName returns the GORM table name.
func (CartItem) TableName() string { return "cart_items" }
