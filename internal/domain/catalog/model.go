// Package catalog describes the products, customers, addresses and carts the
// order engine reads. Their maintenance happens elsewhere.
package catalog

import (
	"storeops/internal/core/id"
	"storeops/internal/core/types"
)

// ProductStatus is the sale status of a product.
type ProductStatus string

const (
	ProductInStock      ProductStatus = "IN_STOCK"
	ProductOutOfStock   ProductStatus = "OUT_OF_STOCK"
	ProductDiscontinued ProductStatus = "DISCONTINUED"
)

// Sellable reports whether new orders may take the product.
func (s ProductStatus) Sellable() bool {
	return s == ProductInStock
}

// Product is the live catalog entry, including its stock counter.
type Product struct {
	ID            id.ID         `db:"id" json:"id"`
	Code          string        `db:"code" json:"code"`
	Name          string        `db:"name" json:"name"`
	ImageURL      string        `db:"image_url" json:"imageUrl,omitempty"`
	Price         types.Money   `db:"price" json:"price"`
	StockQuantity int64         `db:"stock_quantity" json:"stockQuantity"`
	OpeningStock  int64         `db:"opening_stock" json:"openingStock"`
	Status        ProductStatus `db:"status" json:"status"`
}

// CustomerType drives automatic promotion eligibility.
type CustomerType string

const (
	CustomerRegular   CustomerType = "REGULAR"
	CustomerVIP       CustomerType = "VIP"
	CustomerWholesale CustomerType = "WHOLESALE"

	// CustomerAll is only valid on promotion rules.
	CustomerAll CustomerType = "ALL"
)

// Customer is the buyer of an order.
type Customer struct {
	ID           id.ID        `db:"id"`
	Name         string       `db:"name"`
	Phone        string       `db:"phone"`
	Email        string       `db:"email"`
	CustomerType CustomerType `db:"customer_type"`
}

// TypeOrDefault returns the customer type, REGULAR when unset.
func (c *Customer) TypeOrDefault() CustomerType {
	if c == nil || c.CustomerType == "" {
		return CustomerRegular
	}
	return c.CustomerType
}

// Address is a saved delivery address of a customer.
type Address struct {
	ID            id.ID  `db:"id"`
	CustomerID    id.ID  `db:"customer_id"`
	RecipientName string `db:"recipient_name"`
	Phone         string `db:"phone"`
	Street        string `db:"street"`
	Ward          string `db:"ward"`
	District      string `db:"district"`
	Province      string `db:"province"`
	IsDefault     bool   `db:"is_default"`
}

// CartItem is one product line in a customer's cart.
type CartItem struct {
	ProductID id.ID `db:"product_id"`
	Quantity  int64 `db:"quantity"`
}
