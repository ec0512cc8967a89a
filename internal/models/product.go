package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Product catalog statuses. Public listings only show active products.
const (
	ProductActive     = "active"
	ProductInactive   = "inactive"
	ProductOutOfStock = "out_of_stock"
)

type Product struct {
	ID               primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Name             string             `bson:"name" json:"name"`
	Slug             string             `bson:"slug" json:"slug"`
	Description      string             `bson:"description,omitempty" json:"description,omitempty"`
	ShortDescription string             `bson:"shortDescription,omitempty" json:"shortDescription,omitempty"`
	Price            float64            `bson:"price" json:"price"`
	SalePrice        *float64           `bson:"salePrice,omitempty" json:"salePrice,omitempty"`
	SKU              string             `bson:"sku,omitempty" json:"sku,omitempty"`
	StockQuantity    int                `bson:"stockQuantity" json:"stockQuantity"`
	Status           string             `bson:"status" json:"status"`
	Featured         bool               `bson:"featured" json:"featured"`
	Color            string             `bson:"color,omitempty" json:"color,omitempty"`
	MetaTitle        string             `bson:"metaTitle,omitempty" json:"metaTitle,omitempty"`
	MetaDescription  string             `bson:"metaDescription,omitempty" json:"metaDescription,omitempty"`
	CreatedAt        time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt        time.Time          `bson:"updatedAt" json:"updatedAt"`
}
