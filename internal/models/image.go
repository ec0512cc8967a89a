package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Image types recognized by the catalog. "background" images are the ones
// the public listing picks as hero/listing art.
const (
	ImageTypeBackground = "background"
	ImageTypeGallery    = "product_gallery"
)

// ProductImage ties a stored object to a product. At most one image per
// product carries isPrimary=true; the set-primary procedure enforces this
// inside a transaction.
type ProductImage struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	ProductID primitive.ObjectID `bson:"productId" json:"productId"`
	ImageURL  string             `bson:"imageUrl" json:"imageUrl"`
	AltText   string             `bson:"altText,omitempty" json:"altText,omitempty"`
	IsPrimary bool               `bson:"isPrimary" json:"isPrimary"`
	Type      string             `bson:"type" json:"type"`
	SortOrder int                `bson:"sortOrder" json:"sortOrder"`
	CreatedAt time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt time.Time          `bson:"updatedAt" json:"updatedAt"`
}
