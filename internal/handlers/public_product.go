package handlers

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"hutieu-backend/internal/models"
	"hutieu-backend/internal/storage"
)

const placeholderImageURL = "/placeholder.svg?height=300&width=300"

// publicProduct is a catalog entry joined with its display image.
type publicProduct struct {
	models.Product
	Image string `json:"image"`
	Alt   string `json:"alt"`
}

/*
GET /products
Active products, newest first, each carrying the public URL of its primary
"background" image.
*/
func GetProducts(db *mongo.Database, store storage.Storage) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "GET /products"
		defer handlePanic(c, route)

		if err := ensureDBConnection(c.Request.Context(), db); err != nil {
			respondWithError(c, http.StatusServiceUnavailable, route, "database unavailable")
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()

		filter := bson.M{"status": models.ProductActive}
		opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})

		cursor, err := db.Collection("products").Find(ctx, filter, opts)
		if err != nil {
			respondWithError(c, http.StatusInternalServerError, route, "db error")
			return
		}
		defer cursor.Close(ctx)

		products := make([]models.Product, 0)
		if err := cursor.All(ctx, &products); err != nil {
			respondWithError(c, http.StatusInternalServerError, route, "decode error")
			return
		}

		images, err := loadImagesByProduct(ctx, db, products, models.ImageTypeBackground)
		if err != nil {
			respondWithError(c, http.StatusInternalServerError, route, "db error")
			return
		}

		out := make([]publicProduct, 0, len(products))
		for _, product := range products {
			entry := publicProduct{Product: product, Image: placeholderImageURL, Alt: product.Name}
			if img := pickDisplayImage(images[product.ID]); img != nil {
				entry.Image = store.PublicURL(img.ImageURL)
				if img.AltText != "" {
					entry.Alt = img.AltText
				}
			}
			out = append(out, entry)
		}

		log.Printf("[%s] returning %d products", route, len(out))
		c.JSON(http.StatusOK, gin.H{"products": out})
	}
}

// loadImagesByProduct fetches image rows for the given products, optionally
// restricted to one image type, grouped by product and ordered by sortOrder.
func loadImagesByProduct(ctx context.Context, db *mongo.Database, products []models.Product, imageType string) (map[primitive.ObjectID][]models.ProductImage, error) {
	grouped := make(map[primitive.ObjectID][]models.ProductImage)
	if len(products) == 0 {
		return grouped, nil
	}

	ids := make([]primitive.ObjectID, 0, len(products))
	for _, product := range products {
		ids = append(ids, product.ID)
	}

	filter := bson.M{"productId": bson.M{"$in": ids}}
	if imageType != "" {
		filter["type"] = imageType
	}
	opts := options.Find().SetSort(bson.D{{Key: "sortOrder", Value: 1}})

	cursor, err := db.Collection("product_images").Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var images []models.ProductImage
	if err := cursor.All(ctx, &images); err != nil {
		return nil, err
	}

	for _, img := range images {
		grouped[img.ProductID] = append(grouped[img.ProductID], img)
	}
	return grouped, nil
}

// pickDisplayImage prefers the primary image and falls back to the first by
// sort order. Returns nil when the product has no images.
func pickDisplayImage(images []models.ProductImage) *models.ProductImage {
	for i := range images {
		if images[i].IsPrimary {
			return &images[i]
		}
	}
	if len(images) > 0 {
		return &images[0]
	}
	return nil
}
