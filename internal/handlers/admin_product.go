package handlers

import (
	"context"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"hutieu-backend/internal/models"
	"hutieu-backend/internal/revalidate"
	"hutieu-backend/internal/storage"
)

/* =======================
   REQUEST DTOs
======================= */

type createProductRequest struct {
	Name             string   `json:"name" binding:"required"`
	Slug             string   `json:"slug" binding:"required"`
	Description      string   `json:"description"`
	ShortDescription string   `json:"shortDescription"`
	Price            float64  `json:"price" binding:"required"`
	SalePrice        *float64 `json:"salePrice"`
	SKU              string   `json:"sku"`
	StockQuantity    int      `json:"stockQuantity"`
	Status           string   `json:"status"`
	Featured         bool     `json:"featured"`
	Color            string   `json:"color"`
	MetaTitle        string   `json:"metaTitle"`
	MetaDescription  string   `json:"metaDescription"`
}

type updateProductRequest struct {
	Name             *string  `json:"name"`
	Slug             *string  `json:"slug"`
	Description      *string  `json:"description"`
	ShortDescription *string  `json:"shortDescription"`
	Price            *float64 `json:"price"`
	SalePrice        *float64 `json:"salePrice"`
	RemoveSalePrice  bool     `json:"removeSalePrice"`
	SKU              *string  `json:"sku"`
	StockQuantity    *int     `json:"stockQuantity"`
	Status           *string  `json:"status"`
	Featured         *bool    `json:"featured"`
	Color            *string  `json:"color"`
	MetaTitle        *string  `json:"metaTitle"`
	MetaDescription  *string  `json:"metaDescription"`
}

// adminProduct is an admin listing entry with its resolved display image.
type adminProduct struct {
	models.Product
	Image       string `json:"image"`
	TotalImages int    `json:"totalImages"`
}

func validProductStatus(status string) bool {
	switch status {
	case models.ProductActive, models.ProductInactive, models.ProductOutOfStock:
		return true
	}
	return false
}

/* =======================
   LIST
======================= */

func GetAllProducts(db *mongo.Database, store storage.Storage) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "GET /admin/api/products"
		defer handlePanic(c, route)

		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()

		opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})
		cursor, err := db.Collection("products").Find(ctx, bson.M{}, opts)
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

		images, err := loadImagesByProduct(ctx, db, products, "")
		if err != nil {
			respondWithError(c, http.StatusInternalServerError, route, "db error")
			return
		}

		out := make([]adminProduct, 0, len(products))
		for _, product := range products {
			entry := adminProduct{
				Product:     product,
				Image:       placeholderImageURL,
				TotalImages: len(images[product.ID]),
			}
			if img := pickDisplayImage(images[product.ID]); img != nil {
				entry.Image = store.PublicURL(img.ImageURL)
			}
			out = append(out, entry)
		}

		c.JSON(http.StatusOK, gin.H{"products": out})
	}
}

/* =======================
   CREATE
======================= */

func CreateProduct(db *mongo.Database, rev *revalidate.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "POST /admin/api/products"
		defer handlePanic(c, route)

		var req createProductRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondWithError(c, http.StatusBadRequest, route, "name, slug and price are required")
			return
		}

		if req.Price <= 0 {
			respondWithError(c, http.StatusBadRequest, route, "invalid price")
			return
		}
		if err := validateSalePrice(req.Price, req.SalePrice); err != nil {
			respondWithError(c, http.StatusBadRequest, route, err.Error())
			return
		}
		if req.StockQuantity < 0 {
			respondWithError(c, http.StatusBadRequest, route, "stockQuantity must be zero or greater")
			return
		}

		status := strings.TrimSpace(req.Status)
		if status == "" {
			status = models.ProductActive
		}
		if !validProductStatus(status) {
			respondWithError(c, http.StatusBadRequest, route, "invalid product status")
			return
		}

		now := time.Now()
		product := models.Product{
			Name:             strings.TrimSpace(req.Name),
			Slug:             strings.TrimSpace(req.Slug),
			Description:      strings.TrimSpace(req.Description),
			ShortDescription: strings.TrimSpace(req.ShortDescription),
			Price:            req.Price,
			SalePrice:        req.SalePrice,
			SKU:              strings.TrimSpace(req.SKU),
			StockQuantity:    req.StockQuantity,
			Status:           status,
			Featured:         req.Featured,
			Color:            strings.TrimSpace(req.Color),
			MetaTitle:        strings.TrimSpace(req.MetaTitle),
			MetaDescription:  strings.TrimSpace(req.MetaDescription),
			CreatedAt:        now,
			UpdatedAt:        now,
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()

		res, err := db.Collection("products").InsertOne(ctx, product)
		if err != nil {
			if mongo.IsDuplicateKeyError(err) {
				respondWithError(c, http.StatusBadRequest, route, "slug already in use")
				return
			}
			respondUpstreamError(c, route, "db error", err)
			return
		}
		product.ID, _ = res.InsertedID.(primitive.ObjectID)

		rev.Trigger(ctx, "/san-pham", "products")

		c.JSON(http.StatusCreated, product)
	}
}

/* =======================
   UPDATE
======================= */

func UpdateProduct(db *mongo.Database, rev *revalidate.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "PUT /admin/api/products/:id"
		defer handlePanic(c, route)

		id, err := primitive.ObjectIDFromHex(c.Param("id"))
		if err != nil {
			respondWithError(c, http.StatusBadRequest, route, "invalid id")
			return
		}

		var req updateProductRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondWithError(c, http.StatusBadRequest, route, "invalid request body")
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()

		var existing models.Product
		err = db.Collection("products").FindOne(ctx, bson.M{"_id": id}).Decode(&existing)
		if err == mongo.ErrNoDocuments {
			respondWithError(c, http.StatusNotFound, route, "product not found")
			return
		}
		if err != nil {
			respondWithError(c, http.StatusInternalServerError, route, "db error")
			return
		}

		updateSet := bson.M{"updatedAt": time.Now()}
		updateUnset := bson.M{}

		if req.Name != nil {
			name := strings.TrimSpace(*req.Name)
			if name == "" {
				respondWithError(c, http.StatusBadRequest, route, "name required")
				return
			}
			updateSet["name"] = name
		}
		if req.Slug != nil {
			slug := strings.TrimSpace(*req.Slug)
			if slug == "" {
				respondWithError(c, http.StatusBadRequest, route, "slug required")
				return
			}
			updateSet["slug"] = slug
		}

		// Sale price is always validated against the price that will be in
		// effect after this update.
		effectivePrice := existing.Price
		if req.Price != nil {
			if *req.Price <= 0 {
				respondWithError(c, http.StatusBadRequest, route, "invalid price")
				return
			}
			effectivePrice = *req.Price
			updateSet["price"] = *req.Price
		}
		effectiveSale := existing.SalePrice
		if req.RemoveSalePrice {
			effectiveSale = nil
			updateUnset["salePrice"] = ""
		} else if req.SalePrice != nil {
			effectiveSale = req.SalePrice
			updateSet["salePrice"] = *req.SalePrice
		}
		if err := validateSalePrice(effectivePrice, effectiveSale); err != nil {
			respondWithError(c, http.StatusBadRequest, route, err.Error())
			return
		}

		if req.Description != nil {
			updateSet["description"] = strings.TrimSpace(*req.Description)
		}
		if req.ShortDescription != nil {
			updateSet["shortDescription"] = strings.TrimSpace(*req.ShortDescription)
		}
		if req.SKU != nil {
			updateSet["sku"] = strings.TrimSpace(*req.SKU)
		}
		if req.StockQuantity != nil {
			if *req.StockQuantity < 0 {
				respondWithError(c, http.StatusBadRequest, route, "stockQuantity must be zero or greater")
				return
			}
			updateSet["stockQuantity"] = *req.StockQuantity
		}
		if req.Status != nil {
			if !validProductStatus(*req.Status) {
				respondWithError(c, http.StatusBadRequest, route, "invalid product status")
				return
			}
			updateSet["status"] = *req.Status
		}
		if req.Featured != nil {
			updateSet["featured"] = *req.Featured
		}
		if req.Color != nil {
			updateSet["color"] = strings.TrimSpace(*req.Color)
		}
		if req.MetaTitle != nil {
			updateSet["metaTitle"] = strings.TrimSpace(*req.MetaTitle)
		}
		if req.MetaDescription != nil {
			updateSet["metaDescription"] = strings.TrimSpace(*req.MetaDescription)
		}

		update := bson.M{"$set": updateSet}
		if len(updateUnset) > 0 {
			update["$unset"] = updateUnset
		}

		if _, err := db.Collection("products").UpdateOne(ctx, bson.M{"_id": id}, update); err != nil {
			if mongo.IsDuplicateKeyError(err) {
				respondWithError(c, http.StatusBadRequest, route, "slug already in use")
				return
			}
			respondUpstreamError(c, route, "db error", err)
			return
		}

		var updated models.Product
		if err := db.Collection("products").FindOne(ctx, bson.M{"_id": id}).Decode(&updated); err != nil {
			respondWithError(c, http.StatusInternalServerError, route, "db error")
			return
		}

		rev.Trigger(ctx, "/san-pham", "products")

		c.JSON(http.StatusOK, updated)
	}
}

/* =======================
   DELETE
======================= */

func DeleteProduct(db *mongo.Database, store storage.Storage, rev *revalidate.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "DELETE /admin/api/products/:id"
		defer handlePanic(c, route)

		id, err := primitive.ObjectIDFromHex(c.Param("id"))
		if err != nil {
			respondWithError(c, http.StatusBadRequest, route, "invalid id")
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 10*time.Second)
		defer cancel()

		cursor, err := db.Collection("product_images").Find(ctx, bson.M{"productId": id})
		if err != nil {
			respondWithError(c, http.StatusInternalServerError, route, "db error")
			return
		}
		var images []models.ProductImage
		if err := cursor.All(ctx, &images); err != nil {
			respondWithError(c, http.StatusInternalServerError, route, "decode error")
			return
		}

		session, err := db.Client().StartSession()
		if err != nil {
			respondWithError(c, http.StatusInternalServerError, route, "db error")
			return
		}
		defer session.EndSession(ctx)

		var deleted int64
		_, err = session.WithTransaction(ctx, func(sessCtx mongo.SessionContext) (interface{}, error) {
			res, err := db.Collection("products").DeleteOne(sessCtx, bson.M{"_id": id})
			if err != nil {
				return nil, err
			}
			deleted = res.DeletedCount
			if deleted == 0 {
				return nil, nil
			}
			if _, err := db.Collection("product_images").DeleteMany(sessCtx, bson.M{"productId": id}); err != nil {
				return nil, err
			}
			return nil, nil
		})
		if err != nil {
			respondUpstreamError(c, route, "db error", err)
			return
		}
		if deleted == 0 {
			respondWithError(c, http.StatusNotFound, route, "product not found")
			return
		}

		// Orphaned objects waste storage but break nothing; removal failures
		// are logged and ignored.
		for _, img := range images {
			if err := store.Remove(ctx, img.ImageURL); err != nil {
				log.Printf("[%s] storage remove failed for %s: %v", route, img.ImageURL, err)
			}
		}

		rev.Trigger(ctx, "/san-pham", "products")

		c.JSON(http.StatusOK, gin.H{"message": "product deleted"})
	}
}
