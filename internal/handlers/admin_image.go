package handlers

import (
	"context"
	"errors"
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

const maxImageSize = 5 << 20

type setPrimaryImageRequest struct {
	ProductID string `json:"productId"`
	ImageID   string `json:"imageId"`
}

type updateImageRequest struct {
	ImageID   string `json:"imageId"`
	AltText   string `json:"altText"`
	ImageType string `json:"imageType"`
}

type imageNotOwnedError struct {
	ProductID primitive.ObjectID
	ImageID   primitive.ObjectID
}

func (e imageNotOwnedError) Error() string {
	return "image does not belong to product"
}

/* =========================
   UPLOAD
========================= */

func UploadImage(db *mongo.Database, store storage.Storage, rev *revalidate.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "POST /admin/upload-image"
		defer handlePanic(c, route)

		file, fileErr := c.FormFile("file")
		productIDRaw := strings.TrimSpace(c.PostForm("productId"))
		imageType := strings.TrimSpace(c.PostForm("imageType"))
		altText := strings.TrimSpace(c.PostForm("altText"))
		isPrimary := c.PostForm("isPrimary") == "true"

		// Everything is validated before a single byte reaches storage.
		if fileErr != nil || productIDRaw == "" || imageType == "" {
			respondWithError(c, http.StatusBadRequest, route, "missing required fields")
			return
		}

		if contentType := file.Header.Get("Content-Type"); !strings.HasPrefix(contentType, "image/") {
			respondWithError(c, http.StatusBadRequest, route, "invalid file type, please upload an image")
			return
		}
		if file.Size > maxImageSize {
			respondWithError(c, http.StatusBadRequest, route, "file size too large, maximum 5MB allowed")
			return
		}

		productID, err := primitive.ObjectIDFromHex(productIDRaw)
		if err != nil {
			respondWithError(c, http.StatusBadRequest, route, "invalid productId")
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 10*time.Second)
		defer cancel()

		err = db.Collection("products").FindOne(ctx, bson.M{"_id": productID}).Err()
		if err == mongo.ErrNoDocuments {
			respondWithError(c, http.StatusNotFound, route, "product not found")
			return
		}
		if err != nil {
			respondWithError(c, http.StatusInternalServerError, route, "db error")
			return
		}

		key, err := storage.ObjectKey(productID.Hex(), imageType, file.Filename)
		if err != nil {
			respondWithError(c, http.StatusBadRequest, route, err.Error())
			return
		}

		src, err := file.Open()
		if err != nil {
			respondWithError(c, http.StatusBadRequest, route, "failed to read upload")
			return
		}
		defer src.Close()

		if err := store.Save(ctx, key, src); err != nil {
			respondUpstreamError(c, route, "failed to upload file to storage", err)
			return
		}

		session, err := db.Client().StartSession()
		if err != nil {
			cleanupUpload(store, key, route)
			respondWithError(c, http.StatusInternalServerError, route, "db error")
			return
		}
		defer session.EndSession(ctx)

		var imageID primitive.ObjectID
		_, err = session.WithTransaction(ctx, func(sessCtx mongo.SessionContext) (interface{}, error) {
			images := db.Collection("product_images")

			if isPrimary {
				_, err := images.UpdateMany(sessCtx,
					bson.M{"productId": productID},
					bson.M{"$set": bson.M{"isPrimary": false}})
				if err != nil {
					return nil, err
				}
			}

			sortOrder, err := nextSortOrder(sessCtx, images, productID)
			if err != nil {
				return nil, err
			}

			now := time.Now()
			res, err := images.InsertOne(sessCtx, models.ProductImage{
				ProductID: productID,
				ImageURL:  key,
				AltText:   altText,
				IsPrimary: isPrimary,
				Type:      imageType,
				SortOrder: sortOrder,
				CreatedAt: now,
				UpdatedAt: now,
			})
			if err != nil {
				return nil, err
			}
			imageID, _ = res.InsertedID.(primitive.ObjectID)
			return nil, nil
		})
		if err != nil {
			// The object is already in storage; remove it so a failed insert
			// does not leave an orphan.
			cleanupUpload(store, key, route)
			respondUpstreamError(c, route, "failed to save image record", err)
			return
		}

		rev.Trigger(ctx, "/san-pham", "products")

		c.JSON(http.StatusOK, gin.H{
			"success":  true,
			"imageId":  imageID.Hex(),
			"fileName": key,
		})
	}
}

func cleanupUpload(store storage.Storage, key, route string) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := store.Remove(ctx, key); err != nil {
		log.Printf("[%s] orphan cleanup failed for %s: %v", route, key, err)
	}
}

func nextSortOrder(ctx context.Context, images *mongo.Collection, productID primitive.ObjectID) (int, error) {
	opts := options.FindOne().SetSort(bson.D{{Key: "sortOrder", Value: -1}})

	var top struct {
		SortOrder int `bson:"sortOrder"`
	}
	err := images.FindOne(ctx, bson.M{"productId": productID}, opts).Decode(&top)
	if err == mongo.ErrNoDocuments {
		return 1, nil
	}
	if err != nil {
		return 0, err
	}
	return top.SortOrder + 1, nil
}

/* =========================
   SET PRIMARY
========================= */

func SetPrimaryImage(db *mongo.Database, rev *revalidate.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "PUT /admin/set-primary-image"
		defer handlePanic(c, route)

		var req setPrimaryImageRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondWithError(c, http.StatusBadRequest, route, "invalid request body")
			return
		}
		if strings.TrimSpace(req.ProductID) == "" || strings.TrimSpace(req.ImageID) == "" {
			respondWithError(c, http.StatusBadRequest, route, "product ID and image ID are required")
			return
		}

		productID, err := primitive.ObjectIDFromHex(strings.TrimSpace(req.ProductID))
		if err != nil {
			respondWithError(c, http.StatusBadRequest, route, "invalid productId")
			return
		}
		imageID, err := primitive.ObjectIDFromHex(strings.TrimSpace(req.ImageID))
		if err != nil {
			respondWithError(c, http.StatusBadRequest, route, "invalid imageId")
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()

		session, err := db.Client().StartSession()
		if err != nil {
			respondWithError(c, http.StatusInternalServerError, route, "db error")
			return
		}
		defer session.EndSession(ctx)

		// Clear-all and set-one commit together, so readers never observe
		// zero or two primary images.
		images := mongoImages{images: db.Collection("product_images")}
		_, err = session.WithTransaction(ctx, func(sessCtx mongo.SessionContext) (interface{}, error) {
			return nil, swapPrimaryImage(sessCtx, images, productID, imageID)
		})
		if err != nil {
			var ownErr imageNotOwnedError
			if errors.As(err, &ownErr) {
				respondWithError(c, http.StatusNotFound, route, "image not found for product")
				return
			}
			respondUpstreamError(c, route, "failed to set primary image", err)
			return
		}

		rev.Trigger(ctx, "/san-pham", "products")

		c.JSON(http.StatusOK, gin.H{
			"success": true,
			"message": "primary image set successfully",
		})
	}
}

/* =========================
   UPDATE METADATA
========================= */

func UpdateImage(db *mongo.Database) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "PUT /admin/update-image"
		defer handlePanic(c, route)

		var req updateImageRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondWithError(c, http.StatusBadRequest, route, "invalid request body")
			return
		}
		if strings.TrimSpace(req.ImageID) == "" {
			respondWithError(c, http.StatusBadRequest, route, "image ID is required")
			return
		}

		imageID, err := primitive.ObjectIDFromHex(strings.TrimSpace(req.ImageID))
		if err != nil {
			respondWithError(c, http.StatusBadRequest, route, "invalid imageId")
			return
		}

		imageType := strings.TrimSpace(req.ImageType)
		if imageType == "" {
			imageType = models.ImageTypeGallery
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()

		update := bson.M{"$set": bson.M{
			"altText":   strings.TrimSpace(req.AltText),
			"type":      imageType,
			"updatedAt": time.Now(),
		}}
		res, err := db.Collection("product_images").UpdateOne(ctx, bson.M{"_id": imageID}, update)
		if err != nil {
			respondWithError(c, http.StatusInternalServerError, route, "failed to update image info")
			return
		}
		if res.MatchedCount == 0 {
			respondWithError(c, http.StatusNotFound, route, "image not found")
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"success": true,
			"message": "image info updated successfully",
		})
	}
}

/* =========================
   DELETE
========================= */

func DeleteImage(db *mongo.Database, store storage.Storage, rev *revalidate.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "DELETE /admin/delete-image"
		defer handlePanic(c, route)

		imageIDRaw := strings.TrimSpace(c.Query("imageId"))
		if imageIDRaw == "" {
			respondWithError(c, http.StatusBadRequest, route, "image ID is required")
			return
		}
		imageID, err := primitive.ObjectIDFromHex(imageIDRaw)
		if err != nil {
			respondWithError(c, http.StatusBadRequest, route, "invalid imageId")
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()

		err = removeImage(ctx, mongoImages{images: db.Collection("product_images")}, store, imageID)
		if errors.Is(err, errImageNotFound) {
			respondWithError(c, http.StatusNotFound, route, "image not found")
			return
		}
		if err != nil {
			respondUpstreamError(c, route, "failed to delete image record", err)
			return
		}

		rev.Trigger(ctx, "/san-pham", "products")

		c.JSON(http.StatusOK, gin.H{
			"success": true,
			"message": "image deleted successfully",
		})
	}
}
