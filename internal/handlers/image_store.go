package handlers

import (
	"context"
	"errors"
	"log"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"hutieu-backend/internal/models"
	"hutieu-backend/internal/storage"
)

var errImageNotFound = errors.New("image not found")

// imageStore is the slice of the product_images collection the image
// mutations need. Narrow so the swap and delete flows can be exercised
// without a replica set; the mongo implementation runs them against the
// session context of the surrounding transaction.
type imageStore interface {
	Get(ctx context.Context, imageID primitive.ObjectID) (models.ProductImage, error)
	ClearPrimary(ctx context.Context, productID primitive.ObjectID) error
	MarkPrimary(ctx context.Context, imageID primitive.ObjectID) error
	Delete(ctx context.Context, imageID primitive.ObjectID) error
}

type mongoImages struct {
	images *mongo.Collection
}

func (m mongoImages) Get(ctx context.Context, imageID primitive.ObjectID) (models.ProductImage, error) {
	var img models.ProductImage
	err := m.images.FindOne(ctx, bson.M{"_id": imageID}).Decode(&img)
	if err == mongo.ErrNoDocuments {
		return models.ProductImage{}, errImageNotFound
	}
	if err != nil {
		return models.ProductImage{}, err
	}
	return img, nil
}

func (m mongoImages) ClearPrimary(ctx context.Context, productID primitive.ObjectID) error {
	_, err := m.images.UpdateMany(ctx,
		bson.M{"productId": productID},
		bson.M{"$set": bson.M{"isPrimary": false}})
	return err
}

func (m mongoImages) MarkPrimary(ctx context.Context, imageID primitive.ObjectID) error {
	_, err := m.images.UpdateOne(ctx,
		bson.M{"_id": imageID},
		bson.M{"$set": bson.M{"isPrimary": true, "updatedAt": time.Now()}})
	return err
}

func (m mongoImages) Delete(ctx context.Context, imageID primitive.ObjectID) error {
	_, err := m.images.DeleteOne(ctx, bson.M{"_id": imageID})
	return err
}

// swapPrimaryImage makes imageID the sole primary image of productID:
// ownership check, clear-all, set-one, in that order. Callers run it inside
// one transaction so a failure between the two writes rolls back the clear
// and readers never observe zero primaries.
func swapPrimaryImage(ctx context.Context, images imageStore, productID, imageID primitive.ObjectID) error {
	img, err := images.Get(ctx, imageID)
	if errors.Is(err, errImageNotFound) {
		return imageNotOwnedError{ProductID: productID, ImageID: imageID}
	}
	if err != nil {
		return err
	}
	if img.ProductID != productID {
		return imageNotOwnedError{ProductID: productID, ImageID: imageID}
	}

	if err := images.ClearPrimary(ctx, productID); err != nil {
		return err
	}
	return images.MarkPrimary(ctx, imageID)
}

// removeImage deletes the image row after a best-effort removal of the
// backing object. A failed or already-gone object never blocks the row
// delete; the row is the source of truth.
func removeImage(ctx context.Context, images imageStore, store storage.Storage, imageID primitive.ObjectID) error {
	img, err := images.Get(ctx, imageID)
	if err != nil {
		return err
	}

	if err := store.Remove(ctx, img.ImageURL); err != nil {
		log.Printf("[DELETE /admin/delete-image] storage remove failed for %s: %v", img.ImageURL, err)
	}

	return images.Delete(ctx, imageID)
}
