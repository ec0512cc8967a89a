package handlers

import (
	"context"
	"errors"
	"testing"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"hutieu-backend/internal/models"
)

type fakeImageStore struct {
	images   map[primitive.ObjectID]*models.ProductImage
	calls    []string
	clearErr error
}

func newFakeImageStore(images ...models.ProductImage) *fakeImageStore {
	s := &fakeImageStore{images: map[primitive.ObjectID]*models.ProductImage{}}
	for i := range images {
		img := images[i]
		s.images[img.ID] = &img
	}
	return s
}

func (s *fakeImageStore) Get(ctx context.Context, imageID primitive.ObjectID) (models.ProductImage, error) {
	s.calls = append(s.calls, "get")
	img, ok := s.images[imageID]
	if !ok {
		return models.ProductImage{}, errImageNotFound
	}
	return *img, nil
}

func (s *fakeImageStore) ClearPrimary(ctx context.Context, productID primitive.ObjectID) error {
	s.calls = append(s.calls, "clear")
	if s.clearErr != nil {
		return s.clearErr
	}
	for _, img := range s.images {
		if img.ProductID == productID {
			img.IsPrimary = false
		}
	}
	return nil
}

func (s *fakeImageStore) MarkPrimary(ctx context.Context, imageID primitive.ObjectID) error {
	s.calls = append(s.calls, "mark")
	if img, ok := s.images[imageID]; ok {
		img.IsPrimary = true
	}
	return nil
}

func (s *fakeImageStore) Delete(ctx context.Context, imageID primitive.ObjectID) error {
	s.calls = append(s.calls, "delete")
	delete(s.images, imageID)
	return nil
}

func (s *fakeImageStore) primaryCount(productID primitive.ObjectID) int {
	n := 0
	for _, img := range s.images {
		if img.ProductID == productID && img.IsPrimary {
			n++
		}
	}
	return n
}

func galleryOf(productID primitive.ObjectID, primaryIdx int, n int) []models.ProductImage {
	images := make([]models.ProductImage, n)
	for i := range images {
		images[i] = models.ProductImage{
			ID:        primitive.NewObjectID(),
			ProductID: productID,
			ImageURL:  "img.jpg",
			IsPrimary: i == primaryIdx,
			Type:      models.ImageTypeGallery,
		}
	}
	return images
}

func TestSwapPrimaryImageLeavesExactlyOnePrimary(t *testing.T) {
	productID := primitive.NewObjectID()
	gallery := galleryOf(productID, 0, 3)
	store := newFakeImageStore(gallery...)

	if err := swapPrimaryImage(context.Background(), store, productID, gallery[2].ID); err != nil {
		t.Fatalf("swap failed: %v", err)
	}

	if got := store.primaryCount(productID); got != 1 {
		t.Fatalf("expected exactly one primary image, got %d", got)
	}
	if !store.images[gallery[2].ID].IsPrimary {
		t.Fatal("target image must be the primary one")
	}
	if store.images[gallery[0].ID].IsPrimary {
		t.Fatal("previous primary must be cleared")
	}
}

func TestSwapPrimaryImageClearsBeforeMarking(t *testing.T) {
	productID := primitive.NewObjectID()
	gallery := galleryOf(productID, 0, 2)
	store := newFakeImageStore(gallery...)

	if err := swapPrimaryImage(context.Background(), store, productID, gallery[1].ID); err != nil {
		t.Fatalf("swap failed: %v", err)
	}

	want := []string{"get", "clear", "mark"}
	if len(store.calls) != len(want) {
		t.Fatalf("expected calls %v, got %v", want, store.calls)
	}
	for i, call := range want {
		if store.calls[i] != call {
			t.Fatalf("expected calls %v, got %v", want, store.calls)
		}
	}
}

func TestSwapPrimaryImageRejectsForeignImage(t *testing.T) {
	productID := primitive.NewObjectID()
	otherProduct := primitive.NewObjectID()
	foreign := galleryOf(otherProduct, 0, 1)
	store := newFakeImageStore(foreign...)

	err := swapPrimaryImage(context.Background(), store, productID, foreign[0].ID)

	var ownErr imageNotOwnedError
	if !errors.As(err, &ownErr) {
		t.Fatalf("expected ownership error, got %v", err)
	}
	for _, call := range store.calls {
		if call == "clear" || call == "mark" {
			t.Fatalf("no write may happen for a foreign image, saw %v", store.calls)
		}
	}
}

func TestSwapPrimaryImageRejectsUnknownImage(t *testing.T) {
	store := newFakeImageStore()

	err := swapPrimaryImage(context.Background(), store, primitive.NewObjectID(), primitive.NewObjectID())

	var ownErr imageNotOwnedError
	if !errors.As(err, &ownErr) {
		t.Fatalf("expected ownership error, got %v", err)
	}
}

func TestSwapPrimaryImageStopsWhenClearFails(t *testing.T) {
	productID := primitive.NewObjectID()
	gallery := galleryOf(productID, 0, 2)
	store := newFakeImageStore(gallery...)
	store.clearErr = errors.New("write conflict")

	err := swapPrimaryImage(context.Background(), store, productID, gallery[1].ID)
	if err == nil {
		t.Fatal("expected the clear failure to surface")
	}
	// The error aborts the surrounding transaction; the set-one write must
	// not have been attempted on its own.
	for _, call := range store.calls {
		if call == "mark" {
			t.Fatalf("set-one must not run after a failed clear, saw %v", store.calls)
		}
	}
}

func TestRemoveImageDeletesRowWhenStorageRemoveFails(t *testing.T) {
	productID := primitive.NewObjectID()
	gallery := galleryOf(productID, 0, 1)
	store := newFakeImageStore(gallery...)
	disk := &fakeStorage{removeErr: errors.New("object already gone")}

	if err := removeImage(context.Background(), store, disk, gallery[0].ID); err != nil {
		t.Fatalf("row delete must survive a failed storage remove: %v", err)
	}

	if _, ok := store.images[gallery[0].ID]; ok {
		t.Fatal("image row must be deleted")
	}
	if len(disk.removes) != 1 || disk.removes[0] != "img.jpg" {
		t.Fatalf("expected a remove attempt for img.jpg, got %v", disk.removes)
	}
}

func TestRemoveImageUnknownRow(t *testing.T) {
	store := newFakeImageStore()
	disk := &fakeStorage{}

	err := removeImage(context.Background(), store, disk, primitive.NewObjectID())
	if !errors.Is(err, errImageNotFound) {
		t.Fatalf("expected not-found, got %v", err)
	}
	if len(disk.removes) != 0 {
		t.Fatalf("storage must not be touched for an unknown row, saw %v", disk.removes)
	}
}
