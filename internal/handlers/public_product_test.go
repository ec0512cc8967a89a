package handlers

import (
	"testing"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"hutieu-backend/internal/models"
)

func TestPickDisplayImagePrefersPrimary(t *testing.T) {
	images := []models.ProductImage{
		{ID: primitive.NewObjectID(), ImageURL: "first.jpg", SortOrder: 1},
		{ID: primitive.NewObjectID(), ImageURL: "primary.jpg", SortOrder: 2, IsPrimary: true},
	}
	img := pickDisplayImage(images)
	if img == nil || img.ImageURL != "primary.jpg" {
		t.Fatalf("expected primary image, got %+v", img)
	}
}

func TestPickDisplayImageFallsBackToFirst(t *testing.T) {
	images := []models.ProductImage{
		{ImageURL: "first.jpg", SortOrder: 1},
		{ImageURL: "second.jpg", SortOrder: 2},
	}
	img := pickDisplayImage(images)
	if img == nil || img.ImageURL != "first.jpg" {
		t.Fatalf("expected first image, got %+v", img)
	}
}

func TestPickDisplayImageEmpty(t *testing.T) {
	if img := pickDisplayImage(nil); img != nil {
		t.Fatalf("expected nil for empty image list, got %+v", img)
	}
}
