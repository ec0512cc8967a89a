package database

import (
	"context"
	"fmt"
	"log"
	"regexp"
	"strconv"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	countersCollection = "counters"
	orderCounterID     = "orders"
	orderNumberPrefix  = "ORD"
)

var orderNumberPattern = regexp.MustCompile(`^ORD(\d+)$`)

// OrderSequence hands out strictly increasing order sequence numbers. Every
// caller gets a distinct value even under concurrent allocation.
type OrderSequence interface {
	Next(ctx context.Context) (int64, error)
}

type mongoOrderSequence struct {
	counters *mongo.Collection
}

// NewOrderSequence returns an OrderSequence backed by an atomic $inc on the
// counters collection. The upsert covers the empty-database case.
func NewOrderSequence(db *mongo.Database) OrderSequence {
	return mongoOrderSequence{counters: db.Collection(countersCollection)}
}

func (s mongoOrderSequence) Next(ctx context.Context) (int64, error) {
	opts := options.FindOneAndUpdate().
		SetUpsert(true).
		SetReturnDocument(options.After)

	var doc struct {
		Seq int64 `bson:"seq"`
	}
	err := s.counters.FindOneAndUpdate(
		ctx,
		bson.M{"_id": orderCounterID},
		bson.M{"$inc": bson.M{"seq": 1}},
		opts,
	).Decode(&doc)
	if err != nil {
		return 0, err
	}
	return doc.Seq, nil
}

// FormatOrderNumber renders a sequence value as the human-readable order
// number, zero-padded to three digits (ORD001, ORD042, ORD1000).
func FormatOrderNumber(seq int64) string {
	return fmt.Sprintf("%s%03d", orderNumberPrefix, seq)
}

// ParseOrderNumber extracts the sequence value from an order number. The
// second return is false for values that do not match the ORD<digits> form.
func ParseOrderNumber(orderNumber string) (int64, bool) {
	match := orderNumberPattern.FindStringSubmatch(orderNumber)
	if match == nil {
		return 0, false
	}
	seq, err := strconv.ParseInt(match[1], 10, 64)
	if err != nil {
		return 0, false
	}
	return seq, true
}

// NextOrderNumber allocates the next order number from the sequence.
func NextOrderNumber(ctx context.Context, seq OrderSequence) (string, error) {
	n, err := seq.Next(ctx)
	if err != nil {
		return "", err
	}
	return FormatOrderNumber(n), nil
}

// SeedOrderCounter initializes the counter from the newest existing order so
// a sequence started before the counter existed continues without collisions.
// $setOnInsert keeps this safe to run from multiple instances.
func SeedOrderCounter(db *mongo.Database) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	last := int64(0)
	findOpts := options.FindOne().SetSort(bson.D{{Key: "createdAt", Value: -1}})

	var newest struct {
		OrderNumber string `bson:"orderNumber"`
	}
	err := db.Collection("orders").FindOne(ctx, bson.M{}, findOpts).Decode(&newest)
	switch {
	case err == mongo.ErrNoDocuments:
		// empty store, counter starts at zero
	case err != nil:
		return err
	default:
		if seq, ok := ParseOrderNumber(newest.OrderNumber); ok {
			last = seq
		}
	}

	updateOpts := options.Update().SetUpsert(true)
	_, err = db.Collection(countersCollection).UpdateOne(
		ctx,
		bson.M{"_id": orderCounterID},
		bson.M{"$setOnInsert": bson.M{"seq": last}},
		updateOpts,
	)
	if err != nil {
		return err
	}

	log.Printf("SeedOrderCounter: order counter ready (last known seq %d)", last)
	return nil
}
