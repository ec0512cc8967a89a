package handlers

import (
	"context"
	"errors"
	"log"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"hutieu-backend/internal/database"
	"hutieu-backend/internal/models"
)

/* =========================
   REQUEST DTOs
========================= */

type createOrderRequest struct {
	CustomerName string `json:"customerName"`
	Phone        string `json:"phone"`
	Email        string `json:"email"`
	Address      string `json:"address"`
	ProductID    string `json:"productId"`
	ProductName  string `json:"productName"`
	Quantity     int    `json:"quantity"`
	Notes        string `json:"notes"`
}

type updateOrderStatusRequest struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

/* =========================
   CREATE ORDER
========================= */

func CreateOrder(db *mongo.Database, seq database.OrderSequence) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "POST /orders"
		defer handlePanic(c, route)

		if err := ensureDBConnection(c.Request.Context(), db); err != nil {
			respondWithError(c, http.StatusServiceUnavailable, route, "database unavailable")
			return
		}

		var req createOrderRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondWithError(c, http.StatusBadRequest, route, "invalid request body")
			return
		}

		if err := validateCreateOrderRequest(req); err != nil {
			respondWithError(c, http.StatusBadRequest, route, err.Error())
			return
		}

		productID, err := primitive.ObjectIDFromHex(strings.TrimSpace(req.ProductID))
		if err != nil {
			respondWithError(c, http.StatusBadRequest, route, "invalid productId")
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()

		// The sequence is allocated outside the transaction: a rolled-back
		// order burns a number (a gap, never a duplicate).
		orderNumber, err := database.NextOrderNumber(ctx, seq)
		if err != nil {
			respondUpstreamError(c, route, "db error", err)
			return
		}

		session, err := db.Client().StartSession()
		if err != nil {
			respondWithError(c, http.StatusInternalServerError, route, "db error")
			return
		}
		defer session.EndSession(ctx)

		var created models.Order
		_, err = session.WithTransaction(ctx, func(sessCtx mongo.SessionContext) (interface{}, error) {
			var product models.Product
			err := db.Collection("products").FindOne(sessCtx, bson.M{"_id": productID}).Decode(&product)
			if err == mongo.ErrNoDocuments {
				return nil, productNotFoundError{ProductID: productID}
			}
			if err != nil {
				return nil, err
			}

			unitPrice := effectiveUnitPrice(product.Price, product.SalePrice)
			order, item := buildOrder(req, orderNumber, product, unitPrice, time.Now())

			res, err := db.Collection("orders").InsertOne(sessCtx, order)
			if err != nil {
				return nil, err
			}
			orderID, _ := res.InsertedID.(primitive.ObjectID)
			order.ID = orderID
			item.OrderID = orderID

			itemRes, err := db.Collection("order_items").InsertOne(sessCtx, item)
			if err != nil {
				return nil, err
			}
			if itemID, ok := itemRes.InsertedID.(primitive.ObjectID); ok {
				item.ID = itemID
			}

			order.Items = []models.OrderItem{item}
			created = order
			return nil, nil
		})
		if err != nil {
			var notFoundErr productNotFoundError
			if errors.As(err, &notFoundErr) {
				respondWithError(c, http.StatusNotFound, route, "product not found")
				return
			}
			respondUpstreamError(c, route, "db error", err)
			return
		}

		log.Printf("[%s] order %s created, total %.0f", route, created.OrderNumber, created.TotalAmount)
		c.JSON(http.StatusCreated, gin.H{"order": created})
	}
}

/* =========================
   GET ORDERS
========================= */

func GetOrders(db *mongo.Database) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "GET /orders"
		defer handlePanic(c, route)

		filter := bson.M{}

		if status := strings.TrimSpace(c.Query("status")); status != "" && status != "all" {
			parsed, err := models.ParseOrderStatus(status)
			if err != nil {
				respondWithError(c, http.StatusBadRequest, route, "invalid status")
				return
			}
			filter["status"] = parsed
		}

		if search := strings.TrimSpace(c.Query("search")); search != "" {
			pattern := primitive.Regex{Pattern: regexp.QuoteMeta(search), Options: "i"}
			filter["$or"] = []bson.M{
				{"customerName": pattern},
				{"customerPhone": pattern},
				{"orderNumber": pattern},
			}
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()

		opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})
		cursor, err := db.Collection("orders").Find(ctx, filter, opts)
		if err != nil {
			respondWithError(c, http.StatusInternalServerError, route, "db error")
			return
		}
		defer cursor.Close(ctx)

		orders := make([]models.Order, 0)
		if err := cursor.All(ctx, &orders); err != nil {
			respondWithError(c, http.StatusInternalServerError, route, "decode error")
			return
		}

		if err := attachOrderItems(ctx, db, orders); err != nil {
			respondWithError(c, http.StatusInternalServerError, route, "db error")
			return
		}

		c.JSON(http.StatusOK, gin.H{"orders": orders})
	}
}

func attachOrderItems(ctx context.Context, db *mongo.Database, orders []models.Order) error {
	if len(orders) == 0 {
		return nil
	}

	ids := make([]primitive.ObjectID, 0, len(orders))
	for _, order := range orders {
		ids = append(ids, order.ID)
	}

	cursor, err := db.Collection("order_items").Find(ctx, bson.M{"orderId": bson.M{"$in": ids}})
	if err != nil {
		return err
	}
	defer cursor.Close(ctx)

	var items []models.OrderItem
	if err := cursor.All(ctx, &items); err != nil {
		return err
	}

	byOrder := make(map[primitive.ObjectID][]models.OrderItem, len(orders))
	for _, item := range items {
		byOrder[item.OrderID] = append(byOrder[item.OrderID], item)
	}
	for i := range orders {
		orders[i].Items = byOrder[orders[i].ID]
		if orders[i].Items == nil {
			orders[i].Items = []models.OrderItem{}
		}
	}
	return nil
}

/* =========================
   UPDATE STATUS
========================= */

func UpdateOrderStatus(db *mongo.Database) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "PUT /orders"
		defer handlePanic(c, route)

		var req updateOrderStatusRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondWithError(c, http.StatusBadRequest, route, "invalid request body")
			return
		}
		if strings.TrimSpace(req.ID) == "" || strings.TrimSpace(req.Status) == "" {
			respondWithError(c, http.StatusBadRequest, route, "order ID and status are required")
			return
		}

		orderID, err := primitive.ObjectIDFromHex(strings.TrimSpace(req.ID))
		if err != nil {
			respondWithError(c, http.StatusBadRequest, route, "invalid order id")
			return
		}

		target, err := models.ParseOrderStatus(strings.TrimSpace(req.Status))
		if err != nil {
			respondWithError(c, http.StatusBadRequest, route, "invalid status")
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()

		// The current status is part of the filter so a concurrent transition
		// cannot slip an illegal jump past the check.
		var order models.Order
		err = db.Collection("orders").FindOne(ctx, bson.M{"_id": orderID}).Decode(&order)
		if err == mongo.ErrNoDocuments {
			respondWithError(c, http.StatusNotFound, route, "order not found")
			return
		}
		if err != nil {
			respondWithError(c, http.StatusInternalServerError, route, "db error")
			return
		}

		if !order.Status.CanTransitionTo(target) {
			respondWithError(c, http.StatusBadRequest, route, "invalid status transition")
			return
		}

		update := bson.M{"$set": bson.M{"status": target, "updatedAt": time.Now()}}
		res, err := db.Collection("orders").UpdateOne(ctx, bson.M{"_id": orderID, "status": order.Status}, update)
		if err != nil {
			respondWithError(c, http.StatusInternalServerError, route, "db error")
			return
		}
		if res.MatchedCount == 0 {
			respondWithError(c, http.StatusConflict, route, "order status changed concurrently")
			return
		}

		order.Status = target
		log.Printf("[%s] order %s -> %s", route, order.OrderNumber, target)
		c.JSON(http.StatusOK, gin.H{"order": order})
	}
}

/* =========================
   BUILD ORDER
========================= */

func validateCreateOrderRequest(req createOrderRequest) error {
	if strings.TrimSpace(req.CustomerName) == "" ||
		strings.TrimSpace(req.Phone) == "" ||
		strings.TrimSpace(req.Address) == "" ||
		strings.TrimSpace(req.ProductID) == "" ||
		strings.TrimSpace(req.ProductName) == "" ||
		req.Quantity == 0 {
		return errors.New("missing required fields")
	}
	if req.Quantity < 0 {
		return errors.New("quantity must be greater than zero")
	}
	return nil
}

// placeholderEmail synthesizes a stand-in address when the customer leaves
// email blank. It is not a deliverable address.
func placeholderEmail(customerName string) string {
	return strings.TrimSpace(customerName) + "@example.com"
}

// buildOrder assembles the order and its single line from the validated
// request and the authoritative product record. The product snapshot (name,
// unit price) comes from the catalog, never from the client.
func buildOrder(req createOrderRequest, orderNumber string, product models.Product, unitPrice float64, now time.Time) (models.Order, models.OrderItem) {
	email := strings.TrimSpace(req.Email)
	if email == "" {
		email = placeholderEmail(req.CustomerName)
	}

	total := unitPrice * float64(req.Quantity)

	order := models.Order{
		OrderNumber:     orderNumber,
		CustomerName:    strings.TrimSpace(req.CustomerName),
		CustomerEmail:   email,
		CustomerPhone:   strings.TrimSpace(req.Phone),
		ShippingAddress: strings.TrimSpace(req.Address),
		TotalAmount:     total,
		Status:          models.StatusPending,
		PaymentMethod:   "cod",
		PaymentStatus:   "pending",
		Notes:           strings.TrimSpace(req.Notes),
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	item := models.OrderItem{
		ProductID:    product.ID,
		ProductName:  product.Name,
		ProductPrice: unitPrice,
		Quantity:     req.Quantity,
		TotalPrice:   total,
	}

	return order, item
}

type productNotFoundError struct {
	ProductID primitive.ObjectID
}

func (e productNotFoundError) Error() string {
	return "product not found"
}
