package handlers

import (
	"bytes"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"hutieu-backend/internal/models"
)

func validOrderRequest() createOrderRequest {
	return createOrderRequest{
		CustomerName: "Nguyen Van A",
		Phone:        "0901234567",
		Address:      "12 Le Loi, Quan 1",
		ProductID:    primitive.NewObjectID().Hex(),
		ProductName:  "Hu tieu kho",
		Quantity:     3,
	}
}

func TestValidateCreateOrderRequestMissingFields(t *testing.T) {
	mutations := []func(*createOrderRequest){
		func(r *createOrderRequest) { r.CustomerName = "" },
		func(r *createOrderRequest) { r.Phone = " " },
		func(r *createOrderRequest) { r.Address = "" },
		func(r *createOrderRequest) { r.ProductID = "" },
		func(r *createOrderRequest) { r.ProductName = "" },
		func(r *createOrderRequest) { r.Quantity = 0 },
	}
	for i, mutate := range mutations {
		req := validOrderRequest()
		mutate(&req)
		err := validateCreateOrderRequest(req)
		if err == nil {
			t.Fatalf("case %d: expected validation error", i)
		}
		if err.Error() != "missing required fields" {
			t.Fatalf("case %d: unexpected message %q", i, err.Error())
		}
	}
}

func TestValidateCreateOrderRequestNegativeQuantity(t *testing.T) {
	req := validOrderRequest()
	req.Quantity = -2
	err := validateCreateOrderRequest(req)
	if err == nil || err.Error() != "quantity must be greater than zero" {
		t.Fatalf("expected quantity error, got %v", err)
	}
}

func TestValidateCreateOrderRequestEmailOptional(t *testing.T) {
	req := validOrderRequest()
	req.Email = ""
	if err := validateCreateOrderRequest(req); err != nil {
		t.Fatalf("email must be optional: %v", err)
	}
}

func TestBuildOrderComputesTotalFromResolvedPrice(t *testing.T) {
	req := validOrderRequest()
	product := models.Product{
		ID:        primitive.NewObjectID(),
		Name:      "Hủ tiếu khô 500g",
		Price:     50000,
		SalePrice: floatPtr(40000),
	}
	unit := effectiveUnitPrice(product.Price, product.SalePrice)

	order, item := buildOrder(req, "ORD001", product, unit, time.Now())

	if order.TotalAmount != 120000 {
		t.Fatalf("expected total 120000, got %v", order.TotalAmount)
	}
	if item.TotalPrice != order.TotalAmount {
		t.Fatalf("line total %v does not match order total %v", item.TotalPrice, order.TotalAmount)
	}
	if item.ProductPrice != 40000 {
		t.Fatalf("expected unit price snapshot 40000, got %v", item.ProductPrice)
	}
	if order.Status != models.StatusPending {
		t.Fatalf("expected pending status, got %s", order.Status)
	}
	if order.OrderNumber != "ORD001" {
		t.Fatalf("unexpected order number %q", order.OrderNumber)
	}
	if order.PaymentMethod != "cod" || order.PaymentStatus != "pending" {
		t.Fatalf("unexpected payment defaults: %s/%s", order.PaymentMethod, order.PaymentStatus)
	}
}

func TestBuildOrderSnapshotsCatalogName(t *testing.T) {
	req := validOrderRequest()
	req.ProductName = "client supplied name"
	product := models.Product{ID: primitive.NewObjectID(), Name: "Hủ tiếu khô 500g", Price: 50000}

	_, item := buildOrder(req, "ORD002", product, product.Price, time.Now())

	if item.ProductName != product.Name {
		t.Fatalf("line must snapshot the catalog name, got %q", item.ProductName)
	}
	if item.ProductID != product.ID {
		t.Fatalf("line must reference the catalog product id")
	}
}

func TestBuildOrderSynthesizesPlaceholderEmail(t *testing.T) {
	req := validOrderRequest()
	req.Email = ""
	product := models.Product{ID: primitive.NewObjectID(), Name: "Hu tieu", Price: 50000}

	order, _ := buildOrder(req, "ORD003", product, product.Price, time.Now())

	if order.CustomerEmail != "Nguyen Van A@example.com" {
		t.Fatalf("unexpected placeholder email %q", order.CustomerEmail)
	}

	req.Email = "a@b.vn"
	order, _ = buildOrder(req, "ORD004", product, product.Price, time.Now())
	if order.CustomerEmail != "a@b.vn" {
		t.Fatalf("supplied email must win, got %q", order.CustomerEmail)
	}
}

func TestUpdateOrderStatusRejectsBogusValue(t *testing.T) {
	gin.SetMode(gin.TestMode)

	recorder := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(recorder)
	c.Request = httptest.NewRequest("PUT", "/orders",
		bytes.NewBufferString(`{"id":"656f00000000000000000001","status":"bogus"}`))
	c.Request.Header.Set("Content-Type", "application/json")

	// The enum check fires before any database access.
	UpdateOrderStatus(nil)(c)

	if recorder.Code != 400 {
		t.Fatalf("expected 400, got %d", recorder.Code)
	}
	if body := recorder.Body.String(); !bytes.Contains([]byte(body), []byte("invalid status")) {
		t.Fatalf("unexpected body %s", body)
	}
}

func TestUpdateOrderStatusRequiresIDAndStatus(t *testing.T) {
	gin.SetMode(gin.TestMode)

	recorder := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(recorder)
	c.Request = httptest.NewRequest("PUT", "/orders", bytes.NewBufferString(`{"id":"","status":""}`))
	c.Request.Header.Set("Content-Type", "application/json")

	UpdateOrderStatus(nil)(c)

	if recorder.Code != 400 {
		t.Fatalf("expected 400, got %d", recorder.Code)
	}
}
