package revalidate

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestTriggerPostsPathTagAndSecret(t *testing.T) {
	var got request
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("expected POST, got %s", r.Method)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode failed: %v", err)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client := NewClient(server.URL, "s3cret")
	client.Trigger(context.Background(), "/san-pham", "products")

	if got.Path != "/san-pham" || got.Tag != "products" || got.Secret != "s3cret" {
		t.Fatalf("unexpected payload %+v", got)
	}
}

func TestTriggerWithoutEndpointIsNoOp(t *testing.T) {
	var client *Client
	client.Trigger(context.Background(), "/", "products")

	NewClient("", "secret").Trigger(context.Background(), "/", "products")
}
