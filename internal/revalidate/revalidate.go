package revalidate

import (
	"bytes"
	"context"
	"encoding/json"
	"log"
	"net/http"
	"time"
)

// Client asks the hosted rendering layer to drop cached pages after catalog
// mutations. Invalidation is best-effort: failures are logged and never
// surfaced to the admin caller.
type Client struct {
	endpoint string
	secret   string
	http     *http.Client
}

func NewClient(endpoint, secret string) *Client {
	return &Client{
		endpoint: endpoint,
		secret:   secret,
		http:     &http.Client{Timeout: 5 * time.Second},
	}
}

type request struct {
	Path   string `json:"path"`
	Tag    string `json:"tag"`
	Secret string `json:"secret"`
}

// Trigger posts an invalidation for the given path and tag. A client without
// a configured endpoint is a no-op so local setups need no rendering layer.
func (c *Client) Trigger(ctx context.Context, path, tag string) {
	if c == nil || c.endpoint == "" {
		return
	}

	body, err := json.Marshal(request{Path: path, Tag: tag, Secret: c.secret})
	if err != nil {
		log.Println("[REVALIDATE] marshal failed:", err)
		return
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		log.Println("[REVALIDATE] request build failed:", err)
		return
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		log.Println("[REVALIDATE] request failed:", err)
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		log.Printf("[REVALIDATE] endpoint returned %d for path=%s tag=%s", resp.StatusCode, path, tag)
		return
	}
	log.Printf("[REVALIDATE] invalidated path=%s tag=%s", path, tag)
}
