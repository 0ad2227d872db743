// Package client sends lookup requests to the checking service.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"

	"github.com/google/uuid"

	"github.com/tmater/pulse/internal/proto"
)

// maxBody caps how much of a response is read.
const maxBody = 1 << 20

// Response is the raw answer of the service. Status is informational; the
// body alone decides how the result is shown.
type Response struct {
	Status    int
	Body      []byte
	RequestID string
}

// Client POSTs lookup requests to a single endpoint.
type Client struct {
	endpoint string
	http     *http.Client
}

// New returns a Client for endpoint, e.g. "http://localhost:8080/api/lookup".
// A nil httpClient means http.DefaultClient.
func New(endpoint string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{endpoint: endpoint, http: httpClient}
}

// Lookup sends req as JSON and returns whatever came back, for any status
// code. Only failures to get a response at all are errors.
func (c *Client) Lookup(ctx context.Context, req proto.LookupRequest) (Response, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return Response{}, fmt.Errorf("encode lookup: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return Response{}, fmt.Errorf("build lookup request: %w", err)
	}
	id := uuid.NewString()
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("X-Request-ID", id)

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return Response{}, fmt.Errorf("post lookup: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		return Response{}, fmt.Errorf("read lookup response: %w", err)
	}

	log.Printf("client: lookup posted request_id=%s checks=%v status=%d bytes=%d", id, req.Checks, resp.StatusCode, len(data))
	return Response{Status: resp.StatusCode, Body: data, RequestID: id}, nil
}
