package delivery

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
)

// maxResponseBytes caps how much of a collector response is kept.
const maxResponseBytes = 1 << 20

// Response is what one transport call returned.
type Response struct {
	Status int
	Body   []byte
}

// Transport performs a single POST. An error means no HTTP response was received;
// non-2xx statuses are returned as a Response.
type Transport interface {
	Post(ctx context.Context, url string, header http.Header, body []byte) (Response, error)
}

// HTTPTransport is a Transport backed by net/http.
type HTTPTransport struct {
	Client *http.Client
}

func NewHTTPTransport() *HTTPTransport {
	return &HTTPTransport{Client: &http.Client{}}
}

func (t *HTTPTransport) Post(ctx context.Context, url string, header http.Header, body []byte) (Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return Response{}, fmt.Errorf("new request: %w", err)
	}
	for k, vs := range header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}

	client := t.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return Response{}, err
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return Response{}, fmt.Errorf("read response: %w", err)
	}
	return Response{Status: resp.StatusCode, Body: data}, nil
}

// Headers builds the request headers the collector expects.
func Headers(apiKey, contentType, stationID string) http.Header {
	h := make(http.Header)
	h.Set("Authorization", "Bearer "+apiKey)
	h.Set("Content-Type", contentType)
	if stationID != "" {
		h.Set("X-Station-ID", stationID)
	}
	return h
}
