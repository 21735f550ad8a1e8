// Package cache defines the store used to replay responses of requests
// carrying an Idempotency-Key.
package cache

import (
	"context"
	"time"
)

// Response is a completed HTTP response kept for replay.
type Response struct {
	Status      int    `json:"status"`
	ContentType string `json:"content_type"`
	Body        []byte `json:"body"`
}

// ResponseCache stores responses by key. Get returns (nil, nil) on a miss.
type ResponseCache interface {
	Get(ctx context.Context, key string) (*Response, error)
	Set(ctx context.Context, key string, resp *Response, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}
