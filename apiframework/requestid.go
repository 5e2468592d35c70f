package apiframework

import (
	"context"
	"net/http"

	"github.com/contenox/chatsync/libtracker"
)

const RequestIDHeader = "X-Request-ID"

// SetRequestHeaders stamps the auth token and the request id carried by ctx on req.
func SetRequestHeaders(ctx context.Context, req *http.Request, token string) {
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if id := libtracker.RequestID(ctx); id != "" {
		req.Header.Set(RequestIDHeader, id)
	}
}
