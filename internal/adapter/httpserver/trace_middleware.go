package httpserver

import (
	"net/http"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// TraceMiddleware wraps the handler chain in an OTel server span so request
// ids can correlate with trace ids.
func TraceMiddleware(next http.Handler) http.Handler {
	return otelhttp.NewHandler(next, "http.request")
}
