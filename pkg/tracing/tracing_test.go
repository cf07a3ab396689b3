package tracing

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func TestGinMiddlewareRecordsRouteAndStatus(t *testing.T) {
	gin.SetMode(gin.TestMode)
	exp := tracetest.NewInMemoryExporter()
	tp := NewProvider(exp, "attemptd-test", 1)
	defer tp.Shutdown(context.Background())

	r := gin.New()
	r.Use(GinMiddleware())
	r.POST("/api/tests/:testId/session/submit", func(c *gin.Context) {
		c.Status(http.StatusBadGateway)
	})
	r.GET("/api/health", func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	for _, req := range []*http.Request{
		httptest.NewRequest(http.MethodPost, "/api/tests/7/session/submit", nil),
		httptest.NewRequest(http.MethodGet, "/api/health", nil),
	} {
		r.ServeHTTP(httptest.NewRecorder(), req)
	}
	if err := tp.ForceFlush(context.Background()); err != nil {
		t.Fatalf("flush: %v", err)
	}

	spans := exp.GetSpans()
	if len(spans) != 2 {
		t.Fatalf("spans = %d, want 2", len(spans))
	}

	submit := spans[0]
	if submit.Name != "POST /api/tests/:testId/session/submit" {
		t.Fatalf("span name = %q", submit.Name)
	}
	attrs := map[string]string{}
	for _, kv := range submit.Attributes {
		attrs[string(kv.Key)] = kv.Value.Emit()
	}
	if attrs[string(AttrTestID)] != "7" || attrs[string(AttrStatus)] != "502" {
		t.Fatalf("attributes = %v", attrs)
	}
	if submit.Status.Code != codes.Error {
		t.Fatalf("status = %v, want error", submit.Status)
	}

	if health := spans[1]; health.Status.Code == codes.Error {
		t.Fatalf("health span marked as failed: %v", health.Status)
	}
}
