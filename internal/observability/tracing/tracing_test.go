package tracing

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func installRecorder(t *testing.T) *tracetest.InMemoryExporter {
	t.Helper()
	exporter := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter))
	otel.SetTracerProvider(tp)
	t.Cleanup(func() { otel.SetTracerProvider(sdktrace.NewTracerProvider()) })
	return exporter
}

func TestStartSourceSpan_RecordsError(t *testing.T) {
	exporter := installRecorder(t)

	_, span := StartSourceSpan(context.Background(), "OSCS", "fetch_by_date")
	End(span, errors.New("upstream down"))

	spans := exporter.GetSpans()
	if len(spans) != 1 {
		t.Fatalf("expected 1 span, got %d", len(spans))
	}
	if spans[0].Name != "source.fetch_by_date" {
		t.Errorf("expected span name 'source.fetch_by_date', got %q", spans[0].Name)
	}
	if spans[0].Status.Code != codes.Error {
		t.Errorf("expected error status, got %v", spans[0].Status.Code)
	}

	found := false
	for _, attr := range spans[0].Attributes {
		if attr.Key == "vuln.source" && attr.Value.AsString() == "OSCS" {
			found = true
		}
	}
	if !found {
		t.Error("expected vuln.source attribute")
	}
}

func TestMiddleware_CreatesSpan(t *testing.T) {
	exporter := installRecorder(t)

	handler := Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/vulns", nil))

	spans := exporter.GetSpans()
	if len(spans) != 1 {
		t.Fatalf("expected 1 span, got %d", len(spans))
	}
	if spans[0].Name != "GET /api/vulns" {
		t.Errorf("expected span name 'GET /api/vulns', got %q", spans[0].Name)
	}
	if rr.Header().Get("X-Trace-Id") == "" {
		t.Error("expected X-Trace-Id header")
	}
}

func TestMiddleware_MarksErrorSpansFor5xx(t *testing.T) {
	exporter := installRecorder(t)

	handler := Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/poc", nil))

	spans := exporter.GetSpans()
	if len(spans) != 1 || spans[0].Status.Code != codes.Error {
		t.Fatalf("expected one errored span, got %+v", spans)
	}
}

func TestInit_ReturnsShutdown(t *testing.T) {
	shutdown := Init(1.0)
	t.Cleanup(func() { otel.SetTracerProvider(sdktrace.NewTracerProvider()) })
	if err := shutdown(context.Background()); err != nil {
		t.Errorf("shutdown() error = %v", err)
	}
}

func TestMiddleware_RecordsResponseAttributes(t *testing.T) {
	exporter := installRecorder(t)

	handler := Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("hello"))
	}))
	rr := httptest.NewRecorder()
	rr.Header().Set("X-Request-ID", "req-1")
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/vulns?page=2", nil))

	spans := exporter.GetSpans()
	if len(spans) != 1 {
		t.Fatalf("expected 1 span, got %d", len(spans))
	}
	got := map[string]string{}
	for _, attr := range spans[0].Attributes {
		got[string(attr.Key)] = attr.Value.Emit()
	}
	want := map[string]string{
		"http.response.status_code": "200",
		"http.response.body.size":   "5",
		"http.request.id":           "req-1",
		"url.path":                  "/api/vulns",
	}
	for k, v := range want {
		if got[k] != v {
			t.Errorf("attribute %s = %q, want %q", k, got[k], v)
		}
	}
}
