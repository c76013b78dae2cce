package observability

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/borne-automatique/api/internal/platform/requestctx"
)

func TestParseCloudTraceContext(t *testing.T) {
	sc, ok := parseCloudTraceContext("105445aa7843bc8bf206b12000100000/1;o=1")
	if !ok {
		t.Fatalf("expected header to parse")
	}
	if sc.TraceID().String() != "105445aa7843bc8bf206b12000100000" {
		t.Fatalf("unexpected trace id %s", sc.TraceID())
	}
	if sc.SpanID().String() != "0000000000000001" || !sc.IsSampled() || !sc.IsRemote() {
		t.Fatalf("unexpected span context %+v", sc)
	}

	for _, header := range []string{"", "nope", "105445aa7843bc8bf206b12000100000", "zz/1;o=1", "105445aa7843bc8bf206b12000100000/abc"} {
		if _, ok := parseCloudTraceContext(header); ok {
			t.Fatalf("expected %q to be rejected", header)
		}
	}
}

func TestFormatCloudTraceHeaderRoundTrip(t *testing.T) {
	info := requestctx.TraceInfo{TraceID: "105445aa7843bc8bf206b12000100000", SpanID: "00000000000004d2", Sampled: true}
	header := formatCloudTraceHeader(info)
	if header != "105445aa7843bc8bf206b12000100000/1234;o=1" {
		t.Fatalf("unexpected header %q", header)
	}
}

func TestRequestLoggerLogsKioskAndStatus(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	logger := zap.New(core)

	handler := InjectLoggerMiddleware(logger)(KioskMiddleware(RequestLoggerMiddleware("demo-project")(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if got := requestctx.KioskID(r.Context()); got != "borne-03" {
				t.Fatalf("expected kiosk id on context, got %q", got)
			}
			w.WriteHeader(http.StatusConflict)
		}),
	)))

	req := httptest.NewRequest(http.MethodPost, "/api/v1/draft-orders", nil)
	req.Header.Set(requestctx.KioskHeader, "borne-03")
	handler.ServeHTTP(httptest.NewRecorder(), req)

	completed := logs.FilterMessage("request completed").All()
	if len(completed) != 1 {
		t.Fatalf("expected one completion entry, got %d", len(completed))
	}
	entry := completed[0]
	if entry.Level != zapcore.WarnLevel {
		t.Fatalf("expected warn level for 409, got %s", entry.Level)
	}
	fields := entry.ContextMap()
	if fields["kiosk_id"] != "borne-03" || fields["status"] != int64(http.StatusConflict) {
		t.Fatalf("unexpected fields %v", fields)
	}
}

func TestRecoveryMiddlewareWritesJSONError(t *testing.T) {
	core, logs := observer.New(zapcore.ErrorLevel)
	handler := RecoveryMiddleware(zap.New(core))(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}
	var body map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body["error"] != "internal_server_error" {
		t.Fatalf("unexpected body %v", body)
	}
	if logs.FilterMessage("panic recovered").Len() != 1 {
		t.Fatalf("expected panic to be logged")
	}
}

func TestEventLoggerPrefersRequestLogger(t *testing.T) {
	baseCore, baseLogs := observer.New(zapcore.InfoLevel)
	reqCore, reqLogs := observer.New(zapcore.InfoLevel)

	log := EventLogger(zap.New(baseCore), "checkout")
	log(context.Background(), "draft_order_created", map[string]any{"draftOrderId": "1"})
	log(requestctx.WithLogger(context.Background(), zap.New(reqCore)), "draft_order_variant_id_malformed", nil)

	if baseLogs.Len() != 1 || reqLogs.Len() != 1 {
		t.Fatalf("expected one entry per logger, got base=%d request=%d", baseLogs.Len(), reqLogs.Len())
	}
	if reqLogs.All()[0].Level != zapcore.WarnLevel {
		t.Fatalf("malformed events are warnings")
	}
	if fields := baseLogs.All()[0].ContextMap(); fields["component"] != "checkout" || fields["draftOrderId"] != "1" {
		t.Fatalf("unexpected fields %v", fields)
	}
}

func TestSanitizeString(t *testing.T) {
	if got := sanitizeString("GET\x00\n/x", 10); got != "GET/x" {
		t.Fatalf("unexpected %q", got)
	}
	if got := sanitizeString(strings.Repeat("a", 20), 5); got != "aaaaa" {
		t.Fatalf("unexpected %q", got)
	}
}
