package chi

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	chirouter "github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	logpkg "github.com/kailas-cloud/posedex/internal/logger"
)

func TestRecoverer_JSONEnvelope(t *testing.T) {
	core, logs := observer.New(zapcore.ErrorLevel)
	handler := Recoverer(zap.New(core))(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest("POST", "/search", http.NoBody))

	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d", rr.Code)
	}
	var resp ErrorResponse
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatal(err)
	}
	if resp.Success || resp.Code != ErrorCodeInternalError || resp.Results == nil {
		t.Errorf("envelope = %+v", resp)
	}
	if logs.Len() != 1 {
		t.Errorf("expected 1 error log, got %d", logs.Len())
	}
}

func TestWideEvent_RequestLogger(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	var sawLogger bool

	r := chirouter.NewRouter()
	r.Use(chiMiddleware.RequestID)
	r.Use(WideEvent(zap.New(core)))
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		logpkg.FromContext(r.Context()).Info("inside")
		sawLogger = true
		w.WriteHeader(http.StatusTeapot)
	})

	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest("GET", "/health", http.NoBody))

	if !sawLogger || rr.Header().Get("X-Request-ID") == "" {
		t.Fatalf("handler ran = %v, request id = %q", sawLogger, rr.Header().Get("X-Request-ID"))
	}
	entries := logs.FilterMessage("http_request").All()
	if len(entries) != 1 {
		t.Fatalf("expected 1 canonical line, got %d", len(entries))
	}
	fields := entries[0].ContextMap()
	if fields["status"] != int64(http.StatusTeapot) || fields["request_id"] == "" {
		t.Errorf("fields = %v", fields)
	}
	if logs.FilterMessage("inside").FilterField(zap.String("request_id", fields["request_id"].(string))).Len() != 1 {
		t.Error("handler log line lacks the request id")
	}
}
