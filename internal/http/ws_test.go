package httpapi

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

// A plain GET without the websocket handshake headers must get exactly
// the rejection the upgrader writes, with no second error response
// appended by the handler.
func TestWSRejectsPlainHTTP(t *testing.T) {
	srv, _ := testServer(t)

	req := httptest.NewRequest("GET", "/ws/orders/o1", nil)
	w := httptest.NewRecorder()
	srv.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusBadRequest)
	}
	body := w.Body.String()
	if n := strings.Count(strings.TrimRight(body, "\n"), "\n"); n != 0 {
		t.Fatalf("expected a single-line error body, got %q", body)
	}
}
