package escrow

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestHTTPGatewayHold(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if r.URL.Path != "/holds" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer key-1" {
			t.Errorf("unexpected auth header %q", got)
		}
		_ = json.NewEncoder(w).Encode(holdResponse{HoldID: "h-1", Status: "held"})
	}))
	defer srv.Close()

	g := &HTTPGateway{BaseURL: srv.URL, APIKey: "key-1"}
	res, err := g.Hold(context.Background(), HoldRequest{AssignmentID: "a-1", AmountCents: 16000})
	if err != nil {
		t.Fatalf("hold: %v", err)
	}
	if !res.Held || res.HoldID != "h-1" {
		t.Fatalf("expected held h-1, got %+v", res)
	}
	if g.Client == nil {
		t.Fatalf("lazily built client must persist on the gateway")
	}

	if _, err := g.Hold(context.Background(), HoldRequest{AssignmentID: "a-2", AmountCents: 100}); err != nil {
		t.Fatalf("second hold: %v", err)
	}
	if calls != 2 {
		t.Fatalf("expected 2 calls, got %d", calls)
	}
}

func TestHTTPGatewayDeclinedWithReason(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusPaymentRequired)
		_ = json.NewEncoder(w).Encode(holdResponse{Reason: "card declined"})
	}))
	defer srv.Close()

	g := &HTTPGateway{BaseURL: srv.URL}
	res, err := g.Hold(context.Background(), HoldRequest{AssignmentID: "a-1"})
	if err != nil {
		t.Fatalf("a decline with a reason is a result, not an error: %v", err)
	}
	if res.Held || res.Reason != "card declined" {
		t.Fatalf("expected declined result, got %+v", res)
	}
}
