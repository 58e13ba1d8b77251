package verify

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestHTTPVerifierDelegates(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/verify" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		var req Request
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode: %v", err)
		}
		_ = json.NewEncoder(w).Encode(Result{Passed: true, Method: MethodQR})
	}))
	defer srv.Close()

	v := &HTTPVerifier{BaseURL: srv.URL}
	res, err := v.Verify(context.Background(), Request{WorkerID: "w1", QRCode: "shift-1", ExpectedQR: "shift-1"})
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if !res.Passed || res.Method != MethodQR {
		t.Fatalf("expected QR pass, got %+v", res)
	}
	if v.Client == nil {
		t.Fatalf("lazily built client must persist on the verifier")
	}
}
