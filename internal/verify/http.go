package verify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"
)

// HTTPVerifier delegates the bundle to an external identity service.
type HTTPVerifier struct {
	BaseURL string
	APIKey  string
	Client  *http.Client
}

func (v *HTTPVerifier) Verify(ctx context.Context, req Request) (Result, error) {
	if v.Client == nil {
		v.Client = &http.Client{Timeout: 10 * time.Second}
	}

	b, _ := json.Marshal(req)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, v.BaseURL+"/verify", bytes.NewBuffer(b))
	if err != nil {
		return Result{}, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if v.APIKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+v.APIKey)
	}

	resp, err := v.Client.Do(httpReq)
	if err != nil {
		return Result{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return Result{}, errors.New("verifier service error")
	}

	var r Result
	if err := json.NewDecoder(resp.Body).Decode(&r); err != nil {
		return Result{}, err
	}
	return r, nil
}
