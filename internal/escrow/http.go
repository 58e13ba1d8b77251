package escrow

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"
)

type HTTPGateway struct {
	BaseURL string
	APIKey  string
	Client  *http.Client
}

type holdResponse struct {
	HoldID string `json:"hold_id"`
	Status string `json:"status"`
	Reason string `json:"reason"`
}

func (g *HTTPGateway) Hold(ctx context.Context, req HoldRequest) (HoldResult, error) {
	if g.Client == nil {
		g.Client = &http.Client{Timeout: 15 * time.Second}
	}

	b, _ := json.Marshal(req)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, g.BaseURL+"/holds", bytes.NewBuffer(b))
	if err != nil {
		return HoldResult{}, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if g.APIKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+g.APIKey)
	}

	resp, err := g.Client.Do(httpReq)
	if err != nil {
		return HoldResult{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var r holdResponse
		_ = json.NewDecoder(resp.Body).Decode(&r)
		if r.Reason != "" {
			return HoldResult{Held: false, Reason: r.Reason}, nil
		}
		return HoldResult{}, errors.New("escrow service error")
	}

	var r holdResponse
	if err := json.NewDecoder(resp.Body).Decode(&r); err != nil {
		return HoldResult{}, err
	}
	if r.Status != "held" {
		return HoldResult{Held: false, Reason: r.Reason}, nil
	}
	return HoldResult{Held: true, HoldID: r.HoldID}, nil
}
