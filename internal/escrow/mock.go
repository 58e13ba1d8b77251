package escrow

import (
	"context"
	"fmt"
	"sync/atomic"
)

// MockGateway holds funds in memory. FailFor lists business IDs whose holds
// are declined, for exercising the reconciliation path.
type MockGateway struct {
	FailFor map[string]string

	seq int64
}

func (g *MockGateway) Hold(ctx context.Context, req HoldRequest) (HoldResult, error) {
	if reason, ok := g.FailFor[req.BusinessID]; ok {
		return HoldResult{Held: false, Reason: reason}, nil
	}
	n := atomic.AddInt64(&g.seq, 1)
	return HoldResult{Held: true, HoldID: fmt.Sprintf("mock-hold-%d", n)}, nil
}
