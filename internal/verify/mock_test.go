package verify

import (
	"context"
	"testing"
)

func venue() *Geofence {
	return &Geofence{Lat: 40.7580, Lon: -73.9855, RadiusM: 100}
}

func TestMockVerifierGeofencePass(t *testing.T) {
	lat, lon := 40.7581, -73.9856
	res, err := MockVerifier{}.Verify(context.Background(), Request{
		WorkerID: "w1", Lat: &lat, Lon: &lon, Venue: venue(),
	})
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if !res.Passed || res.Method != MethodGeofence {
		t.Fatalf("expected geofence pass, got %+v", res)
	}
}

func TestMockVerifierGeofenceFailIsTerminal(t *testing.T) {
	lat, lon := 40.7760, -73.9855 // ~2km away
	res, err := MockVerifier{}.Verify(context.Background(), Request{
		WorkerID:   "w1",
		Lat:        &lat,
		Lon:        &lon,
		Venue:      venue(),
		QRCode:     "shift-1",
		ExpectedQR: "shift-1",
	})
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if res.Passed || res.Code != CodeLocationFailed {
		t.Fatalf("off-site worker must fail with LOCATION_FAILED even with a valid QR, got %+v", res)
	}
}

func TestMockVerifierQRMismatch(t *testing.T) {
	res, err := MockVerifier{}.Verify(context.Background(), Request{
		WorkerID: "w1", QRCode: "other-shift", ExpectedQR: "shift-1",
	})
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if res.Passed || res.Code != CodeIdentityFailed {
		t.Fatalf("expected IDENTITY_FAILED, got %+v", res)
	}
}

func TestMockVerifierSupervisorOverride(t *testing.T) {
	res, err := MockVerifier{SupervisorCode: "boss-1"}.Verify(context.Background(), Request{
		WorkerID: "w1", SupervisorCode: "boss-1",
	})
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if !res.Passed || res.Method != MethodSupervisor {
		t.Fatalf("expected supervisor pass, got %+v", res)
	}
}

func TestMockVerifierEmptyBundle(t *testing.T) {
	res, err := MockVerifier{}.Verify(context.Background(), Request{WorkerID: "w1"})
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if res.Passed || res.Code != CodeIdentityFailed {
		t.Fatalf("expected IDENTITY_FAILED for empty bundle, got %+v", res)
	}
}
