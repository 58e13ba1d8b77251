package verify

import "context"

// Method names reported back on a passing verification.
const (
	MethodGeofence   = "geofence"
	MethodFace       = "face"
	MethodQR         = "qr"
	MethodSupervisor = "supervisor"
)

// Failure codes mirrored into the tracking failure taxonomy.
const (
	CodeLocationFailed = "LOCATION_FAILED"
	CodeIdentityFailed = "IDENTITY_FAILED"
)

type Geofence struct {
	Lat     float64 `json:"lat"`
	Lon     float64 `json:"lon"`
	RadiusM float64 `json:"radius_m"`
}

// Request carries the clock-in verification bundle. At least one channel
// (location, face image, QR code, supervisor code) must be present and pass.
type Request struct {
	WorkerID string `json:"worker_id"`

	Lat *float64 `json:"lat,omitempty"`
	Lon *float64 `json:"lon,omitempty"`

	FaceImage      string `json:"face_image,omitempty"`
	QRCode         string `json:"qr_code,omitempty"`
	SupervisorCode string `json:"supervisor_code,omitempty"`

	Venue         *Geofence `json:"venue,omitempty"`
	ExpectedQR    string    `json:"expected_qr,omitempty"`
	FaceReference string    `json:"face_reference,omitempty"`
}

type Result struct {
	Passed bool   `json:"passed"`
	Method string `json:"method,omitempty"`
	Code   string `json:"code,omitempty"`
	Reason string `json:"reason,omitempty"`
}

// Verifier validates on-site presence and identity at clock-in. Errors (network,
// timeout) are dependency failures; callers must not treat them as a pass.
type Verifier interface {
	Verify(ctx context.Context, req Request) (Result, error)
}
