package verify

import (
	"context"
	"fmt"

	"github.com/shiftlane/backend/internal/geo"
)

// MockVerifier resolves the bundle locally: geofence math against the venue,
// token equality for face and QR, and a shared supervisor override code.
type MockVerifier struct {
	SupervisorCode string
}

func (v MockVerifier) Verify(ctx context.Context, req Request) (Result, error) {
	locationProvided := req.Lat != nil && req.Lon != nil && req.Venue != nil

	// A failed geofence is terminal: being off-site cannot be compensated by
	// a matching QR code.
	if locationProvided {
		dist := geo.DistanceMeters(*req.Lat, *req.Lon, req.Venue.Lat, req.Venue.Lon)
		if dist > req.Venue.RadiusM {
			return Result{
				Passed: false,
				Code:   CodeLocationFailed,
				Reason: fmt.Sprintf("worker is %.0fm from venue, allowed %.0fm", dist, req.Venue.RadiusM),
			}, nil
		}
	}

	if req.SupervisorCode != "" && v.SupervisorCode != "" && req.SupervisorCode == v.SupervisorCode {
		return Result{Passed: true, Method: MethodSupervisor}, nil
	}
	if req.QRCode != "" {
		if req.ExpectedQR != "" && req.QRCode == req.ExpectedQR {
			return Result{Passed: true, Method: MethodQR}, nil
		}
		return Result{Passed: false, Code: CodeIdentityFailed, Reason: "QR code does not match shift"}, nil
	}
	if req.FaceImage != "" {
		if req.FaceReference != "" && req.FaceImage == req.FaceReference {
			return Result{Passed: true, Method: MethodFace}, nil
		}
		return Result{Passed: false, Code: CodeIdentityFailed, Reason: "face match failed"}, nil
	}
	if locationProvided {
		return Result{Passed: true, Method: MethodGeofence}, nil
	}

	return Result{Passed: false, Code: CodeIdentityFailed, Reason: "no verification method provided"}, nil
}
