package verification

import (
	"context"
	"fmt"
	"strings"

	"github.com/ordergrid/ordergrid/internal/geo"
	"github.com/ordergrid/ordergrid/internal/models"

	log "github.com/sirupsen/logrus"
)

// VerificationRadiusMeters is the geofence radius for GPS proximity checks.
const VerificationRadiusMeters = 100.0

// LocationSource supplies the billing-active locations of a business.
type LocationSource interface {
	ActiveByBusinessID(ctx context.Context, businessID uint64) ([]models.Location, error)
}

// Verifier resolves location claims against registered locations.
type Verifier struct {
	locations LocationSource
	radius    float64
}

// NewVerifier constructs a Verifier with the default geofence radius.
func NewVerifier(locations LocationSource) *Verifier {
	return &Verifier{locations: locations, radius: VerificationRadiusMeters}
}

// VerifyQRCode matches a scanned code against the primary or backup QR
// code of the business's active locations. Exact string match only; a
// match authorizes immediately since possession of the code is the trust
// signal, so no distance check is performed.
func (v *Verifier) VerifyQRCode(ctx context.Context, businessID uint64, code string) Result {
	code = strings.TrimSpace(code)
	if code == "" {
		return Result{Method: MethodQRCode, Error: "qr code is empty"}
	}

	active, errList := v.locations.ActiveByBusinessID(ctx, businessID)
	if errList != nil {
		log.WithError(errList).Warn("verification: list active locations failed")
		return Result{Method: MethodQRCode, Error: "location lookup failed"}
	}

	for _, loc := range active {
		if loc.QRCodePrimary == code || (loc.QRCodeBackup != "" && loc.QRCodeBackup == code) {
			return Result{
				IsValid:    true,
				LocationID: loc.ID,
				BusinessID: loc.BusinessID,
				Method:     MethodQRCode,
			}
		}
	}
	return Result{Method: MethodQRCode, Error: "qr code not recognized"}
}

// VerifyGPS measures the distance from the device coordinates to every
// active location and authorizes when the nearest one is inside the
// geofence radius. On failure the result still carries the nearest
// location and the measured distance so callers can tell the customer
// how far away they are.
func (v *Verifier) VerifyGPS(ctx context.Context, businessID uint64, coords Coordinates) Result {
	active, errList := v.locations.ActiveByBusinessID(ctx, businessID)
	if errList != nil {
		log.WithError(errList).Warn("verification: list active locations failed")
		return Result{Method: MethodGPS, Error: "location lookup failed", Coordinates: &coords}
	}
	if len(active) == 0 {
		return Result{Method: MethodGPS, Error: "no active locations", Coordinates: &coords}
	}

	var nearest models.Location
	minDistance := -1.0
	for _, loc := range active {
		d := geo.Distance(coords.Latitude, coords.Longitude, loc.Latitude, loc.Longitude)
		if minDistance < 0 || d < minDistance {
			minDistance = d
			nearest = loc
		}
	}

	result := Result{
		LocationID:     nearest.ID,
		BusinessID:     nearest.BusinessID,
		DistanceMeters: minDistance,
		Method:         MethodGPS,
		Coordinates:    &coords,
	}
	if minDistance <= v.radius {
		result.IsValid = true
		return result
	}
	result.Error = fmt.Sprintf("nearest location is %.0fm away", minDistance)
	return result
}

// VerifyIP resolves an approximate position from the request IP. The
// signal is too coarse to authorize billing-relevant location claims, so
// the result is always advisory: IsValid stays false regardless of how
// close the derived coordinates are.
func (v *Verifier) VerifyIP(ctx context.Context, businessID uint64, ip string) Result {
	result := Result{Method: MethodIPAddress, BusinessID: businessID}
	if strings.TrimSpace(ip) == "" {
		result.Error = "ip address unavailable"
		return result
	}
	// IP geolocation would resolve coordinates here; the derived
	// position is informational only and never authorizes.
	result.Error = "ip-based verification is advisory only"
	return result
}

// VerifyForOrder runs the fallback chain for an order placement: QR code
// when a code was supplied, then GPS when the provider yields a fix,
// then IP as a terminal advisory step. The first authorizing method
// short-circuits the chain.
func (v *Verifier) VerifyForOrder(ctx context.Context, businessID uint64, qrCode string, provider GeolocationProvider, ip string) Result {
	if strings.TrimSpace(qrCode) != "" {
		if result := v.VerifyQRCode(ctx, businessID, qrCode); result.IsValid {
			return result
		}
	}

	var gpsResult *Result
	if provider != nil {
		coords, errCurrent := provider.Current(ctx)
		if errCurrent == nil {
			result := v.VerifyGPS(ctx, businessID, coords)
			if result.IsValid {
				return result
			}
			gpsResult = &result
		}
	}

	result := v.VerifyIP(ctx, businessID, ip)
	if gpsResult != nil {
		// Keep the measured GPS context so callers can still tell the
		// customer how far away the nearest location is.
		result.LocationID = gpsResult.LocationID
		result.DistanceMeters = gpsResult.DistanceMeters
		result.Coordinates = gpsResult.Coordinates
	}
	return result
}
