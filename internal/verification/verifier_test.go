package verification

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/ordergrid/ordergrid/internal/models"
)

// fakeLocationSource returns a fixed slice of active locations.
type fakeLocationSource struct {
	locations []models.Location
	err       error
}

func (f *fakeLocationSource) ActiveByBusinessID(_ context.Context, _ uint64) ([]models.Location, error) {
	return f.locations, f.err
}

// fakeProvider returns fixed coordinates or an error.
type fakeProvider struct {
	coords Coordinates
	err    error
	calls  int
}

func (f *fakeProvider) Current(_ context.Context) (Coordinates, error) {
	f.calls++
	if f.err != nil {
		return Coordinates{}, f.err
	}
	return f.coords, nil
}

// testPoint is the reference coordinate all distances are measured from.
var testPoint = Coordinates{Latitude: 40.7128, Longitude: -74.0060}

// locationAt returns a location offset north of testPoint by roughly the
// given number of meters (one degree of latitude is ~111.32 km).
func locationAt(id uint64, meters float64) models.Location {
	return models.Location{
		ID:            id,
		BusinessID:    1,
		Name:          "loc",
		Latitude:      testPoint.Latitude + meters/111_320,
		Longitude:     testPoint.Longitude,
		QRCodePrimary: "qr-primary",
		IsActive:      true,
	}
}

func TestVerifyQRCode_PrimaryMatch(t *testing.T) {
	source := &fakeLocationSource{locations: []models.Location{
		{ID: 7, BusinessID: 1, QRCodePrimary: "qr-7", IsActive: true},
	}}
	v := NewVerifier(source)

	result := v.VerifyQRCode(context.Background(), 1, "qr-7")
	if !result.IsValid {
		t.Fatalf("expected valid result, got error=%q", result.Error)
	}
	if result.LocationID != 7 || result.BusinessID != 1 {
		t.Fatalf("expected location 7 business 1, got %d/%d", result.LocationID, result.BusinessID)
	}
	if result.Method != MethodQRCode {
		t.Fatalf("expected method %s, got %s", MethodQRCode, result.Method)
	}
}

func TestVerifyQRCode_BackupMatch(t *testing.T) {
	source := &fakeLocationSource{locations: []models.Location{
		{ID: 7, BusinessID: 1, QRCodePrimary: "qr-7", QRCodeBackup: "qr-7b", IsActive: true},
	}}
	v := NewVerifier(source)

	if result := v.VerifyQRCode(context.Background(), 1, "qr-7b"); !result.IsValid {
		t.Fatalf("expected backup code to match, got error=%q", result.Error)
	}
}

func TestVerifyQRCode_InactiveLocationNeverMatches(t *testing.T) {
	// The source only yields active locations; an inactive location's
	// code therefore behaves exactly like an unknown code.
	source := &fakeLocationSource{}
	v := NewVerifier(source)

	result := v.VerifyQRCode(context.Background(), 1, "qr-of-inactive")
	if result.IsValid {
		t.Fatal("expected invalid result for inactive location code")
	}
	if result.Error != "qr code not recognized" {
		t.Fatalf("expected not-recognized error, got %q", result.Error)
	}
}

func TestVerifyQRCode_NoPartialMatch(t *testing.T) {
	source := &fakeLocationSource{locations: []models.Location{
		{ID: 7, BusinessID: 1, QRCodePrimary: "qr-7", IsActive: true},
	}}
	v := NewVerifier(source)

	if result := v.VerifyQRCode(context.Background(), 1, "qr-"); result.IsValid {
		t.Fatal("expected exact match only")
	}
}

func TestVerifyGPS_SelectsNearestInsideRadius(t *testing.T) {
	source := &fakeLocationSource{locations: []models.Location{
		locationAt(2, 150),
		locationAt(1, 0),
	}}
	v := NewVerifier(source)

	result := v.VerifyGPS(context.Background(), 1, testPoint)
	if !result.IsValid {
		t.Fatalf("expected valid result, got error=%q", result.Error)
	}
	if result.LocationID != 1 {
		t.Fatalf("expected nearest location 1, got %d", result.LocationID)
	}
	if result.DistanceMeters != 0 {
		t.Fatalf("expected zero distance, got %f", result.DistanceMeters)
	}
}

func TestVerifyGPS_OutsideRadiusReportsNearest(t *testing.T) {
	source := &fakeLocationSource{locations: []models.Location{locationAt(2, 150)}}
	v := NewVerifier(source)

	result := v.VerifyGPS(context.Background(), 1, testPoint)
	if result.IsValid {
		t.Fatal("expected invalid result outside the geofence")
	}
	if result.LocationID != 2 {
		t.Fatalf("expected nearest location 2, got %d", result.LocationID)
	}
	if result.DistanceMeters < 140 || result.DistanceMeters > 160 {
		t.Fatalf("expected ~150m distance, got %f", result.DistanceMeters)
	}
	if result.Error == "" {
		t.Fatal("expected a distance error message")
	}
}

func TestVerifyGPS_NoActiveLocations(t *testing.T) {
	v := NewVerifier(&fakeLocationSource{})

	result := v.VerifyGPS(context.Background(), 1, testPoint)
	if result.IsValid {
		t.Fatal("expected invalid result with no active locations")
	}
	if result.Error != "no active locations" {
		t.Fatalf("expected no-active-locations error, got %q", result.Error)
	}
	if result.LocationID != 0 {
		t.Fatalf("expected no location id, got %d", result.LocationID)
	}
}

func TestVerifyIP_NeverAuthorizes(t *testing.T) {
	v := NewVerifier(&fakeLocationSource{locations: []models.Location{locationAt(1, 0)}})

	if result := v.VerifyIP(context.Background(), 1, "203.0.113.9"); result.IsValid {
		t.Fatal("expected ip verification to stay advisory")
	}
}

func TestVerifyForOrder_QRShortCircuits(t *testing.T) {
	source := &fakeLocationSource{locations: []models.Location{
		{ID: 7, BusinessID: 1, QRCodePrimary: "qr-7", IsActive: true},
	}}
	v := NewVerifier(source)
	provider := &fakeProvider{coords: testPoint}

	result := v.VerifyForOrder(context.Background(), 1, "qr-7", provider, "203.0.113.9")
	if !result.IsValid || result.Method != MethodQRCode {
		t.Fatalf("expected qr short-circuit, got method=%s valid=%v", result.Method, result.IsValid)
	}
	if provider.calls != 0 {
		t.Fatalf("expected gps provider untouched, got %d calls", provider.calls)
	}
}

func TestVerifyForOrder_FallsBackToGPS(t *testing.T) {
	source := &fakeLocationSource{locations: []models.Location{locationAt(3, 20)}}
	v := NewVerifier(source)
	provider := &fakeProvider{coords: testPoint}

	result := v.VerifyForOrder(context.Background(), 1, "unknown-code", provider, "")
	if !result.IsValid || result.Method != MethodGPS {
		t.Fatalf("expected gps fallback, got method=%s valid=%v", result.Method, result.IsValid)
	}
	if result.LocationID != 3 {
		t.Fatalf("expected location 3, got %d", result.LocationID)
	}
}

func TestVerifyForOrder_GPSUnavailableEndsAdvisory(t *testing.T) {
	source := &fakeLocationSource{locations: []models.Location{locationAt(3, 20)}}
	v := NewVerifier(source)
	provider := &fakeProvider{err: errors.New("denied")}

	result := v.VerifyForOrder(context.Background(), 1, "", provider, "203.0.113.9")
	if result.IsValid {
		t.Fatal("expected invalid terminal result")
	}
	if result.Method != MethodIPAddress {
		t.Fatalf("expected ip method, got %s", result.Method)
	}
}

func TestVerifyForOrder_GPSFailureKeepsDistanceContext(t *testing.T) {
	source := &fakeLocationSource{locations: []models.Location{locationAt(3, 150)}}
	v := NewVerifier(source)
	provider := &fakeProvider{coords: testPoint}

	result := v.VerifyForOrder(context.Background(), 1, "", provider, "203.0.113.9")
	if result.IsValid {
		t.Fatal("expected invalid terminal result")
	}
	if result.Method != MethodIPAddress {
		t.Fatalf("expected ip method, got %s", result.Method)
	}
	if result.LocationID != 3 {
		t.Fatalf("expected nearest location carried over, got %d", result.LocationID)
	}
	if result.DistanceMeters < 140 || result.DistanceMeters > 160 {
		t.Fatalf("expected ~150m distance carried over, got %f", result.DistanceMeters)
	}
}

func TestCachedProvider_ReusesFreshFix(t *testing.T) {
	inner := &fakeProvider{coords: testPoint}
	provider := NewCachedProvider(inner, time.Second, time.Minute)

	if _, errFirst := provider.Current(context.Background()); errFirst != nil {
		t.Fatalf("expected first acquisition to succeed: %v", errFirst)
	}
	if _, errSecond := provider.Current(context.Background()); errSecond != nil {
		t.Fatalf("expected cached acquisition to succeed: %v", errSecond)
	}
	if inner.calls != 1 {
		t.Fatalf("expected a single device acquisition, got %d", inner.calls)
	}
}

func TestCachedProvider_ExpiredFixReacquires(t *testing.T) {
	inner := &fakeProvider{coords: testPoint}
	provider := NewCachedProvider(inner, time.Second, time.Minute)

	now := time.Now()
	provider.nowFn = func() time.Time { return now }
	if _, err := provider.Current(context.Background()); err != nil {
		t.Fatalf("first acquisition: %v", err)
	}

	provider.nowFn = func() time.Time { return now.Add(2 * time.Minute) }
	if _, err := provider.Current(context.Background()); err != nil {
		t.Fatalf("second acquisition: %v", err)
	}
	if inner.calls != 2 {
		t.Fatalf("expected reacquisition after ttl, got %d calls", inner.calls)
	}
}

func TestCachedProvider_UnavailableMapsToSentinel(t *testing.T) {
	provider := NewCachedProvider(&fakeProvider{err: errors.New("timeout")}, time.Second, time.Minute)

	if _, err := provider.Current(context.Background()); !errors.Is(err, ErrPositionUnavailable) {
		t.Fatalf("expected ErrPositionUnavailable, got %v", err)
	}
}
