// Package verification resolves which registered location an order
// belongs to, using a strict-priority fallback chain of methods with
// decreasing trust: QR code, GPS proximity, IP address.
package verification

// Method identifies how a location claim was verified.
type Method string

// Method constants in decreasing trust order.
const (
	// MethodQRCode verifies via a scanned location QR code.
	MethodQRCode Method = "qr_code"
	// MethodGPS verifies via device GPS proximity.
	MethodGPS Method = "gps"
	// MethodIPAddress is advisory only and never authorizes an order.
	MethodIPAddress Method = "ip_address"
	// MethodManual marks operator-attributed orders.
	MethodManual Method = "manual"
)

// Coordinates is a latitude/longitude pair in degrees.
type Coordinates struct {
	Latitude  float64 `json:"latitude"`  // Latitude in degrees.
	Longitude float64 `json:"longitude"` // Longitude in degrees.
}

// Result is the structured outcome of a verification attempt. Failed
// verifications are data, not errors: IsValid is false and Error holds a
// short reason, while the remaining fields keep whatever actionable
// context the method produced (nearest location, measured distance).
type Result struct {
	IsValid        bool         `json:"is_valid"`                  // Whether the claim is authorized.
	LocationID     uint64       `json:"location_id,omitempty"`     // Matched or nearest location ID.
	BusinessID     uint64       `json:"business_id,omitempty"`     // Owning business ID.
	DistanceMeters float64      `json:"distance_meters,omitempty"` // Measured distance for GPS checks.
	Method         Method       `json:"method"`                    // Method that produced this result.
	Error          string       `json:"error,omitempty"`           // Failure reason when invalid.
	Coordinates    *Coordinates `json:"coordinates,omitempty"`     // Device coordinates when available.
}
