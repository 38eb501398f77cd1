package tyrell

// TransportID represents a unique transport identifier.
// Using a typed constant prevents typos and provides compile-time safety.
type TransportID string

// Known transport identifiers
const (
	// TransportAnthropic posts to the Anthropic Messages API
	TransportAnthropic TransportID = "anthropic"

	// TransportLorem is the offline mock transport for tests and examples
	TransportLorem TransportID = "lorem"
)

// String returns the string representation of the transport ID
func (t TransportID) String() string {
	return string(t)
}

// IsValid returns true if the transport ID is a known transport
func (t TransportID) IsValid() bool {
	switch t {
	case TransportAnthropic, TransportLorem:
		return true
	default:
		return false
	}
}
