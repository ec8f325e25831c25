package geoip

import (
	"context"
	"fmt"

	"github.com/evyataryagoni/timebot/internal/models"
)

// MockResolver is a test double for the Resolver interface.
// It allows tests to control behavior and verify interactions without
// touching the network.
type MockResolver struct {
	// IP is returned by CallerIP
	IP string

	// Data holds the mock geolocation data (IP address -> location mapping)
	Data map[string]*models.GeoLocation

	// Track method calls for verification in tests
	CallerIPCalls int
	LookupCalls   []string

	// Control behavior for error scenarios
	CallerIPError error
	LookupError   error
}

// NewMockResolver creates a mock resolver pre-populated with sample data
func NewMockResolver() *MockResolver {
	return &MockResolver{
		IP: "159.196.168.188",
		Data: map[string]*models.GeoLocation{
			"159.196.168.188": {
				IP:       "159.196.168.188",
				Country:  "Australia",
				Region:   "New South Wales",
				City:     "Sydney",
				Timezone: "Australia/Sydney",
				Lat:      -33.8688,
				Lon:      151.2093,
			},
			"8.8.8.8": {
				IP:       "8.8.8.8",
				Country:  "United States",
				Region:   "California",
				City:     "Mountain View",
				Timezone: "America/Los_Angeles",
			},
		},
		LookupCalls: []string{},
	}
}

// CallerIP implements the Resolver interface
func (m *MockResolver) CallerIP(ctx context.Context) (string, error) {
	m.CallerIPCalls++

	if m.CallerIPError != nil {
		return "", m.CallerIPError
	}
	return m.IP, nil
}

// Lookup implements the Resolver interface
// Tracks calls and returns configured data or errors
func (m *MockResolver) Lookup(ctx context.Context, ip string) (*models.GeoLocation, error) {
	m.LookupCalls = append(m.LookupCalls, ip)

	if m.LookupError != nil {
		return nil, m.LookupError
	}

	location, exists := m.Data[ip]
	if !exists {
		return nil, fmt.Errorf("%w: geolocation lookup failed for %s", ErrResolution, ip)
	}
	return location, nil
}
