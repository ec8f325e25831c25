package clock

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"testing"
	"time"

	"github.com/evyataryagoni/timebot/internal/geoip"
)

// timePattern matches the fixed output shape: "2024-05-01 14:32:10 <zone>"
var timePattern = regexp.MustCompile(`^\d{4}-\d{2}-\d{2} \d{2}:\d{2}:\d{2} .+$`)

// TestLocalTime_ValidTimezones tests the formatted output for known zones
func TestLocalTime_ValidTimezones(t *testing.T) {
	tests := []struct {
		name     string
		timezone string
	}{
		{"Sydney", "Australia/Sydney"},
		{"New York", "America/New_York"},
		{"London", "Europe/London"},
		{"UTC", "UTC"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Arrange
			mockResolver := geoip.NewMockResolver()
			service := New(mockResolver, nil)

			// Act
			result, err := service.LocalTime(context.Background(), tt.timezone)

			// Assert
			if err != nil {
				t.Fatalf("expected no error, got: %v", err)
			}
			if result.Timezone != tt.timezone {
				t.Errorf("expected timezone %s, got %s", tt.timezone, result.Timezone)
			}
			if !timePattern.MatchString(result.LocalTime) {
				t.Errorf("formatted time %q does not match expected pattern", result.LocalTime)
			}

			expectedSuffix := " " + tt.timezone
			if got := result.LocalTime[len(result.LocalTime)-len(expectedSuffix):]; got != expectedSuffix {
				t.Errorf("expected formatted time to end with %q, got %q", expectedSuffix, result.LocalTime)
			}

			// The timestamp must reflect the current moment in that zone,
			// modulo a small tolerance.
			loc, _ := time.LoadLocation(tt.timezone)
			parsed, parseErr := time.ParseInLocation("2006-01-02 15:04:05", result.LocalTime[:19], loc)
			if parseErr != nil {
				t.Fatalf("failed to parse formatted time: %v", parseErr)
			}
			if diff := time.Since(parsed); diff < -5*time.Second || diff > 5*time.Second {
				t.Errorf("formatted time is %v away from now", diff)
			}

			// A direct timezone query must make no network calls.
			if mockResolver.CallerIPCalls != 0 {
				t.Errorf("expected 0 CallerIP calls, got %d", mockResolver.CallerIPCalls)
			}
			if len(mockResolver.LookupCalls) != 0 {
				t.Errorf("expected 0 Lookup calls, got %d", len(mockResolver.LookupCalls))
			}
		})
	}
}

// TestLocalTime_InvalidTimezones tests that bad identifiers fail cleanly
func TestLocalTime_InvalidTimezones(t *testing.T) {
	tests := []struct {
		name     string
		timezone string
	}{
		{"empty string", ""},
		{"nonsense", "Not/AZone"},
		{"abbreviation", "EST"},
		{"city only", "Sydney"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			service := New(geoip.NewMockResolver(), nil)

			result, err := service.LocalTime(context.Background(), tt.timezone)

			if !errors.Is(err, ErrInvalidTimezone) {
				t.Errorf("expected ErrInvalidTimezone, got: %v", err)
			}
			if result != nil {
				t.Errorf("expected nil result on error, got: %+v", result)
			}
		})
	}
}

// TestLocalTime_Idempotent tests that repeated calls within the same frozen
// instant produce identical strings
func TestLocalTime_Idempotent(t *testing.T) {
	service := New(geoip.NewMockResolver(), nil)
	frozen := time.Date(2024, 5, 1, 4, 32, 10, 0, time.UTC)
	service.nowFunc = func() time.Time { return frozen }

	first, err := service.LocalTime(context.Background(), "Australia/Sydney")
	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}
	second, err := service.LocalTime(context.Background(), "Australia/Sydney")
	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}

	if first.LocalTime != second.LocalTime {
		t.Errorf("expected identical results, got %q and %q", first.LocalTime, second.LocalTime)
	}
	// 04:32 UTC on 2024-05-01 is 14:32 in Sydney (AEST, UTC+10).
	if first.LocalTime != "2024-05-01 14:32:10 Australia/Sydney" {
		t.Errorf("unexpected formatted time: %q", first.LocalTime)
	}
}

// TestLocalTimeFromIP_Success tests the full IP -> geolocation -> time chain
func TestLocalTimeFromIP_Success(t *testing.T) {
	// Arrange: the mock resolver answers 159.196.168.188 -> Australia/Sydney
	mockResolver := geoip.NewMockResolver()
	service := New(mockResolver, nil)

	// Act
	result, err := service.LocalTimeFromIP(context.Background())

	// Assert
	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}
	if result.Timezone != "Australia/Sydney" {
		t.Errorf("expected timezone Australia/Sydney, got %s", result.Timezone)
	}
	if result.City != "Sydney" {
		t.Errorf("expected city Sydney, got %s", result.City)
	}
	if !timePattern.MatchString(result.LocalTime) {
		t.Errorf("formatted time %q does not match expected pattern", result.LocalTime)
	}

	// Verify the chain: one IP lookup, one geolocation lookup for that IP
	if mockResolver.CallerIPCalls != 1 {
		t.Errorf("expected 1 CallerIP call, got %d", mockResolver.CallerIPCalls)
	}
	if len(mockResolver.LookupCalls) != 1 || mockResolver.LookupCalls[0] != "159.196.168.188" {
		t.Errorf("expected Lookup called once with 159.196.168.188, got %v", mockResolver.LookupCalls)
	}
}

// TestLocalTimeFromIP_ResolverErrors tests that resolver failures propagate
func TestLocalTimeFromIP_ResolverErrors(t *testing.T) {
	t.Run("IP lookup fails", func(t *testing.T) {
		mockResolver := geoip.NewMockResolver()
		mockResolver.CallerIPError = fmt.Errorf("%w: connection refused", geoip.ErrNetwork)
		service := New(mockResolver, nil)

		_, err := service.LocalTimeFromIP(context.Background())

		if !errors.Is(err, geoip.ErrNetwork) {
			t.Errorf("expected ErrNetwork, got: %v", err)
		}
		if len(mockResolver.LookupCalls) != 0 {
			t.Errorf("expected no geolocation lookup after IP failure, got %d", len(mockResolver.LookupCalls))
		}
	})

	t.Run("geolocation lookup fails", func(t *testing.T) {
		mockResolver := geoip.NewMockResolver()
		mockResolver.LookupError = fmt.Errorf("%w: no timezone", geoip.ErrResolution)
		service := New(mockResolver, nil)

		_, err := service.LocalTimeFromIP(context.Background())

		if !errors.Is(err, geoip.ErrResolution) {
			t.Errorf("expected ErrResolution, got: %v", err)
		}
	})

	t.Run("provider returns unknown zone", func(t *testing.T) {
		mockResolver := geoip.NewMockResolver()
		mockResolver.Data[mockResolver.IP].Timezone = "Atlantis/Lost"
		service := New(mockResolver, nil)

		_, err := service.LocalTimeFromIP(context.Background())

		if !errors.Is(err, ErrInvalidTimezone) {
			t.Errorf("expected ErrInvalidTimezone, got: %v", err)
		}
	})
}

// TestLocalTime_LocalKeyword tests the "local" redirect to the IP-based flow
func TestLocalTime_LocalKeyword(t *testing.T) {
	for _, keyword := range []string{"local", "Local", "LOCAL"} {
		t.Run(keyword, func(t *testing.T) {
			mockResolver := geoip.NewMockResolver()
			service := New(mockResolver, nil)

			result, err := service.LocalTime(context.Background(), keyword)

			if err != nil {
				t.Fatalf("expected no error, got: %v", err)
			}
			if result.Timezone != "Australia/Sydney" {
				t.Errorf("expected redirect to resolve Australia/Sydney, got %s", result.Timezone)
			}
			if mockResolver.CallerIPCalls != 1 {
				t.Errorf("expected the redirect to trigger one CallerIP call, got %d", mockResolver.CallerIPCalls)
			}
		})
	}
}
