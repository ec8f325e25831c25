package clock

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/evyataryagoni/timebot/internal/geoip"
	"github.com/evyataryagoni/timebot/internal/logger"
	"github.com/evyataryagoni/timebot/internal/models"
)

// ErrInvalidTimezone means the given identifier is not a recognized IANA
// timezone. This can happen when the geolocation provider returns an
// unexpected or deprecated zone id; the failure propagates to the caller
// instead of producing a partial or default value.
var ErrInvalidTimezone = errors.New("invalid timezone")

// timeLayout is the fixed human-readable pattern for all formatted times.
const timeLayout = "2006-01-02 15:04:05"

// localKeyword redirects a timezone query to the IP-based flow, matching the
// behavior of the course material this project accompanies.
const localKeyword = "local"

// Service computes wall-clock time for IANA timezones. It owns the only
// piece of composition logic in this repository: the IP -> geolocation ->
// local time chain. Each call is stateless; nothing is cached between
// invocations.
type Service struct {
	resolver geoip.Resolver
	nowFunc  func() time.Time // swapped in tests
	logger   *logger.Logger
}

// New creates a clock service on top of a geolocation resolver.
//
// Parameters:
//   - resolver: any implementation of geoip.Resolver
//   - log: logger (optional, can be nil)
func New(resolver geoip.Resolver, log *logger.Logger) *Service {
	if log == nil {
		log = logger.NewDefault()
	}
	return &Service{
		resolver: resolver,
		nowFunc:  time.Now,
		logger:   log.WithComponent("ClockService"),
	}
}

// LocalTime computes the current wall-clock time in the given IANA timezone.
//
// Flow:
//  1. Redirect the special identifier "local" to the IP-based flow
//  2. Validate that the identifier is a canonical IANA zone name
//  3. Resolve it against the system timezone database and format "now"
//
// The formatted value has the fixed shape "2006-01-02 15:04:05 <zone>".
func (s *Service) LocalTime(ctx context.Context, timezone string) (*models.TimeResponse, error) {
	// Special case: "local" means "wherever this caller actually is".
	if strings.EqualFold(timezone, localKeyword) {
		s.logger.Debug().Msg("'local' timezone requested, redirecting to IP-based lookup")
		return s.LocalTimeFromIP(ctx)
	}

	loc, err := s.loadZone(timezone)
	if err != nil {
		return nil, err
	}

	formatted := s.format(loc, timezone)
	s.logger.Info().Str("timezone", timezone).Str("local_time", formatted).Msg("Computed local time")

	return &models.TimeResponse{
		Timezone:  timezone,
		LocalTime: formatted,
	}, nil
}

// LocalTimeFromIP chains the two external lookups and derives the current
// time in the caller's own timezone:
//
//  1. Resolve the caller's public IP
//  2. Resolve the IP's geolocation, which carries an IANA timezone id
//  3. Compute and format "now" in that zone
//
// Both lookups happen on every call; resolver errors propagate untouched so
// the caller can distinguish network failures from resolution failures.
func (s *Service) LocalTimeFromIP(ctx context.Context) (*models.TimeResponse, error) {
	ip, err := s.resolver.CallerIP(ctx)
	if err != nil {
		return nil, err
	}

	location, err := s.resolver.Lookup(ctx, ip)
	if err != nil {
		return nil, err
	}

	loc, err := s.loadZone(location.Timezone)
	if err != nil {
		// The provider handed back a zone our database does not know.
		s.logger.Warn().
			Str("ip", ip).
			Str("timezone", location.Timezone).
			Msg("Geolocation provider returned an unrecognized timezone")
		return nil, err
	}

	formatted := s.format(loc, location.Timezone)
	s.logger.Info().
		Str("ip", ip).
		Str("city", location.City).
		Str("timezone", location.Timezone).
		Str("local_time", formatted).
		Msg("Computed local time from IP")

	return &models.TimeResponse{
		Timezone:  location.Timezone,
		LocalTime: formatted,
		City:      location.City,
	}, nil
}

// loadZone resolves an identifier against the system timezone database.
// Only canonical IANA names ("Area/Location") and "UTC" are accepted:
// ambiguous abbreviations such as "EST" load fine through the database but
// do not carry the DST rules users expect, so they are rejected outright.
func (s *Service) loadZone(timezone string) (*time.Location, error) {
	if timezone == "" {
		return nil, fmt.Errorf("%w: empty timezone identifier", ErrInvalidTimezone)
	}
	if timezone != "UTC" && !strings.Contains(timezone, "/") {
		return nil, fmt.Errorf("%w: %q is not a canonical IANA zone name", ErrInvalidTimezone, timezone)
	}

	loc, err := time.LoadLocation(timezone)
	if err != nil {
		return nil, fmt.Errorf("%w: %q", ErrInvalidTimezone, timezone)
	}
	return loc, nil
}

// format renders "now" in the given location with the fixed layout.
func (s *Service) format(loc *time.Location, zoneName string) string {
	return fmt.Sprintf("%s %s", s.nowFunc().In(loc).Format(timeLayout), zoneName)
}
