package geoip

import "errors"

// Sentinel errors for the two failure modes of the resolver chain.
// Callers match them with errors.Is; the wrapped message carries detail.
var (
	// ErrNetwork means the request never produced a usable response
	// (connection failure, timeout, unreadable body).
	ErrNetwork = errors.New("network error")

	// ErrResolution means a response was received but the expected fields
	// were missing or unusable (bad status, no IP, no timezone).
	ErrResolution = errors.New("resolution error")
)
