package spotify

import (
	"net/http"

	"github.com/cockroachdb/errors"
	"github.com/zmb3/spotify/v2"
)

// FailureKind classifies a failed playback call.
type FailureKind int

const (
	FailureUnknown         FailureKind = iota // Anything unclassified
	FailureDeviceNotFound                     // Target device is gone or never registered
	FailurePremiumRequired                    // Playback control needs a Premium account
	FailureRateLimited                        // 429 from the Web API
	FailureAuthRequired                       // Credentials rejected or expired beyond refresh
)

// String returns the string representation of the failure kind.
func (k FailureKind) String() string {
	switch k {
	case FailureDeviceNotFound:
		return "device_not_found"
	case FailurePremiumRequired:
		return "premium_required"
	case FailureRateLimited:
		return "rate_limited"
	case FailureAuthRequired:
		return "auth_required"
	default:
		return "unknown"
	}
}

// ClassifyFailure maps a playback error to its failure kind using the
// Web API status code.
func ClassifyFailure(err error) FailureKind {
	if err == nil {
		return FailureUnknown
	}
	if errors.Is(err, ErrDeviceNotFound) {
		return FailureDeviceNotFound
	}

	var spErr spotify.Error
	if !errors.As(err, &spErr) {
		return FailureUnknown
	}

	switch spErr.Status {
	case http.StatusNotFound:
		return FailureDeviceNotFound
	case http.StatusForbidden:
		return FailurePremiumRequired
	case http.StatusTooManyRequests:
		return FailureRateLimited
	case http.StatusUnauthorized:
		return FailureAuthRequired
	default:
		return FailureUnknown
	}
}
