package shared

import (
	"context"
	"errors"
	"net"
	"net/http"
)

// Error taxonomy for a single input. Everything is handled per item; only
// ErrMissingCredentials stops the process, before any item runs.
var (
	// ErrInvalidResource is returned when a URL is unreachable or unavailable at the video source.
	ErrInvalidResource = errors.New("invalid or unavailable resource")

	// ErrMetadataNotFound is returned when no catalog has a record for a lookup.
	ErrMetadataNotFound = errors.New("metadata not found")

	// ErrDuplicateDownload is returned when the history ledger already holds the entry.
	ErrDuplicateDownload = errors.New("already downloaded")

	// ErrTranscodeFailure is returned when transcoding or tagging fails.
	ErrTranscodeFailure = errors.New("transcode failed")

	// ErrNetworkTimeout marks a transient failure worth retrying.
	ErrNetworkTimeout = errors.New("network timeout")

	// ErrMissingCredentials is returned when the primary catalog cannot authenticate.
	ErrMissingCredentials = errors.New("missing catalog credentials")
)

// IsTimeout reports whether err is a transient timeout: the ErrNetworkTimeout
// sentinel, a deadline, a net.Error timeout or an HTTP 504.
func IsTimeout(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrNetworkTimeout) || errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	var httpErr *HTTPError
	if errors.As(err, &httpErr) && httpErr.StatusCode == http.StatusGatewayTimeout {
		return true
	}
	return false
}
