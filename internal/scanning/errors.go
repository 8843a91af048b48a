package scanning

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

var (
	// ErrOracleFormat is matched by every FormatError.
	ErrOracleFormat = errors.New("oracle response format")
	// ErrOracleTransport is matched by every TransportError.
	ErrOracleTransport = errors.New("oracle transport")
	// ErrUnreadableImage is matched by every ImageError.
	ErrUnreadableImage = errors.New("unreadable image")
)

// rateLimitMarkers are searched case-insensitively in failure messages.
var rateLimitMarkers = []string{"rate_limit", "rate limit", "resource_exhausted", "resource exhausted"}

// FormatError means the oracle answered but the payload was unusable.
type FormatError struct {
	Reason  string
	Content string
	Err     error
}

func (e *FormatError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("oracle response format: %s: %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("oracle response format: %s", e.Reason)
}

func (e *FormatError) Unwrap() error { return e.Err }

func (e *FormatError) Is(target error) bool { return target == ErrOracleFormat }

// TransportError covers network, auth and quota failures.
type TransportError struct {
	Provider   string
	StatusCode int
	Body       string
	Err        error
}

func (e *TransportError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s: status %d: %s", e.Provider, e.StatusCode, e.Body)
	}
	return fmt.Sprintf("%s: request failed: %v", e.Provider, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

func (e *TransportError) Is(target error) bool { return target == ErrOracleTransport }

// ImageError means the receipt image could not be decoded, so no request was sent.
type ImageError struct {
	ContentType string
	Err         error
}

func (e *ImageError) Error() string {
	return fmt.Sprintf("unreadable image (%s): %v", e.ContentType, e.Err)
}

func (e *ImageError) Unwrap() error { return e.Err }

func (e *ImageError) Is(target error) bool { return target == ErrUnreadableImage }

// IsRateLimited reports whether err signals that the oracle is throttling us.
func IsRateLimited(err error) bool {
	if err == nil {
		return false
	}
	var te *TransportError
	if errors.As(err, &te) && te.StatusCode == http.StatusTooManyRequests {
		return true
	}
	msg := strings.ToLower(err.Error())
	for _, marker := range rateLimitMarkers {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}

// IsPermanent reports whether retrying the same request cannot help.
func IsPermanent(err error) bool {
	return errors.Is(err, ErrOracleFormat) || errors.Is(err, ErrUnreadableImage)
}
