package request

import (
	"errors"
	"strings"

	"tokscout/upstream"
)

// Kind classifies one failed upstream call.
type Kind string

const (
	KindCaptcha         Kind = "captcha"
	KindInvalidResponse Kind = "invalid_response"
	KindRateLimited     Kind = "rate_limited"
	KindUnclassified    Kind = "unclassified"
)

// Classify maps an upstream failure to its kind and whether it is
// worth retrying. Sentinel errors from the upstream package are
// checked first; message sniffing covers errors that crossed a
// boundary that stripped the sentinel.
func Classify(err error) (Kind, bool) {
	if err == nil {
		return KindUnclassified, false
	}

	switch {
	case errors.Is(err, upstream.ErrCaptcha):
		return KindCaptcha, true
	case errors.Is(err, upstream.ErrInvalidResponse), errors.Is(err, upstream.ErrEmptyResponse):
		return KindInvalidResponse, true
	case errors.Is(err, upstream.ErrRateLimited):
		return KindRateLimited, true
	}

	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "captcha"), strings.Contains(msg, "verify"):
		return KindCaptcha, true
	case strings.Contains(msg, "empty response"), strings.Contains(msg, "invalid response"):
		return KindInvalidResponse, true
	case strings.Contains(msg, "rate limit"), strings.Contains(msg, "too many requests"):
		return KindRateLimited, true
	}

	return KindUnclassified, false
}

// RequestError wraps a non-retryable failure in a stable type so
// callers can distinguish it from the classified retryable kinds.
type RequestError struct {
	Err error
}

func (e *RequestError) Error() string {
	return "request: unexpected error: " + e.Err.Error()
}

func (e *RequestError) Unwrap() error { return e.Err }
