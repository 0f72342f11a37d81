package upstream

import "errors"

// ErrCaptcha indicates the upstream served a captcha challenge.
var ErrCaptcha = errors.New("upstream: captcha detected")

// ErrInvalidResponse indicates a response whose shape signals bot
// detection (HTML instead of JSON, verification redirects).
var ErrInvalidResponse = errors.New("upstream: invalid response")

// ErrEmptyResponse indicates the upstream returned an empty body, a
// known bot-detection signature.
var ErrEmptyResponse = errors.New("upstream: empty response")

// ErrRateLimited indicates the upstream throttled the request.
var ErrRateLimited = errors.New("upstream: rate limited")

// ErrNotFound indicates the requested entity does not exist.
var ErrNotFound = errors.New("upstream: not found")
