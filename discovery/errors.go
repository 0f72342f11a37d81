package discovery

import "errors"

// ErrMissingToken is returned at construction when no upstream auth
// token is configured. Fatal: nothing works without it.
var ErrMissingToken = errors.New("discovery: upstream auth token is required")

// ErrInvalidTerm is returned for empty or over-length search terms.
// It fails only the offending term, never the whole batch.
var ErrInvalidTerm = errors.New("discovery: invalid search term")
