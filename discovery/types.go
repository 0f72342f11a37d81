package discovery

import "tokscout/process"

// SearchError carries the message and classification of a failed term
// or derived hashtag.
type SearchError struct {
	Message string `json:"message"`
	Kind    string `json:"kind"`
}

// SearchResponse is the result of one SearchVideos invocation. Every
// requested term has a Results entry (possibly empty), so callers can
// tell "zero results" from "failed to search"; Errors has an entry for
// every failed term or derived hashtag, and Transformations only for
// multi-word terms.
type SearchResponse struct {
	Results         map[string][]*process.Video `json:"results"`
	Logs            []string                    `json:"logs"`
	Errors          map[string]*SearchError     `json:"errors"`
	Transformations map[string][]string         `json:"transformations"`
}

// HealthStatus is the status://health resource payload.
type HealthStatus struct {
	Status         string      `json:"status"`
	APIInitialized bool        `json:"api_initialized"`
	Service        ServiceInfo `json:"service"`
}

// ServiceInfo identifies the running service.
type ServiceInfo struct {
	Name        string `json:"name"`
	Version     string `json:"version"`
	Description string `json:"description"`
}
