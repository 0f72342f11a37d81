// Package antidetect holds the rotating fingerprint and geolocation
// catalogs used to vary the browsing identity between sessions.
package antidetect

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Profile is one browser fingerprint: engine family, viewport and
// user-agent string. Profiles are read-only at runtime.
type Profile struct {
	Browser        string `yaml:"browser" json:"browser"`
	ViewportWidth  int    `yaml:"viewport_width" json:"viewport_width"`
	ViewportHeight int    `yaml:"viewport_height" json:"viewport_height"`
	UserAgent      string `yaml:"user_agent" json:"user_agent"`
}

// Location is one geographic point. The catalog is ordered so adjacent
// entries are geographically adjacent, which makes index-by-index
// movement plausible.
type Location struct {
	Name      string  `yaml:"name" json:"name"`
	Latitude  float64 `yaml:"latitude" json:"latitude"`
	Longitude float64 `yaml:"longitude" json:"longitude"`
	Accuracy  int     `yaml:"accuracy" json:"accuracy"`
}

// Catalog bundles the two rotation catalogs.
type Catalog struct {
	Browsers  []Profile  `yaml:"browsers"`
	Locations []Location `yaml:"locations"`
}

// DefaultCatalog returns the built-in catalogs: three desktop browser
// profiles and four Manhattan locations ordered south to north.
func DefaultCatalog() Catalog {
	return Catalog{
		Browsers: []Profile{
			{
				Browser:        "chromium",
				ViewportWidth:  1280,
				ViewportHeight: 720,
				UserAgent:      "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/122.0.0.0 Safari/537.36",
			},
			{
				Browser:        "firefox",
				ViewportWidth:  1366,
				ViewportHeight: 768,
				UserAgent:      "Mozilla/5.0 (Macintosh; Intel Mac OS X 10.15; rv:123.0) Gecko/20100101 Firefox/123.0",
			},
			{
				Browser:        "webkit",
				ViewportWidth:  1440,
				ViewportHeight: 900,
				UserAgent:      "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.3.1 Safari/605.1.15",
			},
		},
		Locations: []Location{
			{Name: "Wall & Broad", Latitude: 40.7075, Longitude: -74.0021, Accuracy: 20},
			{Name: "Union Square", Latitude: 40.7359, Longitude: -73.9911, Accuracy: 20},
			{Name: "Bryant Park", Latitude: 40.7536, Longitude: -73.9832, Accuracy: 20},
			{Name: "Central Park", Latitude: 40.7829, Longitude: -73.9654, Accuracy: 20},
		},
	}
}

// LoadCatalog reads a catalog override from a YAML file. Both lists
// must be non-empty.
func LoadCatalog(path string) (Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Catalog{}, fmt.Errorf("antidetect: read catalog: %w", err)
	}
	var c Catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return Catalog{}, fmt.Errorf("antidetect: parse catalog: %w", err)
	}
	if len(c.Browsers) == 0 || len(c.Locations) == 0 {
		return Catalog{}, fmt.Errorf("antidetect: catalog %s: browsers and locations must be non-empty", path)
	}
	return c, nil
}
