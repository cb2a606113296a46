// Package seeder generates realistic event traffic against a running
// ingest endpoint, for demos and load checks.
package seeder

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Profile controls what the seeder sends.
type Profile struct {
	// Endpoint is the ingest URL, e.g. http://localhost:8080/api/ingest.
	Endpoint string `yaml:"endpoint"`
	// APIKey authenticates the seeder as a tenant.
	APIKey string `yaml:"api_key"`
	// Count is the number of background events to send.
	Count int `yaml:"count"`
	// Spread distributes event timestamps over the trailing duration.
	Spread time.Duration `yaml:"spread"`
	// Sources the seeder claims events come from.
	Sources []string `yaml:"sources"`
	// Bursts are scripted attack patterns mixed into the stream.
	Bursts []Burst `yaml:"bursts"`
}

// Burst is a run of identical-origin events that should trip detection.
type Burst struct {
	// EventType defaults to LOGIN_FAILED.
	EventType string `yaml:"event_type"`
	// IP is the attacking address; random when empty.
	IP string `yaml:"ip"`
	// Count is how many events the burst sends. Defaults to 6, one past
	// the stock brute-force threshold.
	Count int `yaml:"count"`
}

// DefaultProfile returns a profile that exercises both the background
// stream and one detection-tripping burst.
func DefaultProfile() *Profile {
	return &Profile{
		Endpoint: "http://localhost:8080/api/ingest",
		Count:    200,
		Spread:   30 * time.Minute,
		Sources:  []string{"auth-service", "vpn-gw", "api-gateway", "k8s-audit"},
		Bursts:   []Burst{{Count: 6}},
	}
}

// LoadProfile reads a YAML profile, filling gaps from the defaults.
func LoadProfile(path string) (*Profile, error) {
	p := DefaultProfile()
	if path == "" {
		return p, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read profile: %w", err)
	}
	if err := yaml.Unmarshal(data, p); err != nil {
		return nil, fmt.Errorf("parse profile: %w", err)
	}

	if p.Endpoint == "" {
		return nil, fmt.Errorf("profile is missing endpoint")
	}
	if p.Count <= 0 {
		p.Count = 200
	}
	if len(p.Sources) == 0 {
		p.Sources = DefaultProfile().Sources
	}
	return p, nil
}
