package config

import (
	"fmt"
	"os"
	"sort"
	"time"

	"gopkg.in/yaml.v3"
)

// Closures lists days the salon does not take bookings.
type Closures struct {
	Dates []string `yaml:"dates"`
}

// LoadClosures reads a closures file. A missing file means no closures.
func LoadClosures(path string) (*Closures, error) {
	if path == "" {
		return &Closures{}, nil
	}
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return &Closures{}, nil
	}
	if err != nil {
		return nil, err
	}
	return decodeClosures(path, data)
}

func decodeClosures(path string, data []byte) (*Closures, error) {
	var c Closures
	if err := yaml.Unmarshal([]byte(os.ExpandEnv(string(data))), &c); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return &c, nil
}

// Days parses the listed dates in loc, sorted and without duplicates.
func (c *Closures) Days(loc *time.Location) ([]time.Time, error) {
	if loc == nil {
		loc = time.Local
	}
	seen := make(map[string]bool, len(c.Dates))
	out := make([]time.Time, 0, len(c.Dates))
	for _, s := range c.Dates {
		if seen[s] {
			continue
		}
		d, err := time.ParseInLocation("2006-01-02", s, loc)
		if err != nil {
			return nil, fmt.Errorf("closure %q: %w", s, err)
		}
		seen[s] = true
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Before(out[j]) })
	return out, nil
}
