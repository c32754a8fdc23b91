package data

import (
	"fmt"
	"os"

	"github.com/Clemdlc1/CustomMonster-sub001/internal/world"
	"gopkg.in/yaml.v3"
)

// CapturePointSpec is one entry of capture_points.yaml.
type CapturePointSpec struct {
	ID       string       `yaml:"id"`
	At       LocationSpec `yaml:"at"`
	Radius   float64      `yaml:"radius"`
	Required int          `yaml:"required"` // consecutive attempts to flip
}

// LoadCapturePoints reads capture point placements.
func LoadCapturePoints(path string) ([]CapturePointSpec, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read capture points: %w", err)
	}
	return ParseCapturePoints(raw)
}

func ParseCapturePoints(raw []byte) ([]CapturePointSpec, error) {
	var file struct {
		Points []CapturePointSpec `yaml:"capture_points"`
	}
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return nil, fmt.Errorf("parse capture points: %w", err)
	}
	seen := make(map[string]struct{}, len(file.Points))
	for i, p := range file.Points {
		if p.ID == "" {
			return nil, fmt.Errorf("capture point entry %d: missing id", i)
		}
		if _, dup := seen[p.ID]; dup {
			return nil, fmt.Errorf("capture point %s: listed twice", p.ID)
		}
		seen[p.ID] = struct{}{}
		if p.Radius <= 0 {
			return nil, fmt.Errorf("capture point %s: radius must be positive", p.ID)
		}
		if p.Required <= 0 {
			file.Points[i].Required = 1
		}
	}
	return file.Points, nil
}

// PlaceCapturePoints registers every point with the world.
func PlaceCapturePoints(ws *world.State, points []CapturePointSpec) error {
	for _, p := range points {
		if err := ws.AddCapturePoint(p.ID, p.At.Location(), p.Radius, p.Required); err != nil {
			return fmt.Errorf("capture point %s: %w", p.ID, err)
		}
	}
	return nil
}
