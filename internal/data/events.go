package data

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/Clemdlc1/CustomMonster-sub001/internal/scheduler"
	"github.com/Clemdlc1/CustomMonster-sub001/internal/world"
	"gopkg.in/yaml.v3"
)

// EventSpec is one entry of event_list.yaml.
type EventSpec struct {
	ID            string        `yaml:"id"`
	Name          string        `yaml:"name"`
	Type          string        `yaml:"type"`
	Duration      string        `yaml:"duration"`  // Go duration, e.g. 30m
	Recurring     *bool         `yaml:"recurring"` // default: true unless the schedule is "at"
	Schedule      ScheduleSpec  `yaml:"schedule"`
	Groups        []string      `yaml:"groups"`
	CapturePoints []string      `yaml:"capture_points"`
	Boss          string        `yaml:"boss"`
	BossAt        *LocationSpec `yaml:"boss_at"`
}

// ScheduleSpec selects exactly one schedule kind.
type ScheduleSpec struct {
	Daily  []string `yaml:"daily"`  // HH:MM times
	Days   []string `yaml:"days"`   // optional weekday filter for daily
	Every  string   `yaml:"every"`  // interval, e.g. 2h
	Anchor string   `yaml:"anchor"` // RFC 3339, interval origin
	At     string   `yaml:"at"`     // RFC 3339, one-shot
	Manual bool     `yaml:"manual"`
}

// LocationSpec is a point in a named world.
type LocationSpec struct {
	World string  `yaml:"world"`
	X     float64 `yaml:"x"`
	Y     float64 `yaml:"y"`
	Z     float64 `yaml:"z"`
}

func (l LocationSpec) Location() world.Location {
	return world.Location{World: l.World, X: l.X, Y: l.Y, Z: l.Z}
}

// LoadEventDefinitions reads event_list.yaml and converts every entry.
// Daily times are interpreted in loc. The first malformed entry fails the
// whole file with a *scheduler.ConfigError.
func LoadEventDefinitions(path string, loc *time.Location) ([]scheduler.Definition, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read event list: %w", err)
	}
	return ParseEventDefinitions(raw, loc)
}

// ParseEventDefinitions is LoadEventDefinitions over bytes.
func ParseEventDefinitions(raw []byte, loc *time.Location) ([]scheduler.Definition, error) {
	var file struct {
		Events []EventSpec `yaml:"events"`
	}
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return nil, &scheduler.ConfigError{Field: "yaml", Err: err}
	}
	defs := make([]scheduler.Definition, 0, len(file.Events))
	for i := range file.Events {
		d, err := file.Events[i].Definition(loc)
		if err != nil {
			return nil, err
		}
		defs = append(defs, d)
	}
	return defs, nil
}

func specErr(id, field string, err error) *scheduler.ConfigError {
	return &scheduler.ConfigError{ID: id, Field: field, Err: err}
}

// Definition converts and validates the spec.
func (s EventSpec) Definition(loc *time.Location) (scheduler.Definition, error) {
	d := scheduler.Definition{
		ID:   s.ID,
		Name: s.Name,
		Type: scheduler.Type(strings.ToLower(s.Type)),
		Payload: scheduler.Payload{
			Groups:        s.Groups,
			CapturePoints: s.CapturePoints,
			Boss:          s.Boss,
		},
	}
	if s.BossAt != nil {
		d.Payload.BossAt = s.BossAt.Location()
	}
	if s.Duration != "" {
		dur, err := time.ParseDuration(s.Duration)
		if err != nil {
			return d, specErr(s.ID, "duration", err)
		}
		d.Duration = dur
	}

	sched, err := s.Schedule.schedule(s.ID, loc)
	if err != nil {
		return d, err
	}
	d.Schedule = sched
	d.Recurring = sched.Kind != scheduler.KindOnce
	if s.Recurring != nil {
		d.Recurring = *s.Recurring
	}
	if err := d.Validate(); err != nil {
		return d, err
	}
	return d, nil
}

func (s ScheduleSpec) schedule(id string, loc *time.Location) (scheduler.Schedule, error) {
	kinds := 0
	for _, set := range []bool{len(s.Daily) > 0, s.Every != "", s.At != "", s.Manual} {
		if set {
			kinds++
		}
	}
	if kinds != 1 {
		return scheduler.Schedule{}, specErr(id, "schedule", fmt.Errorf("want exactly one of daily, every, at, manual; got %d", kinds))
	}
	switch {
	case len(s.Daily) > 0:
		out := scheduler.Schedule{Kind: scheduler.KindDaily, Location: loc}
		for _, t := range s.Daily {
			tod, err := scheduler.ParseTimeOfDay(t)
			if err != nil {
				return out, specErr(id, "schedule.daily", err)
			}
			out.Times = append(out.Times, tod)
		}
		for _, d := range s.Days {
			wd, err := scheduler.ParseWeekday(d)
			if err != nil {
				return out, specErr(id, "schedule.days", err)
			}
			out.Days = append(out.Days, wd)
		}
		return out, nil
	case s.Every != "":
		every, err := time.ParseDuration(s.Every)
		if err != nil {
			return scheduler.Schedule{}, specErr(id, "schedule.every", err)
		}
		out := scheduler.Schedule{Kind: scheduler.KindInterval, Interval: every}
		if s.Anchor != "" {
			a, err := time.Parse(time.RFC3339, s.Anchor)
			if err != nil {
				return out, specErr(id, "schedule.anchor", err)
			}
			out.Anchor = a
		}
		return out, nil
	case s.At != "":
		at, err := time.Parse(time.RFC3339, s.At)
		if err != nil {
			return scheduler.Schedule{}, specErr(id, "schedule.at", err)
		}
		return scheduler.Schedule{Kind: scheduler.KindOnce, At: at}, nil
	}
	return scheduler.Schedule{Kind: scheduler.KindManual}, nil
}
