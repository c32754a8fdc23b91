package scheduler

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/Clemdlc1/CustomMonster-sub001/internal/world"
)

// Type tags the kind of activity an event runs.
type Type string

const (
	TypeGangWar  Type = "gang_war"  // groups score kills
	TypeCapture  Type = "capture"   // groups score capture points
	TypeBossHunt Type = "boss_hunt" // a boss is spawned for the duration
	TypeGeneric  Type = "generic"
)

func (t Type) valid() bool {
	switch t {
	case TypeGangWar, TypeCapture, TypeBossHunt, TypeGeneric:
		return true
	}
	return false
}

// ScheduleKind selects how fire times are computed.
type ScheduleKind string

const (
	KindDaily    ScheduleKind = "daily"    // fixed times of day, optional weekdays
	KindInterval ScheduleKind = "interval" // every Interval from Anchor
	KindOnce     ScheduleKind = "once"     // a single absolute time
	KindManual   ScheduleKind = "manual"   // force-start only
)

// TimeOfDay is an HH:MM wall-clock time.
type TimeOfDay struct {
	Hour, Minute int
}

func (t TimeOfDay) String() string { return fmt.Sprintf("%02d:%02d", t.Hour, t.Minute) }

// ParseTimeOfDay parses "HH:MM".
func ParseTimeOfDay(s string) (TimeOfDay, error) {
	h, m, ok := strings.Cut(strings.TrimSpace(s), ":")
	if !ok {
		return TimeOfDay{}, fmt.Errorf("time %q: want HH:MM", s)
	}
	hour, err := strconv.Atoi(h)
	if err != nil || hour < 0 || hour > 23 {
		return TimeOfDay{}, fmt.Errorf("time %q: bad hour", s)
	}
	minute, err := strconv.Atoi(m)
	if err != nil || minute < 0 || minute > 59 {
		return TimeOfDay{}, fmt.Errorf("time %q: bad minute", s)
	}
	return TimeOfDay{Hour: hour, Minute: minute}, nil
}

// ParseWeekday accepts English day names or three-letter abbreviations.
func ParseWeekday(s string) (time.Weekday, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for d := time.Sunday; d <= time.Saturday; d++ {
		name := strings.ToLower(d.String())
		if s == name || s == name[:3] {
			return d, nil
		}
	}
	return 0, fmt.Errorf("unknown weekday %q", s)
}

// Schedule is the parsed schedule descriptor of a definition.
type Schedule struct {
	Kind     ScheduleKind
	Times    []TimeOfDay    // daily
	Days     []time.Weekday // daily; empty = every day
	Interval time.Duration  // interval
	Anchor   time.Time      // interval; zero = Unix epoch
	At       time.Time      // once
	Location *time.Location // daily; nil = UTC
}

// Next returns the first fire time strictly after after.
func (s Schedule) Next(after time.Time) (time.Time, bool) {
	switch s.Kind {
	case KindDaily:
		return s.nextDaily(after)
	case KindInterval:
		if s.Interval <= 0 {
			return time.Time{}, false
		}
		anchor := s.Anchor
		if anchor.IsZero() {
			anchor = time.Unix(0, 0)
		}
		if anchor.After(after) {
			return anchor, true
		}
		n := after.Sub(anchor)/s.Interval + 1
		return anchor.Add(n * s.Interval), true
	case KindOnce:
		if s.At.After(after) {
			return s.At, true
		}
	}
	return time.Time{}, false
}

func (s Schedule) nextDaily(after time.Time) (time.Time, bool) {
	if len(s.Times) == 0 {
		return time.Time{}, false
	}
	loc := s.Location
	if loc == nil {
		loc = time.UTC
	}
	a := after.In(loc)
	for d := 0; d <= 7; d++ {
		day := time.Date(a.Year(), a.Month(), a.Day()+d, 0, 0, 0, 0, loc)
		if !s.onDay(day.Weekday()) {
			continue
		}
		for _, t := range s.Times {
			fire := time.Date(day.Year(), day.Month(), day.Day(), t.Hour, t.Minute, 0, 0, loc)
			if fire.After(after) {
				return fire, true
			}
		}
	}
	return time.Time{}, false
}

func (s Schedule) onDay(d time.Weekday) bool {
	if len(s.Days) == 0 {
		return true
	}
	for _, x := range s.Days {
		if x == d {
			return true
		}
	}
	return false
}

// Payload is the type-specific part of a definition.
type Payload struct {
	Groups        []string       // gang_war/capture: allowed groups, empty = any
	CapturePoints []string       // capture: points reset at start
	Boss          string         // boss_hunt: mob id spawned at start
	BossAt        world.Location // boss_hunt: spawn point
}

// Definition is the immutable template of a recurring or one-shot event.
type Definition struct {
	ID        string
	Name      string
	Type      Type
	Schedule  Schedule
	Duration  time.Duration
	Recurring bool
	Payload   Payload
}

// Scored reports whether instances keep a scoring ledger that matters.
func (d Definition) Scored() bool {
	return d.Type == TypeGangWar || d.Type == TypeCapture
}

var idPattern = regexp.MustCompile(`^[a-z0-9][a-z0-9_\-]*$`)

// Validate checks the definition and normalizes the schedule. It returns a
// *ConfigError describing the first problem.
func (d *Definition) Validate() error {
	if !idPattern.MatchString(d.ID) {
		return configErr(d.ID, "id", "must match %s", idPattern)
	}
	if d.Name == "" {
		d.Name = d.ID
	}
	if d.Type == "" {
		d.Type = TypeGeneric
	}
	if !d.Type.valid() {
		return configErr(d.ID, "type", "unknown type %q", d.Type)
	}
	if d.Duration <= 0 {
		return configErr(d.ID, "duration", "must be positive, got %s", d.Duration)
	}
	s := &d.Schedule
	switch s.Kind {
	case KindDaily:
		if len(s.Times) == 0 {
			return configErr(d.ID, "schedule.times", "daily schedule needs at least one time")
		}
		sort.Slice(s.Times, func(i, j int) bool {
			if s.Times[i].Hour != s.Times[j].Hour {
				return s.Times[i].Hour < s.Times[j].Hour
			}
			return s.Times[i].Minute < s.Times[j].Minute
		})
	case KindInterval:
		if s.Interval <= 0 {
			return configErr(d.ID, "schedule.interval", "must be positive")
		}
		if s.Interval < d.Duration {
			return configErr(d.ID, "schedule.interval", "interval %s shorter than duration %s", s.Interval, d.Duration)
		}
	case KindOnce:
		if s.At.IsZero() {
			return configErr(d.ID, "schedule.at", "once schedule needs a timestamp")
		}
	case KindManual:
	default:
		return configErr(d.ID, "schedule.kind", "unknown kind %q", s.Kind)
	}
	if d.Type == TypeBossHunt {
		if d.Payload.Boss == "" {
			return configErr(d.ID, "payload.boss", "boss_hunt needs a boss mob id")
		}
		if d.Payload.BossAt.World == "" {
			return configErr(d.ID, "payload.boss_at", "boss_hunt needs a spawn world")
		}
	}
	return nil
}
