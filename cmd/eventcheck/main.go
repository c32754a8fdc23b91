// eventcheck validates the arena data files against each other and prints
// the next start time of every event.
//
// Usage:
//
//	go run ./cmd/eventcheck [-config path] [-from RFC3339] [-yaml]
//
// Exit status is 1 when any problem is found.
package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/Clemdlc1/CustomMonster-sub001/internal/combatant"
	"github.com/Clemdlc1/CustomMonster-sub001/internal/config"
	"github.com/Clemdlc1/CustomMonster-sub001/internal/data"
	"github.com/Clemdlc1/CustomMonster-sub001/internal/mob"
	"github.com/Clemdlc1/CustomMonster-sub001/internal/scheduler"
	"github.com/Clemdlc1/CustomMonster-sub001/internal/scripting"
	"github.com/Clemdlc1/CustomMonster-sub001/internal/world"
	"gopkg.in/yaml.v3"
)

// report is the -yaml output.
type report struct {
	Mobs     []string      `yaml:"mobs"`
	Events   []eventReport `yaml:"events"`
	Problems []string      `yaml:"problems,omitempty"`
}

type eventReport struct {
	ID       string `yaml:"id"`
	Type     string `yaml:"type"`
	Duration string `yaml:"duration"`
	Next     string `yaml:"next"`
}

func main() {
	cfgPath := flag.String("config", "config/arena.toml", "server config")
	from := flag.String("from", "", "compute next starts after this RFC 3339 time (default now)")
	asYAML := flag.Bool("yaml", false, "print the report as YAML")
	flag.Parse()

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	now := time.Now()
	if *from != "" {
		if now, err = time.Parse(time.RFC3339, *from); err != nil {
			fmt.Fprintf(os.Stderr, "error: -from: %v\n", err)
			os.Exit(1)
		}
	}

	rep, err := check(cfg, now)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	if *asYAML {
		err = yaml.NewEncoder(os.Stdout).Encode(rep)
	} else {
		err = printText(os.Stdout, rep)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	if len(rep.Problems) > 0 {
		os.Exit(1)
	}
}

// check loads every data file named by cfg. Unreadable or malformed files
// are returned as errors; cross-file inconsistencies become problems.
func check(cfg *config.Config, now time.Time) (report, error) {
	var rep report
	loc, err := cfg.Location()
	if err != nil {
		return rep, err
	}

	ws := world.NewState(cfg.Server.Worlds...)
	if cfg.Events.CapturePointsPath != "" {
		points, err := data.LoadCapturePoints(cfg.Events.CapturePointsPath)
		switch {
		case errors.Is(err, fs.ErrNotExist):
		case err != nil:
			return rep, err
		default:
			if err := data.PlaceCapturePoints(ws, points); err != nil {
				rep.Problems = append(rep.Problems, err.Error())
			}
		}
	}

	reg := mob.NewRegistry(mob.Options{Host: ws, Table: combatant.NewTable(), Config: combatant.DefaultConfig()})
	if err := mob.RegisterBuiltins(reg); err != nil {
		return rep, err
	}
	table, err := data.LoadMobTable(cfg.Events.MobsPath)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		rep.Problems = append(rep.Problems, fmt.Sprintf("mob table %s missing, built-ins only", cfg.Events.MobsPath))
	case err != nil:
		return rep, err
	default:
		scripts := scripting.NewEngine(filepath.Dir(cfg.Events.MobsPath), nil)
		if err := mob.RegisterTable(reg, table, scripts); err != nil {
			rep.Problems = append(rep.Problems, err.Error())
		}
	}
	rep.Mobs = reg.IDs()

	defs, err := data.LoadEventDefinitions(cfg.Events.DefinitionsPath, loc)
	if err != nil {
		return rep, err
	}
	for _, d := range defs {
		rep.Problems = append(rep.Problems, crossCheck(d, reg, ws)...)
		er := eventReport{ID: d.ID, Type: string(d.Type), Duration: d.Duration.String(), Next: "manual"}
		if next, ok := d.Schedule.Next(now); ok {
			er.Next = next.In(loc).Format(time.RFC3339)
		} else if d.Schedule.Kind != scheduler.KindManual {
			er.Next = "never"
		}
		rep.Events = append(rep.Events, er)
	}
	sort.Strings(rep.Problems)
	return rep, nil
}

func crossCheck(d scheduler.Definition, reg *mob.Registry, ws *world.State) []string {
	var problems []string
	p := d.Payload
	switch d.Type {
	case scheduler.TypeBossHunt:
		bp, ok := reg.Blueprint(p.Boss)
		if !ok {
			problems = append(problems, fmt.Sprintf("event %s: boss %q is not a registered mob", d.ID, p.Boss))
		} else if !bp.Boss {
			problems = append(problems, fmt.Sprintf("event %s: mob %q is not flagged as a boss", d.ID, p.Boss))
		}
		if !ws.HasWorld(p.BossAt.World) {
			problems = append(problems, fmt.Sprintf("event %s: boss world %q is not loaded", d.ID, p.BossAt.World))
		}
	case scheduler.TypeCapture:
		for _, id := range p.CapturePoints {
			if _, ok := ws.CapturePoint(id); !ok {
				problems = append(problems, fmt.Sprintf("event %s: capture point %q is not placed", d.ID, id))
			}
		}
	}
	return problems
}

func printText(w io.Writer, rep report) error {
	fmt.Fprintf(w, "%d mobs registered\n", len(rep.Mobs))
	for _, e := range rep.Events {
		fmt.Fprintf(w, "  %-20s %-10s %-8s next: %s\n", e.ID, e.Type, e.Duration, e.Next)
	}
	for _, p := range rep.Problems {
		fmt.Fprintf(w, "problem: %s\n", p)
	}
	_, err := fmt.Fprintf(w, "%d events, %d problems\n", len(rep.Events), len(rep.Problems))
	return err
}
