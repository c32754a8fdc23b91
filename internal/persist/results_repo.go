package persist

import (
	"context"
	"fmt"
	"time"

	"github.com/Clemdlc1/CustomMonster-sub001/internal/boss"
	"github.com/Clemdlc1/CustomMonster-sub001/internal/scoring"
)

// EventResultRow is one finished event instance.
type EventResultRow struct {
	InstanceID string
	EventID    string
	EventName  string
	EventType  string
	Reason     string
	Forced     bool
	StartedAt  time.Time
	EndedAt    time.Time
	Winner     string
	Rankings   []scoring.Entry
	Members    []scoring.Member
}

// BossOutcomeRow is one finalized boss encounter.
type BossOutcomeRow struct {
	SessionID    string
	MobID        string
	Defeated     bool
	KillerName   string
	StartedAt    time.Time
	EndedAt      time.Time
	MinionKills  int
	Participants []boss.Participant
}

// PlayerResultRow is one player's line in a finished event.
type PlayerResultRow struct {
	InstanceID     string
	EventID        string
	EndedAt        time.Time
	Group          string
	PersonalPoints int
	Winner         string
}

type ResultRepo struct {
	db *DB
}

func NewResultRepo(db *DB) *ResultRepo {
	return &ResultRepo{db: db}
}

// SaveEventResult writes a result and its member list in one transaction.
// Saving the same instance twice is a no-op.
func (r *ResultRepo) SaveEventResult(ctx context.Context, row EventResultRow) error {
	rankings := row.Rankings
	if rankings == nil {
		rankings = []scoring.Entry{}
	}
	tx, err := r.db.Pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("event result begin: %w", err)
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx,
		`INSERT INTO event_results
		 (instance_id, event_id, event_name, event_type, reason, forced, started_at, ended_at, winner, rankings)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10::jsonb)
		 ON CONFLICT (instance_id) DO NOTHING`,
		row.InstanceID, row.EventID, row.EventName, row.EventType, row.Reason, row.Forced,
		row.StartedAt, row.EndedAt, row.Winner, rankings,
	)
	if err != nil {
		return fmt.Errorf("event result insert: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return nil
	}
	for _, m := range row.Members {
		if _, err := tx.Exec(ctx,
			`INSERT INTO event_members (instance_id, player, group_name, personal_points)
			 VALUES ($1, $2, $3, $4)`,
			row.InstanceID, m.Player, m.Group, m.PersonalPoints,
		); err != nil {
			return fmt.Errorf("event member insert: %w", err)
		}
	}
	return tx.Commit(ctx)
}

// PlayerHistory returns the events a player took part in, newest first.
func (r *ResultRepo) PlayerHistory(ctx context.Context, player string, limit int) ([]PlayerResultRow, error) {
	rows, err := r.db.Pool.Query(ctx,
		`SELECT e.instance_id, e.event_id, e.ended_at, m.group_name, m.personal_points, e.winner
		 FROM event_members m JOIN event_results e ON e.instance_id = m.instance_id
		 WHERE m.player = $1 ORDER BY e.ended_at DESC LIMIT $2`,
		player, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []PlayerResultRow
	for rows.Next() {
		var p PlayerResultRow
		if err := rows.Scan(&p.InstanceID, &p.EventID, &p.EndedAt, &p.Group, &p.PersonalPoints, &p.Winner); err != nil {
			return nil, err
		}
		result = append(result, p)
	}
	return result, rows.Err()
}

// SaveBossOutcome inserts an outcome. Saving the same session twice is a no-op.
func (r *ResultRepo) SaveBossOutcome(ctx context.Context, row BossOutcomeRow) error {
	participants := row.Participants
	if participants == nil {
		participants = []boss.Participant{}
	}
	_, err := r.db.Pool.Exec(ctx,
		`INSERT INTO boss_outcomes
		 (session_id, mob_id, defeated, killer_name, started_at, ended_at, minion_kills, participants)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8::jsonb)
		 ON CONFLICT (session_id) DO NOTHING`,
		row.SessionID, row.MobID, row.Defeated, row.KillerName,
		row.StartedAt, row.EndedAt, row.MinionKills, participants,
	)
	return err
}

// RecentResults returns the latest results of one event, newest first.
func (r *ResultRepo) RecentResults(ctx context.Context, eventID string, limit int) ([]EventResultRow, error) {
	rows, err := r.db.Pool.Query(ctx,
		`SELECT instance_id, event_id, event_name, event_type, reason, forced, started_at, ended_at, winner, rankings
		 FROM event_results WHERE event_id = $1 ORDER BY ended_at DESC LIMIT $2`,
		eventID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []EventResultRow
	for rows.Next() {
		var e EventResultRow
		if err := rows.Scan(&e.InstanceID, &e.EventID, &e.EventName, &e.EventType, &e.Reason, &e.Forced,
			&e.StartedAt, &e.EndedAt, &e.Winner, &e.Rankings); err != nil {
			return nil, err
		}
		result = append(result, e)
	}
	return result, rows.Err()
}

// BossOutcomes returns the latest outcomes for a mob id, newest first.
func (r *ResultRepo) BossOutcomes(ctx context.Context, mobID string, limit int) ([]BossOutcomeRow, error) {
	rows, err := r.db.Pool.Query(ctx,
		`SELECT session_id, mob_id, defeated, killer_name, started_at, ended_at, minion_kills, participants
		 FROM boss_outcomes WHERE mob_id = $1 ORDER BY ended_at DESC LIMIT $2`,
		mobID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []BossOutcomeRow
	for rows.Next() {
		var b BossOutcomeRow
		if err := rows.Scan(&b.SessionID, &b.MobID, &b.Defeated, &b.KillerName,
			&b.StartedAt, &b.EndedAt, &b.MinionKills, &b.Participants); err != nil {
			return nil, err
		}
		result = append(result, b)
	}
	return result, rows.Err()
}
