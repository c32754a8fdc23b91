package scoring

import (
	"errors"
	"testing"
)

func TestFriendlyFireOnlyCountsPenalty(t *testing.T) {
	l := NewLedger(DefaultWeights(), nil)
	if err := l.Join("alice", "Red"); err != nil {
		t.Fatal(err)
	}
	if err := l.Join("bob", "Red"); err != nil {
		t.Fatal(err)
	}

	if !l.RecordPlayerKill("Red", "Red") {
		t.Fatalf("same-group kill not reported as friendly fire")
	}

	d := l.Snapshot("alice")
	if d.Score != 0 || d.Breakdown.PlayerKills != 0 {
		t.Fatalf("friendly fire scored: %+v", d)
	}
	if d.Breakdown.FriendlyFireKills != 1 {
		t.Fatalf("friendly fire counter = %d", d.Breakdown.FriendlyFireKills)
	}
}

func TestRecordingIsAdditive(t *testing.T) {
	l := NewLedger(Weights{MonsterKill: 1, PlayerKill: 3, Capture: 5}, nil)
	l.RecordMonsterKill("Blue", "carol")
	l.RecordMonsterKill("Blue", "carol")
	l.RecordPlayerKill("Blue", "Red")
	l.RecordCapture("Blue")

	r := l.Rankings()
	if len(r) != 2 {
		t.Fatalf("rankings = %+v", r)
	}
	blue := r[0]
	if blue.Group != "Blue" || blue.Score != 1+1+3+5 {
		t.Fatalf("blue = %+v", blue)
	}
	want := Breakdown{MonsterKills: 2, PlayerKills: 1, Captures: 1}
	if blue.Breakdown != want {
		t.Fatalf("breakdown = %+v, want %+v", blue.Breakdown, want)
	}
	if r[1].Group != "Red" || r[1].Score != 0 {
		t.Fatalf("victim group = %+v", r[1])
	}
}

func TestRankingsTieBreakByName(t *testing.T) {
	l := NewLedger(DefaultWeights(), nil)
	for _, g := range []string{"Yellow", "Blue", "Red"} {
		l.RecordCapture(g)
	}
	l.RecordMonsterKill("Red", "")

	r := l.Rankings()
	got := []string{r[0].Group, r[1].Group, r[2].Group}
	want := []string{"Red", "Blue", "Yellow"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("order = %v, want %v", got, want)
		}
	}
	if l.Winner() != "Red" {
		t.Fatalf("winner = %q", l.Winner())
	}
}

func TestWinnerEmptyWhenNothingScored(t *testing.T) {
	l := NewLedger(DefaultWeights(), []string{"Red", "Blue"})
	l.RecordPlayerKill("Red", "Red")
	if w := l.Winner(); w != "" {
		t.Fatalf("winner = %q", w)
	}
}

func TestJoinRules(t *testing.T) {
	l := NewLedger(DefaultWeights(), []string{"Red", "Blue"})

	if err := l.Join("alice", "Green"); !errors.Is(err, ErrGroupNotAllowed) {
		t.Fatalf("join Green: %v", err)
	}
	if err := l.Join("alice", "Red"); err != nil {
		t.Fatal(err)
	}
	if err := l.Join("alice", "Red"); err != nil {
		t.Fatalf("rejoin same group: %v", err)
	}
	if err := l.Join("alice", "Blue"); !errors.Is(err, ErrAlreadyJoined) {
		t.Fatalf("switch group: %v", err)
	}
	if g, ok := l.GroupOf("alice"); !ok || g != "Red" {
		t.Fatalf("GroupOf = %q %v", g, ok)
	}
	if l.Participants() != 1 {
		t.Fatalf("participants = %d", l.Participants())
	}
}

func TestSnapshotDoesNotMutate(t *testing.T) {
	l := NewLedger(DefaultWeights(), nil)
	l.Join("alice", "Red")
	l.RecordMonsterKill("Red", "alice")

	before := l.Snapshot("alice")
	l.Snapshot("nobody")
	l.Snapshot("alice")
	after := l.Snapshot("alice")

	if before.Score != after.Score || before.Groups != after.Groups || before.Participants != after.Participants {
		t.Fatalf("snapshot changed state: %+v -> %+v", before, after)
	}
	if after.PersonalPoints != 1 || !after.Joined {
		t.Fatalf("alice view = %+v", after)
	}

	ghost := l.Snapshot("nobody")
	if ghost.Joined || ghost.Group != "" || len(ghost.Rankings) != 1 {
		t.Fatalf("outsider view = %+v", ghost)
	}
	if l.Participants() != 1 {
		t.Fatalf("outsider was enrolled")
	}
}

func TestMembersCarryPersonalPoints(t *testing.T) {
	l := NewLedger(DefaultWeights(), []string{"Red", "Blue"})
	for player, group := range map[string]string{"carol": "Blue", "alice": "Red", "bob": "Red"} {
		if err := l.Join(player, group); err != nil {
			t.Fatal(err)
		}
	}
	l.CreditPlayer("bob")

	got := l.Members()
	if len(got) != 3 || got[0].Player != "alice" || got[2].Player != "carol" {
		t.Fatalf("members = %+v", got)
	}
	if got[1].Group != "Red" || got[1].PersonalPoints != 3 {
		t.Fatalf("bob = %+v", got[1])
	}
}

func TestRestrictedLedgerIgnoresOutsideGroups(t *testing.T) {
	l := NewLedger(DefaultWeights(), []string{"Red", "Blue"})
	if err := l.Join("alice", "Red"); err != nil {
		t.Fatal(err)
	}

	l.RecordMonsterKill("Green", "mallory")
	if l.RecordPlayerKill("Green", "Red") {
		t.Fatalf("outside kill reported as friendly fire")
	}
	l.RecordPlayerKill("Red", "Green")
	l.RecordCapture("Green")
	l.CreditPlayer("mallory")

	r := l.Rankings()
	if len(r) != 2 {
		t.Fatalf("rankings grew an outside group: %+v", r)
	}
	for _, e := range r {
		if e.Score != 0 || e.Breakdown != (Breakdown{}) {
			t.Fatalf("%s scored from an outside group: %+v", e.Group, e)
		}
	}
	if d := l.Snapshot("mallory"); d.PersonalPoints != 0 {
		t.Fatalf("outsider credited %d points", d.PersonalPoints)
	}
}
