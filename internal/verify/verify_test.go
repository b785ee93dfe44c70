package verify

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"axiomind/internal/ai"
	"axiomind/internal/game"
	"axiomind/internal/handlog"
)

// playMatch plays up to n hands with stacks carried between them.
func playMatch(t *testing.T, seed uint64, n int, a, b ai.Policy) []handlog.HandRecord {
	t.Helper()
	var out []handlog.HandRecord
	stacks := [2]int64{game.DefaultStartingStack, game.DefaultStartingStack}
	policies := [2]ai.Policy{a, b}
	for i := 0; i < n; i++ {
		s := seed + uint64(i)
		e, err := game.NewEngine(&s, 1)
		require.NoError(t, err)
		require.NoError(t, e.SetStacks(stacks))
		e.SetButton(i % 2)
		require.NoError(t, e.DealHand())
		for !e.IsComplete() {
			seat := e.CurrentPlayer()
			d := ai.Decide(e, policies[seat], seat)
			require.NoError(t, e.ApplyAction(seat, d.Action))
		}
		rec, err := handlog.FromEngine(e, handlog.SeededStamp(i+1))
		require.NoError(t, err)
		out = append(out, rec)
		for q, p := range e.Players() {
			stacks[q] = p.Stack
		}
		if stacks[0] == 0 || stacks[1] == 0 {
			break
		}
	}
	return out
}

func issues(rep Report) string {
	var b strings.Builder
	for _, i := range rep.Issues {
		b.WriteString(i.String())
		b.WriteByte('\n')
	}
	return b.String()
}

func TestEngineMatchesVerifyClean(t *testing.T) {
	pairs := [][2]string{{"baseline", "calling"}, {"aggressive", "random"}, {"aggressive", "aggressive"}}
	for _, pair := range pairs {
		a, err := ai.Resolve(pair[0])
		require.NoError(t, err)
		b, err := ai.Resolve(pair[1])
		require.NoError(t, err)
		recs := playMatch(t, 42, 40, a, b)
		rep := Records(recs)
		require.Truef(t, rep.OK(), "%v: %s", pair, issues(rep))
		assert.Equal(t, len(recs), rep.Hands)
	}
}

func TestChipConservationViolated(t *testing.T) {
	recs := playMatch(t, 5, 1, ai.Calling{}, ai.Calling{})
	recs[0].NetResult = map[string]int64{"p0": 50, "p1": -40}
	rep := Records(recs)
	require.False(t, rep.OK())
	assert.Contains(t, issues(rep), "Chip conservation violated")
	assert.Equal(t, 1, rep.Issues[0].Hand)
	assert.ErrorIs(t, rep.Err(), ErrVerifyFailed)
}

func TestUnknownNetResultKey(t *testing.T) {
	recs := playMatch(t, 5, 1, ai.Calling{}, ai.Calling{})
	recs[0].NetResult["p9"] = 0
	assert.Contains(t, issues(Records(recs)), `unknown player "p9"`)
}

const shortAllInRecord = `{"hand_id":"20240101-000001","blinds":{"sb":50,"bb":100},"button":"p0",` +
	`"players":[{"id":"p0","stack_start":1000},{"id":"p1","stack_start":350}],` +
	`"actions":[` +
	`{"player_id":0,"street":"Preflop","action":"Call"},` +
	`{"player_id":1,"street":"Preflop","action":"Check"},` +
	`{"player_id":1,"street":"Flop","action":"Check"},` +
	`{"player_id":0,"street":"Flop","action":{"Bet":200}},` +
	`{"player_id":1,"street":"Flop","action":{"AllIn":250}},` +
	`{"player_id":0,"street":"Flop","action":{"Raise":200}}],` +
	`"board":[{"rank":"Two","suit":"Clubs"},{"rank":"Seven","suit":"Diamonds"},{"rank":"Nine","suit":"Hearts"},{"rank":"Jack","suit":"Spades"},{"rank":"King","suit":"Clubs"}]}`

func TestShortAllInReopenRejected(t *testing.T) {
	v := New()
	v.Line([]byte(shortAllInRecord))
	rep := v.Report()
	require.Len(t, rep.Issues, 1, issues(rep))
	assert.Equal(t, "Betting illegally reopened after short all-in", rep.Issues[0].Msg)

	// Calling the short all-in is fine.
	fixed := strings.Replace(shortAllInRecord, `{"Raise":200}`, `"Call"`, 1)
	assert.True(t, Records([]handlog.HandRecord{mustDecode(t, fixed)}).OK())
}

func TestReplayerTracksChips(t *testing.T) {
	rec := mustDecode(t, strings.Replace(shortAllInRecord, `{"Raise":200}`, `"Call"`, 1))
	r, err := NewReplayer(rec)
	require.NoError(t, err)
	assert.Equal(t, int64(150), r.Pot())
	for _, a := range rec.Actions {
		require.NoError(t, r.Apply(a))
	}
	r.Finish()
	assert.Equal(t, game.StreetFlop, r.Street())
	assert.Equal(t, int64(700), r.Pot())
	assert.Equal(t, []int64{650, 0}, r.Stacks())
}

func TestShortBetMustBeAllIn(t *testing.T) {
	short := strings.NewReplacer(`"stack_start":350`, `"stack_start":175`,
		`{"player_id":1,"street":"Flop","action":"Check"}`, `{"player_id":1,"street":"Flop","action":{"Bet":75}}`).Replace(shortAllInRecord)
	rec := mustDecode(t, short)
	r, err := NewReplayer(rec)
	require.NoError(t, err)
	require.NoError(t, r.Apply(rec.Actions[0]))
	require.NoError(t, r.Apply(rec.Actions[1]))
	assert.ErrorContains(t, r.Apply(rec.Actions[2]), "bet 75 below minimum 100")

	rec = mustDecode(t, strings.Replace(short, `{"Bet":75}`, `{"AllIn":75}`, 1))
	r, err = NewReplayer(rec)
	require.NoError(t, err)
	for _, a := range rec.Actions[:3] {
		require.NoError(t, r.Apply(a))
	}
	assert.Equal(t, []int64{900, 0}, r.Stacks())
}

func TestDuplicateCardsAndBoard(t *testing.T) {
	recs := playMatch(t, 9, 1, ai.Calling{}, ai.Calling{})
	recs[0].Board[4] = recs[0].Players[0].HoleCards[0]
	assert.Contains(t, issues(Records(recs)), "duplicate card")

	recs = playMatch(t, 9, 1, ai.Calling{}, ai.Calling{})
	recs[0].Board = recs[0].Board[:3]
	assert.Contains(t, issues(Records(recs)), "board has 3 cards")
}

func TestRosterContinuity(t *testing.T) {
	recs := playMatch(t, 3, 3, ai.Calling{}, ai.Calling{})
	require.Len(t, recs, 3)
	recs[1].Players[0].StackStart += 25
	assert.Contains(t, issues(Records(recs)), "expected")

	recs = playMatch(t, 3, 3, ai.Calling{}, ai.Calling{})
	recs[2].Players[1].ID = "p7"
	out := issues(Records(recs))
	assert.Contains(t, out, "p7 joined mid-session")
	assert.Contains(t, out, "p1 with")
}

func TestEliminationFinality(t *testing.T) {
	recs := playMatch(t, 3, 2, ai.Calling{}, ai.Calling{})
	require.Len(t, recs, 2)
	first := recs[0]
	first.NetResult = map[string]int64{"p0": -first.Players[0].StackStart, "p1": first.Players[0].StackStart}
	recs[0] = first
	out := issues(Records(recs))
	assert.Contains(t, out, "hand 2 (19700101-000002): hand recorded after p0 was eliminated")
}

func TestMetaChecks(t *testing.T) {
	recs := playMatch(t, 4, 1, ai.Calling{}, ai.Calling{})
	recs[0].Meta.BurnPositions = []int{4, 8, 10}
	recs[0].Meta.DealSequence = []string{"p1", "p0", "p0", "p1"}
	out := issues(Records(recs))
	assert.Contains(t, out, "burn_positions")
	assert.Contains(t, out, "deal_sequence rounds differ")
}

func TestStreetsMonotonic(t *testing.T) {
	rec := mustDecode(t, shortAllInRecord)
	rec.Actions = rec.Actions[:4]
	rec.Actions[2].Street = game.StreetTurn
	rec.Actions[3].Street = game.StreetFlop
	out := issues(Records([]handlog.HandRecord{rec}))
	assert.Contains(t, out, "skips from Preflop to Turn")
	assert.Contains(t, out, "goes back from Turn to Flop")
}

func TestFileReportsBadLinesAndCounts(t *testing.T) {
	recs := playMatch(t, 8, 3, ai.Calling{}, ai.Calling{})
	var b strings.Builder
	for _, r := range recs {
		line, err := handlog.Encode(r)
		require.NoError(t, err)
		b.Write(line)
		b.WriteString("\r\n")
	}
	b.WriteString("{not json}\n")
	path := filepath.Join(t.TempDir(), "hands.jsonl")
	require.NoError(t, os.WriteFile(path, []byte("\xEF\xBB\xBF"+b.String()), 0o644))

	rep, err := File(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, len(recs)+1, rep.Hands)
	require.Len(t, rep.Issues, 1)
	assert.Equal(t, len(recs)+1, rep.Issues[0].Hand)
	assert.Contains(t, rep.Issues[0].Msg, "invalid record")
}

func mustDecode(t *testing.T, line string) handlog.HandRecord {
	t.Helper()
	rec, err := handlog.Decode([]byte(line))
	require.NoError(t, err)
	return rec
}
