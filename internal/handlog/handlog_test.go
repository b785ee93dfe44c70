package handlog

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/klauspost/compress/zstd"

	"axiomind/internal/game"
)

func playFoldedHand(t *testing.T, seed uint64) *game.Engine {
	t.Helper()
	e, err := game.NewEngine(&seed, 1)
	if err != nil {
		t.Fatalf("new engine: %v", err)
	}
	if err := e.DealHand(); err != nil {
		t.Fatalf("deal: %v", err)
	}
	if err := e.ApplyAction(0, game.Call()); err != nil {
		t.Fatalf("call: %v", err)
	}
	if err := e.ApplyAction(1, game.Bet(0)); err == nil {
		t.Fatalf("expected bet into blinds to fail")
	}
	if err := e.ApplyAction(1, game.Raise(200)); err != nil {
		t.Fatalf("raise: %v", err)
	}
	if err := e.ApplyAction(0, game.Fold()); err != nil {
		t.Fatalf("fold: %v", err)
	}
	return e
}

func TestFromEngineBuildsCompleteRecord(t *testing.T) {
	e := playFoldedHand(t, 42)
	rec, err := FromEngine(e, SeededStamp(1))
	if err != nil {
		t.Fatalf("from engine: %v", err)
	}
	if rec.HandID != "19700101-000001" || !ValidHandID(rec.HandID) {
		t.Fatalf("unexpected hand id %q", rec.HandID)
	}
	if rec.TS == nil || *rec.TS != SeededTimestamp {
		t.Fatalf("expected seeded timestamp")
	}
	if err := rec.Validate(); err != nil {
		t.Fatalf("validate: %v", err)
	}
	if rec.NetSum() != 0 {
		t.Fatalf("net results must sum to zero: %v", rec.NetResult)
	}
	if rec.NetResult["p0"] != -100 || rec.NetResult["p1"] != 100 {
		t.Fatalf("unexpected net results %v", rec.NetResult)
	}
	if rec.Result == nil || *rec.Result != "p1" {
		t.Fatalf("expected p1 to win")
	}
	if rec.Showdown != nil {
		t.Fatalf("folded hand must not carry a showdown")
	}
	if got := rec.Meta.DealSequence; strings.Join(got, ",") != "p0,p1,p0,p1" {
		t.Fatalf("unexpected deal sequence %v", got)
	}
	if got := rec.Meta.BurnPositions; len(got) != 3 || got[0] != 5 || got[1] != 9 || got[2] != 11 {
		t.Fatalf("unexpected burn positions %v", got)
	}
	if len(rec.Actions) != 3 {
		t.Fatalf("expected call, raise, fold; got %+v", rec.Actions)
	}
	if rec.Actions[1].Action != game.Raise(200) || !rec.Actions[1].PlayerID.IsIndex || rec.Actions[1].PlayerID.Index != 1 {
		t.Fatalf("unexpected raise entry %+v", rec.Actions[1])
	}
	if rec.Actions[2].Action != game.Fold() || rec.Actions[2].PlayerID.Index != 0 {
		t.Fatalf("unexpected fold entry %+v", rec.Actions[2])
	}
}

func TestEncodeDecodeKeepsWireShape(t *testing.T) {
	rec, err := FromEngine(playFoldedHand(t, 7), SeededStamp(3))
	if err != nil {
		t.Fatalf("from engine: %v", err)
	}
	line, err := Encode(rec)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	for _, want := range []string{`"hand_id":"19700101-000003"`, `{"Raise":200}`, `"street":"Preflop"`, `"rank":`, `"ts":"1970-01-01T00:00:00+00:00"`} {
		if !bytes.Contains(line, []byte(want)) {
			t.Fatalf("encoded record missing %s: %s", want, line)
		}
	}
	back, err := Decode(line)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	again, _ := Encode(back)
	if !bytes.Equal(line, again) {
		t.Fatalf("re-encoding changed the record:\n%s\n%s", line, again)
	}
}

func TestPlayerRefAcceptsIntOrString(t *testing.T) {
	var entries []ActionEntry
	in := `[{"player_id":1,"street":"Flop","action":"Check"},{"player_id":"p0","street":"Flop","action":{"Bet":100}}]`
	if err := json.Unmarshal([]byte(in), &entries); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	players := []PlayerRecord{{ID: "p0"}, {ID: "p1"}}
	if idx, ok := entries[0].PlayerID.Resolve(players); !ok || idx != 1 {
		t.Fatalf("expected index 1, got %d %v", idx, ok)
	}
	if idx, ok := entries[1].PlayerID.Resolve(players); !ok || idx != 0 {
		t.Fatalf("expected index 0, got %d %v", idx, ok)
	}
	if _, ok := IDRef("p9").Resolve(players); ok {
		t.Fatalf("unknown id must not resolve")
	}
	if _, ok := SeatRef(2).Resolve(players); ok {
		t.Fatalf("out of range seat must not resolve")
	}
}

func TestMetaKeepsUnknownKeys(t *testing.T) {
	in := `{"small_blind":"p0","big_blind":"p1","deal_sequence":["p0","p1","p0","p1"],"burn_positions":[5,9,11],"table":"x"}`
	var m Meta
	if err := json.Unmarshal([]byte(in), &m); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if *m.SmallBlind != "p0" || len(m.BurnPositions) != 3 || string(m.Extra["table"]) != `"x"` {
		t.Fatalf("unexpected meta %+v", m)
	}
	out, err := json.Marshal(m)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(out) != in {
		t.Fatalf("meta did not round trip:\n%s\n%s", out, in)
	}
}

func TestValidateRejectsBadHandID(t *testing.T) {
	rec, _ := FromEngine(playFoldedHand(t, 1), SeededStamp(1))
	rec.HandID = "2024-01-01"
	if err := rec.Validate(); err == nil {
		t.Fatalf("expected invalid hand id")
	}
	rec.HandID = "20240101-000001"
	rec.Board = rec.Board[:4]
	if err := rec.Validate(); err == nil {
		t.Fatalf("expected board length error")
	}
}

func TestReaderStripsBOMAndCRLF(t *testing.T) {
	in := "\xEF\xBB\xBF{\"a\":1}\r\n\r\n{\"a\":2}\r\n{\"a\":3"
	r := NewReader(strings.NewReader(in))
	var lines []Line
	for {
		l, err := r.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			t.Fatalf("next: %v", err)
		}
		lines = append(lines, l)
	}
	if len(lines) != 3 {
		t.Fatalf("expected 3 lines, got %d", len(lines))
	}
	if string(lines[0].Raw) != `{"a":1}` || string(lines[1].Raw) != `{"a":2}` {
		t.Fatalf("unexpected lines %q %q", lines[0].Raw, lines[1].Raw)
	}
	if lines[1].No != 3 {
		t.Fatalf("blank lines still count toward numbering, got %d", lines[1].No)
	}
	if !lines[1].Terminated || lines[2].Terminated {
		t.Fatalf("only the final line should be unterminated")
	}
}

func TestWriterZstdRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "hands.jsonl.zst")
	w, err := Create(path, false, true)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	for i := 1; i <= 3; i++ {
		rec, _ := FromEngine(playFoldedHand(t, uint64(i)), SeededStamp(i))
		if err := w.Write(rec); err != nil {
			t.Fatalf("write: %v", err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	raw, _ := os.ReadFile(path)
	if bytes.Contains(raw, []byte("hand_id")) {
		t.Fatalf("expected compressed output")
	}
	recs, err := ReadAll(path)
	if err != nil {
		t.Fatalf("read all: %v", err)
	}
	if len(recs) != 3 || recs[2].HandID != "19700101-000003" {
		t.Fatalf("unexpected records %d", len(recs))
	}
}

func TestFlushReachesCompressedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "hands.jsonl.zst")
	w, err := Create(path, false, false)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	defer w.Close()
	for i := 1; i <= 2; i++ {
		rec, _ := FromEngine(playFoldedHand(t, uint64(i)), SeededStamp(i))
		if err := w.Write(rec); err != nil {
			t.Fatalf("write: %v", err)
		}
	}
	if err := w.Flush(); err != nil {
		t.Fatalf("flush: %v", err)
	}

	raw, err := os.ReadFile(path)
	if err != nil || len(raw) == 0 {
		t.Fatalf("nothing on disk after flush: %v", err)
	}
	dec, err := zstd.NewReader(bytes.NewReader(raw))
	if err != nil {
		t.Fatalf("zstd reader: %v", err)
	}
	defer dec.Close()
	// The frame is still open, so the stream ends early; the flushed block
	// must decode regardless.
	plain, _ := io.ReadAll(dec)
	for _, id := range []string{"19700101-000001", "19700101-000002"} {
		if !bytes.Contains(plain, []byte(id)) {
			t.Fatalf("flushed data missing %s: %q", id, plain)
		}
	}
}

func TestBufferedAndUnbufferedWritesMatch(t *testing.T) {
	var a, b bytes.Buffer
	wa := NewWriter(&a, false)
	wb := NewWriter(&b, true)
	for i := 1; i <= 5; i++ {
		rec, _ := FromEngine(playFoldedHand(t, uint64(i)), SeededStamp(i))
		if err := wa.Write(rec); err != nil {
			t.Fatalf("write: %v", err)
		}
		if err := wb.Write(rec); err != nil {
			t.Fatalf("write: %v", err)
		}
	}
	if err := wb.Flush(); err != nil {
		t.Fatalf("flush: %v", err)
	}
	if !bytes.Equal(a.Bytes(), b.Bytes()) {
		t.Fatalf("buffered output differs from unbuffered")
	}
}
