package history

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/coder/quartz"

	"axiomind/internal/handlog"
)

func hand(id, result string, net int64, showdown bool) handlog.HandRecord {
	r := result
	rec := handlog.HandRecord{
		HandID:    id,
		Result:    &r,
		NetResult: map[string]int64{"p0": net, "p1": -net},
	}
	if showdown {
		rec.Showdown = &handlog.Showdown{Winners: []int{0}}
	}
	return rec
}

func TestAppendCapsAndOrdersNewestFirst(t *testing.T) {
	s, err := Open(Options{MaxRecords: 3, Clock: quartz.NewMock(t)})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	for i, id := range []string{"20260101-000001", "20260101-000002", "20260101-000003", "20260101-000004"} {
		if _, err := s.Append("s1", hand(id, "p0", int64(100*(i+1)), false)); err != nil {
			t.Fatalf("append: %v", err)
		}
	}
	if s.Len() != 3 {
		t.Fatalf("expected 3 entries, got %d", s.Len())
	}
	recent := s.Recent(2)
	if len(recent) != 2 || recent[0].Hand.HandID != "20260101-000004" || recent[1].Hand.HandID != "20260101-000003" {
		t.Fatalf("unexpected recent order: %+v", recent)
	}
	if all := s.Recent(0); len(all) != 3 || all[2].Hand.HandID != "20260101-000002" {
		t.Fatalf("oldest entry should have been dropped: %+v", all)
	}
	if recent[0].ID <= recent[1].ID {
		t.Fatalf("ids should increase: %s <= %s", recent[0].ID, recent[1].ID)
	}
}

func TestFilter(t *testing.T) {
	s, _ := Open(Options{Clock: quartz.NewMock(t)})
	_, _ = s.Append("a", hand("20260101-000001", "p0", 300, true))
	_, _ = s.Append("a", hand("20260101-000002", "p1", -50, false))
	_, _ = s.Append("b", hand("20260101-000003", "split", 0, true))

	if got := s.Filter(HandFilter{SessionID: "a"}); len(got) != 2 {
		t.Fatalf("session filter: %d", len(got))
	}
	if got := s.Filter(HandFilter{Winner: "split"}); len(got) != 1 || got[0].SessionID != "b" {
		t.Fatalf("winner filter: %+v", got)
	}
	yes := true
	if got := s.Filter(HandFilter{Showdown: &yes}); len(got) != 2 {
		t.Fatalf("showdown filter: %d", len(got))
	}
	if got := s.Filter(HandFilter{MinPot: 100}); len(got) != 1 || got[0].Hand.HandID != "20260101-000001" {
		t.Fatalf("min pot filter: %+v", got)
	}
	if got := s.Filter(HandFilter{FromHandID: "20260101-000002", Limit: 1}); len(got) != 1 || got[0].Hand.HandID != "20260101-000003" {
		t.Fatalf("range+limit filter: %+v", got)
	}
	if err := (HandFilter{FromHandID: "b", ToHandID: "a"}).Validate(); err == nil {
		t.Fatalf("expected inverted range to be rejected")
	}
	if err := (HandFilter{Limit: -1}).Validate(); err == nil {
		t.Fatalf("expected negative limit to be rejected")
	}
}

func TestStats(t *testing.T) {
	s, _ := Open(Options{Clock: quartz.NewMock(t)})
	_, _ = s.Append("a", hand("20260101-000001", "p0", 300, true))
	_, _ = s.Append("b", hand("20260101-000002", "p1", -100, false))
	_, _ = s.Append("b", hand("20260101-000003", "split", 0, true))

	st := s.Stats()
	if st.Hands != 3 || st.Sessions != 2 || st.Splits != 1 || st.Showdowns != 2 {
		t.Fatalf("unexpected stats: %+v", st)
	}
	if st.Winners["p0"] != 1 || st.Winners["p1"] != 1 {
		t.Fatalf("unexpected winners: %+v", st.Winners)
	}
	if st.Net["p0"] != 200 || st.Net["p1"] != -200 {
		t.Fatalf("unexpected net: %+v", st.Net)
	}
	if st.AvgPotWon != 400.0/3 {
		t.Fatalf("unexpected avg pot: %v", st.AvgPotWon)
	}
}

func TestPersistenceReload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.jsonl")
	clock := quartz.NewMock(t)
	clock.Set(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))

	s, err := Open(Options{Path: path, Clock: clock})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	first, _ := s.Append("a", hand("20260301-000001", "p0", 150, false))
	_, _ = s.Append("a", hand("20260301-000002", "p1", -75, true))
	if err := s.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	again, err := Open(Options{Path: path, MaxRecords: 10, Clock: clock})
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer again.Close()
	if again.Len() != 2 {
		t.Fatalf("expected 2 reloaded entries, got %d", again.Len())
	}
	oldest := again.Recent(0)[1]
	if oldest.ID != first.ID || oldest.Hand.Winner() != "p0" || !oldest.RecordedAt.Equal(first.RecordedAt) {
		t.Fatalf("reloaded entry mismatch: %+v vs %+v", oldest, first)
	}
	_, _ = again.Append("b", hand("20260301-000003", "split", 0, true))
	if ids := again.SessionIDs(); len(ids) != 2 || ids[0] != "a" || ids[1] != "b" {
		t.Fatalf("unexpected session ids: %v", ids)
	}
}
