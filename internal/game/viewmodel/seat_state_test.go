package viewmodel

import (
	"testing"

	"axiomind/internal/game"
)

func TestBuildSeatStateRedactsOpponent(t *testing.T) {
	seed := uint64(7)
	e, err := game.NewEngine(&seed, 1)
	if err != nil {
		t.Fatalf("new engine: %v", err)
	}
	if err := e.DealHand(); err != nil {
		t.Fatalf("deal: %v", err)
	}

	view := BuildSeatState(e.Snapshot(), 0, "19700101-000001", "turn_1")
	if len(view.MyHoleCards) != 2 {
		t.Fatalf("expected 2 own hole cards, got %d", len(view.MyHoleCards))
	}
	if len(view.Seats[1].HoleCards) != 0 {
		t.Fatalf("opponent hole cards leaked: %v", view.Seats[1].HoleCards)
	}
	if len(view.CommunityCards) != 0 {
		t.Fatalf("expected empty preflop board, got %v", view.CommunityCards)
	}
	if view.Seats[0].ToCall+view.Seats[1].ToCall != 50 {
		t.Fatalf("expected small blind to owe 50, got %d/%d", view.Seats[0].ToCall, view.Seats[1].ToCall)
	}

	spectator := BuildSeatState(e.Snapshot(), -1, "", "")
	for _, s := range spectator.Seats {
		if len(s.HoleCards) != 0 {
			t.Fatalf("spectator saw hole cards for seat %d", s.Seat)
		}
	}
}

func TestBuildSeatStateHidesRunoutAfterFold(t *testing.T) {
	seed := uint64(11)
	e, err := game.NewEngine(&seed, 1)
	if err != nil {
		t.Fatalf("new engine: %v", err)
	}
	if err := e.DealHand(); err != nil {
		t.Fatalf("deal: %v", err)
	}
	if err := e.ApplyAction(e.CurrentPlayer(), game.Fold()); err != nil {
		t.Fatalf("fold: %v", err)
	}
	view := BuildSeatState(e.Snapshot(), 1, "", "")
	if len(view.CommunityCards) != 0 {
		t.Fatalf("expected no visible board after preflop fold, got %v", view.CommunityCards)
	}
	if !view.Complete || len(view.Winners) != 1 {
		t.Fatalf("expected completed hand with one winner, got %+v", view)
	}
	if view.Pot != 150 {
		t.Fatalf("expected final pot 150, got %d", view.Pot)
	}
}
