package events

import (
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"

	"axiomind/internal/apperr"
	"axiomind/internal/game"
)

func TestConcurrentSubscribersSeeBroadcastOrder(t *testing.T) {
	bus := NewBus(DefaultCapacity)
	bus.Open("s")
	subA, err := bus.Subscribe("s", 0)
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	subB, _ := bus.Subscribe("s", 1)

	var wg sync.WaitGroup
	got := make([][]uint64, 2)
	for i, sub := range []*Subscription{subA, subB} {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for ev := range sub.Events() {
				got[i] = append(got[i], ev.Seq)
			}
		}()
	}
	for i := 0; i < 100; i++ {
		bus.Broadcast("s", Event{Type: TypePlayerAction, Payload: PlayerAction{Seat: i % 2, Pot: int64(i)}})
	}
	bus.DropSession("s")
	wg.Wait()

	for i, seqs := range got {
		if len(seqs) != 100 {
			t.Fatalf("subscriber %d got %d events, want 100", i, len(seqs))
		}
		for j, seq := range seqs {
			if seq != uint64(j+1) {
				t.Fatalf("subscriber %d: event %d has seq %d", i, j, seq)
			}
		}
	}
}

func TestFullQueueDropsOldest(t *testing.T) {
	bus := NewBus(4)
	bus.Open("s")
	sub, _ := bus.Subscribe("s", -1)
	for i := 0; i < 10; i++ {
		bus.Broadcast("s", Event{Type: TypeHandStarted, Payload: HandStarted{HandNumber: i + 1}})
	}
	if sub.Dropped() != 6 {
		t.Fatalf("dropped = %d, want 6", sub.Dropped())
	}
	var seqs []uint64
	for len(sub.Events()) > 0 {
		seqs = append(seqs, (<-sub.Events()).Seq)
	}
	if len(seqs) != 4 || seqs[0] != 7 || seqs[3] != 10 {
		t.Fatalf("expected the newest four events, got %v", seqs)
	}
}

func TestLateSubscriberSeesLaterEventsInOrder(t *testing.T) {
	bus := NewBus(8)
	bus.Open("s")
	bus.Broadcast("s", Event{Type: TypeHandStarted, Payload: HandStarted{HandNumber: 1}})
	sub, _ := bus.Subscribe("s", 0)
	bus.Broadcast("s", Event{Type: TypePlayerAction, Payload: PlayerAction{Seat: 0}})
	bus.Broadcast("s", Event{Type: TypePlayerAction, Payload: PlayerAction{Seat: 1}})
	first, second := <-sub.Events(), <-sub.Events()
	if first.Seq != 2 || second.Seq != 3 {
		t.Fatalf("unexpected seqs %d %d", first.Seq, second.Seq)
	}
}

func TestCardsDealtRedactedPerSeat(t *testing.T) {
	bus := NewBus(8)
	bus.Open("s")
	owner, _ := bus.Subscribe("s", 0)
	other, _ := bus.Subscribe("s", 1)
	watcher, _ := bus.Subscribe("s", -1)
	bus.Broadcast("s", Event{Type: TypeCardsDealt, Payload: CardsDealt{Seat: 0, Cards: game.MustParseCards("As Kd")}})

	if cd := (<-owner.Events()).Payload.(CardsDealt); len(cd.Cards) != 2 {
		t.Fatalf("owner should see cards, got %+v", cd)
	}
	for _, sub := range []*Subscription{other, watcher} {
		if cd := (<-sub.Events()).Payload.(CardsDealt); cd.Cards != nil || cd.Seat != 0 {
			t.Fatalf("seat %d should not see cards, got %+v", sub.Seat(), cd)
		}
	}
}

func TestClosedSubscribersAreReaped(t *testing.T) {
	bus := NewBus(8)
	bus.Open("s")
	a, _ := bus.Subscribe("s", 0)
	b, _ := bus.Subscribe("s", 1)
	a.Close()
	if n := bus.Subscribers("s"); n != 1 {
		t.Fatalf("subscribers = %d, want 1", n)
	}
	bus.Broadcast("s", Event{Type: TypeGameEnded, Payload: GameEnded{Reason: ReasonDeleted}})
	if _, ok := <-a.Events(); ok {
		t.Fatalf("closed subscriber should have its channel closed")
	}
	b.Close()
	if removed := bus.Sweep(); removed != 1 {
		t.Fatalf("sweep removed %d, want 1", removed)
	}
	if _, ok := <-b.Events(); ok {
		// b was closed after one event was queued; drain it.
		if _, ok := <-b.Events(); ok {
			t.Fatalf("expected channel closed after sweep")
		}
	}
}

func TestSubscribeUnknownSession(t *testing.T) {
	bus := NewBus(0)
	if _, err := bus.Subscribe("missing", 0); !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	if _, ok := bus.Broadcast("missing", Event{Type: TypeGameEnded}); ok {
		t.Fatalf("broadcast to unknown session should report false")
	}
}

func TestEventJSONIsInternallyTagged(t *testing.T) {
	ev := Event{Type: TypePlayerAction, SessionID: "s1", Seq: 3, Payload: PlayerAction{
		HandID: "19700101-000001", Seat: 1, Street: game.StreetFlop, Action: game.Bet(200), Pot: 400, CurrentPlayer: 0,
	}}
	b, err := json.Marshal(ev)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	want := `{"type":"PlayerAction","session_id":"s1","seq":3,"hand_id":"19700101-000001","seat":1,"street":"Flop","action":{"Bet":200},"pot":400,"current_player":0}`
	if string(b) != want {
		t.Fatalf("got  %s\nwant %s", b, want)
	}
	var back Event
	if err := json.Unmarshal(b, &back); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if pa, ok := back.Payload.(PlayerAction); !ok || pa.Action != game.Bet(200) || back.Seq != 3 {
		t.Fatalf("unexpected decoded event %+v", back)
	}
	if err := json.Unmarshal([]byte(`{"type":"Nope"}`), &back); err == nil || !strings.Contains(err.Error(), "unknown event type") {
		t.Fatalf("expected unknown type error, got %v", err)
	}
}
