package viewmodel

import "axiomind/internal/game"

type SeatView struct {
	Seat               int      `json:"seat"`
	PlayerID           string   `json:"player_id"`
	Position           string   `json:"position"`
	Stack              int64    `json:"stack"`
	StreetContribution int64    `json:"street_contribution"`
	ToCall             int64    `json:"to_call"`
	LastAction         string   `json:"last_action,omitempty"`
	IsActive           bool     `json:"is_active"`
	AllIn              bool     `json:"all_in"`
	HoleCards          []string `json:"hole_cards,omitempty"`
}

// StateView is a game snapshot as one seat is allowed to see it.
type StateView struct {
	HandID           string     `json:"hand_id,omitempty"`
	TurnID           string     `json:"turn_id,omitempty"`
	Level            int        `json:"level"`
	SmallBlind       int64      `json:"small_blind"`
	BigBlind         int64      `json:"big_blind"`
	Street           string     `json:"street"`
	Pot              int64      `json:"pot"`
	CurrentBet       int64      `json:"current_bet"`
	MinRaise         int64      `json:"min_raise"`
	CommunityCards   []string   `json:"community_cards"`
	Button           int        `json:"button"`
	CurrentActorSeat int        `json:"current_actor_seat"`
	MySeat           int        `json:"my_seat"`
	MyHoleCards      []string   `json:"my_hole_cards"`
	Seats            []SeatView `json:"seats"`
	Complete         bool       `json:"complete"`
	Winners          []int      `json:"winners,omitempty"`
}

// BuildSeatState redacts snap for mySeat: the opponent's hole cards stay hidden
// unless the hand went to showdown. A negative mySeat hides both hands.
func BuildSeatState(snap game.Snapshot, mySeat int, handID, turnID string) StateView {
	community := cardStrings(snap.Board)
	showdown := snap.Result != nil && snap.Result.Showdown

	seats := make([]SeatView, 0, len(snap.Seats))
	for i, s := range snap.Seats {
		toCall := snap.CurrentBet - s.Committed
		if toCall < 0 || snap.Complete {
			toCall = 0
		}
		sv := SeatView{
			Seat:               s.Seat,
			PlayerID:           s.ID,
			Position:           s.Position.String(),
			Stack:              s.Stack,
			StreetContribution: s.Committed,
			ToCall:             toCall,
			LastAction:         lastAction(snap.Actions, i),
			IsActive:           !s.Folded,
			AllIn:              s.AllIn,
		}
		if i == mySeat || (showdown && !s.Folded) {
			sv.HoleCards = cardStrings(s.Hole)
		}
		seats = append(seats, sv)
	}

	myCards := []string{}
	if mySeat >= 0 && mySeat < len(snap.Seats) {
		myCards = cardStrings(snap.Seats[mySeat].Hole)
	}
	out := StateView{
		HandID:           handID,
		TurnID:           turnID,
		Level:            snap.Level,
		SmallBlind:       snap.Blinds.SB,
		BigBlind:         snap.Blinds.BB,
		Street:           snap.Street.String(),
		Pot:              snap.Pot,
		CurrentBet:       snap.CurrentBet,
		MinRaise:         snap.MinRaise,
		CommunityCards:   community,
		Button:           snap.Button,
		CurrentActorSeat: snap.CurrentPlayer,
		MySeat:           mySeat,
		MyHoleCards:      myCards,
		Seats:            seats,
		Complete:         snap.Complete,
	}
	if snap.Result != nil {
		out.Winners = append([]int(nil), snap.Result.Winners...)
		out.Pot = snap.Result.Pot
	}
	return out
}

func lastAction(actions []game.ActionRecord, seat int) string {
	for i := len(actions) - 1; i >= 0; i-- {
		if actions[i].Seat == seat {
			return actions[i].Action.String()
		}
	}
	return ""
}

func cardStrings(cards []game.Card) []string {
	out := make([]string, 0, len(cards))
	for _, c := range cards {
		out = append(out, c.String())
	}
	return out
}
