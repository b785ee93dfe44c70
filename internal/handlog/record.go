// Package handlog defines the JSONL hand record and reads and writes it.
package handlog

import (
	"bytes"
	"encoding/json"
	"fmt"
	"regexp"
	"sort"
	"strconv"

	"axiomind/internal/apperr"
	"axiomind/internal/game"
)

// SeededTimestamp is written into every record produced from a seeded run.
const SeededTimestamp = "1970-01-01T00:00:00+00:00"

var handIDPattern = regexp.MustCompile(`^[0-9]{8}-[0-9]{6}$`)

// ValidHandID reports whether id is YYYYMMDD-NNNNNN.
func ValidHandID(id string) bool { return handIDPattern.MatchString(id) }

// FormatHandID builds an id from an 8-digit date and a 1-based counter.
func FormatHandID(date string, n int) string {
	return fmt.Sprintf("%s-%06d", date, n%1000000)
}

type HandRecord struct {
	HandID    string           `json:"hand_id"`
	Seed      *uint64          `json:"seed,omitempty"`
	Level     *int             `json:"level,omitempty"`
	Blinds    *game.BlindLevel `json:"blinds,omitempty"`
	Button    *string          `json:"button,omitempty"`
	Players   []PlayerRecord   `json:"players,omitempty"`
	Actions   []ActionEntry    `json:"actions"`
	Board     []game.Card      `json:"board"`
	Result    *string          `json:"result,omitempty"`
	NetResult map[string]int64 `json:"net_result,omitempty"`
	Showdown  *Showdown        `json:"showdown,omitempty"`
	Meta      *Meta            `json:"meta,omitempty"`
	TS        *string          `json:"ts,omitempty"`
}

type PlayerRecord struct {
	ID         string      `json:"id"`
	StackStart int64       `json:"stack_start"`
	HoleCards  []game.Card `json:"hole_cards,omitempty"`
}

type ActionEntry struct {
	PlayerID PlayerRef   `json:"player_id"`
	Street   game.Street `json:"street"`
	Action   game.Action `json:"action"`
}

type Showdown struct {
	Winners []int   `json:"winners"`
	Notes   *string `json:"notes,omitempty"`
}

// PlayerRef is an action's player_id, written either as a seat index or as a
// player id string.
type PlayerRef struct {
	Index   int
	ID      string
	IsIndex bool
}

func SeatRef(seat int) PlayerRef { return PlayerRef{Index: seat, IsIndex: true} }

func IDRef(id string) PlayerRef { return PlayerRef{ID: id} }

func (p PlayerRef) MarshalJSON() ([]byte, error) {
	if p.IsIndex {
		return []byte(strconv.Itoa(p.Index)), nil
	}
	return json.Marshal(p.ID)
}

func (p *PlayerRef) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) > 0 && b[0] == '"' {
		var id string
		if err := json.Unmarshal(b, &id); err != nil {
			return err
		}
		*p = IDRef(id)
		return nil
	}
	var idx int
	if err := json.Unmarshal(b, &idx); err != nil {
		return fmt.Errorf("player_id must be an integer or string: %w", err)
	}
	*p = SeatRef(idx)
	return nil
}

func (p PlayerRef) String() string {
	if p.IsIndex {
		return strconv.Itoa(p.Index)
	}
	return p.ID
}

// Resolve maps the reference onto an index into players.
func (p PlayerRef) Resolve(players []PlayerRecord) (int, bool) {
	if p.IsIndex {
		return p.Index, p.Index >= 0 && p.Index < len(players)
	}
	for i, pl := range players {
		if pl.ID == p.ID {
			return i, true
		}
	}
	return -1, false
}

// Meta carries dealing metadata. Keys it does not know are kept verbatim.
type Meta struct {
	SmallBlind    *string
	BigBlind      *string
	DealSequence  []string
	BurnPositions []int
	Extra         map[string]json.RawMessage
}

var metaKnown = map[string]bool{"small_blind": true, "big_blind": true, "deal_sequence": true, "burn_positions": true}

func (m Meta) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	first := true
	field := func(key string, v any) error {
		b, err := json.Marshal(v)
		if err != nil {
			return err
		}
		if !first {
			buf.WriteByte(',')
		}
		first = false
		k, _ := json.Marshal(key)
		buf.Write(k)
		buf.WriteByte(':')
		buf.Write(b)
		return nil
	}
	if m.SmallBlind != nil {
		if err := field("small_blind", *m.SmallBlind); err != nil {
			return nil, err
		}
	}
	if m.BigBlind != nil {
		if err := field("big_blind", *m.BigBlind); err != nil {
			return nil, err
		}
	}
	if m.DealSequence != nil {
		if err := field("deal_sequence", m.DealSequence); err != nil {
			return nil, err
		}
	}
	if m.BurnPositions != nil {
		if err := field("burn_positions", m.BurnPositions); err != nil {
			return nil, err
		}
	}
	keys := make([]string, 0, len(m.Extra))
	for k := range m.Extra {
		if !metaKnown[k] {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	for _, k := range keys {
		if err := field(k, m.Extra[k]); err != nil {
			return nil, err
		}
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func (m *Meta) UnmarshalJSON(b []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	*m = Meta{}
	for k, v := range raw {
		var err error
		switch k {
		case "small_blind":
			err = json.Unmarshal(v, &m.SmallBlind)
		case "big_blind":
			err = json.Unmarshal(v, &m.BigBlind)
		case "deal_sequence":
			err = json.Unmarshal(v, &m.DealSequence)
		case "burn_positions":
			err = json.Unmarshal(v, &m.BurnPositions)
		default:
			if m.Extra == nil {
				m.Extra = map[string]json.RawMessage{}
			}
			m.Extra[k] = v
		}
		if err != nil {
			return fmt.Errorf("meta.%s: %w", k, err)
		}
	}
	return nil
}

// Decode parses one JSONL line.
func Decode(line []byte) (HandRecord, error) {
	var rec HandRecord
	if err := json.Unmarshal(line, &rec); err != nil {
		return HandRecord{}, apperr.Wrap(apperr.ErrInvalidInput, "invalid_record", err)
	}
	return rec, nil
}

// Encode renders rec as a single line without the trailing newline.
func Encode(rec HandRecord) ([]byte, error) {
	return json.Marshal(rec)
}

// Validate checks the schema-level rules every stored record must meet.
func (r HandRecord) Validate() error {
	if !ValidHandID(r.HandID) {
		return apperr.New(apperr.ErrInvalidInput, "invalid_record", fmt.Sprintf("hand_id %q does not match YYYYMMDD-NNNNNN", r.HandID))
	}
	if len(r.Board) != 5 {
		return apperr.New(apperr.ErrInvalidInput, "invalid_record", fmt.Sprintf("hand %s: board has %d cards, expected 5", r.HandID, len(r.Board)))
	}
	for i, a := range r.Actions {
		if a.Street > game.StreetRiver {
			return apperr.New(apperr.ErrInvalidInput, "invalid_record", fmt.Sprintf("hand %s: action %d has street %s", r.HandID, i+1, a.Street))
		}
	}
	return nil
}

// Winner returns the result label: a player id, "split", or "" when unknown.
func (r HandRecord) Winner() string {
	if r.Result != nil {
		return *r.Result
	}
	return ""
}

// NetSum is Σ net_result.
func (r HandRecord) NetSum() int64 {
	var sum int64
	for _, v := range r.NetResult {
		sum += v
	}
	return sum
}

// WonChips is the total won by players with a positive net result.
func (r HandRecord) WonChips() int64 {
	var pot int64
	for _, v := range r.NetResult {
		if v > 0 {
			pot += v
		}
	}
	return pot
}
