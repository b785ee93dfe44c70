package game

import (
	"fmt"

	"axiomind/internal/apperr"
)

const (
	// MinChipUnit is the indivisible chip denomination.
	MinChipUnit int64 = 25
	// HandsPerLevel is how many hands a session plays before the level rises.
	HandsPerLevel = 15
	MinLevel      = 1
	MaxLevel      = 20

	DefaultStartingStack int64 = 20000
)

type BlindLevel struct {
	SB int64 `json:"sb"`
	BB int64 `json:"bb"`
}

var blindSchedule = [MaxLevel + 1]BlindLevel{
	1:  {50, 100},
	2:  {75, 150},
	3:  {100, 200},
	4:  {150, 300},
	5:  {200, 400},
	6:  {300, 600},
	7:  {400, 800},
	8:  {500, 1000},
	9:  {600, 1200},
	10: {800, 1600},
	11: {1000, 2000},
	12: {1200, 2400},
	13: {1500, 3000},
	14: {2000, 4000},
	15: {2500, 5000},
	16: {3000, 6000},
	17: {4000, 8000},
	18: {5000, 10000},
	19: {6000, 12000},
	20: {8000, 16000},
}

var ErrInvalidLevel = apperr.New(apperr.ErrInvalidInput, "invalid_level", fmt.Sprintf("level must be in %d..=%d", MinLevel, MaxLevel))

// Blinds returns the small and big blind for level.
func Blinds(level int) (sb, bb int64, err error) {
	if level < MinLevel || level > MaxLevel {
		return 0, 0, ErrInvalidLevel
	}
	l := blindSchedule[level]
	return l.SB, l.BB, nil
}

// LevelAfter returns the level reached after handsPlayed hands starting at start.
func LevelAfter(start, handsPlayed int) int {
	level := start + handsPlayed/HandsPerLevel
	if level > MaxLevel {
		return MaxLevel
	}
	return level
}

// MinBet is the smallest opening bet at a big blind of bb.
func MinBet(bb int64) int64 {
	if bb > MinChipUnit {
		return bb
	}
	return MinChipUnit
}
