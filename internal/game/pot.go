package game

// UncalledExcess is how much of contribA the opponent never matched.
func UncalledExcess(contribA, contribB int64) int64 {
	if contribA > contribB {
		return contribA - contribB
	}
	return 0
}

// SplitPot divides pot evenly in chip units. The leftover unit goes to oddSeat.
func SplitPot(pot int64, oddSeat int) [2]int64 {
	half := (pot / MinChipUnit / 2) * MinChipUnit
	var out [2]int64
	out[0], out[1] = half, half
	out[oddSeat&1] += pot - 2*half
	return out
}
