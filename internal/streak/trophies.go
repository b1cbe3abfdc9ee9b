package streak

// Thresholds are the streak lengths (in consecutive days) that earn a trophy,
// in ascending order.
var Thresholds = []int{10, 15, 30}

// NewlyEarned returns the thresholds crossed by the given streak that are not
// already in the awarded set. Evaluating again with the awards recorded yields
// nothing, which is what makes repeated evaluation safe.
func NewlyEarned(streak int, awarded map[int]bool) []int {
	var newly []int
	for _, threshold := range Thresholds {
		if streak >= threshold && !awarded[threshold] {
			newly = append(newly, threshold)
		}
	}
	return newly
}
