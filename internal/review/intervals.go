package review

import "studyhub-backend/internal/models"

// Day-offset table per importance tier. Offsets are days added to the anchor
// for each successive review; higher importance reviews sooner and more often.
var intervalTable = map[models.ImportanceTier][]int{
	models.TierHigh:   {1, 3, 7, 14},
	models.TierMedium: {2, 5, 10},
	models.TierLow:    {3, 7, 14},
}

// Offsets returns the day-offset sequence for a tier.
func Offsets(tier models.ImportanceTier) ([]int, error) {
	offsets, ok := intervalTable[tier]
	if !ok {
		return nil, &UnknownTierError{Tier: tier}
	}
	return offsets, nil
}
