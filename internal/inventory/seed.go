package inventory

import (
	"context"

	"adintel/internal/logging"
	"adintel/internal/types"
)

// defaultCampaigns is the starter inventory used when the store is empty.
var defaultCampaigns = []types.Candidate{
	{
		Title:      "Experience endless entertainment with 6 months of premium streaming for free.",
		Categories: []string{"entertainment"},
	},
	{
		Title:      "Save more on groceries every week with the FreshMart Rewards Card.",
		Company:    "FreshMart",
		Categories: []string{"shopping", "food"},
	},
	{
		Title:      "Travel to your dream destinations—flight deals starting at just $199 round trip!",
		Categories: []string{"travel"},
	},
	{
		Title:      "Stay powered all day with our latest PowerMax portable charger.",
		Company:    "PowerMax",
		Categories: []string{"tech", "gadgets"},
	},
	{
		Title:      "Unlock your coding potential with 50% off our leading online programming courses.",
		Categories: []string{"education", "tech"},
	},
	{
		Title:      "Feel the comfort of all-season shoes, now with enhanced arch support.",
		Categories: []string{"fashion", "fitness"},
	},
	{
		Title:      "Protect your home 24/7—introducing the SmartSecure security system.",
		Company:    "SmartSecure",
		Categories: []string{"home", "tech"},
	},
	{
		Title:      "Get crystal-clear video calls with the new VisionHD webcam.",
		Company:    "VisionHD",
		Categories: []string{"tech", "gadgets"},
	},
	{
		Title:      "Level up your workspace with the ergonomic Elevate Office Chair—on sale now!",
		Company:    "Elevate",
		Categories: []string{"home", "office"},
	},
}

// SeedDefaults inserts the starter campaigns when the store is empty.
// Idempotent: a non-empty store is left untouched.
func (s *Store) SeedDefaults(ctx context.Context) (int, error) {
	n, err := s.Count(ctx)
	if err != nil {
		return 0, err
	}
	if n > 0 {
		return 0, nil
	}

	inserted := 0
	for _, c := range defaultCampaigns {
		if _, err := s.Insert(ctx, c); err != nil {
			return inserted, err
		}
		inserted++
	}
	logging.Store("seeded %d default campaigns", inserted)
	return inserted, nil
}
