package pricing

import "time"

// ActiveCampaigns keeps the campaigns whose Active flag is set, preserving
// order. Date windows are not evaluated; upstream already filters by window.
//
// ActiveCampaigns 保留Active标志为真的活动，并保持顺序。
func ActiveCampaigns(campaigns []Campaign) []Campaign {
	active := make([]Campaign, 0, len(campaigns))
	for _, c := range campaigns {
		if c.Active {
			active = append(active, c)
		}
	}
	return active
}

// WithinWindow keeps the campaigns whose [StartsAt, EndsAt] window contains
// now, preserving order. Missing bounds are open.
func WithinWindow(campaigns []Campaign, now time.Time) []Campaign {
	in := make([]Campaign, 0, len(campaigns))
	for _, c := range campaigns {
		if c.StartsAt != nil && now.Before(*c.StartsAt) {
			continue
		}
		if c.EndsAt != nil && now.After(*c.EndsAt) {
			continue
		}
		in = append(in, c)
	}
	return in
}
