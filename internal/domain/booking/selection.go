package booking

import "sort"

// SlotsOn returns the slots starting on q.Date ordered by start time.
// Each entry is a vendor availability with its start instant.
func SlotsOn(q AvailabilityQuery, entries []PricingEntry) []TimeSlot {
	out := make([]TimeSlot, 0, len(entries))
	sorted := append([]PricingEntry(nil), entries...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Start.Before(sorted[j].Start) })
	for _, e := range sorted {
		if e.Start.IsZero() || !sameDay(e.Start, q.Date) {
			continue
		}
		out = append(out, TimeSlot{
			Time:           e.Start.Format("15:04"),
			AvailabilityID: e.AvailabilityID,
			Capacity:       e.Availability,
			RateID:         e.RateID,
		})
	}
	return out
}

// MatchSlot returns the first slot on q.Date (and at q.Time when given) with
// capacity for q.Quantity. Matching is minute-granularity on HH:MM.
func MatchSlot(q AvailabilityQuery, slots []TimeSlot) (TimeSlot, bool) {
	qty := q.quantity()
	for _, s := range slots {
		if q.RateID != "" && s.RateID != "" && s.RateID != q.RateID {
			continue
		}
		if q.Time != "" && s.Time != q.Time {
			continue
		}
		if s.Capacity >= qty {
			return s, true
		}
	}
	return TimeSlot{}, false
}
