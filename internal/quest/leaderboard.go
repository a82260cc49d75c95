package quest

import (
	"slices"
	"time"
)

// Standing is one ranked user.
type Standing struct {
	Rank   int
	UserID string
	Total  int
	// ReachedAt is when the user's last point-earning record landed, i.e.
	// when the current total was first achieved. Users without points use
	// their earliest record.
	ReachedAt time.Time
}

// TotalPoints folds records into a sum. Order does not matter.
func TotalPoints(records []Record) int {
	total := 0
	for _, r := range records {
		total += r.Points
	}
	return total
}

// Rank folds records into standings ordered by total descending, then by
// earliest ReachedAt. Remaining ties keep the order in which users first
// appear in records, so the same input always yields the same ranking.
// Records may come in any order.
func Rank(records []Record) []Standing {
	index := make(map[string]int)
	var out []Standing
	var earned []bool

	for _, r := range records {
		i, ok := index[r.UserID]
		if !ok {
			i = len(out)
			index[r.UserID] = i
			out = append(out, Standing{UserID: r.UserID, ReachedAt: r.CompletedAt})
			earned = append(earned, false)
		}
		if r.Points == 0 {
			if !earned[i] && r.CompletedAt.Before(out[i].ReachedAt) {
				out[i].ReachedAt = r.CompletedAt
			}
			continue
		}
		out[i].Total += r.Points
		if !earned[i] || r.CompletedAt.After(out[i].ReachedAt) {
			out[i].ReachedAt = r.CompletedAt
			earned[i] = true
		}
	}

	slices.SortStableFunc(out, func(a, b Standing) int {
		if a.Total != b.Total {
			return b.Total - a.Total
		}
		return a.ReachedAt.Compare(b.ReachedAt)
	})
	for i := range out {
		out[i].Rank = i + 1
	}
	return out
}
