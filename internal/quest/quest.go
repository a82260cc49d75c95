// Package quest defines the tour domain types, the progression and scoring
// rules, and the ports the engine talks to. It has zero external
// dependencies.
package quest

import (
	"slices"
	"time"
)

type Tour struct {
	ID               string
	Name             string
	City             string
	Description      string
	CoverImage       string
	Active           bool
	CompetitionStart *time.Time
	CompetitionEnd   *time.Time
	Scenes           []Scene
}

// EntryScene is the first scene in tour order.
func (t Tour) EntryScene() (Scene, bool) {
	if len(t.Scenes) == 0 {
		return Scene{}, false
	}
	return t.Scenes[0], true
}

func (t Tour) Scene(id string) (Scene, bool) {
	for _, s := range t.Scenes {
		if s.ID == id {
			return s, true
		}
	}
	return Scene{}, false
}

// OpenAt reports whether interactions are accepted at the given instant:
// the tour is active and at is inside the competition window, when one is set.
func (t Tour) OpenAt(at time.Time) bool {
	if !t.Active {
		return false
	}
	if t.CompetitionStart != nil && at.Before(*t.CompetitionStart) {
		return false
	}
	if t.CompetitionEnd != nil && at.After(*t.CompetitionEnd) {
		return false
	}
	return true
}

type Scene struct {
	ID          string
	Title       string
	Description string
	Panorama    string
}

// Position is the angular anchor of a POI inside an equirectangular panorama.
type Position struct {
	Pitch float64
	Yaw   float64
}

type POI struct {
	ID          string
	TourID      string
	SceneID     string
	Title       string
	Description string
	Order       int
	Position    Position
	Content     Content
	Points      int
	Active      bool
	// Day scopes the POI to one calendar day (YYYY-MM-DD). Empty means every day.
	Day       string
	NextScene string
}

func (p POI) Kind() Kind {
	if p.Content == nil {
		return ""
	}
	return p.Content.Kind()
}

// OnDay reports whether the POI is scheduled for the given day. A zero day
// disables date scoping.
func (p POI) OnDay(day time.Time) bool {
	if p.Day == "" || day.IsZero() {
		return true
	}
	return p.Day == day.UTC().Format(DayLayout)
}

// DayLayout is the calendar-day format used for daily content.
const DayLayout = "2006-01-02"

// SortPOIs orders POIs by display order, then id.
func SortPOIs(pois []POI) {
	slices.SortStableFunc(pois, func(a, b POI) int {
		if a.Order != b.Order {
			return a.Order - b.Order
		}
		switch {
		case a.ID < b.ID:
			return -1
		case a.ID > b.ID:
			return 1
		}
		return 0
	})
}

type Outcome string

const (
	OutcomePending      Outcome = "pending"
	OutcomeSucceeded    Outcome = "succeeded"
	OutcomeFailed       Outcome = "failed"
	OutcomeAcknowledged Outcome = "acknowledged"
)

// Terminal reports whether the outcome resolves a POI for good.
func (o Outcome) Terminal() bool {
	return o == OutcomeSucceeded || o == OutcomeAcknowledged
}

// Record is an immutable fact: user resolved (or attempted) a POI.
type Record struct {
	ID          string
	UserID      string
	TourID      string
	POIID       string
	Points      int
	Outcome     Outcome
	Metadata    map[string]string
	CompletedAt time.Time
}

// Interaction is what a user submits for a POI. Question POIs read Answer,
// acknowledgement kinds read Signal.
type Interaction struct {
	Answer string
	Signal string
}

// Actor is the authenticated user behind an engine call.
type Actor struct {
	UserID string
	Name   string
}

func (a Actor) Authenticated() bool { return a.UserID != "" }
