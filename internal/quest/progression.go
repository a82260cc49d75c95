package quest

import (
	"maps"
	"slices"
)

// Set is an immutable set of ids. With returns a new set and never mutates
// the receiver, so a Set can be shared freely between snapshots.
type Set struct {
	m map[string]struct{}
}

func NewSet(ids ...string) Set {
	var s Set
	for _, id := range ids {
		s = s.With(id)
	}
	return s
}

func (s Set) Has(id string) bool {
	_, ok := s.m[id]
	return ok
}

func (s Set) Len() int { return len(s.m) }

func (s Set) With(id string) Set {
	if s.Has(id) {
		return s
	}
	m := make(map[string]struct{}, len(s.m)+1)
	maps.Copy(m, s.m)
	m[id] = struct{}{}
	return Set{m: m}
}

// Sorted returns the members in lexical order.
func (s Set) Sorted() []string {
	return slices.Sorted(maps.Keys(s.m))
}

// Progression is the session-visible progress of one user through one tour.
// Values are immutable; every transition returns a new Progression.
type Progression struct {
	tourID  string
	scenes  []string
	pois    map[string]Kind
	visited Set
	solved  Set
	current string
}

// NewProgression starts a progression at the tour's entry scene. pois is the
// set of POIs assigned to the tour for this session.
func NewProgression(t Tour, pois []POI) Progression {
	p := Progression{
		tourID: t.ID,
		scenes: make([]string, 0, len(t.Scenes)),
		pois:   make(map[string]Kind, len(pois)),
	}
	for _, s := range t.Scenes {
		p.scenes = append(p.scenes, s.ID)
	}
	for _, poi := range pois {
		p.pois[poi.ID] = poi.Kind()
	}
	if entry, ok := t.EntryScene(); ok {
		p.visited = p.visited.With(entry.ID)
		p.current = entry.ID
	}
	return p
}

// Replay rebuilds a progression from stored records.
func Replay(t Tour, pois []POI, records []Record) Progression {
	p := NewProgression(t, pois)
	for _, r := range records {
		if r.Outcome.Terminal() {
			p = p.Resolve(r.POIID)
		}
	}
	return p
}

func (p Progression) TourID() string       { return p.tourID }
func (p Progression) CurrentScene() string { return p.current }
func (p Progression) Visited() Set         { return p.visited }
func (p Progression) Resolved() Set        { return p.solved }

// EnterScene marks sceneID visited and makes it current. Unknown scenes are
// the caller's problem; the tracker validates before calling.
func (p Progression) EnterScene(sceneID string) Progression {
	p.visited = p.visited.With(sceneID)
	p.current = sceneID
	return p
}

// Resolve adds poiID to the resolved set. POIs outside the session's
// assignment are ignored so they never inflate completion.
func (p Progression) Resolve(poiID string) Progression {
	if _, ok := p.pois[poiID]; !ok {
		return p
	}
	p.solved = p.solved.With(poiID)
	return p
}

func (p Progression) Completion() float64 {
	return Completion(p.visited.Len(), len(p.scenes), p.solved.Len(), len(p.pois))
}

// KindProgress is resolved/total for one POI kind.
type KindProgress struct {
	Resolved int
	Total    int
}

func (p Progression) ByKind() map[Kind]KindProgress {
	out := make(map[Kind]KindProgress, len(Kinds))
	for id, k := range p.pois {
		kp := out[k]
		kp.Total++
		if p.solved.Has(id) {
			kp.Resolved++
		}
		out[k] = kp
	}
	return out
}

// Completion blends scene coverage and POI resolution, 50% each. An empty
// denominator contributes 0 rather than dividing by zero.
func Completion(visited, scenes, resolved, pois int) float64 {
	var pct float64
	if scenes > 0 {
		pct += 50 * float64(visited) / float64(scenes)
	}
	if pois > 0 {
		pct += 50 * float64(resolved) / float64(pois)
	}
	return min(max(pct, 0), 100)
}
