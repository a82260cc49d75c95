package catalog

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/playperu/vrquest/internal/quest"
)

func TestDemoCatalog(t *testing.T) {
	c := Demo()
	ctx := context.Background()

	tour, err := c.Tour(ctx, "oficina-demo")
	if err != nil {
		t.Fatalf("tour: %v", err)
	}
	entry, ok := tour.EntryScene()
	if !ok || entry.ID != "recepcion" {
		t.Errorf("entry scene = %q, want recepcion", entry.ID)
	}
	if len(tour.Scenes) != 4 {
		t.Errorf("scenes = %d, want 4", len(tour.Scenes))
	}

	pois, err := c.ListPOIs(ctx, "oficina-demo", time.Time{})
	if err != nil {
		t.Fatalf("pois: %v", err)
	}
	kinds := make(map[quest.Kind]int)
	for _, p := range pois {
		kinds[p.Kind()]++
		if err := quest.ValidateContent(p); err != nil {
			t.Errorf("poi %s: %v", p.ID, err)
		}
	}
	want := map[quest.Kind]int{
		quest.KindQuestion:   2,
		quest.KindMultimedia: 3,
		quest.KindProduct:    1,
		quest.KindReview:     1,
	}
	for k, n := range want {
		if kinds[k] != n {
			t.Errorf("%s pois = %d, want %d", k, kinds[k], n)
		}
	}
}

func TestParseRejects(t *testing.T) {
	base := `
version: 1
tours:
  - id: t1
    name: Tour
    scenes:
      - id: s1
    pois:
      - id: p1
        scene: s1
        kind: %KIND%
        points: 5
        position: { pitch: %PITCH%, yaw: 0 }
`
	render := func(kind, pitch string) string {
		return strings.NewReplacer("%KIND%", kind, "%PITCH%", pitch).Replace(base)
	}

	tests := []struct {
		name string
		doc  string
		want string
	}{
		{name: "unknown kind", doc: render("hologram", "0"), want: "unknown kind"},
		{name: "pitch out of range", doc: render("product", "95"), want: "pitch"},
		{name: "bad version", doc: "version: 2\ntours: []\n", want: "unsupported version"},
		{name: "no tours", doc: "version: 1\n", want: "at least one tour"},
		{name: "unknown field", doc: render("product", "0") + "    colour: red\n", want: "colour"},
		{name: "unknown scene", doc: strings.Replace(render("product", "0"), "scene: s1", "scene: s9", 1), want: "unknown scene"},
		{name: "question without options", doc: render("quiz", "0") + `        content: { options: [], correct_answer: "" }
`, want: "no options"},
		{name: "answer not among options", doc: render("question", "0") + `        content: { prompt: "Year?", options: ["2015", "2018"], correct_answer: "2020" }
`, want: "not among the options"},
		{name: "duplicate poi", doc: render("product", "0") + `      - id: p1
        scene: s1
        kind: review
`, want: "duplicate poi"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.doc))
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("err = %v, want it to mention %q", err, tt.want)
			}
		})
	}
}

func TestParseMisconfiguredQuestionIsInvalidContent(t *testing.T) {
	doc := `
version: 1
tours:
  - id: t1
    name: Tour
    scenes: [{ id: s1 }]
    pois: [{ id: p1, scene: s1, kind: quiz, content: { options: [], correct_answer: "" } }]
`
	_, err := Parse([]byte(doc))
	if !errors.Is(err, quest.ErrInvalidContent) {
		t.Fatalf("err = %v, want ErrInvalidContent", err)
	}
}

func TestParseUnknownKindIsInvalidContent(t *testing.T) {
	doc := `
version: 1
tours:
  - id: t1
    name: Tour
    scenes: [{ id: s1 }]
    pois: [{ id: p1, scene: s1, kind: hologram }]
`
	_, err := Parse([]byte(doc))
	if !errors.Is(err, quest.ErrInvalidContent) {
		t.Fatalf("err = %v, want ErrInvalidContent", err)
	}
}

func TestDailyPOIs(t *testing.T) {
	doc := `
version: 1
tours:
  - id: t1
    name: Tour
    competition_start: 2025-03-01T00:00:00Z
    competition_end: 2025-03-31T23:59:59Z
    scenes: [{ id: s1 }]
    pois:
      - { id: always, scene: s1, kind: info }
      - { id: monday, scene: s1, kind: info, day: "2025-03-17" }
      - { id: tuesday, scene: s1, kind: info, day: "2025-03-18" }
`
	c, err := Parse([]byte(doc))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	ctx := context.Background()

	monday := time.Date(2025, 3, 17, 9, 30, 0, 0, time.UTC)
	pois, _ := c.ListPOIs(ctx, "t1", monday)
	if len(pois) != 2 || pois[0].ID != "always" || pois[1].ID != "monday" {
		t.Errorf("monday pois = %v", ids(pois))
	}

	all, _ := c.ListPOIs(ctx, "t1", time.Time{})
	if len(all) != 3 {
		t.Errorf("unscoped pois = %v", ids(all))
	}

	tour, _ := c.Tour(ctx, "t1")
	if tour.CompetitionStart == nil || !tour.OpenAt(monday) {
		t.Error("tour should be open inside its competition window")
	}
	if tour.OpenAt(time.Date(2025, 4, 2, 0, 0, 0, 0, time.UTC)) {
		t.Error("tour should be closed after its competition window")
	}
}

func ids(pois []quest.POI) []string {
	out := make([]string, len(pois))
	for i, p := range pois {
		out[i] = p.ID
	}
	return out
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.yaml")
	if err := os.WriteFile(path, demoYAML, 0o600); err != nil {
		t.Fatalf("writing catalog: %v", err)
	}
	c, err := LoadFile(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if _, err := c.Tour(context.Background(), "missing"); !errors.Is(err, quest.ErrNotFound) {
		t.Errorf("missing tour err = %v, want ErrNotFound", err)
	}
}

func TestDecodeRejectsUnknownMedia(t *testing.T) {
	_, err := ContentDoc{Media: "hologram"}.Decode(quest.KindMultimedia)
	if !errors.Is(err, quest.ErrInvalidContent) {
		t.Fatalf("err = %v, want ErrInvalidContent", err)
	}
}

type memWriter struct {
	tours []quest.Tour
	pois  []quest.POI
}

func (w *memWriter) PutTour(_ context.Context, t quest.Tour) error {
	w.tours = append(w.tours, t)
	return nil
}

func (w *memWriter) PutPOI(_ context.Context, p quest.POI) error {
	w.pois = append(w.pois, p)
	return nil
}

func TestImport(t *testing.T) {
	w := &memWriter{}
	stats, err := Import(context.Background(), Demo(), w)
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	if stats.Tours != 1 || stats.Scenes != 4 || stats.POIs != 7 {
		t.Errorf("stats = %+v", stats)
	}
	if len(w.pois) != 7 {
		t.Errorf("written pois = %d, want 7", len(w.pois))
	}
}
