// Package catalog reads tour catalogs from YAML files. A parsed file serves
// as a read-only quest.Catalog and can be imported into the SQL catalog.
package catalog

import (
	"bytes"
	"context"
	_ "embed"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/playperu/vrquest/internal/quest"
)

//go:embed demo.yaml
var demoYAML []byte

type fileDoc struct {
	Version int       `yaml:"version"`
	Tours   []tourDoc `yaml:"tours"`
}

type tourDoc struct {
	ID               string     `yaml:"id"`
	Name             string     `yaml:"name"`
	City             string     `yaml:"city"`
	Description      string     `yaml:"description"`
	CoverImage       string     `yaml:"cover_image"`
	Active           *bool      `yaml:"active"`
	CompetitionStart *time.Time `yaml:"competition_start"`
	CompetitionEnd   *time.Time `yaml:"competition_end"`
	Scenes           []sceneDoc `yaml:"scenes"`
	POIs             []poiDoc   `yaml:"pois"`
}

type sceneDoc struct {
	ID          string `yaml:"id"`
	Title       string `yaml:"title"`
	Description string `yaml:"description"`
	Panorama    string `yaml:"panorama"`
}

type poiDoc struct {
	ID          string      `yaml:"id"`
	Scene       string      `yaml:"scene"`
	Title       string      `yaml:"title"`
	Description string      `yaml:"description"`
	Kind        string      `yaml:"kind"`
	Points      int         `yaml:"points"`
	Order       int         `yaml:"order"`
	Active      *bool       `yaml:"active"`
	Day         string      `yaml:"day"`
	NextScene   string      `yaml:"next_scene"`
	Position    positionDoc `yaml:"position"`
	Content     ContentDoc  `yaml:"content"`
}

type positionDoc struct {
	Pitch float64 `yaml:"pitch"`
	Yaw   float64 `yaml:"yaw"`
}

// Catalog is an in-memory catalog parsed from YAML.
type Catalog struct {
	tours []quest.Tour
	pois  map[string][]quest.POI
}

var _ quest.Catalog = (*Catalog)(nil)

// LoadFile parses the catalog at path.
func LoadFile(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("loading catalog: %w", err)
	}
	c, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("loading catalog %s: %w", path, err)
	}
	return c, nil
}

// Demo returns the built-in office tour.
func Demo() *Catalog {
	c, err := Parse(demoYAML)
	if err != nil {
		panic(fmt.Sprintf("embedded demo catalog: %v", err))
	}
	return c
}

func Parse(data []byte) (*Catalog, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var doc fileDoc
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("parsing yaml: %w", err)
	}
	if doc.Version != 1 {
		return nil, fmt.Errorf("unsupported version: %d", doc.Version)
	}
	if len(doc.Tours) == 0 {
		return nil, fmt.Errorf("at least one tour is required")
	}

	c := &Catalog{pois: make(map[string][]quest.POI)}
	tourIDs := make(map[string]struct{})
	poiIDs := make(map[string]struct{})

	for i, td := range doc.Tours {
		t, err := td.tour()
		if err != nil {
			return nil, fmt.Errorf("tour %d: %w", i, err)
		}
		if _, dup := tourIDs[t.ID]; dup {
			return nil, fmt.Errorf("duplicate tour id: %s", t.ID)
		}
		tourIDs[t.ID] = struct{}{}

		pois := make([]quest.POI, 0, len(td.POIs))
		for j, pd := range td.POIs {
			p, err := pd.poi(t)
			if err != nil {
				return nil, fmt.Errorf("tour %s poi %d: %w", t.ID, j, err)
			}
			if _, dup := poiIDs[p.ID]; dup {
				return nil, fmt.Errorf("duplicate poi id: %s", p.ID)
			}
			poiIDs[p.ID] = struct{}{}
			pois = append(pois, p)
		}
		quest.SortPOIs(pois)

		c.tours = append(c.tours, t)
		c.pois[t.ID] = pois
	}
	return c, nil
}

func (td tourDoc) tour() (quest.Tour, error) {
	if strings.TrimSpace(td.ID) == "" {
		return quest.Tour{}, fmt.Errorf("id is required")
	}
	if strings.TrimSpace(td.Name) == "" {
		return quest.Tour{}, fmt.Errorf("name is required")
	}
	if len(td.Scenes) == 0 {
		return quest.Tour{}, fmt.Errorf("at least one scene is required")
	}
	if td.CompetitionStart != nil && td.CompetitionEnd != nil && td.CompetitionEnd.Before(*td.CompetitionStart) {
		return quest.Tour{}, fmt.Errorf("competition ends before it starts")
	}

	t := quest.Tour{
		ID:               td.ID,
		Name:             td.Name,
		City:             td.City,
		Description:      td.Description,
		CoverImage:       td.CoverImage,
		Active:           td.Active == nil || *td.Active,
		CompetitionStart: td.CompetitionStart,
		CompetitionEnd:   td.CompetitionEnd,
	}
	seen := make(map[string]struct{})
	for i, sd := range td.Scenes {
		if strings.TrimSpace(sd.ID) == "" {
			return quest.Tour{}, fmt.Errorf("scene %d id is required", i)
		}
		if _, dup := seen[sd.ID]; dup {
			return quest.Tour{}, fmt.Errorf("duplicate scene id: %s", sd.ID)
		}
		seen[sd.ID] = struct{}{}
		t.Scenes = append(t.Scenes, quest.Scene{
			ID:          sd.ID,
			Title:       sd.Title,
			Description: sd.Description,
			Panorama:    sd.Panorama,
		})
	}
	return t, nil
}

func (pd poiDoc) poi(t quest.Tour) (quest.POI, error) {
	if strings.TrimSpace(pd.ID) == "" {
		return quest.POI{}, fmt.Errorf("id is required")
	}
	if _, ok := t.Scene(pd.Scene); !ok {
		return quest.POI{}, fmt.Errorf("poi %s: unknown scene %q", pd.ID, pd.Scene)
	}
	if pd.NextScene != "" {
		if _, ok := t.Scene(pd.NextScene); !ok {
			return quest.POI{}, fmt.Errorf("poi %s: unknown next scene %q", pd.ID, pd.NextScene)
		}
	}
	if pd.Points < 0 {
		return quest.POI{}, fmt.Errorf("poi %s: points must not be negative", pd.ID)
	}
	if pd.Position.Pitch < -90 || pd.Position.Pitch > 90 {
		return quest.POI{}, fmt.Errorf("poi %s: pitch %v out of range", pd.ID, pd.Position.Pitch)
	}
	if pd.Position.Yaw < -180 || pd.Position.Yaw >= 360 {
		return quest.POI{}, fmt.Errorf("poi %s: yaw %v out of range", pd.ID, pd.Position.Yaw)
	}
	if pd.Day != "" {
		if _, err := time.Parse(quest.DayLayout, pd.Day); err != nil {
			return quest.POI{}, fmt.Errorf("poi %s: day %q is not YYYY-MM-DD", pd.ID, pd.Day)
		}
	}

	kind, err := quest.ParseKind(pd.Kind)
	if err != nil {
		return quest.POI{}, fmt.Errorf("poi %s: %w", pd.ID, err)
	}
	content, err := pd.Content.Decode(kind)
	if err != nil {
		return quest.POI{}, fmt.Errorf("poi %s: %w", pd.ID, err)
	}

	p := quest.POI{
		ID:          pd.ID,
		TourID:      t.ID,
		SceneID:     pd.Scene,
		Title:       pd.Title,
		Description: pd.Description,
		Order:       pd.Order,
		Position:    quest.Position{Pitch: pd.Position.Pitch, Yaw: pd.Position.Yaw},
		Content:     content,
		Points:      pd.Points,
		Active:      pd.Active == nil || *pd.Active,
		Day:         pd.Day,
		NextScene:   pd.NextScene,
	}
	if err := quest.ValidateContent(p); err != nil {
		return quest.POI{}, fmt.Errorf("poi %s: %w", pd.ID, err)
	}
	return p, nil
}

func (c *Catalog) ListTours(context.Context) ([]quest.Tour, error) {
	return append([]quest.Tour(nil), c.tours...), nil
}

func (c *Catalog) Tour(_ context.Context, tourID string) (quest.Tour, error) {
	for _, t := range c.tours {
		if t.ID == tourID {
			return t, nil
		}
	}
	return quest.Tour{}, fmt.Errorf("tour %q: %w", tourID, quest.ErrNotFound)
}

func (c *Catalog) ListScenes(ctx context.Context, tourID string) ([]quest.Scene, error) {
	t, err := c.Tour(ctx, tourID)
	if err != nil {
		return nil, err
	}
	return t.Scenes, nil
}

func (c *Catalog) ListPOIs(_ context.Context, tourID string, day time.Time) ([]quest.POI, error) {
	var out []quest.POI
	for _, p := range c.pois[tourID] {
		if p.OnDay(day) {
			out = append(out, p)
		}
	}
	return out, nil
}
