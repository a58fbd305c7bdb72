// Package geofence decides whether a coordinate falls inside the marketplace's
// service area. The area is a fixed list of rectangular bounding boxes; a point
// on a box edge counts as inside.
package geofence

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Coordinate is a WGS84 latitude/longitude pair.
type Coordinate struct {
	Lat float64 `json:"lat" yaml:"lat"`
	Lng float64 `json:"lng" yaml:"lng"`
}

// Area is a named bounding box.
type Area struct {
	Name   string  `json:"name" yaml:"name"`
	MinLat float64 `json:"minLat" yaml:"min_lat"`
	MaxLat float64 `json:"maxLat" yaml:"max_lat"`
	MinLng float64 `json:"minLng" yaml:"min_lng"`
	MaxLng float64 `json:"maxLng" yaml:"max_lng"`
}

// Contains reports whether c lies inside a, bounds inclusive.
func (a Area) Contains(c Coordinate) bool {
	return c.Lat >= a.MinLat && c.Lat <= a.MaxLat &&
		c.Lng >= a.MinLng && c.Lng <= a.MaxLng
}

func (a Area) validate() error {
	switch {
	case a.Name == "":
		return fmt.Errorf("area name is required")
	case a.MinLat > a.MaxLat:
		return fmt.Errorf("area %q: min_lat %v > max_lat %v", a.Name, a.MinLat, a.MaxLat)
	case a.MinLng > a.MaxLng:
		return fmt.Errorf("area %q: min_lng %v > max_lng %v", a.Name, a.MinLng, a.MaxLng)
	case a.MinLat < -90 || a.MaxLat > 90:
		return fmt.Errorf("area %q: latitude out of range", a.Name)
	case a.MinLng < -180 || a.MaxLng > 180:
		return fmt.Errorf("area %q: longitude out of range", a.Name)
	}
	return nil
}

// DefaultAreas is the launch service area: the five boroughs plus the
// neighbouring counties served from them.
func DefaultAreas() []Area {
	return []Area{
		{Name: "Manhattan", MinLat: 40.6995, MaxLat: 40.8820, MinLng: -74.0200, MaxLng: -73.9067},
		{Name: "Brooklyn", MinLat: 40.5707, MaxLat: 40.7395, MinLng: -74.0420, MaxLng: -73.8334},
		{Name: "Queens", MinLat: 40.5417, MaxLat: 40.8007, MinLng: -73.9626, MaxLng: -73.7004},
		{Name: "Bronx", MinLat: 40.7855, MaxLat: 40.9153, MinLng: -73.9339, MaxLng: -73.7654},
		{Name: "Staten Island", MinLat: 40.4960, MaxLat: 40.6490, MinLng: -74.2557, MaxLng: -74.0522},
		{Name: "Nassau County", MinLat: 40.5429, MaxLat: 40.9156, MinLng: -73.7654, MaxLng: -73.4238},
		{Name: "Westchester County", MinLat: 40.8826, MaxLat: 41.3669, MinLng: -73.9826, MaxLng: -73.4838},
		{Name: "Hudson County", MinLat: 40.6617, MaxLat: 40.8232, MinLng: -74.1658, MaxLng: -74.0232},
	}
}

// Validator holds an immutable list of areas and is safe for concurrent use.
type Validator struct {
	areas []Area
}

// New returns a Validator over areas. An empty list falls back to DefaultAreas.
func New(areas []Area) (*Validator, error) {
	if len(areas) == 0 {
		areas = DefaultAreas()
	}
	for _, a := range areas {
		if err := a.validate(); err != nil {
			return nil, err
		}
	}
	cp := make([]Area, len(areas))
	copy(cp, areas)
	return &Validator{areas: cp}, nil
}

// IsWithinServiceArea returns true when c falls inside any configured area.
func (v *Validator) IsWithinServiceArea(c Coordinate) bool {
	_, ok := v.AreaFor(c)
	return ok
}

// AreaFor returns the first area containing c.
func (v *Validator) AreaFor(c Coordinate) (Area, bool) {
	for _, a := range v.areas {
		if a.Contains(c) {
			return a, true
		}
	}
	return Area{}, false
}

// Areas returns a copy of the configured areas.
func (v *Validator) Areas() []Area {
	out := make([]Area, len(v.areas))
	copy(out, v.areas)
	return out
}

type areaFile struct {
	Areas []Area `yaml:"areas"`
}

// LoadAreas reads a YAML document of the form
//
//	areas:
//	  - name: Manhattan
//	    min_lat: 40.6995
//	    max_lat: 40.8820
//	    min_lng: -74.0200
//	    max_lng: -73.9067
func LoadAreas(path string) ([]Area, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read service areas: %w", err)
	}
	return ParseAreas(data)
}

// ParseAreas decodes the YAML form accepted by LoadAreas.
func ParseAreas(data []byte) ([]Area, error) {
	var f areaFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse service areas: %w", err)
	}
	if len(f.Areas) == 0 {
		return nil, fmt.Errorf("service areas file defines no areas")
	}
	for _, a := range f.Areas {
		if err := a.validate(); err != nil {
			return nil, err
		}
	}
	return f.Areas, nil
}
