// Package viewmodel derives the render-ready summary of a location set: map
// center, marker labels and popups, and the connecting path.
package viewmodel

import (
	"errors"
	"strconv"

	"github.com/golang/geo/s2"

	"location_viewer/core-go/internal/location"
)

const earthRadiusMeters = 6371008.8

// ErrNoLocations is returned for an empty set, which has no center.
var ErrNoLocations = errors.New("no locations")

// LatLng is a [latitude, longitude] pair in degrees, the shape Leaflet expects.
type LatLng [2]float64

func (p LatLng) Lat() float64 { return p[0] }
func (p LatLng) Lng() float64 { return p[1] }

type Marker struct {
	Position    LatLng `json:"position"`
	Label       string `json:"label"`
	Title       string `json:"title"`
	ID          string `json:"id"`
	Coordinates string `json:"coordinates"`
}

type Bounds struct {
	SouthWest LatLng `json:"south_west"`
	NorthEast LatLng `json:"north_east"`
}

type ViewModel struct {
	Center      LatLng   `json:"center"`
	Markers     []Marker `json:"markers"`
	Path        []LatLng `json:"path"`
	ShowPath    bool     `json:"show_path"`
	Count       int      `json:"count"`
	Bounds      Bounds   `json:"bounds"`
	PathLengthM float64  `json:"path_length_m"`
}

// Build computes the view model for a sorted, non-empty set.
func Build(set location.Set) (ViewModel, error) {
	center, err := Center(set)
	if err != nil {
		return ViewModel{}, err
	}

	path := Path(set)
	markers := make([]Marker, 0, len(set))
	for i, rec := range set {
		markers = append(markers, markerFor(i, rec))
	}

	return ViewModel{
		Center:      center,
		Markers:     markers,
		Path:        path,
		ShowPath:    len(path) >= 2,
		Count:       len(set),
		Bounds:      boundsOf(path),
		PathLengthM: PathLength(path),
	}, nil
}

// Center is the unweighted arithmetic mean of all coordinates.
func Center(set location.Set) (LatLng, error) {
	if len(set) == 0 {
		return LatLng{}, ErrNoLocations
	}
	var sumLat, sumLng float64
	for _, rec := range set {
		sumLat += rec.Latitude
		sumLng += rec.Longitude
	}
	n := float64(len(set))
	return LatLng{sumLat / n, sumLng / n}, nil
}

func Path(set location.Set) []LatLng {
	out := make([]LatLng, 0, len(set))
	for _, rec := range set {
		out = append(out, LatLng{rec.Latitude, rec.Longitude})
	}
	return out
}

// PathLength is the great-circle length of the path in meters.
func PathLength(path []LatLng) float64 {
	var total float64
	for i := 1; i < len(path); i++ {
		a := s2.LatLngFromDegrees(path[i-1].Lat(), path[i-1].Lng())
		b := s2.LatLngFromDegrees(path[i].Lat(), path[i].Lng())
		total += a.Distance(b).Radians() * earthRadiusMeters
	}
	return total
}

func boundsOf(path []LatLng) Bounds {
	if len(path) == 0 {
		return Bounds{}
	}
	rect := s2.RectFromLatLng(s2.LatLngFromDegrees(path[0].Lat(), path[0].Lng()))
	for _, p := range path[1:] {
		rect = rect.AddPoint(s2.LatLngFromDegrees(p.Lat(), p.Lng()))
	}
	lo, hi := rect.Lo(), rect.Hi()
	return Bounds{
		SouthWest: LatLng{lo.Lat.Degrees(), lo.Lng.Degrees()},
		NorthEast: LatLng{hi.Lat.Degrees(), hi.Lng.Degrees()},
	}
}

func markerFor(index int, rec location.Record) Marker {
	label := strconv.Itoa(index + 1)
	if rec.ID.Truthy() {
		label = rec.ID.String()
	}

	title := rec.Name
	if title == "" {
		title = "Location " + label
	}

	id := "N/A"
	if rec.ID.Present() {
		id = rec.ID.String()
	}

	return Marker{
		Position:    LatLng{rec.Latitude, rec.Longitude},
		Label:       label,
		Title:       title,
		ID:          id,
		Coordinates: FormatCoordinate(rec.Latitude) + ", " + FormatCoordinate(rec.Longitude),
	}
}

// FormatCoordinate renders a degree value with six decimal places.
func FormatCoordinate(v float64) string {
	return strconv.FormatFloat(v, 'f', 6, 64)
}
