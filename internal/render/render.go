// Package render turns a viewer state into the HTML page that drives Leaflet
// in the browser.
package render

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"io"
	"strings"

	"location_viewer/core-go/internal/viewer"
	"location_viewer/core-go/internal/viewmodel"
)

//go:embed templates/*.tmpl
var templateFS embed.FS

const (
	MarkerNumbered = "numbered"
	MarkerPin      = "pin"

	DefaultZoom        = 13
	DefaultTileURL     = "https://{s}.tile.openstreetmap.org/{z}/{x}/{y}.png"
	DefaultAttribution = `&copy; <a href="https://www.openstreetmap.org/copyright">OpenStreetMap</a> contributors`

	leafletCDN = "https://cdnjs.cloudflare.com/ajax/libs/leaflet/1.9.4"
)

// IconConfig is handed once to the page's marker icon factory. Field names
// follow Leaflet's icon options.
type IconConfig struct {
	IconURL       string `json:"iconUrl" yaml:"icon_url"`
	IconRetinaURL string `json:"iconRetinaUrl" yaml:"icon_retina_url"`
	ShadowURL     string `json:"shadowUrl" yaml:"shadow_url"`
	IconSize      [2]int `json:"iconSize" yaml:"-"`
	IconAnchor    [2]int `json:"iconAnchor" yaml:"-"`
	PopupAnchor   [2]int `json:"popupAnchor" yaml:"-"`
	ShadowSize    [2]int `json:"shadowSize" yaml:"-"`
}

// DefaultIcon points at the Leaflet 1.9.4 marker assets on cdnjs.
func DefaultIcon() IconConfig {
	return IconConfig{
		IconURL:       leafletCDN + "/images/marker-icon.png",
		IconRetinaURL: leafletCDN + "/images/marker-icon-2x.png",
		ShadowURL:     leafletCDN + "/images/marker-shadow.png",
		IconSize:      [2]int{25, 41},
		IconAnchor:    [2]int{12, 41},
		PopupAnchor:   [2]int{1, -34},
		ShadowSize:    [2]int{41, 41},
	}
}

type PathStyle struct {
	Color   string  `json:"color" yaml:"color"`
	Weight  int     `json:"weight" yaml:"weight"`
	Opacity float64 `json:"opacity" yaml:"opacity"`
}

func DefaultPathStyle() PathStyle {
	return PathStyle{Color: "#667eea", Weight: 4, Opacity: 0.8}
}

type Options struct {
	Zoom        int
	FitBounds   bool
	TileURL     string
	Attribution string
	MarkerStyle string
	Icon        IconConfig
	Path        PathStyle
}

type Renderer struct {
	tmpl *template.Template
	opts Options
}

func New(opts Options) (*Renderer, error) {
	if opts.Zoom <= 0 {
		opts.Zoom = DefaultZoom
	}
	if strings.TrimSpace(opts.TileURL) == "" {
		opts.TileURL = DefaultTileURL
	}
	if opts.Attribution == "" {
		opts.Attribution = DefaultAttribution
	}
	switch opts.MarkerStyle = strings.ToLower(strings.TrimSpace(opts.MarkerStyle)); opts.MarkerStyle {
	case "":
		opts.MarkerStyle = MarkerNumbered
	case MarkerNumbered, MarkerPin:
	default:
		return nil, fmt.Errorf("unknown marker style %q", opts.MarkerStyle)
	}
	def := DefaultIcon()
	if opts.Icon.IconURL == "" {
		opts.Icon.IconURL = def.IconURL
	}
	if opts.Icon.IconRetinaURL == "" {
		opts.Icon.IconRetinaURL = def.IconRetinaURL
	}
	if opts.Icon.ShadowURL == "" {
		opts.Icon.ShadowURL = def.ShadowURL
	}
	if opts.Icon.IconSize == [2]int{} {
		opts.Icon.IconSize = def.IconSize
		opts.Icon.IconAnchor = def.IconAnchor
		opts.Icon.PopupAnchor = def.PopupAnchor
		opts.Icon.ShadowSize = def.ShadowSize
	}
	if opts.Path == (PathStyle{}) {
		opts.Path = DefaultPathStyle()
	}

	tmpl, err := template.ParseFS(templateFS, "templates/page.html.tmpl")
	if err != nil {
		return nil, fmt.Errorf("parse page template: %w", err)
	}
	return &Renderer{tmpl: tmpl, opts: opts}, nil
}

type mapConfig struct {
	View        *viewmodel.ViewModel `json:"view"`
	Zoom        int                  `json:"zoom"`
	FitBounds   bool                 `json:"fit_bounds"`
	TileURL     string               `json:"tile_url"`
	Attribution string               `json:"attribution"`
	MarkerStyle string               `json:"marker_style"`
	Icon        IconConfig           `json:"icon"`
	Path        PathStyle            `json:"path"`
}

type page struct {
	Status     string
	Error      string
	Count      int
	PathLength string
	LeafletCSS string
	LeafletJS  string
	Map        mapConfig
}

// Render writes the page for st. The whole page is rendered before anything is
// written to w.
func (r *Renderer) Render(w io.Writer, st viewer.State) error {
	p := page{
		Status:     string(st.Status),
		Error:      st.Err,
		LeafletCSS: leafletCDN + "/leaflet.css",
		LeafletJS:  leafletCDN + "/leaflet.js",
	}
	if st.Status == viewer.StatusReady && st.View != nil {
		p.Count = st.View.Count
		if st.View.ShowPath {
			p.PathLength = formatDistance(st.View.PathLengthM)
		}
		p.Map = mapConfig{
			View:        st.View,
			Zoom:        r.opts.Zoom,
			FitBounds:   r.opts.FitBounds,
			TileURL:     r.opts.TileURL,
			Attribution: r.opts.Attribution,
			MarkerStyle: r.opts.MarkerStyle,
			Icon:        r.opts.Icon,
			Path:        r.opts.Path,
		}
	} else if st.Status == viewer.StatusReady {
		p.Status = string(viewer.StatusEmpty)
	}

	var buf bytes.Buffer
	if err := r.tmpl.ExecuteTemplate(&buf, "page", p); err != nil {
		return fmt.Errorf("render page: %w", err)
	}
	_, err := buf.WriteTo(w)
	return err
}

func formatDistance(meters float64) string {
	if meters < 1000 {
		return fmt.Sprintf("%.0f m", meters)
	}
	return fmt.Sprintf("%.2f km", meters/1000)
}
