package location

import (
	"encoding/json"
	"math"
	"strconv"
)

// ID is the optional identifier of a record. Input documents carry it either as
// a JSON number or as a JSON string; its JSON kind is kept so it can be
// echoed back unchanged.
type ID struct {
	text    string
	number  bool
	present bool
}

func NumberID(v float64) ID {
	return ID{text: formatNumber(v), number: true, present: true}
}

func StringID(s string) ID {
	return ID{text: s, present: true}
}

func (id ID) Present() bool  { return id.present }
func (id ID) IsNumber() bool { return id.number }

// String returns the display form of the id, or "" when absent.
func (id ID) String() string {
	return id.text
}

// Truthy reports whether the id would be used as a marker label: absent, empty
// and zero ids fall back to the record's position.
func (id ID) Truthy() bool {
	if !id.present || id.text == "" {
		return false
	}
	if id.number {
		f, err := strconv.ParseFloat(id.text, 64)
		return err == nil && f != 0 && !math.IsNaN(f)
	}
	return true
}

func (id ID) MarshalJSON() ([]byte, error) {
	if !id.present {
		return []byte("null"), nil
	}
	if id.number {
		return []byte(id.text), nil
	}
	return json.Marshal(id.text)
}

type Record struct {
	ID        ID      `json:"id"`
	Name      string  `json:"name,omitempty"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// Set is the ordered result of a load. It is not mutated after the loader
// hands it over.
type Set []Record

func (s Set) Len() int { return len(s) }

func formatNumber(v float64) string {
	abs := math.Abs(v)
	if abs != 0 && (abs >= 1e21 || abs < 1e-6) {
		return strconv.FormatFloat(v, 'g', -1, 64)
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}
