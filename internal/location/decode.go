package location

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"math"
)

var errUnexpectedEnd = errors.New("unexpected end of JSON input")

// Decode parses a locations document, validates every record and returns the
// records in display order.
func Decode(b []byte) (Set, error) {
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.UseNumber()

	var root any
	if err := dec.Decode(&root); err != nil {
		if errors.Is(err, io.EOF) {
			err = errUnexpectedEnd
		}
		return nil, &ParseError{Err: err}
	}
	if err := dec.Decode(&struct{}{}); err != io.EOF {
		if err == nil {
			err = errors.New("unexpected extra data after JSON document")
		}
		return nil, &ParseError{Err: err}
	}

	obj, ok := root.(map[string]any)
	if !ok {
		return nil, invalidStructure()
	}
	items, ok := obj["locations"].([]any)
	if !ok {
		return nil, invalidStructure()
	}

	set := make(Set, 0, len(items))
	for i, item := range items {
		rec, err := decodeRecord(i, item)
		if err != nil {
			return nil, err
		}
		set = append(set, rec)
	}

	Sort(set)
	return set, nil
}

func decodeRecord(index int, item any) (Record, error) {
	fields, ok := item.(map[string]any)
	if !ok {
		return Record{}, invalidRecord(index, "record must be an object")
	}

	var rec Record
	switch v := fields["id"].(type) {
	case nil:
	case json.Number:
		f, err := v.Float64()
		if err != nil {
			return Record{}, invalidRecord(index, "id is not a representable number")
		}
		rec.ID = NumberID(f)
	case string:
		rec.ID = StringID(v)
	default:
		return Record{}, invalidRecord(index, "id must be a number or a string")
	}

	switch v := fields["name"].(type) {
	case nil:
	case string:
		rec.Name = v
	default:
		return Record{}, invalidRecord(index, "name must be a string")
	}

	lat, ok := coordinate(fields["latitude"])
	if !ok {
		return Record{}, invalidRecord(index, "latitude and longitude must be numbers")
	}
	lng, ok := coordinate(fields["longitude"])
	if !ok {
		return Record{}, invalidRecord(index, "latitude and longitude must be numbers")
	}
	rec.Latitude = lat
	rec.Longitude = lng

	return rec, nil
}

func coordinate(v any) (float64, bool) {
	n, ok := v.(json.Number)
	if !ok {
		return 0, false
	}
	f, err := n.Float64()
	if err != nil || math.IsInf(f, 0) || math.IsNaN(f) {
		return 0, false
	}
	return f, true
}
