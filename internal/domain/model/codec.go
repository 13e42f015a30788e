package model

import (
	"fmt"

	"github.com/go-viper/mapstructure/v2"
)

// decode maps a store document onto out. Weak typing lets JSON-backed
// stores hand back float64 counters and []any genres.
func decode(doc map[string]any, out any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:          "json",
		WeaklyTypedInput: true,
		Result:           out,
	})
	if err != nil {
		return err
	}
	return dec.Decode(doc)
}

// DecodeProfile builds a Profile from a store document.
func DecodeProfile(doc map[string]any) (Profile, error) {
	var p Profile
	if err := decode(doc, &p); err != nil {
		return Profile{}, fmt.Errorf("decode profile: %w", err)
	}
	return p, nil
}

// DecodeTrack builds a Track from a store document and its identifier.
// Store-side fields such as the owner are ignored.
func DecodeTrack(id string, doc map[string]any) (Track, error) {
	var t NewTrack
	if err := decode(doc, &t); err != nil {
		return Track{}, fmt.Errorf("decode track %s: %w", id, err)
	}
	return t.WithID(id), nil
}
