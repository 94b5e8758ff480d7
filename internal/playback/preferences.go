package playback

import (
	"context"
	"strconv"
)

// Preference keys.
const (
	PrefShuffle = "shuffle"
	PrefRepeat  = "repeat"
)

// PreferenceStore persists simple string settings. Get returns "" for a
// missing key.
type PreferenceStore interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
}

// Preferences are the saved playback-order choices.
type Preferences struct {
	Shuffle bool
	Repeat  RepeatMode
}

// LoadPreferences reads saved preferences. Missing or invalid values, and
// read errors, fall back to shuffle off and repeat off.
func LoadPreferences(ctx context.Context, store PreferenceStore) Preferences {
	var p Preferences
	if store == nil {
		return p
	}

	if v, err := store.Get(ctx, PrefShuffle); err == nil {
		if b, err := strconv.ParseBool(v); err == nil {
			p.Shuffle = b
		}
	}
	if v, err := store.Get(ctx, PrefRepeat); err == nil {
		if m, ok := ParseRepeatMode(v); ok {
			p.Repeat = m
		}
	}
	return p
}
