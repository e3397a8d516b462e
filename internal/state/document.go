package state

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"time"
)

// RawEntry is an entry as decoded from JSON, before it is trusted.
type RawEntry map[string]any

// ValidateEntryShape reports whether raw has the fields every entry needs:
// string date and activityId, a known source, boolean done, numeric
// updatedAt, and a numeric roll when the source is "roll".
func ValidateEntryShape(raw RawEntry) bool {
	if raw == nil {
		return false
	}
	if _, ok := raw["date"].(string); !ok {
		return false
	}
	if _, ok := raw["activityId"].(string); !ok {
		return false
	}
	src, _ := raw["source"].(string)
	switch Source(src) {
	case SourceRoll:
		if _, ok := raw["roll"].(float64); !ok {
			return false
		}
	case SourceManual:
	default:
		return false
	}
	if _, ok := raw["done"].(bool); !ok {
		return false
	}
	_, ok := raw["updatedAt"].(float64)
	return ok
}

// MigrateLegacy upgrades records written before source and updatedAt
// existed. A missing source becomes "roll" when a numeric roll is present
// and "manual" otherwise; a missing updatedAt is stamped with now. The
// returned flag is false, and raw is returned untouched, when nothing was
// missing.
func MigrateLegacy(raw RawEntry, now time.Time) (RawEntry, bool) {
	if raw == nil {
		return raw, false
	}
	src, hasSource := raw["source"]
	needSource := !hasSource || src == nil || src == ""
	_, hasStamp := raw["updatedAt"].(float64)
	if !needSource && hasStamp {
		return raw, false
	}

	out := make(RawEntry, len(raw)+2)
	for k, v := range raw {
		out[k] = v
	}
	if needSource {
		if _, ok := raw["roll"].(float64); ok {
			out["source"] = string(SourceRoll)
		} else {
			out["source"] = string(SourceManual)
		}
	}
	if !hasStamp {
		out["updatedAt"] = float64(now.UnixMilli())
	}
	return out, true
}

// entryFromRaw converts a record that passed ValidateEntryShape. Optional
// fields of the wrong type are treated as absent.
func entryFromRaw(raw RawEntry) DailyEntry {
	e := DailyEntry{
		Date:       raw["date"].(string),
		ActivityID: raw["activityId"].(string),
		Done:       raw["done"].(bool),
		UpdatedAt:  boundedInt(raw["updatedAt"].(float64), math.MinInt64, math.MaxInt64),
		source:     Source(raw["source"].(string)),
	}
	if e.source == SourceRoll {
		e.roll = int(boundedInt(math.Round(raw["roll"].(float64)), math.MinInt32, math.MaxInt32))
	}
	if v, ok := raw["minutes"].(float64); ok {
		m := int(boundedInt(math.Round(v), 0, maxMinutes))
		e.Minutes = &m
	}
	if v, ok := raw["km"].(float64); ok {
		e.Km = clampKm(&v)
	}
	if v, ok := raw["note"].(string); ok {
		e.Note = v
	}
	return e
}

// DocumentError means the document as a whole is unusable: not JSON, the
// wrong version, or entriesByDate is not an object.
type DocumentError struct {
	Reason string
	Err    error
}

func (e *DocumentError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("corrupt document: %s: %v", e.Reason, e.Err)
	}
	return "corrupt document: " + e.Reason
}

func (e *DocumentError) Unwrap() error { return e.Err }

// Report lists the date keys ParseDocument dropped or rewrote.
type Report struct {
	Dropped  []string
	Migrated []string
}

// NeedsRewrite reports whether the cleaned state differs from the stored
// bytes in a way worth persisting.
func (r Report) NeedsRewrite() bool { return len(r.Migrated) > 0 }

// ParseDocument decodes a persisted or imported document. Every entry is
// migrated, then validated; entries that still fail are dropped and listed
// in the report. An entry whose date field disagrees with its key is
// re-keyed to the key and counted as migrated.
func ParseDocument(data []byte, now time.Time) (AppState, Report, error) {
	var doc map[string]any
	if err := json.Unmarshal(data, &doc); err != nil {
		return AppState{}, Report{}, &DocumentError{Reason: "unparsable", Err: err}
	}
	if v, ok := doc["version"].(float64); !ok || v != Version {
		return AppState{}, Report{}, &DocumentError{Reason: fmt.Sprintf("unsupported version %v", doc["version"])}
	}
	rawEntries, ok := doc["entriesByDate"].(map[string]any)
	if !ok {
		return AppState{}, Report{}, &DocumentError{Reason: "entriesByDate is not an object"}
	}

	keys := make([]string, 0, len(rawEntries))
	for k := range rawEntries {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var rep Report
	st := Empty()
	for _, key := range keys {
		obj, ok := rawEntries[key].(map[string]any)
		if !ok {
			rep.Dropped = append(rep.Dropped, key)
			continue
		}
		candidate, migrated := MigrateLegacy(RawEntry(obj), now)
		if !ValidateEntryShape(candidate) {
			rep.Dropped = append(rep.Dropped, key)
			continue
		}
		e := entryFromRaw(candidate)
		if e.Date != key {
			e.Date = key
			migrated = true
		}
		if migrated {
			rep.Migrated = append(rep.Migrated, key)
		}
		st.EntriesByDate[key] = e
	}
	return st, rep, nil
}

// boundedInt converts v to an integer in [lo, hi]. Float to int conversion
// of out-of-range values is implementation-defined, so clamp first.
func boundedInt(v float64, lo, hi int64) int64 {
	switch {
	case math.IsNaN(v), v <= float64(lo):
		return lo
	case v >= float64(hi):
		return hi
	}
	return int64(v)
}
