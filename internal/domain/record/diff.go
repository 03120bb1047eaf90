package record

import (
	"reflect"
	"sort"
)

// Diff describes how one snapshot differs from another, as dotted paths
// into the payload. Arrays are compared as whole values; an element change
// reports the array's own path as modified.
type Diff struct {
	New      []string `json:"new"`
	Modified []string `json:"modified"`
	Missing  []string `json:"missing"`
}

// Compare walks two payload snapshots and reports paths present only in to
// (new), present only in from (missing), and present in both with different
// values (modified). Object keys are visited in sorted order at every level
// so the same pair of snapshots always produces the same diff.
func Compare(from, to map[string]interface{}) Diff {
	d := Diff{New: []string{}, Modified: []string{}, Missing: []string{}}
	compareObjects(from, to, "", &d)
	return d
}

func compareObjects(from, to map[string]interface{}, prefix string, d *Diff) {
	for _, key := range unionKeys(from, to) {
		path := key
		if prefix != "" {
			path = prefix + "." + key
		}

		fromVal, inFrom := from[key]
		toVal, inTo := to[key]

		switch {
		case !inFrom:
			d.New = append(d.New, path)
		case !inTo:
			d.Missing = append(d.Missing, path)
		default:
			fromObj, fromIsObj := fromVal.(map[string]interface{})
			toObj, toIsObj := toVal.(map[string]interface{})
			if fromIsObj && toIsObj {
				compareObjects(fromObj, toObj, path, d)
				continue
			}
			if !reflect.DeepEqual(fromVal, toVal) {
				d.Modified = append(d.Modified, path)
			}
		}
	}
}

func unionKeys(a, b map[string]interface{}) []string {
	seen := make(map[string]struct{}, len(a)+len(b))
	for k := range a {
		seen[k] = struct{}{}
	}
	for k := range b {
		seen[k] = struct{}{}
	}
	keys := make([]string, 0, len(seen))
	for k := range seen {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func sortedKeys(m map[string]interface{}) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
