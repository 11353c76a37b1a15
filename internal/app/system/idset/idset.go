// internal/app/system/idset/idset.go

// Package idset treats []string id lists as ordered sets. Every function
// returns a new slice and drops blank ids.
package idset

// Compact drops blanks and duplicates, keeping first-seen order.
func Compact(ids []string) []string {
	out := make([]string, 0, len(ids))
	seen := make(map[string]bool, len(ids))
	for _, id := range ids {
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}

// Contains reports whether id is in ids.
func Contains(ids []string, id string) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}

// Add appends id if it is not already present.
func Add(ids []string, id string) []string {
	out := Compact(ids)
	if id == "" || Contains(out, id) {
		return out
	}
	return append(out, id)
}

// Remove drops every occurrence of id.
func Remove(ids []string, id string) []string {
	out := make([]string, 0, len(ids))
	for _, v := range Compact(ids) {
		if v != id {
			out = append(out, v)
		}
	}
	return out
}

// Replace swaps old for repl, then dedupes.
func Replace(ids []string, old, repl string) []string {
	out := make([]string, 0, len(ids))
	for _, v := range ids {
		if v == old {
			v = repl
		}
		out = append(out, v)
	}
	return Compact(out)
}

// Union concatenates the lists and dedupes.
func Union(lists ...[]string) []string {
	var all []string
	for _, l := range lists {
		all = append(all, l...)
	}
	return Compact(all)
}

// Equal reports whether a and b hold the same ids in the same order.
func Equal(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
