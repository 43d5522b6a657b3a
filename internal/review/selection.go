package review

// Selection is an ordered set of feature ids. The zero value is an empty
// selection; all operations return a new slice and never share backing
// storage with the input.
type Selection []string

// Contains reports membership of id in the selection.
func (s Selection) Contains(id string) bool {
	for _, existing := range s {
		if existing == id {
			return true
		}
	}
	return false
}

// Toggle applies the click semantics of the review screen. A plain click
// replaces the whole selection with id, or clears it when id is already the
// sole selected feature. A multi click (shift) toggles membership of id and
// leaves the rest of the set untouched.
func (s Selection) Toggle(id string, multi bool) Selection {
	if !multi {
		if len(s) == 1 && s[0] == id {
			return Selection{}
		}
		return Selection{id}
	}
	if s.Contains(id) {
		next := make(Selection, 0, len(s)-1)
		for _, existing := range s {
			if existing != id {
				next = append(next, existing)
			}
		}
		return next
	}
	next := make(Selection, 0, len(s)+1)
	next = append(next, s...)
	return append(next, id)
}
