package locator

import "github.com/nao1215/pubchemscan/internal/model"

// Find returns the index of the first section whose TOCHeading equals label.
// It returns (-1, false) when no section matches.
func Find(sections []model.Section, label string) (int, bool) {
	for i := range sections {
		if sections[i].TOCHeading == label {
			return i, true
		}
	}
	return -1, false
}

// Lookup returns a pointer to the first section labeled label.
func Lookup(sections []model.Section, label string) (*model.Section, bool) {
	i, ok := Find(sections, label)
	if !ok {
		return nil, false
	}
	return &sections[i], true
}

// At returns the section at position i, or false when i is out of range.
func At(sections []model.Section, i int) (*model.Section, bool) {
	if i < 0 || i >= len(sections) {
		return nil, false
	}
	return &sections[i], true
}

// Path descends one label per level, starting from sections.
// An empty path reports false.
func Path(sections []model.Section, labels ...string) (*model.Section, bool) {
	if len(labels) == 0 {
		return nil, false
	}

	var cur *model.Section
	level := sections
	for _, label := range labels {
		s, ok := Lookup(level, label)
		if !ok {
			return nil, false
		}
		cur = s
		level = s.Section
	}
	return cur, true
}

// Labels returns the TOCHeading of every section in order.
func Labels(sections []model.Section) []string {
	out := make([]string, len(sections))
	for i := range sections {
		out[i] = sections[i].TOCHeading
	}
	return out
}
