package locator

import (
	"strconv"
	"strings"
)

// RouteKind classifies a locator against the two route shapes.
type RouteKind int

const (
	// NoMatch means the path matches neither shape. Not an error.
	NoMatch RouteKind = iota
	// Collection is the bare model path.
	Collection
	// SingleRow is the model path followed by a numeric row id.
	SingleRow
)

// String returns the route name.
func (k RouteKind) String() string {
	switch k {
	case NoMatch:
		return "no_match"
	case Collection:
		return "collection"
	case SingleRow:
		return "single_row"
	default:
		return "route(" + strconv.Itoa(int(k)) + ")"
	}
}

// Classify matches the locator path against "<model>" and "<model>/<digits>".
func Classify(l Locator) RouteKind {
	if l.Model == "" {
		return NoMatch
	}
	if l.Path == l.Model {
		return Collection
	}

	rest, ok := strings.CutPrefix(l.Path, l.Model+"/")
	if !ok || rest == "" {
		return NoMatch
	}
	for _, r := range rest {
		if r < '0' || r > '9' {
			return NoMatch
		}
	}
	if _, err := strconv.ParseInt(rest, 10, 64); err != nil {
		return NoMatch
	}
	return SingleRow
}
