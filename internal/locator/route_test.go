package locator

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		path string
		want RouteKind
	}{
		{"collection", "res.partner", Collection},
		{"single row", "res.partner/5", SingleRow},
		{"zero id", "res.partner/0", SingleRow},
		{"trailing slash", "res.partner/", NoMatch},
		{"non numeric id", "res.partner/abc", NoMatch},
		{"negative id", "res.partner/-1", NoMatch},
		{"nested path", "res.partner/5/lines", NoMatch},
		{"other model", "res.users", NoMatch},
		{"prefix of model", "res.partner.category", NoMatch},
		{"overflow", "res.partner/99999999999999999999", NoMatch},
		{"empty", "", NoMatch},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := Locator{Scheme: Scheme, Authority: authority, Path: tt.path, Model: "res.partner", User: "u"}
			assert.Equal(t, tt.want, Classify(l))
		})
	}
}

func TestClassifyWithoutModel(t *testing.T) {
	assert.Equal(t, NoMatch, Classify(Locator{Path: ""}))
}

func TestClassifyIsPure(t *testing.T) {
	a := Build(authority, "a", "u")
	b := Build(authority, "b", "u")

	// Classifying one model's locator must not affect another's.
	assert.Equal(t, Collection, Classify(a))
	assert.Equal(t, Collection, Classify(b))
	assert.Equal(t, NoMatch, Classify(Locator{Model: "a", Path: "b"}))
	assert.Equal(t, Collection, Classify(a))
}

func TestRouteKindString(t *testing.T) {
	assert.Equal(t, "collection", Collection.String())
	assert.Equal(t, "single_row", SingleRow.String())
	assert.Equal(t, "no_match", NoMatch.String())
	assert.Equal(t, "route(9)", RouteKind(9).String())
}
