// Package locator builds, parses and classifies content locators.
//
// A locator addresses either every row of a model for one user, or a single
// row:
//
//	content://com.example.provider/res.partner?key_model=res.partner&key_username=admin
//	content://com.example.provider/res.partner/5?key_model=res.partner&key_username=admin
//
// Classification is a pure function of the locator; nothing is registered
// or cached between calls.
package locator

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

// Locator query parameters and scheme.
const (
	Scheme      = "content"
	KeyModel    = "key_model"
	KeyUsername = "key_username"
)

// Locator is a decoded content locator.
type Locator struct {
	Scheme    string `json:"scheme"`
	Authority string `json:"authority"`
	// Path is the path as received, without the leading slash.
	Path  string `json:"path"`
	Model string `json:"model"`
	User  string `json:"user"`
}

// Build returns the collection locator for model as seen by user.
func Build(authority, model, user string) Locator {
	return Locator{
		Scheme:    Scheme,
		Authority: authority,
		Path:      model,
		Model:     model,
		User:      user,
	}
}

// Parse decodes a locator string. The key_model parameter is mandatory;
// key_username may be empty and is left to the model registry to judge.
func Parse(raw string) (Locator, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return Locator{}, fmt.Errorf("parse locator %q: %w", raw, err)
	}
	if u.Opaque != "" {
		return Locator{}, fmt.Errorf("parse locator %q: opaque locators are not supported", raw)
	}

	q := u.Query()
	model := q.Get(KeyModel)
	if model == "" {
		return Locator{}, fmt.Errorf("parse locator %q: missing %s parameter", raw, KeyModel)
	}

	return Locator{
		Scheme:    u.Scheme,
		Authority: u.Host,
		Path:      strings.TrimPrefix(u.Path, "/"),
		Model:     model,
		User:      q.Get(KeyUsername),
	}, nil
}

// MustParse is Parse for literals in tests and examples. It panics on error.
func MustParse(raw string) Locator {
	l, err := Parse(raw)
	if err != nil {
		panic(err)
	}
	return l
}

// String encodes the locator with key_model and key_username query parameters.
func (l Locator) String() string {
	q := url.Values{}
	q.Set(KeyModel, l.Model)
	q.Set(KeyUsername, l.User)

	u := url.URL{
		Scheme:   l.Scheme,
		Host:     l.Authority,
		Path:     "/" + l.Path,
		RawQuery: q.Encode(),
	}
	return u.String()
}

// Collection returns the collection locator for the same model and user.
func (l Locator) Collection() Locator {
	l.Path = l.Model
	return l
}

// WithRowID returns the single-row locator for id.
func (l Locator) WithRowID(id int64) Locator {
	l.Path = l.Model + "/" + strconv.FormatInt(id, 10)
	return l
}

// RowID returns the trailing row id when the locator addresses a single row.
func (l Locator) RowID() (int64, bool) {
	if Classify(l) != SingleRow {
		return 0, false
	}
	id, _ := strconv.ParseInt(strings.TrimPrefix(l.Path, l.Model+"/"), 10, 64)
	return id, true
}
