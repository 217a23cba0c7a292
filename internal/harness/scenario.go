package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Default locator parts when a scenario leaves them out.
const (
	DefaultAuthority = "com.example.provider"
	DefaultUser      = "alice"
)

// Scenario is a replayable sequence of router calls plus final assertions.
type Scenario struct {
	// Name uniquely identifies this scenario. It names the golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Models is the directory of CUE model files.
	// Relative paths are resolved against the scenario file location.
	Models string `yaml:"models"`

	// Authority is the locator authority. Defaults to DefaultAuthority.
	Authority string `yaml:"authority,omitempty"`

	// User owns the database every step runs against unless the step
	// names another. Defaults to DefaultUser.
	User string `yaml:"user,omitempty"`

	// Steps are executed in order.
	Steps []Step `yaml:"steps"`

	// Assertions validate the final state.
	Assertions []Assertion `yaml:"assertions"`
}

// Step operations.
const (
	OpQuery  = "query"
	OpInsert = "insert"
	OpUpdate = "update"
	OpDelete = "delete"
)

// Step is one router call.
type Step struct {
	// Op is query, insert, update or delete.
	Op string `yaml:"op"`

	// Model is the model name the locator addresses.
	Model string `yaml:"model"`

	// User overrides the scenario user for this step.
	User string `yaml:"user,omitempty"`

	// Row turns the collection locator into a single-row locator.
	Row *int64 `yaml:"row,omitempty"`

	// Path replaces the locator path verbatim, e.g. to build a locator
	// that matches no route.
	Path string `yaml:"path,omitempty"`

	// Values are the column values for insert and update.
	Values map[string]any `yaml:"values,omitempty"`

	// Columns is the query projection.
	Columns []string `yaml:"columns,omitempty"`

	// Where and Args form the caller selection.
	Where string `yaml:"where,omitempty"`
	Args  []any  `yaml:"args,omitempty"`

	// Sort is the query sort order.
	Sort string `yaml:"sort,omitempty"`

	// Expect validates the call outcome. If nil, the call must not fail.
	Expect *Expect `yaml:"expect,omitempty"`
}

// Expect specifies the expected outcome of a step. Only the fields that
// are set are checked.
type Expect struct {
	// Error is the expected router error code, e.g. UNSUPPORTED_OPERATION.
	Error string `yaml:"error,omitempty"`

	// RowID is the expected new row id of an insert.
	RowID *int64 `yaml:"row_id,omitempty"`

	// Count is the expected count of an update or delete.
	Count *int64 `yaml:"count,omitempty"`

	// Rows are the expected query rows, in order. Each row is a subset match.
	Rows []map[string]any `yaml:"rows,omitempty"`

	// Warnings are the expected warning codes, in order.
	Warnings []string `yaml:"warnings,omitempty"`
}

// Assertion validates final state.
type Assertion struct {
	// Type specifies the assertion type:
	// - "row": one row matching Where has the Expect values
	// - "row_count": Count rows match Where
	// - "links": row Row of Model links Column to IDs
	// - "changes": Count change events were published
	Type string `yaml:"type"`

	// Model is the model name (row, row_count, links).
	Model string `yaml:"model,omitempty"`

	// User overrides the scenario user.
	User string `yaml:"user,omitempty"`

	// Where filters rows by column equality (row, row_count).
	Where map[string]any `yaml:"where,omitempty"`

	// Expect contains expected column values (row). Subset match.
	Expect map[string]any `yaml:"expect,omitempty"`

	// Count is the expected number of rows or changes.
	Count int `yaml:"count,omitempty"`

	// Row is the owner row id (links).
	Row int64 `yaml:"row,omitempty"`

	// Column is the many2many column (links).
	Column string `yaml:"column,omitempty"`

	// IDs are the expected link targets, in order (links).
	IDs []int64 `yaml:"ids,omitempty"`
}

// Assertion type constants.
const (
	AssertRow      = "row"
	AssertRowCount = "row_count"
	AssertLinks    = "links"
	AssertChanges  = "changes"
)

// LoadScenario reads and parses a scenario YAML file. The models path is
// resolved against the scenario's directory.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	scenario, err := ParseScenario(data)
	if err != nil {
		return nil, err
	}

	if scenario.Models != "" && !filepath.IsAbs(scenario.Models) {
		scenario.Models = filepath.Join(filepath.Dir(path), scenario.Models)
	}
	if _, err := os.Stat(scenario.Models); err != nil {
		return nil, fmt.Errorf("invalid scenario: models directory: %w", err)
	}

	return scenario, nil
}

// ParseScenario decodes and validates scenario YAML. Paths are left as
// written.
func ParseScenario(data []byte) (*Scenario, error) {
	// Reject unknown fields (catches typos like "assertion:" vs "assertions:")
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if scenario.Authority == "" {
		scenario.Authority = DefaultAuthority
	}
	if scenario.User == "" {
		scenario.User = DefaultUser
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}

	if s.Description == "" {
		return fmt.Errorf("description is required")
	}

	if s.Models == "" {
		return fmt.Errorf("models is required")
	}

	if len(s.Steps) == 0 {
		return fmt.Errorf("steps list is required and must be non-empty")
	}

	for i, step := range s.Steps {
		switch step.Op {
		case OpQuery, OpInsert, OpUpdate, OpDelete:
		case "":
			return fmt.Errorf("steps[%d]: op is required", i)
		default:
			return fmt.Errorf("steps[%d]: unknown op %q", i, step.Op)
		}
		if step.Model == "" {
			return fmt.Errorf("steps[%d]: model is required", i)
		}
		if step.Row != nil && step.Path != "" {
			return fmt.Errorf("steps[%d]: row and path are mutually exclusive", i)
		}
	}

	for i, assertion := range s.Assertions {
		if err := validateAssertion(i, &assertion); err != nil {
			return err
		}
	}

	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}

	switch a.Type {
	case AssertRow:
		if a.Model == "" {
			return fmt.Errorf("assertions[%d]: model is required for row", index)
		}
		if len(a.Expect) == 0 {
			return fmt.Errorf("assertions[%d]: expect is required for row", index)
		}
	case AssertRowCount:
		if a.Model == "" {
			return fmt.Errorf("assertions[%d]: model is required for row_count", index)
		}
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for row_count", index)
		}
	case AssertLinks:
		if a.Model == "" || a.Column == "" {
			return fmt.Errorf("assertions[%d]: model and column are required for links", index)
		}
		if a.Row <= 0 {
			return fmt.Errorf("assertions[%d]: row must be positive for links", index)
		}
	case AssertChanges:
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for changes", index)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}

	return nil
}
