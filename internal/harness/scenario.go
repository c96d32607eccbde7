package harness

import (
	"bytes"
	"fmt"
	"os"
	"slices"

	"gopkg.in/yaml.v3"
)

// Scenario defines an end-to-end catalog scenario.
// Scenarios run a flow of catalog operations against a fresh archive and
// assert on the resulting trace, records and directory tree.
type Scenario struct {
	// Name uniquely identifies this scenario. It names the golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Setup contains operations run before the main flow.
	// Setup operations must succeed.
	Setup []Step `yaml:"setup,omitempty"`

	// Flow contains the main operations with expected outcomes.
	Flow []Step `yaml:"flow"`

	// Assertions validate the final archive state and trace.
	Assertions []Assertion `yaml:"assertions"`
}

// Step is one catalog operation.
type Step struct {
	// Op is one of the Op* constants.
	Op string `yaml:"op"`

	// Entity names the entity ("cwepr", "molecule", ...).
	Entity string `yaml:"entity,omitempty"`

	// ID is the record id for update, delete and file operations.
	ID int64 `yaml:"id,omitempty"`

	// Fields holds field values for create and update.
	Fields map[string]any `yaml:"fields,omitempty"`

	// Null lists fields an update clears.
	Null []string `yaml:"null,omitempty"`

	// Where holds filter terms for query, keyed like "temperature__gt".
	Where map[string]any `yaml:"where,omitempty"`

	// Order holds sort terms for query ("date:desc").
	Order []string `yaml:"order,omitempty"`

	// Category, Name and Content describe a file for add_file and
	// remove_file.
	Category string `yaml:"category,omitempty"`
	Name     string `yaml:"name,omitempty"`
	Content  string `yaml:"content,omitempty"`

	// Dataset and Values describe an HDF5 dataset.
	Dataset string    `yaml:"dataset,omitempty"`
	Values  []float64 `yaml:"values,omitempty"`

	// Overwrite allows replacing an existing file or dataset.
	Overwrite bool `yaml:"overwrite,omitempty"`

	// Expect specifies the expected outcome.
	// If nil, the step must succeed.
	Expect *ExpectClause `yaml:"expect,omitempty"`
}

// ExpectClause specifies the expected outcome of a step.
type ExpectClause struct {
	// Outcome is "ok" or a catalog error code ("NOT_FOUND").
	Outcome string `yaml:"outcome"`

	// ID is the expected allocated id for create.
	ID int64 `yaml:"id,omitempty"`

	// IDs are the expected query results, in order.
	IDs []int64 `yaml:"ids,omitempty"`
}

// Assertion validates the final state.
type Assertion struct {
	// Type specifies the assertion type:
	// - "record": read entity/id and compare Expect (subset match)
	// - "absent": entity/id must not exist
	// - "query_count": query entity with Where, expect Count rows
	// - "path_exists", "path_absent": Path relative to the archive root
	// - "trace_count": Op (and Outcome if set) appears Count times
	Type string `yaml:"type"`

	Entity string         `yaml:"entity,omitempty"`
	ID     int64          `yaml:"id,omitempty"`
	Where  map[string]any `yaml:"where,omitempty"`
	Expect map[string]any `yaml:"expect,omitempty"`
	Count  int            `yaml:"count,omitempty"`
	Path   string         `yaml:"path,omitempty"`

	Op      string `yaml:"op,omitempty"`
	Outcome string `yaml:"outcome,omitempty"`
}

// Step operations.
const (
	OpCreate       = "create"
	OpQuery        = "query"
	OpUpdate       = "update"
	OpDelete       = "delete"
	OpAddFile      = "add_file"
	OpRemoveFile   = "remove_file"
	OpWriteDataset = "write_dataset"
	OpReadDataset  = "read_dataset"
)

var ops = []string{
	OpCreate, OpQuery, OpUpdate, OpDelete,
	OpAddFile, OpRemoveFile, OpWriteDataset, OpReadDataset,
}

// Assertion type constants.
const (
	AssertRecord     = "record"
	AssertAbsent     = "absent"
	AssertQueryCount = "query_count"
	AssertPathExists = "path_exists"
	AssertPathAbsent = "path_absent"
	AssertTraceCount = "trace_count"
)

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	// Strict decoding catches typos like "assertion:" vs "assertions:"
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
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

	if len(s.Flow) == 0 {
		return fmt.Errorf("flow list is required and must be non-empty")
	}

	if len(s.Assertions) == 0 {
		return fmt.Errorf("assertions list is required and must be non-empty")
	}

	for i, step := range s.Setup {
		if err := validateStep(step); err != nil {
			return fmt.Errorf("setup[%d]: %w", i, err)
		}
		if step.Expect != nil && step.Expect.Outcome != OutcomeOK {
			return fmt.Errorf("setup[%d]: setup steps must succeed", i)
		}
	}

	for i, step := range s.Flow {
		if err := validateStep(step); err != nil {
			return fmt.Errorf("flow[%d]: %w", i, err)
		}
	}

	for i, assertion := range s.Assertions {
		if err := validateAssertion(i, &assertion); err != nil {
			return err
		}
	}

	return nil
}

// validateStep checks the fields each operation needs.
func validateStep(step Step) error {
	if !slices.Contains(ops, step.Op) {
		return fmt.Errorf("unknown op %q", step.Op)
	}
	switch step.Op {
	case OpCreate, OpQuery, OpUpdate, OpDelete:
		if step.Entity == "" {
			return fmt.Errorf("entity is required for %s", step.Op)
		}
	case OpAddFile, OpRemoveFile:
		if step.Category == "" || step.Name == "" {
			return fmt.Errorf("category and name are required for %s", step.Op)
		}
	case OpWriteDataset, OpReadDataset:
		if step.Dataset == "" {
			return fmt.Errorf("dataset is required for %s", step.Op)
		}
	}
	if step.Expect != nil && step.Expect.Outcome == "" {
		return fmt.Errorf("expect: outcome is required")
	}
	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}

	switch a.Type {
	case AssertRecord:
		if a.Entity == "" || a.ID == 0 {
			return fmt.Errorf("assertions[%d]: entity and id are required for record", index)
		}
		if len(a.Expect) == 0 {
			return fmt.Errorf("assertions[%d]: expect is required for record", index)
		}
	case AssertAbsent:
		if a.Entity == "" || a.ID == 0 {
			return fmt.Errorf("assertions[%d]: entity and id are required for absent", index)
		}
	case AssertQueryCount:
		if a.Entity == "" {
			return fmt.Errorf("assertions[%d]: entity is required for query_count", index)
		}
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for query_count", index)
		}
	case AssertPathExists, AssertPathAbsent:
		if a.Path == "" {
			return fmt.Errorf("assertions[%d]: path is required for %s", index, a.Type)
		}
	case AssertTraceCount:
		if a.Op == "" {
			return fmt.Errorf("assertions[%d]: op is required for trace_count", index)
		}
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for trace_count", index)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}

	return nil
}
