package cli

import (
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/specatalog/internal/schema"
	"github.com/roach88/specatalog/internal/shape"
)

// DescribeResult is the JSON payload of describe.
type DescribeResult struct {
	Entity   string        `json:"entity"`
	Filter   []FilterKey   `json:"filter"`
	Ordering []string      `json:"ordering"`
	Update   []UpdateField `json:"update"`
}

// FilterKey is one accepted filter key.
type FilterKey struct {
	Key   string `json:"key"`
	Field string `json:"field"`
	Op    string `json:"op"`
	Type  string `json:"type"`
}

// UpdateField is one field a patch may change.
type UpdateField struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

// NewDescribeCommand creates the describe command.
func NewDescribeCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "describe <entity>",
		Short: "Show the filter, ordering and update shapes of an entity",
		Long: `Show the filter keys, sortable fields and updatable fields of an entity.
Does not need an archive.

Examples:
  specatalog describe cwepr
  specatalog describe molecule --format json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDescribe(rootOpts, cmd, args[0])
		},
	}
	return cmd
}

func runDescribe(opts *RootOptions, cmd *cobra.Command, name string) error {
	out := opts.formatter(cmd)

	e, err := schema.Lookup(name)
	if err != nil {
		return out.Fail(err)
	}
	shapes, err := shape.Make(e)
	if err != nil {
		return out.Fail(err)
	}

	result := DescribeResult{Entity: e.Name, Ordering: shapes.Ordering.Fields}
	for _, slot := range shapes.Filter.Slots {
		result.Filter = append(result.Filter, FilterKey{
			Key:   slot.Key,
			Field: slot.Field.Name,
			Op:    string(slot.Op),
			Type:  slot.Field.Type.String(),
		})
	}
	for _, f := range shapes.Update.Fields {
		result.Update = append(result.Update, UpdateField{Name: f.Name, Type: f.Type.String()})
	}

	return out.Render(result, func(w io.Writer) error {
		return shape.Describe(w, shapes)
	})
}
