package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/specatalog/internal/schema"
)

// DeleteResult is the JSON payload of delete.
type DeleteResult struct {
	Entity  string `json:"entity"`
	ID      int64  `json:"id"`
	Deleted bool   `json:"deleted"`
}

// NewDeleteCommand creates the delete command.
func NewDeleteCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "delete <entity> <id>",
		Short: "Delete a record and its directory",
		Long: `Delete a record together with its directory. Deleting a molecule also
deletes its measurements. A subtype name only deletes records of that
subtype.

Examples:
  specatalog delete measurement 12
  specatalog delete molecule 3`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDelete(rootOpts, cmd, args[0], args[1])
		},
	}
	return cmd
}

func runDelete(opts *RootOptions, cmd *cobra.Command, name, rawID string) error {
	return opts.withCatalog(cmd, func(s *session) error {
		e, err := schema.Lookup(name)
		if err != nil {
			return err
		}
		id, err := parseID(e, rawID)
		if err != nil {
			return err
		}

		ctx := cmd.Context()
		switch e {
		case schema.Measurement:
			err = s.cat.DeleteMeasurement(ctx, id)
		case schema.Molecule:
			err = s.cat.DeleteMolecule(ctx, id)
		default:
			err = s.cat.DeleteObject(ctx, e, id)
		}
		if err != nil {
			return err
		}

		result := DeleteResult{Entity: e.Name, ID: id, Deleted: true}
		return s.out.Render(result, func(w io.Writer) error {
			_, err := fmt.Fprintf(w, "Deleted %s %d\n", e.Name, id)
			return err
		})
	})
}
