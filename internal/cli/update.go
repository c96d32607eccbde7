package cli

import (
	"io"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/roach88/specatalog/internal/catalogerr"
	"github.com/roach88/specatalog/internal/schema"
)

// UpdateOptions holds flags for the update command.
type UpdateOptions struct {
	*RootOptions
	Set  []string
	Null []string
}

// NewUpdateCommand creates the update command.
func NewUpdateCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &UpdateOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "update <entity> <id>",
		Short: "Change metadata of a record",
		Long: `Apply a partial patch to a record: fields not named are left unchanged.
Identity fields (ids, method, group, paths, timestamps) cannot be changed.
Changing a component of a radical pair or triplet molecule recomputes its
name and renames matching files in its molecule folder.

Examples:
  specatalog update cwepr 12 --set temperature=80 --set series=S3
  specatalog update measurement 12 --null location
  specatalog update rp 3 --set linker=xy`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runUpdate(opts, cmd, args[0], args[1])
		},
	}

	cmd.Flags().StringArrayVar(&opts.Set, "set", nil, "field=value (repeatable)")
	cmd.Flags().StringArrayVar(&opts.Null, "null", nil, "field to clear (repeatable)")

	return cmd
}

func runUpdate(opts *UpdateOptions, cmd *cobra.Command, name, rawID string) error {
	return opts.withCatalog(cmd, func(s *session) error {
		e, err := schema.Lookup(name)
		if err != nil {
			return err
		}
		id, err := parseID(e, rawID)
		if err != nil {
			return err
		}
		shapes, err := s.cat.Shapes(e)
		if err != nil {
			return err
		}

		patch := shapes.Update.New()
		set, err := parseAssignments(e, opts.Set)
		if err != nil {
			return err
		}
		for field, v := range set {
			if err := patch.Set(field, v); err != nil {
				return err
			}
		}
		for _, field := range opts.Null {
			if err := patch.SetNull(field); err != nil {
				return err
			}
		}

		rec, err := s.cat.Update(cmd.Context(), e, id, patch)
		if err != nil {
			return err
		}
		return s.out.Render(rec.MarshalMap(), func(w io.Writer) error {
			return writeRecord(w, rec)
		})
	})
}

// parseID parses a positive record id.
func parseID(e *schema.Entity, raw string) (int64, error) {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id < 1 {
		return 0, catalogerr.Validation(e.Name, e.Key(), "invalid id %q", raw)
	}
	return id, nil
}
