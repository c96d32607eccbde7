package cli

import (
	"fmt"
	"io"
	"maps"

	"github.com/spf13/cobra"

	"github.com/roach88/specatalog/internal/archive"
	"github.com/roach88/specatalog/internal/catalogerr"
	"github.com/roach88/specatalog/internal/schema"
	"github.com/roach88/specatalog/internal/value"
)

// CreateOptions holds flags for the create subcommands.
type CreateOptions struct {
	*RootOptions
	Set  []string
	File string
}

// CreateResult is the JSON payload of create.
type CreateResult struct {
	Entity string `json:"entity"`
	ID     int64  `json:"id"`
	Path   string `json:"path"`
}

// NewCreateCommand creates the create command.
func NewCreateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a measurement or molecule",
	}
	cmd.AddCommand(newCreateFamilyCommand(rootOpts, schema.FamilyMeasurement))
	cmd.AddCommand(newCreateFamilyCommand(rootOpts, schema.FamilyMolecule))
	return cmd
}

func newCreateFamilyCommand(rootOpts *RootOptions, family schema.Family) *cobra.Command {
	opts := &CreateOptions{RootOptions: rootOpts}
	var subtypes []string
	for _, e := range schema.Subtypes(family) {
		subtypes = append(subtypes, e.Name)
	}

	cmd := &cobra.Command{
		Use:       family.String() + " <subtype>",
		Short:     fmt.Sprintf("Create a %s record and its directory", family),
		Long:      fmt.Sprintf("Create a %s record. Subtypes: %v.", family, subtypes),
		Args:      cobra.ExactArgs(1),
		ValidArgs: subtypes,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCreate(opts, cmd, family, args[0])
		},
	}

	cmd.Flags().StringArrayVar(&opts.Set, "set", nil, "field=value (repeatable)")
	cmd.Flags().StringVarP(&opts.File, "file", "f", "", "YAML file with field values; --set overrides it")

	return cmd
}

func runCreate(opts *CreateOptions, cmd *cobra.Command, family schema.Family, name string) error {
	return opts.withCatalog(cmd, func(s *session) error {
		e, err := schema.Lookup(name)
		if err != nil {
			return err
		}
		if e.Family != family {
			return catalogerr.Validation(e.Name, "", "%s is not a %s subtype", e.Name, family)
		}

		fields := map[string]value.Value{}
		if opts.File != "" {
			if fields, err = readRecordFile(e, opts.File); err != nil {
				return err
			}
		}
		set, err := parseAssignments(e, opts.Set)
		if err != nil {
			return err
		}
		maps.Copy(fields, set)

		result := CreateResult{Entity: e.Name}
		ctx := cmd.Context()
		if family == schema.FamilyMolecule {
			result.ID, err = s.cat.CreateMolecule(ctx, e, fields)
			result.Path = archive.MoleculeRel(result.ID)
		} else {
			result.ID, err = s.cat.CreateMeasurement(ctx, e, fields)
			result.Path = archive.MeasurementRel(result.ID)
		}
		if err != nil {
			return err
		}

		return s.out.Render(result, func(w io.Writer) error {
			_, err := fmt.Fprintf(w, "Created %s %d at %s\n", result.Entity, result.ID, result.Path)
			return err
		})
	})
}
