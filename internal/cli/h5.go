package cli

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/specatalog/internal/catalogerr"
	"github.com/roach88/specatalog/internal/h5"
	"github.com/roach88/specatalog/internal/schema"
)

// H5Options holds flags for the h5 subcommands.
type H5Options struct {
	*RootOptions
	Values    string
	Overwrite bool
}

// DatasetResult is the JSON payload of h5 read.
type DatasetResult struct {
	ID   int64     `json:"id"`
	Name string    `json:"name"`
	Dims []uint    `json:"dims"`
	Data []float64 `json:"data"`
}

// NewH5Command creates the h5 command.
func NewH5Command(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "h5",
		Short: "Inspect and write the HDF5 file of a measurement",
	}
	cmd.AddCommand(newH5ShowCommand(rootOpts))
	cmd.AddCommand(newH5ReadCommand(rootOpts))
	cmd.AddCommand(newH5WriteCommand(rootOpts))
	cmd.AddCommand(newH5RemoveCommand(rootOpts))
	cmd.AddCommand(newH5SetAttrCommand(rootOpts))
	return cmd
}

func newH5ShowCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "show <ms_id>",
		Short: "List the groups and datasets of the HDF5 file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return rootOpts.withCatalog(cmd, func(s *session) error {
				id, err := parseID(schema.Measurement, args[0])
				if err != nil {
					return err
				}
				root, err := s.cat.LoadH5(cmd.Context(), id)
				if err != nil {
					return err
				}
				return s.out.Render(root, root.Print)
			})
		},
	}
}

func newH5ReadCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "read <ms_id> <dataset>",
		Short: "Print one dataset",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return rootOpts.withCatalog(cmd, func(s *session) error {
				id, err := parseID(schema.Measurement, args[0])
				if err != nil {
					return err
				}
				d, err := s.cat.ReadDataset(cmd.Context(), id, args[1])
				if err != nil {
					return err
				}
				result := DatasetResult{ID: id, Name: d.Name, Dims: d.Dims, Data: d.Data}
				return s.out.Render(result, func(w io.Writer) error {
					fmt.Fprintf(w, "%s %v\n", d.Name, d.Dims)
					for _, x := range d.Data {
						fmt.Fprintln(w, strconv.FormatFloat(x, 'g', -1, 64))
					}
					return nil
				})
			})
		},
	}
}

func newH5WriteCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &H5Options{RootOptions: rootOpts}
	cmd := &cobra.Command{
		Use:   "write <ms_id> <dataset>",
		Short: "Write a one-dimensional dataset",
		Long: `Write a one-dimensional float dataset into the HDF5 file of a measurement.
An existing dataset is only replaced with --overwrite.

Example:
  specatalog h5 write 12 evaluations/g_values --values 2.0023,2.0041`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withCatalog(cmd, func(s *session) error {
				id, err := parseID(schema.Measurement, args[0])
				if err != nil {
					return err
				}
				data, err := parseFloats(opts.Values)
				if err != nil {
					return err
				}
				d := h5.Vector(args[1], data)
				if err := s.cat.WriteDataset(cmd.Context(), id, d, opts.Overwrite); err != nil {
					return err
				}
				return s.out.Render(map[string]any{"id": id, "name": d.Name, "dims": d.Dims}, func(w io.Writer) error {
					_, err := fmt.Fprintf(w, "Wrote %s %v to M%d\n", d.Name, d.Dims, id)
					return err
				})
			})
		},
	}
	cmd.Flags().StringVar(&opts.Values, "values", "", "comma-separated numbers (required)")
	cmd.Flags().BoolVar(&opts.Overwrite, "overwrite", false, "replace an existing dataset")
	_ = cmd.MarkFlagRequired("values")
	return cmd
}

func newH5RemoveCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "rm <ms_id> <dataset>",
		Short: "Delete a dataset or subgroup",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return rootOpts.withCatalog(cmd, func(s *session) error {
				id, err := parseID(schema.Measurement, args[0])
				if err != nil {
					return err
				}
				if err := s.cat.DeleteDataset(cmd.Context(), id, args[1]); err != nil {
					return err
				}
				return s.out.Render(map[string]any{"id": id, "name": args[1]}, func(w io.Writer) error {
					_, err := fmt.Fprintf(w, "Deleted %s from M%d\n", args[1], id)
					return err
				})
			})
		},
	}
}

func newH5SetAttrCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "set-attr <ms_id> <object> <key=value>...",
		Short: "Set string attributes on a group or dataset",
		Long: `Set string attributes on a group or dataset of the HDF5 file of a
measurement. Use "/" for the root group.

Example:
  specatalog h5 set-attr 12 evaluations/g_values method=fit`,
		Args: cobra.MinimumNArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			return rootOpts.withCatalog(cmd, func(s *session) error {
				id, err := parseID(schema.Measurement, args[0])
				if err != nil {
					return err
				}
				attrs := map[string]string{}
				for _, kv := range args[2:] {
					k, v, ok := strings.Cut(kv, "=")
					if !ok || k == "" {
						return catalogerr.Validation("", "attribute", "expected key=value, got %q", kv)
					}
					attrs[k] = v
				}
				if err := s.cat.SetAttrs(cmd.Context(), id, args[1], attrs); err != nil {
					return err
				}
				return s.out.Render(map[string]any{"id": id, "object": args[1], "attrs": attrs}, func(w io.Writer) error {
					_, err := fmt.Fprintf(w, "Set %d attribute(s) on %s of M%d\n", len(attrs), args[1], id)
					return err
				})
			})
		},
	}
}

// parseFloats parses a comma-separated list of numbers.
func parseFloats(s string) ([]float64, error) {
	parts := strings.Split(s, ",")
	out := make([]float64, 0, len(parts))
	for _, p := range parts {
		x, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return nil, catalogerr.Validation("", "values", "invalid number %q", p)
		}
		out = append(out, x)
	}
	return out, nil
}
