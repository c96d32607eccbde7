package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/specatalog/internal/archive"
	"github.com/roach88/specatalog/internal/schema"
)

// RawOptions holds flags for raw import.
type RawOptions struct {
	*RootOptions
	Format    string
	Overwrite bool
}

// RawResult is the JSON payload of raw import.
type RawResult struct {
	ID      int64  `json:"id"`
	Format  string `json:"format,omitempty"`
	Dims    []int  `json:"dims"`
	Complex bool   `json:"complex"`
}

// NewRawCommand creates the raw command.
func NewRawCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "raw",
		Short: "Import spectrometer raw data",
	}
	cmd.AddCommand(newRawImportCommand(rootOpts))
	return cmd
}

func newRawImportCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RawOptions{RootOptions: rootOpts}
	cmd := &cobra.Command{
		Use:   "import <ms_id> <basename>",
		Short: "Copy raw files into raw/ and convert them into the HDF5 file",
		Long: `Copy a raw dataset into the raw folder of a measurement and write its
spectrum into the raw_data group of the measurement's HDF5 file.
basename is the path without extension (e.g. /spectra/sample1 for
sample1.DSC and sample1.DTA). The format is detected unless --format is set.

Examples:
  specatalog raw import 12 /spectra/sample1
  specatalog raw import 12 /spectra/sample1 --format bruker_bes3t --overwrite`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withCatalog(cmd, func(s *session) error {
				id, err := parseID(schema.Measurement, args[0])
				if err != nil {
					return err
				}
				var format archive.Format
				if opts.Format != "" {
					if format, err = archive.ParseFormat(opts.Format); err != nil {
						return err
					}
				}
				spec, err := s.cat.ImportRawData(cmd.Context(), id, args[1], format, opts.Overwrite)
				if err != nil {
					return err
				}

				result := RawResult{ID: id, Format: string(format), Dims: spec.Dims, Complex: spec.Imag != nil}
				return s.out.Render(result, func(w io.Writer) error {
					_, err := fmt.Fprintf(w, "Imported raw data into M%d (dims %v)\n", id, spec.Dims)
					return err
				})
			})
		},
	}
	cmd.Flags().StringVar(&opts.Format, "format", "", "raw data format (bruker_bes3t)")
	cmd.Flags().BoolVar(&opts.Overwrite, "overwrite", false, "replace existing raw datasets")
	return cmd
}
