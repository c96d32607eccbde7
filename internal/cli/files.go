package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/specatalog/internal/archive"
	"github.com/roach88/specatalog/internal/schema"
)

// FilesOptions holds flags for the files subcommands.
type FilesOptions struct {
	*RootOptions
	Overwrite bool
	Category  string
}

// FilesResult is the JSON payload of files list.
type FilesResult struct {
	ID    int64    `json:"id"`
	Files []string `json:"files"`
}

// NewFilesCommand creates the files command.
func NewFilesCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "files",
		Short: "Manage files in a measurement folder",
		Long: fmt.Sprintf(`Add, list and remove files in the category folders of a measurement.
Categories: %s.`, strings.Join(archive.Categories, ", ")),
	}
	cmd.AddCommand(newFilesAddCommand(rootOpts))
	cmd.AddCommand(newFilesListCommand(rootOpts))
	cmd.AddCommand(newFilesRemoveCommand(rootOpts))
	return cmd
}

func newFilesAddCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &FilesOptions{RootOptions: rootOpts}
	cmd := &cobra.Command{
		Use:   "add <ms_id> <category> <file>",
		Short: "Copy a file into a category folder",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withCatalog(cmd, func(s *session) error {
				id, err := parseID(schema.Measurement, args[0])
				if err != nil {
					return err
				}
				target, err := s.cat.AddFile(cmd.Context(), id, args[1], args[2], opts.Overwrite)
				if err != nil {
					return err
				}
				return s.out.Render(map[string]any{"id": id, "path": target}, func(w io.Writer) error {
					_, err := fmt.Fprintf(w, "Added %s\n", target)
					return err
				})
			})
		},
	}
	cmd.Flags().BoolVar(&opts.Overwrite, "overwrite", false, "replace an existing file")
	return cmd
}

func newFilesListCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &FilesOptions{RootOptions: rootOpts}
	cmd := &cobra.Command{
		Use:     "list <ms_id>",
		Aliases: []string{"ls"},
		Short:   "List the files of a measurement",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withCatalog(cmd, func(s *session) error {
				id, err := parseID(schema.Measurement, args[0])
				if err != nil {
					return err
				}
				files, err := s.cat.ListFiles(cmd.Context(), id, opts.Category)
				if err != nil {
					return err
				}
				return s.out.Render(FilesResult{ID: id, Files: files}, func(w io.Writer) error {
					for _, f := range files {
						if _, err := fmt.Fprintln(w, f); err != nil {
							return err
						}
					}
					return nil
				})
			})
		},
	}
	cmd.Flags().StringVarP(&opts.Category, "category", "c", "", "only list this category")
	return cmd
}

func newFilesRemoveCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "rm <ms_id> <category> <name>",
		Aliases: []string{"remove"},
		Short:   "Delete a file from a category folder",
		Args:    cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			return rootOpts.withCatalog(cmd, func(s *session) error {
				id, err := parseID(schema.Measurement, args[0])
				if err != nil {
					return err
				}
				if err := s.cat.RemoveFile(cmd.Context(), id, args[1], args[2]); err != nil {
					return err
				}
				return s.out.Render(map[string]any{"id": id, "removed": args[1] + "/" + args[2]}, func(w io.Writer) error {
					_, err := fmt.Fprintf(w, "Removed %s/%s\n", args[1], args[2])
					return err
				})
			})
		},
	}
	return cmd
}
