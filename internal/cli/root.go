package cli

import (
	"fmt"
	"log/slog"
	"slices"

	"github.com/spf13/cobra"

	"github.com/roach88/specatalog/internal/catalog"
	"github.com/roach88/specatalog/internal/config"
	"github.com/roach88/specatalog/internal/metrics"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose     bool
	Format      string // "json" | "text"
	ConfigPath  string
	MetricsFile string

	// CatalogOptions are appended when a command opens the archive
	// (for testing).
	CatalogOptions []catalog.Option
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for the specatalog CLI.
func NewRootCommand() *cobra.Command {
	return newRootCommand(&RootOptions{})
}

func newRootCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "specatalog",
		Short: "specatalog - EPR measurement catalog",
		Long: `Catalog EPR measurements and molecules in an archive: a directory tree
with one folder and HDF5 file per measurement plus a SQLite database.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !isValidFormat(opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
			}
			return nil
		},
	}

	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().StringVar(&opts.ConfigPath, "config", "", "defaults file (default $SPECATALOG_CONFIG or ~/.specatalog/defaults.yaml)")
	cmd.PersistentFlags().StringVar(&opts.MetricsFile, "metrics-file", "", "write Prometheus metrics to this file on exit")

	cmd.AddCommand(NewInitCommand(opts))
	cmd.AddCommand(NewCreateCommand(opts))
	cmd.AddCommand(NewQueryCommand(opts))
	cmd.AddCommand(NewUpdateCommand(opts))
	cmd.AddCommand(NewDeleteCommand(opts))
	cmd.AddCommand(NewDescribeCommand(opts))
	cmd.AddCommand(NewFilesCommand(opts))
	cmd.AddCommand(NewRawCommand(opts))
	cmd.AddCommand(NewH5Command(opts))

	return cmd
}

// isValidFormat checks if the format is one of the allowed values.
func isValidFormat(format string) bool {
	return slices.Contains(ValidFormats, format)
}

// formatter builds the output formatter for a command.
func (o *RootOptions) formatter(cmd *cobra.Command) *OutputFormatter {
	return &OutputFormatter{
		Format:    o.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   o.Verbose,
	}
}

// configPath resolves --config, $SPECATALOG_CONFIG and the home default.
func (o *RootOptions) configPath() (string, error) {
	if o.ConfigPath != "" {
		return o.ConfigPath, nil
	}
	return config.DefaultPath()
}

// logger builds a text logger on stderr. --verbose forces debug.
func (o *RootOptions) logger(cmd *cobra.Command, level slog.Level) *slog.Logger {
	if o.Verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{
		Level: level,
	}))
}

// session is an open archive for the duration of one command.
type session struct {
	cat     *catalog.Catalog
	out     *OutputFormatter
	logger  *slog.Logger
	metrics *metrics.Prometheus
	path    string
}

// close closes the catalog and writes the metrics file.
func (s *session) close() error {
	err := s.cat.Close()
	if s.metrics != nil {
		if werr := s.metrics.WriteTextfile(s.path); werr != nil && err == nil {
			err = fmt.Errorf("write metrics: %w", werr)
		}
	}
	return err
}

// withCatalog loads the defaults file, opens the archive, runs fn and
// reports its error through the formatter.
func (o *RootOptions) withCatalog(cmd *cobra.Command, fn func(s *session) error) error {
	out := o.formatter(cmd)

	path, err := o.configPath()
	if err != nil {
		return out.Fail(err)
	}
	cfg, err := config.Load(path)
	if err != nil {
		return out.Fail(err)
	}
	level, err := cfg.Level()
	if err != nil {
		return out.Fail(err)
	}

	s := &session{out: out, logger: o.logger(cmd, level), path: o.MetricsFile}
	opts := []catalog.Option{catalog.WithLogger(s.logger)}
	if o.MetricsFile != "" {
		s.metrics = metrics.NewPrometheus()
		opts = append(opts, catalog.WithMetrics(s.metrics))
	}
	opts = append(opts, o.CatalogOptions...)

	s.logger.Debug("opening archive", "config", path, "base_dir", cfg.BaseDir)
	s.cat, err = catalog.Open(cfg.BaseDir, opts...)
	if err != nil {
		return out.Fail(err)
	}

	err = fn(s)
	if cerr := s.close(); cerr != nil {
		s.logger.Error("error closing archive", "error", cerr)
		if err == nil {
			err = cerr
		}
	}
	if err != nil {
		return out.Fail(err)
	}
	return nil
}
