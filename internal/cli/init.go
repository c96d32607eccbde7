package cli

import (
	"fmt"
	"io"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/roach88/specatalog/internal/catalog"
	"github.com/roach88/specatalog/internal/config"
)

// InitOptions holds flags for the init command.
type InitOptions struct {
	*RootOptions
	BaseDir string
}

// InitResult is the JSON payload of init.
type InitResult struct {
	BaseDir string `json:"base_dir"`
	Config  string `json:"config,omitempty"`
}

// NewInitCommand creates the init command.
func NewInitCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &InitOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create the archive skeleton",
		Long: `Create the archive skeleton: data/, molecules/, allowed_values.cue and
specatalog.db. Existing parts are kept.

With --base-dir the defaults file is (re)written to point at the new
archive. Without it, the archive named by the defaults file is initialized.

Examples:
  specatalog init --base-dir /data/epr-archive
  specatalog init`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInit(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.BaseDir, "base-dir", "", "archive directory to create and record in the defaults file")

	return cmd
}

func runInit(opts *InitOptions, cmd *cobra.Command) error {
	out := opts.formatter(cmd)

	path, err := opts.configPath()
	if err != nil {
		return out.Fail(err)
	}

	result := InitResult{}
	var cfg config.Config
	if opts.BaseDir != "" {
		abs, err := filepath.Abs(opts.BaseDir)
		if err != nil {
			return out.Fail(fmt.Errorf("resolve base dir: %w", err))
		}
		cfg = config.Config{BaseDir: abs}
		if old, err := config.Load(path); err == nil {
			cfg.LogLevel = old.LogLevel
		}
		result.Config = path
	} else {
		if cfg, err = config.Load(path); err != nil {
			return out.Fail(err)
		}
	}

	level, err := cfg.Level()
	if err != nil {
		return out.Fail(err)
	}
	logger := opts.logger(cmd, level)

	if err := catalog.Init(cfg.BaseDir, catalog.WithLogger(logger)); err != nil {
		return out.Fail(err)
	}
	if result.Config != "" {
		if err := config.Save(path, cfg); err != nil {
			return out.Fail(err)
		}
		logger.Info("defaults file written", "path", path)
	}
	result.BaseDir = cfg.BaseDir

	return out.Render(result, func(w io.Writer) error {
		fmt.Fprintf(w, "Archive initialized at %s\n", result.BaseDir)
		if result.Config != "" {
			fmt.Fprintf(w, "Defaults written to %s\n", result.Config)
		}
		return nil
	})
}
