package cmd

import (
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/deploymenttheory/go-bfs/internal/config"
	"github.com/deploymenttheory/go-bfs/pkg/bfs"
)

var (
	// Global flags
	cfgFile   string
	imagePath string
	verbose   bool
	quiet     bool

	// Set up by the root command before any subcommand runs
	cfg    *config.Config
	logger *slog.Logger
)

var errNoImage = errors.New("no image given: pass --image or set image in the config file")

var rootCmd = &cobra.Command{
	Use:   "bfs",
	Short: "Inspect and manage block images",
	Long: `bfs works on block images: a single file holding a header, a block
allocation bitmap and fixed-size blocks.

Commands:
  format      Create a fresh image
  info        Show block count, file count and free space
  alloc       Claim the lowest free block
  free        Release a block
  entries     Read or set a block's entry counter`,
	Version:       "0.1.0-dev",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		loaded, err := config.Load(cfgFile)
		if err != nil {
			return err
		}
		if imagePath != "" {
			loaded.Image = imagePath
		}
		cfg = loaded

		level := cfg.Level()
		if verbose {
			level = slog.LevelDebug
		}
		if quiet {
			level = slog.LevelError
		}
		logger = slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))
		return nil
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: bfs-config.yaml on the search path)")
	rootCmd.PersistentFlags().StringVarP(&imagePath, "image", "i", "", "path to the image")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose output")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "suppress output except errors")
	rootCmd.MarkFlagsMutuallyExclusive("verbose", "quiet")
}

// openImage opens the configured image. Commands that change the image ask
// for write access, which a read_only config refuses.
func openImage(write bool) (*bfs.Image, error) {
	if cfg.Image == "" {
		return nil, errNoImage
	}

	mode := bfs.ReadOnly
	if write {
		if cfg.ReadOnly {
			return nil, fmt.Errorf("%s: %w", cfg.Image, bfs.ErrReadOnly)
		}
		mode = bfs.ReadWrite
	}
	return bfs.Open(cfg.Image, mode, bfs.WithLogger(logger))
}

// withImage opens the configured image, runs fn and closes it again.
func withImage(write bool, fn func(*bfs.Image) error) (err error) {
	img, err := openImage(write)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := img.Close(); cerr != nil {
			err = errors.Join(err, cerr)
		}
	}()
	return fn(img)
}
