package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/adrg/xdg"
	"github.com/spf13/cobra"

	"github.com/NamanBalaji/segfetch/internal/config"
	"github.com/NamanBalaji/segfetch/internal/logger"
)

var Version = "dev"

// app carries what every subcommand needs once the root has loaded it.
type app struct {
	debug bool
	cfg   *config.Config
	out   io.Writer
}

func logPath() string {
	return filepath.Join(xdg.StateHome, "segfetch", "segfetch.log")
}

func newRootCmd() *cobra.Command {
	a := &app{}

	cmd := &cobra.Command{
		Use:           "segfetch",
		Short:         "segfetch is a resumable, parallel HTTP downloader",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.GetConfig()
			if err != nil {
				return fmt.Errorf("failed to load config %s: %w", config.Path(), err)
			}

			a.cfg = cfg
			a.out = cmd.OutOrStdout()

			return logger.InitLogging(a.debug, logPath())
		},
	}

	cmd.PersistentFlags().BoolVar(&a.debug, "debug", false, "Enable debug logging to "+logPath())

	cmd.AddCommand(
		newGetCmd(a),
		newResumeCmd(a),
		newListCmd(a),
		newCleanCmd(a),
	)

	return cmd
}

// Execute runs the CLI. SIGINT and SIGTERM interrupt the running download
// so it can be resumed later.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	err := run(ctx, os.Args[1:], os.Stdout)

	stop()

	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// run executes one command line and closes the log on every path.
func run(ctx context.Context, args []string, out io.Writer) error {
	defer logger.Close()

	root := newRootCmd()
	root.SetArgs(args)
	root.SetOut(out)

	err := root.ExecuteContext(ctx)
	if err != nil {
		logger.Errorf("Command failed: %v", err)
	}

	return err
}
