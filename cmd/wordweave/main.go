// Command wordweave weaves learning-language vocabulary into HTML pages.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/ZaguanLabs/wordweave"
	"github.com/spf13/cobra"
)

// Build-time variables (can be overridden with ldflags)
var (
	version   = wordweave.Version
	commit    = wordweave.GitCommit
	buildDate = wordweave.BuildDate
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := run(ctx, os.Args[1:], os.Stdin, os.Stdout, os.Stderr)
	stop()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// globalFlags are shared by every subcommand.
type globalFlags struct {
	cfgFile  string
	logLevel string
	quiet    bool
}

func run(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) error {
	root := newRootCommand()
	root.SetArgs(args)
	root.SetIn(stdin)
	root.SetOut(stdout)
	root.SetErr(stderr)
	return root.ExecuteContext(ctx)
}

func newRootCommand() *cobra.Command {
	f := &globalFlags{}
	root := &cobra.Command{
		Use:   "wordweave",
		Short: wordweave.Description,
		Long: `wordweave replaces a few words of every paragraph in an HTML page with
their translation in the language you are learning, picked to match your
level, and can revert the page afterwards.

Examples:
  wordweave annotate article.html -o annotated.html
  curl -s https://example.com | wordweave annotate --host example.com
  wordweave words serendipity ephemeral
  wordweave restore annotated.html
  wordweave serve --addr :8080`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVar(&f.cfgFile, "config", "", "config file (default is $HOME/.wordweave.yaml)")
	root.PersistentFlags().StringVar(&f.logLevel, "log-level", "", "log level: debug, info, warn or error (overrides log.level)")
	root.PersistentFlags().BoolVarP(&f.quiet, "quiet", "q", false, "suppress progress output")

	root.AddCommand(
		newAnnotateCommand(f),
		newRestoreCommand(f),
		newScanCommand(),
		newDiffCommand(),
		newWordsCommand(f),
		newLearnCommand(f),
		newCacheCommand(f),
		newKeyCommand(f),
		newServeCommand(f),
		newVersionCommand(),
	)
	return root
}

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s %s\n", wordweave.Name, version)
			if commit != "unknown" && commit != "" {
				fmt.Fprintf(out, "  commit:  %s\n", commit)
			}
			if buildDate != "unknown" && buildDate != "" {
				fmt.Fprintf(out, "  built:   %s\n", buildDate)
			}
		},
	}
}
