package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/ZaguanLabs/wordweave"
	"github.com/ZaguanLabs/wordweave/config"
	"github.com/ZaguanLabs/wordweave/processor"
	"github.com/ZaguanLabs/wordweave/scheduler"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// outputFlags select where and how a command writes its result.
type outputFlags struct {
	output string
	json   bool
}

func (o *outputFlags) register(fs *pflag.FlagSet) {
	fs.StringVarP(&o.output, "output", "o", "", "output file (default: stdout)")
	fs.BoolVar(&o.json, "json", false, "output result as JSON")
}

// open returns the destination writer and a function closing it.
func (o *outputFlags) open(stdout io.Writer) (io.Writer, func() error, error) {
	if o.output == "" {
		return stdout, noClose, nil
	}
	f, err := os.Create(o.output) // #nosec G304 - CLI tool writes user-specified files
	if err != nil {
		return nil, nil, fmt.Errorf("creating output file: %w", err)
	}
	return f, f.Close, nil
}

// viewportFlags restrict annotation to the regions around one screen.
type viewportFlags struct {
	screen bool
	top    float64
}

func (v *viewportFlags) register(fs *pflag.FlagSet) {
	fs.BoolVar(&v.screen, "screen", false, "only process the regions near one screen of the page (scheduler.viewport_height)")
	fs.Float64Var(&v.top, "top", 0, "scroll offset of the screen, in layout units (with --screen)")
}

func (v *viewportFlags) viewport(sc config.SchedulerConfig) processor.Viewport {
	if !v.screen {
		return processor.Viewport{Top: 0, Height: 1e12}
	}
	return processor.Viewport{Top: v.top, Height: sc.ViewportHeight, Margin: sc.Margin}
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(v)
}

// readInput reads the first argument as a file, or stdin when there is none.
func readInput(stdin io.Reader, args []string) (content, name string, err error) {
	if len(args) == 0 {
		data, err := io.ReadAll(stdin)
		if err != nil {
			return "", "", fmt.Errorf("reading stdin: %w", err)
		}
		return string(data), "stdin", nil
	}
	data, err := os.ReadFile(args[0]) // #nosec G304 - CLI tool reads user-specified files
	if err != nil {
		return "", "", fmt.Errorf("reading file: %w", err)
	}
	return string(data), filepath.Base(args[0]), nil
}

type annotateOptions struct {
	out       outputFlags
	vp        viewportFlags
	host      string
	cacheOnly bool
}

func newAnnotateCommand(f *globalFlags) *cobra.Command {
	opts := &annotateOptions{}
	cmd := &cobra.Command{
		Use:   "annotate [file]",
		Short: "Substitute vocabulary into an HTML page",
		Long: `annotate reads an HTML page from a file or stdin and replaces a few words
of each paragraph with their translation. Cached words are applied at once;
the rest are resolved by the configured provider.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAnnotate(cmd, f, opts, args)
		},
	}
	fs := cmd.Flags()
	opts.out.register(fs)
	opts.vp.register(fs)
	fs.StringVar(&opts.host, "host", "", "host name the page came from, checked against the site rules")
	fs.BoolVar(&opts.cacheOnly, "cache-only", false, "only use cached words, never call the provider")
	return cmd
}

// AnnotateOutput is the JSON output of the annotate command.
type AnnotateOutput struct {
	Content       string                  `json:"content"`
	Session       string                  `json:"session"`
	Disabled      bool                    `json:"disabled,omitempty"`
	Excluded      bool                    `json:"excluded,omitempty"`
	Substitutions []SubstitutionOutput    `json:"substitutions"`
	Stats         wordweave.StatsSnapshot `json:"stats"`
	ElapsedMs     int64                   `json:"elapsed_ms"`
}

// SubstitutionOutput is one applied substitution.
type SubstitutionOutput struct {
	Original    string `json:"original"`
	Translation string `json:"translation"`
	Phonetic    string `json:"phonetic,omitempty"`
	Difficulty  string `json:"difficulty"`
	Source      string `json:"source"`
}

func runAnnotate(cmd *cobra.Command, f *globalFlags, opts *annotateOptions, args []string) error {
	input, name, err := readInput(cmd.InOrStdin(), args)
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	stderr := cmd.ErrOrStderr()

	rt, err := openRuntime(ctx, f, stderr, opts.cacheOnly)
	if err != nil {
		return err
	}
	defer rt.Close()

	doc, err := processor.ParseHTML(input)
	if err != nil {
		return err
	}

	schedOpts := append(rt.schedulerOptions(),
		scheduler.WithHost(opts.host),
		scheduler.WithViewport(opts.vp.viewport(rt.cfg.Scheduler)))
	s := scheduler.New(doc, rt.orch, schedOpts...)
	defer s.Close()

	if !f.quiet {
		fmt.Fprintf(stderr, "Annotating %s (%s)...\n", name, rt.cfg.TargetLanguage)
	}

	start := time.Now()
	page := s.ProcessPage(ctx)

	waitCtx, cancel := context.WithTimeout(ctx, rt.cfg.Provider.Timeout)
	defer cancel()
	if err := s.Wait(waitCtx); err != nil {
		rt.logger.Warn("stopped waiting for pending regions", "error", err, "session", s.Session())
	}
	elapsed := time.Since(start)

	content, err := s.HTML()
	if err != nil {
		return err
	}
	subs := s.Substitutions()

	w, closeOut, err := opts.out.open(cmd.OutOrStdout())
	if err != nil {
		return err
	}
	defer closeOut()

	if opts.out.json {
		out := AnnotateOutput{
			Content:       content,
			Session:       s.Session(),
			Disabled:      page.Disabled,
			Excluded:      page.Excluded,
			Substitutions: make([]SubstitutionOutput, 0, len(subs)),
			Stats:         rt.orch.Stats().Snapshot(),
			ElapsedMs:     elapsed.Milliseconds(),
		}
		for _, r := range subs {
			out.Substitutions = append(out.Substitutions, SubstitutionOutput{
				Original:    r.Original,
				Translation: r.Translation,
				Phonetic:    r.Phonetic,
				Difficulty:  string(r.Difficulty),
				Source:      string(r.Provenance),
			})
		}
		return writeJSON(w, out)
	}

	fmt.Fprint(w, content)

	if !f.quiet {
		switch {
		case page.Disabled:
			fmt.Fprintln(stderr, "\nwordweave is disabled in the configuration; page left unchanged")
		case page.Excluded:
			fmt.Fprintf(stderr, "\n%s is excluded by the site rules; page left unchanged\n", opts.host)
		default:
			cached := 0
			for _, r := range subs {
				if r.Provenance == wordweave.FromCache {
					cached++
				}
			}
			fmt.Fprintf(stderr, "\nDone in %v\n", elapsed.Round(time.Millisecond))
			fmt.Fprintf(stderr, "  Substituted:   %d\n", len(subs))
			fmt.Fprintf(stderr, "  From cache:    %d\n", cached)
			fmt.Fprintf(stderr, "  From provider: %d\n", len(subs)-cached)
			if page.Observing > 0 {
				fmt.Fprintf(stderr, "  Off screen:    %d regions\n", page.Observing)
			}
		}
	}
	return nil
}

func newRestoreCommand(f *globalFlags) *cobra.Command {
	var out outputFlags
	cmd := &cobra.Command{
		Use:   "restore [file]",
		Short: "Revert every substitution in an annotated page",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			input, _, err := readInput(cmd.InOrStdin(), args)
			if err != nil {
				return err
			}
			doc, err := processor.ParseHTML(input)
			if err != nil {
				return err
			}
			n := processor.RestoreAll(doc.Root())
			content, err := doc.HTML()
			if err != nil {
				return err
			}

			w, closeOut, err := out.open(cmd.OutOrStdout())
			if err != nil {
				return err
			}
			defer closeOut()

			if out.json {
				return writeJSON(w, struct {
					Content  string `json:"content"`
					Restored int    `json:"restored"`
				}{content, n})
			}
			fmt.Fprint(w, content)
			if !f.quiet {
				fmt.Fprintf(cmd.ErrOrStderr(), "\nRestored %d substitutions\n", n)
			}
			return nil
		},
	}
	out.register(cmd.Flags())
	return cmd
}
