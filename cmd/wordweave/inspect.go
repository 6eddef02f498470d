package main

import (
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"unicode/utf8"

	"github.com/ZaguanLabs/wordweave"
	"github.com/ZaguanLabs/wordweave/processor"
	"github.com/spf13/cobra"
)

func findAllSegments(content string) ([]wordweave.Segment, error) {
	doc, err := processor.ParseHTML(content)
	if err != nil {
		return nil, err
	}
	return processor.FindSegments(doc.Root(), processor.SegmentOptions{MaxSegments: math.MaxInt32}), nil
}

// shorten cuts text to n runes, marking the cut with an ellipsis.
func shorten(text string, n int) string {
	if utf8.RuneCountInString(text) <= n {
		return text
	}
	return wordweave.TruncateText(text, n-3) + "..."
}

func newScanCommand() *cobra.Command {
	var out outputFlags
	cmd := &cobra.Command{
		Use:   "scan [file]",
		Short: "List the regions of a page that would be processed",
		Long: `scan shows the text regions annotate would consider, without looking
anything up. Regions already processed are not listed.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			input, name, err := readInput(cmd.InOrStdin(), args)
			if err != nil {
				return err
			}
			segments, err := findAllSegments(input)
			if err != nil {
				return fmt.Errorf("extracting regions: %w", err)
			}

			w, closeOut, err := out.open(cmd.OutOrStdout())
			if err != nil {
				return err
			}
			defer closeOut()

			if out.json {
				type region struct {
					Path        string `json:"path"`
					Fingerprint string `json:"fingerprint"`
					Text        string `json:"text"`
				}
				result := struct {
					InputFile   string   `json:"input_file"`
					RegionCount int      `json:"region_count"`
					Regions     []region `json:"regions"`
				}{InputFile: name, RegionCount: len(segments), Regions: []region{}}
				for _, seg := range segments {
					result.Regions = append(result.Regions, region{seg.Path, seg.Fingerprint, seg.Text})
				}
				return writeJSON(w, result)
			}

			fmt.Fprintf(w, "Scan: %s\n", name)
			fmt.Fprintf(w, "Found %d text regions:\n\n", len(segments))
			for i, seg := range segments {
				fmt.Fprintf(w, "%3d. %q\n", i+1, shorten(seg.Text, 60))
				fmt.Fprintf(w, "     Path: %s\n", seg.Path)
			}
			return nil
		},
	}
	out.register(cmd.Flags())
	return cmd
}

func newDiffCommand() *cobra.Command {
	var jsonOut bool
	cmd := &cobra.Command{
		Use:   "diff <previous> <current>",
		Short: "Compare the text regions of two versions of a page",
		Long: `diff reports which regions were added, removed or changed between two
versions of a page, i.e. which ones annotate would process again.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			oldData, err := os.ReadFile(args[0]) // #nosec G304 - CLI tool reads user-specified files
			if err != nil {
				return fmt.Errorf("reading previous version: %w", err)
			}
			newData, err := os.ReadFile(args[1]) // #nosec G304 - CLI tool reads user-specified files
			if err != nil {
				return fmt.Errorf("reading current version: %w", err)
			}
			oldSegs, err := findAllSegments(string(oldData))
			if err != nil {
				return fmt.Errorf("parsing previous version: %w", err)
			}
			newSegs, err := findAllSegments(string(newData))
			if err != nil {
				return fmt.Errorf("parsing current version: %w", err)
			}

			diff := wordweave.DiffSegmentsWithContext(oldSegs, newSegs)
			if jsonOut {
				return writeDiffJSON(cmd.OutOrStdout(), args, diff)
			}
			writeDiffText(cmd.OutOrStdout(), args, diff)
			return nil
		},
	}
	cmd.Flags().BoolVar(&jsonOut, "json", false, "output result as JSON")
	return cmd
}

func writeDiffJSON(w io.Writer, args []string, diff *wordweave.DiffResult) error {
	type modified struct {
		Path string `json:"path"`
		Old  string `json:"old"`
		New  string `json:"new"`
	}
	stats := diff.Stats()
	out := struct {
		PreviousFile string `json:"previous_file"`
		CurrentFile  string `json:"current_file"`
		Stats        struct {
			Added     int `json:"added"`
			Removed   int `json:"removed"`
			Modified  int `json:"modified"`
			Unchanged int `json:"unchanged"`
		} `json:"stats"`
		NeedsProcessing []string   `json:"needs_processing"`
		Added           []string   `json:"added,omitempty"`
		Removed         []string   `json:"removed,omitempty"`
		Modified        []modified `json:"modified,omitempty"`
	}{
		PreviousFile:    filepath.Base(args[0]),
		CurrentFile:     filepath.Base(args[1]),
		NeedsProcessing: []string{},
	}
	out.Stats.Added = stats.Added
	out.Stats.Removed = stats.Removed
	out.Stats.Modified = stats.Modified
	out.Stats.Unchanged = stats.Unchanged

	for _, s := range diff.NeedsProcessing() {
		out.NeedsProcessing = append(out.NeedsProcessing, s.Text)
	}
	for _, s := range diff.Added {
		out.Added = append(out.Added, s.Text)
	}
	for _, s := range diff.Removed {
		out.Removed = append(out.Removed, s.Text)
	}
	for _, m := range diff.Modified {
		out.Modified = append(out.Modified, modified{Path: m.New.Path, Old: m.Old.Text, New: m.New.Text})
	}
	return writeJSON(w, out)
}

func writeDiffText(w io.Writer, args []string, diff *wordweave.DiffResult) {
	stats := diff.Stats()
	fmt.Fprintf(w, "Diff: %s vs %s\n\n", filepath.Base(args[1]), filepath.Base(args[0]))
	fmt.Fprintf(w, "Summary:\n")
	fmt.Fprintf(w, "  Unchanged: %d\n", stats.Unchanged)
	fmt.Fprintf(w, "  Added:     %d\n", stats.Added)
	fmt.Fprintf(w, "  Removed:   %d\n", stats.Removed)
	fmt.Fprintf(w, "  Modified:  %d\n\n", stats.Modified)

	if !diff.HasChanges() {
		fmt.Fprintf(w, "No changes detected.\n")
		return
	}
	fmt.Fprintf(w, "Needs processing: %d regions\n\n", len(diff.NeedsProcessing()))

	if len(diff.Added) > 0 {
		fmt.Fprintf(w, "Added:\n")
		for _, s := range diff.Added {
			fmt.Fprintf(w, "  + %q\n", shorten(s.Text, 50))
		}
		fmt.Fprintln(w)
	}
	if len(diff.Modified) > 0 {
		fmt.Fprintf(w, "Modified:\n")
		for _, m := range diff.Modified {
			fmt.Fprintf(w, "  ~ %s: %q -> %q\n", m.New.Path, shorten(m.Old.Text, 30), shorten(m.New.Text, 30))
		}
		fmt.Fprintln(w)
	}
	if len(diff.Removed) > 0 {
		fmt.Fprintf(w, "Removed:\n")
		for _, s := range diff.Removed {
			fmt.Fprintf(w, "  - %q\n", shorten(s.Text, 50))
		}
		fmt.Fprintln(w)
	}
}
