package main

import (
	"errors"
	"fmt"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/ZaguanLabs/wordweave"
	"github.com/ZaguanLabs/wordweave/config"
	"github.com/spf13/cobra"
)

func newWordsCommand(f *globalFlags) *cobra.Command {
	var (
		jsonOut   bool
		cacheOnly bool
	)
	cmd := &cobra.Command{
		Use:   "words <word>...",
		Short: "Translate specific words",
		Long: `words translates the given words, from the cache when possible and
through the provider otherwise. New translations are cached.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := openRuntime(cmd.Context(), f, cmd.ErrOrStderr(), cacheOnly)
			if err != nil {
				return err
			}
			defer rt.Close()

			items, err := rt.orch.TranslateWords(cmd.Context(), args)
			if err != nil && len(items) == 0 {
				return err
			}
			if err != nil {
				rt.logger.Warn("some words could not be translated", "error", err)
			}

			if jsonOut {
				if items == nil {
					items = []wordweave.ParsedTranslation{}
				}
				return writeJSON(cmd.OutOrStdout(), items)
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			for _, it := range items {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", it.Original, it.Translation, it.Phonetic, it.Difficulty)
			}
			if err := tw.Flush(); err != nil {
				return err
			}
			if missing := len(args) - len(items); missing > 0 && !f.quiet {
				fmt.Fprintf(cmd.ErrOrStderr(), "%d words not translated\n", missing)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&jsonOut, "json", false, "output result as JSON")
	cmd.Flags().BoolVar(&cacheOnly, "cache-only", false, "only use cached words, never call the provider")
	return cmd
}

func newLearnCommand(f *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "learn <word>",
		Short: "Mark a word as learned so it is no longer substituted",
		Long: `learn adds the word to learned_words in the config file. Its cached
translation, if any, is recorded alongside.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			word := strings.TrimSpace(args[0])
			if word == "" {
				return errors.New("word must not be empty")
			}

			rt, err := openRuntime(cmd.Context(), f, cmd.ErrOrStderr(), true)
			if err != nil {
				return err
			}
			defer rt.Close()

			lw := wordweave.LearnedWord{Original: word, AddedAt: time.Now().Unix()}
			src, tgt := wordweave.LanguagePair(word, rt.orch.Settings())
			if e, ok := rt.cache.Get(word, src, tgt); ok {
				lw.Word = e.Translation
				lw.Difficulty = e.Difficulty
			}

			path := rt.cfg.LearnedFile()
			added, err := config.AddLearnedWord(path, lw)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if !added {
				fmt.Fprintf(out, "%q is already learned\n", word)
				return nil
			}
			fmt.Fprintf(out, "Learned %q", word)
			if lw.Word != "" {
				fmt.Fprintf(out, " (%s)", lw.Word)
			}
			fmt.Fprintf(out, ", saved to %s\n", path)
			return nil
		},
	}
}
