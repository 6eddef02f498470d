package main

import (
	"bufio"
	"errors"
	"fmt"
	"strings"

	"github.com/ZaguanLabs/wordweave"
	"github.com/ZaguanLabs/wordweave/cache"
	"github.com/ZaguanLabs/wordweave/config"
	"github.com/ZaguanLabs/wordweave/server"
	"github.com/spf13/cobra"
)

func newCacheCommand(f *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Inspect and manage the translation cache",
	}

	stats := &cobra.Command{
		Use:   "stats",
		Short: "Show cache size and location",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			rt, err := openRuntime(cmd.Context(), f, cmd.ErrOrStderr(), true)
			if err != nil {
				return err
			}
			defer rt.Close()

			out := cmd.OutOrStdout()
			cc := rt.cfg.Cache
			fmt.Fprintf(out, "Store:    %s\n", cc.Store)
			switch cc.Store {
			case config.StoreFile, config.StoreSQLite:
				fmt.Fprintf(out, "Path:     %s\n", cc.Path)
			case config.StoreRedis:
				fmt.Fprintf(out, "Key:      %s\n", cc.RedisKey)
			}
			fmt.Fprintf(out, "Entries:  %d / %d\n", rt.cache.Len(), rt.cache.Capacity())

			pairs := map[string]int{}
			for _, r := range rt.cache.Entries() {
				pairs[r.SourceLang+" -> "+r.TargetLang]++
			}
			for pair, n := range pairs {
				fmt.Fprintf(out, "  %-16s %d\n", pair, n)
			}
			return nil
		},
	}

	clearCmd := &cobra.Command{
		Use:   "clear",
		Short: "Remove every cached translation",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			rt, err := openRuntime(cmd.Context(), f, cmd.ErrOrStderr(), true)
			if err != nil {
				return err
			}
			defer rt.Close()

			n := rt.cache.Len()
			rt.cache.Clear()
			if err := rt.cache.Flush(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Removed %d entries\n", n)
			return nil
		},
	}

	export := &cobra.Command{
		Use:   "export <file>",
		Short: "Write the cache to a JSON file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := openRuntime(cmd.Context(), f, cmd.ErrOrStderr(), true)
			if err != nil {
				return err
			}
			defer rt.Close()

			meta := map[string]string{
				"native_language": rt.cfg.NativeLanguage,
				"target_language": rt.cfg.TargetLanguage,
				"version":         wordweave.Version,
			}
			if err := cache.NewExporter(rt.cache).ExportToFile(args[0], meta); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Exported %d entries to %s\n", rt.cache.Len(), args[0])
			return nil
		},
	}

	imp := &cobra.Command{
		Use:   "import <file>",
		Short: "Merge translations from a JSON export into the cache",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := openRuntime(cmd.Context(), f, cmd.ErrOrStderr(), true)
			if err != nil {
				return err
			}
			defer rt.Close()

			res, err := cache.NewImporter(rt.cache).ImportFromFile(args[0])
			if err != nil {
				return err
			}
			if err := rt.cache.Flush(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Imported %d entries", res.Imported)
			if res.Failed > 0 {
				fmt.Fprintf(cmd.OutOrStdout(), " (%d malformed entries skipped)", res.Failed)
			}
			fmt.Fprintln(cmd.OutOrStdout())
			return nil
		},
	}

	cmd.AddCommand(stats, clearCmd, export, imp)
	return cmd
}

func newKeyCommand(f *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "key",
		Short: "Manage the provider API key in the OS keychain",
	}

	set := &cobra.Command{
		Use:   "set [key]",
		Short: "Store the API key (read from stdin when omitted)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var key string
			if len(args) == 1 {
				key = args[0]
			} else {
				line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
				if err != nil && line == "" {
					return fmt.Errorf("reading key: %w", err)
				}
				key = line
			}
			key = strings.TrimSpace(key)
			if key == "" {
				return errors.New("API key must not be empty")
			}
			if err := config.SaveAPIKey(key); err != nil {
				return fmt.Errorf("saving key to keychain: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "API key saved to the keychain")
			return nil
		},
	}

	del := &cobra.Command{
		Use:   "delete",
		Short: "Remove the API key from the keychain",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := config.DeleteAPIKey(); err != nil {
				return fmt.Errorf("removing key from keychain: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "API key removed from the keychain")
			return nil
		},
	}

	status := &cobra.Command{
		Use:   "status",
		Short: "Show where the API key is read from",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(f)
			if err != nil {
				return err
			}
			key, source := cfg.APIKey()
			if key == "" {
				fmt.Fprintln(cmd.OutOrStdout(), "No API key configured; only cached words will be used")
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "API key %s (from %s)\n", maskKey(key), source)
			return nil
		},
	}

	cmd.AddCommand(set, del, status)
	return cmd
}

// maskKey keeps the first and last four characters of long keys.
func maskKey(key string) string {
	if len(key) <= 12 {
		return strings.Repeat("*", len(key))
	}
	return key[:4] + strings.Repeat("*", len(key)-8) + key[len(key)-4:]
}

func newServeCommand(f *globalFlags) *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			rt, err := openRuntime(cmd.Context(), f, cmd.ErrOrStderr(), false)
			if err != nil {
				return err
			}
			defer rt.Close()

			sc := rt.cfg.Server
			if addr == "" {
				addr = sc.Addr
			}
			srv := server.New(rt.orch,
				server.WithLogger(rt.logger),
				server.WithSchedulerOptions(rt.schedulerOptions()...),
				server.WithMaxBodyBytes(sc.MaxBodyBytes))
			return srv.ListenAndServe(cmd.Context(), addr, sc.ReadTimeout, sc.WriteTimeout)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (overrides server.addr)")
	return cmd
}
