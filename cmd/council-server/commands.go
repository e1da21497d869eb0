package main

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"council-assistant-backend/internal/assistant"
	"council-assistant-backend/internal/catalog"
	"council-assistant-backend/internal/config"
)

// --- ask ---

var askCmd = &cobra.Command{
	Use:   "ask [query...]",
	Short: "Answer queries the way the chat panel would",
	Long: `Answer queries the way the chat panel would, without the typing delay.

Each argument is one query; with no arguments, queries are read from stdin,
one per line. The postcode question carries over from one query to the next.

Examples:
  council-server ask "when are my bins collected" "SW1A 1AA"
  council-server ask --state awaiting_postcode "LS1 4AP"
  printf 'council tax\nparking\n' | council-server ask`,
	RunE: runAsk,
}

func init() {
	askCmd.Flags().String("state", "none", "conversation state to start in (none, awaiting_postcode)")
}

func runAsk(cmd *cobra.Command, args []string) error {
	stateFlag, _ := cmd.Flags().GetString("state")
	st, err := assistant.ParseState(stateFlag)
	if err != nil {
		return err
	}
	cat, err := loadCatalog(cfg)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	answer := func(q string) {
		if strings.TrimSpace(q) == "" {
			return
		}
		res := assistant.Resolve(cat, q, st)
		st = res.Next
		printReply(out, q, res)
	}

	if len(args) > 0 {
		for _, q := range args {
			answer(q)
		}
		return nil
	}
	sc := bufio.NewScanner(cmd.InOrStdin())
	for sc.Scan() {
		answer(sc.Text())
	}
	if err := sc.Err(); err != nil {
		return fmt.Errorf("reading queries: %w", err)
	}
	return nil
}

func printReply(w io.Writer, q string, res assistant.Result) {
	fmt.Fprintf(w, "> %s\n", q)
	fmt.Fprintf(w, "[%s] %s\n", res.Entry.Trigger, res.Entry.Text)
	if res.Entry.Link != nil {
		fmt.Fprintf(w, "  %s: %s\n", res.Entry.Link.Label, res.Entry.Link.Href)
	}
	if res.Next != assistant.StateNone {
		fmt.Fprintf(w, "  (next: %s)\n", res.Next)
	}
}

// --- migrate ---

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply session storage migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.Validate(); err != nil {
			return err
		}
		if cfg.StorageDriver != config.DriverPostgres && cfg.StorageDriver != config.DriverSQLite {
			return fmt.Errorf("storage driver %q has no migrations", cfg.StorageDriver)
		}
		database, err := openDatabase(cmd.Context(), cfg, logger)
		if err != nil {
			return err
		}
		defer database.Close()
		fmt.Fprintf(cmd.OutOrStdout(), "%s schema is up to date\n", database.Driver)
		return nil
	},
}

// --- catalog ---

var catalogCmd = &cobra.Command{
	Use:   "catalog",
	Short: "Inspect the response catalog",
}

var catalogCheckCmd = &cobra.Command{
	Use:   "check",
	Short: "Validate the catalog and list triggers that can never match",
	RunE: func(cmd *cobra.Command, args []string) error {
		cat, err := loadCatalog(cfg)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		shadowed := cat.Shadowed()
		for _, sh := range shadowed {
			fmt.Fprintf(out, "warning: %s\n", sh)
		}
		fmt.Fprintf(out, "%d entries, %d shadowed\n", cat.Len(), len(shadowed))
		if strict, _ := cmd.Flags().GetBool("strict"); strict && len(shadowed) > 0 {
			return fmt.Errorf("%d shadowed triggers", len(shadowed))
		}
		return nil
	},
}

var catalogDumpCmd = &cobra.Command{
	Use:   "dump",
	Short: "Print the catalog in use as YAML",
	RunE: func(cmd *cobra.Command, args []string) error {
		cat, err := loadCatalog(cfg)
		if err != nil {
			return err
		}
		b, err := catalog.Marshal(cat)
		if err != nil {
			return err
		}
		_, err = cmd.OutOrStdout().Write(b)
		return err
	},
}

func init() {
	catalogCheckCmd.Flags().Bool("strict", false, "fail when any trigger is shadowed")
	catalogCmd.AddCommand(catalogCheckCmd, catalogDumpCmd)
}
