package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/kayz/charscript/internal/character"
	"github.com/kayz/charscript/internal/charstore"
	"github.com/kayz/charscript/internal/logger"
	"github.com/spf13/cobra"
)

var (
	composeKind     string
	composeTemplate string
	composeInserts  []string
	composeBlocks   bool
	composeShowLogs bool
	composeShowSys  bool
	composeNoStore  bool
)

var composeCmd = &cobra.Command{
	Use:   "compose <character-id>",
	Short: "Compose a character's prompt",
	Long: `Compose a character's prompt from its main template.

Variables persisted from earlier runs are loaded from the store before
composition and the mutated store is saved back afterwards, unless
--no-store is given. Insert values are supplied as repeated
--insert NAME=value flags.`,
	Args: cobra.ExactArgs(1),
	RunE: runCompose,
}

func init() {
	rootCmd.AddCommand(composeCmd)

	composeCmd.Flags().StringVar(&composeKind, "kind", "",
		"Character kind; applies the kind's variable overrides from config")
	composeCmd.Flags().StringVar(&composeTemplate, "template", "",
		"Entry template relative to the character directory (default from config)")
	composeCmd.Flags().StringArrayVar(&composeInserts, "insert", nil,
		"Insert value NAME=text for a {{NAME}} token (repeatable)")
	composeCmd.Flags().BoolVar(&composeBlocks, "blocks", false,
		"Emit per-placeholder blocks instead of full-text expansion")
	composeCmd.Flags().BoolVar(&composeShowLogs, "logs", false,
		"Print the script LOG side channel to stderr")
	composeCmd.Flags().BoolVar(&composeShowSys, "system-info", false,
		"Print collected system info entries to stderr")
	composeCmd.Flags().BoolVar(&composeNoStore, "no-store", false,
		"Do not load or save persisted character variables")
}

func runCompose(cmd *cobra.Command, args []string) error {
	charID := args[0]

	inserts := map[string]string{}
	for _, kv := range composeInserts {
		name, value, ok := strings.Cut(kv, "=")
		if !ok {
			return fmt.Errorf("malformed --insert %q, expected NAME=value", kv)
		}
		inserts[name] = value
	}

	var store *charstore.Store
	var persisted map[string]interface{}
	if !composeNoStore && cfg.StorePath != "" {
		var err error
		store, err = charstore.NewStore(cfg.StorePath)
		if err != nil {
			return fmt.Errorf("open character store: %w", err)
		}
		defer store.Close()
		persisted, err = store.LoadVariables(charID)
		if err != nil {
			return fmt.Errorf("load persisted variables: %w", err)
		}
	}

	template := composeTemplate
	if template == "" {
		template = cfg.MainTemplate
	}

	char, err := character.New(charID, charID, cfg.PromptsRoot,
		character.WithKindOverrides(composeKind, cfg.KindOverrides(composeKind)),
		character.WithInitialVars(persisted),
		character.WithMainTemplate(template),
	)
	if err != nil {
		return err
	}

	var result *character.Result
	if composeBlocks {
		result, err = char.ComposeBlocks(inserts)
	} else {
		result, err = char.Compose(inserts)
	}
	if err != nil {
		return err
	}

	fmt.Println(result.Text)

	if composeShowLogs {
		for _, line := range result.Logs {
			fmt.Fprintln(os.Stderr, line)
		}
	}
	if composeShowSys {
		for _, info := range result.SystemInfo {
			fmt.Fprintln(os.Stderr, info)
		}
	}

	if store != nil {
		if err := store.SaveVariables(charID, char.Vars); err != nil {
			return fmt.Errorf("save character variables: %w", err)
		}
		logger.Debug("saved %d variable(s) for %s", len(char.Vars), charID)
	}
	return nil
}
