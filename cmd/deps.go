package cmd

import (
	"fmt"
	"path/filepath"

	"github.com/kayz/charscript/internal/deps"
	"github.com/kayz/charscript/internal/resolver"
	"github.com/spf13/cobra"
)

var depsEntry string

var depsCmd = &cobra.Command{
	Use:   "deps <character-id>",
	Short: "List a character's prompt file dependencies",
	Long: `List every prompt file reachable from a character's entry template,
in discovery order, without executing any scripts. Conditional loads are
included regardless of whether a run would take their branch.`,
	Args: cobra.ExactArgs(1),
	RunE: runDeps,
}

func init() {
	rootCmd.AddCommand(depsCmd)

	depsCmd.Flags().StringVar(&depsEntry, "entry", "",
		"Entry template relative to the character directory (default from config)")
}

func runDeps(cmd *cobra.Command, args []string) error {
	charID := args[0]

	root, err := filepath.Abs(cfg.PromptsRoot)
	if err != nil {
		return fmt.Errorf("resolve prompts root: %w", err)
	}
	res, err := resolver.New(root, filepath.Join(root, charID), nil)
	if err != nil {
		return err
	}

	entry := depsEntry
	if entry == "" {
		entry = cfg.MainTemplate
	}

	files, err := deps.New(res).Collect(entry)
	if err != nil {
		return err
	}
	for _, id := range files {
		rel, relErr := filepath.Rel(root, string(id))
		if relErr != nil {
			rel = string(id)
		}
		fmt.Println(filepath.ToSlash(rel))
	}
	return nil
}
