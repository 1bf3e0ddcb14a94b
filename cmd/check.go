package cmd

import (
	"fmt"
	"os"

	"github.com/kayz/charscript/internal/ast"
	"github.com/spf13/cobra"
)

var checkCmd = &cobra.Command{
	Use:   "check <script-file>...",
	Short: "Statically check script files",
	Long: `Parse script files and report structural and expression problems
without executing them. Exits non-zero when any file has an error-level
issue; warnings alone do not fail the check.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runCheck,
}

func init() {
	rootCmd.AddCommand(checkCmd)
}

func runCheck(cmd *cobra.Command, args []string) error {
	failed := false
	for _, path := range args {
		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		issues := ast.Check(string(data))
		for _, issue := range issues {
			fmt.Printf("%s: %s\n", path, issue)
			if issue.Severity == "error" {
				failed = true
			}
		}
	}
	if failed {
		return fmt.Errorf("check failed")
	}
	return nil
}
