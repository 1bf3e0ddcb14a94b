package cmd

import (
	"fmt"
	"os"

	"github.com/kayz/charscript/internal/ast"
	"github.com/spf13/cobra"
)

var fmtWrite bool

var fmtCmd = &cobra.Command{
	Use:   "fmt <script-file>...",
	Short: "Reformat script files",
	Long: `Parse script files and regenerate them in canonical form: one
statement per line, IF bodies indented, keywords upper-cased. Prints the
result to stdout unless --write rewrites the files in place. Files with
parse errors are left untouched.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runFmt,
}

func init() {
	rootCmd.AddCommand(fmtCmd)

	fmtCmd.Flags().BoolVarP(&fmtWrite, "write", "w", false,
		"Rewrite files in place instead of printing to stdout")
}

func runFmt(cmd *cobra.Command, args []string) error {
	for _, path := range args {
		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		script, parseErrs := ast.Parse(string(data))
		if len(parseErrs) > 0 {
			for _, pe := range parseErrs {
				fmt.Fprintf(os.Stderr, "%s: line %d: %s\n", path, pe.Line, pe.Msg)
			}
			return fmt.Errorf("%s has parse errors, not formatting", path)
		}
		out := ast.Generate(script)
		if fmtWrite {
			info, err := os.Stat(path)
			if err != nil {
				return err
			}
			if err := os.WriteFile(path, []byte(out), info.Mode().Perm()); err != nil {
				return err
			}
		} else {
			fmt.Print(out)
		}
	}
	return nil
}
