package cobra

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/nrchamb/QBDTestTool-Verosa/internal/errors"
)

func newCompletionCmd() *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "completion <shell>",
		Short: "Generate shell completion scripts",
		Long: `Generate shell completion scripts.
By default, prints the script to stdout.
Use --output to write directly to a file.

Arguments:
  shell    target shell: bash or zsh

Installation:

  bash (with bash-completion package):
    qbdtest completion bash > ~/.local/share/bash-completion/completions/qbdtest

  bash (manual):
    qbdtest completion bash > ~/.qbdtest-completion.bash
    echo 'source ~/.qbdtest-completion.bash' >> ~/.bashrc

  zsh (with fpath):
    qbdtest completion zsh > ~/.zsh/completions/_qbdtest
    # ensure ~/.zsh/completions is in fpath before compinit

After installation, restart your shell.`,
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{"bash", "zsh"},
		RunE: func(cmd *cobra.Command, args []string) error {
			shell := args[0]
			rootCmd := cmd.Root()

			if output != "" {
				dir := filepath.Dir(output)
				if err := os.MkdirAll(dir, 0755); err != nil {
					return errors.Wrap(errors.EInternal, fmt.Sprintf("failed to create directory %s", dir), err)
				}

				// Write to file atomically using temp file + rename
				tmpPath := output + ".tmp"
				f, err := os.Create(tmpPath)
				if err != nil {
					return errors.Wrap(errors.EInternal, fmt.Sprintf("failed to create %s", output), err)
				}
				defer func() { _ = f.Close() }()

				if genErr := generateCompletion(rootCmd, shell, f); genErr != nil {
					_ = os.Remove(tmpPath)
					return genErr
				}
				if err := f.Close(); err != nil {
					_ = os.Remove(tmpPath)
					return errors.Wrap(errors.EInternal, fmt.Sprintf("failed to write %s", output), err)
				}
				if err := os.Rename(tmpPath, output); err != nil {
					_ = os.Remove(tmpPath)
					return errors.Wrap(errors.EInternal, fmt.Sprintf("failed to rename to %s", output), err)
				}
				return nil
			}

			return generateCompletion(rootCmd, shell, cmd.OutOrStdout())
		},
	}

	cmd.Flags().StringVar(&output, "output", "", "write completion script to file instead of stdout")

	return cmd
}

func generateCompletion(rootCmd *cobra.Command, shell string, w io.Writer) error {
	switch shell {
	case "bash":
		if err := rootCmd.GenBashCompletion(w); err != nil {
			return errors.Wrap(errors.EInternal, "failed to generate completion script", err)
		}
	case "zsh":
		if err := rootCmd.GenZshCompletion(w); err != nil {
			return errors.Wrap(errors.EInternal, "failed to generate completion script", err)
		}
	default:
		return errors.New(errors.EUsage, fmt.Sprintf("unsupported shell: %s (supported: bash, zsh)", shell))
	}
	return nil
}
