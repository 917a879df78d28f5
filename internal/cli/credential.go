package cli

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"slices"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/nhle/agentic-planner/internal/credential"
	apperrors "github.com/nhle/agentic-planner/internal/errors"
	"github.com/nhle/agentic-planner/internal/theme"
)

func addCredentialCommand(parent *cobra.Command, rt *runtime) {
	cmd := &cobra.Command{
		Use:   "credential",
		Short: "Manage secrets in the OS keyring",
	}
	addCredentialSetCmd(cmd, rt)
	parent.AddCommand(cmd)
}

func addCredentialSetCmd(parent *cobra.Command, rt *runtime) {
	cmd := &cobra.Command{
		Use:   "set <key>",
		Short: "Store a secret read from the terminal or stdin",
		Long: fmt.Sprintf(`Store a secret in the OS keyring. Known keys: %s.

Examples:
  planner credential set ai_api_key
  echo "$IMAP_PASSWORD" | planner credential set inbox_password`, strings.Join(credential.Keys(), ", ")),
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			key := args[0]
			if !slices.Contains(credential.Keys(), key) {
				return fmt.Errorf("%w: unknown credential key %q", apperrors.ErrInvalidInput, key)
			}

			value, err := readSecret(cmd.InOrStdin(), cmd.ErrOrStderr(), key)
			if err != nil {
				return err
			}
			if value == "" {
				return fmt.Errorf("%w: empty secret", apperrors.ErrInvalidInput)
			}

			vault, err := credential.Open()
			if err != nil {
				return err
			}
			if err := vault.Set(key, value); err != nil {
				return err
			}

			rt.logger.Debug().Str("key", key).Msg("credential stored")
			fmt.Fprintln(cmd.OutOrStdout(), theme.SuccessStyle.Render("✓ Stored "+key))
			return nil
		},
	}
	parent.AddCommand(cmd)
}

// readSecret prompts without echo on a terminal and reads one line
// otherwise.
func readSecret(in io.Reader, prompt io.Writer, key string) (string, error) {
	if f, ok := in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		fmt.Fprintf(prompt, "%s: ", key)
		b, err := term.ReadPassword(int(f.Fd()))
		fmt.Fprintln(prompt)
		if err != nil {
			return "", fmt.Errorf("reading secret: %w", err)
		}
		return strings.TrimSpace(string(b)), nil
	}

	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && err != io.EOF {
		return "", fmt.Errorf("reading secret: %w", err)
	}
	return strings.TrimSpace(line), nil
}
