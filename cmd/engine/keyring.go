package main

import (
	"bufio"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"techflow-engine/internal/secrets"
)

func keyringCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "keyring",
		Short: "Manage channel credentials in the OS keyring",
	}

	var value string
	set := &cobra.Command{
		Use:     "set <channel> <field>",
		Short:   "Store a credential (read from --value or stdin)",
		Example: "  engine keyring set telegram token\n  engine keyring set email password",
		Args:    cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			v := value
			if v == "" {
				line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
				if err != nil && line == "" {
					return fmt.Errorf("read secret from stdin: %w", err)
				}
				v = strings.TrimSpace(line)
			}
			if err := secrets.Set(args[0], args[1], v); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "stored %s\n", secrets.Account(args[0], args[1]))
			return nil
		},
	}
	set.Flags().StringVar(&value, "value", "", "secret value (prefer stdin)")

	del := &cobra.Command{
		Use:   "delete <channel> <field>",
		Short: "Remove a stored credential",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := secrets.Delete(args[0], args[1]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "deleted %s\n", secrets.Account(args[0], args[1]))
			return nil
		},
	}

	cmd.AddCommand(set, del)
	return cmd
}
