package main

import (
	"bufio"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/sanctus-app/sanctus/internal/auth"
)

func newHashPasswordCmd() *cobra.Command {
	var scheme string
	cmd := &cobra.Command{
		Use:   "hash-password [password]",
		Short: "Hash a password for the app_user table",
		Long: `Hash a password with bcrypt (default) or pbkdf2_sha256.
When no argument is given the password is read from the first line of stdin.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			plain := ""
			if len(args) == 1 {
				plain = args[0]
			} else {
				line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
				if err != nil && line == "" {
					return errors.New("no password supplied")
				}
				plain = strings.TrimRight(line, "\r\n")
			}
			if plain == "" {
				return errors.New("password must not be empty")
			}
			hash, err := auth.HashPassword(plain, scheme)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), hash)
			return err
		},
	}
	cmd.Flags().StringVar(&scheme, "scheme", auth.SchemeBcrypt, "hash scheme: bcrypt or pbkdf2_sha256")
	return cmd
}
