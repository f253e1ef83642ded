package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/trezcool/kusoma/core/user"
)

func (cli *commandLine) resetPasswordCmd() *cobra.Command {
	var email string
	cmd := &cobra.Command{
		Use:   "resetpassword",
		Short: "Reset a user's password; the new password is prompted next",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requireFlag(cmd, email); err != nil {
				return err
			}
			pwd, err := cli.promptPassword(cmd)
			if err != nil {
				return err
			}
			if err = cli.resetPassword(cmd, email, pwd); err != nil {
				return err
			}
			_, _ = fmt.Fprintln(cli.out, "password updated")
			return nil
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "The user's email.")
	return cmd
}

func (cli *commandLine) resetPassword(cmd *cobra.Command, email, pwd string) error {
	rp := user.ResetUserPassword{Email: email, Password: pwd}
	if err := rp.Validate(cli.validate); err != nil {
		return err
	}
	return cli.usrSvc.ResetPassword(cmd.Context(), rp)
}
