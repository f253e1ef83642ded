package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/trezcool/kusoma/core/user"
)

func (cli *commandLine) addUserCmd() *cobra.Command {
	var nu user.NewUser
	cmd := &cobra.Command{
		Use:   "adduser",
		Short: "Create a student account; the password is prompted next",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requireFlag(cmd, nu.Email); err != nil {
				return err
			}
			if err := requireFlag(cmd, nu.Name); err != nil {
				return err
			}
			pwd, err := cli.promptPassword(cmd)
			if err != nil {
				return err
			}
			nu.Password = pwd
			usr, err := cli.addUser(cmd, nu)
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cli.out, "created user %s <%s>\n", usr.ID, usr.Email)
			return nil
		},
	}
	cmd.Flags().StringVar(&nu.Name, "name", "", "The student's name.")
	cmd.Flags().StringVar(&nu.Email, "email", "", "The student's email, used to log in.")
	cmd.Flags().StringVar(&nu.Standard, "standard", "", "The student's grade/standard.")
	cmd.Flags().StringSliceVar(&nu.WeakTopics, "topic", nil, "A weak topic (repeatable).")
	return cmd
}

// addUser validates and creates a user.User
func (cli *commandLine) addUser(cmd *cobra.Command, nu user.NewUser) (user.User, error) {
	if err := nu.Validate(cli.validate); err != nil {
		return user.User{}, err
	}
	return cli.usrSvc.Create(cmd.Context(), nu)
}
