package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"syscall"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/trezcool/kusoma/core/user"
)

var (
	readPasswordFunc = term.ReadPassword // mockable

	errHelp = errors.New("help provided")
)

type commandLine struct {
	usrSvc   *user.Service
	validate *validator.Validate
	out      io.Writer
}

func (cli *commandLine) rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "admin",
		Short:         "Kusoma administration commands",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			_ = cmd.Help()
			return errHelp
		},
	}
	root.SetOut(cli.out)
	root.SetErr(cli.out)
	root.AddCommand(
		cli.addUserCmd(),
		cli.resetPasswordCmd(),
		cli.weakTopicsCmd(),
		cli.recordResultCmd(),
	)
	return root
}

// run executes the command line; args include the program name.
func (cli *commandLine) run(args []string) error {
	root := cli.rootCmd()
	if len(args) > 0 {
		args = args[1:]
	} else {
		args = []string{} // never fall back to os.Args
	}
	root.SetArgs(args)
	if err := root.ExecuteContext(context.Background()); err != nil {
		if isUsageErr(err) {
			return errHelp
		}
		return err
	}
	return nil
}

// promptPassword reads a password without echoing it; an empty one is a usage error.
func (cli *commandLine) promptPassword(cmd *cobra.Command) (string, error) {
	_, _ = fmt.Fprint(cli.out, "Enter password:")
	pwd, err := readPasswordFunc(int(syscall.Stdin))
	_, _ = fmt.Fprintln(cli.out)
	if err != nil {
		return "", err
	}
	if len(pwd) == 0 {
		_ = cmd.Usage()
		return "", errHelp
	}
	return string(pwd), nil
}

func requireFlag(cmd *cobra.Command, value string) error {
	if value == "" {
		_ = cmd.Usage()
		return errHelp
	}
	return nil
}

func isUsageErr(err error) bool {
	if errors.Is(err, errHelp) {
		return true
	}
	// cobra reports unknown commands and bad flags as plain errors
	msg := err.Error()
	for _, prefix := range []string{"unknown command", "unknown flag", "unknown shorthand flag", "invalid argument", "flag needs an argument"} {
		if strings.HasPrefix(msg, prefix) {
			return true
		}
	}
	return false
}
