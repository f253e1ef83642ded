package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

func (cli *commandLine) weakTopicsCmd() *cobra.Command {
	var (
		email  string
		topics []string
	)
	cmd := &cobra.Command{
		Use:   "weaktopics",
		Short: "Replace a student's weak topics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requireFlag(cmd, email); err != nil {
				return err
			}
			if err := cli.usrSvc.SetWeakTopics(cmd.Context(), email, topics); err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cli.out, "weak topics set: [%s]\n", strings.Join(topics, ", "))
			return nil
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "The student's email.")
	cmd.Flags().StringSliceVar(&topics, "topic", nil, "A weak topic (repeatable); none clears the list.")
	return cmd
}

func (cli *commandLine) recordResultCmd() *cobra.Command {
	var (
		email string
		marks float64
	)
	cmd := &cobra.Command{
		Use:   "recordresult",
		Short: "Append a quiz result to a student's history",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requireFlag(cmd, email); err != nil {
				return err
			}
			if !cmd.Flags().Changed("marks") {
				_ = cmd.Usage()
				return errHelp
			}
			quiz, err := cli.usrSvc.RecordResult(cmd.Context(), email, marks)
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cli.out, "recorded quiz %d: %g\n", quiz, marks)
			return nil
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "The student's email.")
	cmd.Flags().Float64Var(&marks, "marks", 0, "The marks obtained.")
	return cmd
}
