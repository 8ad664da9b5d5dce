package main

import (
	"errors"
	"io"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/spf13/cobra"

	"github.com/trezcool/confradar/core/wizard"
)

var errHelp = errors.New("help provided")

type commandLine struct {
	db      *sqlx.DB
	repo    wizard.Repository
	out     io.Writer
	nowFunc func() time.Time // mockable
}

func (cli *commandLine) rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "admin",
		Short:         "ConfRadar operator commands",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			_ = cmd.Usage()
			return errHelp
		},
	}

	root.AddCommand(&cobra.Command{
		Use:   "migrate COMMAND [ARGS]",
		Short: "Run a goose migration command (up, down, status, ...)",
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				_ = cmd.Usage()
				return errHelp
			}
			return cli.migrate(args)
		},
	})
	root.AddCommand(cli.sessionsCmd())
	return root
}

// run executes the command line; args include the program name.
func (cli *commandLine) run(args []string) error {
	root := cli.rootCmd()
	if cli.out != nil {
		root.SetOut(cli.out)
	}
	root.SetArgs(args[1:])
	return root.Execute()
}
