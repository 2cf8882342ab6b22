package main

import (
	"errors"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"querylite/internal/tui"
)

// isTerminal checks if the given file is a terminal.
func isTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}

func newBrowseCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "browse",
		Short: "Browse posts in an interactive terminal UI",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !isTerminal(os.Stdout) || !isTerminal(os.Stdin) {
				return errors.New("browse requires an interactive terminal")
			}
			svc, err := a.newService()
			if err != nil {
				return err
			}
			defer svc.Client().Close()
			return tui.Run(cmd.Context(), tui.Options{
				Client: svc.Client(),
				Query:  a.queryOptions(),
			})
		},
	}
}
