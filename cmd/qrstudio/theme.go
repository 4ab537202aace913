package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/cristianadrielbraun/qrstudio/internal/prefs"
)

func newThemeCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:       "theme [light|dark|system]",
		Short:     "Show or store the preferred theme",
		Args:      cobra.MaximumNArgs(1),
		ValidArgs: []string{"light", "dark", "system"},
		RunE: func(cmd *cobra.Command, args []string) error {
			p := a.preference()
			if len(args) == 1 {
				t, err := prefs.ParseTheme(args[0])
				if err != nil {
					return err
				}
				if err := p.Apply(t); err != nil {
					return err
				}
			}

			stored, err := p.Stored()
			if err != nil {
				return err
			}
			eff, err := p.Effective()
			if err != nil {
				return err
			}
			if stored == prefs.ThemeUnset {
				fmt.Fprintf(a.out, "%s (following system)\n", eff)
				return nil
			}
			fmt.Fprintf(a.out, "%s\n", eff)
			return nil
		},
	}
}
