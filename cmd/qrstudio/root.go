package main

import (
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/cristianadrielbraun/qrstudio/internal/config"
	"github.com/cristianadrielbraun/qrstudio/internal/logging"
	"github.com/cristianadrielbraun/qrstudio/internal/prefs"
)

// app is the state shared by subcommands once the root has loaded config.
type app struct {
	out, errOut io.Writer
	cfg         config.Config
	log         *logrus.Logger
	prefsPath   string
}

func newRootCmd(out, errOut io.Writer) *cobra.Command {
	a := &app{out: out, errOut: errOut}

	root := &cobra.Command{
		Use:           "qrstudio",
		Short:         "Render styled QR codes from the command line",
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if err := config.LoadDotEnv(); err != nil {
				return err
			}
			cfg, err := config.LoadFromEnv()
			if err != nil {
				return err
			}
			log, err := logging.NewWithOutput(a.errOut, cfg.LogLevel, cfg.LogFormat)
			if err != nil {
				return err
			}
			a.cfg, a.log = cfg, log
			if a.prefsPath == "" {
				if a.prefsPath, err = prefs.DefaultPath(); err != nil {
					return err
				}
			}
			return nil
		},
	}
	root.SetOut(out)
	root.SetErr(errOut)
	root.PersistentFlags().StringVar(&a.prefsPath, "prefs", "", "preferences file (default $XDG_CONFIG_HOME/qrstudio/prefs.json)")

	root.AddCommand(newRenderCmd(a), newPreviewCmd(a), newThemeCmd(a))
	return root
}

func (a *app) preference() *prefs.Preference {
	return prefs.NewPreference(prefs.NewFileStore(a.prefsPath), terminalIsDark(os.Getenv("COLORFGBG")))
}

// terminalIsDark reads the background index from a COLORFGBG value such
// as "15;0". Unknown values are treated as light.
func terminalIsDark(colorfgbg string) bool {
	parts := strings.Split(colorfgbg, ";")
	bg, err := strconv.Atoi(parts[len(parts)-1])
	if err != nil {
		return false
	}
	return bg < 7 || bg == 8
}
