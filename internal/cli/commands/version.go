package commands

import (
	"runtime"

	"github.com/spf13/cobra"

	"github.com/aki/parley/internal/cli/ui"
)

// Version information - these will be set at build time
var (
	Version   = "dev"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

var versionFormat string

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version information",
	RunE: func(cmd *cobra.Command, args []string) error {
		f, err := newFormatter(cmd, versionFormat)
		if err != nil {
			return err
		}

		info := map[string]string{
			"version":   Version,
			"gitCommit": GitCommit,
			"buildDate": BuildDate,
			"goVersion": runtime.Version(),
			"os":        runtime.GOOS,
			"arch":      runtime.GOARCH,
		}
		return f.Output(info, func(p *ui.Printer) {
			p.Line("parley version %s", Version)
			p.Line("  Git commit: %s", GitCommit)
			p.Line("  Build date: %s", BuildDate)
			p.Line("  Go version: %s", runtime.Version())
			p.Line("  OS/Arch:    %s/%s", runtime.GOOS, runtime.GOARCH)
		})
	},
}

func init() {
	versionCmd.Flags().StringVar(&versionFormat, "format", "pretty", "Output format (pretty, json, yaml)")
}
