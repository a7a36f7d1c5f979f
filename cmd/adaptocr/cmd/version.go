package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/MeKo-Tech/adaptocr/internal/engine/tesseract"
	"github.com/MeKo-Tech/adaptocr/internal/version"
)

var versionCmd = &cobra.Command{
	Use:         "version",
	Short:       "Print build and engine versions",
	Args:        cobra.NoArgs,
	Annotations: map[string]string{lenientConfig: "true"},
	Run: func(cmd *cobra.Command, _ []string) {
		v, commit, built := version.Info()
		out := cmd.OutOrStdout()
		_, _ = fmt.Fprintf(out, "adaptocr %s\n", v)
		_, _ = fmt.Fprintf(out, "  commit:    %s\n", commit)
		_, _ = fmt.Fprintf(out, "  built:     %s\n", built)
		_, _ = fmt.Fprintf(out, "  tesseract: %s\n", tesseract.Version())
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
