package cmd

import (
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/MeKo-Tech/adaptocr/internal/engine"
	"github.com/MeKo-Tech/adaptocr/internal/engine/tesseract"
)

// workerCmd is the recognition subprocess started by the process pool. It
// reads JSON-lines requests on stdin and answers on stdout until stdin closes.
var workerCmd = &cobra.Command{
	Use:          "worker",
	Short:        "Serve recognition requests on stdin/stdout",
	Hidden:       true,
	SilenceUsage: true,
	Annotations:  map[string]string{lenientConfig: "true"},
	RunE:         runWorkerCommand,
}

func init() {
	d := tesseract.DefaultConfig()
	workerCmd.Flags().String("language", d.Language, "default Tesseract language(s)")
	workerCmd.Flags().Int("psm", d.PageSegMode, "default page segmentation mode")
	workerCmd.Flags().String("tessdata-dir", "", "directory containing Tesseract language data")
	rootCmd.AddCommand(workerCmd)
}

func runWorkerCommand(cmd *cobra.Command, _ []string) error {
	tc := tesseract.DefaultConfig()
	tc.Language, _ = cmd.Flags().GetString("language")
	tc.PageSegMode, _ = cmd.Flags().GetInt("psm")
	tc.TessdataDir, _ = cmd.Flags().GetString("tessdata-dir")

	eng, err := tesseract.New(tc)
	if err != nil {
		return err
	}
	defer func() { _ = eng.Close() }()

	// The parent owns the worker's lifetime; SIGINT from the terminal reaches
	// the whole process group and must not cut a response in half.
	signal.Ignore(os.Interrupt)
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGTERM)
	defer stop()

	slog.Debug("Worker ready", "pid", os.Getpid(), "language", tc.Language, "tesseract", tesseract.Version())
	return engine.Serve(ctx, eng, cmd.InOrStdin(), cmd.OutOrStdout())
}
