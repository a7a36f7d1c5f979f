package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/MeKo-Tech/adaptocr/internal/batch"
	"github.com/MeKo-Tech/adaptocr/internal/config"
	"github.com/MeKo-Tech/adaptocr/internal/preprocess"
	"github.com/MeKo-Tech/adaptocr/internal/profile"
	"github.com/MeKo-Tech/adaptocr/internal/recommend"
	"github.com/MeKo-Tech/adaptocr/internal/source"
)

// analyzeCmd prints the profile and recommendation of every frame without
// running recognition.
var analyzeCmd = &cobra.Command{
	Use:   "analyze [files...]",
	Short: "Show the image profile and processing decision for each page",
	Long: `Profile each frame of the given images and PDFs and show the parameters the
recommender would choose: one or two passes, deskew, inversion, contrast boost
and bilevel smoothing. No recognition is run.

Examples:
  adaptocr analyze page.png
  adaptocr analyze scan.pdf --pdf-pages 1 --format json`,
	Args:         cobra.MinimumNArgs(1),
	SilenceUsage: true,
	RunE:         runAnalyzeCommand,
}

// frameAnalysis is one row of analyze output.
type frameAnalysis struct {
	Document string                `json:"document"`
	Page     int                   `json:"page,omitempty"`
	Frame    int                   `json:"frame"`
	Error    string                `json:"error,omitempty"`
	Profile  *profile.ImageProfile `json:"profile,omitempty"`
	Params   *recommend.Params     `json:"params,omitempty"`
}

func init() {
	analyzeCmd.Flags().StringP("format", "f", batch.FormatText, "output format (text, json)")
	analyzeCmd.Flags().String("pdf-pages", "", "PDF pages to analyze, e.g. 1-3,5 (default all)")
	rootCmd.AddCommand(analyzeCmd)
}

func runAnalyzeCommand(cmd *cobra.Command, args []string) error {
	cfg := GetConfig()
	format, _ := cmd.Flags().GetString("format")
	if format != batch.FormatText && format != batch.FormatJSON {
		return fmt.Errorf("unsupported format %q (use text or json)", format)
	}
	opts := cfg.ToSourceOptions()
	if pages, _ := cmd.Flags().GetString("pdf-pages"); pages != "" {
		opts.PDFPages = pages
	}

	rows := analyzeDocuments(source.LoadAll(args, opts), cfg)
	if format == batch.FormatJSON {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(rows)
	}
	return writeAnalysisTable(cmd.OutOrStdout(), rows)
}

func analyzeDocuments(docs []source.Document, cfg *config.Config) []frameAnalysis {
	analyzer := profile.New(cfg.Profile)
	var rows []frameAnalysis
	for _, doc := range docs {
		if doc.Err != nil {
			rows = append(rows, frameAnalysis{Document: doc.Name, Error: doc.Err.Error()})
			continue
		}
		for _, part := range doc.Parts {
			frames, err := preprocess.Decode(part.Data)
			if err != nil {
				rows = append(rows, frameAnalysis{Document: doc.Name, Page: part.Page, Error: err.Error()})
				continue
			}
			for _, fr := range frames {
				row := frameAnalysis{Document: doc.Name, Page: part.Page, Frame: fr.Index}
				if fr.Err != nil {
					row.Error = fr.Err.Error()
					rows = append(rows, row)
					continue
				}
				prof, err := analyzer.Analyze(fr.Gray, fr.MetadataDPI)
				if err != nil {
					row.Error = err.Error()
					rows = append(rows, row)
					continue
				}
				params := recommend.Recommend(prof, cfg.Thresholds, int(cfg.Downscale.TargetDPI))
				row.Profile, row.Params = &prof, &params
				rows = append(rows, row)
			}
		}
	}
	return rows
}

func writeAnalysisTable(w io.Writer, rows []frameAnalysis) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "DOCUMENT\tPAGE\tFRAME\tSEPARABILITY\tNOISE\tSTROKE\tSPECKS\tSKEW\tDPI\tTWO-PASS\tREASON")
	for _, r := range rows {
		if r.Error != "" {
			_, _ = fmt.Fprintf(tw, "%s\t%d\t%d\terror: %s\n", r.Document, r.Page, r.Frame, r.Error)
			continue
		}
		p := r.Profile
		_, _ = fmt.Fprintf(tw, "%s\t%d\t%d\t%.3f\t%.2f\t%.2f\t%d\t%.2f\t%s\t%t\t%s\n",
			r.Document, r.Page, r.Frame,
			p.OtsuSeparability, p.NoiseSigma, p.StrokeWidth, p.NumNoiseSpecks, p.SkewAngle,
			formatDPI(p.DetectedDPI, p.DPISource),
			r.Params.EnableTwoPass, r.Params.Reason)
	}
	return tw.Flush()
}

func formatDPI(dpi float64, src string) string {
	if dpi <= 0 {
		return "unknown"
	}
	return fmt.Sprintf("%.0f (%s)", dpi, src)
}
