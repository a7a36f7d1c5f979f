package batch

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/MeKo-Tech/adaptocr/internal/common"
	"github.com/MeKo-Tech/adaptocr/internal/pipeline"
)

// formatBatchResults formats the report in the specified format.
func formatBatchResults(report *pipeline.Report, format string) (string, error) {
	if report == nil {
		return "", errors.New("no report")
	}
	switch format {
	case FormatJSON:
		return formatJSON(report)
	case FormatCSV:
		return formatCSV(report)
	default:
		return formatText(report)
	}
}

// formatJSON renders the whole report plus a status summary.
func formatJSON(report *pipeline.Report) (string, error) {
	out := struct {
		*pipeline.Report
		DurationMS float64                 `json:"duration_ms"`
		Counts     map[pipeline.Status]int `json:"counts"`
	}{
		Report:     report,
		DurationMS: common.Millis(report.Duration()),
		Counts:     report.Counts(),
	}
	bts, err := json.MarshalIndent(out, "", "  ")
	return string(bts), err
}

var csvHeader = []string{
	"document", "page", "frame", "status", "error_kind", "needs_review",
	"two_pass", "reason", "downscaled", "redactions", "placeholders", "duration_ms", "text",
}

// formatCSV writes one row per image.
func formatCSV(report *pipeline.Report) (string, error) {
	var output strings.Builder
	writer := csv.NewWriter(&output)
	if err := writer.Write(csvHeader); err != nil {
		return "", err
	}

	for _, res := range report.Results {
		twoPass, reason := false, ""
		if res.Params != nil {
			twoPass, reason = res.Params.EnableTwoPass, res.Params.Reason
		}
		row := []string{
			res.DocumentName,
			strconv.Itoa(res.Page),
			strconv.Itoa(res.Frame),
			string(res.Status),
			string(res.ErrorKind),
			strconv.FormatBool(res.NeedsReview),
			strconv.FormatBool(twoPass),
			reason,
			strconv.FormatBool(res.DownscaleTriggered),
			strconv.Itoa(res.RedactionsValidated),
			strconv.Itoa(res.PlaceholdersInserted),
			strconv.FormatFloat(common.Millis(res.Duration), 'f', 1, 64),
			res.Text,
		}
		if err := writer.Write(row); err != nil {
			return "", err
		}
	}
	writer.Flush()
	return output.String(), writer.Error()
}

// formatText prints a header per image followed by its text.
func formatText(report *pipeline.Report) (string, error) {
	var output strings.Builder
	for i, res := range report.Results {
		if i > 0 {
			output.WriteString("\n")
		}
		output.WriteString("# " + res.DocumentName)
		if res.Page > 0 {
			fmt.Fprintf(&output, " page %d", res.Page)
		}
		if res.Frame > 0 {
			fmt.Fprintf(&output, " frame %d", res.Frame)
		}
		if res.Status != pipeline.StatusOK {
			fmt.Fprintf(&output, " [%s]", res.Status)
		}
		output.WriteString("\n")
		if res.Error != "" {
			fmt.Fprintf(&output, "! %s\n", res.Error)
		}
		if res.Text != "" {
			output.WriteString(res.Text)
			if !strings.HasSuffix(res.Text, "\n") {
				output.WriteString("\n")
			}
		}
	}
	return output.String(), nil
}
