package support

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/cucumber/godog"

	"github.com/MeKo-Tech/adaptocr/internal/pipeline"
)

func (testCtx *TestContext) results() ([]pipeline.ImageResult, error) {
	if testCtx.LastError != nil {
		return nil, fmt.Errorf("batch failed: %w", testCtx.LastError)
	}
	if testCtx.Result == nil || testCtx.Result.Report == nil {
		return nil, errors.New("no batch has been processed")
	}
	return testCtx.Result.Report.Results, nil
}

func (testCtx *TestContext) resultFor(name string) (pipeline.ImageResult, error) {
	results, err := testCtx.results()
	if err != nil {
		return pipeline.ImageResult{}, err
	}
	for _, res := range results {
		if filepath.Base(res.DocumentName) == name {
			return res, nil
		}
	}
	return pipeline.ImageResult{}, fmt.Errorf("no result for %s", name)
}

func (testCtx *TestContext) thereAreResults(n int) error {
	results, err := testCtx.results()
	if err != nil {
		return err
	}
	if len(results) != n {
		return fmt.Errorf("expected %d results, got %d", n, len(results))
	}
	return nil
}

func (testCtx *TestContext) resultsHaveStatus(n int, status string) error {
	results, err := testCtx.results()
	if err != nil {
		return err
	}
	got := 0
	for _, res := range results {
		if string(res.Status) == status {
			got++
		}
	}
	if got != n {
		return fmt.Errorf("expected %d results with status %s, got %d", n, status, got)
	}
	return nil
}

func (testCtx *TestContext) everyResultTextIs(text string) error {
	results, err := testCtx.results()
	if err != nil {
		return err
	}
	for _, res := range results {
		if res.Text != text {
			return fmt.Errorf("%s: text %q, want %q", res.DocumentName, res.Text, text)
		}
	}
	return nil
}

func (testCtx *TestContext) theResultHasStatusAndKind(name, status, kind string) error {
	res, err := testCtx.resultFor(name)
	if err != nil {
		return err
	}
	if string(res.Status) != status || string(res.ErrorKind) != kind {
		return fmt.Errorf("%s: status %s kind %q, want %s %q (error: %s)", name, res.Status, res.ErrorKind, status, kind, res.Error)
	}
	return nil
}

func (testCtx *TestContext) theResultHasText(name, text string) error {
	res, err := testCtx.resultFor(name)
	if err != nil {
		return err
	}
	if res.Text != text {
		return fmt.Errorf("%s: text %q, want %q", name, res.Text, text)
	}
	return nil
}

func (testCtx *TestContext) theResultWasDownscaled(name string) error {
	res, err := testCtx.resultFor(name)
	if err != nil {
		return err
	}
	if !res.DownscaleTriggered {
		return fmt.Errorf("%s was not downscaled (%s)", name, res.DownscaleReason)
	}
	return nil
}

func (testCtx *TestContext) theResultHasValidatedRedactions(name string) error {
	res, err := testCtx.resultFor(name)
	if err != nil {
		return err
	}
	if res.RedactionsValidated < 1 {
		return fmt.Errorf("%s: no validated redactions (%d candidates)", name, res.RedactionCandidates)
	}
	return nil
}

func (testCtx *TestContext) everyResultNeedsReview() error {
	results, err := testCtx.results()
	if err != nil {
		return err
	}
	for _, res := range results {
		if !res.NeedsReview {
			return fmt.Errorf("%s is not flagged for review", res.DocumentName)
		}
	}
	return nil
}

func (testCtx *TestContext) degradedResults(n int) error {
	if _, err := testCtx.results(); err != nil {
		return err
	}
	if got := len(testCtx.Result.Report.Degraded()); got != n {
		return fmt.Errorf("expected %d degraded results, got %d", n, got)
	}
	return nil
}

func (testCtx *TestContext) theRunEmittedEvents(n int, name string) error {
	if got := len(testCtx.Recorder.Named(name)); got != n {
		return fmt.Errorf("expected %d %s events, got %d", n, name, got)
	}
	return nil
}

func (testCtx *TestContext) everyEventCarriesTheRunID() error {
	if _, err := testCtx.results(); err != nil {
		return err
	}
	for _, ev := range testCtx.Recorder.Events() {
		if ev.String("run_id") != testCtx.Result.Report.RunID {
			return fmt.Errorf("event %s has run_id %q", ev.Name, ev.String("run_id"))
		}
	}
	return nil
}

func (testCtx *TestContext) theOutputIsValidJSON() error {
	var v map[string]any
	if err := json.Unmarshal([]byte(testCtx.Output), &v); err != nil {
		return fmt.Errorf("output is not JSON: %w", err)
	}
	return nil
}

func (testCtx *TestContext) theOutputIsCSVWithRows(n int) error {
	records, err := csv.NewReader(strings.NewReader(testCtx.Output)).ReadAll()
	if err != nil {
		return fmt.Errorf("output is not CSV: %w", err)
	}
	if len(records) != n+1 {
		return fmt.Errorf("expected header plus %d rows, got %d records", n, len(records))
	}
	return nil
}

func (testCtx *TestContext) theOutputContains(s string) error {
	if !strings.Contains(testCtx.Output, s) {
		return fmt.Errorf("output does not contain %q:\n%s", s, testCtx.Output)
	}
	return nil
}

func (testCtx *TestContext) theBatchFailsWith(msg string) error {
	if testCtx.LastError == nil {
		return errors.New("expected the batch to fail")
	}
	if !strings.Contains(testCtx.LastError.Error(), msg) {
		return fmt.Errorf("error %q does not mention %q", testCtx.LastError, msg)
	}
	return nil
}

// RegisterResultSteps registers the assertions on results, events and output.
func (testCtx *TestContext) RegisterResultSteps(sc *godog.ScenarioContext) {
	sc.Step(`^there (?:is|are) (\d+) results?$`, testCtx.thereAreResults)
	sc.Step(`^(\d+) results? (?:has|have) status "([^"]*)"$`, testCtx.resultsHaveStatus)
	sc.Step(`^every result text is "([^"]*)"$`, testCtx.everyResultTextIs)
	sc.Step(`^the result for "([^"]*)" has status "([^"]*)" and error kind "([^"]*)"$`, testCtx.theResultHasStatusAndKind)
	sc.Step(`^the result for "([^"]*)" has text "([^"]*)"$`, testCtx.theResultHasText)
	sc.Step(`^the result for "([^"]*)" was downscaled$`, testCtx.theResultWasDownscaled)
	sc.Step(`^the result for "([^"]*)" has validated redactions$`, testCtx.theResultHasValidatedRedactions)
	sc.Step(`^every result needs review$`, testCtx.everyResultNeedsReview)
	sc.Step(`^(\d+) results? (?:is|are) degraded$`, testCtx.degradedResults)
	sc.Step(`^the run emitted (\d+) "([^"]*)" events?$`, testCtx.theRunEmittedEvents)
	sc.Step(`^every event carries the run id$`, testCtx.everyEventCarriesTheRunID)
	sc.Step(`^the output is valid JSON$`, testCtx.theOutputIsValidJSON)
	sc.Step(`^the output is CSV with (\d+) rows?$`, testCtx.theOutputIsCSVWithRows)
	sc.Step(`^the output contains "([^"]*)"$`, testCtx.theOutputContains)
	sc.Step(`^the batch fails with "([^"]*)"$`, testCtx.theBatchFailsWith)
}
