package support

import (
	"context"
	"fmt"
	"image"
	"os"
	"path/filepath"

	"github.com/cucumber/godog"

	"github.com/MeKo-Tech/adaptocr/internal/batch"
	"github.com/MeKo-Tech/adaptocr/internal/engine"
	"github.com/MeKo-Tech/adaptocr/internal/testutil"
	"github.com/MeKo-Tech/adaptocr/internal/utils"
)

func (testCtx *TestContext) writeImage(name string, img *image.Gray, dpi float64) error {
	data, err := utils.EncodePNGWithDPI(img, dpi)
	if err != nil {
		return fmt.Errorf("encode %s: %w", name, err)
	}
	return os.WriteFile(filepath.Join(testCtx.InputDir, name), data, 0o600)
}

func (testCtx *TestContext) textPages(n int) error {
	for i := 1; i <= n; i++ {
		page := testutil.TextPage(testutil.DefaultPageConfig())
		if err := testCtx.writeImage(fmt.Sprintf("page-%d.png", i), page, 0); err != nil {
			return err
		}
	}
	return nil
}

func (testCtx *TestContext) scanAtDPI(name string, dpi int) error {
	return testCtx.writeImage(name, testutil.TextPage(testutil.DefaultPageConfig()), float64(dpi))
}

func (testCtx *TestContext) pageWithRedactionBar(name string) error {
	page := testutil.TextPage(testutil.DefaultPageConfig())
	testutil.FillRect(page, image.Rect(50, 150, 170, 170), 0)
	return testCtx.writeImage(name, page, 0)
}

func (testCtx *TestContext) fileContaining(name, content string) error {
	return os.WriteFile(filepath.Join(testCtx.InputDir, name), []byte(content), 0o600)
}

func (testCtx *TestContext) redactionIsDisabled() error {
	testCtx.Config.Executor.RedactionEnabled = false
	return nil
}

// twoPassIsForced moves the stroke thresholds so that the thin-stroke rule
// fires and nothing later overrides it.
func (testCtx *TestContext) twoPassIsForced() error {
	t := &testCtx.Config.Executor.Thresholds
	t.ThinStrokeMax = 100
	t.ThickStrokeMin = 200
	t.CleanMinSeparability = 1
	return nil
}

func (testCtx *TestContext) workerCount(n int) error {
	testCtx.Config.Executor.WorkerCount = n
	return nil
}

func (testCtx *TestContext) outputFormat(format string) error {
	testCtx.Config.Format = format
	return nil
}

func (testCtx *TestContext) iProcessTheInputDirectory() error {
	return testCtx.process(context.Background())
}

func (testCtx *TestContext) iProcessTheInputDirectoryCancelled() error {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	return testCtx.process(ctx)
}

func (testCtx *TestContext) process(ctx context.Context) error {
	testCtx.Result, testCtx.LastError = batch.ProcessBatch(ctx, []string{testCtx.InputDir},
		testCtx.Config, engine.LocalFactory(testCtx.Engine), testCtx.Recorder)
	if testCtx.LastError != nil || testCtx.Result == nil {
		return nil
	}
	out, err := testCtx.Result.FormatResults(testCtx.Config.Format)
	if err != nil {
		return err
	}
	testCtx.Output = out
	return nil
}

// RegisterInputSteps registers the steps that prepare and run a batch.
func (testCtx *TestContext) RegisterInputSteps(sc *godog.ScenarioContext) {
	sc.Step(`^(\d+) text pages? in the input directory$`, testCtx.textPages)
	sc.Step(`^a scan "([^"]*)" at (\d+) DPI$`, testCtx.scanAtDPI)
	sc.Step(`^a page "([^"]*)" with a redaction bar$`, testCtx.pageWithRedactionBar)
	sc.Step(`^a file "([^"]*)" containing "([^"]*)"$`, testCtx.fileContaining)
	sc.Step(`^redaction handling is disabled$`, testCtx.redactionIsDisabled)
	sc.Step(`^two-pass recognition is forced$`, testCtx.twoPassIsForced)
	sc.Step(`^(\d+) workers?$`, testCtx.workerCount)
	sc.Step(`^the output format is "([^"]*)"$`, testCtx.outputFormat)
	sc.Step(`^I process the input directory$`, testCtx.iProcessTheInputDirectory)
	sc.Step(`^I process the input directory after cancelling$`, testCtx.iProcessTheInputDirectoryCancelled)
}
