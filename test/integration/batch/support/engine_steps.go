package support

import (
	"errors"
	"fmt"
	"time"

	"github.com/cucumber/godog"

	"github.com/MeKo-Tech/adaptocr/internal/engine/enginetest"
	"github.com/MeKo-Tech/adaptocr/internal/orchestrator"
)

func (testCtx *TestContext) theEngineAnswers(text string) error {
	testCtx.Engine.Default(enginetest.Behavior{Text: text})
	return nil
}

func (testCtx *TestContext) theEngineAnswersOnPass(text, pass string) error {
	testCtx.Engine.On(pass, enginetest.Behavior{Text: text})
	return nil
}

func (testCtx *TestContext) theEngineTakes(delay, pass string) error {
	d, err := time.ParseDuration(delay)
	if err != nil {
		return err
	}
	testCtx.Engine.On(pass, enginetest.Behavior{Delay: d})
	return nil
}

func (testCtx *TestContext) theEngineFailsOnPass(pass string) error {
	testCtx.Engine.On(pass, enginetest.Behavior{Err: errors.New("engine crashed")})
	return nil
}

func (testCtx *TestContext) theTimeoutIs(pass, timeout string) error {
	d, err := time.ParseDuration(timeout)
	if err != nil {
		return err
	}
	ocr := &testCtx.Config.Executor.OCR
	switch pass {
	case orchestrator.PassPrimary:
		ocr.Pass1Timeout = d
	case orchestrator.PassStipple:
		ocr.Pass2Timeout = d
	case orchestrator.PassRedaction:
		ocr.RedactionTimeout = d
	default:
		return fmt.Errorf("unknown pass %q", pass)
	}
	return nil
}

func (testCtx *TestContext) theEngineWasCalledTimesForPass(n int, pass string) error {
	if got := testCtx.Engine.CallCount(pass); got != n {
		return fmt.Errorf("expected %d %q calls, got %d (passes %v)", n, pass, got, testCtx.Engine.Passes())
	}
	return nil
}

func (testCtx *TestContext) theEngineWasNeverCalled() error {
	if calls := testCtx.Engine.Calls(); len(calls) > 0 {
		return fmt.Errorf("expected no engine calls, got %d", len(calls))
	}
	return nil
}

func (testCtx *TestContext) theEngineReceivedDPI(dpi float64) error {
	calls := testCtx.Engine.Calls()
	if len(calls) == 0 {
		return errors.New("engine was not called")
	}
	for _, c := range calls {
		if c.DPI != dpi {
			return fmt.Errorf("pass %s received %v DPI, want %v", c.Pass, c.DPI, dpi)
		}
	}
	return nil
}

func (testCtx *TestContext) atMostEngineCallsRanAtOnce(n int) error {
	if peak := testCtx.Engine.Peak(); peak > n {
		return fmt.Errorf("%d engine calls overlapped, limit %d", peak, n)
	}
	return nil
}

func (testCtx *TestContext) theEnginePoolWasClosed() error {
	if !testCtx.Engine.Closed() {
		return errors.New("engine pool still open")
	}
	return nil
}

// RegisterEngineSteps registers the steps that script and inspect the engine.
func (testCtx *TestContext) RegisterEngineSteps(sc *godog.ScenarioContext) {
	sc.Step(`^the engine answers "([^"]*)" to every pass$`, testCtx.theEngineAnswers)
	sc.Step(`^the engine answers "([^"]*)" on pass "([^"]*)"$`, testCtx.theEngineAnswersOnPass)
	sc.Step(`^the engine takes (\S+) on pass "([^"]*)"$`, testCtx.theEngineTakes)
	sc.Step(`^the engine fails on pass "([^"]*)"$`, testCtx.theEngineFailsOnPass)
	sc.Step(`^the "([^"]*)" timeout is (\S+)$`, testCtx.theTimeoutIs)
	sc.Step(`^the engine was called (\d+) times? for pass "([^"]*)"$`, testCtx.theEngineWasCalledTimesForPass)
	sc.Step(`^the engine was never called$`, testCtx.theEngineWasNeverCalled)
	sc.Step(`^every engine call received (\d+) DPI$`, testCtx.theEngineReceivedDPI)
	sc.Step(`^at most (\d+) engine calls ran at once$`, testCtx.atMostEngineCallsRanAtOnce)
	sc.Step(`^the engine pool was closed$`, testCtx.theEnginePoolWasClosed)
}
