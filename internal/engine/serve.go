package engine

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/MeKo-Tech/adaptocr/internal/common"
)

// Serve runs the worker side of the JSON-lines protocol: one Request per input
// line, one Response per output line, in order. Engine failures are reported in
// Response.Error and do not stop the loop. Serve returns nil on EOF.
func Serve(ctx context.Context, eng Engine, r io.Reader, w io.Writer) error {
	pid := os.Getpid()
	dec := json.NewDecoder(bufio.NewReaderSize(r, 1<<20))
	bw := bufio.NewWriter(w)
	enc := json.NewEncoder(bw)

	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		var req Request
		if err := dec.Decode(&req); err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return fmt.Errorf("decode request: %w", err)
		}
		started := time.Now()
		resp, err := eng.Recognize(ctx, req)
		finished := time.Now()

		resp.ID = req.ID
		resp.WorkerPID = pid
		resp.Started = started
		resp.Finished = finished
		resp.EngineMillis = common.Millis(finished.Sub(started))
		if err != nil {
			resp.Error = err.Error()
		}
		if err := enc.Encode(&resp); err != nil {
			return fmt.Errorf("encode response: %w", err)
		}
		if err := bw.Flush(); err != nil {
			return fmt.Errorf("flush response: %w", err)
		}
	}
}
