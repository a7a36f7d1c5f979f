package engine_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MeKo-Tech/adaptocr/internal/engine"
	"github.com/MeKo-Tech/adaptocr/internal/engine/enginetest"
)

func TestServe_RoundTrip(t *testing.T) {
	fake := enginetest.New().
		On("pass1", enginetest.Behavior{Text: "hello"}).
		On("bad", enginetest.Behavior{Err: errors.New("nope")})

	var in bytes.Buffer
	enc := json.NewEncoder(&in)
	require.NoError(t, enc.Encode(engine.Request{ID: "1", Pass: "pass1"}))
	require.NoError(t, enc.Encode(engine.Request{ID: "2", Pass: "bad"}))
	require.NoError(t, enc.Encode(engine.Request{ID: "3", Pass: "pass1", WantWords: true}))

	var out bytes.Buffer
	require.NoError(t, engine.Serve(context.Background(), fake, &in, &out))

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 3)

	var resps []engine.Response
	for _, l := range lines {
		var r engine.Response
		require.NoError(t, json.Unmarshal([]byte(l), &r))
		resps = append(resps, r)
	}
	assert.Equal(t, "hello", resps[0].Text)
	assert.Equal(t, os.Getpid(), resps[0].WorkerPID)
	assert.Equal(t, "2", resps[1].ID)
	assert.Equal(t, "nope", resps[1].Error)
	assert.Equal(t, "3", resps[2].ID)
	assert.Empty(t, resps[2].Error)
	assert.GreaterOrEqual(t, resps[2].EngineMillis, 0.0)
}

func TestServe_MalformedInput(t *testing.T) {
	err := engine.Serve(context.Background(), enginetest.New(), strings.NewReader("{not json"), &bytes.Buffer{})
	assert.Error(t, err)
}

func TestServe_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := engine.Serve(ctx, enginetest.New(), strings.NewReader(""), &bytes.Buffer{})
	assert.ErrorIs(t, err, context.Canceled)
}
