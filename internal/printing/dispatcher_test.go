package printing

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeArtifact(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "summary.pdf")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func newTestDispatcher(s *fakeSpooler, opts ...DispatcherOption) *Dispatcher {
	return NewDispatcher(s, NewRegistry(s, ""), opts...)
}

func TestDispatcher_Submit_RequestedDevice(t *testing.T) {
	spooler := &fakeSpooler{devices: []string{"Office", "PDF-Writer"}, defaultDevice: "PDF-Writer"}
	path := writeArtifact(t, "%PDF-1.4 raw bytes")

	res, err := newTestDispatcher(spooler).Submit(context.Background(), path, "Office")
	require.NoError(t, err)

	assert.Equal(t, "Office", res.Device)
	assert.False(t, res.FellBack)
	assert.True(t, res.Released)
	assert.Equal(t, len("%PDF-1.4 raw bytes"), res.BytesWritten)
	assert.Equal(t, []string{
		"open:Office",
		"begin_job:Research Report:RAW",
		"begin_page",
		"write",
		"end_page",
		"end_job",
		"close",
	}, spooler.calls)
	assert.Equal(t, []SubmissionState{
		StateResolving, StateOpened, StatePageStarted, StateWriting, StatePageEnded, StateClosed,
	}, res.Trace)
	require.Len(t, spooler.handles, 1)
	assert.Equal(t, "%PDF-1.4 raw bytes", spooler.handles[0].buf.String())
	assert.Equal(t, 1, spooler.handles[0].closes)
}

func TestDispatcher_Submit_FallsBackToDefault(t *testing.T) {
	spooler := &fakeSpooler{devices: []string{"PDF-Writer"}, defaultDevice: "PDF-Writer"}
	path := writeArtifact(t, "payload")

	res, err := newTestDispatcher(spooler).Submit(context.Background(), path, "NonexistentPrinter")
	require.NoError(t, err)

	assert.Equal(t, "NonexistentPrinter", res.Requested)
	assert.Equal(t, "PDF-Writer", res.Device)
	assert.True(t, res.FellBack)
	assert.Equal(t, "open:PDF-Writer", spooler.calls[0])
	assert.Equal(t, StateClosed, res.Trace[len(res.Trace)-1])
}

func TestDispatcher_Submit_EmptyRequestUsesDefault(t *testing.T) {
	spooler := &fakeSpooler{devices: []string{"Office", "PDF-Writer"}, defaultDevice: "Office"}
	path := writeArtifact(t, "payload")

	for _, requested := range []string{"", "   "} {
		spooler.calls = nil
		res, err := newTestDispatcher(spooler).Submit(context.Background(), path, requested)
		require.NoError(t, err)
		assert.Equal(t, "Office", res.Device)
		assert.False(t, res.FellBack)
	}
}

func TestDispatcher_Submit_CustomJobName(t *testing.T) {
	spooler := &fakeSpooler{devices: []string{"Office"}, defaultDevice: "Office"}
	path := writeArtifact(t, "payload")

	_, err := newTestDispatcher(spooler, WithJobName("Weekly Digest")).Submit(context.Background(), path, "")
	require.NoError(t, err)
	assert.Contains(t, spooler.calls, "begin_job:Weekly Digest:RAW")
}

func TestDispatcher_Submit_NoDefault(t *testing.T) {
	spooler := &fakeSpooler{devices: []string{"Office"}}
	path := writeArtifact(t, "payload")

	res, err := newTestDispatcher(spooler).Submit(context.Background(), path, "Missing")
	var qerr *DeviceQueryError
	require.ErrorAs(t, err, &qerr)
	assert.ErrorIs(t, err, ErrNoDefaultDevice)
	assert.Empty(t, spooler.calls, "nothing is opened when no device resolves")
	assert.Equal(t, []SubmissionState{StateResolving, StateFailed}, res.Trace)
	assert.False(t, res.Released)
}

func TestDispatcher_Submit_MissingArtifact(t *testing.T) {
	spooler := &fakeSpooler{devices: []string{"Office"}, defaultDevice: "Office"}

	res, err := newTestDispatcher(spooler).Submit(context.Background(), filepath.Join(t.TempDir(), "nope.pdf"), "")
	var serr *SubmissionError
	require.ErrorAs(t, err, &serr)
	assert.Equal(t, "read artifact", serr.Stage)
	assert.ErrorIs(t, err, os.ErrNotExist)
	assert.Empty(t, spooler.calls)
	assert.Equal(t, "Office", res.Device)
}

func TestDispatcher_Submit_OpenFailure(t *testing.T) {
	spooler := &fakeSpooler{devices: []string{"Office"}, defaultDevice: "Office", openErr: errInjected}
	path := writeArtifact(t, "payload")

	res, err := newTestDispatcher(spooler).Submit(context.Background(), path, "Office")
	var serr *SubmissionError
	require.ErrorAs(t, err, &serr)
	assert.Equal(t, "open device", serr.Stage)
	assert.Equal(t, "Office", serr.Device)
	assert.ErrorIs(t, err, errInjected)
	assert.Equal(t, []SubmissionState{StateResolving, StateFailed}, res.Trace)
	assert.False(t, res.Released, "a handle that was never opened is not released")
}

func TestDispatcher_Submit_ReleasesHandleOnEveryFailure(t *testing.T) {
	tests := []struct {
		failAt    string
		stage     string
		wantTrace []SubmissionState
	}{
		{failAt: "begin_job:Research Report:RAW", stage: "begin job", wantTrace: []SubmissionState{StateResolving, StateOpened, StateFailed, StateReleased}},
		{failAt: "begin_page", stage: "begin page", wantTrace: []SubmissionState{StateResolving, StateOpened, StateFailed, StateReleased}},
		{failAt: "write", stage: "write", wantTrace: []SubmissionState{StateResolving, StateOpened, StatePageStarted, StateWriting, StateFailed, StateReleased}},
		{failAt: "end_page", stage: "end page", wantTrace: []SubmissionState{StateResolving, StateOpened, StatePageStarted, StateWriting, StateFailed, StateReleased}},
		{failAt: "end_job", stage: "end job", wantTrace: []SubmissionState{StateResolving, StateOpened, StatePageStarted, StateWriting, StatePageEnded, StateFailed, StateReleased}},
		{failAt: "close", stage: "close device", wantTrace: []SubmissionState{StateResolving, StateOpened, StatePageStarted, StateWriting, StatePageEnded, StateFailed, StateReleased}},
	}
	for _, tt := range tests {
		t.Run(tt.stage, func(t *testing.T) {
			spooler := &fakeSpooler{devices: []string{"Office"}, defaultDevice: "Office", failAt: tt.failAt}
			path := writeArtifact(t, "payload")

			res, err := newTestDispatcher(spooler).Submit(context.Background(), path, "Office")
			var serr *SubmissionError
			require.ErrorAs(t, err, &serr)
			assert.Equal(t, tt.stage, serr.Stage)
			assert.ErrorIs(t, err, errInjected)

			require.Len(t, spooler.handles, 1)
			assert.Equal(t, 1, spooler.handles[0].closes, "handle closed exactly once")
			assert.True(t, res.Released)
			assert.Equal(t, tt.wantTrace, res.Trace)
		})
	}
}

func TestDispatcher_Submit_IgnoresCancellation(t *testing.T) {
	spooler := &fakeSpooler{devices: []string{"Office"}, defaultDevice: "Office"}
	path := writeArtifact(t, "payload")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	res, err := newTestDispatcher(spooler).Submit(ctx, path, "")
	require.NoError(t, err)
	assert.Equal(t, StateClosed, res.Trace[len(res.Trace)-1])
}

func TestSubmissionState_Transitions(t *testing.T) {
	sub := newSubmission()
	require.NoError(t, sub.advance(StateOpened))
	assert.ErrorIs(t, sub.advance(StateWriting), ErrJobState, "cannot skip PAGE_STARTED")

	sub.fail()
	assert.Equal(t, StateFailed, sub.state)
	assert.ErrorIs(t, sub.advance(StateClosed), ErrJobState, "FAILED is absorbing")

	sub.fail()
	assert.Equal(t, []SubmissionState{StateResolving, StateOpened, StateFailed}, sub.trace)
	assert.Equal(t, "PAGE_ENDED", StatePageEnded.String())

	sub.released()
	sub.released()
	assert.Equal(t, []SubmissionState{StateResolving, StateOpened, StateFailed, StateReleased}, sub.trace)
	assert.Equal(t, "RELEASED", StateReleased.String())
	assert.True(t, StateReleased.IsTerminal())
}

func TestSubmission_ReleasedOnlyAfterFailure(t *testing.T) {
	sub := newSubmission()
	require.NoError(t, sub.advance(StateOpened))
	sub.released()
	assert.Equal(t, []SubmissionState{StateResolving, StateOpened}, sub.trace)
}
