package sse

import (
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/norrsken-ai/svarmotor/internal/types"
)

func TestEncodeProducesDataLine(t *testing.T) {
	raw, err := Encode(types.SSEEvent{Type: types.SSEToken, Data: types.TokenPayload{Token: "hej"}})
	require.NoError(t, err)
	s := string(raw)
	assert.Contains(t, s, "event:token")
	assert.Contains(t, s, `data:`)
	assert.Contains(t, s, `"token":"hej"`)
	assert.True(t, strings.HasSuffix(s, "\n\n"), "wire format must end with a blank line per spec §4.10")
}

func TestSequencerHappyPath(t *testing.T) {
	rec := httptest.NewRecorder()
	seq := NewSequencer(rec)

	require.NoError(t, seq.Metadata(types.MetadataPayload{Mode: types.ModeEvidence}))
	require.NoError(t, seq.Decontextualized(types.DecontextualizedPayload{Text: "standalone question"}))
	require.NoError(t, seq.Token(types.TokenPayload{Token: "Sve"}))
	require.NoError(t, seq.Token(types.TokenPayload{Token: "rige"}))
	require.NoError(t, seq.Corrections(types.CorrectionsPayload{CorrectedText: "Sverige"}))
	require.NoError(t, seq.Done(types.DonePayload{TotalTimeMS: 42}))

	body := rec.Body.String()
	assert.Contains(t, body, "event:metadata")
	assert.Contains(t, body, "event:decontextualized")
	assert.Contains(t, body, "event:token")
	assert.Contains(t, body, "event:corrections")
	assert.Contains(t, body, "event:done")
	assert.True(t, seq.Terminated())
}

func TestSequencerRejectsTokenBeforeMetadata(t *testing.T) {
	seq := NewSequencer(httptest.NewRecorder())
	err := seq.Token(types.TokenPayload{Token: "x"})
	assert.Error(t, err)
}

func TestSequencerRejectsMetadataTwice(t *testing.T) {
	seq := NewSequencer(httptest.NewRecorder())
	require.NoError(t, seq.Metadata(types.MetadataPayload{}))
	assert.Error(t, seq.Metadata(types.MetadataPayload{}))
}

func TestSequencerRejectsDecontextualizedAfterToken(t *testing.T) {
	seq := NewSequencer(httptest.NewRecorder())
	require.NoError(t, seq.Metadata(types.MetadataPayload{}))
	require.NoError(t, seq.Token(types.TokenPayload{Token: "x"}))
	assert.Error(t, seq.Decontextualized(types.DecontextualizedPayload{Text: "too late"}))
}

func TestSequencerRejectsEventsAfterDone(t *testing.T) {
	seq := NewSequencer(httptest.NewRecorder())
	require.NoError(t, seq.Metadata(types.MetadataPayload{}))
	require.NoError(t, seq.Done(types.DonePayload{}))
	assert.Error(t, seq.Token(types.TokenPayload{Token: "late"}))
	assert.Error(t, seq.Done(types.DonePayload{}))
}

func TestSequencerErrorCanTerminateImmediatelyAfterMetadata(t *testing.T) {
	seq := NewSequencer(httptest.NewRecorder())
	require.NoError(t, seq.Metadata(types.MetadataPayload{}))
	require.NoError(t, seq.Error(types.ErrorPayload{Message: "retrieval failed"}))
	assert.True(t, seq.Terminated())
}

func TestSequencerRejectsDoneRequiresPriorMetadata(t *testing.T) {
	seq := NewSequencer(httptest.NewRecorder())
	assert.Error(t, seq.Done(types.DonePayload{}))
}
