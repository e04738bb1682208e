package api

import (
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decodeFrames(t *testing.T, body string) ([]StreamEvent, bool) {
	t.Helper()
	var events []StreamEvent
	sawDone := false
	for _, line := range strings.Split(body, "\n") {
		if !strings.HasPrefix(line, "data: ") {
			continue
		}
		payload := strings.TrimPrefix(line, "data: ")
		if payload == doneSentinel {
			sawDone = true
			continue
		}
		var ev StreamEvent
		require.NoError(t, json.Unmarshal([]byte(payload), &ev))
		events = append(events, ev)
	}
	return events, sawDone
}

func TestStreamWriterWriteText(t *testing.T) {
	rec := httptest.NewRecorder()
	sw := NewStreamWriter(rec)

	require.NoError(t, sw.WriteText("Sunny, 21°C."))

	assert.Equal(t, "text/event-stream", rec.Header().Get("Content-Type"))
	assert.Equal(t, "v1", rec.Header().Get("X-Vercel-AI-UI-Message-Stream"))

	events, sawDone := decodeFrames(t, rec.Body.String())
	require.True(t, sawDone, "stream must end with the [DONE] sentinel")
	require.Len(t, events, 5)

	assert.Equal(t, EventStart, events[0].Type)
	assert.Equal(t, EventTextStart, events[1].Type)
	assert.Equal(t, EventTextDelta, events[2].Type)
	assert.Equal(t, "Sunny, 21°C.", events[2].Delta)
	assert.Equal(t, EventTextEnd, events[3].Type)
	assert.Equal(t, EventFinish, events[4].Type)

	require.NotEmpty(t, events[1].ID)
	assert.Equal(t, events[1].ID, events[2].ID)
	assert.Equal(t, events[1].ID, events[3].ID)
}

func TestStreamWriterWriteError(t *testing.T) {
	rec := httptest.NewRecorder()
	sw := NewStreamWriter(rec)

	require.NoError(t, sw.WriteError("something broke"))

	events, sawDone := decodeFrames(t, rec.Body.String())
	require.True(t, sawDone)
	require.Len(t, events, 3)

	assert.Equal(t, EventStart, events[0].Type)
	assert.Equal(t, EventError, events[1].Type)
	assert.Equal(t, "something broke", events[1].ErrorText)
	assert.Equal(t, EventFinish, events[2].Type)
}

func TestStreamWriterDistinctIDsPerMessage(t *testing.T) {
	rec := httptest.NewRecorder()
	sw := NewStreamWriter(rec)

	require.NoError(t, sw.WriteText("first"))
	require.NoError(t, sw.WriteText("second"))

	events, _ := decodeFrames(t, rec.Body.String())
	require.Len(t, events, 10)
	assert.NotEqual(t, events[1].ID, events[6].ID)
}
