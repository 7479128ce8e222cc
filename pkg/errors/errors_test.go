package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorKindMatching(t *testing.T) {
	decodeErr := NewDecodeError(fmt.Errorf("file missing"), "/tmp/call.wav")
	assert.True(t, stderrors.Is(decodeErr, ErrDecodeFailed))
	assert.False(t, stderrors.Is(decodeErr, ErrInvalidFormat))
	assert.Equal(t, "DECODE_ERROR", decodeErr.GetCode())
	assert.Equal(t, "/tmp/call.wav", decodeErr.GetFields()["path"])

	formatErr := NewFormatError("expected 8000 Hz, got 16000")
	assert.True(t, stderrors.Is(formatErr, ErrInvalidFormat))
	assert.Equal(t, "FORMAT_ERROR", formatErr.GetCode())

	rangeErr := NewRangeError("start index beyond recording")
	assert.True(t, stderrors.Is(rangeErr, ErrWindowOutOfRange))
	assert.Equal(t, "RANGE_ERROR", rangeErr.GetCode())

	emptyErr := NewEmptyInput("no windows provided")
	assert.True(t, stderrors.Is(emptyErr, ErrEmptyInput))
	assert.Equal(t, "EMPTY_INPUT", emptyErr.GetCode())
}

func TestNoSpeechCarriesParty(t *testing.T) {
	abonentErr := NewNoSpeechDetected(PartyAbonent)
	assert.True(t, stderrors.Is(abonentErr, ErrNoSpeechDetected))
	assert.Equal(t, PartyAbonent, Party(abonentErr))

	agentErr := NewNoSpeechDetected(PartyAgent)
	assert.Equal(t, PartyAgent, Party(agentErr))

	// A wrapped no-speech error still exposes the failing party
	wrapped := Wrap(agentErr, "window 3 failed")
	assert.True(t, stderrors.Is(wrapped, ErrNoSpeechDetected))
	assert.Equal(t, PartyAgent, Party(wrapped))

	assert.Equal(t, "", Party(NewRangeError("no party here")))
}

func TestWrapPreservesCause(t *testing.T) {
	cause := stderrors.New("underlying failure")
	err := Wrap(cause, "loading recording")

	assert.True(t, stderrors.Is(err, cause))
	assert.Contains(t, err.Error(), "loading recording")
	assert.Contains(t, err.Error(), "underlying failure")
	assert.NotEmpty(t, err.Location())
}

func TestWithFieldDoesNotMutateOriginal(t *testing.T) {
	base := NewRangeError("start >= end")
	derived := base.WithField("window_index", 2)

	assert.NotContains(t, base.GetFields(), "window_index")
	assert.Equal(t, 2, derived.GetFields()["window_index"])
	assert.Equal(t, base.GetCode(), derived.GetCode())
}

func TestHTTPStatusMapping(t *testing.T) {
	assert.Equal(t, http.StatusUnprocessableEntity, HTTPStatusFromError(NewDecodeError(fmt.Errorf("bad riff"), "x.wav")))
	assert.Equal(t, http.StatusBadRequest, HTTPStatusFromError(NewFormatError("mono file")))
	assert.Equal(t, http.StatusBadRequest, HTTPStatusFromError(NewRangeError("beyond end")))
	assert.Equal(t, http.StatusUnprocessableEntity, HTTPStatusFromError(NewNoSpeechDetected(PartyAgent)))
	assert.Equal(t, http.StatusBadRequest, HTTPStatusFromError(NewEmptyInput("zero windows")))
	assert.Equal(t, http.StatusInternalServerError, HTTPStatusFromError(stderrors.New("something else")))
}

func TestWriteError(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteError(rec, NewNoSpeechDetected(PartyAbonent))

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Body.String(), "NO_SPEECH_DETECTED")
	assert.Contains(t, rec.Body.String(), "abonent")
}
