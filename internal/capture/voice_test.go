package capture

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestListen_AppendsWithSpace(t *testing.T) {
	rec := &fakeRecognizer{texts: []string{"met Dr. Rao", "gave two samples"}}
	c := NewConversationalCapture(&fakeExtractor{}, nil, "rep_001", WithRecognizer(rec))

	require.NoError(t, c.Listen(context.Background()))
	assert.Equal(t, "met Dr. Rao", c.Input())

	require.NoError(t, c.Listen(context.Background()))
	assert.Equal(t, "met Dr. Rao gave two samples", c.Input())
	assert.Len(t, c.Transcript(), 1, "voice never writes to the transcript")
}

func TestListen_FailureSilentlyRearms(t *testing.T) {
	rec := &fakeRecognizer{
		texts: []string{"", "hello"},
		errs:  []error{errors.New("no-speech"), nil},
	}
	c := NewConversationalCapture(&fakeExtractor{}, nil, "rep_001", WithRecognizer(rec))
	c.SetInput("typed")

	require.NoError(t, c.Listen(context.Background()))
	assert.Equal(t, "typed", c.Input())
	assert.True(t, c.VoiceAvailable())
	assert.False(t, c.Listening())

	require.NoError(t, c.Listen(context.Background()))
	assert.Equal(t, "typed hello", c.Input())
}

func TestListen_UnsupportedReportedOnce(t *testing.T) {
	c := NewConversationalCapture(&fakeExtractor{}, nil, "rep_001")
	require.True(t, c.VoiceAvailable())

	assert.ErrorIs(t, c.Listen(context.Background()), ErrVoiceUnsupported)
	assert.False(t, c.VoiceAvailable())
	assert.ErrorIs(t, c.Listen(context.Background()), ErrVoiceUnavailable)
	assert.ErrorIs(t, c.Listen(context.Background()), ErrVoiceUnavailable)
}

func TestListen_RecognizerReportsUnsupported(t *testing.T) {
	rec := &fakeRecognizer{errs: []error{ErrVoiceUnsupported}}
	c := NewConversationalCapture(&fakeExtractor{}, nil, "rep_001", WithRecognizer(rec))

	assert.ErrorIs(t, c.Listen(context.Background()), ErrVoiceUnsupported)
	assert.ErrorIs(t, c.Listen(context.Background()), ErrVoiceUnavailable)
	assert.Equal(t, 1, rec.calls)
}

func TestCommandRecognizer(t *testing.T) {
	assert.Nil(t, NewCommandRecognizer("   "))

	var nilRec *CommandRecognizer
	_, err := nilRec.Recognize(context.Background())
	assert.ErrorIs(t, err, ErrVoiceUnsupported)

	missing := NewCommandRecognizer("fieldlog-no-such-recognizer --lang en")
	require.NotNil(t, missing)
	assert.Equal(t, []string{"--lang", "en"}, missing.Args)
	_, err = missing.Recognize(context.Background())
	assert.ErrorIs(t, err, ErrVoiceUnsupported)
}
