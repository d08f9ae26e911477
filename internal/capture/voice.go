package capture

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
)

// Recognizer turns one utterance into text.
type Recognizer interface {
	Recognize(ctx context.Context) (string, error)
}

// CommandRecognizer runs an external speech-to-text command and reads the
// transcript from its stdout, e.g. a whisper.cpp wrapper that records one
// utterance from the microphone.
type CommandRecognizer struct {
	Command string
	Args    []string
}

// NewCommandRecognizer parses a command line such as "whisper-listen --lang en".
// An empty line yields nil, meaning voice input is unsupported.
func NewCommandRecognizer(cmdline string) *CommandRecognizer {
	fields := strings.Fields(cmdline)
	if len(fields) == 0 {
		return nil
	}
	return &CommandRecognizer{Command: fields[0], Args: fields[1:]}
}

// Recognize runs the command once. A missing executable reports ErrVoiceUnsupported.
func (r *CommandRecognizer) Recognize(ctx context.Context) (string, error) {
	if r == nil {
		return "", ErrVoiceUnsupported
	}
	if _, err := exec.LookPath(r.Command); err != nil {
		return "", fmt.Errorf("%w: %s not found", ErrVoiceUnsupported, r.Command)
	}
	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, r.Command, r.Args...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("run %s: %w: %s", r.Command, err, strings.TrimSpace(stderr.String()))
	}
	return strings.TrimSpace(stdout.String()), nil
}

type voiceState int

const (
	voiceReady voiceState = iota
	// voiceUnsupported has not been reported to the user yet.
	voiceUnsupported
	voiceOff
)

// VoiceAvailable reports whether voice input may still be attempted.
func (c *ConversationalCapture) VoiceAvailable() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.voiceState != voiceOff
}

// Listening reports whether a recognition is in progress.
func (c *ConversationalCapture) Listening() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.listening
}

// Listen records one utterance and appends it to the pending input,
// separated by a space. Without a working recognizer it returns
// ErrVoiceUnsupported once and ErrVoiceUnavailable afterwards. Any other
// recognition failure is logged and swallowed so the control re-arms.
func (c *ConversationalCapture) Listen(ctx context.Context) error {
	c.mu.Lock()
	switch {
	case c.listening:
		c.mu.Unlock()
		return nil
	case c.voiceState == voiceUnsupported:
		c.voiceState = voiceOff
		c.mu.Unlock()
		return ErrVoiceUnsupported
	case c.voiceState == voiceOff:
		c.mu.Unlock()
		return ErrVoiceUnavailable
	}
	c.listening = true
	c.mu.Unlock()

	text, err := c.voice.Recognize(ctx)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.listening = false
	if err != nil {
		if errors.Is(err, ErrVoiceUnsupported) {
			c.voiceState = voiceOff
			return ErrVoiceUnsupported
		}
		c.logger.Debug("speech recognition failed", "error", err)
		return nil
	}
	if text == "" {
		return nil
	}
	if c.input != "" {
		c.input += " "
	}
	c.input += text
	return nil
}
