package cli

import (
	"context"
	"errors"

	"github.com/spf13/cobra"

	"github.com/raphaelgruber/fieldlog/internal/capture"
	"github.com/raphaelgruber/fieldlog/internal/tui"
)

var uiCmd = &cobra.Command{
	Use:   "ui",
	Short: "Open the interactive capture screen",
	Long: `Open the capture screen: the structured form, the AI assistant and the
insight panel side by side.

Voice input (ctrl+r in the assistant) runs the command in FIELDLOG_VOICE_CMD,
which must record one utterance and print its transcript.`,
	Args: cobra.NoArgs,
	RunE: runUI,
}

func runUI(cmd *cobra.Command, args []string) error {
	if !isTerminal() {
		return errors.New("ui needs an interactive terminal; use 'fieldlog log' or 'fieldlog chat' instead")
	}

	opts := tui.Options{
		Backend: apiClient,
		RepID:   cfg.RepID,
		Logger:  logger,
	}
	if r := capture.NewCommandRecognizer(cfg.VoiceCommand); r != nil {
		opts.Recognizer = r
	}
	return tui.Run(context.Background(), opts)
}
