package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/raphaelgruber/fieldlog/internal/capture"
	"github.com/raphaelgruber/fieldlog/internal/insight"
	"github.com/raphaelgruber/fieldlog/internal/notify"
)

var chatCmd = &cobra.Command{
	Use:   "chat [text]",
	Short: "Log an interaction by describing it",
	Long: `Describe an interaction in plain language. The AI assistant extracts the
HCP, summary, sentiment, materials, samples and follow-ups and logs it.

With text, runs a single turn. Without, reads one turn per line from stdin
until EOF. The extracted insights are printed after each logged turn.

Examples:
  fieldlog chat "Met Dr. Rohan at 4pm, discussed Product X, gave 2 samples"
  fieldlog chat < visits.txt`,
	Args: cobra.MaximumNArgs(1),
	RunE: runChat,
}

// chatSession is one conversational capture with its insight display,
// wired through a private bus.
type chatSession struct {
	capture *capture.ConversationalCapture
	display *insight.Display
	updated bool
}

func newChatSession(ext capture.Extractor, rep string) *chatSession {
	s := &chatSession{}
	bus := notify.NewBus()
	s.display = insight.NewDisplay(bus, func() { s.updated = true })
	s.capture = capture.NewConversationalCapture(ext, bus, rep,
		capture.WithLogger(logger),
		capture.WithGreeting(""),
	)
	return s
}

// turn sends text and writes the reply, then the insights if the turn
// produced a new snapshot.
func (s *chatSession) turn(ctx context.Context, w io.Writer, text string) {
	s.updated = false
	if !s.capture.Send(ctx, text) {
		return
	}
	transcript := s.capture.Transcript()
	fmt.Fprintln(w, transcript[len(transcript)-1].Content)
	if s.updated {
		fmt.Fprintln(w)
		fmt.Fprint(w, s.display.Render())
	}
}

func runChat(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	session := newChatSession(apiClient, cfg.RepID)
	defer session.display.Close()

	if len(args) == 1 {
		session.turn(ctx, os.Stdout, args[0])
		return nil
	}

	interactive := isTerminal()
	if interactive {
		fmt.Println(capture.DefaultGreeting)
	}
	scanner := bufio.NewScanner(os.Stdin)
	for {
		if interactive {
			fmt.Print("\n> ")
		}
		if !scanner.Scan() {
			break
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		session.turn(ctx, os.Stdout, line)
	}
	return scanner.Err()
}
