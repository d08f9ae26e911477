package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/raphaelgruber/fieldlog/internal/insight"
	"github.com/raphaelgruber/fieldlog/internal/notify"
)

var insightsCmd = &cobra.Command{
	Use:   "insights",
	Short: "Follow AI insights as interactions are logged",
	Long: `Connect to the server's event feed and print the insights of every
conversational interaction as it is logged, from any client.

Press Ctrl+C to stop.`,
	Args: cobra.NoArgs,
	RunE: runInsights,
}

func runInsights(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	bus := notify.NewBus()
	var display *insight.Display
	display = insight.NewDisplay(bus, func() {
		ev, _ := display.Snapshot()
		if ev.Interaction != nil {
			fmt.Printf("── interaction %s ──\n", ev.Interaction.ID)
		}
		fmt.Println(display.Render())
	})
	defer display.Close()

	fmt.Println("Waiting for insights... (Ctrl+C to stop)")
	err := apiClient.SubscribeEvents(ctx, func(ev notify.Event) error {
		bus.Publish(ev)
		return nil
	})
	if ctx.Err() != nil {
		return nil
	}
	if err != nil {
		return fmt.Errorf("event feed: %w", err)
	}
	return nil
}
