package main

import (
	"context"
	"os"

	tea "github.com/charmbracelet/bubbletea"

	"pyimplib/internal/implib"
	"pyimplib/internal/ui"
)

// runBatchWithUI drives run under a Bubble Tea progress display. The
// batch runs in a goroutine and streams events into the model; its
// error surfaces after the UI exits.
func runBatchWithUI(ctx context.Context, title string, stems []string, run func(context.Context, implib.ProgressSink) error) error {
	events := make(chan implib.Event, 256)
	outcomeCh := make(chan error, 1)

	go func() {
		outcomeCh <- run(ctx, implib.ChannelSink{Ch: events})
		close(events)
	}()

	model := ui.NewProgressModel(title, stems, events)
	program := tea.NewProgram(model, tea.WithOutput(os.Stdout))
	_, uiErr := program.Run()
	outcome := <-outcomeCh
	if uiErr != nil {
		return uiErr
	}
	return outcome
}
