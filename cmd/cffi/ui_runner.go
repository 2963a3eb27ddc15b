package main

import (
	"context"
	"os"

	tea "github.com/charmbracelet/bubbletea"

	"cffi/internal/pipeline"
	"cffi/internal/ui"
)

type checkOutcome struct {
	result pipeline.Result
	err    error
}

func runCheckWithUI(ctx context.Context, title string, files []string, req pipeline.Request) (pipeline.Result, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	events := make(chan pipeline.Event, 256)
	outcomeCh := make(chan checkOutcome, 1)

	go func() {
		req.Progress = pipeline.ChannelSink{Ch: events}
		res, err := pipeline.Check(ctx, req)
		outcomeCh <- checkOutcome{result: res, err: err}
		close(events)
	}()

	model := ui.NewProgressModel(title, files, events)
	program := tea.NewProgram(model, tea.WithOutput(os.Stdout))
	_, uiErr := program.Run()
	// после Ctrl+C модель больше не читает канал
	cancel()
	go func() {
		for range events {
		}
	}()
	outcome := <-outcomeCh
	if uiErr != nil {
		return outcome.result, uiErr
	}
	return outcome.result, outcome.err
}
