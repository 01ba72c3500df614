package tui

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/standardbeagle/relink/internal/bridge"
)

// Run opens the console against svc and blocks until the user quits.
func Run(svc *bridge.Service) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pipe := bridge.NewPipe(128)
	defer pipe.Close()
	go svc.ServePipe(ctx, pipe)

	p := tea.NewProgram(NewModel(pipe), tea.WithAltScreen())
	_, err := p.Run()
	return err
}
