package cmd

import (
	"context"
	"fmt"
	"io"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/bnema/boxtoplay-keeper/internal/application"
)

type cycleDoneMsg struct {
	err error
}

type cycleProgressMsg application.CycleProgress

var (
	spinnerStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("69"))
	cycleIDStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
)

// cycleSpinnerModel shows a probe cycle while it runs: the label, how many
// accounts have been probed so far and the cycle id used in the logs.
type cycleSpinnerModel struct {
	spinner  spinner.Model
	label    string
	cycle    tea.Cmd
	progress *application.CycleProgress
	err      error
	done     bool
}

func newCycleSpinnerModel(label string, cycle tea.Cmd) cycleSpinnerModel {
	return cycleSpinnerModel{
		spinner: spinner.New(spinner.WithSpinner(spinner.Dot), spinner.WithStyle(spinnerStyle)),
		label:   label,
		cycle:   cycle,
	}
}

func (m cycleSpinnerModel) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.cycle)
}

func (m cycleSpinnerModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	case cycleProgressMsg:
		progress := application.CycleProgress(msg)
		// Progress from concurrent probes may arrive out of order.
		if m.progress == nil || progress.Done >= m.progress.Done {
			m.progress = &progress
		}
		return m, nil
	case cycleDoneMsg:
		m.done = true
		m.err = msg.err
		return m, tea.Quit
	default:
		return m, nil
	}
}

func (m cycleSpinnerModel) View() string {
	if m.done {
		return ""
	}
	if m.progress == nil {
		return fmt.Sprintf("%s %s", m.spinner.View(), m.label)
	}

	return fmt.Sprintf("%s %s %d/%d %s",
		m.spinner.View(), m.label, m.progress.Done, m.progress.Total,
		cycleIDStyle.Render("cycle "+shortCycleID(m.progress.CycleID)))
}

func shortCycleID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

// runCycleSpinner shows label on output while cycle runs and returns its
// error. cycle reports progress through the function it is handed.
func runCycleSpinner(ctx context.Context, output io.Writer, label string, cycle func(context.Context, func(application.CycleProgress)) error) error {
	var p *tea.Program
	cycleCmd := func() tea.Msg {
		return cycleDoneMsg{err: cycle(ctx, func(progress application.CycleProgress) {
			p.Send(cycleProgressMsg(progress))
		})}
	}

	p = tea.NewProgram(
		newCycleSpinnerModel(label, cycleCmd),
		tea.WithInput(nil),
		tea.WithOutput(output),
		tea.WithContext(ctx),
	)

	finalModel, err := p.Run()
	if err != nil {
		return err
	}

	result, ok := finalModel.(cycleSpinnerModel)
	if !ok {
		return fmt.Errorf("unexpected final spinner model type %T", finalModel)
	}

	return result.err
}
