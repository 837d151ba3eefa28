package cmd

import (
	"errors"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bnema/boxtoplay-keeper/internal/application"
)

func TestCycleSpinnerModelShowsProgress(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		messages []tea.Msg
		want     []string
		absent   []string
	}{
		{
			name:   "before any progress",
			want:   []string{"Probing sessions..."},
			absent: []string{"cycle"},
		},
		{
			name: "cycle started",
			messages: []tea.Msg{
				cycleProgressMsg(application.CycleProgress{CycleID: "3f2a1b9c-0000-4000-8000-000000000000", Total: 2}),
			},
			want:   []string{"Probing sessions... 0/2", "cycle 3f2a1b9c"},
			absent: []string{"3f2a1b9c-0000"},
		},
		{
			name: "late progress does not move backwards",
			messages: []tea.Msg{
				cycleProgressMsg{CycleID: "c1", Total: 3},
				cycleProgressMsg{CycleID: "c1", Done: 2, Total: 3},
				cycleProgressMsg{CycleID: "c1", Done: 1, Total: 3},
			},
			want:   []string{"2/3", "cycle c1"},
			absent: []string{"1/3"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			var model tea.Model = newCycleSpinnerModel("Probing sessions...", nil)
			for _, msg := range tt.messages {
				var cmd tea.Cmd
				model, cmd = model.Update(msg)
				assert.Nil(t, cmd)
			}

			view := model.View()
			for _, want := range tt.want {
				assert.Contains(t, view, want)
			}
			for _, absent := range tt.absent {
				assert.NotContains(t, view, absent)
			}
		})
	}
}

func TestCycleSpinnerModelQuitsWithCycleError(t *testing.T) {
	t.Parallel()

	persistErr := errors.New("store unavailable")
	model, cmd := newCycleSpinnerModel("Probing sessions...", nil).Update(cycleDoneMsg{err: persistErr})

	require.NotNil(t, cmd)
	assert.IsType(t, tea.QuitMsg{}, cmd())

	final, ok := model.(cycleSpinnerModel)
	require.True(t, ok)
	assert.True(t, final.done)
	assert.ErrorIs(t, final.err, persistErr)
	assert.Empty(t, final.View())
}

func TestShortCycleID(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "3f2a1b9c", shortCycleID("3f2a1b9c-0000-4000-8000-000000000000"))
	assert.Equal(t, "abc", shortCycleID("abc"))
	assert.Equal(t, "", shortCycleID(""))
}
