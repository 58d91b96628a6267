package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"noisestream/internal/profile"
)

const refreshInterval = 250 * time.Millisecond

// PlaybackStatus is polled by the player view.
type PlaybackStatus interface {
	Played() uint64
	Elapsed() time.Duration
}

// PlayerModel shows what is playing and for how long.
type PlayerModel struct {
	profile profile.Profile
	device  string
	rate    int
	status  PlaybackStatus

	elapsed time.Duration
	frames  uint64
	done    bool
}

type tickMsg time.Time

// NewPlayerModel creates the status view for p playing on device.
func NewPlayerModel(p profile.Profile, device string, sampleRate int, status PlaybackStatus) PlayerModel {
	return PlayerModel{
		profile: p,
		device:  device,
		rate:    sampleRate,
		status:  status,
	}
}

func tick() tea.Cmd {
	return tea.Tick(refreshInterval, func(t time.Time) tea.Msg { return tickMsg(t) })
}

func (m PlayerModel) Init() tea.Cmd {
	return tick()
}

func (m PlayerModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tickMsg:
		m.elapsed = m.status.Elapsed()
		m.frames = m.status.Played()
		return m, tick()

	case tea.KeyMsg:
		if key.Matches(msg, keyQuit) {
			m.done = true
			return m, tea.Quit
		}
	}
	return m, nil
}

func (m PlayerModel) View() string {
	if m.done {
		return ""
	}

	var sb strings.Builder
	sb.WriteString(titleStyle.Render("noisestream"))
	sb.WriteString("\n\n")

	row := func(label, value string) {
		sb.WriteString(labelStyle.Render(label))
		sb.WriteString(value)
		sb.WriteString("\n")
	}
	row("Profile", highlightStyle.Render(profileName(m.profile)))
	row("Sound", profile.CategoryLabel(m.profile.Subtype))
	row("Volume", fmt.Sprintf("%.0f%%", m.profile.Volume*100))
	row("Seed", m.profile.Seed.String())
	row("Device", m.device)
	row("Rate", fmt.Sprintf("%d Hz", m.rate))
	row("Elapsed", m.elapsed.Truncate(time.Second).String())
	row("Frames", fmt.Sprintf("%d", m.frames))

	sb.WriteString("\n")
	sb.WriteString(infoStyle.Render("q: Stop"))
	return sb.String()
}

func profileName(p profile.Profile) string {
	if p.Name != "" {
		return p.Name
	}
	return p.Subtype
}

// RunPlayer shows the status view until the user quits or ctx is done.
func RunPlayer(ctx context.Context, m PlayerModel) error {
	p := tea.NewProgram(m, tea.WithContext(ctx))
	if _, err := p.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		return err
	}
	return nil
}
