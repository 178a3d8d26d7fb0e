package tui

import (
	"fmt"
	"log/slog"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/starford/taxonomy-explorer/internal/player"
)

// playTick is the playhead refresh interval while a clip plays.
const playTick = 250 * time.Millisecond

type playTickMsg struct{}

// clip is a sound example shown in an info panel.
type clip struct {
	p    *player.Player
	gain float64
}

// loadClips replaces the clips of bigID with the sound examples of its fragment.
func (m *Model) loadClips(bigID, fragment string) {
	m.dropClips(bigID)
	for _, ex := range soundExamples(fragment) {
		p, err := player.New(player.Options{
			SoundURL:       ex.sound,
			SpectrogramURL: ex.spectrogram,
			WaveformURL:    ex.waveform,
			Logger:         m.logger,
		}, m.players)
		if err != nil {
			m.logger.Warn("tui: sound example skipped",
				slog.String("big_id", bigID),
				slog.String("error", err.Error()))
			continue
		}
		if ex.duration > 0 {
			p.Loaded(ex.duration)
		}
		m.clips[bigID] = append(m.clips[bigID], clip{p: p, gain: ex.gain})
	}
}

func (m *Model) dropClips(bigID string) {
	for _, c := range m.clips[bigID] {
		c.p.Stop()
	}
	delete(m.clips, bigID)
}

// selectedClip is the first clip of the node under the cursor.
func (m Model) selectedClip() *player.Player {
	n := m.Selected()
	if n == nil || len(m.clips[n.BigID]) == 0 {
		return nil
	}
	return m.clips[n.BigID][0].p
}

func (m Model) tick() tea.Cmd {
	return tea.Tick(playTick, func(time.Time) tea.Msg { return playTickMsg{} })
}

// startTicking returns the tick command unless one is already in flight.
func (m *Model) startTicking() tea.Cmd {
	if m.ticking {
		return nil
	}
	m.ticking = true
	return m.tick()
}

// advance moves the active clip's playhead by one tick.
func (m Model) advance() (Model, tea.Cmd) {
	p := m.players.Active()
	if p == nil || p.State() != player.Playing {
		m.ticking = false
		return m, nil
	}
	p.Advance(p.Position() + playTick)
	if p.State() != player.Playing {
		m.ticking = false
		return m, nil
	}
	return m, m.tick()
}

func (m Model) updatePlayer(key string) (Model, tea.Cmd) {
	p := m.selectedClip()
	if p == nil {
		m.status = "no sound examples here"
		return m, nil
	}
	switch key {
	case "p":
		state, err := p.PlayPause()
		if err != nil {
			m.status = "play: " + err.Error()
			return m, nil
		}
		m.status = state.String() + " " + p.SoundURL()
		if state == player.Playing {
			return m, m.startTicking()
		}
	case "s":
		p.Stop()
		m.status = "stopped " + p.SoundURL()
	case "r":
		if p.Reload() {
			m.status = "reloaded " + p.SoundURL()
			return m, nil
		}
		if err := p.Restart(); err != nil {
			m.status = "restart: " + err.Error()
			return m, nil
		}
		m.status = "playing " + p.SoundURL()
		return m, m.startTicking()
	case "v":
		bg := p.SwitchView()
		m.status = p.View().String()
		if bg != "" {
			m.status += " " + bg
		}
	}
	return m, nil
}

// clipLine renders a clip as "♪ 0:01 / 0:03 playing · waveform · +6.0 dB".
func clipLine(c clip) string {
	return fmt.Sprintf("♪ %s %s · %s · %+.1f dB",
		c.p.Progress(), c.p.State(), c.p.View(), player.GainDB(c.gain))
}
