// Package player models the audio clip player shown next to each annotated sound:
// playback state, the spectrogram/waveform view toggle, the progress timer and
// error recovery. Decoding and drawing belong to the host.
package player

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/starford/taxonomy-explorer/internal/apperr"
)

// ErrFailed is returned by playback controls while the player is in the Failed state.
var ErrFailed = errors.New("player: failed, reload required")

type State int

const (
	Idle State = iota
	Playing
	Paused
	Stopped
	Failed
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Playing:
		return "playing"
	case Paused:
		return "paused"
	case Stopped:
		return "stopped"
	case Failed:
		return "failed"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// View selects the background image drawn behind the playhead.
type View int

const (
	Spectrogram View = iota
	Waveform
)

func (v View) String() string {
	if v == Waveform {
		return "waveform"
	}
	return "spectrogram"
}

type Options struct {
	SoundURL       string
	SpectrogramURL string
	WaveformURL    string
	Logger         *slog.Logger
}

// Player is safe for concurrent use.
type Player struct {
	ID string

	opts     Options
	registry *Registry
	logger   *slog.Logger

	mu       sync.Mutex
	state    State
	view     View
	position time.Duration
	duration time.Duration
	err      error
}

// New creates an idle player showing the spectrogram. reg may be nil when the
// player does not take part in one-at-a-time playback.
func New(opts Options, reg *Registry) (*Player, error) {
	if opts.SoundURL == "" {
		return nil, fmt.Errorf("player: sound url: %w", apperr.ErrInvalid)
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Player{
		ID:       uuid.NewString(),
		opts:     opts,
		registry: reg,
		logger:   logger,
	}, nil
}

func (p *Player) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

func (p *Player) View() View {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.view
}

// Position returns the playhead.
func (p *Player) Position() time.Duration {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.position
}

// SoundURL returns the clip being played.
func (p *Player) SoundURL() string {
	return p.opts.SoundURL
}

// Err returns the failure that put the player in the Failed state.
func (p *Player) Err() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.err
}

// Loaded records the clip duration once the host has decoded the sound.
func (p *Player) Loaded(d time.Duration) {
	p.mu.Lock()
	p.duration = max(d, 0)
	p.position = min(p.position, p.duration)
	p.mu.Unlock()
}

// PlayPause pauses a playing clip and starts any other. Starting playback stops
// whichever player of the same registry was active.
func (p *Player) PlayPause() (State, error) {
	p.mu.Lock()
	switch p.state {
	case Failed:
		p.mu.Unlock()
		return Failed, ErrFailed
	case Playing:
		p.state = Paused
		p.mu.Unlock()
		return Paused, nil
	}
	if p.duration > 0 && p.position >= p.duration {
		p.position = 0
	}
	p.state = Playing
	p.mu.Unlock()

	p.registry.activate(p)
	return Playing, nil
}

// Stop halts playback and rewinds to the start.
func (p *Player) Stop() {
	p.mu.Lock()
	if p.state != Failed {
		p.state = Stopped
	}
	p.position = 0
	p.mu.Unlock()
	p.registry.release(p)
}

// Restart rewinds and plays from the start.
func (p *Player) Restart() error {
	p.mu.Lock()
	if p.state == Failed {
		p.mu.Unlock()
		return ErrFailed
	}
	p.position = 0
	p.state = Playing
	p.mu.Unlock()
	p.registry.activate(p)
	return nil
}

// SwitchView toggles between spectrogram and waveform and returns the image URL
// now in front.
func (p *Player) SwitchView() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.view == Spectrogram {
		p.view = Waveform
	} else {
		p.view = Spectrogram
	}
	return p.backgroundLocked()
}

// Background returns the image URL of the current view.
func (p *Player) Background() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.backgroundLocked()
}

func (p *Player) backgroundLocked() string {
	if p.view == Waveform {
		return p.opts.WaveformURL
	}
	return p.opts.SpectrogramURL
}

// Advance moves the playhead. Reaching the end of the clip stops playback and
// leaves the playhead at the end.
func (p *Player) Advance(pos time.Duration) {
	p.mu.Lock()
	pos = max(pos, 0)
	if p.duration > 0 {
		pos = min(pos, p.duration)
	}
	p.position = pos
	finished := p.state == Playing && p.duration > 0 && pos == p.duration
	if finished {
		p.state = Stopped
	}
	p.mu.Unlock()
	if finished {
		p.registry.release(p)
	}
}

// Progress renders the timer text, e.g. "0:07 / 1:30".
func (p *Player) Progress() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return clock(p.position) + " / " + clock(p.duration)
}

func clock(d time.Duration) string {
	s := int(d / time.Second)
	return fmt.Sprintf("%d:%02d", s/60, s%60)
}

// Fail puts the player in the Failed state until Reload.
func (p *Player) Fail(err error) {
	if err == nil {
		return
	}
	p.mu.Lock()
	p.state = Failed
	p.err = err
	p.mu.Unlock()
	p.registry.release(p)
	p.logger.Warn("player: load failed",
		slog.String("player", p.ID),
		slog.String("sound", p.opts.SoundURL),
		slog.String("error", err.Error()))
}

// Reload clears a failure and returns the player to Idle at the start of the clip.
// It reports whether the player was failed.
func (p *Player) Reload() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.state != Failed {
		return false
	}
	p.state = Idle
	p.err = nil
	p.position = 0
	return true
}
