package player

import (
	"errors"
	"io"
	"log/slog"
	"math"
	"testing"
	"time"

	"github.com/starford/taxonomy-explorer/internal/apperr"
)

func newPlayer(t *testing.T, reg *Registry) *Player {
	t.Helper()
	p, err := New(Options{
		SoundURL:       "https://sounds.example/1.mp3",
		SpectrogramURL: "https://sounds.example/1_spec.png",
		WaveformURL:    "https://sounds.example/1_wave.png",
		Logger:         slog.New(slog.NewTextHandler(io.Discard, nil)),
	}, reg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return p
}

func TestNew_RequiresSound(t *testing.T) {
	if _, err := New(Options{}, nil); !errors.Is(err, apperr.ErrInvalid) {
		t.Errorf("err = %v, want ErrInvalid", err)
	}
}

func TestNew_UniqueIDs(t *testing.T) {
	a, b := newPlayer(t, nil), newPlayer(t, nil)
	if a.ID == "" || a.ID == b.ID {
		t.Errorf("ids %q and %q", a.ID, b.ID)
	}
}

func TestPlayPauseStop(t *testing.T) {
	p := newPlayer(t, nil)
	p.Loaded(90 * time.Second)

	if s, _ := p.PlayPause(); s != Playing {
		t.Fatalf("state = %v, want playing", s)
	}
	p.Advance(7 * time.Second)
	if s, _ := p.PlayPause(); s != Paused {
		t.Fatalf("state = %v, want paused", s)
	}
	if got := p.Progress(); got != "0:07 / 1:30" {
		t.Errorf("progress = %q", got)
	}

	p.Stop()
	if p.State() != Stopped || p.Progress() != "0:00 / 1:30" {
		t.Errorf("after stop: %v %q", p.State(), p.Progress())
	}
}

func TestAdvanceToEndStops(t *testing.T) {
	reg := NewRegistry()
	p := newPlayer(t, reg)
	p.Loaded(3 * time.Second)
	_, _ = p.PlayPause()

	p.Advance(5 * time.Second)
	if p.State() != Stopped {
		t.Errorf("state = %v, want stopped", p.State())
	}
	if p.Progress() != "0:03 / 0:03" {
		t.Errorf("progress = %q", p.Progress())
	}
	if reg.Active() != nil {
		t.Error("finished player still active")
	}

	// Playing again starts over.
	_, _ = p.PlayPause()
	if p.Progress() != "0:00 / 0:03" {
		t.Errorf("replay progress = %q", p.Progress())
	}
}

func TestRestart(t *testing.T) {
	p := newPlayer(t, nil)
	p.Loaded(time.Minute)
	_, _ = p.PlayPause()
	p.Advance(40 * time.Second)
	_, _ = p.PlayPause()

	if err := p.Restart(); err != nil {
		t.Fatalf("Restart: %v", err)
	}
	if p.State() != Playing || p.Progress() != "0:00 / 1:00" {
		t.Errorf("after restart: %v %q", p.State(), p.Progress())
	}
}

func TestSwitchView(t *testing.T) {
	p := newPlayer(t, nil)
	if p.View() != Spectrogram || p.Background() != "https://sounds.example/1_spec.png" {
		t.Fatalf("initial view %v %q", p.View(), p.Background())
	}
	if got := p.SwitchView(); got != "https://sounds.example/1_wave.png" || p.View() != Waveform {
		t.Errorf("switch = %q (%v)", got, p.View())
	}
	if got := p.SwitchView(); got != "https://sounds.example/1_spec.png" {
		t.Errorf("switch back = %q", got)
	}
}

func TestFailAndReload(t *testing.T) {
	reg := NewRegistry()
	p := newPlayer(t, reg)
	_, _ = p.PlayPause()

	boom := errors.New("decode error")
	p.Fail(boom)
	if p.State() != Failed || !errors.Is(p.Err(), boom) {
		t.Fatalf("state %v err %v", p.State(), p.Err())
	}
	if reg.Active() != nil {
		t.Error("failed player still active")
	}
	if _, err := p.PlayPause(); !errors.Is(err, ErrFailed) {
		t.Errorf("PlayPause while failed = %v", err)
	}
	if err := p.Restart(); !errors.Is(err, ErrFailed) {
		t.Errorf("Restart while failed = %v", err)
	}

	if !p.Reload() {
		t.Fatal("Reload reported no failure")
	}
	if p.State() != Idle || p.Err() != nil {
		t.Errorf("after reload: %v %v", p.State(), p.Err())
	}
	if p.Reload() {
		t.Error("second Reload should be a no-op")
	}
}

func TestRegistry_OneActivePlayer(t *testing.T) {
	reg := NewRegistry()
	a, b := newPlayer(t, reg), newPlayer(t, reg)

	_, _ = a.PlayPause()
	if reg.Active() != a {
		t.Fatal("a not active")
	}
	_, _ = b.PlayPause()
	if reg.Active() != b {
		t.Fatal("b not active")
	}
	if a.State() != Stopped {
		t.Errorf("a = %v, want stopped", a.State())
	}

	_, _ = b.PlayPause() // pause keeps b registered
	if reg.Active() != b {
		t.Error("paused player lost the slot")
	}
	b.Stop()
	if reg.Active() != nil {
		t.Error("stopped player still active")
	}
}

func TestNormalizationGain(t *testing.T) {
	tests := []struct {
		name    string
		samples []float64
		target  float64
		ceiling float64
		want    float64
	}{
		{"silence", []float64{0, 0, 0}, 0.1, 0.98, 1},
		{"empty", nil, 0.1, 0.98, 1},
		// RMS 0.05, peak 0.05: gain 2 reaches the target well below the ceiling.
		{"raise to target", []float64{0.05, -0.05, 0.05, -0.05}, 0.1, 0.98, 2},
		// RMS 0.5, peak 0.5: attenuate to target.
		{"lower to target", []float64{0.5, -0.5}, 0.1, 0.98, 0.2},
		// RMS ~0.05 but a 0.5 peak: capped at ceiling/peak.
		{"peak limited", append(make([]float64, 99), 0.5), 0.1, 0.98, 1.96},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NormalizationGain(tt.samples, tt.target, tt.ceiling)
			if math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("gain = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestNormalize(t *testing.T) {
	samples := []float64{0.05, -0.05, 0.05, -0.05}
	gain := Normalize(samples, DefaultTargetRMS, DefaultPeakCeiling)
	if math.Abs(gain-2) > 1e-9 {
		t.Fatalf("gain = %v", gain)
	}
	l := Measure(samples)
	if math.Abs(l.RMS-DefaultTargetRMS) > 1e-9 || math.Abs(l.Peak-0.1) > 1e-9 {
		t.Errorf("after normalize: %+v", l)
	}
	if db := GainDB(gain); math.Abs(db-6.0206) > 1e-3 {
		t.Errorf("GainDB = %v", db)
	}
}
