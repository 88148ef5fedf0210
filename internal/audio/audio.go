// Package audio provides the terminal's success/error feedback cues.
//
// The original terminal decodes and plays WAV files through rodio on a
// spawned thread per cue (fire-and-forget, gated on a config toggle). No
// audio-decode library is available anywhere in this module's dependency
// set, so Player here is a logging-only stand-in behind the same
// interface the Terminal State Machine consumes (state.CuePlayer):
// swapping in a real decoder later means writing one new implementation
// of this interface, not touching the state machine.
package audio

import "log"

// Config toggles cue playback and a volume the real implementation would
// apply to PCM output.
type Config struct {
	Enabled bool
	Volume  float32
}

// Player implements state.CuePlayer. It logs instead of producing sound.
type Player struct {
	cfg Config
}

// New builds a Player from Config.
func New(cfg Config) *Player {
	return &Player{cfg: cfg}
}

// PlaySuccess fires the success cue.
func (p *Player) PlaySuccess() {
	p.play("success")
}

// PlayError fires the error cue.
func (p *Player) PlayError() {
	p.play("error")
}

func (p *Player) play(cue string) {
	if !p.cfg.Enabled {
		return
	}
	go log.Printf("audio cue: %s (volume=%.2f)", cue, p.cfg.Volume)
}
