package responder

import "math/rand/v2"

// Source supplies the random draws that drive pivot and donor selection.
// *rand.Rand satisfies it; tests use StepSource for reproducible streams.
type Source interface {
	Uint64() uint64
}

// NewPCG returns a PCG-backed Source seeded with the given values.
func NewPCG(seed1, seed2 uint64) Source {
	return rand.NewPCG(seed1, seed2)
}

// StepSource yields an arithmetic sequence of draws: start, start+step,
// start+2*step, ... It makes every selection in RespondTo predictable.
type StepSource struct {
	next uint64
	step uint64
}

// NewStepSource creates a StepSource beginning at start and advancing by
// step on every draw.
func NewStepSource(start, step uint64) *StepSource {
	return &StepSource{next: start, step: step}
}

// Uint64 returns the current value and advances the sequence.
func (s *StepSource) Uint64() uint64 {
	v := s.next
	s.next += s.step
	return v
}
