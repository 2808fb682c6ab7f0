package audio

type envelopeStage int

const (
	envIdle envelopeStage = iota
	envAttack
	envDecay
	envSustain
	envRelease
)

// envelope is a linear ADSR. Times are in seconds, sustain is a level in 0..1.
type envelope struct {
	attack  float64
	decay   float64
	sustain float64
	release float64

	stage envelopeStage
	level float64
	step  float64 // change per frame in the current stage
}

func (e *envelope) enter(stage envelopeStage) {
	e.stage = stage
	switch stage {
	case envAttack:
		e.step = 1 / (e.attack * sampleRate)
	case envDecay:
		e.step = -(1 - e.sustain) / (e.decay * sampleRate)
	case envRelease:
		e.step = -e.level / (e.release * sampleRate)
	default:
		e.step = 0
	}
}

func (e *envelope) value() float64 {
	e.level += e.step
	switch e.stage {
	case envAttack:
		if e.level >= 1 {
			e.level = 1
			if e.sustain < 1 {
				e.enter(envDecay)
			} else {
				e.enter(envSustain)
			}
		}
	case envDecay:
		if e.level <= e.sustain {
			e.level = e.sustain
			if e.sustain > 0 {
				e.enter(envSustain)
			} else {
				e.enter(envIdle)
			}
		}
	case envRelease:
		if e.level <= 0 {
			e.level = 0
			e.enter(envIdle)
		}
	}
	return e.level
}

func (e *envelope) process(buf []float64) {
	for n := range buf {
		buf[n] *= e.value()
	}
}

func (e *envelope) startAttack() {
	e.level = 0
	e.enter(envAttack)
}

func (e *envelope) startRelease() {
	if e.stage == envIdle {
		return
	}
	if e.level <= 0 {
		e.enter(envIdle)
		return
	}
	e.enter(envRelease)
}

func (e *envelope) idle() bool { return e.stage == envIdle }
