package mixer

// FadeCurve selects the shape of a fade envelope.
type FadeCurve int

const (
	FadeLinear FadeCurve = iota + 1
	FadeEqualPower
	FadePulseRelease
	FadeRelease
)

func (c FadeCurve) String() string {
	switch c {
	case FadeLinear:
		return "linear"
	case FadeEqualPower:
		return "equal-power"
	case FadePulseRelease:
		return "pulse-release"
	case FadeRelease:
		return "release"
	default:
		return "unknown"
	}
}

// ParseFadeCurve maps a curve name as produced by String back to its value.
func ParseFadeCurve(name string) (FadeCurve, bool) {
	switch name {
	case "", "linear":
		return FadeLinear, true
	case "equal-power", "eqpow":
		return FadeEqualPower, true
	case "pulse-release", "pulserel":
		return FadePulseRelease, true
	case "release", "rel":
		return FadeRelease, true
	default:
		return 0, false
	}
}

// Default fade lengths in seconds, used when a stream asks for a fade without a duration.
const (
	DefaultFadeInTime  float32 = 0.5
	DefaultFadeOutTime float32 = 0.75
)

// Volume holds the three independent multiplicative gains of a stream.
type Volume struct {
	Global float32 `json:"global"`
	Left   float32 `json:"left"`
	Right  float32 `json:"right"`
}

// UnityVolume is full volume on both channels.
func UnityVolume() Volume {
	return Volume{Global: 1, Left: 1, Right: 1}
}

// FadeEnvelope is a transition of the global volume over the stream's own
// timeline. Times are seconds from the start of the stream.
type FadeEnvelope struct {
	Curve       FadeCurve
	StartTime   float32
	Duration    float32
	EndTime     float32
	StartVolume float32
	EndVolume   float32

	// Saved is restored on the stream when the fade completes or is cancelled.
	Saved Volume
}

// NewFadeEnvelope builds an envelope. It panics on a zero duration.
func NewFadeEnvelope(curve FadeCurve, from, to, start, duration float32, saved Volume) FadeEnvelope {
	if duration == 0 {
		panic("mixer: fade duration must be non-zero")
	}
	if curve == 0 {
		curve = FadeLinear
	}
	return FadeEnvelope{
		Curve:       curve,
		StartTime:   start,
		Duration:    duration,
		EndTime:     start + duration,
		StartVolume: from,
		EndVolume:   to,
		Saved:       saved,
	}
}

// ComputeFadeVolume evaluates env at now. A nil envelope or a zero duration
// leaves current untouched. done reports that now is past the end time, in
// which case the returned volume is the envelope's end volume.
func ComputeFadeVolume(env *FadeEnvelope, now, current float32) (volume float32, done bool) {
	if env == nil || env.Duration == 0 {
		return current, false
	}
	if now > env.EndTime {
		return env.EndVolume, true
	}

	t := clamp01((now - env.StartTime) / env.Duration)
	v := env.StartVolume + (env.EndVolume-env.StartVolume)*curveFactor(env.Curve, t)
	if v < 0 {
		v = 0
	}
	return v, false
}

// curveFactor maps normalized progress t in [0,1] onto the curve.
// PulseRelease overshoots to 1.2 just before the end.
func curveFactor(curve FadeCurve, t float32) float32 {
	switch curve {
	case FadeLinear:
		return t
	case FadeEqualPower:
		return 1.57*t + t*t*(-0.43*t-0.14)
	case FadePulseRelease:
		p := float32(1)
		d := abs32((1-t)*20 - 1)
		if d < 1 {
			p = 1 + (1-(3*d*d-2*d*d*d))*0.2
		}
		r := t * t * t
		r = r * r * 0.5
		if t < 0.95 {
			d = 1 - (0.95-t)*16
		} else {
			d = 1
		}
		return p * max(r, d)
	case FadeRelease:
		r := t * t * t
		r = r * r * 0.5
		d := 1 - (1-t)*15
		return max(r, d)
	default:
		return 1
	}
}

func clamp01(v float32) float32 {
	if v > 1 {
		return 1
	}
	if v < 0 {
		return 0
	}
	return v
}

func abs32(v float32) float32 {
	if v < 0 {
		return -v
	}
	return v
}
