package engine

// smoothedParamD is a double-precision one-pole exponential smoother for
// zero-zipper automation, matching AudioEngine.h's SmoothedParamD exactly:
// current follows target by a fixed per-sample coefficient.
type smoothedParamD struct {
	current float64
	target  float64
	coeff   float64
}

func newSmoothedParamD(initial, coeff float64) smoothedParamD {
	return smoothedParamD{current: initial, target: initial, coeff: coeff}
}

// next advances current one sample toward target and returns the new value.
func (s *smoothedParamD) next() float64 {
	s.current += s.coeff * (s.target - s.current)
	return s.current
}

func (s *smoothedParamD) setTarget(t float64) { s.target = t }

// snap jumps current straight to target, skipping the ramp.
func (s *smoothedParamD) snap() { s.current = s.target }

// dcBlockerD is a one-pole DC blocker, double precision:
// y = x - x1 + R*y1.
type dcBlockerD struct {
	x1, y1 float64
	r      float64
}

func newDCBlockerD(r float64) dcBlockerD {
	return dcBlockerD{r: r}
}

func (d *dcBlockerD) process(x float64) float64 {
	y := x - d.x1 + d.r*d.y1
	d.x1 = x
	d.y1 = y
	return y
}

// softClipD is the cubic soft clipper x*(27+x^2)/(27+9*x^2), hard-clamped to
// +/-1 beyond +/-1.5. The curve attenuates every nonzero input (1.0 maps to
// about 0.78), so it is not transparent below unity.
func softClipD(x float64) float64 {
	if x > 1.5 {
		return 1.0
	}
	if x < -1.5 {
		return -1.0
	}
	x2 := x * x
	return x * (27.0 + x2) / (27.0 + 9.0*x2)
}
