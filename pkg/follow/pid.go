package follow

// axisPID is a discrete per-axis PID with integral clamping. Several
// guidance laws compose one instance per controlled axis.
type axisPID struct {
	kp float64
	ki float64
	kd float64

	// integralLimit bounds the integral term's contribution so windup can
	// never push the output past the axis velocity limit.
	integralLimit float64

	integral    float64
	prevError   float64
	initialized bool
}

func newAxisPID(kp, ki, kd, integralLimit float64) *axisPID {
	return &axisPID{kp: kp, ki: ki, kd: kd, integralLimit: integralLimit}
}

// update advances the controller by dt seconds against the given error and
// returns the control output.
func (p *axisPID) update(err, dt float64) float64 {
	if !p.initialized {
		p.prevError = err
		p.initialized = true
	}

	out := p.kp * err

	if p.ki > 0 && dt > 0 {
		p.integral += err * dt
		p.integral = clamp(p.integral, -p.integralLimit/p.ki, p.integralLimit/p.ki)
		out += p.ki * p.integral
	}

	if p.kd > 0 && dt > 0 {
		out += p.kd * (err - p.prevError) / dt
	}

	p.prevError = err
	return out
}

// reset clears the controller state between sessions.
func (p *axisPID) reset() {
	p.integral = 0
	p.prevError = 0
	p.initialized = false
}
