// SPDX-License-Identifier: MIT

// Package response smooths scalar levels across frames with critically damped
// or spring-damper filters, so visuals react at a chosen speed instead of
// following frame-to-frame jitter.
package response

import "math"

const (
	minResponseTime = 0.0001
	maxSpeed        = 1000.0
)

// SmoothDamp moves current toward target with a critically damped spring that
// settles in roughly responseTime seconds. velocity is read and updated in
// place. The exponential decay uses a cubic approximation that stays stable
// for large ω·deltaTime, and the result never crosses the target. deltaTime
// is not clamped here.
func SmoothDamp(current, target float64, velocity *float64, responseTime, deltaTime float64) float64 {
	responseTime = math.Max(minResponseTime, responseTime)
	omega := 2 / responseTime

	x := omega * deltaTime
	exp := 1 / (1 + x + 0.48*x*x + 0.235*x*x*x)

	change := current - target
	originalTarget := target

	maxChange := maxSpeed * responseTime
	change = math.Max(-maxChange, math.Min(change, maxChange))
	target = current - change

	temp := (*velocity + omega*change) * deltaTime
	*velocity = (*velocity - omega*temp) * exp
	output := target + (change+temp)*exp

	// Snap if we stepped past the original target.
	if (originalTarget-current > 0) == (output > originalTarget) {
		output = originalTarget
		*velocity = 0
	}
	return output
}

// SpringDamp advances an undamped spring toward target by one explicit Euler
// step, then scales velocity by damping^deltaTime. damping is the fraction of
// velocity retained per second, so values near 0 settle quickly and values
// near 1 oscillate.
func SpringDamp(current, target float64, velocity *float64, stiffness, damping, deltaTime float64) float64 {
	force := stiffness * (target - current)
	*velocity += force * deltaTime
	*velocity *= math.Pow(damping, deltaTime)
	return current + *velocity*deltaTime
}
