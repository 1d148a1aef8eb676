package turtle

import (
	"math"
	"time"
)

// StepKind names a turtle step.
type StepKind string

const (
	StepForward  StepKind = "forward"
	StepBackward StepKind = "backward"
	StepRotate   StepKind = "rotate"
	StepArc      StepKind = "arc"
	StepPenDown  StepKind = "pen_down"
	StepPenUp    StepKind = "pen_up"
	StepColor    StepKind = "color"
)

// Pose is a turtle position plus heading in radians, 0 along +x and
// counterclockwise positive.
type Pose struct {
	Position Vec
	Heading  float64
}

// HeadingDegrees returns the heading in degrees.
func (p Pose) HeadingDegrees() float64 {
	return degrees(p.Heading)
}

// motion is the analytic description of one timed step. Pose at any fraction
// of its duration is computed from the start pose, so interrupted and
// per-frame samples never accumulate drift.
type motion struct {
	kind     StepKind
	from     Pose
	duration time.Duration

	delta  Vec     // linear displacement
	turn   float64 // heading change, radians
	center Vec     // arc center
	arc    bool
}

func durationFor(amount, speed float64) time.Duration {
	if speed <= 0 || amount == 0 {
		return 0
	}
	return time.Duration(math.Abs(amount) / speed * float64(time.Second))
}

func linearMotion(kind StepKind, from Pose, distance, speed float64) motion {
	return motion{
		kind:     kind,
		from:     from,
		duration: durationFor(distance, speed),
		delta:    unit(from.Heading).Scale(distance),
	}
}

func rotateMotion(from Pose, angleDegrees, speed float64) motion {
	return motion{
		kind:     StepRotate,
		from:     from,
		duration: durationFor(angleDegrees, speed),
		turn:     radians(angleDegrees),
	}
}

// arcMotion sweeps angleDegrees around a center radius away from the turtle,
// on its left for positive angles and on its right for negative ones.
func arcMotion(from Pose, radius, angleDegrees, speed float64) motion {
	turn := radians(angleDegrees)
	side := 1.0
	if turn < 0 {
		side = -1
	}
	normal := unit(from.Heading + side*math.Pi/2)
	return motion{
		kind:     StepArc,
		from:     from,
		duration: durationFor(radius*turn, speed),
		turn:     turn,
		center:   from.Position.Add(normal.Scale(radius)),
		arc:      true,
	}
}

// at returns the pose after fraction f of the motion, clamped to [0,1].
func (m motion) at(f float64) Pose {
	f = math.Max(0, math.Min(1, f))
	heading := m.from.Heading + m.turn*f
	switch {
	case m.arc:
		offset := m.from.Position.Sub(m.center).Rotate(m.turn * f)
		return Pose{Position: m.center.Add(offset), Heading: heading}
	default:
		return Pose{Position: m.from.Position.Add(m.delta.Scale(f)), Heading: heading}
	}
}

func (m motion) end() Pose {
	return m.at(1)
}

// activeMotion is a motion in flight, anchored at its start time.
type activeMotion struct {
	motion
	started time.Time
}

// fraction returns how much of the motion has elapsed at now.
func (a activeMotion) fraction(now time.Time) float64 {
	if a.duration <= 0 {
		return 1
	}
	elapsed := now.Sub(a.started)
	if elapsed <= 0 {
		return 0
	}
	return math.Min(1, float64(elapsed)/float64(a.duration))
}

func (a activeMotion) poseAt(now time.Time) Pose {
	return a.at(a.fraction(now))
}
