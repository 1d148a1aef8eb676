package turtle

import (
	"sync"
	"time"

	"github.com/charmbracelet/harmonica"
)

const (
	DefaultWidth     = 300.0
	DefaultHeight    = 300.0
	DefaultFrameRate = 60
)

const (
	cameraFrequency = 4.0
	cameraDamping   = 1.0
)

// Scene holds every turtle and path drawn during a run and refreshes them
// once per frame. Turtles extend their own paths at step boundaries; Frame
// fills in the intermediate points of motions in flight.
type Scene struct {
	width  float64
	height float64
	spring harmonica.Spring

	mu      sync.Mutex
	epoch   uint64
	turtles []*Turtle
	paths   []*Path
	frames  uint64

	camera         Vec
	cameraVelocity Vec
}

// NewScene returns an empty scene of the given size. Non-positive dimensions
// fall back to the defaults.
func NewScene(width, height float64, frameRate int) *Scene {
	if width <= 0 {
		width = DefaultWidth
	}
	if height <= 0 {
		height = DefaultHeight
	}
	if frameRate <= 0 {
		frameRate = DefaultFrameRate
	}
	scene := &Scene{
		width:  width,
		height: height,
		spring: harmonica.NewSpring(harmonica.FPS(frameRate), cameraFrequency, cameraDamping),
	}
	scene.camera = scene.Midpoint()
	return scene
}

// Midpoint is where new turtles are placed.
func (s *Scene) Midpoint() Vec {
	return Vec{X: s.width / 2, Y: s.height / 2}
}

// Size returns the scene dimensions.
func (s *Scene) Size() (float64, float64) {
	return s.width, s.height
}

// Frame samples every turtle at now, extends the active paths of those with
// the pen down, and eases the camera toward the drawing.
func (s *Scene) Frame(now time.Time) {
	s.mu.Lock()
	turtles := make([]*Turtle, len(s.turtles))
	copy(turtles, s.turtles)
	s.mu.Unlock()

	for _, turtle := range turtles {
		turtle.trace(now)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.frames++
	target := s.boundsLocked()
	goal := s.Midpoint()
	if !target.Empty() {
		goal = target.Center()
	}
	s.camera.X, s.cameraVelocity.X = s.spring.Update(s.camera.X, s.cameraVelocity.X, goal.X)
	s.camera.Y, s.cameraVelocity.Y = s.spring.Update(s.camera.Y, s.cameraVelocity.Y, goal.Y)
}

// Reset removes every turtle and path and recenters the camera. Turtles from
// before the reset stop accepting steps.
func (s *Scene) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.epoch++
	s.turtles = nil
	s.paths = nil
	s.frames = 0
	s.camera = s.Midpoint()
	s.cameraVelocity = Vec{}
}

// Snapshot is a detached copy of the scene for rendering.
type Snapshot struct {
	Width   float64
	Height  float64
	Camera  Vec
	Bounds  Bounds
	Paths   []Path
	Turtles []TurtleSnapshot
	Frames  uint64
}

// Snapshot copies the current scene. Turtle poses are sampled at now so a
// motion in flight renders at its interpolated position.
func (s *Scene) Snapshot(now time.Time) Snapshot {
	s.mu.Lock()
	turtles := make([]*Turtle, len(s.turtles))
	copy(turtles, s.turtles)
	out := Snapshot{
		Width:  s.width,
		Height: s.height,
		Camera: s.camera,
		Bounds: s.boundsLocked(),
		Paths:  make([]Path, 0, len(s.paths)),
		Frames: s.frames,
	}
	for _, path := range s.paths {
		out.Paths = append(out.Paths, path.clone())
	}
	s.mu.Unlock()

	for _, turtle := range turtles {
		out.Turtles = append(out.Turtles, turtle.Snapshot(now))
	}
	return out
}

// Paths returns copies of every path in creation order.
func (s *Scene) Paths() []Path {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Path, 0, len(s.paths))
	for _, path := range s.paths {
		out = append(out, path.clone())
	}
	return out
}

// Camera returns the eased camera center.
func (s *Scene) Camera() Vec {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.camera
}

// Empty reports whether nothing has been placed in the scene.
func (s *Scene) Empty() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.turtles) == 0 && len(s.paths) == 0
}

func (s *Scene) boundsLocked() Bounds {
	bounds := EmptyBounds()
	for _, path := range s.paths {
		for _, point := range path.Points {
			bounds = bounds.Include(point)
		}
	}
	return bounds
}

func (s *Scene) addTurtle(turtle *Turtle) (int, uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.turtles = append(s.turtles, turtle)
	return len(s.turtles), s.epoch
}

func (s *Scene) live(epoch uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.epoch == epoch
}

// startPath opens a new path at start and returns it. Callers hold the
// owning turtle's lock; the scene lock is always taken second.
func (s *Scene) startPath(epoch uint64, color string, start Vec) *Path {
	s.mu.Lock()
	defer s.mu.Unlock()
	path := &Path{Color: color, Points: []Vec{start}}
	if s.epoch != epoch {
		return path
	}
	s.paths = append(s.paths, path)
	return path
}

func (s *Scene) extendPath(path *Path, point Vec) {
	s.mu.Lock()
	defer s.mu.Unlock()
	path.extend(point)
}

func (s *Scene) sealPath(path *Path, point Vec) {
	s.mu.Lock()
	defer s.mu.Unlock()
	path.seal(point)
}
