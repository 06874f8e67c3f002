// internal/games/pong/world.go
//
// Pure per-frame pong physics on a 600x400 field.
//   - Ball: 20px square, starts centered moving (+5,+5).
//   - Paddles: 20x100 at x=0 (left) and x=580 (right), y clamped to [0,300].
//   - Hitting a paddle reverses X; hitting the top/bottom wall reverses Y.
//     Both speed up the ball by 1 on each axis.
//   - The rally ends once the ball leaves the field on the left or right.

package pong

const (
	Width       = 600
	Height      = 400
	BallSize    = 20
	PaddleW     = 20
	PaddleH     = 100
	PaddleStep  = 10
	paddleMaxY  = Height - PaddleH
	speedUp     = 1
	startSpeed  = 5
	startPaddle = 150
)

// Side selects a paddle.
type Side int

const (
	Left Side = iota
	Right
)

// Ball position (top-left corner) and velocity per frame.
type Ball struct {
	X  int `json:"x"`
	Y  int `json:"y"`
	VX int `json:"vx"`
	VY int `json:"vy"`
}

// World is the complete simulation state.
type World struct {
	Ball    Ball `json:"ball"`
	Left    int  `json:"left"`
	Right   int  `json:"right"`
	Bounces int  `json:"bounces"`
	Over    bool `json:"over"`
}

// NewWorld returns the kick-off position.
func NewWorld() World {
	return World{
		Ball:  Ball{X: Width / 2, Y: Height / 2, VX: startSpeed, VY: startSpeed},
		Left:  startPaddle,
		Right: startPaddle,
	}
}

// MovePaddle moves one paddle by dy, clamped to the field.
func (w *World) MovePaddle(s Side, dy int) {
	p := &w.Left
	if s == Right {
		p = &w.Right
	}
	*p = min(max(*p+dy, 0), paddleMaxY)
}

// Step advances one frame. It reports whether the rally just ended.
func (w *World) Step() bool {
	if w.Over {
		return false
	}
	b := &w.Ball
	x, y := b.X+b.VX, b.Y+b.VY

	// Only a paddle the ball is moving towards can return it.
	if (b.VX < 0 && w.hitsPaddle(x, y, 0, w.Left)) || (b.VX > 0 && w.hitsPaddle(x, y, Width-PaddleW, w.Right)) {
		b.VX = -grow(b.VX)
		b.VY = grow(b.VY)
		x += b.VX
		w.Bounces++
	}

	if y <= 0 || y >= Height-BallSize {
		b.VX = grow(b.VX)
		b.VY = -grow(b.VY)
		y += b.VY
	}

	b.X, b.Y = x, y
	if x < 0 || x > Width {
		w.Over = true
		return true
	}
	return false
}

func (w *World) hitsPaddle(x, y, px, py int) bool {
	return x <= px+PaddleW && x+BallSize >= px && y <= py+PaddleH && y+BallSize >= py
}

// grow adds speedUp to |v| keeping its sign.
func grow(v int) int {
	if v < 0 {
		return v - speedUp
	}
	return v + speedUp
}
