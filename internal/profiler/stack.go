package profiler

import "errors"

// ErrStackUnderflow is the panic value raised when a region exits with no
// active frame: an exit was duplicated or an entry is missing.
var ErrStackUnderflow = errors.New("pop on an empty call stack")

// CallStack is the LIFO of active frames for one thread of execution. It is
// not safe for concurrent use; give each goroutine its own.
type CallStack struct {
	frames []Frame
}

// Push appends a frame for name that started at cycle start and returns its
// 1-based position, which doubles as the frame id.
func (s *CallStack) Push(name string, start uint64) int {
	s.frames = append(s.frames, Frame{Name: name, Start: start})
	return len(s.frames)
}

// Pop removes the top frame and returns its name and exclusive cycles. The
// popped duration is added to the start of every remaining frame so their own
// Pop later excludes it.
func (s *CallStack) Pop(end uint64) (string, uint64) {
	n := len(s.frames)
	if n == 0 {
		panic(ErrStackUnderflow)
	}

	top := s.frames[n-1]
	s.frames[n-1] = Frame{}
	s.frames = s.frames[:n-1]

	cycles := end - top.Start
	for i := range s.frames {
		s.frames[i].Start += cycles
	}

	return top.Name, cycles
}

// Depth returns the number of active frames.
func (s *CallStack) Depth() int {
	return len(s.frames)
}

// Empty reports whether no frame is active.
func (s *CallStack) Empty() bool {
	return len(s.frames) == 0
}

// Frames returns a copy of the active frames, bottom first.
func (s *CallStack) Frames() []Frame {
	out := make([]Frame, len(s.frames))
	copy(out, s.frames)
	return out
}
