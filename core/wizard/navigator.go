package wizard

import "sort"

// Navigator tracks the current step (1-based), the completed steps and the step sequence of a wizard.
// Completion is never revoked, except by Reset.
type Navigator struct {
	steps     []Step
	current   int
	completed map[int]struct{}
	freeJumps bool // edit mode: the conference already exists
}

func NewNavigator(steps []Step, freeJumps bool) *Navigator {
	return &Navigator{
		steps:     steps,
		current:   1,
		completed: make(map[int]struct{}),
		freeJumps: freeJumps,
	}
}

func (n *Navigator) Current() int      { return n.current }
func (n *Navigator) CurrentStep() Step { return n.steps[n.current-1] }
func (n *Navigator) MaxStep() int      { return len(n.steps) }

func (n *Navigator) Steps() []Step {
	steps := make([]Step, len(n.steps))
	copy(steps, n.steps)
	return steps
}

// StepAt returns the step at position pos.
func (n *Navigator) StepAt(pos int) (Step, bool) {
	if pos < 1 || pos > len(n.steps) {
		return "", false
	}
	return n.steps[pos-1], true
}

// Position returns the 1-based position of step.
func (n *Navigator) Position(step Step) (int, bool) {
	for i, s := range n.steps {
		if s == step {
			return i + 1, true
		}
	}
	return 0, false
}

func (n *Navigator) Next() int {
	if n.current < len(n.steps) {
		n.current++
	}
	return n.current
}

func (n *Navigator) Previous() int {
	if n.current > 1 {
		n.current--
	}
	return n.current
}

// GoTo jumps directly to pos. Jumping forward over an incomplete required step is refused;
// optional steps may be skipped.
func (n *Navigator) GoTo(pos int) error {
	if pos < 1 || pos > len(n.steps) {
		return ErrInvalidStep
	}
	if pos > n.current && !n.freeJumps {
		for p := 1; p < pos; p++ {
			if !n.steps[p-1].Optional() && !n.IsCompleted(p) {
				return ErrStepLocked
			}
		}
	}
	n.current = pos
	return nil
}

func (n *Navigator) MarkCompleted(pos int) {
	if pos < 1 || pos > len(n.steps) {
		return
	}
	n.completed[pos] = struct{}{}
}

func (n *Navigator) IsCompleted(pos int) bool {
	_, ok := n.completed[pos]
	return ok
}

// Completed returns the sorted completed positions.
func (n *Navigator) Completed() []int {
	done := make([]int, 0, len(n.completed))
	for pos := range n.completed {
		done = append(done, pos)
	}
	sort.Ints(done)
	return done
}

// RequiredCompleted reports whether every required step is completed.
func (n *Navigator) RequiredCompleted() bool {
	for i, step := range n.steps {
		if !step.Optional() && !n.IsCompleted(i+1) {
			return false
		}
	}
	return true
}

func (n *Navigator) Reset() {
	n.current = 1
	n.completed = make(map[int]struct{})
}
