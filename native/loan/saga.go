package loan

import "fmt"

// sagaStep is a single forward action with an optional compensation. Steps
// with a nil undo are skipped during unwinding.
type sagaStep struct {
	name string
	run  func() error
	undo func() error
}

// saga executes steps in order. On the first failure it unwinds the already
// completed prefix in reverse order and returns the causing error. A failing
// compensation is reported alongside the cause; state is then inconsistent
// and the caller must surface it.
type saga struct {
	steps []sagaStep
}

func newSaga() *saga {
	return &saga{}
}

func (s *saga) then(name string, run, undo func() error) *saga {
	s.steps = append(s.steps, sagaStep{name: name, run: run, undo: undo})
	return s
}

func (s *saga) execute() error {
	for i, step := range s.steps {
		err := step.run()
		if err == nil {
			continue
		}
		for j := i - 1; j >= 0; j-- {
			prev := s.steps[j]
			if prev.undo == nil {
				continue
			}
			if undoErr := prev.undo(); undoErr != nil {
				return fmt.Errorf("%s failed (%v), compensating %s failed: %w", step.name, err, prev.name, undoErr)
			}
		}
		return fmt.Errorf("%s: %w", step.name, err)
	}
	return nil
}
