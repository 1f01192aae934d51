package loan

import (
	"errors"
	"strings"
	"testing"
)

func TestSagaRunsStepsInOrder(t *testing.T) {
	var trace []string
	step := func(name string) func() error {
		return func() error {
			trace = append(trace, name)
			return nil
		}
	}
	err := newSaga().
		then("a", step("a"), step("undo-a")).
		then("b", step("b"), step("undo-b")).
		then("c", step("c"), nil).
		execute()
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if got := strings.Join(trace, ","); got != "a,b,c" {
		t.Fatalf("trace = %s", got)
	}
}

func TestSagaUnwindsCompletedPrefix(t *testing.T) {
	var trace []string
	step := func(name string, fail bool) func() error {
		return func() error {
			trace = append(trace, name)
			if fail {
				return errors.New("boom")
			}
			return nil
		}
	}
	err := newSaga().
		then("a", step("a", false), step("undo-a", false)).
		then("b", step("b", false), step("undo-b", false)).
		then("c", step("c", true), step("undo-c", false)).
		execute()
	if err == nil {
		t.Fatalf("expected failure")
	}
	if got := strings.Join(trace, ","); got != "a,b,c,undo-b,undo-a" {
		t.Fatalf("trace = %s", got)
	}
	if !strings.Contains(err.Error(), "c:") {
		t.Fatalf("error must name the failing step: %v", err)
	}
}

func TestSagaSkipsNilCompensations(t *testing.T) {
	var trace []string
	err := newSaga().
		then("a", func() error { trace = append(trace, "a"); return nil }, nil).
		then("b", func() error { return errors.New("boom") }, nil).
		execute()
	if err == nil {
		t.Fatalf("expected failure")
	}
	if got := strings.Join(trace, ","); got != "a" {
		t.Fatalf("trace = %s", got)
	}
}

func TestSagaReportsCompensationFailure(t *testing.T) {
	undoErr := errors.New("undo failed")
	err := newSaga().
		then("a", func() error { return nil }, func() error { return undoErr }).
		then("b", func() error { return errors.New("boom") }, nil).
		execute()
	if !errors.Is(err, undoErr) {
		t.Fatalf("expected compensation failure surfaced, got %v", err)
	}
}
