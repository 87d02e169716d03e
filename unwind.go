package symexec

// UnwindingInformation records progress through a two-phase Itanium-style
// exception unwind: SearchPhase walks the stack looking for a landing
// pad willing to catch the in-flight exception; once one is found,
// CleanupPhase unwinds down to that frame running cleanup code along the
// way, then resumes execution at the landing pad.
//
// A nil UnwindingInformation means "not currently unwinding" -- the
// common case, and one of Merge's preconditions (a state mid-unwind
// never merges with one that is not, and vice versa).
type UnwindingInformation interface {
	isUnwindingInformation()
}

// SearchPhaseUnwindingInformation is in effect while no landing pad has
// been committed to yet: ExceptionObject is the in-flight exception
// value and PhaseStackIndex is how deep the search has looked so far.
type SearchPhaseUnwindingInformation struct {
	ExceptionObject  interface{}
	PhaseStackIndex  int
}

func (*SearchPhaseUnwindingInformation) isUnwindingInformation() {}

// CleanupPhaseUnwindingInformation is in effect once a handler has been
// found: CatchingStackIndex fixes which frame's landing pad will
// finally receive control once cleanup has unwound down to it.
type CleanupPhaseUnwindingInformation struct {
	ExceptionObject    interface{}
	CatchingStackIndex int
	ExceptionSelectorValue int
}

func (*CleanupPhaseUnwindingInformation) isUnwindingInformation() {}

// BeginSearchPhase starts a fresh two-phase unwind at the top of s's
// current stack, called when an exception is raised.
func (s *ExecutionState) BeginSearchPhase(exceptionObject interface{}) {
	s.Unwinding = &SearchPhaseUnwindingInformation{
		ExceptionObject: exceptionObject,
		PhaseStackIndex: len(s.Stack) - 1,
	}
}

// AdvanceSearchPhase moves the search one frame further down the stack,
// used when the current frame's landing pad declines to catch.
func (s *ExecutionState) AdvanceSearchPhase() bool {
	sp, ok := s.Unwinding.(*SearchPhaseUnwindingInformation)
	if !ok {
		return false
	}
	if sp.PhaseStackIndex == 0 {
		return false
	}
	sp.PhaseStackIndex--
	return true
}

// CommitHandler transitions from SearchPhase to CleanupPhase once a
// landing pad at catchingIndex has agreed to catch the in-flight
// exception, fixing the frame cleanup will unwind down to.
func (s *ExecutionState) CommitHandler(catchingIndex, selector int) *StateError {
	sp, ok := s.Unwinding.(*SearchPhaseUnwindingInformation)
	if !ok {
		return errExec("CommitHandler: not in search phase")
	}
	s.Unwinding = &CleanupPhaseUnwindingInformation{
		ExceptionObject:        sp.ExceptionObject,
		CatchingStackIndex:     catchingIndex,
		ExceptionSelectorValue: selector,
	}
	return nil
}

// CleanupStep pops one frame during CleanupPhase, running that frame's
// cleanup code (left to the caller) until the catching frame is
// reached, at which point the landing pad resumes and unwinding ends.
func (s *ExecutionState) CleanupStep() (done bool, err *StateError) {
	cp, ok := s.Unwinding.(*CleanupPhaseUnwindingInformation)
	if !ok {
		return false, errExec("CleanupStep: not in cleanup phase")
	}
	if len(s.Stack)-1 <= cp.CatchingStackIndex {
		s.Unwinding = nil
		return true, nil
	}
	s.PopFrame()
	return false, nil
}
