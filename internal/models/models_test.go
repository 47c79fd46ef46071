package models

import "testing"

func TestJobStatusForwardTransitions(t *testing.T) {
	order := []JobStatus{
		JobStatusQueued,
		JobStatusAssetsNormalized,
		JobStatusStoryboardReady,
		JobStatusNarrationReady,
		JobStatusTimelineFrozen,
		JobStatusRendering,
		JobStatusUploaded,
		JobStatusCompleted,
	}

	for i := 0; i < len(order)-1; i++ {
		if !order[i].CanTransition(order[i+1]) {
			t.Errorf("expected %s -> %s to be allowed", order[i], order[i+1])
		}
	}
}

func TestJobStatusNoSkippingOrBackward(t *testing.T) {
	if JobStatusQueued.CanTransition(JobStatusStoryboardReady) {
		t.Error("skipping a state should not be allowed")
	}
	if JobStatusRendering.CanTransition(JobStatusTimelineFrozen) {
		t.Error("backward transition should not be allowed")
	}
	if JobStatusRendering.CanTransition(JobStatusRendering) {
		t.Error("retry-in-place for rendering should not be allowed")
	}
}

func TestJobStatusFailedFromAnyNonTerminal(t *testing.T) {
	nonTerminal := []JobStatus{
		JobStatusQueued,
		JobStatusAssetsNormalized,
		JobStatusStoryboardReady,
		JobStatusNarrationReady,
		JobStatusTimelineFrozen,
		JobStatusRendering,
		JobStatusUploaded,
	}

	for _, s := range nonTerminal {
		if !s.CanTransition(JobStatusFailed) {
			t.Errorf("expected %s -> failed to be allowed", s)
		}
	}
}

func TestJobStatusTerminalStates(t *testing.T) {
	for _, s := range []JobStatus{JobStatusCompleted, JobStatusFailed} {
		if !s.Terminal() {
			t.Errorf("expected %s to be terminal", s)
		}
		if s.CanTransition(JobStatusQueued) {
			t.Errorf("terminal state %s should not transition", s)
		}
		if s.CanTransition(JobStatusFailed) {
			t.Errorf("terminal state %s should not transition to failed", s)
		}
	}
}

func TestJobStatusUnknownState(t *testing.T) {
	if JobStatus("bogus").CanTransition(JobStatusQueued) {
		t.Error("unknown status should not transition")
	}
	if JobStatusQueued.CanTransition(JobStatus("bogus")) {
		t.Error("transition to unknown status should not be allowed")
	}
}
