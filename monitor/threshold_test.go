package monitor

import (
	"testing"
)

func newTestEngine(t *testing.T) *ThresholdEngine {
	t.Helper()
	engine, err := NewThresholdEngine(DefaultThresholdConfig(), testLogger())
	if err != nil {
		t.Fatalf("NewThresholdEngine: %v", err)
	}
	return engine
}

func TestNewThresholdEngineValidation(t *testing.T) {
	tests := []struct {
		name    string
		cfg     ThresholdConfig
		wantErr bool
	}{
		{"defaults", DefaultThresholdConfig(), false},
		{"high equals low", ThresholdConfig{High: 65, Low: 65, ReclaimMargin: 2}, true},
		{"high below low", ThresholdConfig{High: 50, Low: 65, ReclaimMargin: 2}, true},
		{"low not positive", ThresholdConfig{High: 80, Low: 0, ReclaimMargin: 2}, true},
		{"high above hundred", ThresholdConfig{High: 120, Low: 65, ReclaimMargin: 2}, true},
		{"negative margin", ThresholdConfig{High: 80, Low: 65, ReclaimMargin: -1}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewThresholdEngine(tt.cfg, testLogger())
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr = %v", err, tt.wantErr)
			}
		})
	}
}

func TestThresholdBreachSignalsReclaim(t *testing.T) {
	engine := newTestEngine(t)

	dec := engine.Transition(60, nil)
	if dec.State != StateNormal || dec.Signal != SignalNone {
		t.Fatalf("below high: %+v", dec)
	}

	dec = engine.Transition(82, nil)
	if dec.State != StateElevated || dec.Signal != SignalReclaim {
		t.Fatalf("breach: %+v", dec)
	}
}

func TestThresholdElevatedHoldsBetweenThresholds(t *testing.T) {
	engine := newTestEngine(t)
	engine.Transition(82, nil)

	// Swap dropped under high but not under low: hold position quietly.
	dec := engine.Transition(72, &ActionRecord{
		Kind: ActionCacheClear, Outcome: OutcomeSuccess,
		SwapBefore: 82, SwapAfter: 72,
	})
	if dec.State != StateElevated || dec.Signal != SignalNone {
		t.Fatalf("between thresholds: %+v", dec)
	}
}

func TestThresholdEffectiveReclaimRetries(t *testing.T) {
	engine := newTestEngine(t)
	engine.Transition(82, nil)

	// The reclaim moved swap by more than the margin yet the level is
	// back over high: try reclaiming again rather than escalating.
	dec := engine.Transition(81, &ActionRecord{
		Kind: ActionCacheClear, Outcome: OutcomeSuccess,
		SwapBefore: 85, SwapAfter: 79,
	})
	if dec.State != StateElevated || dec.Signal != SignalReclaim {
		t.Fatalf("effective reclaim: %+v", dec)
	}
}

func TestThresholdIneffectiveReclaimEscalates(t *testing.T) {
	engine := newTestEngine(t)
	engine.Transition(82, nil)

	dec := engine.Transition(83, &ActionRecord{
		Kind: ActionCacheClear, Outcome: OutcomeSuccess,
		SwapBefore: 82, SwapAfter: 81.5,
	})
	if dec.State != StateCritical || dec.Signal != SignalRestart {
		t.Fatalf("ineffective reclaim: %+v", dec)
	}
}

func TestThresholdFailedReclaimEscalates(t *testing.T) {
	engine := newTestEngine(t)
	engine.Transition(82, nil)

	dec := engine.Transition(83, &ActionRecord{
		Kind: ActionCacheClear, Outcome: OutcomeFailed,
		SwapBefore: 82, SwapAfter: 82,
	})
	if dec.State != StateCritical || dec.Signal != SignalRestart {
		t.Fatalf("failed reclaim: %+v", dec)
	}
}

func TestThresholdCriticalRepeatsRestartUntilLow(t *testing.T) {
	engine := newTestEngine(t)
	engine.Transition(82, nil)
	engine.Transition(83, &ActionRecord{
		Kind: ActionCacheClear, Outcome: OutcomeSuccess,
		SwapBefore: 82, SwapAfter: 82,
	})

	// Still above low after a restart: keep asking for restarts.
	dec := engine.Transition(70, &ActionRecord{
		Kind: ActionServiceRestart, Outcome: OutcomeSuccess,
		SwapBefore: 83, SwapAfter: 70,
	})
	if dec.State != StateCritical || dec.Signal != SignalRestart {
		t.Fatalf("critical above low: %+v", dec)
	}

	dec = engine.Transition(64, nil)
	if dec.State != StateNormal || dec.Signal != SignalNone {
		t.Fatalf("critical below low: %+v", dec)
	}
}

func TestThresholdFullEscalationScenario(t *testing.T) {
	engine := newTestEngine(t)

	steps := []struct {
		swap      float64
		last      *ActionRecord
		wantState State
	}{
		{60, nil, StateNormal},
		{82, nil, StateElevated},
		{83, &ActionRecord{Kind: ActionCacheClear, Outcome: OutcomeSuccess, SwapBefore: 82, SwapAfter: 82.5}, StateCritical},
		{64, &ActionRecord{Kind: ActionServiceRestart, Outcome: OutcomeSuccess, SwapBefore: 83, SwapAfter: 64}, StateNormal},
	}
	for i, step := range steps {
		dec := engine.Transition(step.swap, step.last)
		if dec.State != step.wantState {
			t.Fatalf("step %d (swap %.0f): state = %v, want %v", i, step.swap, dec.State, step.wantState)
		}
	}
}

func TestThresholdBreachCounter(t *testing.T) {
	engine := newTestEngine(t)
	engine.Transition(85, nil)
	engine.Transition(86, nil)
	if got := engine.Breaches(); got != 2 {
		t.Fatalf("Breaches() = %d, want 2", got)
	}
	engine.Transition(70, nil)
	if got := engine.Breaches(); got != 0 {
		t.Fatalf("Breaches() after drop = %d, want 0", got)
	}
}
