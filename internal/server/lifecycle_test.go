package server

import (
	"sync"
	"testing"

	"github.com/conneroisu/switchboard/internal/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStateString(t *testing.T) {
	testCases := []struct {
		state    State
		expected string
	}{
		{StateStarting, "starting"},
		{StateListening, "listening"},
		{StateDraining, "draining"},
		{StateStopped, "stopped"},
		{State(42), "unknown"},
	}

	for _, tc := range testCases {
		t.Run(tc.expected, func(t *testing.T) {
			assert.Equal(t, tc.expected, tc.state.String())
		})
	}
}

func TestLifecycleTransitions(t *testing.T) {
	tests := []struct {
		name    string
		path    []State
		wantErr bool
	}{
		{"graceful path", []State{StateListening, StateDraining, StateStopped}, false},
		{"bind failure", []State{StateStopped}, false},
		{"skip listening", []State{StateDraining}, true},
		{"stop while listening", []State{StateListening, StateStopped}, true},
		{"drain twice", []State{StateListening, StateDraining, StateDraining}, true},
		{"restart after stop", []State{StateStopped, StateListening}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := NewLifecycle()
			var err error
			for _, next := range tt.path {
				if err = l.transition(next); err != nil {
					break
				}
			}
			if tt.wantErr {
				require.Error(t, err)
				assert.ErrorIs(t, err, errors.ErrLifecycle)
			} else {
				assert.NoError(t, err)
				assert.Equal(t, tt.path[len(tt.path)-1], l.State())
			}
		})
	}
}

func TestLifecycleObservers(t *testing.T) {
	l := NewLifecycle()

	var seen []Transition
	l.Subscribe(func(tr Transition) { seen = append(seen, tr) })

	changed := l.Changed()
	require.NoError(t, l.transition(StateListening))

	select {
	case <-changed:
	default:
		t.Fatal("Changed channel was not closed by the transition")
	}

	require.NoError(t, l.transition(StateDraining))
	require.NoError(t, l.transition(StateStopped))

	require.Len(t, seen, 3)
	assert.Equal(t, StateStarting, seen[0].From)
	assert.Equal(t, StateListening, seen[0].To)
	assert.Equal(t, StateStopped, seen[2].To)
	assert.False(t, seen[2].At.Before(seen[0].At))

	select {
	case <-l.Stopped():
	default:
		t.Fatal("Stopped channel was not closed")
	}
}

func TestLifecycleConcurrentDrainOnlyOneWins(t *testing.T) {
	l := NewLifecycle()
	require.NoError(t, l.transition(StateListening))

	var wg sync.WaitGroup
	var mu sync.Mutex
	wins := 0
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if l.transition(StateDraining) == nil {
				mu.Lock()
				wins++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, wins)
	assert.Equal(t, StateDraining, l.State())
}
