package model

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

func newLinearFSM() *FSM {
	fsm := NewFSM([]string{"check", "DONE"}, "check")
	fsm.AddTransition("check", EVENT_SUCCESS, "DONE")
	return fsm
}

func TestFSM(t *testing.T) {
	for scenario, fn := range map[string]func(t *testing.T){
		"test next is pure":                testNextPure,
		"test invalid transition":          testInvalidTransition,
		"test terminal states":             testTerminal,
		"test clone independence":          testCloneIndependence,
		"test validation":                  testValidation,
		"test json round trip":             testJsonRoundTrip,
	} {
		t.Run(scenario, func(t *testing.T) {
			fn(t)
		})
	}
}

func testNextPure(t *testing.T) {
	fsm := newLinearFSM()
	for i := 0; i < 10; i++ {
		next, err := fsm.Next("check", EVENT_SUCCESS)
		require.NoError(t, err)
		require.Equal(t, "DONE", next)
	}
}

func testInvalidTransition(t *testing.T) {
	fsm := newLinearFSM()
	_, err := fsm.Next("check", "no-such-event")
	require.ErrorIs(t, err, ErrInvalidTransition)
	_, err = fsm.Next("DONE", EVENT_SUCCESS)
	require.ErrorIs(t, err, ErrInvalidTransition)
}

func testTerminal(t *testing.T) {
	fsm := newLinearFSM()
	require.False(t, fsm.IsTerminal("check"))
	require.True(t, fsm.IsTerminal("DONE"))
}

func testCloneIndependence(t *testing.T) {
	template := newLinearFSM()
	a := template.Clone()
	b := template.Clone()
	require.Equal(t, "check", a.Current)
	a.Current = "DONE"
	require.Equal(t, "check", b.Current)
	require.Empty(t, template.Current)

	a.AddTransition("DONE", "again", "check")
	require.True(t, b.IsTerminal("DONE"))
}

func testValidation(t *testing.T) {
	require.NoError(t, newLinearFSM().Validate())

	empty := NewFSM(nil, "check")
	require.Error(t, empty.Validate())

	badInitial := NewFSM([]string{"a"}, "b")
	require.Error(t, badInitial.Validate())

	dangling := NewFSM([]string{"a", "b"}, "a")
	dangling.AddTransition("a", EVENT_SUCCESS, "c")
	require.Error(t, dangling.Validate())
}

func testJsonRoundTrip(t *testing.T) {
	fsm := newLinearFSM()
	data, err := json.Marshal(fsm)
	require.NoError(t, err)

	var decoded FSM
	require.NoError(t, json.Unmarshal(data, &decoded))
	require.Equal(t, fsm.States, decoded.States)
	require.Equal(t, fsm.Initial, decoded.Initial)
	next, err := decoded.Next("check", EVENT_SUCCESS)
	require.NoError(t, err)
	require.Equal(t, "DONE", next)
}
