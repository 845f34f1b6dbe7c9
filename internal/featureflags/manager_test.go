package featureflags

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDefaults(t *testing.T) {
	m := NewManager("")

	assert.False(t, m.Enabled(StrictEvaluations, 1))
	assert.True(t, m.Enabled(RealtimeEvents, 1))
	assert.Equal(t, []string{RealtimeEvents, StrictEvaluations}, m.Names())
}

func TestOverridesDefaults(t *testing.T) {
	m := NewManager("STRICT_EVALUATIONS=on, realtime_events = off")

	assert.True(t, m.Enabled(StrictEvaluations, 7))
	assert.False(t, m.Enabled(RealtimeEvents, 7))
}

func TestEnabled_BooleanValues(t *testing.T) {
	m := NewManager("a=on,b=off,c=true,d=false,e=1,f=0")

	for _, name := range []string{"a", "c", "e"} {
		assert.True(t, m.Enabled(name, 1), name)
	}
	for _, name := range []string{"b", "d", "f", "missing"} {
		assert.False(t, m.Enabled(name, 1), name)
	}
}

func TestEnabled_PercentageValues(t *testing.T) {
	m := NewManager("always=100%,never=0%,canary=25%,junk=abc%")

	assert.True(t, m.Enabled("always", 1))
	assert.False(t, m.Enabled("never", 1))
	assert.False(t, m.Enabled("junk", 1))

	first := m.Enabled("canary", 42)
	for i := 0; i < 5; i++ {
		assert.Equal(t, first, m.Enabled("canary", 42), "rollout must be deterministic per user")
	}
	assert.False(t, m.Enabled("canary", 0), "percentage rollout requires a user")
}

func TestRawAndSnapshot(t *testing.T) {
	m := NewManager(" bad ,x=on, y = 20% ,z=off ")

	raw := m.Raw()
	assert.Len(t, raw, 5)
	assert.Equal(t, "20%", raw["y"])

	snap := m.Snapshot(123)
	assert.Len(t, snap, 5)
	assert.True(t, snap["x"])
	assert.False(t, snap["z"])
}

func TestNilManager(t *testing.T) {
	var m *Manager
	assert.False(t, m.Enabled(RealtimeEvents, 1))
}

func TestNilManager_ReportsNothing(t *testing.T) {
	var m *Manager
	assert.Empty(t, m.Raw())
	assert.Empty(t, m.Snapshot(1))
	assert.Nil(t, m.Names())
}

func TestParseRollout_Clamps(t *testing.T) {
	assert.Equal(t, rollout(100), parseRollout("250%"))
	assert.Equal(t, rollout(0), parseRollout("-5%"))
	assert.Equal(t, rollout(40), parseRollout("40%"))
	assert.Equal(t, rollout(0), parseRollout("maybe"))
}
