// Package featureflags evaluates FEATURE_FLAGS, a comma-separated key=value list
// such as "strict_evaluations=on,realtime_events=25%".
package featureflags

import (
	"hash/fnv"
	"maps"
	"slices"
	"strconv"
	"strings"
)

// Flags understood by the backend.
const (
	// StrictEvaluations requires admin of the resource's variant to create or edit evaluations.
	StrictEvaluations = "strict_evaluations"
	// RealtimeEvents publishes resource events to the variant channels.
	RealtimeEvents = "realtime_events"
)

// defaults apply when FEATURE_FLAGS does not mention a known flag.
var defaults = map[string]string{
	StrictEvaluations: "off",
	RealtimeEvents:    "on",
}

// rollout is a parsed flag value: the share of users, 0 to 100, that get the flag.
type rollout int

func parseRollout(value string) rollout {
	switch value {
	case "on", "true", "1":
		return 100
	case "off", "false", "0":
		return 0
	}
	pct, ok := strings.CutSuffix(value, "%")
	if !ok {
		return 0
	}
	n, err := strconv.Atoi(pct)
	if err != nil {
		return 0
	}
	return rollout(min(max(n, 0), 100))
}

// Manager holds the configured flags. A nil Manager has every flag off.
type Manager struct {
	raw   map[string]string
	rules map[string]rollout
}

// NewManager parses raw. Pairs without "=" or with an empty side are ignored.
func NewManager(raw string) *Manager {
	m := &Manager{raw: maps.Clone(defaults)}
	for pair := range strings.SplitSeq(raw, ",") {
		key, value, ok := strings.Cut(pair, "=")
		key, value = normalize(key), normalize(value)
		if !ok || key == "" || value == "" {
			continue
		}
		m.raw[key] = value
	}

	m.rules = make(map[string]rollout, len(m.raw))
	for key, value := range m.raw {
		m.rules[key] = parseRollout(value)
	}
	return m
}

// Enabled reports whether name is on for userID. Partial rollouts bucket users
// deterministically and never include the anonymous user 0.
func (m *Manager) Enabled(name string, userID uint) bool {
	if m == nil {
		return false
	}
	name = normalize(name)
	switch share := m.rules[name]; {
	case share >= 100:
		return true
	case share <= 0 || userID == 0:
		return false
	default:
		return bucket(name, userID) < int(share)
	}
}

// Raw returns a copy of the configured values, defaults included.
func (m *Manager) Raw() map[string]string {
	if m == nil {
		return map[string]string{}
	}
	return maps.Clone(m.raw)
}

// Snapshot evaluates every configured flag for userID.
func (m *Manager) Snapshot(userID uint) map[string]bool {
	out := make(map[string]bool)
	for _, name := range m.Names() {
		out[name] = m.Enabled(name, userID)
	}
	return out
}

// Names returns the configured flag names, sorted.
func (m *Manager) Names() []string {
	if m == nil {
		return nil
	}
	return slices.Sorted(maps.Keys(m.raw))
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func bucket(name string, userID uint) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(name + ":" + strconv.FormatUint(uint64(userID), 10)))
	return int(h.Sum32() % 100)
}
