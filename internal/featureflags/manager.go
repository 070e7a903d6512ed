// Package featureflags evaluates FEATURE_FLAGS, a comma separated name=value list
// such as "coach_partner_suggestions=off,live_events=25%".
package featureflags

import (
	"fmt"
	"hash/fnv"
	"sort"
	"strconv"
	"strings"
)

// Flag names understood by the service.
const (
	// CoachPartnerSuggestions answers collaboration requests with community members instead of the model.
	CoachPartnerSuggestions = "coach_partner_suggestions"
	// LiveEvents streams notifications over /api/ws.
	LiveEvents = "live_events"
)

// Defaults apply when FEATURE_FLAGS does not mention a flag.
var Defaults = map[string]string{
	CoachPartnerSuggestions: "on",
	LiveEvents:              "on",
}

// Manager holds parsed flag values; configured values override Defaults.
type Manager struct {
	flags map[string]string
}

// NewManager parses raw on top of Defaults. Malformed pairs are ignored.
func NewManager(raw string) *Manager {
	out := make(map[string]string, len(Defaults))
	for k, v := range Defaults {
		out[k] = v
	}

	for _, pair := range strings.Split(raw, ",") {
		name, value, ok := strings.Cut(strings.TrimSpace(pair), "=")
		if !ok {
			continue
		}
		name, value = normalize(name), normalize(value)
		if name == "" || value == "" {
			continue
		}
		out[name] = value
	}

	return &Manager{flags: out}
}

// Enabled reports whether name is on for userID.
// Values: on/true/1, off/false/0, or N% for a stable per-user rollout.
// A nil manager has every flag off.
func (m *Manager) Enabled(name string, userID uint) bool {
	if m == nil {
		return false
	}

	value, ok := m.flags[normalize(name)]
	if !ok {
		return false
	}

	switch value {
	case "on", "true", "1":
		return true
	case "off", "false", "0":
		return false
	}

	pctRaw, isPct := strings.CutSuffix(value, "%")
	if !isPct {
		return false
	}
	pct, err := strconv.Atoi(pctRaw)
	if err != nil || pct <= 0 {
		return false
	}
	if pct >= 100 {
		return true
	}
	if userID == 0 {
		return false
	}
	return rolloutBucket(name, userID) < pct
}

// Names lists every known flag in sorted order.
func (m *Manager) Names() []string {
	names := make([]string, 0, len(m.flags))
	for name := range m.flags {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Raw returns a copy of the effective flag values.
func (m *Manager) Raw() map[string]string {
	out := make(map[string]string, len(m.flags))
	for k, v := range m.flags {
		out[k] = v
	}
	return out
}

// Snapshot evaluates every flag for one user.
func (m *Manager) Snapshot(userID uint) map[string]bool {
	out := make(map[string]bool, len(m.flags))
	for name := range m.flags {
		out[name] = m.Enabled(name, userID)
	}
	return out
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func rolloutBucket(name string, userID uint) int {
	h := fnv.New32a()
	_, _ = fmt.Fprintf(h, "%s:%d", normalize(name), userID)
	return int(h.Sum32() % 100)
}
