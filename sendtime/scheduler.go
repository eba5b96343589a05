// Package sendtime computes per-recipient delivery windows so contact emails
// land in the recipient's approximate local morning rather than all at once.
//
// The location-to-offset mapping is a coarse keyword heuristic over standard
// time offsets, not an IANA timezone lookup: no DST, no sub-hour offsets,
// first matching keyword wins. This is a documented limitation of the
// scheduler, not a bug.
package sendtime

import (
	"math/rand"
	"strings"
	"time"
)

// offsetEntry maps a lowercase location substring to an approximate
// standard-time UTC offset in whole hours.
type offsetEntry struct {
	keyword string
	offset  int
}

// offsetTable is ordered: more specific entries (cities) come before the
// country entries that would also match.
var offsetTable = []offsetEntry{
	// Latin America
	{"bogotá", -5}, {"bogota", -5}, {"colombia", -5},
	{"lima", -5}, {"peru", -5}, {"perú", -5},
	{"quito", -5}, {"ecuador", -5},
	{"santiago", -3}, {"chile", -3},
	{"buenos aires", -3}, {"argentina", -3},
	{"montevideo", -3}, {"uruguay", -3},
	{"sao paulo", -3}, {"são paulo", -3}, {"brazil", -3}, {"brasil", -3},
	{"mexico city", -6}, {"ciudad de méxico", -6}, {"mexico", -6}, {"méxico", -6},
	{"panama", -5}, {"panamá", -5},
	{"costa rica", -6}, {"guatemala", -6},
	{"caracas", -4}, {"venezuela", -4},
	{"la paz", -4}, {"bolivia", -4},
	{"asuncion", -4}, {"asunción", -4}, {"paraguay", -4},

	// North America
	{"new york", -5}, {"boston", -5}, {"miami", -5}, {"toronto", -5},
	{"chicago", -6}, {"austin", -6}, {"dallas", -6}, {"houston", -6},
	{"denver", -7},
	{"san francisco", -8}, {"los angeles", -8}, {"seattle", -8},
	{"california", -8}, {"vancouver", -8},
	{"canada", -5},
	{"united states", -6}, {"usa", -6},

	// Europe
	{"london", 0}, {"united kingdom", 0}, {"uk", 0}, {"ireland", 0}, {"dublin", 0},
	{"lisbon", 0}, {"portugal", 0},
	{"madrid", 1}, {"barcelona", 1}, {"spain", 1}, {"españa", 1},
	{"paris", 1}, {"france", 1},
	{"berlin", 1}, {"munich", 1}, {"germany", 1},
	{"amsterdam", 1}, {"netherlands", 1},
	{"milan", 1}, {"rome", 1}, {"italy", 1},
	{"stockholm", 1}, {"sweden", 1}, {"oslo", 1}, {"norway", 1},
	{"copenhagen", 1}, {"denmark", 1}, {"zurich", 1}, {"switzerland", 1},
	{"warsaw", 1}, {"poland", 1},
	{"helsinki", 2}, {"finland", 2}, {"athens", 2}, {"greece", 2},

	// Middle East / Asia-Pacific
	{"tel aviv", 2}, {"israel", 2},
	{"dubai", 4}, {"uae", 4},
	{"india", 5}, {"mumbai", 5}, {"bangalore", 5}, {"delhi", 5},
	{"singapore", 8}, {"hong kong", 8}, {"china", 8},
	{"tokyo", 9}, {"japan", 9}, {"seoul", 9}, {"korea", 9},
	{"sydney", 10}, {"melbourne", 10}, {"australia", 10},
	{"auckland", 12}, {"new zealand", 12},
}

// Scheduler computes send timestamps. Zero dependencies; rand and clock are
// injectable for deterministic tests.
type Scheduler struct {
	targetHour    int // recipient-local hour to aim for
	jitterMinutes int // uniform jitter added after the target hour
	defaultOffset int // offset used when no keyword matches
	intn          func(n int) int
}

// New creates a scheduler aiming for the given recipient-local hour with up
// to jitterMinutes of uniform jitter.
func New(targetHour, jitterMinutes, defaultOffset int) *Scheduler {
	return &Scheduler{
		targetHour:    targetHour,
		jitterMinutes: jitterMinutes,
		defaultOffset: defaultOffset,
		intn:          rand.Intn,
	}
}

// NewWithRand creates a scheduler with an injectable jitter source.
func NewWithRand(targetHour, jitterMinutes, defaultOffset int, intn func(n int) int) *Scheduler {
	s := New(targetHour, jitterMinutes, defaultOffset)
	s.intn = intn
	return s
}

// OffsetFor resolves a free-text location to an approximate UTC offset.
// Matching is ordered, case-insensitive substring containment; the default
// offset applies when nothing matches.
func (s *Scheduler) OffsetFor(location string) int {
	loc := strings.ToLower(strings.TrimSpace(location))
	if loc == "" {
		return s.defaultOffset
	}
	for _, entry := range offsetTable {
		if strings.Contains(loc, entry.keyword) {
			return entry.offset
		}
	}
	return s.defaultOffset
}

// ComputeScheduledSend returns the next send timestamp (UTC) that falls in
// the recipient's approximate local morning window
// [targetHour, targetHour+jitter].
//
// If the recipient's local clock is already at or past the target hour the
// send targets tomorrow morning, otherwise today's.
func (s *Scheduler) ComputeScheduledSend(location string, now time.Time) time.Time {
	offset := s.OffsetFor(location)
	utc := now.UTC()

	localHour := (utc.Hour() + offset + 24) % 24

	// Target UTC hour for the recipient's local targetHour. time.Date
	// normalizes values outside 0-23.
	targetUTCHour := s.targetHour - offset
	target := time.Date(utc.Year(), utc.Month(), utc.Day(), targetUTCHour, 0, 0, 0, time.UTC)
	if localHour >= s.targetHour {
		target = target.AddDate(0, 0, 1)
	}

	jitter := 0
	if s.jitterMinutes > 0 {
		jitter = s.intn(s.jitterMinutes + 1)
	}
	return target.Add(time.Duration(jitter) * time.Minute)
}
