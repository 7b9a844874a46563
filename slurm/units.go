// Normalization of the scheduler's native value representations: colon-separated durations,
// memory sizes with binary-prefix suffixes, local timestamps, name=value resource lists.

package slurm

import (
	"errors"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/rug-cit-hpc/slurm-jobinfo3/common"
)

// Values for fields the source had nothing to say about.  A measured zero is always
// distinguishable from "no data".

const (
	Unknown      int64 = -1            // counters, sizes, durations
	UnknownTime  int64 = 0             // timestamps (Unix seconds)
	Unlimited    int64 = math.MaxInt64 // time limit when none was requested
	UnknownCount int   = -1            // small counts (nodes, cpus, tasks)
)

var (
	DurationError = errors.New("Bad duration format")
	MemoryError   = errors.New("Bad memory size")
	TimeError     = errors.New("Bad timestamp")
	CountError    = errors.New("Bad count")
)

// Strings the scheduler prints in place of a value it does not have.

func unavailable(s string) bool {
	switch s {
	case "", "Unknown", "UNKNOWN", "INVALID", "N/A", "None", "NONE", "Partition_Limit":
		return true
	}
	return false
}

// The documented duration format is [DD-[HH:]]MM:SS[.fraction] though the scheduler is not
// entirely consistent about which parts are optional.  Parse the numbers between terminators
// instead: (DD-)?(HH:)?MM:SS(.fraction)?.  The fraction is chopped.

func ParseDuration(s string) (int64, error) {
	if unavailable(s) {
		return Unknown, nil
	}
	if s == "UNLIMITED" {
		return Unlimited, nil
	}
	var days, hours, minutes, seconds int64
	var haveDays, haveHours, haveMinutes bool

	n, i := parseIntHere(s, 0)
	if i < 0 {
		return Unknown, DurationError
	}
	if i < len(s) && s[i] == '-' {
		days = n
		haveDays = true
		n, i = parseIntHere(s, i+1)
		if i < 0 {
			return Unknown, DurationError
		}
	}
	for i < len(s) && s[i] == ':' {
		if haveHours {
			return Unknown, DurationError
		}
		if haveMinutes {
			hours = minutes
			haveHours = true
		}
		minutes = n
		haveMinutes = true
		n, i = parseIntHere(s, i+1)
		if i < 0 {
			return Unknown, DurationError
		}
	}
	if !haveMinutes {
		return Unknown, DurationError
	}
	seconds = n
	if i < len(s) && s[i] == '.' {
		_, i = parseIntHere(s, i+1)
		if i < 0 {
			return Unknown, DurationError
		}
	}
	if i < len(s) {
		return Unknown, DurationError
	}
	result := seconds + minutes*60
	if haveHours {
		result += hours * 3600
	}
	if haveDays {
		result += days * 86400
	}
	return result, nil
}

func parseIntHere(s string, i int) (int64, int) {
	start := i
	var n int64
	for i < len(s) && s[i] >= '0' && s[i] <= '9' {
		old := n
		n = n*10 + int64(s[i]-'0')
		if n < old {
			return 0, -1
		}
		i++
	}
	if i == start {
		return 0, -1
	}
	return n, i
}

// Reconstruct a duration as D-HH:MM:SS, the days elided when zero.  The total seconds round-trip
// through ParseDuration exactly.

func FormatDuration(secs int64) string {
	if secs < 0 {
		return "--"
	}
	days := secs / 86400
	secs %= 86400
	hours := secs / 3600
	secs %= 3600
	minutes := secs / 60
	secs %= 60
	if days > 0 {
		return strconv.FormatInt(days, 10) + "-" +
			pad2(hours) + ":" + pad2(minutes) + ":" + pad2(secs)
	}
	return pad2(hours) + ":" + pad2(minutes) + ":" + pad2(secs)
}

func pad2(n int64) string {
	if n < 10 {
		return "0" + strconv.FormatInt(n, 10)
	}
	return strconv.FormatInt(n, 10)
}

// A memory size is a decimal number possibly followed by K, M, G, T, P or E, with powers-of-1024
// multipliers.  A bare number is bytes.

func ParseBytes(s string) (int64, error) {
	if unavailable(s) {
		return Unknown, nil
	}
	mpy := int64(1)
	switch s[len(s)-1] {
	case 'E':
		mpy = 1 << 60
		s = s[:len(s)-1]
	case 'P':
		mpy = 1 << 50
		s = s[:len(s)-1]
	case 'T':
		mpy = 1 << 40
		s = s[:len(s)-1]
	case 'G':
		mpy = 1 << 30
		s = s[:len(s)-1]
	case 'M':
		mpy = 1 << 20
		s = s[:len(s)-1]
	case 'K':
		mpy = 1 << 10
		s = s[:len(s)-1]
	}
	n, err := strconv.ParseFloat(s, 64)
	if err != nil || n < 0 || math.IsInf(n, 0) || math.IsNaN(n) {
		return Unknown, MemoryError
	}
	return int64(math.Round(n * float64(mpy))), nil
}

// Display form of a byte count: the largest unit that leaves a value of at least one, one
// decimal.

func FormatBytes(n int64) string {
	if n < 0 {
		return "--"
	}
	units := "KMGTPE"
	v := float64(n)
	suffix := ""
	for i := 0; v >= 1024 && i < len(units); i++ {
		v /= 1024
		suffix = string(units[i])
	}
	if suffix == "" {
		return strconv.FormatInt(n, 10)
	}
	return strconv.FormatFloat(v, 'f', 1, 64) + suffix
}

// The basis of a memory request: what one requested unit applies to.  The scheduler marks a
// per-node request with a trailing "n" and a per-core request with a trailing "c"; an unmarked
// value applies per task.

type MemBasis int

const (
	PerTask MemBasis = iota
	PerNode
	PerCore
)

func (b MemBasis) String() string {
	switch b {
	case PerNode:
		return "node"
	case PerCore:
		return "core"
	default:
		return "task"
	}
}

func ParseReqMem(s string) (int64, MemBasis, error) {
	basis := PerTask
	if !unavailable(s) {
		switch s[len(s)-1] {
		case 'n':
			basis = PerNode
			s = s[:len(s)-1]
		case 'c':
			basis = PerCore
			s = s[:len(s)-1]
		}
	}
	n, err := ParseBytes(s)
	return n, basis, err
}

// Timestamps are local time without a zone, eg 2026-01-05T10:11:12.

const timeLayout = "2006-01-02T15:04:05"

func ParseTime(s string) (int64, error) {
	if unavailable(s) {
		return UnknownTime, nil
	}
	t, err := time.ParseInLocation(timeLayout, s, time.Local)
	if err != nil {
		return UnknownTime, TimeError
	}
	return t.Unix(), nil
}

func FormatTime(t int64) string {
	if t == UnknownTime {
		return "--"
	}
	return time.Unix(t, 0).Format(timeLayout)
}

func ParseCount(s string) (int, error) {
	if unavailable(s) {
		return UnknownCount, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return UnknownCount, CountError
	}
	return n, nil
}

// A TRES list is name=value pairs separated by commas, the values being counts, memory sizes or
// durations depending on the resource.  Unparseable entries are dropped with a diagnostic; a
// missing list yields nil.

func ParseTRES(s string) map[string]int64 {
	if s == "" {
		return nil
	}
	m := make(map[string]int64)
	for _, kv := range strings.Split(s, ",") {
		name, val, found := strings.Cut(kv, "=")
		if !found || name == "" {
			common.Log.Infof("Dropping malformed resource entry %q", kv)
			continue
		}
		var n int64
		var err error
		if strings.Contains(val, ":") {
			n, err = ParseDuration(val)
		} else {
			n, err = ParseBytes(val)
		}
		if err != nil || n == Unknown {
			common.Log.Infof("Dropping malformed resource entry %q", kv)
			continue
		}
		m[name] = n
	}
	return m
}

// A gres list is name:count with an optional model between, eg "gpu:2" or "gpu:a100:2",
// comma-separated.  Model-specific counts accumulate under the plain name.

func ParseGres(s string) map[string]int {
	if s == "" || s == "(null)" {
		return nil
	}
	m := make(map[string]int)
	for _, entry := range strings.Split(s, ",") {
		parts := strings.Split(entry, ":")
		if len(parts) < 2 {
			common.Log.Infof("Dropping malformed gres entry %q", entry)
			continue
		}
		n, err := strconv.Atoi(parts[len(parts)-1])
		if err != nil || n < 0 {
			common.Log.Infof("Dropping malformed gres entry %q", entry)
			continue
		}
		m[parts[0]] += n
	}
	return m
}

// The number of accelerators in an allocated-TRES list.  The plain gres/gpu entry is
// authoritative; model-specific entries are summed when it is absent.

func GpuCount(allocTres string) int {
	exact := 0
	modelSum := 0
	for name, v := range ParseTRES(allocTres) {
		if name == "gres/gpu" {
			exact = int(v)
		} else if strings.HasPrefix(name, "gres/gpu:") {
			modelSum += int(v)
		}
	}
	if exact > 0 {
		return exact
	}
	return modelSum
}
