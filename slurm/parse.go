// Parsers for the four text sources.  Each parser turns raw tool output into field mappings.
// A missing row or line yields an empty result, never an error; the caller treats empty as
// data unavailable.

package slurm

import (
	"strings"

	"github.com/rug-cit-hpc/slurm-jobinfo3/common"
)

// One row of tool output, field name to raw value.

type Record map[string]string

// Accounting output has one row per job and per step.  Fields are separated by the multi-byte
// delimiter and are decoded individually after splitting, so a field may contain "|", commas
// or spaces.  Short rows are padded with empty values and overlong rows truncated, with a
// diagnostic either way.

func ParseAccounting(raw []byte) []Record {
	records := make([]Record, 0)
	for _, line := range lines(raw) {
		vals := strings.Split(line, AccountingDelimiter)
		if len(vals) != len(SacctFields) {
			common.Log.Infof("Accounting row has %d fields, expected %d", len(vals), len(SacctFields))
		}
		records = append(records, makeRecord(SacctFields, vals))
	}
	return records
}

// Live statistics rows are pipe-delimited.  Only rows whose leading job id, with any step
// suffix removed, names the target job are kept.

func ParseLiveStats(raw []byte, jobID string) []Record {
	records := make([]Record, 0)
	for _, line := range lines(raw) {
		vals := strings.Split(line, "|")
		id, _, _ := strings.Cut(vals[0], ".")
		if id != jobID {
			continue
		}
		if len(vals) != len(SstatFields) {
			common.Log.Infof("Live-stats row has %d fields, expected %d", len(vals), len(SstatFields))
		}
		records = append(records, makeRecord(SstatFields, vals))
	}
	return records
}

// The queue snapshot has zero or one pipe-delimited row for the job; nil when absent.

func ParseQueue(raw []byte, jobID string) Record {
	for _, line := range lines(raw) {
		vals := strings.Split(line, "|")
		if vals[0] != jobID {
			continue
		}
		return makeRecord(QueueFields, vals)
	}
	return nil
}

// A node description is one space-separated Key=Value line per node.  Locate the line whose
// NodeName token matches exactly, then map its tokens; tokens without "=" are skipped and a
// repeated key overwrites the earlier one.  Nil when no line matches.

func ParseNode(raw []byte, name string) Record {
	for _, line := range lines(raw) {
		fields := strings.Fields(line)
		if len(fields) == 0 || fields[0] != "NodeName="+name {
			continue
		}
		rec := make(Record, len(fields))
		for _, tok := range fields {
			k, v, found := strings.Cut(tok, "=")
			if !found || k == "" {
				continue
			}
			rec[k] = v
		}
		return rec
	}
	return nil
}

func makeRecord(names []string, vals []string) Record {
	rec := make(Record, len(names))
	for i, name := range names {
		if i < len(vals) {
			rec[name] = vals[i]
		} else {
			rec[name] = ""
		}
	}
	return rec
}

func lines(raw []byte) []string {
	xs := make([]string, 0)
	for _, l := range strings.Split(string(raw), "\n") {
		l = strings.TrimRight(l, "\r")
		if strings.TrimSpace(l) != "" {
			xs = append(xs, l)
		}
	}
	return xs
}
