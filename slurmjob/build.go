// Assembly of the job model from the raw source records.

package slurmjob

import (
	"errors"
	"fmt"
	"strings"

	"github.com/rug-cit-hpc/slurm-jobinfo3/common"
	"github.com/rug-cit-hpc/slurm-jobinfo3/gpuset"
	"github.com/rug-cit-hpc/slurm-jobinfo3/hostglob"
	"github.com/rug-cit-hpc/slurm-jobinfo3/slurm"
)

var NoJobError = errors.New("No such job")

// Collect fetches the sources in order and builds the job.  The accounting source is required.
// The queue and live-stats sources degrade to "unavailable" when they fail, since the queue
// tool exits nonzero for jobs that have already left the queue.

func Collect(src slurm.DataSource, jobID string) (*Job, error) {
	rawAcct, err := src.Accounting(jobID)
	if err != nil {
		return nil, fmt.Errorf("Accounting source failed: %w", err)
	}
	acct := slurm.ParseAccounting(rawAcct)
	state := peekState(acct, jobID)

	var live []slurm.Record
	if state.Running() {
		if raw, err := src.LiveStats(jobID); err != nil {
			common.Log.Warningf("Live-stats source unavailable: %s", err.Error())
		} else {
			live = slurm.ParseLiveStats(raw, jobID)
		}
	}

	var queue slurm.Record
	if len(acct) == 0 || !state.Finished() {
		if raw, err := src.Queue(jobID); err != nil {
			common.Log.Warningf("Queue source unavailable: %s", err.Error())
		} else {
			queue = slurm.ParseQueue(raw, jobID)
		}
	}

	return Build(jobID, acct, live, queue)
}

// Build merges parsed records into one Job.  The accounting row with an empty step suffix
// seeds the job attributes; rows with a suffix become Steps; the queue row fills dependency
// and reason; live rows override step peaks while the job is RUNNING.  Missing and malformed
// fields become sentinels, never errors.

func Build(jobID string, acct []slurm.Record, live []slurm.Record, queue slurm.Record) (*Job, error) {
	id := effectiveId(acct, jobID)

	var jobRow slurm.Record
	stepRows := make([]slurm.Record, 0)
	seenStep := make(map[string]bool)
	for _, rec := range acct {
		base, suffix, isStep := strings.Cut(rec["JobID"], ".")
		if base != id {
			continue
		}
		if !isStep {
			if jobRow == nil {
				jobRow = rec
			}
			continue
		}
		if seenStep[suffix] {
			common.Log.Infof("Duplicate step row %s", rec["JobID"])
			continue
		}
		seenStep[suffix] = true
		stepRows = append(stepRows, rec)
	}

	if jobRow == nil && len(stepRows) == 0 {
		// Not in accounting.  A freshly submitted job can still be in the queue.
		if queue == nil {
			return nil, NoJobError
		}
		job := newJob(jobID)
		job.State = State(queue["State"])
		job.Dependency = queue["Dependency"]
		job.Reason = queue["Reason"]
		return job, nil
	}

	job := newJob(id)
	seed := jobRow
	if seed == nil {
		// Accounting can have step rows before the job row; the shared attributes are
		// repeated on every row.
		seed = stepRows[0]
	}
	seedJob(job, seed)

	for _, rec := range stepRows {
		_, suffix, _ := strings.Cut(rec["JobID"], ".")
		fillStep(job.findStep(suffix), rec)
	}

	// The job row's CPU totals can be missing while the steps know theirs.
	if job.TotalCPU == slurm.Unknown {
		job.TotalCPU = sumSteps(job.Steps, func(s *Step) int64 { return s.TotalCPU })
	}
	if job.UserCPU == slurm.Unknown {
		job.UserCPU = sumSteps(job.Steps, func(s *Step) int64 { return s.UserCPU })
	}
	if job.SystemCPU == slurm.Unknown {
		job.SystemCPU = sumSteps(job.Steps, func(s *Step) int64 { return s.SystemCPU })
	}

	if queue != nil {
		job.Dependency = queue["Dependency"]
		job.Reason = queue["Reason"]
		if job.State == "" {
			job.State = State(queue["State"])
		}
	}

	if job.State.Running() {
		overlayLive(job, live)
	}

	if job.Start != slurm.UnknownTime && job.End != slurm.UnknownTime && job.Start > job.End {
		common.Log.Warningf("Job %s has start after end", job.Id)
	}

	return job, nil
}

// Array-task rows use ids like 1234_7.  When the requested id matches no row directly but
// array-task rows are present, report on the first task.

func effectiveId(acct []slurm.Record, jobID string) string {
	for _, rec := range acct {
		base, _, _ := strings.Cut(rec["JobID"], ".")
		if base == jobID {
			return jobID
		}
	}
	for _, rec := range acct {
		base, _, _ := strings.Cut(rec["JobID"], ".")
		if strings.HasPrefix(base, jobID+"_") {
			common.Log.Infof("Reporting on array task %s", base)
			return base
		}
	}
	return jobID
}

func peekState(acct []slurm.Record, jobID string) State {
	id := effectiveId(acct, jobID)
	for _, rec := range acct {
		base, suffix, _ := strings.Cut(rec["JobID"], ".")
		if base == id && suffix == "" {
			return State(rec["State"])
		}
	}
	for _, rec := range acct {
		base, _, _ := strings.Cut(rec["JobID"], ".")
		if base == id {
			return State(rec["State"])
		}
	}
	return ""
}

func seedJob(job *Job, rec slurm.Record) {
	job.Name = rec["JobName"]
	job.User = rec["User"]
	job.Partition = rec["Partition"]
	job.State = State(rec["State"])
	job.Submit = softTime(rec, "Submit")
	job.Start = softTime(rec, "Start")
	job.End = softTime(rec, "End")
	job.Timelimit = softDuration(rec, "Timelimit")
	job.Elapsed = softDuration(rec, "Elapsed")
	job.TotalCPU = softDuration(rec, "TotalCPU")
	job.UserCPU = softDuration(rec, "UserCPU")
	job.SystemCPU = softDuration(rec, "SystemCPU")
	job.NNodes = softCount(rec, "NNodes")
	job.NCpus = softCount(rec, "NCPUS")
	job.NTasks = softCount(rec, "NTasks")
	job.Comment = rec["Comment"]

	if n, basis, err := slurm.ParseReqMem(rec["ReqMem"]); err == nil {
		job.ReqMem = n
		job.ReqMemBasis = basis
	} else {
		malformed("ReqMem", rec["ReqMem"])
	}

	job.NodeList = rec["NodeList"]
	if nodeListKnown(job.NodeList) {
		if nodes, err := hostglob.ExpandNodeList(job.NodeList); err != nil {
			malformed("NodeList", job.NodeList)
		} else {
			job.Nodes = nodes
			if job.NNodes == slurm.UnknownCount {
				job.NNodes = len(nodes)
			} else if job.NNodes != len(nodes) {
				common.Log.Warningf("Node list %s expands to %d nodes, accounting says %d",
					job.NodeList, len(nodes), job.NNodes)
				job.NNodes = len(nodes)
			}
		}
	}

	job.GpusTotal = slurm.GpuCount(rec["AllocTRES"])
	perNode := job.GpusTotal
	if job.NNodes > 1 && perNode > 0 {
		perNode = (perNode + job.NNodes - 1) / job.NNodes
	}
	if g, err := gpuset.FromCount(perNode); err != nil {
		malformed("AllocTRES", rec["AllocTRES"])
	} else {
		job.Gpus = g
	}
}

func fillStep(st *Step, rec slurm.Record) {
	st.TotalCPU = softDuration(rec, "TotalCPU")
	st.UserCPU = softDuration(rec, "UserCPU")
	st.SystemCPU = softDuration(rec, "SystemCPU")
	st.MaxRSS = softBytes(rec, "MaxRSS")
	st.MaxRSSNode = rec["MaxRSSNode"]
	st.MaxRSSTask = rec["MaxRSSTask"]
	st.MaxDiskRead = softBytes(rec, "MaxDiskRead")
	st.MaxDiskReadNode = rec["MaxDiskReadNode"]
	st.MaxDiskWrite = softBytes(rec, "MaxDiskWrite")
	st.MaxDiskWriteNode = rec["MaxDiskWriteNode"]
	st.TresIn = slurm.ParseTRES(rec["TRESUsageInTot"])
	st.TresOut = slurm.ParseTRES(rec["TRESUsageOutTot"])
}

// While the job runs, the live source is authoritative for step peaks: accounting for an
// in-progress step lags the real counters.  Only available live values replace accounting
// values; "no data" never overwrites data.

func overlayLive(job *Job, live []slurm.Record) {
	for _, rec := range live {
		_, suffix, _ := strings.Cut(rec["JobID"], ".")
		st := job.findStep(suffix)
		if v := softBytes(rec, "MaxRSS"); v != slurm.Unknown {
			st.MaxRSS = v
			st.MaxRSSNode = rec["MaxRSSNode"]
			st.MaxRSSTask = rec["MaxRSSTask"]
		}
		if v := softBytes(rec, "MaxDiskRead"); v != slurm.Unknown {
			st.MaxDiskRead = v
			st.MaxDiskReadNode = rec["MaxDiskReadNode"]
		}
		if v := softBytes(rec, "MaxDiskWrite"); v != slurm.Unknown {
			st.MaxDiskWrite = v
			st.MaxDiskWriteNode = rec["MaxDiskWriteNode"]
		}
		if m := slurm.ParseTRES(rec["TRESUsageInTot"]); m != nil {
			st.TresIn = m
		}
		if m := slurm.ParseTRES(rec["TRESUsageOutTot"]); m != nil {
			st.TresOut = m
		}
	}
}

func sumSteps(steps []*Step, get func(*Step) int64) int64 {
	sum := slurm.Unknown
	for _, s := range steps {
		if v := get(s); v != slurm.Unknown {
			if sum == slurm.Unknown {
				sum = v
			} else {
				sum += v
			}
		}
	}
	return sum
}

func nodeListKnown(s string) bool {
	return s != "" && s != "None assigned" && !strings.HasPrefix(s, "(")
}

func softDuration(rec slurm.Record, field string) int64 {
	n, err := slurm.ParseDuration(rec[field])
	if err != nil {
		malformed(field, rec[field])
		return slurm.Unknown
	}
	return n
}

func softBytes(rec slurm.Record, field string) int64 {
	n, err := slurm.ParseBytes(rec[field])
	if err != nil {
		malformed(field, rec[field])
		return slurm.Unknown
	}
	return n
}

func softTime(rec slurm.Record, field string) int64 {
	n, err := slurm.ParseTime(rec[field])
	if err != nil {
		malformed(field, rec[field])
		return slurm.UnknownTime
	}
	return n
}

func softCount(rec slurm.Record, field string) int {
	n, err := slurm.ParseCount(rec[field])
	if err != nil {
		malformed(field, rec[field])
		return slurm.UnknownCount
	}
	return n
}

func malformed(field, val string) {
	common.Log.Infof("Malformed %s %q, treating as unavailable", field, val)
}
