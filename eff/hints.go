package eff

import (
	"math"

	"github.com/rug-cit-hpc/slurm-jobinfo3/common"
	"github.com/rug-cit-hpc/slurm-jobinfo3/slurm"
	"github.com/rug-cit-hpc/slurm-jobinfo3/slurmjob"
)

// Hint texts.  These are user-facing and stable, tests depend on them.
const (
	HintCpuIo      = "Check the file in- and output pattern of your application."
	HintCpuVeryLow = "The program efficiency is very low."
	HintCpuLow     = "The program efficiency is low. Your program is not using the assigned cores"
	HintMemOver    = "You requested much more memory than your program used."
)

// Thresholds are ratios in [0,1], overridable from the [hints] section of ~/.jobinfo.
type Thresholds struct {
	CpuEffLow        float64 // below this the CPU hints kick in
	CpuEffVeryLow    float64 // below this the job was mostly idle
	MemEffLow        float64 // below this the memory request was oversized
	TimeLimitIoRatio float64 // elapsed/limit at or above this suggests I/O-bound, not idle
}

func DefaultThresholds() Thresholds {
	return Thresholds{
		CpuEffLow:        0.75,
		CpuEffVeryLow:    0.5,
		MemEffLow:        0.25,
		TimeLimitIoRatio: 0.8,
	}
}

// NodeLookup returns the description of one node, or nil when the node is unknown.
type NodeLookup func(name string) (*slurmjob.NodeInfo, error)

// Hints selects the advice to print.  Selection is independent per metric and the order is
// fixed: the CPU hint, if any, precedes the memory hint.  An undefined metric fires nothing.

func Hints(job *slurmjob.Job, m Metrics, th Thresholds, lookup NodeLookup) []string {
	var hints []string
	if !math.IsNaN(m.CpuEff) && m.CpuEff < th.CpuEffLow {
		switch {
		case ioPlausible(job, m, th, lookup):
			hints = append(hints, HintCpuIo)
		case m.CpuEff < th.CpuEffVeryLow:
			hints = append(hints, HintCpuVeryLow)
		default:
			hints = append(hints, HintCpuLow)
		}
	}
	if !math.IsNaN(m.MemEff) && m.MemEff < th.MemEffLow {
		hints = append(hints, HintMemOver)
	}
	return hints
}

// A job that idles its cores and still runs into its time limit on nodes it owns outright is
// plausibly waiting on the file system rather than leaving cores unused by mistake.  The
// ownership check compares the allocated core count against the summed capacity of the
// job's nodes; when any node description is unavailable the comparison cannot be made and
// the answer is no.

func ioPlausible(job *slurmjob.Job, m Metrics, th Thresholds, lookup NodeLookup) bool {
	if math.IsNaN(m.TimeLimitRatio) || m.TimeLimitRatio < th.TimeLimitIoRatio {
		return false
	}
	if lookup == nil || len(job.Nodes) == 0 || job.NCpus <= 0 {
		return false
	}
	capacity := 0
	for _, name := range job.Nodes {
		info, err := lookup(name)
		if err != nil {
			common.Log.Warningf("Node description source unavailable: %s", err.Error())
			return false
		}
		if info == nil || info.Cpus == slurm.UnknownCount {
			return false
		}
		capacity += info.Cpus
	}
	return job.NCpus >= capacity
}
