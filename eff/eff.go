// Efficiency metrics computed from the assembled job.
//
// Every metric is a ratio in [0,1] (usually) represented as a float64, with NaN meaning
// "undefined": the inputs were unavailable or degenerate, so the ratio cannot be computed.
// Callers must test with math.IsNaN before acting on a value.

package eff

import (
	"math"

	"github.com/rug-cit-hpc/slurm-jobinfo3/slurm"
	"github.com/rug-cit-hpc/slurm-jobinfo3/slurmjob"
)

type Metrics struct {
	CpuEff         float64 // consumed core-seconds / allocated core-seconds
	MemEff         float64 // peak resident memory / requested memory
	TimeLimitRatio float64 // elapsed / time limit
	GpuEff         float64 // mean device utilization in [0,100], set by the metrics feed
}

// Compute derives the ratios from the job.  GpuEff is always NaN here; it is filled in by
// the caller when a metrics feed is configured and the job holds devices.

func Compute(job *slurmjob.Job) Metrics {
	m := Metrics{
		CpuEff:         math.NaN(),
		MemEff:         math.NaN(),
		TimeLimitRatio: math.NaN(),
		GpuEff:         math.NaN(),
	}

	if job.TotalCPU != slurm.Unknown && job.NCpus > 0 && job.Elapsed > 0 {
		m.CpuEff = float64(job.TotalCPU) / (float64(job.NCpus) * float64(job.Elapsed))
	}

	if rss, _ := job.MaxRSS(); rss != slurm.Unknown {
		if divisor := requestedMemory(job); divisor > 0 {
			m.MemEff = float64(rss) / float64(divisor)
		}
	}

	if job.Elapsed != slurm.Unknown && job.Timelimit != slurm.Unknown &&
		job.Timelimit != slurm.Unlimited && job.Timelimit > 0 {
		m.TimeLimitRatio = float64(job.Elapsed) / float64(job.Timelimit)
	}

	return m
}

// The memory request is stored with its basis; scale it to the same footing as the peak,
// which is the largest per-task resident set.  A per-node request bounds every task on the
// node.  A per-core request is owned by a task through its cores.

func requestedMemory(job *slurmjob.Job) int64 {
	if job.ReqMem == slurm.Unknown {
		return slurm.Unknown
	}
	switch job.ReqMemBasis {
	case slurm.PerNode:
		return job.ReqMem
	case slurm.PerCore:
		if job.NCpus <= 0 || job.NTasks <= 0 {
			return slurm.Unknown
		}
		return job.ReqMem * int64(job.NCpus) / int64(job.NTasks)
	default:
		return job.ReqMem
	}
}
