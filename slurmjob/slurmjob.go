// The job model: one scheduler job with its execution steps, merged from the accounting,
// live-statistics and queue sources.

package slurmjob

import (
	"strings"

	"github.com/rug-cit-hpc/slurm-jobinfo3/gpuset"
	"github.com/rug-cit-hpc/slurm-jobinfo3/slurm"
)

// Job state as the scheduler reports it.  Some terminal states carry a tail, eg
// "CANCELLED by 4100", so the predicates match on the leading word.

type State string

const (
	StatePending   State = "PENDING"
	StateRunning   State = "RUNNING"
	StateCompleted State = "COMPLETED"
)

func (s State) Pending() bool {
	return s == StatePending
}

func (s State) Running() bool {
	return s == StateRunning
}

func (s State) Completed() bool {
	return s == StateCompleted
}

// A job is finished when it has left the queue for good: anything known that is neither
// pending nor running.

func (s State) Finished() bool {
	return s != "" && !s.Pending() && !s.Running()
}

func (s State) Cancelled() bool {
	return strings.HasPrefix(string(s), "CANCELLED")
}

// One scheduler job.  Numeric fields hold the sentinels from the slurm package when the
// sources had no data; a measured zero is never conflated with "no data".

type Job struct {
	Id        string // as requested, possibly with an array-task suffix
	Name      string
	User      string
	Partition string
	State     State

	Submit int64 // Unix seconds, slurm.UnknownTime when absent
	Start  int64
	End    int64 // absent while the job runs

	Timelimit int64 // seconds; slurm.Unlimited when no limit was requested
	Elapsed   int64 // seconds

	TotalCPU  int64 // seconds
	UserCPU   int64
	SystemCPU int64

	ReqMem      int64 // bytes
	ReqMemBasis slurm.MemBasis

	NodeList string   // compressed, as reported
	Nodes    []string // expanded, deduplicated, first occurrence first
	NNodes   int
	NCpus    int
	NTasks   int

	Gpus      gpuset.GpuSet // device indices per node, empty when none requested
	GpusTotal int

	Dependency string
	Reason     string
	Comment    string

	Steps []*Step
}

// One execution unit within a job: the batch script, the external environment step, or a
// user-launched step.  Steps share the job's wall-clock window but carry their own counters.

type Step struct {
	Name string // "batch", "extern", or the step number

	TotalCPU  int64
	UserCPU   int64
	SystemCPU int64

	MaxRSS     int64 // bytes, peak resident set
	MaxRSSNode string
	MaxRSSTask string

	MaxDiskRead      int64
	MaxDiskReadNode  string
	MaxDiskWrite     int64
	MaxDiskWriteNode string

	TresIn  map[string]int64
	TresOut map[string]int64
}

func newJob(id string) *Job {
	return &Job{
		Id:        id,
		Submit:    slurm.UnknownTime,
		Start:     slurm.UnknownTime,
		End:       slurm.UnknownTime,
		Timelimit: slurm.Unknown,
		Elapsed:   slurm.Unknown,
		TotalCPU:  slurm.Unknown,
		UserCPU:   slurm.Unknown,
		SystemCPU: slurm.Unknown,
		ReqMem:    slurm.Unknown,
		NNodes:    slurm.UnknownCount,
		NCpus:     slurm.UnknownCount,
		NTasks:    slurm.UnknownCount,
		Steps:     make([]*Step, 0),
	}
}

func newStep(name string) *Step {
	return &Step{
		Name:         name,
		TotalCPU:     slurm.Unknown,
		UserCPU:      slurm.Unknown,
		SystemCPU:    slurm.Unknown,
		MaxRSS:       slurm.Unknown,
		MaxDiskRead:  slurm.Unknown,
		MaxDiskWrite: slurm.Unknown,
	}
}

// Find the step with the given name, creating it if the accounting source has not seen it
// yet.  The live source can know about a step before accounting does.

func (j *Job) findStep(name string) *Step {
	for _, s := range j.Steps {
		if s.Name == name {
			return s
		}
	}
	s := newStep(name)
	j.Steps = append(j.Steps, s)
	return s
}

// The peak resident memory over all steps and the node where it was observed.

func (j *Job) MaxRSS() (int64, string) {
	peak := slurm.Unknown
	node := ""
	for _, s := range j.Steps {
		if s.MaxRSS != slurm.Unknown && s.MaxRSS > peak {
			peak = s.MaxRSS
			node = s.MaxRSSNode
		}
	}
	return peak, node
}

// Peak disk traffic over all steps, read and written, with the nodes where observed.

func (j *Job) MaxDiskRead() (int64, string) {
	peak := slurm.Unknown
	node := ""
	for _, s := range j.Steps {
		if s.MaxDiskRead != slurm.Unknown && s.MaxDiskRead > peak {
			peak = s.MaxDiskRead
			node = s.MaxDiskReadNode
		}
	}
	return peak, node
}

func (j *Job) MaxDiskWrite() (int64, string) {
	peak := slurm.Unknown
	node := ""
	for _, s := range j.Steps {
		if s.MaxDiskWrite != slurm.Unknown && s.MaxDiskWrite > peak {
			peak = s.MaxDiskWrite
			node = s.MaxDiskWriteNode
		}
	}
	return peak, node
}

// Description of one compute node, fetched on demand when a hint needs to compare the job's
// allocation against the node's capacity.  Not cached.

type NodeInfo struct {
	Name   string
	Cpus   int
	Memory int64 // bytes
	State  string
	Gpus   int
}

// Look up one node.  A source failure is an error; a node the source does not know yields
// (nil, nil), which callers treat as data unavailable.

func LookupNode(src slurm.DataSource, name string) (*NodeInfo, error) {
	raw, err := src.Node(name)
	if err != nil {
		return nil, err
	}
	rec := slurm.ParseNode(raw, name)
	if rec == nil {
		return nil, nil
	}
	info := &NodeInfo{
		Name:   name,
		Cpus:   slurm.UnknownCount,
		Memory: slurm.Unknown,
		State:  rec["State"],
	}
	if n, err := slurm.ParseCount(rec["CPUTot"]); err == nil {
		info.Cpus = n
	}
	// RealMemory is in megabytes
	if n, err := slurm.ParseCount(rec["RealMemory"]); err == nil && n != slurm.UnknownCount {
		info.Memory = int64(n) << 20
	}
	info.Gpus = slurm.ParseGres(rec["Gres"])["gpu"]
	return info, nil
}
