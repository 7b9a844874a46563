// Contracts for the scheduler's inspection tools and the subprocess plumbing that invokes them.

package slurm

import (
	"strings"

	"github.com/rug-cit-hpc/slurm-jobinfo3/common"
	"github.com/rug-cit-hpc/slurm-jobinfo3/process"
)

// The field delimiter asked of the accounting tool.  Job names and comments may contain every
// ordinary punctuation character, so pick one that cannot appear in them.  Splitting must be on
// the full encoded sequence, never on one of its bytes.

const AccountingDelimiter = "☃"

// Fields requested from the accounting tool, one value per field in this order.

var SacctFields = []string{
	"JobID", "JobName", "User", "Partition", "NodeList", "NNodes", "NCPUS",
	"NTasks", "State", "Submit", "Start", "End", "Timelimit", "Elapsed",
	"TotalCPU", "UserCPU", "SystemCPU", "ReqMem", "MaxRSS", "MaxRSSNode",
	"MaxRSSTask", "MaxDiskRead", "MaxDiskReadNode", "MaxDiskWrite",
	"MaxDiskWriteNode", "AllocTRES", "TRESUsageInTot", "TRESUsageOutTot",
	"Comment",
}

// Fields requested from the live statistics tool.

var SstatFields = []string{
	"JobID", "MaxRSS", "MaxRSSNode", "MaxRSSTask", "MaxDiskRead",
	"MaxDiskReadNode", "MaxDiskWrite", "MaxDiskWriteNode", "TRESUsageInTot",
	"TRESUsageOutTot",
}

// Field names of the queue snapshot row.

var QueueFields = []string{"JobID", "State", "Dependency", "Reason"}

// A DataSource provides the raw text of the four scheduler sources.  Implementations return an
// error only when the source could not be consulted at all; "no data for this id" is an empty
// result.

type DataSource interface {
	Accounting(jobID string) ([]byte, error)
	LiveStats(jobID string) ([]byte, error)
	Queue(jobID string) ([]byte, error)
	Node(name string) ([]byte, error)
}

// CommandSource is the real thing: it runs the scheduler's tools.

type CommandSource struct{}

func (CommandSource) Accounting(jobID string) ([]byte, error) {
	return run("sacct",
		"--noheader", "-P", "--delimiter="+AccountingDelimiter,
		"--format="+strings.Join(SacctFields, ","),
		"-j", jobID)
}

func (CommandSource) LiveStats(jobID string) ([]byte, error) {
	return run("sstat",
		"--noheader", "-a", "-P",
		"--format="+strings.Join(SstatFields, ","),
		"-j", jobID)
}

func (CommandSource) Queue(jobID string) ([]byte, error) {
	return run("squeue", "--noheader", "-o", "%i|%T|%E|%r", "-j", jobID)
}

func (CommandSource) Node(name string) ([]byte, error) {
	return run("scontrol", "-o", "show", "node", name)
}

func run(program string, args ...string) ([]byte, error) {
	common.Log.Infof("Running %s %s", program, strings.Join(args, " "))
	return process.RunSubprocess(program, args...)
}
