// Collect and print resource usage and efficiency information for one job.
//
// Usage:
//  slurm-jobinfo3 [options] jobid
//
// where
//  -l
//    Print the long report: dependencies, comment, per-step figures and per-device
//    utilization in addition to the standard rows.
//
//  -v
//    Print informational messages about what is being run and what was malformed.
//
//  jobid
//    A numeric job id, optionally with an _taskid suffix for one task of an array job.
//
// The job is assembled from the cluster's accounting, live-stats and queue tools; a node's
// description is looked up when the advice requires knowing what the job's nodes look like.
// When a metrics feed is configured in ~/.jobinfo, device utilization is added for jobs
// that hold devices.  The report ends with tuning hints when the job used its allocation
// poorly.
//
// Defaults for the output mode, the hint thresholds and the metrics feed are read from
// ~/.jobinfo, see common/inifile.go.

package main

import (
	"flag"
	"fmt"
	"os"
	"regexp"
	"time"

	"github.com/rug-cit-hpc/slurm-jobinfo3/common"
	"github.com/rug-cit-hpc/slurm-jobinfo3/eff"
	"github.com/rug-cit-hpc/slurm-jobinfo3/gpu"
	"github.com/rug-cit-hpc/slurm-jobinfo3/report"
	"github.com/rug-cit-hpc/slurm-jobinfo3/slurm"
	"github.com/rug-cit-hpc/slurm-jobinfo3/slurmjob"
	"github.com/rug-cit-hpc/slurm-jobinfo3/status"
)

var jobIdRe = regexp.MustCompile(`^\d+(_\d+)?$`)

func main() {
	jobID, cfg, th, feed := commandLine()

	src := slurm.CommandSource{}
	job, err := slurmjob.Collect(src, jobID)
	if err != nil {
		status.Fatal(err.Error())
	}

	m := eff.Compute(job)

	var devices []gpu.DeviceUtil
	if feed != nil && job.GpusTotal > 0 {
		devs, overall, err := gpu.Collect(feed, job)
		if err != nil {
			common.Log.Warningf("Metrics feed unavailable: %s", err.Error())
		} else {
			devices = devs
			m.GpuEff = overall
		}
	}

	hints := eff.Hints(job, m, th, func(name string) (*slurmjob.NodeInfo, error) {
		return slurmjob.LookupNode(src, name)
	})

	report.Render(os.Stdout, job, m, devices, hints, cfg)
}

func commandLine() (jobID string, cfg report.Config, th eff.Thresholds, feed gpu.UtilSource) {
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "Usage: %s [options] jobid\nOptions:\n", os.Args[0])
		flag.PrintDefaults()
		fmt.Fprintf(flag.CommandLine.Output(),
			"  jobid\n    \tNumeric job id, optionally with an _taskid suffix\n")
	}
	long := false
	common.ApplyDefaultBool(&long, common.OutputLong)
	flag.BoolVar(&cfg.Long, "l", long, "Print the long report")
	verbose := flag.Bool("v", false, "Print informational messages")
	flag.Parse()

	if *verbose {
		common.Log.LowerLevelTo(status.LogLevelInfo)
	}

	th = eff.DefaultThresholds()
	common.ApplyDefaultFloat(&th.CpuEffLow, common.HintCpuEffLow)
	common.ApplyDefaultFloat(&th.CpuEffVeryLow, common.HintCpuEffVeryLow)
	common.ApplyDefaultFloat(&th.MemEffLow, common.HintMemEffLow)
	common.ApplyDefaultFloat(&th.TimeLimitIoRatio, common.HintTimeLimitIoRatio)

	rest := flag.Args()
	if len(rest) != 1 {
		flag.Usage()
		os.Exit(2)
	}
	jobID = rest[0]
	if !jobIdRe.MatchString(jobID) {
		fmt.Fprintf(os.Stderr, "Bad job id %s\n", jobID)
		os.Exit(2)
	}

	var url string
	if common.ApplyDefault(&url, common.GpuUrl) && url != "" {
		var query string
		common.ApplyDefault(&query, common.GpuQuery)
		var stepSecs int
		common.ApplyDefaultInt(&stepSecs, common.GpuStep)
		ps, err := gpu.NewPromSource(url, query, time.Duration(stepSecs)*time.Second)
		if err != nil {
			common.Log.Warningf("Metrics feed misconfigured: %s", err.Error())
		} else {
			feed = ps
		}
	}
	return
}
