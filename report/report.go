// Rendering of the final report.
//
// The report is a fixed-width table of "Label : value" lines in a stable order, followed by
// the hints.  Values that could not be determined print as "--".  Long mode adds the rows
// most users do not need: dependencies, the comment field, per-step figures and per-device
// utilization.

package report

import (
	"fmt"
	"io"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/rug-cit-hpc/slurm-jobinfo3/eff"
	"github.com/rug-cit-hpc/slurm-jobinfo3/gpu"
	"github.com/rug-cit-hpc/slurm-jobinfo3/slurm"
	"github.com/rug-cit-hpc/slurm-jobinfo3/slurmjob"
)

const labelWidth = 20

// Config is the output mode, threaded in from the flags and ~/.jobinfo.
type Config struct {
	Long bool
}

func Render(w io.Writer, job *slurmjob.Job, m eff.Metrics, devices []gpu.DeviceUtil, hints []string, cfg Config) {
	r := renderer{w}
	pending := job.State.Pending()

	r.row("Job ID", str(job.Id))
	r.row("Name", str(job.Name))
	r.row("User", str(job.User))
	r.row("Partition", str(job.Partition))
	if !pending {
		r.row("Nodes", str(job.NodeList))
		r.row("Number of Nodes", count(job.NNodes))
		r.row("Cores", count(job.NCpus))
		r.row("Number of Tasks", count(job.NTasks))
	}
	r.row("State", str(string(job.State)))
	if pending || cfg.Long {
		r.row("Dependency", str(job.Dependency))
		r.row("Reason", str(job.Reason))
	}
	r.row("Submit", slurm.FormatTime(job.Submit))

	if !pending {
		r.row("Start", slurm.FormatTime(job.Start))
		r.row("End", slurm.FormatTime(job.End))
		r.row("Reserved walltime", limit(job.Timelimit))
		r.row("Used walltime", slurm.FormatDuration(job.Elapsed))
		r.row("Used CPU time", slurm.FormatDuration(job.TotalCPU))
		r.row("% User (Computation)", share(job.UserCPU, job.TotalCPU))
		r.row("% System (I/O)", share(job.SystemCPU, job.TotalCPU))
		r.row("Mem reserved", reserved(job.ReqMem, job.ReqMemBasis))
		rss, rssNode := job.MaxRSS()
		r.row("Max Mem used", onNode(rss, rssNode))
		wr, wrNode := job.MaxDiskWrite()
		r.row("Max Disk Write", onNode(wr, wrNode))
		rd, rdNode := job.MaxDiskRead()
		r.row("Max Disk Read", onNode(rd, rdNode))

		if cfg.Long {
			r.row("Comment", str(job.Comment))
			for _, st := range job.Steps {
				r.row("Step "+st.Name, stepSummary(st))
			}
			for _, st := range job.Steps {
				if len(st.TresIn) > 0 {
					r.row("TRES in ("+st.Name+")", tres(st.TresIn))
				}
				if len(st.TresOut) > 0 {
					r.row("TRES out ("+st.Name+")", tres(st.TresOut))
				}
			}
		}

		if job.GpusTotal > 0 {
			r.row("GPUs", strconv.Itoa(job.GpusTotal))
			r.row("GPU utilization", percent100(m.GpuEff))
			if cfg.Long {
				for _, d := range devices {
					r.row(fmt.Sprintf("GPU %d (%s)", d.Device, d.Node), percent100(d.Mean))
				}
			}
		}
	}

	if len(hints) > 0 {
		fmt.Fprintln(w, "Hints:")
		for _, h := range hints {
			fmt.Fprintf(w, " * %s\n", h)
		}
	}
}

type renderer struct {
	w io.Writer
}

func (r renderer) row(label, value string) {
	fmt.Fprintf(r.w, "%-*s: %s\n", labelWidth, label, value)
}

func str(s string) string {
	if s == "" {
		return "--"
	}
	return s
}

func count(n int) string {
	if n < 0 {
		return "--"
	}
	return strconv.Itoa(n)
}

func limit(secs int64) string {
	if secs == slurm.Unlimited {
		return "UNLIMITED"
	}
	return slurm.FormatDuration(secs)
}

// The user and system shares of the consumed CPU time, as percentages of the total.

func share(part, total int64) string {
	if part == slurm.Unknown || total == slurm.Unknown || total <= 0 {
		return "--"
	}
	return fmt.Sprintf("%4.1f%%", float64(part)/float64(total)*100)
}

func reserved(mem int64, basis slurm.MemBasis) string {
	if mem == slurm.Unknown {
		return "--"
	}
	return slurm.FormatBytes(mem) + "/" + basis.String()
}

func onNode(n int64, node string) string {
	if n == slurm.Unknown {
		return "--"
	}
	s := slurm.FormatBytes(n)
	if node != "" {
		s += " (" + node + ")"
	}
	return s
}

func percent100(v float64) string {
	if math.IsNaN(v) {
		return "--"
	}
	return fmt.Sprintf("%4.1f%%", v)
}

func stepSummary(st *slurmjob.Step) string {
	return fmt.Sprintf("%s CPU, %s mem", slurm.FormatDuration(st.TotalCPU), onNode(st.MaxRSS, st.MaxRSSNode))
}

// TRES counters print in name order; cpu holds seconds, everything else bytes or counts.

func tres(m map[string]int64) string {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)
	fields := make([]string, 0, len(names))
	for _, name := range names {
		v := m[name]
		if name == "cpu" {
			fields = append(fields, name+"="+slurm.FormatDuration(v))
		} else {
			fields = append(fields, name+"="+slurm.FormatBytes(v))
		}
	}
	return strings.Join(fields, ",")
}
