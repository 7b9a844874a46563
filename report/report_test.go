package report

import (
	"bytes"
	"math"
	"strings"
	"testing"

	"github.com/rug-cit-hpc/slurm-jobinfo3/eff"
	"github.com/rug-cit-hpc/slurm-jobinfo3/gpu"
	"github.com/rug-cit-hpc/slurm-jobinfo3/slurm"
	"github.com/rug-cit-hpc/slurm-jobinfo3/slurmjob"
)

func ts(t *testing.T, s string) int64 {
	n, err := slurm.ParseTime(s)
	if err != nil {
		t.Fatal(err)
	}
	return n
}

func finishedJob(t *testing.T) *slurmjob.Job {
	return &slurmjob.Job{
		Id:          "123",
		Name:        "ml-train",
		User:        "aheyer",
		Partition:   "gpu",
		State:       "COMPLETED",
		NodeList:    "c[1-2]",
		Nodes:       []string{"c1", "c2"},
		NNodes:      2,
		NCpus:       8,
		NTasks:      2,
		Submit:      ts(t, "2024-03-01T10:00:00"),
		Start:       ts(t, "2024-03-01T10:05:00"),
		End:         ts(t, "2024-03-01T11:05:00"),
		Timelimit:   7200,
		Elapsed:     3600,
		TotalCPU:    24000,
		UserCPU:     21888,
		SystemCPU:   2112,
		ReqMem:      4 * 1024 * 1024 * 1024,
		ReqMemBasis: slurm.PerNode,
		GpusTotal:   2,
		Steps: []*slurmjob.Step{
			{
				Name:             "batch",
				TotalCPU:         24000,
				UserCPU:          21888,
				SystemCPU:        2112,
				MaxRSS:           3 * 1024 * 1024 * 1024,
				MaxRSSNode:       "c2",
				MaxRSSTask:       "0",
				MaxDiskRead:      1572864,
				MaxDiskReadNode:  "c1",
				MaxDiskWrite:     524288,
				MaxDiskWriteNode: "c1",
				TresIn:           map[string]int64{"cpu": 600, "mem": 104857600},
			},
		},
	}
}

func nanMetrics() eff.Metrics {
	return eff.Metrics{
		CpuEff:         math.NaN(),
		MemEff:         math.NaN(),
		TimeLimitRatio: math.NaN(),
		GpuEff:         math.NaN(),
	}
}

func TestRenderShort(t *testing.T) {
	var buf bytes.Buffer
	m := nanMetrics()
	m.GpuEff = 75
	Render(&buf, finishedJob(t), m, nil, []string{eff.HintCpuVeryLow}, Config{})

	expect := `Job ID              : 123
Name                : ml-train
User                : aheyer
Partition           : gpu
Nodes               : c[1-2]
Number of Nodes     : 2
Cores               : 8
Number of Tasks     : 2
State               : COMPLETED
Submit              : 2024-03-01T10:00:00
Start               : 2024-03-01T10:05:00
End                 : 2024-03-01T11:05:00
Reserved walltime   : 02:00:00
Used walltime       : 01:00:00
Used CPU time       : 06:40:00
% User (Computation): 91.2%
% System (I/O)      :  8.8%
Mem reserved        : 4.0G/node
Max Mem used        : 3.0G (c2)
Max Disk Write      : 512.0K (c1)
Max Disk Read       : 1.5M (c1)
GPUs                : 2
GPU utilization     : 75.0%
Hints:
 * The program efficiency is very low.
`
	if buf.String() != expect {
		t.Fatalf("#1 output\n%s", buf.String())
	}
}

func TestRenderLong(t *testing.T) {
	var buf bytes.Buffer
	m := nanMetrics()
	m.GpuEff = 75
	devices := []gpu.DeviceUtil{
		{Node: "c1", Device: 0, Mean: 50},
		{Node: "c1", Device: 1, Mean: 100},
	}
	Render(&buf, finishedJob(t), m, devices, nil, Config{Long: true})
	out := buf.String()

	for _, line := range []string{
		"Dependency          : --\n",
		"Reason              : --\n",
		"Comment             : --\n",
		"Step batch          : 06:40:00 CPU, 3.0G (c2) mem\n",
		"TRES in (batch)     : cpu=00:10:00,mem=100.0M\n",
		"GPU 0 (c1)          : 50.0%\n",
		"GPU 1 (c1)          : 100.0%\n",
	} {
		if !strings.Contains(out, line) {
			t.Fatalf("#1 missing %q in\n%s", line, out)
		}
	}
	if strings.Contains(out, "Hints:") {
		t.Fatalf("#2 unexpected hints header\n%s", out)
	}
}

func TestRenderShortHidesLongRows(t *testing.T) {
	var buf bytes.Buffer
	Render(&buf, finishedJob(t), nanMetrics(), nil, nil, Config{})
	out := buf.String()
	for _, label := range []string{"Dependency", "Comment", "Step batch", "TRES in"} {
		if strings.Contains(out, label) {
			t.Fatalf("#1 %q leaked into short mode\n%s", label, out)
		}
	}
}

func TestRenderPending(t *testing.T) {
	job := &slurmjob.Job{
		Id:         "99",
		State:      "PENDING",
		Dependency: "afterok:98",
		Reason:     "Dependency",
		Submit:     slurm.UnknownTime,
		Elapsed:    slurm.Unknown,
		Timelimit:  slurm.Unknown,
		TotalCPU:   slurm.Unknown,
		ReqMem:     slurm.Unknown,
		NNodes:     slurm.UnknownCount,
		NCpus:      slurm.UnknownCount,
		NTasks:     slurm.UnknownCount,
	}
	var buf bytes.Buffer
	Render(&buf, job, nanMetrics(), nil, nil, Config{})

	expect := `Job ID              : 99
Name                : --
User                : --
Partition           : --
State               : PENDING
Dependency          : afterok:98
Reason              : Dependency
Submit              : --
`
	if buf.String() != expect {
		t.Fatalf("#1 output\n%s", buf.String())
	}
}

func TestRenderUnknowns(t *testing.T) {
	// A finished job with nothing measured renders placeholders, not zeros.
	job := &slurmjob.Job{
		Id:        "31",
		State:     "COMPLETED",
		Submit:    slurm.UnknownTime,
		Start:     slurm.UnknownTime,
		End:       slurm.UnknownTime,
		Elapsed:   slurm.Unknown,
		Timelimit: slurm.Unknown,
		TotalCPU:  slurm.Unknown,
		UserCPU:   slurm.Unknown,
		SystemCPU: slurm.Unknown,
		ReqMem:    slurm.Unknown,
		NNodes:    slurm.UnknownCount,
		NCpus:     slurm.UnknownCount,
		NTasks:    slurm.UnknownCount,
	}
	var buf bytes.Buffer
	Render(&buf, job, nanMetrics(), nil, nil, Config{})
	out := buf.String()

	for _, line := range []string{
		"Number of Nodes     : --\n",
		"Reserved walltime   : --\n",
		"Used CPU time       : --\n",
		"% User (Computation): --\n",
		"Mem reserved        : --\n",
		"Max Mem used        : --\n",
	} {
		if !strings.Contains(out, line) {
			t.Fatalf("#1 missing %q in\n%s", line, out)
		}
	}
	if strings.Contains(out, "GPUs") {
		t.Fatalf("#2 GPU rows for a job without devices\n%s", out)
	}
}

func TestRenderUnlimited(t *testing.T) {
	job := finishedJob(t)
	job.Timelimit = slurm.Unlimited
	var buf bytes.Buffer
	Render(&buf, job, nanMetrics(), nil, nil, Config{})
	if !strings.Contains(buf.String(), "Reserved walltime   : UNLIMITED\n") {
		t.Fatalf("#1 output\n%s", buf.String())
	}
}
