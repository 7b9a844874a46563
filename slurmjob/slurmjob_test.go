package slurmjob

import (
	"errors"
	"testing"

	"github.com/rug-cit-hpc/slurm-jobinfo3/slurm"
)

func TestStatePredicates(t *testing.T) {
	if !StatePending.Pending() || StatePending.Running() || StatePending.Finished() {
		t.Fatal("#1 PENDING")
	}
	if !StateRunning.Running() || StateRunning.Finished() {
		t.Fatal("#2 RUNNING")
	}
	if !StateCompleted.Completed() || !StateCompleted.Finished() {
		t.Fatal("#3 COMPLETED")
	}
	if s := State("CANCELLED by 4178"); !s.Cancelled() || !s.Finished() {
		t.Fatal("#4 CANCELLED")
	}
	if s := State("TIMEOUT"); !s.Finished() || s.Completed() {
		t.Fatal("#5 TIMEOUT")
	}
	if s := State(""); s.Finished() || s.Pending() || s.Running() {
		t.Fatal("#6 empty")
	}
}

func TestJobPeaks(t *testing.T) {
	job := newJob("1")
	if rss, node := job.MaxRSS(); rss != slurm.Unknown || node != "" {
		t.Fatalf("#1 peak %d %s", rss, node)
	}
	a := job.findStep("batch")
	a.MaxRSS = 100
	a.MaxRSSNode = "c1"
	b := job.findStep("extern")
	b.MaxRSS = 300
	b.MaxRSSNode = "c2"
	if rss, node := job.MaxRSS(); rss != 300 || node != "c2" {
		t.Fatalf("#2 peak %d %s", rss, node)
	}
	// A zero peak is measured data and beats "no data".
	c := newJob("2")
	st := c.findStep("batch")
	st.MaxRSS = 0
	st.MaxRSSNode = "c1"
	if rss, _ := c.MaxRSS(); rss != 0 {
		t.Fatalf("#3 peak %d", rss)
	}
}

func TestFindStep(t *testing.T) {
	job := newJob("1")
	a := job.findStep("batch")
	b := job.findStep("batch")
	if a != b || len(job.Steps) != 1 {
		t.Fatalf("#1 steps %v", job.Steps)
	}
	job.findStep("0")
	if len(job.Steps) != 2 {
		t.Fatalf("#2 steps %v", job.Steps)
	}
}

type nodeSource struct {
	raw []byte
	err error
}

func (n *nodeSource) Accounting(jobID string) ([]byte, error) { return nil, nil }
func (n *nodeSource) LiveStats(jobID string) ([]byte, error)  { return nil, nil }
func (n *nodeSource) Queue(jobID string) ([]byte, error)      { return nil, nil }
func (n *nodeSource) Node(name string) ([]byte, error)        { return n.raw, n.err }

func TestLookupNode(t *testing.T) {
	src := &nodeSource{
		raw: []byte("NodeName=c2 CPUTot=64 RealMemory=257546 Gres=gpu:a100:4 State=IDLE\n"),
	}
	info, err := LookupNode(src, "c2")
	if err != nil {
		t.Fatal(err)
	}
	if info == nil || info.Name != "c2" || info.Cpus != 64 {
		t.Fatalf("#1 info %v", info)
	}
	if info.Memory != 257546<<20 {
		t.Fatalf("#2 memory %d", info.Memory)
	}
	if info.Gpus != 4 || info.State != "IDLE" {
		t.Fatalf("#3 info %v", info)
	}

	// No matching line: unknown node, not an error.
	info, err = LookupNode(src, "c9")
	if err != nil || info != nil {
		t.Fatalf("#4 info %v err %v", info, err)
	}

	src.err = errors.New("scontrol not found")
	if _, err := LookupNode(src, "c2"); err == nil {
		t.Fatal("#5 expected error")
	}
}
