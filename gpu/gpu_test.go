package gpu

import (
	"errors"
	"math"
	"testing"

	"github.com/rug-cit-hpc/slurm-jobinfo3/gpuset"
	"github.com/rug-cit-hpc/slurm-jobinfo3/slurm"
	"github.com/rug-cit-hpc/slurm-jobinfo3/slurmjob"
)

type fakeUtil struct {
	byNode map[string]map[int][]Sample
	err    error
	calls  []string
}

func (f *fakeUtil) DeviceUtilization(node string, devices gpuset.GpuSet, start, end int64) (map[int][]Sample, error) {
	f.calls = append(f.calls, node+":"+devices.String())
	if f.err != nil {
		return nil, f.err
	}
	return f.byNode[node], nil
}

func gpuJob(nodes []string, total int) *slurmjob.Job {
	perNode := total
	if len(nodes) > 1 && total > 0 {
		perNode = (total + len(nodes) - 1) / len(nodes)
	}
	set, _ := gpuset.FromCount(perNode)
	return &slurmjob.Job{
		Id:        "123",
		State:     "COMPLETED",
		Start:     1000,
		End:       5000,
		Gpus:      set,
		GpusTotal: total,
		Nodes:     nodes,
	}
}

func TestCollectMean(t *testing.T) {
	// One device averaging 50, one at 100: the device means average to 75.
	src := &fakeUtil{
		byNode: map[string]map[int][]Sample{
			"c1": {
				0: {{Time: 1000, Value: 40}, {Time: 2000, Value: 60}},
				1: {{Time: 1000, Value: 100}},
			},
		},
	}
	devices, u, err := Collect(src, gpuJob([]string{"c1"}, 2))
	if err != nil {
		t.Fatal(err)
	}
	if u != 75 {
		t.Fatalf("#1 mean %g", u)
	}
	if len(src.calls) != 1 || src.calls[0] != "c1:0,1" {
		t.Fatalf("#2 calls %v", src.calls)
	}
	if len(devices) != 2 || devices[0].Mean != 50 || devices[1].Mean != 100 {
		t.Fatalf("#3 devices %v", devices)
	}
	if devices[0].Node != "c1" || devices[0].Device != 0 || devices[1].Device != 1 {
		t.Fatalf("#4 devices %v", devices)
	}
}

func TestCollectUnevenNodes(t *testing.T) {
	// Three devices on two nodes: the second node is asked about one device only.
	src := &fakeUtil{
		byNode: map[string]map[int][]Sample{
			"c1": {0: {{Value: 10}}, 1: {{Value: 20}}},
			"c2": {0: {{Value: 60}}},
		},
	}
	devices, u, err := Collect(src, gpuJob([]string{"c1", "c2"}, 3))
	if err != nil {
		t.Fatal(err)
	}
	if u != 30 {
		t.Fatalf("#1 mean %g", u)
	}
	if len(src.calls) != 2 || src.calls[0] != "c1:0,1" || src.calls[1] != "c2:0" {
		t.Fatalf("#2 calls %v", src.calls)
	}
	if len(devices) != 3 || devices[2].Node != "c2" || devices[2].Device != 0 {
		t.Fatalf("#3 devices %v", devices)
	}
}

func TestCollectNoData(t *testing.T) {
	src := &fakeUtil{byNode: map[string]map[int][]Sample{}}
	devices, u, err := Collect(src, gpuJob([]string{"c1"}, 2))
	if err != nil {
		t.Fatal(err)
	}
	if !math.IsNaN(u) || len(devices) != 0 {
		t.Fatalf("#1 mean %g devices %v", u, devices)
	}

	// Unstarted job: no window to query, no calls made.
	job := gpuJob([]string{"c1"}, 2)
	job.Start = slurm.UnknownTime
	src.calls = nil
	_, u, err = Collect(src, job)
	if err != nil {
		t.Fatal(err)
	}
	if !math.IsNaN(u) || len(src.calls) != 0 {
		t.Fatalf("#2 mean %g calls %v", u, src.calls)
	}
}

func TestCollectSourceError(t *testing.T) {
	src := &fakeUtil{err: errors.New("connection refused")}
	_, _, err := Collect(src, gpuJob([]string{"c1"}, 1))
	if err == nil {
		t.Fatal("#1 expected error")
	}
}

func TestExpandQuery(t *testing.T) {
	q := expandQuery(DefaultQuery, "c1", 3)
	if q != `DCGM_FI_DEV_GPU_UTIL{instance=~"c1.*",gpu="3"}` {
		t.Fatalf("#1 query %s", q)
	}
	q = expandQuery(`util{host="{node}",minor="{gpu}"}`, "gpu-7", 0)
	if q != `util{host="gpu-7",minor="0"}` {
		t.Fatalf("#2 query %s", q)
	}
}
