// Device utilization for a job's accelerators, read from an external time-series feed.

package gpu

import (
	"math"
	"sort"
	"time"

	"github.com/rug-cit-hpc/slurm-jobinfo3/gpuset"
	"github.com/rug-cit-hpc/slurm-jobinfo3/slurm"
	"github.com/rug-cit-hpc/slurm-jobinfo3/slurmjob"
)

// One utilization reading for one device, in percent.
type Sample struct {
	Time  int64
	Value float64
}

// A UtilSource yields the utilization samples of a node's devices over a time window.
// The window is Unix seconds, inclusive on both ends.
type UtilSource interface {
	DeviceUtilization(node string, devices gpuset.GpuSet, start, end int64) (map[int][]Sample, error)
}

// The time-averaged utilization of one device.
type DeviceUtil struct {
	Node   string
	Device int
	Mean   float64
}

// Collect queries the source for every node of the job and reduces the samples to a mean
// per device and one overall mean.  The overall mean is NaN when the job has not started
// or nothing was measured.

func Collect(src UtilSource, job *slurmjob.Job) ([]DeviceUtil, float64, error) {
	if job.Start == slurm.UnknownTime || job.GpusTotal <= 0 {
		return nil, math.NaN(), nil
	}
	end := job.End
	if end == slurm.UnknownTime {
		end = time.Now().Unix()
	}
	nodes := job.Nodes
	if len(nodes) == 0 && job.NodeList != "" {
		nodes = []string{job.NodeList}
	}

	devices := make([]DeviceUtil, 0, job.GpusTotal)
	remaining := job.GpusTotal
	for _, node := range nodes {
		if remaining <= 0 {
			break
		}
		devs := job.Gpus
		if remaining < devs.Size() {
			// Device sets are contiguous from zero, so the trailing node of an uneven
			// distribution holds the low indices only.
			devs, _ = gpuset.FromCount(remaining)
		}
		byDevice, err := src.DeviceUtilization(node, devs, job.Start, end)
		if err != nil {
			return nil, math.NaN(), err
		}
		indices := make([]int, 0, len(byDevice))
		for dev := range byDevice {
			indices = append(indices, dev)
		}
		sort.Ints(indices)
		for _, dev := range indices {
			if mean := sampleMean(byDevice[dev]); !math.IsNaN(mean) {
				devices = append(devices, DeviceUtil{Node: node, Device: dev, Mean: mean})
			}
		}
		remaining -= devs.Size()
	}

	if len(devices) == 0 {
		return nil, math.NaN(), nil
	}
	sum := 0.0
	for _, d := range devices {
		sum += d.Mean
	}
	return devices, sum / float64(len(devices)), nil
}

func sampleMean(samples []Sample) float64 {
	if len(samples) == 0 {
		return math.NaN()
	}
	sum := 0.0
	for _, s := range samples {
		sum += s.Value
	}
	return sum / float64(len(samples))
}
