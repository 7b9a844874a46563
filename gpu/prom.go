package gpu

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/api"
	promv1 "github.com/prometheus/client_golang/api/prometheus/v1"
	"github.com/prometheus/common/model"

	"github.com/rug-cit-hpc/slurm-jobinfo3/common"
	"github.com/rug-cit-hpc/slurm-jobinfo3/gpuset"
)

// PromSource reads device utilization from a Prometheus server.
//
// The query is a template: {node} and {gpu} expand to the node name and the device index.
// The default matches the DCGM exporter's utilization gauge, with the exporter scraped under
// the node's name.

const DefaultQuery = `DCGM_FI_DEV_GPU_UTIL{instance=~"{node}.*",gpu="{gpu}"}`

const (
	defaultStep  = 5 * time.Minute
	queryTimeout = 30 * time.Second
)

type PromSource struct {
	api   promv1.API
	query string
	step  time.Duration
}

func NewPromSource(url, query string, step time.Duration) (*PromSource, error) {
	client, err := api.NewClient(api.Config{Address: url})
	if err != nil {
		return nil, fmt.Errorf("While connecting to metrics feed: %w", err)
	}
	if query == "" {
		query = DefaultQuery
	}
	if step <= 0 {
		step = defaultStep
	}
	return &PromSource{api: promv1.NewAPI(client), query: query, step: step}, nil
}

func (ps *PromSource) DeviceUtilization(node string, devices gpuset.GpuSet, start, end int64) (map[int][]Sample, error) {
	r := promv1.Range{
		Start: time.Unix(start, 0),
		End:   time.Unix(end, 0),
		Step:  ps.step,
	}
	result := make(map[int][]Sample)
	for _, dev := range devices.AsSlice() {
		samples, err := ps.queryRange(expandQuery(ps.query, node, dev), r)
		if err != nil {
			return nil, err
		}
		if len(samples) == 0 {
			common.Log.Infof("No utilization data for %s device %d", node, dev)
			continue
		}
		result[dev] = samples
	}
	return result, nil
}

func expandQuery(query, node string, device int) string {
	return strings.NewReplacer("{node}", node, "{gpu}", strconv.Itoa(device)).Replace(query)
}

func (ps *PromSource) queryRange(query string, r promv1.Range) ([]Sample, error) {
	ctx, cancel := context.WithTimeout(context.Background(), queryTimeout)
	defer cancel()
	val, warnings, err := ps.api.QueryRange(ctx, query, r)
	if err != nil {
		return nil, fmt.Errorf("While querying metrics feed: %w", err)
	}
	if len(warnings) > 0 {
		common.Log.Warningf("Metrics feed warnings for %s: %v", query, warnings)
	}
	matrix, ok := val.(model.Matrix)
	if !ok {
		return nil, nil
	}
	var samples []Sample
	for _, stream := range matrix {
		for _, p := range stream.Values {
			samples = append(samples, Sample{Time: p.Timestamp.Unix(), Value: float64(p.Value)})
		}
	}
	return samples, nil
}
