// Package metrics reads resource usage of managed workloads from the
// time-series backend.
package metrics

import (
	"context"
	"fmt"
	"time"

	promv1 "github.com/prometheus/client_golang/api/prometheus/v1"
	"github.com/prometheus/common/model"

	"github.com/poddle/poddle/pkg/domain"
	xe "github.com/poddle/poddle/pkg/errors"
)

// Queries join container usage series with pod labels so that only
// workloads this control plane manages are scraped, and with
// kube_pod_info for the pod uid samples are keyed by. cpu is scaled to
// millicores, memory to mebibytes.
const (
	cpuQuery = `sum by (namespace, pod, uid, label_poddle_io_deployment_id) (` +
		`rate(container_cpu_usage_seconds_total{namespace=~"user-.*",container!="",image!=""}[2m])` +
		` * on (namespace, pod) group_left(label_poddle_io_deployment_id)` +
		` kube_pod_labels{label_app_kubernetes_io_managed_by="poddle"}` +
		` * on (namespace, pod) group_left(uid) kube_pod_info` +
		`) * 1000`

	memoryQuery = `sum by (namespace, pod, uid, label_poddle_io_deployment_id) (` +
		`container_memory_working_set_bytes{namespace=~"user-.*",container!="",image!=""}` +
		` * on (namespace, pod) group_left(label_poddle_io_deployment_id)` +
		` kube_pod_labels{label_app_kubernetes_io_managed_by="poddle"}` +
		` * on (namespace, pod) group_left(uid) kube_pod_info` +
		`) / 1024 / 1024`

	deploymentIdLabel = "label_poddle_io_deployment_id"
	podUidLabel       = "uid"
)

// PodSample is one pod's usage, attributed to its deployment.
type PodSample struct {
	DeploymentId string
	Snapshot     domain.MetricSnapshot
}

// Scrape is one instant readout of every managed workload.
type Scrape struct {
	At time.Time

	// Deployments sums pod usage per deployment id.
	Deployments map[string]domain.MetricSnapshot

	// Pods holds per-pod usage, keyed by pod uid.
	Pods map[string]PodSample
}

type Source interface {
	Scrape(ctx context.Context, at time.Time) (Scrape, error)
}

// Querier is the instant-query subset of the prometheus v1 API.
type Querier interface {
	Query(ctx context.Context, query string, ts time.Time, opts ...promv1.Option) (model.Value, promv1.Warnings, error)
}

type source struct {
	querier Querier
}

func New(querier Querier) Source {
	return &source{querier: querier}
}

func (s *source) Scrape(ctx context.Context, at time.Time) (Scrape, error) {
	cpu, err := s.vector(ctx, cpuQuery, at)
	if err != nil {
		return Scrape{}, xe.Wrap(err)
	}
	memory, err := s.vector(ctx, memoryQuery, at)
	if err != nil {
		return Scrape{}, xe.Wrap(err)
	}

	scrape := Scrape{
		At:          at,
		Deployments: map[string]domain.MetricSnapshot{},
		Pods:        map[string]PodSample{},
	}

	for _, sample := range cpu {
		s.accumulate(&scrape, sample, at, func(snap *domain.MetricSnapshot, v float64) {
			snap.CpuMillicores += v
		})
	}
	for _, sample := range memory {
		s.accumulate(&scrape, sample, at, func(snap *domain.MetricSnapshot, v float64) {
			snap.MemoryMebibyte += v
		})
	}

	return scrape, nil
}

func (s *source) accumulate(
	scrape *Scrape,
	sample *model.Sample,
	at time.Time,
	add func(*domain.MetricSnapshot, float64),
) {
	deploymentId := string(sample.Metric[deploymentIdLabel])
	podUid := string(sample.Metric[podUidLabel])
	if deploymentId == "" || podUid == "" {
		return
	}
	value := float64(sample.Value)

	pod := scrape.Pods[podUid]
	pod.DeploymentId = deploymentId
	pod.Snapshot.Timestamp = at
	add(&pod.Snapshot, value)
	scrape.Pods[podUid] = pod

	depl := scrape.Deployments[deploymentId]
	depl.Timestamp = at
	add(&depl, value)
	scrape.Deployments[deploymentId] = depl
}

func (s *source) vector(ctx context.Context, query string, at time.Time) (model.Vector, error) {
	value, _, err := s.querier.Query(ctx, query, at)
	if err != nil {
		return nil, err
	}
	vec, ok := value.(model.Vector)
	if !ok {
		return nil, fmt.Errorf("unexpected result type %s for instant query", value.Type())
	}
	return vec, nil
}
