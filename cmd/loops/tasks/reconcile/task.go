// Package reconcile aligns stored deployment statuses with what the
// cluster actually runs.
package reconcile

import (
	"context"
	"fmt"
	"log"
	"maps"
	"time"

	"github.com/poddle/poddle/cmd/loops/loop/recurring"
	"github.com/poddle/poddle/pkg/domain"
	depdb "github.com/poddle/poddle/pkg/domain/deployment/db"
	"github.com/poddle/poddle/pkg/domain/deployment/k8s"
	"github.com/poddle/poddle/pkg/domain/status"
	"github.com/poddle/poddle/pkg/event"
)

// Cursor pages through active deployments across passes.
type Cursor struct {
	// Head is the last deployment id processed; the next pass starts
	// after it. Empty means start over.
	Head string

	PageSize int

	// Pods remembers each pod's last seen state across passes, keyed by
	// pod uid, so that lifecycle events fire only on change.
	Pods map[string]PodRecord
}

// PodRecord is what the cursor keeps of one pod between passes.
type PodRecord struct {
	DeploymentId string
	Phase        domain.PodPhase
	Reason       string
}

func (c Cursor) Equal(o Cursor) bool {
	return c.Head == o.Head && c.PageSize == o.PageSize && maps.Equal(c.Pods, o.Pods)
}

func Seed(pageSize int) Cursor {
	return Cursor{PageSize: pageSize, Pods: map[string]PodRecord{}}
}

// Task reconciles one page of deployments per pass.
//
// For each deployment it observes the cluster workload, classifies the
// observation, and records it fenced on observation time. Only a status
// that actually changed is cached and announced. The pods behind the
// workload are diffed against the cursor's memory: a new pod, a phase
// change, a container failure, and a vanished pod each produce one
// event. One deployment's fetch failure never aborts the pass.
func Task(
	logger *log.Logger,
	db depdb.Interface,
	provisioner k8s.Interface,
	cache event.Cache,
	publisher event.Publisher,
) recurring.Task[Cursor] {
	return func(ctx context.Context, cursor Cursor) (Cursor, bool, error) {
		if cursor.Pods == nil {
			cursor.Pods = map[string]PodRecord{}
		}

		page, err := db.ListActive(ctx, cursor.Head, cursor.PageSize)
		if err != nil {
			return cursor, false, err
		}
		if len(page) == 0 {
			// backlog drained; start over next pass. Pod memory survives
			// the reset, or every pod would re-announce each sweep.
			reset := Seed(cursor.PageSize)
			reset.Pods = cursor.Pods
			return reset, false, nil
		}

		for _, depl := range page {
			if err := reconcileOne(ctx, logger, db, provisioner, cache, publisher, depl, cursor.Pods); err != nil {
				return cursor, false, err
			}
		}

		cursor.Head = page[len(page)-1].Id
		return cursor, true, nil
	}
}

func reconcileOne(
	ctx context.Context,
	logger *log.Logger,
	db depdb.Interface,
	provisioner k8s.Interface,
	cache event.Cache,
	publisher event.Publisher,
	depl domain.Deployment,
	pods map[string]PodRecord,
) error {
	obs, err := provisioner.Observe(ctx, depl)

	newStatus := domain.DeploymentStatus("")
	missing := false
	switch {
	case err == nil:
		newStatus = status.Classify(obs)
		reconcilePods(ctx, logger, provisioner, publisher, depl, pods)
	case domain.AsDeploymentMissing(err):
		// the ledger says it should run, the cluster has nothing.
		obs = domain.ReplicaObservation{FetchedAt: time.Now()}
		newStatus = domain.StatusUnhealthy
		missing = true
		forgetPods(ctx, logger, publisher, depl.Id, pods)
	default:
		// cluster hiccup on this one; the rest of the page still counts.
		logger.Printf("skipping deployment %s: %v", depl.Id, err)
		return nil
	}

	changed, err := db.RecordObservation(ctx, depl.Id, obs, newStatus)
	if err != nil {
		return err
	}
	if !changed {
		return nil
	}

	if err := cache.SetStatus(ctx, depl.Id, newStatus); err != nil {
		logger.Printf("caching status of %s: %v", depl.Id, err)
	}
	announce(ctx, logger, publisher,
		event.DeploymentStatusChannel(depl.Id),
		event.NewDeploymentStatusUpdate(depl.Id, newStatus),
	)
	if missing {
		announce(ctx, logger, publisher,
			event.DeploymentMessageChannel(depl.Id),
			event.NewDeploymentSystemMessage(
				depl.Id, event.LevelError, "workload is missing from the cluster",
			),
		)
	}
	return nil
}

// reconcilePods diffs the observed pods against the remembered ones and
// announces lifecycle changes on the deployment's channels. Observation
// failures are logged and skipped; the memory stays as it was.
func reconcilePods(
	ctx context.Context,
	logger *log.Logger,
	provisioner k8s.Interface,
	publisher event.Publisher,
	depl domain.Deployment,
	pods map[string]PodRecord,
) {
	observations, err := provisioner.ObservePods(ctx, depl)
	if err != nil {
		logger.Printf("skipping pods of %s: %v", depl.Id, err)
		return
	}

	seen := map[string]bool{}
	for _, pod := range observations {
		seen[pod.Uid] = true
		prev, known := pods[pod.Uid]

		switch {
		case !known:
			announce(ctx, logger, publisher,
				event.DeploymentMetricsChannel(depl.Id),
				event.NewPodApply(depl.Id, event.PodInfo{
					Uid: pod.Uid, Name: pod.Name, Phase: pod.Phase, Restarts: pod.Restarts,
				}),
			)
		case prev.Phase != pod.Phase:
			announce(ctx, logger, publisher,
				event.DeploymentMetricsChannel(depl.Id),
				event.NewPodStatusUpdate(depl.Id, pod.Uid, pod.Phase),
			)
		}

		if pod.Reason != "" && (!known || prev.Reason != pod.Reason) {
			announce(ctx, logger, publisher,
				event.DeploymentMessageChannel(depl.Id),
				event.NewPodSystemMessage(
					depl.Id, pod.Uid, event.LevelError,
					fmt.Sprintf("%s: %s", pod.Reason, pod.Message),
				),
			)
		}

		pods[pod.Uid] = PodRecord{DeploymentId: depl.Id, Phase: pod.Phase, Reason: pod.Reason}
	}

	for uid, record := range pods {
		if record.DeploymentId != depl.Id || seen[uid] {
			continue
		}
		announce(ctx, logger, publisher,
			event.DeploymentMetricsChannel(depl.Id),
			event.NewPodDelete(depl.Id, uid),
		)
		delete(pods, uid)
	}
}

// forgetPods drops every remembered pod of one deployment, announcing
// each as deleted. Used when the whole workload is gone.
func forgetPods(
	ctx context.Context,
	logger *log.Logger,
	publisher event.Publisher,
	deploymentId string,
	pods map[string]PodRecord,
) {
	for uid, record := range pods {
		if record.DeploymentId != deploymentId {
			continue
		}
		announce(ctx, logger, publisher,
			event.DeploymentMetricsChannel(deploymentId),
			event.NewPodDelete(deploymentId, uid),
		)
		delete(pods, uid)
	}
}

func announce(
	ctx context.Context,
	logger *log.Logger,
	publisher event.Publisher,
	channel string,
	ev event.Event,
) {
	if err := publisher.Publish(ctx, channel, ev); err != nil {
		logger.Printf("publishing %s of %s: %v", ev.Type, ev.DeploymentId, err)
	}
}
