// Package metrics fans one usage scrape out to the cache and pub/sub.
package metrics

import (
	"context"
	"log"
	"time"

	"github.com/poddle/poddle/cmd/loops/loop/recurring"
	"github.com/poddle/poddle/pkg/event"
	"github.com/poddle/poddle/pkg/metrics"
)

// Clock carries nothing between passes; each pass is one fresh scrape.
type Clock struct{}

func (Clock) Equal(Clock) bool { return true }

func Seed() Clock {
	return Clock{}
}

// Task scrapes usage once per pass and pushes each snapshot into its
// rolling cache window, then announces it.
//
// A failed scrape is logged and the pass publishes nothing: stale
// history beats fabricated zeros. Retention bounds the cached window;
// entries expire after retention scrape intervals with no update.
func Task(
	logger *log.Logger,
	source metrics.Source,
	cache event.Cache,
	publisher event.Publisher,
	interval time.Duration,
	retention int64,
) recurring.Task[Clock] {
	ttl := time.Duration(retention) * interval

	return func(ctx context.Context, c Clock) (Clock, bool, error) {
		scrape, err := source.Scrape(ctx, time.Now())
		if err != nil {
			logger.Printf("scrape failed, keeping last published values: %v", err)
			return c, false, nil
		}

		for deploymentId, snapshot := range scrape.Deployments {
			key := event.DeploymentMetricsCacheKey(deploymentId)
			if err := cache.PushMetric(ctx, key, snapshot, retention, ttl); err != nil {
				logger.Printf("caching metrics of deployment %s: %v", deploymentId, err)
				continue
			}
			if err := publisher.Publish(
				ctx,
				event.DeploymentMetricsChannel(deploymentId),
				event.NewDeploymentMetricsUpdate(deploymentId, snapshot),
			); err != nil {
				logger.Printf("publishing metrics of deployment %s: %v", deploymentId, err)
			}
		}

		for podUid, sample := range scrape.Pods {
			key := event.PodMetricsCacheKey(podUid)
			if err := cache.PushMetric(ctx, key, sample.Snapshot, retention, ttl); err != nil {
				logger.Printf("caching metrics of pod %s: %v", podUid, err)
				continue
			}
			if err := publisher.Publish(
				ctx,
				event.PodMetricsChannel(podUid),
				event.NewPodMetricsUpdate(sample.DeploymentId, podUid, sample.Snapshot),
			); err != nil {
				logger.Printf("publishing metrics of pod %s: %v", podUid, err)
			}
		}

		return c, false, nil
	}
}
