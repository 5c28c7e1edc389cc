package event

import "fmt"

// Pub/sub channel and cache key layouts. Subscribers and cache readers
// depend on these shapes; change them only with a migration.

func DeploymentStatusChannel(deploymentId string) string {
	return fmt.Sprintf("deployment:%s:status", deploymentId)
}

func DeploymentMetricsChannel(deploymentId string) string {
	return fmt.Sprintf("deployment:%s:metrics", deploymentId)
}

func DeploymentMessageChannel(deploymentId string) string {
	return fmt.Sprintf("deployment:%s:messages", deploymentId)
}

func PodMetricsChannel(podUid string) string {
	return fmt.Sprintf("pod:%s:metrics", podUid)
}

func DeploymentStatusCacheKey(deploymentId string) string {
	return fmt.Sprintf("deployment:%s:status", deploymentId)
}

func DeploymentMetricsCacheKey(deploymentId string) string {
	return fmt.Sprintf("deployment:%s:metrics", deploymentId)
}

func PodMetricsCacheKey(podUid string) string {
	return fmt.Sprintf("pod:%s:metrics", podUid)
}
