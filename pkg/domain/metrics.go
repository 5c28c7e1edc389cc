package domain

import "time"

// MetricSnapshot is one scrape of resource usage for a deployment or a pod.
type MetricSnapshot struct {
	Timestamp      time.Time `json:"ts"`
	CpuMillicores  float64   `json:"cpu"`
	MemoryMebibyte float64   `json:"memory"`
}
