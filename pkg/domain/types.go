package domain

import (
	"time"
)

// DeploymentStatus is the lifecycle state of a deployment as seen by users.
//
// All transitions are owned by the status classifier, except "suspended"
// which is pinned by the suspend command and released by resume.
type DeploymentStatus string

const (
	StatusSuspended DeploymentStatus = "suspended"
	StatusStarting  DeploymentStatus = "starting"
	StatusRunning   DeploymentStatus = "running"
	StatusDegraded  DeploymentStatus = "degraded"
	StatusUpdating  DeploymentStatus = "updating"
	StatusUnhealthy DeploymentStatus = "unhealthy"
)

// ResourceSpec is a per-container resource envelope, in scheduler units.
type ResourceSpec struct {
	CpuRequestMillicores   int64
	CpuLimitMillicores     int64
	MemoryRequestMebibytes int64
	MemoryLimitMebibytes   int64
}

// DefaultResourceSpec is applied when a create command omits resources.
func DefaultResourceSpec() ResourceSpec {
	return ResourceSpec{
		CpuRequestMillicores:   250,
		CpuLimitMillicores:     500,
		MemoryRequestMebibytes: 256,
		MemoryLimitMebibytes:   512,
	}
}

type EnvVar struct {
	Name  string
	Value string
}

// Deployment is the ledger-of-record row for one user workload.
type Deployment struct {
	Id        string
	UserId    string
	ProjectId string
	Name      string

	Image           string
	ImagePullSecret string // base64 dockerconfigjson; empty = public image
	Port            int32

	DesiredReplicas   int32
	ReadyReplicas     int32
	AvailableReplicas int32

	Resources ResourceSpec
	Env       []EnvVar

	// SecretKeys are the environment keys whose values live in the
	// secret store, never in this row.
	SecretKeys []string

	Labels map[string]string

	// Subdomain is the label under the platform base domain.
	// Domain, when set, is a user-owned custom domain.
	Subdomain string
	Domain    string

	Status DeploymentStatus

	// StatusObservedAt is the cluster-fetch time of the observation that
	// produced Status. Older observations must not overwrite newer ones.
	StatusObservedAt time.Time

	CreatedAt time.Time
	UpdatedAt time.Time
}

// PodPhase is the cluster's lifecycle phase of one pod.
type PodPhase string

const (
	PodPending   PodPhase = "Pending"
	PodRunning   PodPhase = "Running"
	PodSucceeded PodPhase = "Succeeded"
	PodFailed    PodPhase = "Failed"
	PodUnknown   PodPhase = "Unknown"
)

// PodObservation is a point-in-time readout of one pod backing a
// deployment. Pods are identified by their cluster uid; names recycle
// across restarts, uids never do.
type PodObservation struct {
	Uid      string
	Name     string
	Phase    PodPhase
	Restarts int32

	// Reason and Message are set when a container is stuck waiting on a
	// crash loop or an image pull failure.
	Reason  string
	Message string
}

// ReplicaObservation is a point-in-time replica count readout of the
// cluster workload backing a deployment.
type ReplicaObservation struct {
	Desired   int32
	Ready     int32
	Available int32
	Updated   int32

	// FetchedAt is when the counts were read from the cluster.
	FetchedAt time.Time
}
