package db

import (
	"context"

	"github.com/poddle/poddle/pkg/domain"
)

// Interface is the ledger of record for deployments.
//
// Desired replica counts are owned by command intake; observed counts
// and statuses are owned by the reconciler. Suspension pins the status
// until resume unpins it.
type Interface interface {
	Create(ctx context.Context, d domain.Deployment) error

	// Get returns ErrDeploymentMissing when no such row exists.
	Get(ctx context.Context, id string) (domain.Deployment, error)

	// UpdateSpec rewrites the mutable spec fields (image, port, env,
	// secret keys, labels, resources, domain) of an existing row.
	UpdateSpec(ctx context.Context, d domain.Deployment) error

	Delete(ctx context.Context, id string) error

	SetDesiredReplicas(ctx context.Context, id string, replicas int32) error

	// Suspend pins the status. The stored desired count is kept so that
	// resume can restore it.
	Suspend(ctx context.Context, id string) error

	// Resume unpins the status and returns the replica count to restore,
	// at least 1.
	Resume(ctx context.Context, id string) (int32, error)

	// RecordObservation stores the observed replica counts and the
	// classified status, fenced on observation time: an observation older
	// than the stored one is discarded, and a pinned suspension is never
	// overwritten. It reports whether the visible status changed.
	RecordObservation(ctx context.Context, id string, obs domain.ReplicaObservation, status domain.DeploymentStatus) (bool, error)

	// ListActive pages through non-suspended deployments in id order,
	// starting after cursorId (empty = from the beginning).
	ListActive(ctx context.Context, cursorId string, limit int) ([]domain.Deployment, error)
}
