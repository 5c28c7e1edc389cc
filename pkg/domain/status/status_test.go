package status_test

import (
	"testing"

	types "github.com/poddle/poddle/pkg/domain"
	"github.com/poddle/poddle/pkg/domain/status"
)

func TestClassify(t *testing.T) {
	type When struct {
		desired   int32
		ready     int32
		available int32
		updated   int32
	}
	type Then struct {
		status types.DeploymentStatus
	}

	theory := func(when When, then Then) func(*testing.T) {
		return func(t *testing.T) {
			got := status.Classify(types.ReplicaObservation{
				Desired:   when.desired,
				Ready:     when.ready,
				Available: when.available,
				Updated:   when.updated,
			})
			if got != then.status {
				t.Errorf(
					"status: got %s, want %s (desired=%d ready=%d available=%d updated=%d)",
					got, then.status, when.desired, when.ready, when.available, when.updated,
				)
			}
		}
	}

	t.Run("when desired is zero, it is suspended", theory(
		When{desired: 0, ready: 0, available: 0, updated: 0},
		Then{status: types.StatusSuspended},
	))
	t.Run("when desired is zero, replica counts do not matter", theory(
		When{desired: 0, ready: 3, available: 3, updated: 3},
		Then{status: types.StatusSuspended},
	))
	t.Run("when nothing is ready nor available, it is starting", theory(
		When{desired: 3, ready: 0, available: 0, updated: 0},
		Then{status: types.StatusStarting},
	))
	t.Run("when nothing is ready nor available, a rollout does not change that", theory(
		When{desired: 3, ready: 0, available: 0, updated: 3},
		Then{status: types.StatusStarting},
	))
	t.Run("when every count matches desired, it is running", theory(
		When{desired: 3, ready: 3, available: 3, updated: 3},
		Then{status: types.StatusRunning},
	))
	t.Run("when some but not all replicas are ready, it is degraded", theory(
		When{desired: 3, ready: 2, available: 2, updated: 2},
		Then{status: types.StatusDegraded},
	))
	t.Run("degraded wins over a rollout in flight", theory(
		When{desired: 3, ready: 2, available: 3, updated: 2},
		Then{status: types.StatusDegraded},
	))
	t.Run("when all ready but the rollout is behind, it is updating", theory(
		When{desired: 3, ready: 3, available: 3, updated: 2},
		Then{status: types.StatusUpdating},
	))
	t.Run("when none ready but some available during a rollout, it is updating", theory(
		When{desired: 3, ready: 0, available: 1, updated: 0},
		Then{status: types.StatusUpdating},
	))
	t.Run("when ready matches but availability lags with no rollout, it is unhealthy", theory(
		When{desired: 3, ready: 3, available: 2, updated: 3},
		Then{status: types.StatusUnhealthy},
	))
	t.Run("single replica running", theory(
		When{desired: 1, ready: 1, available: 1, updated: 1},
		Then{status: types.StatusRunning},
	))
}
