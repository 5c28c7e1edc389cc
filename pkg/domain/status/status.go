// Package status derives a deployment status from replica counts.
package status

import (
	types "github.com/poddle/poddle/pkg/domain"
)

// Classify maps one replica observation to a status.
//
// Rules apply in order; the first match wins:
//
//  1. desired == 0                                  -> suspended
//  2. ready == 0 && available == 0                  -> starting
//  3. ready == available == updated == desired      -> running
//  4. 0 < ready < desired                           -> degraded
//  5. updated != desired                            -> updating
//  6. otherwise                                     -> unhealthy
func Classify(obs types.ReplicaObservation) types.DeploymentStatus {
	switch {
	case obs.Desired == 0:
		return types.StatusSuspended
	case obs.Ready == 0 && obs.Available == 0:
		return types.StatusStarting
	case obs.Ready == obs.Desired && obs.Available == obs.Desired && obs.Updated == obs.Desired:
		return types.StatusRunning
	case 0 < obs.Ready && obs.Ready < obs.Desired:
		return types.StatusDegraded
	case obs.Updated != obs.Desired:
		return types.StatusUpdating
	default:
		return types.StatusUnhealthy
	}
}
