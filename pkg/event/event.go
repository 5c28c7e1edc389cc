// Package event defines the notifications this control plane fans out
// over pub/sub, and the cache entries frontends read them from.
package event

import (
	"github.com/poddle/poddle/pkg/domain"
)

type Type string

const (
	DeploymentMetricsUpdate Type = "deploymentMetricsUpdate"
	DeploymentStatusUpdate  Type = "deploymentStatusUpdate"
	DeploymentSystemMessage Type = "deploymentSystemMessage"
	PodMetricsUpdate        Type = "podMetricsUpdate"
	PodStatusUpdate         Type = "podStatusUpdate"
	PodSystemMessage        Type = "podSystemMessage"
	PodApply                Type = "podApply"
	PodDelete               Type = "podDelete"
)

type Level string

const (
	LevelInfo    Level = "info"
	LevelWarning Level = "warning"
	LevelError   Level = "error"
	LevelSuccess Level = "success"
)

// Event is the wire form of one notification. Which fields are set
// depends on Type; unset fields are omitted from JSON.
type Event struct {
	Type         Type                    `json:"type"`
	DeploymentId string                  `json:"deploymentId,omitempty"`
	PodUid       string                  `json:"podUid,omitempty"`
	Level        Level                   `json:"level,omitempty"`
	Message      string                  `json:"message,omitempty"`
	Status       domain.DeploymentStatus `json:"status,omitempty"`
	Phase        domain.PodPhase         `json:"phase,omitempty"`
	Metrics      *domain.MetricSnapshot  `json:"metrics,omitempty"`
	Pod          *PodInfo                `json:"pod,omitempty"`
}

// PodInfo identifies one pod of a deployment on the wire.
type PodInfo struct {
	Uid      string          `json:"uid"`
	Name     string          `json:"name"`
	Phase    domain.PodPhase `json:"phase"`
	Restarts int32           `json:"restartCount"`
}

func NewDeploymentStatusUpdate(deploymentId string, status domain.DeploymentStatus) Event {
	return Event{
		Type:         DeploymentStatusUpdate,
		DeploymentId: deploymentId,
		Status:       status,
	}
}

func NewDeploymentMetricsUpdate(deploymentId string, snapshot domain.MetricSnapshot) Event {
	return Event{
		Type:         DeploymentMetricsUpdate,
		DeploymentId: deploymentId,
		Metrics:      &snapshot,
	}
}

func NewDeploymentSystemMessage(deploymentId string, level Level, message string) Event {
	return Event{
		Type:         DeploymentSystemMessage,
		DeploymentId: deploymentId,
		Level:        level,
		Message:      message,
	}
}

func NewPodMetricsUpdate(deploymentId string, podUid string, snapshot domain.MetricSnapshot) Event {
	return Event{
		Type:         PodMetricsUpdate,
		DeploymentId: deploymentId,
		PodUid:       podUid,
		Metrics:      &snapshot,
	}
}

func NewPodApply(deploymentId string, pod PodInfo) Event {
	return Event{
		Type:         PodApply,
		DeploymentId: deploymentId,
		PodUid:       pod.Uid,
		Pod:          &pod,
	}
}

func NewPodDelete(deploymentId string, podUid string) Event {
	return Event{
		Type:         PodDelete,
		DeploymentId: deploymentId,
		PodUid:       podUid,
	}
}

func NewPodStatusUpdate(deploymentId string, podUid string, phase domain.PodPhase) Event {
	return Event{
		Type:         PodStatusUpdate,
		DeploymentId: deploymentId,
		PodUid:       podUid,
		Phase:        phase,
	}
}

func NewPodSystemMessage(deploymentId string, podUid string, level Level, message string) Event {
	return Event{
		Type:         PodSystemMessage,
		DeploymentId: deploymentId,
		PodUid:       podUid,
		Level:        level,
		Message:      message,
	}
}
