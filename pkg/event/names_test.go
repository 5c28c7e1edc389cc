package event_test

import (
	"encoding/json"
	"testing"

	"github.com/poddle/poddle/pkg/domain"
	"github.com/poddle/poddle/pkg/event"
)

func TestChannelAndKeyLayout(t *testing.T) {
	id := "9d3b2a10-0000-0000-0000-000000000001"

	if got := event.DeploymentStatusChannel(id); got != "deployment:"+id+":status" {
		t.Errorf("status channel: %s", got)
	}
	if got := event.DeploymentMetricsChannel(id); got != "deployment:"+id+":metrics" {
		t.Errorf("metrics channel: %s", got)
	}
	if got := event.DeploymentMessageChannel(id); got != "deployment:"+id+":messages" {
		t.Errorf("message channel: %s", got)
	}
	if got := event.PodMetricsCacheKey("pod-uid"); got != "pod:pod-uid:metrics" {
		t.Errorf("pod metrics key: %s", got)
	}
}

func TestEventWireShape(t *testing.T) {
	t.Run("a status update carries no metric fields", func(t *testing.T) {
		ev := event.NewDeploymentStatusUpdate("d-1", domain.StatusRunning)
		payload, err := json.Marshal(ev)
		if err != nil {
			t.Fatal(err)
		}
		var decoded map[string]any
		if err := json.Unmarshal(payload, &decoded); err != nil {
			t.Fatal(err)
		}
		if decoded["type"] != string(event.DeploymentStatusUpdate) {
			t.Errorf("type: %v", decoded["type"])
		}
		if decoded["status"] != string(domain.StatusRunning) {
			t.Errorf("status: %v", decoded["status"])
		}
		if _, ok := decoded["metrics"]; ok {
			t.Error("metrics must be omitted from a status update")
		}
	})

	t.Run("a system message carries its level", func(t *testing.T) {
		ev := event.NewDeploymentSystemMessage("d-1", event.LevelError, "image pull failed")
		payload, err := json.Marshal(ev)
		if err != nil {
			t.Fatal(err)
		}
		var decoded map[string]any
		if err := json.Unmarshal(payload, &decoded); err != nil {
			t.Fatal(err)
		}
		if decoded["level"] != string(event.LevelError) {
			t.Errorf("level: %v", decoded["level"])
		}
		if decoded["message"] != "image pull failed" {
			t.Errorf("message: %v", decoded["message"])
		}
	})
}
