package k8s_test

import (
	"testing"

	"github.com/poddle/poddle/pkg/domain"
	"github.com/poddle/poddle/pkg/domain/deployment/k8s"
)

func TestNaming(t *testing.T) {
	deploymentId := "a1b2c3d4-e5f6-7890-abcd-ef1234567890"
	userId := "00112233-4455-6677-8899-aabbccddeeff"

	if got := k8s.ResourceName(deploymentId); got != "app-a1b2c3d4" {
		t.Errorf("resource name: got %s", got)
	}
	if got := k8s.NamespaceName(userId); got != "user-00112233" {
		t.Errorf("namespace: got %s", got)
	}
	if got := k8s.EnvSecretName(deploymentId); got != "app-a1b2c3d4-secrets" {
		t.Errorf("env secret name: got %s", got)
	}
	if got := k8s.RegistrySecretName(deploymentId); got != "app-a1b2c3d4-registry" {
		t.Errorf("registry secret name: got %s", got)
	}
	if got := k8s.CertificateName(deploymentId); got != "app-a1b2c3d4-cert" {
		t.Errorf("certificate name: got %s", got)
	}

	t.Run("names are deterministic", func(t *testing.T) {
		if k8s.ResourceName(deploymentId) != k8s.ResourceName(deploymentId) {
			t.Error("resource name is not stable")
		}
	})
}

func TestLabels(t *testing.T) {
	depl := domain.Deployment{
		Id:        "a1b2c3d4-e5f6-7890-abcd-ef1234567890",
		ProjectId: "p-1",
		Name:      "my-app",
		Labels: map[string]string{
			"team": "payments",
			// identifying labels cannot be shadowed by user labels
			"app.kubernetes.io/managed-by": "someone-else",
		},
	}

	labels := k8s.Labels(depl)
	if labels["app.kubernetes.io/managed-by"] != "poddle" {
		t.Errorf("managed-by: got %s", labels["app.kubernetes.io/managed-by"])
	}
	if labels["poddle.io/deployment-id"] != depl.Id {
		t.Errorf("deployment id label: got %s", labels["poddle.io/deployment-id"])
	}
	if labels["poddle.io/project-id"] != "p-1" {
		t.Errorf("project id label: got %s", labels["poddle.io/project-id"])
	}
	if labels["team"] != "payments" {
		t.Errorf("user label lost: got %s", labels["team"])
	}
}
