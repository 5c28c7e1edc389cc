package k8s

import (
	"fmt"
	"strings"

	"github.com/poddle/poddle/pkg/domain"
)

// Cluster resource names are pure functions of the owning ids, so that
// re-provisioning is idempotent and cleanup never needs a lookup.

// ResourceName names every cluster resource of a deployment.
func ResourceName(deploymentId string) string {
	return fmt.Sprintf("app-%s", shortId(deploymentId))
}

// NamespaceName puts all deployments of one user in one namespace.
func NamespaceName(userId string) string {
	return fmt.Sprintf("user-%s", shortId(userId))
}

// shortId is the first 8 hex digits of a uuid with dashes removed.
func shortId(id string) string {
	plain := strings.ReplaceAll(id, "-", "")
	if len(plain) > 8 {
		plain = plain[:8]
	}
	return strings.ToLower(plain)
}

// EnvSecretName holds the deployment's secret environment values.
func EnvSecretName(deploymentId string) string {
	return ResourceName(deploymentId) + "-secrets"
}

// RegistrySecretName holds the image pull credential.
func RegistrySecretName(deploymentId string) string {
	return ResourceName(deploymentId) + "-registry"
}

// CertificateName names the per-deployment certificate for a custom domain.
func CertificateName(deploymentId string) string {
	return ResourceName(deploymentId) + "-cert"
}

const (
	LabelManagedBy    = "app.kubernetes.io/managed-by"
	LabelAppName      = "app.kubernetes.io/name"
	LabelDeploymentId = "poddle.io/deployment-id"
	LabelProjectId    = "poddle.io/project-id"

	ManagedByValue = "poddle"
)

// Labels merges the identifying labels over any user-supplied ones.
// Identifying labels always win.
func Labels(depl domain.Deployment) map[string]string {
	labels := map[string]string{}
	for k, v := range depl.Labels {
		labels[k] = v
	}
	labels[LabelManagedBy] = ManagedByValue
	labels[LabelAppName] = depl.Name
	labels[LabelDeploymentId] = depl.Id
	labels[LabelProjectId] = depl.ProjectId
	return labels
}

// Selector matches only the pods of one deployment.
func Selector(depl domain.Deployment) map[string]string {
	return map[string]string{
		LabelManagedBy:    ManagedByValue,
		LabelDeploymentId: depl.Id,
	}
}
