package k8s

import (
	"fmt"

	kubeapps "k8s.io/api/apps/v1"
	kubecore "k8s.io/api/core/v1"
	"k8s.io/apimachinery/pkg/api/resource"
	kubeapimeta "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
	"k8s.io/apimachinery/pkg/util/intstr"

	"github.com/poddle/poddle/pkg/domain"
	"github.com/poddle/poddle/pkg/utils/pointer"
)

// ServicePort is the stable in-cluster port; it forwards to the
// container's own port.
const ServicePort int32 = 80

func buildEnvSecret(depl domain.Deployment, values map[string]string) *kubecore.Secret {
	return &kubecore.Secret{
		ObjectMeta: kubeapimeta.ObjectMeta{
			Name:   EnvSecretName(depl.Id),
			Labels: Labels(depl),
		},
		Type:       kubecore.SecretTypeOpaque,
		StringData: values,
	}
}

func buildRegistrySecret(depl domain.Deployment) *kubecore.Secret {
	return &kubecore.Secret{
		ObjectMeta: kubeapimeta.ObjectMeta{
			Name:   RegistrySecretName(depl.Id),
			Labels: Labels(depl),
		},
		Type: kubecore.SecretTypeDockerConfigJson,
		StringData: map[string]string{
			kubecore.DockerConfigJsonKey: depl.ImagePullSecret,
		},
	}
}

func buildDeployment(depl domain.Deployment) *kubeapps.Deployment {
	env := make([]kubecore.EnvVar, 0, len(depl.Env))
	for _, e := range depl.Env {
		env = append(env, kubecore.EnvVar{Name: e.Name, Value: e.Value})
	}

	container := kubecore.Container{
		Name:  depl.Name,
		Image: depl.Image,
		Ports: []kubecore.ContainerPort{
			{Name: "http", ContainerPort: depl.Port, Protocol: kubecore.ProtocolTCP},
		},
		Env: env,
		Resources: kubecore.ResourceRequirements{
			Requests: kubecore.ResourceList{
				kubecore.ResourceCPU: *resource.NewMilliQuantity(
					depl.Resources.CpuRequestMillicores, resource.DecimalSI,
				),
				kubecore.ResourceMemory: *resource.NewQuantity(
					depl.Resources.MemoryRequestMebibytes*1024*1024, resource.BinarySI,
				),
			},
			Limits: kubecore.ResourceList{
				kubecore.ResourceCPU: *resource.NewMilliQuantity(
					depl.Resources.CpuLimitMillicores, resource.DecimalSI,
				),
				kubecore.ResourceMemory: *resource.NewQuantity(
					depl.Resources.MemoryLimitMebibytes*1024*1024, resource.BinarySI,
				),
			},
		},
	}

	if len(depl.SecretKeys) != 0 {
		container.EnvFrom = []kubecore.EnvFromSource{
			{
				SecretRef: &kubecore.SecretEnvSource{
					LocalObjectReference: kubecore.LocalObjectReference{
						Name: EnvSecretName(depl.Id),
					},
				},
			},
		}
	}

	podSpec := kubecore.PodSpec{
		Containers: []kubecore.Container{container},
	}
	if depl.ImagePullSecret != "" {
		podSpec.ImagePullSecrets = []kubecore.LocalObjectReference{
			{Name: RegistrySecretName(depl.Id)},
		}
	}

	return &kubeapps.Deployment{
		ObjectMeta: kubeapimeta.ObjectMeta{
			Name:   ResourceName(depl.Id),
			Labels: Labels(depl),
		},
		Spec: kubeapps.DeploymentSpec{
			Replicas: pointer.Ref(depl.DesiredReplicas),
			Selector: &kubeapimeta.LabelSelector{MatchLabels: Selector(depl)},
			Template: kubecore.PodTemplateSpec{
				ObjectMeta: kubeapimeta.ObjectMeta{Labels: Labels(depl)},
				Spec:       podSpec,
			},
		},
	}
}

func buildService(depl domain.Deployment) *kubecore.Service {
	return &kubecore.Service{
		ObjectMeta: kubeapimeta.ObjectMeta{
			Name:   ResourceName(depl.Id),
			Labels: Labels(depl),
		},
		Spec: kubecore.ServiceSpec{
			Type:     kubecore.ServiceTypeClusterIP,
			Selector: Selector(depl),
			Ports: []kubecore.ServicePort{
				{
					Name:       "http",
					Port:       ServicePort,
					TargetPort: intstr.FromInt32(depl.Port),
					Protocol:   kubecore.ProtocolTCP,
				},
			},
		},
	}
}

// buildIngressRoute routes the deployment's hostnames to its service.
//
// The subdomain host is covered by the platform wildcard certificate; a
// custom domain gets its own certificate (see buildCertificate).
func buildIngressRoute(depl domain.Deployment, baseDomain string, wildcardSecret string) *unstructured.Unstructured {
	routes := []interface{}{
		map[string]interface{}{
			"kind":  "Rule",
			"match": fmt.Sprintf("Host(`%s.%s`)", depl.Subdomain, baseDomain),
			"services": []interface{}{
				map[string]interface{}{
					"name": ResourceName(depl.Id),
					"port": int64(ServicePort),
				},
			},
		},
	}

	tlsSecret := wildcardSecret
	if depl.Domain != "" {
		routes = append(routes, map[string]interface{}{
			"kind":  "Rule",
			"match": fmt.Sprintf("Host(`%s`)", depl.Domain),
			"services": []interface{}{
				map[string]interface{}{
					"name": ResourceName(depl.Id),
					"port": int64(ServicePort),
				},
			},
		})
		tlsSecret = CertificateName(depl.Id)
	}

	labels := map[string]interface{}{}
	for k, v := range Labels(depl) {
		labels[k] = v
	}

	return &unstructured.Unstructured{Object: map[string]interface{}{
		"apiVersion": "traefik.io/v1alpha1",
		"kind":       "IngressRoute",
		"metadata": map[string]interface{}{
			"name":   ResourceName(depl.Id),
			"labels": labels,
		},
		"spec": map[string]interface{}{
			"entryPoints": []interface{}{"websecure"},
			"routes":      routes,
			"tls": map[string]interface{}{
				"secretName": tlsSecret,
			},
		},
	}}
}

// buildCertificate asks the certificate manager to issue for a custom
// domain. Subdomain-only deployments ride the wildcard and need none.
func buildCertificate(depl domain.Deployment, clusterIssuer string) *unstructured.Unstructured {
	labels := map[string]interface{}{}
	for k, v := range Labels(depl) {
		labels[k] = v
	}

	return &unstructured.Unstructured{Object: map[string]interface{}{
		"apiVersion": "cert-manager.io/v1",
		"kind":       "Certificate",
		"metadata": map[string]interface{}{
			"name":   CertificateName(depl.Id),
			"labels": labels,
		},
		"spec": map[string]interface{}{
			"secretName": CertificateName(depl.Id),
			"dnsNames":   []interface{}{depl.Domain},
			"issuerRef": map[string]interface{}{
				"kind": "ClusterIssuer",
				"name": clusterIssuer,
			},
		},
	}}
}
