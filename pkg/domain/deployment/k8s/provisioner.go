package k8s

import (
	"context"
	"fmt"
	"time"

	kubecore "k8s.io/api/core/v1"
	"k8s.io/apimachinery/pkg/labels"

	"github.com/poddle/poddle/pkg/cluster"
	"github.com/poddle/poddle/pkg/domain"
	"github.com/poddle/poddle/pkg/secrets"
	"github.com/poddle/poddle/pkg/utils/pointer"
)

// Config locates the shared ingress machinery the provisioner wires
// deployments into.
type Config struct {
	// BaseDomain is the platform domain subdomains hang off.
	BaseDomain string

	// ClusterIssuer signs certificates for custom domains.
	ClusterIssuer string

	// WildcardSecretName is the TLS secret of the *.BaseDomain certificate.
	WildcardSecretName string

	// IngressNamespace is where the wildcard certificate lives.
	IngressNamespace string
}

// Interface provisions and tears down the cluster resource bundle of a
// deployment: namespace, secrets, workload, service, ingress route, and
// certificate.
type Interface interface {
	// Apply brings the whole bundle up to date with depl. Applying an
	// unchanged deployment twice is a no-op. secretValues are written to
	// the secret store and materialized as the env secret; pass nil to
	// keep the stored bag, which is re-materialized when the deployment
	// declares secret keys.
	Apply(ctx context.Context, depl domain.Deployment, secretValues map[string]string) error

	// Remove tears the bundle down in reverse apply order. Resources
	// already gone are fine; Remove of a removed deployment succeeds.
	Remove(ctx context.Context, depl domain.Deployment) error

	// Scale patches only the workload's replica count.
	Scale(ctx context.Context, depl domain.Deployment, replicas int32) error

	// Observe reads the workload's replica counts. A missing workload is
	// reported as ErrDeploymentMissing.
	Observe(ctx context.Context, depl domain.Deployment) (domain.ReplicaObservation, error)

	// ObservePods lists the pods backing depl: uid, phase, restart count,
	// and any crash loop or image pull failure a container is stuck on.
	ObservePods(ctx context.Context, depl domain.Deployment) ([]domain.PodObservation, error)

	// Preflight verifies the shared ingress machinery this provisioner
	// depends on actually exists in the cluster.
	Preflight(ctx context.Context) error
}

type provisioner struct {
	client cluster.Client
	store  secrets.Store
	config Config
}

func New(client cluster.Client, store secrets.Store, config Config) Interface {
	return &provisioner{client: client, store: store, config: config}
}

func (p *provisioner) Apply(ctx context.Context, depl domain.Deployment, secretValues map[string]string) error {
	namespace := NamespaceName(depl.UserId)

	err := p.client.EnsureNamespace(ctx, namespace, map[string]string{
		LabelManagedBy: ManagedByValue,
	})
	if err != nil {
		return cluster.ClassifyError(
			fmt.Sprintf("ensuring namespace %s", namespace), err,
		)
	}

	if len(secretValues) != 0 {
		if err := p.store.Write(ctx, namespace, depl.Id, secretValues); err != nil {
			return domain.NewTransientCausedBy("writing secret values", err)
		}
		if err := p.client.ApplySecret(ctx, namespace, buildEnvSecret(depl, secretValues)); err != nil {
			return cluster.ClassifyError("applying env secret", err)
		}
	} else if len(depl.SecretKeys) != 0 {
		// re-apply without fresh values: rebuild the env secret from the
		// stored bag so a drifted or deleted secret heals.
		stored, err := p.store.Read(ctx, namespace, depl.Id)
		if err != nil {
			return domain.NewTransientCausedBy("reading secret values", err)
		}
		if len(stored) != 0 {
			if err := p.client.ApplySecret(ctx, namespace, buildEnvSecret(depl, stored)); err != nil {
				return cluster.ClassifyError("applying env secret", err)
			}
		}
	}

	if depl.ImagePullSecret != "" {
		if err := p.client.ApplySecret(ctx, namespace, buildRegistrySecret(depl)); err != nil {
			return cluster.ClassifyError("applying registry secret", err)
		}
	}

	if err := p.client.ApplyDeployment(ctx, namespace, buildDeployment(depl)); err != nil {
		return cluster.ClassifyError("applying workload", err)
	}

	if err := p.client.ApplyService(ctx, namespace, buildService(depl)); err != nil {
		return cluster.ClassifyError("applying service", err)
	}

	route := buildIngressRoute(depl, p.config.BaseDomain, p.config.WildcardSecretName)
	if err := p.client.ApplyDynamic(ctx, cluster.IngressRouteGVR, namespace, route); err != nil {
		return cluster.ClassifyError("applying ingress route", err)
	}

	if depl.Domain != "" {
		cert := buildCertificate(depl, p.config.ClusterIssuer)
		if err := p.client.ApplyDynamic(ctx, cluster.CertificateGVR, namespace, cert); err != nil {
			return cluster.ClassifyError("applying certificate", err)
		}
	}

	return nil
}

func (p *provisioner) Remove(ctx context.Context, depl domain.Deployment) error {
	namespace := NamespaceName(depl.UserId)
	name := ResourceName(depl.Id)

	// reverse apply order. The certificate may not exist (no custom
	// domain); same for the secrets. Gone is as good as deleted.
	steps := []struct {
		what string
		del  func() error
	}{
		{"certificate", func() error {
			return p.client.DeleteDynamic(ctx, cluster.CertificateGVR, namespace, CertificateName(depl.Id))
		}},
		{"ingress route", func() error {
			return p.client.DeleteDynamic(ctx, cluster.IngressRouteGVR, namespace, name)
		}},
		{"service", func() error {
			return p.client.DeleteService(ctx, namespace, name)
		}},
		{"workload", func() error {
			return p.client.DeleteDeployment(ctx, namespace, name)
		}},
		{"env secret", func() error {
			return p.client.DeleteSecret(ctx, namespace, EnvSecretName(depl.Id))
		}},
		{"registry secret", func() error {
			return p.client.DeleteSecret(ctx, namespace, RegistrySecretName(depl.Id))
		}},
	}

	for _, step := range steps {
		if err := step.del(); err != nil && !cluster.IsNotFound(err) {
			return cluster.ClassifyError(fmt.Sprintf("removing %s", step.what), err)
		}
	}

	// stored secret values go last, after nothing references them.
	if err := p.store.Delete(ctx, namespace, depl.Id); err != nil {
		return domain.NewTransientCausedBy("deleting secret values", err)
	}
	return nil
}

func (p *provisioner) Scale(ctx context.Context, depl domain.Deployment, replicas int32) error {
	namespace := NamespaceName(depl.UserId)
	name := ResourceName(depl.Id)

	if err := p.client.ScaleDeployment(ctx, namespace, name, replicas); err != nil {
		if cluster.IsNotFound(err) {
			return domain.NewDeploymentMissingCausedBy(
				fmt.Sprintf("workload %s/%s", namespace, name), err,
			)
		}
		return cluster.ClassifyError("scaling workload", err)
	}
	return nil
}

func (p *provisioner) Observe(ctx context.Context, depl domain.Deployment) (domain.ReplicaObservation, error) {
	namespace := NamespaceName(depl.UserId)
	name := ResourceName(depl.Id)

	workload, err := p.client.GetDeployment(ctx, namespace, name)
	if err != nil {
		if cluster.IsNotFound(err) {
			return domain.ReplicaObservation{}, domain.NewDeploymentMissingCausedBy(
				fmt.Sprintf("workload %s/%s", namespace, name), err,
			)
		}
		return domain.ReplicaObservation{}, cluster.ClassifyError("fetching workload", err)
	}

	return domain.ReplicaObservation{
		Desired:   pointer.SafeDeref(workload.Spec.Replicas),
		Ready:     workload.Status.ReadyReplicas,
		Available: workload.Status.AvailableReplicas,
		Updated:   workload.Status.UpdatedReplicas,
		FetchedAt: time.Now(),
	}, nil
}

func (p *provisioner) ObservePods(ctx context.Context, depl domain.Deployment) ([]domain.PodObservation, error) {
	namespace := NamespaceName(depl.UserId)

	pods, err := p.client.FindPods(ctx, namespace, labels.Set(Selector(depl)).String())
	if err != nil {
		return nil, cluster.ClassifyError("listing pods", err)
	}

	observations := make([]domain.PodObservation, 0, len(pods))
	for _, pod := range pods {
		observations = append(observations, podObservation(pod))
	}
	return observations, nil
}

// crash loops and image pull failures show up as waiting reasons on the
// container statuses, not on the pod phase.
var failureReasons = map[string]bool{
	"CrashLoopBackOff": true,
	"ImagePullBackOff": true,
	"ErrImagePull":     true,
}

func podObservation(pod kubecore.Pod) domain.PodObservation {
	obs := domain.PodObservation{
		Uid:   string(pod.UID),
		Name:  pod.Name,
		Phase: domain.PodPhase(pod.Status.Phase),
	}
	if obs.Phase == "" {
		obs.Phase = domain.PodUnknown
	}
	for _, cs := range pod.Status.ContainerStatuses {
		obs.Restarts += cs.RestartCount
		if w := cs.State.Waiting; w != nil && failureReasons[w.Reason] {
			obs.Reason = w.Reason
			obs.Message = w.Message
		}
	}
	return obs
}

func (p *provisioner) Preflight(ctx context.Context) error {
	_, err := p.client.GetClusterScopedDynamic(ctx, cluster.ClusterIssuerGVR, p.config.ClusterIssuer)
	if err != nil {
		return domain.NewFatalProvisionCausedBy(
			fmt.Sprintf("cluster issuer %s is not available", p.config.ClusterIssuer), err,
		)
	}

	_, err = p.client.GetDynamic(
		ctx, cluster.CertificateGVR, p.config.IngressNamespace, p.config.WildcardSecretName,
	)
	if err != nil {
		return domain.NewFatalProvisionCausedBy(
			fmt.Sprintf(
				"wildcard certificate %s/%s is not available",
				p.config.IngressNamespace, p.config.WildcardSecretName,
			), err,
		)
	}
	return nil
}
