package k8s_test

import (
	"context"
	"strings"
	"testing"

	kubeapps "k8s.io/api/apps/v1"
	kubecore "k8s.io/api/core/v1"
	kubeerr "k8s.io/apimachinery/pkg/api/errors"
	kubeapimeta "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
	"k8s.io/apimachinery/pkg/runtime/schema"
	"k8s.io/apimachinery/pkg/types"

	"github.com/poddle/poddle/pkg/cluster"
	clustermock "github.com/poddle/poddle/pkg/cluster/mock"
	"github.com/poddle/poddle/pkg/domain"
	"github.com/poddle/poddle/pkg/domain/deployment/k8s"
	secretsmock "github.com/poddle/poddle/pkg/secrets/mock"
	"github.com/poddle/poddle/pkg/utils/pointer"
)

func testConfig() k8s.Config {
	return k8s.Config{
		BaseDomain:         "apps.poddle.io",
		ClusterIssuer:      "letsencrypt",
		WildcardSecretName: "wildcard-apps-poddle-io",
		IngressNamespace:   "ingress",
	}
}

func testDeployment() domain.Deployment {
	return domain.Deployment{
		Id:              "a1b2c3d4-e5f6-7890-abcd-ef1234567890",
		UserId:          "00112233-4455-6677-8899-aabbccddeeff",
		ProjectId:       "p-1",
		Name:            "my-app",
		Image:           "ghcr.io/acme/my-app:1.2.3",
		Port:            8080,
		DesiredReplicas: 2,
		Resources:       domain.DefaultResourceSpec(),
		Subdomain:       "my-app",
	}
}

func TestProvisionerApply(t *testing.T) {
	type Then struct {
		steps        []string
		certificates int
	}

	theory := func(depl domain.Deployment, secretValues map[string]string, then Then) func(*testing.T) {
		return func(t *testing.T) {
			ctx := context.Background()
			steps := []string{}

			client := clustermock.New(t)
			client.Impl.EnsureNamespace = func(_ context.Context, name string, _ map[string]string) error {
				steps = append(steps, "namespace "+name)
				return nil
			}
			client.Impl.ApplySecret = func(_ context.Context, _ string, secret *kubecore.Secret) error {
				steps = append(steps, "secret "+secret.Name)
				return nil
			}
			client.Impl.ApplyDeployment = func(_ context.Context, _ string, workload *kubeapps.Deployment) error {
				steps = append(steps, "workload "+workload.Name)
				return nil
			}
			client.Impl.ApplyService = func(_ context.Context, _ string, svc *kubecore.Service) error {
				steps = append(steps, "service "+svc.Name)
				return nil
			}
			certificates := 0
			client.Impl.ApplyDynamic = func(_ context.Context, gvr schema.GroupVersionResource, _ string, obj *unstructured.Unstructured) error {
				steps = append(steps, gvr.Resource+" "+obj.GetName())
				if gvr == cluster.CertificateGVR {
					certificates++
				}
				return nil
			}

			store := secretsmock.New(t)
			store.Impl.Write = func(_ context.Context, namespace, deploymentId string, _ map[string]string) error {
				steps = append(steps, "vault "+namespace+"/"+deploymentId)
				return nil
			}

			if err := k8s.New(client, store, testConfig()).Apply(ctx, depl, secretValues); err != nil {
				t.Fatal(err)
			}

			if len(steps) != len(then.steps) {
				t.Fatalf("steps: got %v, want %v", steps, then.steps)
			}
			for i := range steps {
				if steps[i] != then.steps[i] {
					t.Errorf("step %d: got %s, want %s", i, steps[i], then.steps[i])
				}
			}
			if certificates != then.certificates {
				t.Errorf("certificates: got %d, want %d", certificates, then.certificates)
			}
		}
	}

	t.Run("a plain deployment applies namespace, workload, service, route", theory(
		testDeployment(), nil,
		Then{steps: []string{
			"namespace user-00112233",
			"workload app-a1b2c3d4",
			"service app-a1b2c3d4",
			"ingressroutes app-a1b2c3d4",
		}},
	))

	t.Run("secret values go to the store before the env secret materializes", func(t *testing.T) {
		depl := testDeployment()
		depl.SecretKeys = []string{"API_KEY"}
		theory(depl, map[string]string{"API_KEY": "hunter2"},
			Then{steps: []string{
				"namespace user-00112233",
				"vault user-00112233/" + depl.Id,
				"secret app-a1b2c3d4-secrets",
				"workload app-a1b2c3d4",
				"service app-a1b2c3d4",
				"ingressroutes app-a1b2c3d4",
			}},
		)(t)
	})

	t.Run("a custom domain adds a certificate after the route", func(t *testing.T) {
		depl := testDeployment()
		depl.Domain = "shop.example.com"
		theory(depl, nil,
			Then{
				steps: []string{
					"namespace user-00112233",
					"workload app-a1b2c3d4",
					"service app-a1b2c3d4",
					"ingressroutes app-a1b2c3d4",
					"certificates app-a1b2c3d4-cert",
				},
				certificates: 1,
			},
		)(t)
	})

	t.Run("a re-apply without fresh values rebuilds the env secret from the store", func(t *testing.T) {
		ctx := context.Background()
		depl := testDeployment()
		depl.SecretKeys = []string{"API_KEY"}
		steps := []string{}

		client := clustermock.New(t)
		client.Impl.EnsureNamespace = func(_ context.Context, name string, _ map[string]string) error {
			steps = append(steps, "namespace "+name)
			return nil
		}
		materialized := map[string]string{}
		client.Impl.ApplySecret = func(_ context.Context, _ string, secret *kubecore.Secret) error {
			steps = append(steps, "secret "+secret.Name)
			materialized = secret.StringData
			return nil
		}
		client.Impl.ApplyDeployment = func(_ context.Context, _ string, workload *kubeapps.Deployment) error {
			steps = append(steps, "workload "+workload.Name)
			return nil
		}
		client.Impl.ApplyService = func(_ context.Context, _ string, svc *kubecore.Service) error {
			steps = append(steps, "service "+svc.Name)
			return nil
		}
		client.Impl.ApplyDynamic = func(_ context.Context, _ schema.GroupVersionResource, _ string, obj *unstructured.Unstructured) error {
			steps = append(steps, "route "+obj.GetName())
			return nil
		}

		// only Read is implemented: a write would fail the test.
		store := secretsmock.New(t)
		store.Impl.Read = func(_ context.Context, namespace, deploymentId string) (map[string]string, error) {
			steps = append(steps, "vault read "+namespace+"/"+deploymentId)
			return map[string]string{"API_KEY": "hunter2"}, nil
		}

		if err := k8s.New(client, store, testConfig()).Apply(ctx, depl, nil); err != nil {
			t.Fatal(err)
		}

		want := []string{
			"namespace user-00112233",
			"vault read user-00112233/" + depl.Id,
			"secret app-a1b2c3d4-secrets",
			"workload app-a1b2c3d4",
			"service app-a1b2c3d4",
			"route app-a1b2c3d4",
		}
		if len(steps) != len(want) {
			t.Fatalf("steps: got %v, want %v", steps, want)
		}
		for i := range steps {
			if steps[i] != want[i] {
				t.Errorf("step %d: got %s, want %s", i, steps[i], want[i])
			}
		}
		if materialized["API_KEY"] != "hunter2" {
			t.Errorf("env secret data: got %v", materialized)
		}
	})

	t.Run("a private image adds the registry secret before the workload", func(t *testing.T) {
		depl := testDeployment()
		depl.ImagePullSecret = `{"auths":{}}`
		theory(depl, nil,
			Then{steps: []string{
				"namespace user-00112233",
				"secret app-a1b2c3d4-registry",
				"workload app-a1b2c3d4",
				"service app-a1b2c3d4",
				"ingressroutes app-a1b2c3d4",
			}},
		)(t)
	})
}

func TestProvisionerRemove(t *testing.T) {
	notFound := kubeerr.NewNotFound(schema.GroupResource{Resource: "any"}, "gone")

	t.Run("remove deletes in reverse apply order and tolerates gone resources", func(t *testing.T) {
		ctx := context.Background()
		depl := testDeployment()
		steps := []string{}

		client := clustermock.New(t)
		client.Impl.DeleteDynamic = func(_ context.Context, gvr schema.GroupVersionResource, _ string, name string) error {
			steps = append(steps, gvr.Resource+" "+name)
			if gvr == cluster.CertificateGVR {
				return notFound // no custom domain was ever provisioned
			}
			return nil
		}
		client.Impl.DeleteService = func(_ context.Context, _ string, name string) error {
			steps = append(steps, "service "+name)
			return nil
		}
		client.Impl.DeleteDeployment = func(_ context.Context, _ string, name string) error {
			steps = append(steps, "workload "+name)
			return nil
		}
		client.Impl.DeleteSecret = func(_ context.Context, _ string, name string) error {
			steps = append(steps, "secret "+name)
			return notFound
		}

		store := secretsmock.New(t)
		store.Impl.Delete = func(_ context.Context, namespace, deploymentId string) error {
			steps = append(steps, "vault "+namespace+"/"+deploymentId)
			return nil
		}

		if err := k8s.New(client, store, testConfig()).Remove(ctx, depl); err != nil {
			t.Fatal(err)
		}

		want := []string{
			"certificates app-a1b2c3d4-cert",
			"ingressroutes app-a1b2c3d4",
			"service app-a1b2c3d4",
			"workload app-a1b2c3d4",
			"secret app-a1b2c3d4-secrets",
			"secret app-a1b2c3d4-registry",
			"vault user-00112233/" + depl.Id,
		}
		if len(steps) != len(want) {
			t.Fatalf("steps: got %v, want %v", steps, want)
		}
		for i := range steps {
			if steps[i] != want[i] {
				t.Errorf("step %d: got %s, want %s", i, steps[i], want[i])
			}
		}
	})

	t.Run("a real deletion failure stops the teardown", func(t *testing.T) {
		ctx := context.Background()
		depl := testDeployment()

		client := clustermock.New(t)
		client.Impl.DeleteDynamic = func(_ context.Context, _ schema.GroupVersionResource, _ string, _ string) error {
			return nil
		}
		client.Impl.DeleteService = func(_ context.Context, _ string, _ string) error {
			return kubeerr.NewServiceUnavailable("apiserver rebooting")
		}

		store := secretsmock.New(t)

		err := k8s.New(client, store, testConfig()).Remove(ctx, depl)
		if !domain.AsTransient(err) {
			t.Errorf("expected a transient error, got %v", err)
		}
	})
}

func TestProvisionerObserve(t *testing.T) {
	ctx := context.Background()
	depl := testDeployment()

	t.Run("replica counts come back with a fetch time", func(t *testing.T) {
		client := clustermock.New(t)
		client.Impl.GetDeployment = func(_ context.Context, namespace, name string) (*kubeapps.Deployment, error) {
			if namespace != "user-00112233" || name != "app-a1b2c3d4" {
				t.Errorf("fetched %s/%s", namespace, name)
			}
			return &kubeapps.Deployment{
				Spec: kubeapps.DeploymentSpec{Replicas: pointer.Ref[int32](3)},
				Status: kubeapps.DeploymentStatus{
					ReadyReplicas:     2,
					AvailableReplicas: 2,
					UpdatedReplicas:   3,
				},
			}, nil
		}

		obs, err := k8s.New(client, secretsmock.New(t), testConfig()).Observe(ctx, depl)
		if err != nil {
			t.Fatal(err)
		}
		if obs.Desired != 3 || obs.Ready != 2 || obs.Available != 2 || obs.Updated != 3 {
			t.Errorf("observation: %+v", obs)
		}
		if obs.FetchedAt.IsZero() {
			t.Error("fetched time not set")
		}
	})

	t.Run("a missing workload is reported as such", func(t *testing.T) {
		client := clustermock.New(t)
		client.Impl.GetDeployment = func(_ context.Context, _, _ string) (*kubeapps.Deployment, error) {
			return nil, kubeerr.NewNotFound(schema.GroupResource{Resource: "deployments"}, "app-a1b2c3d4")
		}

		_, err := k8s.New(client, secretsmock.New(t), testConfig()).Observe(ctx, depl)
		if !domain.AsDeploymentMissing(err) {
			t.Errorf("expected ErrDeploymentMissing, got %v", err)
		}
	})
}

func TestProvisionerObservePods(t *testing.T) {
	ctx := context.Background()
	depl := testDeployment()

	pod := func(uid, name string, phase kubecore.PodPhase, statuses ...kubecore.ContainerStatus) kubecore.Pod {
		return kubecore.Pod{
			ObjectMeta: kubeapimeta.ObjectMeta{UID: types.UID(uid), Name: name},
			Status:     kubecore.PodStatus{Phase: phase, ContainerStatuses: statuses},
		}
	}

	t.Run("pods come back keyed by uid with summed restarts", func(t *testing.T) {
		client := clustermock.New(t)
		client.Impl.FindPods = func(_ context.Context, namespace, selector string) ([]kubecore.Pod, error) {
			if namespace != "user-00112233" {
				t.Errorf("namespace: got %s", namespace)
			}
			if !strings.Contains(selector, "poddle.io/deployment-id="+depl.Id) {
				t.Errorf("selector: got %s", selector)
			}
			return []kubecore.Pod{
				pod("uid-1", "app-a1b2c3d4-x", kubecore.PodRunning,
					kubecore.ContainerStatus{RestartCount: 1},
					kubecore.ContainerStatus{RestartCount: 2},
				),
				pod("uid-2", "app-a1b2c3d4-y", kubecore.PodPending),
			}, nil
		}

		obs, err := k8s.New(client, secretsmock.New(t), testConfig()).ObservePods(ctx, depl)
		if err != nil {
			t.Fatal(err)
		}
		if len(obs) != 2 {
			t.Fatalf("observations: got %v", obs)
		}
		if obs[0].Uid != "uid-1" || obs[0].Phase != domain.PodRunning || obs[0].Restarts != 3 {
			t.Errorf("first pod: got %+v", obs[0])
		}
		if obs[1].Uid != "uid-2" || obs[1].Phase != domain.PodPending || obs[1].Reason != "" {
			t.Errorf("second pod: got %+v", obs[1])
		}
	})

	t.Run("a waiting container surfaces its failure reason", func(t *testing.T) {
		theory := func(reason string, failing bool) func(*testing.T) {
			return func(t *testing.T) {
				client := clustermock.New(t)
				client.Impl.FindPods = func(_ context.Context, _, _ string) ([]kubecore.Pod, error) {
					return []kubecore.Pod{
						pod("uid-1", "app-a1b2c3d4-x", kubecore.PodRunning,
							kubecore.ContainerStatus{
								RestartCount: 4,
								State: kubecore.ContainerState{
									Waiting: &kubecore.ContainerStateWaiting{
										Reason: reason, Message: "back-off restarting container",
									},
								},
							},
						),
					}, nil
				}

				obs, err := k8s.New(client, secretsmock.New(t), testConfig()).ObservePods(ctx, depl)
				if err != nil {
					t.Fatal(err)
				}
				want := ""
				if failing {
					want = reason
				}
				if obs[0].Reason != want {
					t.Errorf("reason: got %q, want %q", obs[0].Reason, want)
				}
			}
		}

		t.Run("CrashLoopBackOff", theory("CrashLoopBackOff", true))
		t.Run("ImagePullBackOff", theory("ImagePullBackOff", true))
		t.Run("ErrImagePull", theory("ErrImagePull", true))
		t.Run("ContainerCreating is not a failure", theory("ContainerCreating", false))
	})

	t.Run("a listing failure classifies like any cluster error", func(t *testing.T) {
		client := clustermock.New(t)
		client.Impl.FindPods = func(_ context.Context, _, _ string) ([]kubecore.Pod, error) {
			return nil, kubeerr.NewServiceUnavailable("apiserver rebooting")
		}

		_, err := k8s.New(client, secretsmock.New(t), testConfig()).ObservePods(ctx, depl)
		if !domain.AsTransient(err) {
			t.Errorf("expected a transient error, got %v", err)
		}
	})
}
