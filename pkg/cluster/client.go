package cluster

import (
	"context"

	kubeapps "k8s.io/api/apps/v1"
	kubecore "k8s.io/api/core/v1"
	kubeerr "k8s.io/apimachinery/pkg/api/errors"
	kubeapimeta "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
	"k8s.io/apimachinery/pkg/runtime/schema"
	"k8s.io/apimachinery/pkg/types"
	"k8s.io/client-go/dynamic"
	k8s "k8s.io/client-go/kubernetes"

	"github.com/poddle/poddle/pkg/utils/pointer"
)

// FieldManager identifies this control plane in server-side apply.
const FieldManager = "poddle"

var (
	IngressRouteGVR = schema.GroupVersionResource{
		Group: "traefik.io", Version: "v1alpha1", Resource: "ingressroutes",
	}
	CertificateGVR = schema.GroupVersionResource{
		Group: "cert-manager.io", Version: "v1", Resource: "certificates",
	}
	ClusterIssuerGVR = schema.GroupVersionResource{
		Group: "cert-manager.io", Version: "v1", Resource: "clusterissuers",
	}
)

// Client is the subset of the cluster API this control plane uses.
//
// Apply methods are create-or-update: re-applying an unchanged resource
// is a no-op. Delete methods treat a missing resource as an error;
// callers that want idempotent removal check with IsNotFound.
type Client interface {
	EnsureNamespace(ctx context.Context, name string, labels map[string]string) error

	ApplySecret(ctx context.Context, namespace string, secret *kubecore.Secret) error
	DeleteSecret(ctx context.Context, namespace string, name string) error

	GetDeployment(ctx context.Context, namespace string, name string) (*kubeapps.Deployment, error)
	ApplyDeployment(ctx context.Context, namespace string, depl *kubeapps.Deployment) error
	ScaleDeployment(ctx context.Context, namespace string, name string, replicas int32) error
	DeleteDeployment(ctx context.Context, namespace string, name string) error

	FindPods(ctx context.Context, namespace string, labelSelector string) ([]kubecore.Pod, error)

	ApplyService(ctx context.Context, namespace string, svc *kubecore.Service) error
	DeleteService(ctx context.Context, namespace string, name string) error

	// ApplyDynamic server-side-applies a custom resource (ingress routes,
	// certificates). The object must carry apiVersion, kind, name.
	ApplyDynamic(ctx context.Context, gvr schema.GroupVersionResource, namespace string, obj *unstructured.Unstructured) error
	GetDynamic(ctx context.Context, gvr schema.GroupVersionResource, namespace string, name string) (*unstructured.Unstructured, error)
	GetClusterScopedDynamic(ctx context.Context, gvr schema.GroupVersionResource, name string) (*unstructured.Unstructured, error)
	DeleteDynamic(ctx context.Context, gvr schema.GroupVersionResource, namespace string, name string) error
}

// IsNotFound reports whether err means the resource does not exist.
func IsNotFound(err error) bool {
	return kubeerr.IsNotFound(err)
}

type client struct {
	clientset *k8s.Clientset
	dynamic   dynamic.Interface
}

var _ Client = &client{}

// Wrap builds a Client over a clientset and a dynamic client.
func Wrap(clientset *k8s.Clientset, dyn dynamic.Interface) Client {
	return &client{clientset: clientset, dynamic: dyn}
}

func (c *client) EnsureNamespace(ctx context.Context, name string, labels map[string]string) error {
	_, err := c.clientset.CoreV1().Namespaces().Create(
		ctx,
		&kubecore.Namespace{
			ObjectMeta: kubeapimeta.ObjectMeta{Name: name, Labels: labels},
		},
		kubeapimeta.CreateOptions{FieldManager: FieldManager},
	)
	if kubeerr.IsAlreadyExists(err) {
		return nil
	}
	return err
}

func (c *client) ApplySecret(ctx context.Context, namespace string, secret *kubecore.Secret) error {
	_, err := c.clientset.CoreV1().Secrets(namespace).Create(
		ctx, secret, kubeapimeta.CreateOptions{FieldManager: FieldManager},
	)
	if !kubeerr.IsAlreadyExists(err) {
		return err
	}

	current, err := c.clientset.CoreV1().Secrets(namespace).Get(ctx, secret.Name, kubeapimeta.GetOptions{})
	if err != nil {
		return err
	}
	secret = secret.DeepCopy()
	secret.ResourceVersion = current.ResourceVersion
	_, err = c.clientset.CoreV1().Secrets(namespace).Update(
		ctx, secret, kubeapimeta.UpdateOptions{FieldManager: FieldManager},
	)
	return err
}

func (c *client) DeleteSecret(ctx context.Context, namespace string, name string) error {
	return c.clientset.CoreV1().Secrets(namespace).Delete(ctx, name, kubeapimeta.DeleteOptions{})
}

func (c *client) GetDeployment(ctx context.Context, namespace string, name string) (*kubeapps.Deployment, error) {
	return c.clientset.AppsV1().Deployments(namespace).Get(ctx, name, kubeapimeta.GetOptions{})
}

func (c *client) ApplyDeployment(ctx context.Context, namespace string, depl *kubeapps.Deployment) error {
	_, err := c.clientset.AppsV1().Deployments(namespace).Create(
		ctx, depl, kubeapimeta.CreateOptions{FieldManager: FieldManager},
	)
	if !kubeerr.IsAlreadyExists(err) {
		return err
	}

	current, err := c.clientset.AppsV1().Deployments(namespace).Get(ctx, depl.Name, kubeapimeta.GetOptions{})
	if err != nil {
		return err
	}
	depl = depl.DeepCopy()
	depl.ResourceVersion = current.ResourceVersion
	_, err = c.clientset.AppsV1().Deployments(namespace).Update(
		ctx, depl, kubeapimeta.UpdateOptions{FieldManager: FieldManager},
	)
	return err
}

func (c *client) ScaleDeployment(ctx context.Context, namespace string, name string, replicas int32) error {
	scale, err := c.clientset.AppsV1().Deployments(namespace).GetScale(ctx, name, kubeapimeta.GetOptions{})
	if err != nil {
		return err
	}
	scale.Spec.Replicas = replicas
	_, err = c.clientset.AppsV1().Deployments(namespace).UpdateScale(
		ctx, name, scale, kubeapimeta.UpdateOptions{FieldManager: FieldManager},
	)
	return err
}

func (c *client) DeleteDeployment(ctx context.Context, namespace string, name string) error {
	return c.clientset.AppsV1().Deployments(namespace).Delete(ctx, name, kubeapimeta.DeleteOptions{})
}

func (c *client) FindPods(ctx context.Context, namespace string, labelSelector string) ([]kubecore.Pod, error) {
	resp, err := c.clientset.CoreV1().Pods(namespace).List(ctx, kubeapimeta.ListOptions{
		LabelSelector: labelSelector,
	})
	if err != nil {
		return nil, err
	}
	return resp.Items, nil
}

func (c *client) ApplyService(ctx context.Context, namespace string, svc *kubecore.Service) error {
	_, err := c.clientset.CoreV1().Services(namespace).Create(
		ctx, svc, kubeapimeta.CreateOptions{FieldManager: FieldManager},
	)
	if !kubeerr.IsAlreadyExists(err) {
		return err
	}

	current, err := c.clientset.CoreV1().Services(namespace).Get(ctx, svc.Name, kubeapimeta.GetOptions{})
	if err != nil {
		return err
	}
	svc = svc.DeepCopy()
	svc.ResourceVersion = current.ResourceVersion
	// ClusterIP is immutable once allocated.
	svc.Spec.ClusterIP = current.Spec.ClusterIP
	_, err = c.clientset.CoreV1().Services(namespace).Update(
		ctx, svc, kubeapimeta.UpdateOptions{FieldManager: FieldManager},
	)
	return err
}

func (c *client) DeleteService(ctx context.Context, namespace string, name string) error {
	return c.clientset.CoreV1().Services(namespace).Delete(ctx, name, kubeapimeta.DeleteOptions{})
}

func (c *client) ApplyDynamic(
	ctx context.Context,
	gvr schema.GroupVersionResource,
	namespace string,
	obj *unstructured.Unstructured,
) error {
	payload, err := obj.MarshalJSON()
	if err != nil {
		return err
	}
	_, err = c.dynamic.Resource(gvr).Namespace(namespace).Patch(
		ctx, obj.GetName(), types.ApplyPatchType, payload,
		kubeapimeta.PatchOptions{FieldManager: FieldManager, Force: pointer.Ref(true)},
	)
	return err
}

func (c *client) GetDynamic(
	ctx context.Context,
	gvr schema.GroupVersionResource,
	namespace string,
	name string,
) (*unstructured.Unstructured, error) {
	return c.dynamic.Resource(gvr).Namespace(namespace).Get(ctx, name, kubeapimeta.GetOptions{})
}

func (c *client) GetClusterScopedDynamic(
	ctx context.Context,
	gvr schema.GroupVersionResource,
	name string,
) (*unstructured.Unstructured, error) {
	return c.dynamic.Resource(gvr).Get(ctx, name, kubeapimeta.GetOptions{})
}

func (c *client) DeleteDynamic(
	ctx context.Context,
	gvr schema.GroupVersionResource,
	namespace string,
	name string,
) error {
	return c.dynamic.Resource(gvr).Namespace(namespace).Delete(ctx, name, kubeapimeta.DeleteOptions{})
}
