// Copyright Contributors to the SeaClaw Platform project

// Package cluster is the narrow facade over the container orchestrator.
// It exposes the handful of verbs the platform needs and normalizes the
// API server's conflict and missing-object signals into domain errors so
// the rest of the gateway never sees client-go error types.
package cluster

import (
	"context"
	"errors"
	"time"

	corev1 "k8s.io/api/core/v1"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/client-go/kubernetes"
	ctrl "sigs.k8s.io/controller-runtime"
)

var log = ctrl.Log.WithName("cluster")

// requestTimeout bounds every API server call. The chat relay has its own,
// much larger timeout; this only covers orchestration traffic.
const requestTimeout = 30 * time.Second

// WorkloadStatus is the subset of pod state the platform exposes.
type WorkloadStatus struct {
	Phase string `json:"phase"`
	Ready bool   `json:"ready"`
	IP    string `json:"ip,omitempty"`
}

// Client is the facade over the orchestrator. All verbs operate in a single
// configured namespace. Implementations are safe for concurrent use.
type Client interface {
	CreateConfigMap(ctx context.Context, cm *corev1.ConfigMap) error
	ReplaceConfigMap(ctx context.Context, cm *corev1.ConfigMap) error
	GetConfigMap(ctx context.Context, name string) (*corev1.ConfigMap, error)
	DeleteConfigMap(ctx context.Context, name string) error
	CreatePod(ctx context.Context, pod *corev1.Pod) error
	DeletePod(ctx context.Context, name string) error
	PodStatus(ctx context.Context, name string) (*WorkloadStatus, error)
	CreateService(ctx context.Context, svc *corev1.Service) error
	DeleteService(ctx context.Context, name string) error
}

// New resolves cluster credentials the usual way: in-cluster service account
// first, then the local kubeconfig. When neither resolves the facade degrades
// to a stub whose verbs all return ErrUnavailable, so the gateway can still
// serve registry reads and the plan tracker.
func New(namespace string) Client {
	cfg, err := ctrl.GetConfig()
	if err != nil {
		log.Info("no cluster configuration found, running standalone", "reason", err.Error())
		return unavailable{}
	}
	cfg.Timeout = requestTimeout

	clientset, err := kubernetes.NewForConfig(cfg)
	if err != nil {
		log.Error(err, "failed to build clientset, running standalone")
		return unavailable{}
	}

	log.Info("cluster client ready", "namespace", namespace)
	return NewWithClientset(clientset, namespace)
}

// NewWithClientset wraps an existing clientset. Tests pass a fake.
func NewWithClientset(clientset kubernetes.Interface, namespace string) Client {
	return &client{clientset: clientset, namespace: namespace}
}

type client struct {
	clientset kubernetes.Interface
	namespace string
}

func (c *client) CreateConfigMap(ctx context.Context, cm *corev1.ConfigMap) error {
	_, err := c.clientset.CoreV1().ConfigMaps(c.namespace).Create(ctx, cm, metav1.CreateOptions{})
	return normalize(err)
}

func (c *client) ReplaceConfigMap(ctx context.Context, cm *corev1.ConfigMap) error {
	_, err := c.clientset.CoreV1().ConfigMaps(c.namespace).Update(ctx, cm, metav1.UpdateOptions{})
	return normalize(err)
}

func (c *client) GetConfigMap(ctx context.Context, name string) (*corev1.ConfigMap, error) {
	cm, err := c.clientset.CoreV1().ConfigMaps(c.namespace).Get(ctx, name, metav1.GetOptions{})
	if err != nil {
		return nil, normalize(err)
	}
	return cm, nil
}

func (c *client) DeleteConfigMap(ctx context.Context, name string) error {
	err := c.clientset.CoreV1().ConfigMaps(c.namespace).Delete(ctx, name, metav1.DeleteOptions{})
	return normalize(err)
}

func (c *client) CreatePod(ctx context.Context, pod *corev1.Pod) error {
	_, err := c.clientset.CoreV1().Pods(c.namespace).Create(ctx, pod, metav1.CreateOptions{})
	return normalize(err)
}

func (c *client) DeletePod(ctx context.Context, name string) error {
	err := c.clientset.CoreV1().Pods(c.namespace).Delete(ctx, name, metav1.DeleteOptions{})
	return normalize(err)
}

func (c *client) PodStatus(ctx context.Context, name string) (*WorkloadStatus, error) {
	pod, err := c.clientset.CoreV1().Pods(c.namespace).Get(ctx, name, metav1.GetOptions{})
	if err != nil {
		return nil, normalize(err)
	}

	ready := true
	for _, cs := range pod.Status.ContainerStatuses {
		if !cs.Ready {
			ready = false
			break
		}
	}

	return &WorkloadStatus{
		Phase: string(pod.Status.Phase),
		Ready: ready,
		IP:    pod.Status.PodIP,
	}, nil
}

func (c *client) CreateService(ctx context.Context, svc *corev1.Service) error {
	_, err := c.clientset.CoreV1().Services(c.namespace).Create(ctx, svc, metav1.CreateOptions{})
	return normalize(err)
}

func (c *client) DeleteService(ctx context.Context, name string) error {
	err := c.clientset.CoreV1().Services(c.namespace).Delete(ctx, name, metav1.DeleteOptions{})
	return normalize(err)
}

// normalize maps client-go errors onto the facade's domain errors.
func normalize(err error) error {
	switch {
	case err == nil:
		return nil
	case apierrors.IsAlreadyExists(err), apierrors.IsConflict(err):
		return ErrAlreadyExists
	case apierrors.IsNotFound(err):
		return ErrNotFound
	default:
		return &TransientError{Reason: reasonOf(err), Err: err}
	}
}

// reasonOf extracts the API server's message when one is present.
func reasonOf(err error) string {
	var statusErr *apierrors.StatusError
	if errors.As(err, &statusErr) && statusErr.ErrStatus.Message != "" {
		return statusErr.ErrStatus.Message
	}
	return err.Error()
}

// unavailable is the standalone-mode stub.
type unavailable struct{}

func (unavailable) CreateConfigMap(context.Context, *corev1.ConfigMap) error { return ErrUnavailable }
func (unavailable) ReplaceConfigMap(context.Context, *corev1.ConfigMap) error {
	return ErrUnavailable
}
func (unavailable) GetConfigMap(context.Context, string) (*corev1.ConfigMap, error) {
	return nil, ErrUnavailable
}
func (unavailable) DeleteConfigMap(context.Context, string) error { return ErrUnavailable }
func (unavailable) CreatePod(context.Context, *corev1.Pod) error  { return ErrUnavailable }
func (unavailable) DeletePod(context.Context, string) error       { return ErrUnavailable }
func (unavailable) PodStatus(context.Context, string) (*WorkloadStatus, error) {
	return nil, ErrUnavailable
}
func (unavailable) CreateService(context.Context, *corev1.Service) error { return ErrUnavailable }
func (unavailable) DeleteService(context.Context, string) error          { return ErrUnavailable }
