// Copyright Contributors to the SeaClaw Platform project

package orchestrator

import (
	"encoding/json"
	"fmt"

	corev1 "k8s.io/api/core/v1"
	"k8s.io/apimachinery/pkg/api/resource"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/util/intstr"
)

const (
	// AppLabel marks every object belonging to a tenant instance.
	AppLabel = "seaclaw-instance"

	// AgentPort is the HTTP API port of the agent runtime (POST /api/chat).
	AgentPort = 8899

	agentPortName = "webchat"

	// runtimeCommand is the agent binary inside the instance image.
	runtimeCommand = "sea_claw"

	initImage = "busybox:1.36"

	// Pre-provisioned PVCs, referenced by name only.
	userDataClaim  = "seaclaw-user-data"
	workspaceClaim = "seaclaw-shared-workspace"
)

// WorkloadName returns the pod name for a tenant.
func WorkloadName(username string) string {
	return "seaclaw-" + username
}

// ServiceName returns the in-cluster service name for a tenant.
func ServiceName(username string) string {
	return "seaclaw-" + username + "-svc"
}

// BundleConfigMapName returns the name of the ConfigMap holding config.json.
func BundleConfigMapName(username string) string {
	return "seaclaw-config-" + username
}

// PersonaConfigMapName returns the name of the ConfigMap holding SOUL.md.
func PersonaConfigMapName(username string) string {
	return "seaclaw-soul-" + username
}

// buildBundleConfigMap wraps the serialized configuration bundle.
func buildBundleConfigMap(namespace, username string, bundle ConfigBundle) (*corev1.ConfigMap, error) {
	raw, err := json.MarshalIndent(bundle, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encoding config bundle: %w", err)
	}
	return &corev1.ConfigMap{
		ObjectMeta: metav1.ObjectMeta{
			Name:      BundleConfigMapName(username),
			Namespace: namespace,
		},
		Data: map[string]string{"config.json": string(raw)},
	}, nil
}

// buildPersonaConfigMap wraps the persona document.
func buildPersonaConfigMap(namespace, username, content string) *corev1.ConfigMap {
	return &corev1.ConfigMap{
		ObjectMeta: metav1.ObjectMeta{
			Name:      PersonaConfigMapName(username),
			Namespace: namespace,
		},
		Data: map[string]string{"SOUL.md": content},
	}
}

// buildPod composes the tenant workload: an init container that materializes
// config.json and SOUL.md into the tenant's subpath of the shared data
// volume, and the agent runtime container mounting that subpath plus the
// shared workspace.
func buildPod(namespace, image string, spec CreateSpec) *corev1.Pod {
	username := spec.Username

	env := []corev1.EnvVar{
		{Name: "SEA_LOG_LEVEL", Value: "info"},
		{Name: "SEA_API_BIND_ALL", Value: "1"},
		{Name: "SEA_USERNAME", Value: username},
		{Name: "SEA_GATEWAY_URL", Value: gatewayURL(namespace)},
	}
	if spec.TelegramToken != "" {
		env = append(env, corev1.EnvVar{Name: "TELEGRAM_BOT_TOKEN", Value: spec.TelegramToken})
	}
	if spec.TelegramChatID != "" {
		env = append(env, corev1.EnvVar{Name: "TELEGRAM_CHAT_ID", Value: spec.TelegramChatID})
	}

	return &corev1.Pod{
		ObjectMeta: metav1.ObjectMeta{
			Name:      WorkloadName(username),
			Namespace: namespace,
			Labels: map[string]string{
				"app":     AppLabel,
				"user":    username,
				"persona": spec.Persona,
			},
		},
		Spec: corev1.PodSpec{
			InitContainers: []corev1.Container{
				{
					Name:  "init-config",
					Image: initImage,
					Command: []string{"sh", "-c",
						"cp /cfg/config.json /userdata/config.json && " +
							"cp /soul/SOUL.md /userdata/SOUL.md && " +
							"echo 'Config initialized'",
					},
					VolumeMounts: []corev1.VolumeMount{
						{Name: "config", MountPath: "/cfg", ReadOnly: true},
						{Name: "soul", MountPath: "/soul", ReadOnly: true},
						{Name: "user-data", MountPath: "/userdata", SubPath: username},
					},
				},
			},
			Containers: []corev1.Container{
				{
					Name:            "seaclaw",
					Image:           image,
					ImagePullPolicy: corev1.PullIfNotPresent,
					Command:         []string{runtimeCommand},
					Args: []string{
						"--config", "/userdata/config.json",
						"--db", "/userdata/seaclaw.db",
						"--gateway",
					},
					Env: env,
					Ports: []corev1.ContainerPort{
						{ContainerPort: AgentPort, Name: agentPortName},
					},
					Resources: corev1.ResourceRequirements{
						Requests: corev1.ResourceList{
							corev1.ResourceCPU:    resource.MustParse("50m"),
							corev1.ResourceMemory: resource.MustParse("32Mi"),
						},
						Limits: corev1.ResourceList{
							corev1.ResourceCPU:    resource.MustParse("500m"),
							corev1.ResourceMemory: resource.MustParse("128Mi"),
						},
					},
					VolumeMounts: []corev1.VolumeMount{
						{Name: "user-data", MountPath: "/userdata", SubPath: username},
						{Name: "shared-workspace", MountPath: "/workspace"},
					},
				},
			},
			Volumes: []corev1.Volume{
				{
					Name: "config",
					VolumeSource: corev1.VolumeSource{
						ConfigMap: &corev1.ConfigMapVolumeSource{
							LocalObjectReference: corev1.LocalObjectReference{
								Name: BundleConfigMapName(username),
							},
						},
					},
				},
				{
					Name: "soul",
					VolumeSource: corev1.VolumeSource{
						ConfigMap: &corev1.ConfigMapVolumeSource{
							LocalObjectReference: corev1.LocalObjectReference{
								Name: PersonaConfigMapName(username),
							},
						},
					},
				},
				{
					Name: "user-data",
					VolumeSource: corev1.VolumeSource{
						PersistentVolumeClaim: &corev1.PersistentVolumeClaimVolumeSource{
							ClaimName: userDataClaim,
						},
					},
				},
				{
					Name: "shared-workspace",
					VolumeSource: corev1.VolumeSource{
						PersistentVolumeClaim: &corev1.PersistentVolumeClaimVolumeSource{
							ClaimName: workspaceClaim,
						},
					},
				},
			},
			RestartPolicy: corev1.RestartPolicyAlways,
		},
	}
}

// buildService exposes the agent runtime port inside the cluster.
func buildService(namespace, username string) *corev1.Service {
	return &corev1.Service{
		ObjectMeta: metav1.ObjectMeta{
			Name:      ServiceName(username),
			Namespace: namespace,
			Labels: map[string]string{
				"app":  AppLabel,
				"user": username,
			},
		},
		Spec: corev1.ServiceSpec{
			Selector: map[string]string{
				"app":  AppLabel,
				"user": username,
			},
			Ports: []corev1.ServicePort{
				{
					Name:       agentPortName,
					Port:       AgentPort,
					TargetPort: intstr.FromInt32(AgentPort),
				},
			},
			Type: corev1.ServiceTypeClusterIP,
		},
	}
}

// gatewayURL is this control plane's own in-cluster address, injected so
// workloads can call back (worker spawning, relays).
func gatewayURL(namespace string) string {
	return fmt.Sprintf("http://gateway-svc.%s.svc.cluster.local:8090", namespace)
}
