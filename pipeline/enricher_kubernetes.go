package pipeline

import (
	"os"

	"logpipe/envelope"
)

// KubernetesEnricher attaches pod/namespace/node identity sourced from
// the Kubernetes downward API environment variables. It's optional per
// ; construct only when running in-cluster. If none of the
// expected env vars are set it contributes nothing, so it's safe to wire
// unconditionally without detecting the environment first.
type KubernetesEnricher struct {
	podNameVar   string
	namespaceVar string
	nodeNameVar  string
	podIPVar     string
}

func NewKubernetesEnricher() *KubernetesEnricher {
	return &KubernetesEnricher{
		podNameVar:   "POD_NAME",
		namespaceVar: "POD_NAMESPACE",
		nodeNameVar:  "NODE_NAME",
		podIPVar:     "POD_IP",
	}
}

func (k *KubernetesEnricher) Name() string { return "kubernetes" }

func (k *KubernetesEnricher) Enrich(e *envelope.Event) envelope.Map {
	fields := envelope.Map{}
	if v := os.Getenv(k.podNameVar); v != "" {
		fields["pod_name"] = v
	}
	if v := os.Getenv(k.namespaceVar); v != "" {
		fields["namespace"] = v
	}
	if v := os.Getenv(k.nodeNameVar); v != "" {
		fields["node_name"] = v
	}
	if v := os.Getenv(k.podIPVar); v != "" {
		fields["pod_ip"] = v
	}
	if len(fields) == 0 {
		return nil
	}
	return envelope.Map{"kubernetes": fields}
}
