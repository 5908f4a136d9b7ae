package document

import "gopkg.in/yaml.v3"

var workloadKinds = map[string]bool{
	"Pod":         true,
	"Deployment":  true,
	"StatefulSet": true,
	"DaemonSet":   true,
	"ReplicaSet":  true,
	"Job":         true,
	"CronJob":     true,
}

// IsWorkloadKind reports whether kind carries a pod template.
func IsWorkloadKind(kind string) bool {
	return workloadKinds[kind]
}

// PodSpec extracts the pod spec node from the various workload shapes:
// flat for Pod, nested once for controllers, twice for CronJob.
func (d *Document) PodSpec() (*yaml.Node, bool) {
	switch d.Kind {
	case "Pod":
		return Lookup(d.Root(), "spec")
	case "CronJob":
		return Lookup(d.Root(), "spec", "jobTemplate", "spec", "template", "spec")
	default:
		if !IsWorkloadKind(d.Kind) {
			return nil, false
		}
		return Lookup(d.Root(), "spec", "template", "spec")
	}
}

// PodTemplateLabels returns the labels that selectors match against.
func (d *Document) PodTemplateLabels() map[string]string {
	var n *yaml.Node
	var ok bool
	switch d.Kind {
	case "Pod":
		n, ok = Lookup(d.Root(), "metadata", "labels")
	case "CronJob":
		n, ok = Lookup(d.Root(), "spec", "jobTemplate", "spec", "template", "metadata", "labels")
	default:
		n, ok = Lookup(d.Root(), "spec", "template", "metadata", "labels")
	}
	if !ok {
		return nil
	}
	return StringMap(n)
}

// Containers returns the containers sequence of a pod spec node.
func Containers(podSpec *yaml.Node) []*yaml.Node {
	return SequenceAt(podSpec, "containers")
}

// InitContainers returns the initContainers sequence of a pod spec node.
func InitContainers(podSpec *yaml.Node) []*yaml.Node {
	return SequenceAt(podSpec, "initContainers")
}
