// Package graph indexes decoded documents by role and runs the
// cross-resource consistency checks that need the whole corpus at once.
package graph

import (
	"strconv"

	"gopkg.in/yaml.v3"

	"github.com/fixmyk8s/kubecuro/pkg/document"
)

// Node projections hold only the fields cross-resource matching needs.
// They are rebuilt fully on every scan and never mutated afterwards.

// WorkloadNode projects a pod-carrying resource.
type WorkloadNode struct {
	Name      string
	Kind      string
	Namespace string
	File      string
	Line      int
	Labels    map[string]string
	PortNames map[string]bool
	PortNums  map[int]bool
	// Containers in declaration order, for autoscaler request checks.
	Containers []ContainerNode
}

// ContainerNode projects one container of a workload.
type ContainerNode struct {
	Name     string
	Requests map[string]string
}

// ServicePort projects one exposed service port.
type ServicePort struct {
	Name string
	Port int
	// Target is the declared targetPort, numeric or named; empty when the
	// service defaults it to Port.
	Target string
	Line   int
}

// ServiceNode projects a Service with a selector.
type ServiceNode struct {
	Name      string
	Namespace string
	File      string
	Line      int
	Selector  map[string]string
	Ports     []ServicePort
}

// IngressBackend projects one router backend reference.
type IngressBackend struct {
	Service  string
	PortNum  int
	PortName string
	Line     int
}

// IngressNode projects an Ingress and its backend references.
type IngressNode struct {
	Name      string
	Namespace string
	File      string
	Line      int
	Backends  []IngressBackend
}

// AutoscalerNode projects a HorizontalPodAutoscaler.
type AutoscalerNode struct {
	Name       string
	Namespace  string
	File       string
	Line       int
	TargetKind string
	TargetName string
	Metrics    []string
}

// VolumeRef projects one config map or secret volume reference.
type VolumeRef struct {
	Kind      string // ConfigMap or Secret
	Name      string
	Namespace string
	Owner     string
	File      string
	Line      int
	Optional  bool
}

// PolicyNode projects a NetworkPolicy for role indexing.
type PolicyNode struct {
	Name      string
	Namespace string
	File      string
	Line      int
}

// Graph is a read-only snapshot of the corpus, indexed by role.
type Graph struct {
	workloads   []WorkloadNode
	services    []ServiceNode
	ingresses   []IngressNode
	autoscalers []AutoscalerNode
	volumeRefs  []VolumeRef
	policies    []PolicyNode
	configObjs  map[string]bool // kind/namespace/name
	files       map[string]bool
}

// Build constructs the snapshot from every successfully decoded document.
// It reads post-fix trees, so healing-driven identity changes are already
// reflected.
func Build(docs []*document.Document) *Graph {
	g := &Graph{
		configObjs: make(map[string]bool),
		files:      make(map[string]bool),
	}
	for _, doc := range docs {
		if doc == nil {
			continue
		}
		g.files[doc.OriginFile] = true
		switch {
		case document.IsWorkloadKind(doc.Kind):
			g.addWorkload(doc)
		case doc.Kind == "Service":
			g.addService(doc)
		case doc.Kind == "Ingress":
			g.addIngress(doc)
		case doc.Kind == "HorizontalPodAutoscaler":
			g.addAutoscaler(doc)
		case doc.Kind == "ConfigMap" || doc.Kind == "Secret":
			g.configObjs[objKey(doc.Kind, doc.Namespace, doc.Name)] = true
		case doc.Kind == "NetworkPolicy":
			g.policies = append(g.policies, PolicyNode{
				Name:      doc.Name,
				Namespace: doc.Namespace,
				File:      doc.OriginFile,
				Line:      doc.StartLine,
			})
		}
	}
	return g
}

// FileCount reports how many distinct files fed the snapshot.
func (g *Graph) FileCount() int { return len(g.files) }

func objKey(kind, namespace, name string) string {
	return kind + "/" + namespace + "/" + name
}

func (g *Graph) addWorkload(doc *document.Document) {
	node := WorkloadNode{
		Name:      doc.Name,
		Kind:      doc.Kind,
		Namespace: doc.Namespace,
		File:      doc.OriginFile,
		Line:      doc.StartLine,
		Labels:    doc.PodTemplateLabels(),
		PortNames: make(map[string]bool),
		PortNums:  make(map[int]bool),
	}

	podSpec, ok := doc.PodSpec()
	if ok {
		for _, container := range document.Containers(podSpec) {
			cn := ContainerNode{Requests: make(map[string]string)}
			cn.Name, _ = document.StringAt(container, "name")
			if reqs, ok := document.Lookup(container, "resources", "requests"); ok {
				cn.Requests = document.StringMap(reqs)
			}
			node.Containers = append(node.Containers, cn)

			for _, port := range document.SequenceAt(container, "ports") {
				if num, ok := document.IntAt(port, "containerPort"); ok {
					node.PortNums[num] = true
				}
				if name, ok := document.StringAt(port, "name"); ok {
					node.PortNames[name] = true
				}
			}
		}
		g.collectVolumeRefs(doc, podSpec)
	}

	g.workloads = append(g.workloads, node)
}

func (g *Graph) addService(doc *document.Document) {
	node := ServiceNode{
		Name:      doc.Name,
		Namespace: doc.Namespace,
		File:      doc.OriginFile,
		Line:      doc.StartLine,
	}
	// Headless/external services keep an empty selector; they still get
	// indexed so ingress backends can resolve them, but the ghost check
	// skips them.
	if selector, ok := document.Lookup(doc.Root(), "spec", "selector"); ok {
		node.Selector = document.StringMap(selector)
	}
	for _, port := range document.SequenceAt(doc.Root(), "spec", "ports") {
		sp := ServicePort{Line: doc.LineOf(port)}
		sp.Name, _ = document.StringAt(port, "name")
		sp.Port, _ = document.IntAt(port, "port")
		if target, ok := document.StringAt(port, "targetPort"); ok {
			sp.Target = target
		}
		node.Ports = append(node.Ports, sp)
	}
	g.services = append(g.services, node)
}

func (g *Graph) addIngress(doc *document.Document) {
	node := IngressNode{
		Name:      doc.Name,
		Namespace: doc.Namespace,
		File:      doc.OriginFile,
		Line:      doc.StartLine,
	}

	for _, rule := range document.SequenceAt(doc.Root(), "spec", "rules") {
		for _, path := range document.SequenceAt(rule, "http", "paths") {
			if b, ok := document.Lookup(path, "backend"); ok {
				if backend, ok := parseBackend(doc, b); ok {
					node.Backends = append(node.Backends, backend)
				}
			}
		}
	}
	if b, ok := document.Lookup(doc.Root(), "spec", "defaultBackend"); ok {
		if backend, ok := parseBackend(doc, b); ok {
			node.Backends = append(node.Backends, backend)
		}
	}

	g.ingresses = append(g.ingresses, node)
}

// parseBackend handles both networking.k8s.io/v1 backends
// (service.name/service.port.number|name) and the legacy
// serviceName/servicePort shape.
func parseBackend(doc *document.Document, b *yaml.Node) (IngressBackend, bool) {
	backend := IngressBackend{Line: doc.LineOf(b)}

	if name, ok := document.StringAt(b, "service", "name"); ok {
		backend.Service = name
		if num, ok := document.IntAt(b, "service", "port", "number"); ok {
			backend.PortNum = num
		}
		if pname, ok := document.StringAt(b, "service", "port", "name"); ok {
			backend.PortName = pname
		}
		return backend, true
	}

	if name, ok := document.StringAt(b, "serviceName"); ok {
		backend.Service = name
		if raw, ok := document.StringAt(b, "servicePort"); ok {
			backend.PortNum, backend.PortName = parsePortValue(raw)
		}
		return backend, true
	}

	return backend, false
}

func (g *Graph) addAutoscaler(doc *document.Document) {
	node := AutoscalerNode{
		Name:      doc.Name,
		Namespace: doc.Namespace,
		File:      doc.OriginFile,
		Line:      doc.StartLine,
	}
	node.TargetKind, _ = document.StringAt(doc.Root(), "spec", "scaleTargetRef", "kind")
	node.TargetName, _ = document.StringAt(doc.Root(), "spec", "scaleTargetRef", "name")

	seen := make(map[string]bool)
	// Legacy autoscaling/v1 shorthand implies a cpu resource metric.
	if _, ok := document.StringAt(doc.Root(), "spec", "targetCPUUtilizationPercentage"); ok {
		seen["cpu"] = true
		node.Metrics = append(node.Metrics, "cpu")
	}
	for _, metric := range document.SequenceAt(doc.Root(), "spec", "metrics") {
		if t, _ := document.StringAt(metric, "type"); t != "Resource" {
			continue
		}
		name, ok := document.StringAt(metric, "resource", "name")
		if !ok || seen[name] {
			continue
		}
		seen[name] = true
		node.Metrics = append(node.Metrics, name)
	}

	g.autoscalers = append(g.autoscalers, node)
}

func (g *Graph) collectVolumeRefs(doc *document.Document, podSpec *yaml.Node) {
	for _, volume := range document.SequenceAt(podSpec, "volumes") {
		if cm, ok := document.Lookup(volume, "configMap"); ok {
			if name, ok := document.StringAt(cm, "name"); ok {
				optional, _ := document.BoolAt(cm, "optional")
				g.volumeRefs = append(g.volumeRefs, VolumeRef{
					Kind:      "ConfigMap",
					Name:      name,
					Namespace: doc.Namespace,
					Owner:     doc.Name,
					File:      doc.OriginFile,
					Line:      doc.LineOf(volume),
					Optional:  optional,
				})
			}
		}
		if sec, ok := document.Lookup(volume, "secret"); ok {
			if name, ok := document.StringAt(sec, "secretName"); ok {
				optional, _ := document.BoolAt(sec, "optional")
				g.volumeRefs = append(g.volumeRefs, VolumeRef{
					Kind:      "Secret",
					Name:      name,
					Namespace: doc.Namespace,
					Owner:     doc.Name,
					File:      doc.OriginFile,
					Line:      doc.LineOf(volume),
					Optional:  optional,
				})
			}
		}
	}
}

// parsePortValue splits a declared port into numeric or named form.
func parsePortValue(v string) (int, string) {
	if n, err := strconv.Atoi(v); err == nil {
		return n, ""
	}
	return 0, v
}
