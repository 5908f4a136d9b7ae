package graph

import (
	"fmt"
	"strconv"

	"github.com/fixmyk8s/kubecuro/pkg/types"
)

// Audit runs every relationship check against the snapshot. All checks
// are pure functions of the graph; none mutate documents. multiFile
// reports whether the scan covered more than one input file — orphan
// ingress backends are only flagged then, to avoid false positives on
// partial context.
func (g *Graph) Audit(multiFile bool) []types.Finding {
	var findings []types.Finding
	findings = append(findings, g.auditServices()...)
	findings = append(findings, g.auditIngresses(multiFile)...)
	findings = append(findings, g.auditAutoscalers()...)
	findings = append(findings, g.auditVolumeRefs()...)
	return findings
}

// selectorMatches reports whether every selector pair appears in labels.
func selectorMatches(selector, labels map[string]string) bool {
	for k, v := range selector {
		if labels[k] != v {
			return false
		}
	}
	return true
}

func (g *Graph) auditServices() []types.Finding {
	var findings []types.Finding

	for _, svc := range g.services {
		if len(svc.Selector) == 0 {
			continue
		}

		var labelMatches []WorkloadNode
		for _, w := range g.workloads {
			if selectorMatches(svc.Selector, w.Labels) {
				labelMatches = append(labelMatches, w)
			}
		}

		if len(labelMatches) == 0 {
			findings = append(findings, types.Finding{
				Code:      types.CodeGhost,
				Severity:  types.High,
				File:      svc.File,
				Line:      svc.Line,
				Kind:      "Service",
				Name:      svc.Name,
				Namespace: svc.Namespace,
				Message:   fmt.Sprintf("service %q targets labels %v but matches no workload", svc.Name, svc.Selector),
			})
			continue
		}

		var nsMatches []WorkloadNode
		for _, w := range labelMatches {
			if w.Namespace == svc.Namespace {
				nsMatches = append(nsMatches, w)
			}
		}
		if len(nsMatches) == 0 {
			// Labels line up, but services only route within their own
			// namespace.
			findings = append(findings, types.Finding{
				Code:      types.CodeNamespace,
				Severity:  types.Medium,
				File:      svc.File,
				Line:      svc.Line,
				Kind:      "Service",
				Name:      svc.Name,
				Namespace: svc.Namespace,
				Message: fmt.Sprintf("service %q matches workloads, but they live in namespace %q, not %q",
					svc.Name, labelMatches[0].Namespace, svc.Namespace),
			})
			continue
		}

		findings = append(findings, auditServicePorts(svc, nsMatches)...)
	}
	return findings
}

func auditServicePorts(svc ServiceNode, matched []WorkloadNode) []types.Finding {
	var findings []types.Finding

	for _, sp := range svc.Ports {
		target := sp.Target
		if target == "" {
			if sp.Port == 0 {
				continue
			}
			// targetPort defaults to the service port.
			target = strconv.Itoa(sp.Port)
		}
		num, name := parsePortValue(target)

		found := false
		for _, w := range matched {
			if name != "" && w.PortNames[name] {
				found = true
				break
			}
			if num != 0 && w.PortNums[num] {
				found = true
				break
			}
		}
		if !found {
			findings = append(findings, types.Finding{
				Code:      types.CodePortGap,
				Severity:  types.High,
				File:      svc.File,
				Line:      sp.Line,
				Kind:      "Service",
				Name:      svc.Name,
				Namespace: svc.Namespace,
				Message:   fmt.Sprintf("service %q routes to port %q, but no matched workload exposes it", svc.Name, target),
			})
		}
	}
	return findings
}

func (g *Graph) auditIngresses(multiFile bool) []types.Finding {
	var findings []types.Finding

	for _, ing := range g.ingresses {
		for _, backend := range ing.Backends {
			svc, ok := g.findService(backend.Service, ing.Namespace)
			if !ok {
				if multiFile {
					findings = append(findings, types.Finding{
						Code:      types.CodeIngressOrphan,
						Severity:  types.Medium,
						File:      ing.File,
						Line:      backend.Line,
						Kind:      "Ingress",
						Name:      ing.Name,
						Namespace: ing.Namespace,
						Message:   fmt.Sprintf("ingress backend references service %q, which does not exist in namespace %q", backend.Service, ing.Namespace),
					})
				}
				continue
			}

			if backend.PortNum == 0 && backend.PortName == "" {
				continue
			}
			if !servicePortDeclared(svc, backend) {
				declared := backend.PortName
				if declared == "" {
					declared = strconv.Itoa(backend.PortNum)
				}
				findings = append(findings, types.Finding{
					Code:      types.CodeIngressPort,
					Severity:  types.Critical,
					File:      ing.File,
					Line:      backend.Line,
					Kind:      "Ingress",
					Name:      ing.Name,
					Namespace: ing.Namespace,
					Message:   fmt.Sprintf("ingress backend declares port %q on service %q, but the service does not expose it", declared, svc.Name),
				})
			}
		}
	}
	return findings
}

func (g *Graph) findService(name, namespace string) (ServiceNode, bool) {
	for _, svc := range g.services {
		if svc.Name == name && svc.Namespace == namespace {
			return svc, true
		}
	}
	return ServiceNode{}, false
}

func servicePortDeclared(svc ServiceNode, backend IngressBackend) bool {
	for _, sp := range svc.Ports {
		if backend.PortNum != 0 && sp.Port == backend.PortNum {
			return true
		}
		if backend.PortName != "" && sp.Name == backend.PortName {
			return true
		}
	}
	return false
}

func (g *Graph) auditAutoscalers() []types.Finding {
	var findings []types.Finding

	for _, hpa := range g.autoscalers {
		target, ok := g.findWorkload(hpa)
		if !ok {
			findings = append(findings, types.Finding{
				Code:      types.CodeHPAOrphan,
				Severity:  types.Medium,
				File:      hpa.File,
				Line:      hpa.Line,
				Kind:      "HorizontalPodAutoscaler",
				Name:      hpa.Name,
				Namespace: hpa.Namespace,
				Message:   fmt.Sprintf("autoscaler targets %q, which does not exist in namespace %q", hpa.TargetName, hpa.Namespace),
			})
			continue
		}

		for _, metric := range hpa.Metrics {
			for _, container := range target.Containers {
				if _, ok := container.Requests[metric]; ok {
					continue
				}
				findings = append(findings, types.Finding{
					Code:      types.CodeHPAMissingReq,
					Severity:  types.High,
					File:      hpa.File,
					Line:      hpa.Line,
					Kind:      "HorizontalPodAutoscaler",
					Name:      hpa.Name,
					Namespace: hpa.Namespace,
					Message: fmt.Sprintf("autoscaler scales on %s, but container %q of %q declares no %s request",
						metric, container.Name, target.Name, metric),
				})
			}
		}
	}
	return findings
}

func (g *Graph) findWorkload(hpa AutoscalerNode) (WorkloadNode, bool) {
	for _, w := range g.workloads {
		if w.Name != hpa.TargetName || w.Namespace != hpa.Namespace {
			continue
		}
		if hpa.TargetKind != "" && w.Kind != hpa.TargetKind {
			continue
		}
		return w, true
	}
	return WorkloadNode{}, false
}

func (g *Graph) auditVolumeRefs() []types.Finding {
	var findings []types.Finding

	for _, ref := range g.volumeRefs {
		if ref.Optional {
			continue
		}
		if g.configObjs[objKey(ref.Kind, ref.Namespace, ref.Name)] {
			continue
		}
		findings = append(findings, types.Finding{
			Code:      types.CodeVolMissing,
			Severity:  types.Medium,
			File:      ref.File,
			Line:      ref.Line,
			Kind:      ref.Kind,
			Name:      ref.Name,
			Namespace: ref.Namespace,
			Message:   fmt.Sprintf("workload %q mounts %s %q, which does not exist in namespace %q", ref.Owner, ref.Kind, ref.Name, ref.Namespace),
		})
	}
	return findings
}
