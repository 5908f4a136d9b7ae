// Package rules holds the per-document rule catalog: deprecation
// detection, security posture checks and resource-limit heuristics.
package rules

import (
	"fmt"
	"strconv"
	"strings"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/fixmyk8s/kubecuro/pkg/document"
	"github.com/fixmyk8s/kubecuro/pkg/types"
)

// Check inspects one decoded document and yields zero or more findings.
type Check func(doc *document.Document) []types.Finding

// Catalog is the versioned table of rule evaluators. The deprecation
// table is passed in at construction and never shared mutably, so
// concurrent scans cannot interfere.
type Catalog struct {
	deprecations map[string]Replacement
	log          *zap.Logger
}

// NewCatalog builds a catalog. A nil deprecation table selects the
// bundled defaults; a nil logger discards diagnostics.
func NewCatalog(deprecations map[string]Replacement, log *zap.Logger) *Catalog {
	if deprecations == nil {
		deprecations = DefaultDeprecations()
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Catalog{deprecations: deprecations, log: log}
}

// Evaluate runs every check against one document. Checks are isolated: a
// panic in one check is recovered and logged, and the remaining checks
// still run.
func (c *Catalog) Evaluate(doc *document.Document) []types.Finding {
	checks := []struct {
		name string
		fn   Check
	}{
		{"deprecated-api", c.checkDeprecatedAPI},
		{"privileged-container", c.checkPrivileged},
		{"token-automount", c.checkTokenAutomount},
		{"rbac", c.checkRBAC},
		{"resource-limits", c.checkResourceLimits},
	}

	var findings []types.Finding
	for _, check := range checks {
		findings = append(findings, c.runIsolated(check.name, check.fn, doc)...)
	}
	return findings
}

func (c *Catalog) runIsolated(name string, fn Check, doc *document.Document) (out []types.Finding) {
	defer func() {
		if r := recover(); r != nil {
			c.log.Warn("rule evaluation failed",
				zap.String("rule", name),
				zap.String("file", doc.OriginFile),
				zap.String("kind", doc.Kind),
				zap.Any("panic", r))
			out = nil
		}
	}()
	return fn(doc)
}

func (c *Catalog) checkDeprecatedAPI(doc *document.Document) []types.Finding {
	rep, ok := c.deprecations[doc.APIVersion]
	if !ok {
		return nil
	}
	replacement, ok := rep.ForKind(doc.Kind)
	if !ok {
		return nil
	}

	msg := fmt.Sprintf("%s uses deprecated apiVersion %q; upgrade to %q", doc.Kind, doc.APIVersion, replacement)
	fixable := true
	if IsRemoved(replacement) {
		msg = fmt.Sprintf("%s uses retired apiVersion %q: %s", doc.Kind, doc.APIVersion, replacement)
		fixable = false
	}

	return []types.Finding{{
		Code:        types.CodeAPIDeprecated,
		Severity:    types.Medium,
		File:        doc.OriginFile,
		Line:        doc.Line("apiVersion"),
		Kind:        doc.Kind,
		Name:        doc.Name,
		Namespace:   doc.Namespace,
		Message:     msg,
		AutoFixable: fixable,
	}}
}

func (c *Catalog) checkPrivileged(doc *document.Document) []types.Finding {
	podSpec, ok := doc.PodSpec()
	if !ok {
		return nil
	}

	var findings []types.Finding
	for _, container := range allContainers(podSpec) {
		flag, ok := document.Lookup(container, "securityContext", "privileged")
		if !ok {
			continue
		}
		if b, err := strconv.ParseBool(flag.Value); err != nil || !b {
			continue
		}
		name, _ := document.StringAt(container, "name")
		findings = append(findings, types.Finding{
			Code:        types.CodeSecPrivileged,
			Severity:    types.High,
			File:        doc.OriginFile,
			Line:        doc.LineOf(flag),
			Kind:        doc.Kind,
			Name:        doc.Name,
			Namespace:   doc.Namespace,
			Message:     fmt.Sprintf("container %q runs in privileged mode", name),
			AutoFixable: true,
		})
	}
	return findings
}

func (c *Catalog) checkTokenAutomount(doc *document.Document) []types.Finding {
	if !document.IsWorkloadKind(doc.Kind) {
		return nil
	}
	podSpec, ok := doc.PodSpec()
	if !ok {
		return nil
	}
	if v, ok := document.BoolAt(podSpec, "automountServiceAccountToken"); ok && !v {
		return nil
	}

	// Left to the operator: disabling the token can break workloads that
	// talk to the API server, so this is never auto-fixed.
	return []types.Finding{{
		Code:      types.CodeSecTokenAudit,
		Severity:  types.Low,
		File:      doc.OriginFile,
		Line:      doc.LineOf(podSpec),
		Kind:      doc.Kind,
		Name:      doc.Name,
		Namespace: doc.Namespace,
		Message:   "service account token automount is not explicitly disabled",
	}}
}

var secretReadVerbs = map[string]bool{"*": true, "get": true, "list": true, "watch": true}

func (c *Catalog) checkRBAC(doc *document.Document) []types.Finding {
	if doc.Kind != "Role" && doc.Kind != "ClusterRole" {
		return nil
	}

	var findings []types.Finding
	for _, rule := range document.SequenceAt(doc.Root(), "rules") {
		verbs := stringSet(document.SequenceAt(rule, "verbs"))
		resources := stringSet(document.SequenceAt(rule, "resources"))

		if verbs["*"] && resources["*"] {
			findings = append(findings, types.Finding{
				Code:      types.CodeRBACWild,
				Severity:  types.High,
				File:      doc.OriginFile,
				Line:      doc.LineOf(rule),
				Kind:      doc.Kind,
				Name:      doc.Name,
				Namespace: doc.Namespace,
				Message:   "rule grants wildcard verbs on wildcard resources",
			})
		}

		if resources["secrets"] {
			for verb := range verbs {
				if secretReadVerbs[verb] {
					findings = append(findings, types.Finding{
						Code:      types.CodeRBACSecret,
						Severity:  types.Medium,
						File:      doc.OriginFile,
						Line:      doc.LineOf(rule),
						Kind:      doc.Kind,
						Name:      doc.Name,
						Namespace: doc.Namespace,
						Message:   "rule grants read access to secrets",
					})
					break
				}
			}
		}
	}
	return findings
}

func (c *Catalog) checkResourceLimits(doc *document.Document) []types.Finding {
	podSpec, ok := doc.PodSpec()
	if !ok {
		return nil
	}

	var findings []types.Finding
	for i, container := range document.Containers(podSpec) {
		if hasLimits(container) {
			continue
		}
		profile := ClassifyContainer(container, i)
		name, _ := document.StringAt(container, "name")
		findings = append(findings, types.Finding{
			Code:      types.CodeOOMRisk,
			Severity:  types.High,
			File:      doc.OriginFile,
			Line:      doc.LineOf(container),
			Kind:      doc.Kind,
			Name:      doc.Name,
			Namespace: doc.Namespace,
			Message: fmt.Sprintf("container %q has no resource limits (%s profile suggests cpu=%s memory=%s)",
				name, profile.Name, profile.CPU, profile.Memory),
			AutoFixable: true,
		})
	}
	return findings
}

func hasLimits(container *yaml.Node) bool {
	limits, ok := document.Lookup(container, "resources", "limits")
	return ok && limits.Kind == yaml.MappingNode && len(limits.Content) > 0
}

func allContainers(podSpec *yaml.Node) []*yaml.Node {
	return append(document.Containers(podSpec), document.InitContainers(podSpec)...)
}

func stringSet(nodes []*yaml.Node) map[string]bool {
	set := make(map[string]bool, len(nodes))
	for _, n := range nodes {
		set[strings.TrimSpace(n.Value)] = true
	}
	return set
}
