package rules

import (
	"strconv"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/fixmyk8s/kubecuro/pkg/document"
	"github.com/fixmyk8s/kubecuro/pkg/types"
)

// ApplyFixes mutates the document tree for every auto-fixable rule that
// currently fires and returns the codes it applied. Defaults injection
// (resource limits) only runs when applyDefaults is set; API migration
// and privileged-flag resets always run. Fixers share the checks'
// isolation guarantee.
func (c *Catalog) ApplyFixes(doc *document.Document, applyDefaults bool) []string {
	type fixer struct {
		name    string
		code    string
		enabled bool
		fn      func(*document.Document) bool
	}
	fixers := []fixer{
		{"migrate-api", types.CodeAPIDeprecated, true, c.fixDeprecatedAPI},
		{"drop-privileged", types.CodeSecPrivileged, true, c.fixPrivileged},
		{"inject-limits", types.CodeOOMRisk, applyDefaults, c.fixResourceLimits},
	}

	var applied []string
	for _, f := range fixers {
		if !f.enabled {
			continue
		}
		if c.runFixerIsolated(f.name, f.fn, doc) {
			applied = append(applied, f.code)
		}
	}
	if len(applied) > 0 {
		doc.Refresh()
	}
	return applied
}

func (c *Catalog) runFixerIsolated(name string, fn func(*document.Document) bool, doc *document.Document) (changed bool) {
	defer func() {
		if r := recover(); r != nil {
			c.log.Warn("fixer failed",
				zap.String("fixer", name),
				zap.String("file", doc.OriginFile),
				zap.Any("panic", r))
			changed = false
		}
	}()
	return fn(doc)
}

// fixDeprecatedAPI overwrites the apiVersion field with its replacement.
// Removed APIs are never rewritten; migrating those needs a manifest
// rework, not a field swap.
func (c *Catalog) fixDeprecatedAPI(doc *document.Document) bool {
	rep, ok := c.deprecations[doc.APIVersion]
	if !ok {
		return false
	}
	replacement, ok := rep.ForKind(doc.Kind)
	if !ok || IsRemoved(replacement) {
		return false
	}
	node, ok := document.MapValue(doc.Root(), "apiVersion")
	if !ok {
		return false
	}
	document.SetScalar(node, replacement)
	return true
}

func (c *Catalog) fixPrivileged(doc *document.Document) bool {
	podSpec, ok := doc.PodSpec()
	if !ok {
		return false
	}
	changed := false
	for _, container := range allContainers(podSpec) {
		flag, ok := document.Lookup(container, "securityContext", "privileged")
		if !ok {
			continue
		}
		if b, err := strconv.ParseBool(flag.Value); err != nil || !b {
			continue
		}
		flag.Value = "false"
		flag.Tag = "!!bool"
		changed = true
	}
	return changed
}

// fixResourceLimits injects the profile default limits into containers
// that lack them. The limit is raised to the container's own request when
// the request exceeds the default: a limit must never be below its own
// request.
func (c *Catalog) fixResourceLimits(doc *document.Document) bool {
	podSpec, ok := doc.PodSpec()
	if !ok {
		return false
	}
	changed := false
	for i, container := range document.Containers(podSpec) {
		if hasLimits(container) {
			continue
		}
		profile := ClassifyContainer(container, i)

		cpu, memory := profile.CPU, profile.Memory
		if req, ok := document.StringAt(container, "resources", "requests", "cpu"); ok && cpuExceeds(req, cpu) {
			cpu = req
		}
		if req, ok := document.StringAt(container, "resources", "requests", "memory"); ok && memoryExceeds(req, memory) {
			memory = req
		}

		resources, ok := document.MapValue(container, "resources")
		if !ok || resources.Kind != yaml.MappingNode {
			resources = &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
			document.SetMapValue(container, "resources", resources)
		}
		document.SetMapValue(resources, "limits", document.NewMapping("cpu", cpu, "memory", memory))
		changed = true
	}
	return changed
}
