package rules

import "strings"

// Replacement describes what a deprecated apiVersion should become.
// Either Simple holds a one-to-one replacement, or ByKind maps kinds to
// replacements with a "default" fallback. A value carrying the removed
// sentinel is reported but never auto-applied.
type Replacement struct {
	Simple string
	ByKind map[string]string
}

const removedSentinel = "REMOVED"

// IsRemoved reports whether a resolved replacement marks the API as
// retired with no drop-in successor.
func IsRemoved(v string) bool {
	return strings.HasPrefix(v, removedSentinel)
}

// ForKind resolves the replacement for a kind, falling back to the
// per-table default.
func (r Replacement) ForKind(kind string) (string, bool) {
	if r.Simple != "" {
		return r.Simple, true
	}
	if v, ok := r.ByKind[kind]; ok {
		return v, true
	}
	if v, ok := r.ByKind["default"]; ok {
		return v, true
	}
	return "", false
}

// DefaultDeprecations returns a fresh copy of the bundled deprecation
// table. Callers own the copy; the engine never mutates shared state.
func DefaultDeprecations() map[string]Replacement {
	return map[string]Replacement{
		"extensions/v1beta1": {ByKind: map[string]string{
			"Ingress":           "networking.k8s.io/v1",
			"Deployment":        "apps/v1",
			"DaemonSet":         "apps/v1",
			"ReplicaSet":        "apps/v1",
			"NetworkPolicy":     "networking.k8s.io/v1",
			"PodSecurityPolicy": "REMOVED (use admission controllers)",
			"default":           "apps/v1",
		}},
		"apps/v1beta1":                           {Simple: "apps/v1"},
		"apps/v1beta2":                           {Simple: "apps/v1"},
		"networking.k8s.io/v1beta1":              {Simple: "networking.k8s.io/v1"},
		"policy/v1beta1":                         {Simple: "policy/v1"},
		"rbac.authorization.k8s.io/v1beta1":      {Simple: "rbac.authorization.k8s.io/v1"},
		"autoscaling/v2beta1":                    {Simple: "autoscaling/v2"},
		"autoscaling/v2beta2":                    {Simple: "autoscaling/v2"},
		"admissionregistration.k8s.io/v1beta1":   {Simple: "admissionregistration.k8s.io/v1"},
		"apiextensions.k8s.io/v1beta1":           {Simple: "apiextensions.k8s.io/v1"},
		"storage.k8s.io/v1beta1":                 {Simple: "storage.k8s.io/v1"},
		"scheduling.k8s.io/v1beta1":              {Simple: "scheduling.k8s.io/v1"},
		"node.k8s.io/v1beta1":                    {Simple: "node.k8s.io/v1"},
		"discovery.k8s.io/v1beta1":               {Simple: "discovery.k8s.io/v1"},
	}
}
