package rules

import (
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/fixmyk8s/kubecuro/pkg/document"
)

// Profile classifies a container without resource limits and carries the
// conservative default ceiling injected for it.
type Profile struct {
	Name   string
	CPU    string
	Memory string
}

var (
	profileDummy     = Profile{Name: "dummy", CPU: "10m", Memory: "32Mi"}
	profileSidecar   = Profile{Name: "sidecar", CPU: "100m", Memory: "128Mi"}
	profilePrimary   = Profile{Name: "primary", CPU: "500m", Memory: "512Mi"}
	profileSecondary = Profile{Name: "secondary", CPU: "250m", Memory: "256Mi"}
)

// Idle-placeholder command signatures mark containers that exist only to
// keep a pod alive.
var idleSignatures = []string{
	"sleep",
	"pause",
	"infinity",
	"tail -f /dev/null",
	"while true",
}

// Well-known sidecar image names.
var sidecarSignatures = []string{
	"envoy",
	"istio-proxy",
	"proxyv2",
	"fluent-bit",
	"fluentd",
	"oauth2-proxy",
	"cloud-sql-proxy",
	"linkerd-proxy",
	"nginx-prometheus-exporter",
}

// ClassifyContainer picks the limit profile for a container: idle command
// signature wins, then sidecar image signature, then position (first
// container is the primary workload).
func ClassifyContainer(container *yaml.Node, index int) Profile {
	var parts []string
	if cmd, ok := document.Lookup(container, "command"); ok {
		parts = append(parts, document.StringSlice(cmd)...)
	}
	if args, ok := document.Lookup(container, "args"); ok {
		parts = append(parts, document.StringSlice(args)...)
	}
	cmdText := strings.ToLower(strings.Join(parts, " "))
	if cmdText != "" {
		for _, sig := range idleSignatures {
			if strings.Contains(cmdText, sig) {
				return profileDummy
			}
		}
	}

	if image, ok := document.StringAt(container, "image"); ok {
		image = strings.ToLower(image)
		for _, sig := range sidecarSignatures {
			if strings.Contains(image, sig) {
				return profileSidecar
			}
		}
	}

	if index == 0 {
		return profilePrimary
	}
	return profileSecondary
}
