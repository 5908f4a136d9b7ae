// Package baseline partitions findings into new and already-accepted
// sets using file:code fingerprints, and persists the accepted set as a
// small JSON record.
package baseline

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/fixmyk8s/kubecuro/pkg/types"
)

// Record is the persisted baseline: a project label, when it was taken,
// and the accepted fingerprints. The engine itself only ever consumes and
// produces fingerprint sets; the record shape lives here.
type Record struct {
	Project   string    `json:"project"`
	Timestamp time.Time `json:"timestamp"`
	Issues    []string  `json:"issues"`
}

// FromFindings accepts the current findings into a new record.
func FromFindings(project string, findings []types.Finding) *Record {
	set := make(map[string]bool, len(findings))
	for _, f := range findings {
		set[f.Fingerprint()] = true
	}
	issues := make([]string, 0, len(set))
	for fp := range set {
		issues = append(issues, fp)
	}
	sort.Strings(issues)
	return &Record{
		Project:   project,
		Timestamp: time.Now().UTC(),
		Issues:    issues,
	}
}

// Set returns the accepted fingerprints as a lookup set.
func (r *Record) Set() map[string]bool {
	set := make(map[string]bool, len(r.Issues))
	for _, fp := range r.Issues {
		set[fp] = true
	}
	return set
}

// Load reads a baseline record from disk.
func Load(path string) (*Record, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read baseline: %w", err)
	}
	var r Record
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("parse baseline %s: %w", path, err)
	}
	return &r, nil
}

// Save writes the record via a temp sibling and rename, so a crash never
// leaves a half-written baseline.
func (r *Record) Save(path string) error {
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return err
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("write baseline: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("write baseline: %w", err)
	}
	return nil
}

// Partition splits findings into fresh and suppressed, given the accepted
// fingerprint set. A fingerprint suppresses every occurrence of its code
// in its file; a different code in the same file still reports as fresh.
func Partition(findings []types.Finding, accepted map[string]bool) (fresh, suppressed []types.Finding) {
	for _, f := range findings {
		if accepted[f.Fingerprint()] {
			suppressed = append(suppressed, f)
		} else {
			fresh = append(fresh, f)
		}
	}
	return fresh, suppressed
}
