package types

import "strconv"

// Severity orders findings from most to least urgent.
type Severity string

const (
	Critical Severity = "CRITICAL"
	High     Severity = "HIGH"
	Medium   Severity = "MEDIUM"
	Low      Severity = "LOW"
	Info     Severity = "INFO"
)

var severityRank = map[Severity]int{
	Critical: 4,
	High:     3,
	Medium:   2,
	Low:      1,
	Info:     0,
}

// Rank returns the numeric order of a severity; higher is worse.
// Unknown severities rank below Info.
func (s Severity) Rank() int {
	if r, ok := severityRank[s]; ok {
		return r
	}
	return -1
}

// AtLeast reports whether s is as severe as min.
func (s Severity) AtLeast(min Severity) bool {
	return s.Rank() >= min.Rank()
}

// Finding codes.
const (
	CodeSyntaxError   = "SYNTAX_ERROR"
	CodeSyntaxHealed  = "SYNTAX_HEALED"
	CodeWriteFail     = "WRITE_FAIL"
	CodeAPIDeprecated = "API_DEPRECATED"
	CodeSecPrivileged = "SEC_PRIVILEGED"
	CodeSecTokenAudit = "SEC_TOKEN_AUDIT"
	CodeRBACWild      = "RBAC_WILD"
	CodeRBACSecret    = "RBAC_SECRET"
	CodeOOMRisk       = "OOM_RISK"
	CodeGhost         = "GHOST"
	CodeNamespace     = "NAMESPACE"
	CodePortGap       = "PORT_GAP"
	CodeIngressPort   = "INGRESS_PORT_MISMATCH"
	CodeIngressOrphan = "INGRESS_ORPHAN"
	CodeHPAOrphan     = "HPA_ORPHAN"
	CodeHPAMissingReq = "HPA_MISSING_REQ"
	CodeVolMissing    = "VOL_MISSING"
)

// Finding represents one diagnostic detected in a manifest. Findings are
// immutable after creation; they are only filtered or aggregated.
type Finding struct {
	Code        string   `json:"code"`
	Severity    Severity `json:"severity"`
	File        string   `json:"file"`
	Line        int      `json:"line"`
	Kind        string   `json:"kind,omitempty"`
	Name        string   `json:"name,omitempty"`
	Namespace   string   `json:"namespace,omitempty"`
	Message     string   `json:"message"`
	AutoFixable bool     `json:"auto_fixable"`
}

// Fingerprint is the baseline-suppression key. It is deliberately not
// line-sensitive: a baseline entry hides every occurrence of the code in
// the file.
func (f Finding) Fingerprint() string {
	return f.File + ":" + f.Code
}

// Key identifies a finding for dedup purposes.
func (f Finding) Key() string {
	return f.File + "|" + strconv.Itoa(f.Line) + "|" + f.Code
}

// Summary provides aggregated results for reporting.
type Summary struct {
	Critical      int `json:"critical"`
	High          int `json:"high"`
	Medium        int `json:"medium"`
	Low           int `json:"low"`
	Info          int `json:"info"`
	FilesAffected int `json:"files_affected"`
	Suppressed    int `json:"suppressed"`
}

// Summarize aggregates findings into a Summary. The Suppressed count is
// filled in by the caller after baseline partitioning.
func Summarize(findings []Finding) Summary {
	summary := Summary{}
	files := make(map[string]bool)

	for _, f := range findings {
		switch f.Severity {
		case Critical:
			summary.Critical++
		case High:
			summary.High++
		case Medium:
			summary.Medium++
		case Low:
			summary.Low++
		case Info:
			summary.Info++
		}
		files[f.File] = true
	}
	summary.FilesAffected = len(files)
	return summary
}

// HealOptions configures a single-file heal pass.
type HealOptions struct {
	// ApplyFixes enables rule-driven tree mutations (API migration,
	// privileged flag reset).
	ApplyFixes bool
	// ApplyDefaults additionally allows injecting default resource limits.
	ApplyDefaults bool
	// DryRun computes the rewrite without persisting it.
	DryRun bool
	// ReturnContent makes Heal return the rewritten bytes.
	ReturnContent bool
}

// ScanOptions configures a corpus scan.
type ScanOptions struct {
	Recursive   bool
	MinSeverity Severity
}

// OutputFormat defines the output format for results.
type OutputFormat string

const (
	FormatHuman OutputFormat = "human"
	FormatJSON  OutputFormat = "json"
)

// ExitCode defines standard exit codes.
type ExitCode int

const (
	ExitOK     ExitCode = 0 // No findings
	ExitMedium ExitCode = 1 // Nothing above Medium
	ExitHigh   ExitCode = 2 // At least one High or Critical
	ExitError  ExitCode = 3 // Error occurred
)

// ExitCodeFor maps findings to the process exit code.
func ExitCodeFor(findings []Finding) ExitCode {
	worst := -1
	for _, f := range findings {
		if r := f.Severity.Rank(); r > worst {
			worst = r
		}
	}
	switch {
	case worst >= High.Rank():
		return ExitHigh
	case worst >= 0:
		return ExitMedium
	default:
		return ExitOK
	}
}
