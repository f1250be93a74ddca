// Package report exports a one-shot snapshot of every dashboard feed as a
// JSON, HTML or Markdown document.
package report

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/aegisai/aegisdash/internal/policy"
	"github.com/aegisai/aegisdash/internal/state"
	"github.com/aegisai/aegisdash/pkg/types"
)

// Severity is the display severity of an urgent alert
type Severity string

const (
	SeverityCritical Severity = "critical"
	SeverityHigh     Severity = "high"
	SeverityLow      Severity = "low"
)

// Alert is a flattened urgent alert
type Alert struct {
	Origin    types.AlertOrigin `json:"origin"`
	Severity  Severity          `json:"severity"`
	RiskScore int               `json:"risk_score"`
	Title     string            `json:"title"`
	Detail    string            `json:"detail"`
	Reason    string            `json:"reason,omitempty"`
}

// Summary holds headline counts
type Summary struct {
	ThreatsDetected   bool `json:"threats_detected"`
	ThreatsBlocked    int  `json:"threats_blocked"`
	Emails            int  `json:"emails"`
	UrgentEmails      int  `json:"urgent_emails"`
	BlockedSenders    int  `json:"blocked_senders"`
	LoginEvents       int  `json:"login_events"`
	UrgentLogins      int  `json:"urgent_logins"`
	Transactions      int  `json:"transactions"`
	FraudTransactions int  `json:"fraud_transactions"`
}

// FeedStatus records when a feed was last applied and why it failed
type FeedStatus struct {
	Endpoint types.Endpoint `json:"endpoint"`
	Updated  time.Time      `json:"updated,omitempty"`
	Error    string         `json:"error,omitempty"`
}

// Report is a point-in-time export of the dashboard state
type Report struct {
	// Metadata
	Title       string    `json:"title"`
	Version     string    `json:"version"`
	GeneratedAt time.Time `json:"generated_at"`
	Backend     string    `json:"backend"`

	Profile    *types.Profile    `json:"profile,omitempty"`
	Thresholds policy.Thresholds `json:"thresholds"`
	Summary    Summary           `json:"summary"`
	Feeds      []FeedStatus      `json:"feeds"`
	Alerts     []Alert           `json:"alerts"`

	Emails       []types.Email           `json:"emails"`
	Blocked      []types.BlockedSender   `json:"blocked_senders"`
	LoginLogs    []types.LoginLogEntry   `json:"login_logs"`
	AccountID    string                  `json:"account_id,omitempty"`
	Transactions []types.BankTransaction `json:"transactions"`
}

// NewReport builds a report from snap
func NewReport(title, backend string, snap state.Snapshot) *Report {
	r := &Report{
		Title:        title,
		Version:      "1.0",
		GeneratedAt:  time.Now(),
		Backend:      backend,
		Thresholds:   snap.Thresholds,
		Alerts:       make([]Alert, 0),
		Emails:       nonNil(snap.Emails),
		Blocked:      nonNil(snap.Blocked),
		LoginLogs:    nonNil(snap.LoginLogs),
		AccountID:    snap.Bank.AccountID,
		Transactions: nonNil(snap.Bank.Transactions),
	}
	if snap.HasProfile {
		p := snap.Profile
		r.Profile = &p
	}

	for _, ep := range types.Endpoints() {
		fs := FeedStatus{Endpoint: ep}
		if at, ok := snap.Updated[ep]; ok {
			fs.Updated = at
		}
		r.Feeds = append(r.Feeds, fs)
	}

	for _, a := range snap.UrgentAlerts() {
		r.Alerts = append(r.Alerts, flatten(a, snap.Thresholds))
	}

	r.Summary = Summary{
		ThreatsDetected:   snap.ThreatsDetected(),
		ThreatsBlocked:    snap.Stats.ThreatsBlocked,
		Emails:            len(snap.Emails),
		UrgentEmails:      len(snap.Urgent.Emails),
		BlockedSenders:    len(snap.Blocked),
		LoginEvents:       len(snap.LoginLogs),
		UrgentLogins:      len(snap.Urgent.Logs),
		Transactions:      len(snap.Bank.Transactions),
		FraudTransactions: len(snap.Urgent.Txns),
	}
	return r
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}

func flatten(a types.UrgentAlert, th policy.Thresholds) Alert {
	out := Alert{Origin: a.Origin, RiskScore: a.RiskScore(), Severity: SeverityCritical}

	switch a.Origin {
	case types.OriginEmail:
		switch th.EmailTier(a.Email.RiskScore) {
		case policy.TierCritical:
			out.Severity = SeverityCritical
		case policy.TierHigh:
			out.Severity = SeverityHigh
		default:
			out.Severity = SeverityLow
		}
		out.Title = a.Email.Subject
		out.Detail = "From: " + a.Email.Sender
		out.Reason = a.Email.RiskReason
	case types.OriginNetwork:
		out.Title = "Urgent Network Alert: " + a.Log.Category
		out.Detail = "Source IP: " + a.Log.IP
	case types.OriginBank:
		out.Title = "Bank Fraud Detected: " + a.Txn.AccountID
		out.Detail = fmt.Sprintf("Merchant: %s | Amount: $%s", a.Txn.Merchant, a.Txn.Amount.StringFixed(2))
		out.Reason = a.Txn.Reason
	}
	return out
}

// SetFeedError records a failed fetch for ep
func (r *Report) SetFeedError(ep types.Endpoint, err error) {
	for i := range r.Feeds {
		if r.Feeds[i].Endpoint == ep {
			r.Feeds[i].Error = err.Error()
			return
		}
	}
	r.Feeds = append(r.Feeds, FeedStatus{Endpoint: ep, Error: err.Error()})
}

// Failed returns the feeds that could not be fetched
func (r *Report) Failed() []FeedStatus {
	var failed []FeedStatus
	for _, f := range r.Feeds {
		if f.Error != "" {
			failed = append(failed, f)
		}
	}
	return failed
}

// FilterBySeverity returns alerts with the given severity
func (r *Report) FilterBySeverity(severity Severity) []Alert {
	var filtered []Alert
	for _, a := range r.Alerts {
		if a.Severity == severity {
			filtered = append(filtered, a)
		}
	}
	return filtered
}

// FilterByOrigin returns alerts from the given feed
func (r *Report) FilterByOrigin(origin types.AlertOrigin) []Alert {
	var filtered []Alert
	for _, a := range r.Alerts {
		if a.Origin == origin {
			filtered = append(filtered, a)
		}
	}
	return filtered
}

// Generator is the interface for report generators
type Generator interface {
	Generate(report *Report, w io.Writer) error
	Extension() string
}

// Manager manages report generation
type Manager struct {
	generators map[string]Generator
	outputDir  string
}

// NewManager creates a new report manager
func NewManager(outputDir string) *Manager {
	m := &Manager{
		generators: make(map[string]Generator),
		outputDir:  outputDir,
	}

	// Register default generators
	m.RegisterGenerator("json", &JSONGenerator{Indent: true})
	m.RegisterGenerator("html", NewHTMLGenerator())
	m.RegisterGenerator("markdown", &MarkdownGenerator{})
	m.RegisterGenerator("md", &MarkdownGenerator{})

	return m
}

// RegisterGenerator registers a generator
func (m *Manager) RegisterGenerator(format string, gen Generator) {
	m.generators[format] = gen
}

// GetGenerator returns a generator by format
func (m *Manager) GetGenerator(format string) (Generator, bool) {
	gen, ok := m.generators[format]
	return gen, ok
}

// Formats lists the registered format names
func (m *Manager) Formats() []string {
	formats := make([]string, 0, len(m.generators))
	for f := range m.generators {
		formats = append(formats, f)
	}
	sort.Strings(formats)
	return formats
}

// Generate writes the report in the specified format to a timestamped
// file in the output directory
func (m *Manager) Generate(report *Report, format string) (string, error) {
	gen, ok := m.generators[format]
	if !ok {
		return "", fmt.Errorf("unknown report format: %s", format)
	}

	if err := os.MkdirAll(m.outputDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create output directory: %w", err)
	}

	timestamp := report.GeneratedAt.Format("20060102_150405")
	path := filepath.Join(m.outputDir, fmt.Sprintf("snapshot_%s.%s", timestamp, gen.Extension()))

	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("failed to create report file: %w", err)
	}
	defer f.Close()

	if err := gen.Generate(report, f); err != nil {
		return "", fmt.Errorf("failed to generate report: %w", err)
	}

	return path, nil
}

// GenerateAll generates reports in all registered formats
func (m *Manager) GenerateAll(report *Report) ([]string, error) {
	var paths []string
	seen := make(map[string]bool)

	for _, format := range m.Formats() {
		gen := m.generators[format]
		// md and markdown share an extension
		ext := gen.Extension()
		if seen[ext] {
			continue
		}
		seen[ext] = true

		path, err := m.Generate(report, format)
		if err != nil {
			return paths, err
		}
		paths = append(paths, path)
	}

	return paths, nil
}

// WriteToWriter generates a report and writes to the given writer
func (m *Manager) WriteToWriter(report *Report, format string, w io.Writer) error {
	gen, ok := m.generators[format]
	if !ok {
		return fmt.Errorf("unknown report format: %s", format)
	}

	return gen.Generate(report, w)
}
