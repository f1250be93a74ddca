package report

import (
	"fmt"
	"io"
	"strings"
)

// MarkdownGenerator generates Markdown reports
type MarkdownGenerator struct {
	// IncludeFeeds appends every feed table, not just the alerts
	IncludeFeeds bool
}

// Generate generates a Markdown report
func (g *MarkdownGenerator) Generate(report *Report, w io.Writer) error {
	var b strings.Builder

	fmt.Fprintf(&b, "# %s\n\n", report.Title)
	fmt.Fprintf(&b, "Generated %s from `%s`\n\n", report.GeneratedAt.Format("2006-01-02 15:04:05"), report.Backend)

	status := "✅ System Protected"
	if report.Summary.ThreatsDetected {
		status = "🚨 Threats Detected"
	}
	fmt.Fprintf(&b, "**%s** (%d threats blocked)\n\n", status, report.Summary.ThreatsBlocked)

	b.WriteString("## Summary\n\n")
	b.WriteString("| Feed | Total | Urgent |\n|---|---|---|\n")
	fmt.Fprintf(&b, "| Emails | %d | %d |\n", report.Summary.Emails, report.Summary.UrgentEmails)
	fmt.Fprintf(&b, "| Login events | %d | %d |\n", report.Summary.LoginEvents, report.Summary.UrgentLogins)
	fmt.Fprintf(&b, "| Transactions | %d | %d |\n", report.Summary.Transactions, report.Summary.FraudTransactions)
	fmt.Fprintf(&b, "| Blocked senders | %d | - |\n\n", report.Summary.BlockedSenders)

	if failed := report.Failed(); len(failed) > 0 {
		b.WriteString("## Failed Feeds\n\n")
		for _, f := range failed {
			fmt.Fprintf(&b, "- `%s`: %s\n", f.Endpoint, f.Error)
		}
		b.WriteString("\n")
	}

	b.WriteString("## Urgent Alerts\n\n")
	if len(report.Alerts) == 0 {
		b.WriteString("No urgent alerts.\n")
	}
	for _, a := range report.Alerts {
		fmt.Fprintf(&b, "- %s **%d%%** %s (%s)", severityEmoji(a.Severity), a.RiskScore, escape(a.Title), escape(a.Detail))
		if a.Reason != "" {
			fmt.Fprintf(&b, ": %s", escape(a.Reason))
		}
		b.WriteString("\n")
	}

	if g.IncludeFeeds {
		b.WriteString("\n## Emails\n\n| Risk | Subject | Sender | Category |\n|---|---|---|---|\n")
		for _, e := range report.Emails {
			fmt.Fprintf(&b, "| %d%% | %s | %s | %s |\n", e.RiskScore, escape(truncate(e.Subject, 60)), escape(e.Sender), escape(e.Category))
		}

		b.WriteString("\n## Blocked Senders\n\n| Sender | Reason |\n|---|---|\n")
		for _, s := range report.Blocked {
			fmt.Fprintf(&b, "| %s | %s |\n", escape(s.Email), escape(s.Reason))
		}

		b.WriteString("\n## Login Logs\n\n| Time | Source IP | Category | Risk |\n|---|---|---|---|\n")
		for _, l := range report.LoginLogs {
			fmt.Fprintf(&b, "| %s | %s | %s | %d |\n", escape(l.Timestamp), l.IP, escape(l.Category), l.RiskScore)
		}

		b.WriteString("\n## Bank Transactions\n\n| Date | Merchant | Amount | Fraud |\n|---|---|---|---|\n")
		for _, tx := range report.Transactions {
			fmt.Fprintf(&b, "| %s | %s | $%s | %t |\n", escape(tx.Date), escape(tx.Merchant), tx.Amount.StringFixed(2), tx.IsFraud)
		}
	}

	_, err := io.WriteString(w, b.String())
	return err
}

// Extension returns the file extension
func (g *MarkdownGenerator) Extension() string {
	return "md"
}

func severityEmoji(s Severity) string {
	switch s {
	case SeverityCritical:
		return "🔴"
	case SeverityHigh:
		return "🟠"
	default:
		return "🟢"
	}
}

var mdEscaper = strings.NewReplacer("|", `\|`, "\n", " ", "*", `\*`, "_", `\_`)

func escape(s string) string {
	return mdEscaper.Replace(s)
}
