package report

import (
	"fmt"
	"html/template"
	"io"
	"time"

	"github.com/aegisai/aegisdash/pkg/types"
	"github.com/shopspring/decimal"
)

// HTMLGenerator generates HTML reports
type HTMLGenerator struct {
	template *template.Template
}

func templateFuncs() template.FuncMap {
	return template.FuncMap{
		"severityClass": func(s Severity) string {
			switch s {
			case SeverityCritical, SeverityHigh:
				return string(s)
			default:
				return "low"
			}
		},
		"formatTime": func(t time.Time) string {
			if t.IsZero() {
				return "never"
			}
			return t.Format("2006-01-02 15:04:05")
		},
		"blockedAt": func(ts types.Timestamp) string {
			if ts.IsZero() {
				return "unknown"
			}
			return ts.Format("2006-01-02 15:04:05")
		},
		"amount": func(d decimal.Decimal) string {
			return d.StringFixed(2)
		},
		"truncate": truncate,
	}
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}

// NewHTMLGenerator creates a new HTML generator
func NewHTMLGenerator() *HTMLGenerator {
	tmpl := template.Must(template.New("report").Funcs(templateFuncs()).Parse(htmlTemplate))
	return &HTMLGenerator{template: tmpl}
}

// CustomHTMLGenerator creates a generator with a custom template
func CustomHTMLGenerator(templateStr string) (*HTMLGenerator, error) {
	tmpl, err := template.New("report").Funcs(templateFuncs()).Parse(templateStr)
	if err != nil {
		return nil, fmt.Errorf("failed to parse template: %w", err)
	}
	return &HTMLGenerator{template: tmpl}, nil
}

// Generate generates an HTML report
func (g *HTMLGenerator) Generate(report *Report, w io.Writer) error {
	return g.template.Execute(w, report)
}

// Extension returns the file extension
func (g *HTMLGenerator) Extension() string {
	return "html"
}

const htmlTemplate = `<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="UTF-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
    <title>{{.Title}} - AegisAI Snapshot</title>
    <style>
        :root {
            --bg-dark: #0a0a0f;
            --bg-panel: #12121a;
            --bg-header: #16213E;
            --text-primary: #E0E0E0;
            --text-dim: #808090;
            --cyan: #00d4ff;
            --green: #10b981;
            --orange: #f59e0b;
            --red: #ef4444;
        }

        * {
            margin: 0;
            padding: 0;
            box-sizing: border-box;
        }

        body {
            font-family: 'Segoe UI', 'Roboto', 'Helvetica Neue', sans-serif;
            background: var(--bg-dark);
            color: var(--text-primary);
            line-height: 1.6;
        }

        .container {
            max-width: 1200px;
            margin: 0 auto;
            padding: 20px;
        }

        header {
            background: var(--bg-header);
            padding: 30px;
            border-radius: 10px;
            margin-bottom: 30px;
            border: 1px solid var(--cyan);
        }

        h1 {
            color: var(--cyan);
            margin-bottom: 10px;
        }

        h2 {
            color: var(--cyan);
            margin: 30px 0 15px;
        }

        .meta {
            color: var(--text-dim);
            font-size: 0.9em;
        }

        .status-threat {
            color: var(--red);
        }

        .status-safe {
            color: var(--green);
        }

        .summary {
            display: grid;
            grid-template-columns: repeat(auto-fit, minmax(160px, 1fr));
            gap: 15px;
        }

        .card {
            background: var(--bg-panel);
            padding: 20px;
            border-radius: 10px;
            text-align: center;
        }

        .card .value {
            font-size: 2em;
            font-weight: bold;
        }

        .card .label {
            color: var(--text-dim);
        }

        .alert {
            background: var(--bg-panel);
            border-left: 4px solid var(--orange);
            padding: 15px 20px;
            margin-bottom: 10px;
            border-radius: 6px;
        }

        .alert.critical {
            border-left-color: var(--red);
        }

        .alert.low {
            border-left-color: var(--green);
        }

        .score {
            font-family: monospace;
            font-weight: bold;
        }

        table {
            width: 100%;
            border-collapse: collapse;
            background: var(--bg-panel);
        }

        th, td {
            text-align: left;
            padding: 8px 12px;
            border-bottom: 1px solid #222;
            font-size: 0.9em;
        }

        th {
            color: var(--text-dim);
        }

        .error {
            color: var(--red);
        }

        .empty {
            color: var(--text-dim);
            padding: 15px;
        }
    </style>
</head>
<body>
    <div class="container">
        <header>
            <h1>{{.Title}}</h1>
            <p class="meta">Generated {{formatTime .GeneratedAt}} from {{.Backend}}{{with .Profile}} for {{.Name}} &lt;{{.Email}}&gt;{{end}}</p>
            {{if .Summary.ThreatsDetected}}
            <h3 class="status-threat">Threats Detected</h3>
            {{else}}
            <h3 class="status-safe">System Protected</h3>
            {{end}}
        </header>

        <section class="summary">
            <div class="card"><div class="value">{{.Summary.ThreatsBlocked}}</div><div class="label">Threats Blocked</div></div>
            <div class="card"><div class="value">{{.Summary.Emails}}</div><div class="label">Emails ({{.Summary.UrgentEmails}} urgent)</div></div>
            <div class="card"><div class="value">{{.Summary.BlockedSenders}}</div><div class="label">Blocked Senders</div></div>
            <div class="card"><div class="value">{{.Summary.LoginEvents}}</div><div class="label">Login Events ({{.Summary.UrgentLogins}} urgent)</div></div>
            <div class="card"><div class="value">{{.Summary.Transactions}}</div><div class="label">Transactions ({{.Summary.FraudTransactions}} fraud)</div></div>
        </section>

        <h2>Urgent Alerts</h2>
        {{range .Alerts}}
        <div class="alert {{severityClass .Severity}}">
            <span class="score">{{.RiskScore}}%</span> <strong>{{.Title}}</strong>
            <div>{{.Detail}}</div>
            {{if .Reason}}<div class="meta">{{.Reason}}</div>{{end}}
        </div>
        {{else}}
        <p class="empty">No urgent alerts.</p>
        {{end}}

        <h2>Emails</h2>
        <table>
            <tr><th>Risk</th><th>Subject</th><th>Sender</th><th>Category</th><th>Time</th></tr>
            {{range .Emails}}
            <tr><td class="score">{{.RiskScore}}%</td><td>{{truncate .Subject 80}}</td><td>{{.Sender}}</td><td>{{.Category}}</td><td>{{.Timestamp}}</td></tr>
            {{end}}
        </table>

        <h2>Blocked Senders</h2>
        {{if .Blocked}}
        <table>
            <tr><th>Sender</th><th>Type</th><th>Subject</th><th>Reason</th><th>Blocked</th></tr>
            {{range .Blocked}}
            <tr><td>{{.Email}}</td><td>{{if .AutoBlocked}}AUTO{{else}}MANUAL{{end}}</td><td>{{.EmailSubject}}</td><td>{{.Reason}}</td><td>{{blockedAt .BlockedAt}}</td></tr>
            {{end}}
        </table>
        {{else}}
        <p class="empty">No blocked senders yet.</p>
        {{end}}

        <h2>Login Logs</h2>
        <table>
            <tr><th>Time</th><th>Source IP</th><th>Service</th><th>State</th><th>Category</th><th>Risk</th></tr>
            {{range .LoginLogs}}
            <tr><td>{{.Timestamp}}</td><td>{{.IP}}</td><td>{{.Service}}/{{.Proto}}</td><td>{{.State}}</td><td>{{.Category}}</td><td class="score">{{.RiskScore}}</td></tr>
            {{end}}
        </table>

        <h2>Bank Transactions{{with .AccountID}} ({{.}}){{end}}</h2>
        <table>
            <tr><th>Date</th><th>Merchant</th><th>Type</th><th>Amount</th><th>Location</th><th>Status</th><th>Risk</th></tr>
            {{range .Transactions}}
            <tr><td>{{.Date}}</td><td>{{.Merchant}}</td><td>{{.Type}}</td><td>${{amount .Amount}}</td><td>{{.Location}}</td><td>{{if .IsFraud}}<span class="error">Fraudulent</span>{{else}}Legitimate{{end}}</td><td class="score">{{.RiskScore}}</td></tr>
            {{end}}
        </table>

        <h2>Feeds</h2>
        <table>
            <tr><th>Feed</th><th>Last Update</th><th>Error</th></tr>
            {{range .Feeds}}
            <tr><td>{{.Endpoint}}</td><td>{{formatTime .Updated}}</td><td class="error">{{.Error}}</td></tr>
            {{end}}
        </table>
    </div>
</body>
</html>`
