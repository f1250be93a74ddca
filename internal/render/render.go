// Package render turns feed records into HTML fragments. Every function
// rebuilds its fragment from scratch and the same input always yields the
// same bytes. Server strings are escaped by html/template; the risk reason
// is the only rich text and goes through a bluemonday policy first.
package render

import (
	"bytes"
	"fmt"
	"html/template"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/aegisai/aegisdash/internal/actions"
	"github.com/aegisai/aegisdash/internal/policy"
	"github.com/aegisai/aegisdash/internal/view"
	"github.com/aegisai/aegisdash/pkg/types"
	"github.com/microcosm-cc/bluemonday"
	"github.com/shopspring/decimal"
)

// Fragment names, also used as DOM targets by the web front-end
const (
	FragEmails           = "emails"
	FragBlocked          = "blocked"
	FragLoginLogs        = "login-logs"
	FragBankTransactions = "bank-transactions"
	FragAccount          = "account"
	FragStatus           = "status"
	FragProfile          = "profile"
	FragModal            = "modal"
	FragUrgent           = "urgent"
)

// EmptyBlocked is shown when the block list is empty
const EmptyBlocked = "No blocked senders yet."

// Renderer holds the parsed fragment templates and the policy they apply
type Renderer struct {
	tmpl      *template.Template
	table     *policy.Table
	th        policy.Thresholds
	sanitizer *bluemonday.Policy
}

// New builds a renderer. A nil table uses the default policy.
func New(table *policy.Table, th policy.Thresholds) *Renderer {
	if table == nil {
		table = policy.DefaultTable()
	}

	r := &Renderer{
		table:     table,
		th:        th,
		sanitizer: reasonPolicy(),
	}
	r.tmpl = template.Must(template.New("fragments").Funcs(r.funcs()).Parse(fragmentTemplates))
	return r
}

// reasonPolicy allows inline emphasis only
func reasonPolicy() *bluemonday.Policy {
	p := bluemonday.NewPolicy()
	p.AllowElements("b", "strong", "em", "i", "u", "mark", "code", "br")
	return p
}

func (r *Renderer) funcs() template.FuncMap {
	return template.FuncMap{
		"tierClass": func(score int) string {
			return r.th.EmailTier(score).Class()
		},
		"control": func(score int) string {
			return string(r.table.Control(score))
		},
		"badge": func(category string) string {
			return string(policy.CategoryBadge(category))
		},
		"txnBadge": func(tx types.BankTransaction) string {
			return string(policy.TxnBadge(tx))
		},
		"hot": func(score int) bool {
			return r.th.HotLog(score)
		},
		"upper": strings.ToUpper,
		"reason": func(s string) template.HTML {
			return template.HTML(r.sanitizer.Sanitize(s))
		},
		"formatTime": func(ts types.Timestamp) string {
			if ts.IsZero() {
				return "unknown"
			}
			return ts.Format("2006-01-02 15:04:05")
		},
		"amount": func(d decimal.Decimal) string {
			return d.StringFixed(2)
		},
		"initial": initial,
		"alertView": func(origin types.AlertOrigin) string {
			v, _ := view.ForAlert(origin)
			return string(v)
		},
	}
}

func initial(name string) string {
	c, _ := utf8.DecodeRuneInString(strings.TrimSpace(name))
	if c == utf8.RuneError {
		return "?"
	}
	return string(unicode.ToUpper(c))
}

func (r *Renderer) exec(name string, data any) (template.HTML, error) {
	var buf bytes.Buffer
	if err := r.tmpl.ExecuteTemplate(&buf, name, data); err != nil {
		return "", fmt.Errorf("render %s: %w", name, err)
	}
	return template.HTML(buf.String()), nil
}

// Emails renders the email feed list
func (r *Renderer) Emails(emails []types.Email) (template.HTML, error) {
	return r.exec(FragEmails, emails)
}

// Blocked renders the block list or its empty state
func (r *Renderer) Blocked(blocked []types.BlockedSender) (template.HTML, error) {
	return r.exec(FragBlocked, blocked)
}

// LoginLogs renders the login/network table rows
func (r *Renderer) LoginLogs(logs []types.LoginLogEntry) (template.HTML, error) {
	return r.exec(FragLoginLogs, logs)
}

// BankTransactions renders the transaction table rows
func (r *Renderer) BankTransactions(txns []types.BankTransaction) (template.HTML, error) {
	return r.exec(FragBankTransactions, txns)
}

// Account renders the monitored account id
func (r *Renderer) Account(accountID string) (template.HTML, error) {
	return r.exec(FragAccount, accountID)
}

// Urgent renders one card per alert, or nothing when there are none
func (r *Renderer) Urgent(alerts []types.UrgentAlert) (template.HTML, error) {
	if len(alerts) == 0 {
		return "", nil
	}
	return r.exec(FragUrgent, alerts)
}

type statusData struct {
	ThreatsBlocked int
	Detected       bool
}

// Status renders the protection header
func (r *Renderer) Status(stats types.Stats, emails []types.Email) (template.HTML, error) {
	return r.exec(FragStatus, statusData{
		ThreatsBlocked: stats.ThreatsBlocked,
		Detected:       r.th.ThreatsDetected(emails),
	})
}

// Profile renders the user badge
func (r *Renderer) Profile(p types.Profile) (template.HTML, error) {
	return r.exec(FragProfile, p)
}

// Modal renders the block confirmation dialog
func (r *Renderer) Modal(p actions.PendingBlock) (template.HTML, error) {
	return r.exec(FragModal, p)
}

const fragmentTemplates = `
{{- define "emails" -}}
{{- range . -}}
<div class="email-item" data-id="{{.ID}}">
<div class="risk-indicator {{tierClass .RiskScore}}">{{.RiskScore}}%</div>
<div class="email-main"><h5>{{.Subject}}</h5><p>{{.Sender}}</p></div>
<div class="email-category"><span class="badge">{{.Category}}</span>
{{- $c := control .RiskScore -}}
{{- if eq $c "enabled" -}}
<button class="btn-block-small" data-action="block" data-id="{{.ID}}" data-sender="{{.Sender}}" data-subject="{{.Subject}}" data-score="{{.RiskScore}}">Block</button>
{{- else if eq $c "disabled" -}}
<button class="btn-block-small" disabled>Auto-Blocked</button>
{{- end -}}
</div>
<div class="email-time">{{.Timestamp}}</div>
</div>
{{- end -}}
{{- end -}}

{{- define "blocked" -}}
{{- if not . -}}
<div class="empty-state">No blocked senders yet.</div>
{{- else -}}
{{- range . -}}
<div class="blocked-item">
<div class="blocked-info">
<h5>{{.Email}} {{if .AutoBlocked}}<span class="auto-label">AUTO</span>{{else}}<span class="manual-label">MANUAL</span>{{end}}</h5>
<p class="blocked-subject">Subject: {{.EmailSubject}}</p>
<p class="blocked-reason">{{.Reason}}</p>
<p class="blocked-date">Blocked: {{formatTime .BlockedAt}}</p>
</div>
<div class="blocked-actions"><button class="btn-unblock" data-action="unblock" data-sender="{{.Email}}">Unblock</button></div>
</div>
{{- end -}}
{{- end -}}
{{- end -}}

{{- define "login-logs" -}}
{{- range . -}}
<tr>
<td>{{.Timestamp}}</td>
<td class="mono">{{.IP}}</td>
<td>{{upper .Service}} / {{upper .Proto}}</td>
<td><span class="state-pill">{{.State}}</span></td>
<td><span class="risk-badge {{badge .Category}}">{{.Category}}</span></td>
<td class="score{{if hot .RiskScore}} score-critical{{end}}">{{.RiskScore}}</td>
</tr>
{{- end -}}
{{- end -}}

{{- define "bank-transactions" -}}
{{- range . -}}
<tr>
<td>{{.Date}}</td>
<td>{{.Merchant}}</td>
<td>{{.Type}}</td>
<td><strong>${{amount .Amount}}</strong></td>
<td>{{.Location}}</td>
<td><span class="risk-badge {{txnBadge .}}">{{if .IsFraud}}Fraudulent{{else}}Legitimate{{end}}</span></td>
<td class="score{{if .IsFraud}} score-critical{{end}}">{{.RiskScore}}</td>
</tr>
{{- end -}}
{{- end -}}

{{- define "account" -}}
<span id="selected-account">{{.}}</span>
{{- end -}}

{{- define "urgent" -}}
{{- range . -}}
{{- if .Email -}}
{{- with .Email -}}
<div class="urgent-card urgent-email">
<div class="risk-score-badge">{{.RiskScore}}%<span>RISK</span></div>
<div class="alert-content">
<h4>{{.Subject}}{{if .AutoBlocked}} <span class="auto-blocked-badge">AUTO-BLOCKED</span>{{end}}</h4>
<p class="text-sm">From: {{.Sender}}</p>
<div class="reason-box">{{reason .RiskReason}}</div>
</div>
<div>
{{- $c := control .RiskScore -}}
{{- if eq $c "enabled" -}}
<button class="action-btn" data-action="block" data-id="{{.ID}}" data-sender="{{.Sender}}" data-subject="{{.Subject}}" data-score="{{.RiskScore}}">Block Sender</button>
{{- else if eq $c "disabled" -}}
<button class="action-btn" disabled>Auto-Blocked</button>
{{- end -}}
</div>
</div>
{{- end -}}
{{- else if .Log -}}
{{- $view := alertView .Origin -}}
{{- with .Log -}}
<div class="urgent-card urgent-network">
<div class="risk-score-badge critical">{{.RiskScore}}%<span>THREAT</span></div>
<div class="alert-content">
<h4>Urgent Network Alert: {{.Category}}</h4>
<p class="text-sm">Source IP: <span class="mono">{{.IP}}</span></p>
<div class="reason-box critical">Active {{.Category}} detected over {{upper .Service}}/{{upper .Proto}}. Action recommended.</div>
</div>
<div><button class="action-btn" data-action="navigate" data-view="{{$view}}">Investigate</button></div>
</div>
{{- end -}}
{{- else if .Txn -}}
{{- $view := alertView .Origin -}}
{{- with .Txn -}}
<div class="urgent-card urgent-bank">
<div class="risk-score-badge critical">{{.RiskScore}}%<span>FRAUD</span></div>
<div class="alert-content">
<h4>Bank Fraud Detected: {{.AccountID}}</h4>
<p class="text-sm">Merchant: <strong>{{.Merchant}}</strong> | Amount: <strong>${{amount .Amount}}</strong></p>
<div class="reason-box critical">{{.Reason}}</div>
</div>
<div><button class="action-btn" data-action="navigate" data-view="{{$view}}">View Details</button></div>
</div>
{{- end -}}
{{- end -}}
{{- end -}}
{{- end -}}

{{- define "status" -}}
<div class="status-icon-large {{if .Detected}}status-threat{{else}}status-safe{{end}}" data-icon="{{if .Detected}}shield-alert{{else}}check-circle-2{{end}}"></div>
<div class="status-text">
<h2 class="{{if .Detected}}status-threat{{else}}status-safe{{end}}">{{if .Detected}}Threats Detected{{else}}System Protected{{end}}</h2>
<p><span id="threat-count">{{.ThreatsBlocked}}</span> threats blocked</p>
</div>
{{- end -}}

{{- define "profile" -}}
<div id="user-avatar" class="avatar">{{if .Picture}}<img src="{{.Picture}}" alt="{{.Name}}">{{else}}{{initial .Name}}{{end}}</div>
<div class="user-info"><span id="user-name">{{.Name}}</span><span id="user-email">{{.Email}}</span></div>
{{- end -}}

{{- define "modal" -}}
<div class="modal-content" data-pending="{{.ID}}">
<h3>Confirm Block</h3>
<p>Sender: {{.Sender}}</p>
<p>Subject: {{.Subject}}</p>
<div class="modal-actions">
<button class="btn-cancel" data-action="block-cancel">Cancel</button>
<button class="btn-confirm" data-action="block-confirm" data-id="{{.ID}}">Block Sender</button>
</div>
</div>
{{- end -}}
`
