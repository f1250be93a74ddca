package render

import (
	"html/template"
	"strings"
	"testing"
	"time"

	"github.com/aegisai/aegisdash/internal/actions"
	"github.com/aegisai/aegisdash/internal/policy"
	"github.com/aegisai/aegisdash/pkg/types"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

func newTestRenderer() *Renderer {
	return New(nil, policy.DefaultThresholds())
}

func parse(t *testing.T, frag template.HTML, context atom.Atom) []*html.Node {
	t.Helper()

	ctx := &html.Node{Type: html.ElementNode, Data: context.String(), DataAtom: context}
	nodes, err := html.ParseFragment(strings.NewReader(string(frag)), ctx)
	if err != nil {
		t.Fatalf("ParseFragment failed: %v", err)
	}
	return nodes
}

func findAll(nodes []*html.Node, match func(*html.Node) bool) []*html.Node {
	var out []*html.Node
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if match(n) {
			out = append(out, n)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	for _, n := range nodes {
		walk(n)
	}
	return out
}

func byTag(tag string) func(*html.Node) bool {
	return func(n *html.Node) bool {
		return n.Type == html.ElementNode && n.Data == tag
	}
}

func attr(n *html.Node, key string) (string, bool) {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val, true
		}
	}
	return "", false
}

func text(n *html.Node) string {
	var sb strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			sb.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return sb.String()
}

func TestEmails_Idempotent(t *testing.T) {
	r := newTestRenderer()
	emails := []types.Email{
		{ID: "m1", Sender: "a@x.com", Subject: "Invoice", Category: "High", RiskScore: 82},
		{ID: "m2", Sender: "b@y.com", Subject: "Hi", Category: "Safe", RiskScore: 5},
	}

	first, err := r.Emails(emails)
	if err != nil {
		t.Fatalf("Emails failed: %v", err)
	}
	second, _ := r.Emails(emails)

	if first != second {
		t.Error("Same input should render identical output")
	}
}

func TestEmails_Escaping(t *testing.T) {
	r := newTestRenderer()

	out, err := r.Emails([]types.Email{{
		ID:        "m1",
		Sender:    `evil"@x.com`,
		Subject:   `<script>alert(1)</script>`,
		RiskScore: 60,
	}})
	if err != nil {
		t.Fatalf("Emails failed: %v", err)
	}

	if strings.Contains(string(out), "<script>") {
		t.Error("Subject must be escaped")
	}

	nodes := parse(t, out, atom.Div)
	if len(findAll(nodes, byTag("script"))) != 0 {
		t.Error("No script element may appear in rendered output")
	}

	buttons := findAll(nodes, byTag("button"))
	if len(buttons) != 1 {
		t.Fatalf("Expected a block button, got %d", len(buttons))
	}
	if v, _ := attr(buttons[0], "data-sender"); v != `evil"@x.com` {
		t.Errorf("Expected attribute to round-trip, got %q", v)
	}
	if v, _ := attr(buttons[0], "data-subject"); v != `<script>alert(1)</script>` {
		t.Errorf("Expected subject attribute to round-trip, got %q", v)
	}
}

func TestEmails_BlockControl(t *testing.T) {
	r := newTestRenderer()

	tests := []struct {
		score    int
		buttons  int
		disabled bool
	}{
		{49, 0, false},
		{50, 1, false},
		{74, 1, false},
		{75, 1, false},
		{89, 1, false},
		{90, 1, true},
		{100, 1, true},
	}

	for _, tt := range tests {
		out, err := r.Emails([]types.Email{{ID: "m", Sender: "s@x.com", RiskScore: tt.score}})
		if err != nil {
			t.Fatalf("Emails failed: %v", err)
		}

		buttons := findAll(parse(t, out, atom.Div), byTag("button"))
		if len(buttons) != tt.buttons {
			t.Errorf("Score %d: expected %d buttons, got %d", tt.score, tt.buttons, len(buttons))
			continue
		}
		if tt.buttons == 0 {
			continue
		}

		_, disabled := attr(buttons[0], "disabled")
		if disabled != tt.disabled {
			t.Errorf("Score %d: expected disabled=%v", tt.score, tt.disabled)
		}
		if !disabled {
			if action, _ := attr(buttons[0], "data-action"); action != "block" {
				t.Errorf("Score %d: expected block action, got %q", tt.score, action)
			}
		}
	}
}

func TestEmails_TierClass(t *testing.T) {
	r := newTestRenderer()

	tests := []struct {
		score int
		class string
	}{
		{50, "risk-safe"},
		{51, "risk-high"},
		{75, "risk-high"},
		{76, "risk-critical"},
	}

	for _, tt := range tests {
		out, _ := r.Emails([]types.Email{{RiskScore: tt.score}})
		if !strings.Contains(string(out), `class="risk-indicator `+tt.class+`"`) {
			t.Errorf("Score %d: expected class %s in %s", tt.score, tt.class, out)
		}
	}
}

func TestBlocked_EmptyState(t *testing.T) {
	r := newTestRenderer()

	out, err := r.Blocked(nil)
	if err != nil {
		t.Fatalf("Blocked failed: %v", err)
	}
	if !strings.Contains(string(out), EmptyBlocked) {
		t.Errorf("Expected empty state, got %s", out)
	}
}

func TestBlocked_Labels(t *testing.T) {
	r := newTestRenderer()

	out, err := r.Blocked([]types.BlockedSender{
		{Email: "a@x.com", EmailSubject: "Invoice", Reason: "User confirmed block", BlockedAt: types.Timestamp{Time: time.Date(2025, 1, 2, 10, 11, 12, 0, time.UTC)}},
		{Email: "b@y.com", AutoBlocked: true},
	})
	if err != nil {
		t.Fatalf("Blocked failed: %v", err)
	}

	s := string(out)
	if !strings.Contains(s, "MANUAL") || !strings.Contains(s, "AUTO") {
		t.Error("Expected both AUTO and MANUAL labels")
	}
	if !strings.Contains(s, "Blocked: 2025-01-02 10:11:12") {
		t.Errorf("Expected formatted date, got %s", s)
	}

	buttons := findAll(parse(t, out, atom.Div), byTag("button"))
	if len(buttons) != 2 {
		t.Fatalf("Expected 2 unblock buttons, got %d", len(buttons))
	}
	if v, _ := attr(buttons[0], "data-sender"); v != "a@x.com" {
		t.Errorf("Unexpected unblock target %q", v)
	}
}

func TestLoginLogs_Badges(t *testing.T) {
	r := newTestRenderer()

	out, err := r.LoginLogs([]types.LoginLogEntry{
		{IP: "10.0.0.1", Service: "ssh", Proto: "tcp", Category: "Brute Force", RiskScore: 91},
		{IP: "10.0.0.2", Service: "http", Proto: "tcp", Category: "Reconnaissance", RiskScore: 40},
		{IP: "10.0.0.3", Service: "dns", Proto: "udp", Category: "Normal", RiskScore: 51},
	})
	if err != nil {
		t.Fatalf("LoginLogs failed: %v", err)
	}

	rows := findAll(parse(t, out, atom.Tbody), byTag("tr"))
	if len(rows) != 3 {
		t.Fatalf("Expected 3 rows, got %d", len(rows))
	}

	s := string(out)
	for _, want := range []string{
		`risk-badge threat`,
		`risk-badge warning`,
		`risk-badge normal`,
		`SSH / TCP`,
		`DNS / UDP`,
	} {
		if !strings.Contains(s, want) {
			t.Errorf("Expected %q in output", want)
		}
	}
	if strings.Count(s, "score-critical") != 2 {
		t.Errorf("Expected 2 hot scores, got %d", strings.Count(s, "score-critical"))
	}
}

func TestBankTransactions(t *testing.T) {
	r := newTestRenderer()

	out, err := r.BankTransactions([]types.BankTransaction{
		{Merchant: "Steam", Amount: decimal.RequireFromString("450.2"), IsFraud: true, RiskScore: 90},
		{Merchant: "Cafe", Amount: decimal.NewFromInt(12), RiskScore: 3},
	})
	if err != nil {
		t.Fatalf("BankTransactions failed: %v", err)
	}

	s := string(out)
	if !strings.Contains(s, "$450.20") || !strings.Contains(s, "$12.00") {
		t.Errorf("Expected amounts with 2 decimals, got %s", s)
	}
	if !strings.Contains(s, "Fraudulent") || !strings.Contains(s, "Legitimate") {
		t.Error("Expected both verdict labels")
	}
}

func TestUrgent_Empty(t *testing.T) {
	r := newTestRenderer()

	out, err := r.Urgent(nil)
	if err != nil || out != "" {
		t.Errorf("Expected empty output, got %q, %v", out, err)
	}
}

func TestUrgent_Cards(t *testing.T) {
	r := newTestRenderer()

	alerts := []types.UrgentAlert{
		{Origin: types.OriginEmail, Email: &types.Email{ID: "m1", Sender: "a@x.com", Subject: "Invoice", RiskScore: 82, RiskReason: "<b>Urgent</b> payment<script>x()</script>"}},
		{Origin: types.OriginEmail, Email: &types.Email{ID: "m2", Sender: "c@z.com", Subject: "Prize", RiskScore: 95, AutoBlocked: true}},
		{Origin: types.OriginNetwork, Log: &types.LoginLogEntry{IP: "10.0.0.9", Service: "ssh", Proto: "tcp", Category: "Brute Force", RiskScore: 91}},
		{Origin: types.OriginBank, Txn: &types.BankTransaction{AccountID: "ACC-1", Merchant: "Steam", Amount: decimal.NewFromInt(450), IsFraud: true, RiskScore: 90, Reason: "Offshore"}},
	}

	out, err := r.Urgent(alerts)
	if err != nil {
		t.Fatalf("Urgent failed: %v", err)
	}

	nodes := parse(t, out, atom.Div)
	cards := findAll(nodes, func(n *html.Node) bool {
		c, _ := attr(n, "class")
		return n.Type == html.ElementNode && strings.HasPrefix(c, "urgent-card")
	})
	if len(cards) != 4 {
		t.Fatalf("Expected 4 cards, got %d", len(cards))
	}

	if len(findAll(nodes, byTag("script"))) != 0 {
		t.Error("Risk reason must be sanitized")
	}
	if len(findAll(nodes, byTag("b"))) != 1 {
		t.Error("Inline emphasis should survive sanitizing")
	}

	s := string(out)
	if !strings.Contains(s, "AUTO-BLOCKED") {
		t.Error("Expected auto-blocked badge")
	}
	if !strings.Contains(s, "Active Brute Force detected over SSH/TCP. Action recommended.") {
		t.Error("Expected network alert description")
	}
	if !strings.Contains(s, "Bank Fraud Detected: ACC-1") || !strings.Contains(s, "$450.00") {
		t.Error("Expected bank card details")
	}

	var views []string
	for _, b := range findAll(nodes, byTag("button")) {
		if v, ok := attr(b, "data-view"); ok {
			views = append(views, v+":"+text(b))
		}
	}
	if len(views) != 2 || views[0] != "login-logs:Investigate" || views[1] != "bank-transactions:View Details" {
		t.Errorf("Unexpected navigation buttons %v", views)
	}

	disabled := findAll(nodes, func(n *html.Node) bool {
		_, ok := attr(n, "disabled")
		return n.Type == html.ElementNode && n.Data == "button" && ok
	})
	if len(disabled) != 1 || text(disabled[0]) != "Auto-Blocked" {
		t.Errorf("Expected one disabled Auto-Blocked control, got %d", len(disabled))
	}
}

func TestStatus(t *testing.T) {
	r := newTestRenderer()

	out, _ := r.Status(types.Stats{ThreatsBlocked: 7}, []types.Email{{RiskScore: 70}})
	if !strings.Contains(string(out), "Threats Detected") || !strings.Contains(string(out), ">7<") {
		t.Errorf("Unexpected status %s", out)
	}

	out, _ = r.Status(types.Stats{}, []types.Email{{RiskScore: 69}})
	if !strings.Contains(string(out), "System Protected") {
		t.Errorf("Unexpected status %s", out)
	}
}

func TestProfile(t *testing.T) {
	r := newTestRenderer()

	out, _ := r.Profile(types.Profile{Name: "admin user", Email: "admin@aegisai.ai"})
	avatar := findAll(parse(t, out, atom.Div), func(n *html.Node) bool {
		id, _ := attr(n, "id")
		return id == "user-avatar"
	})
	if len(avatar) != 1 || text(avatar[0]) != "A" {
		t.Errorf("Expected initial avatar, got %s", out)
	}

	out, _ = r.Profile(types.Profile{Name: "Admin", Picture: "javascript:alert(1)"})
	if strings.Contains(string(out), "javascript:") {
		t.Error("Unsafe picture URL must be filtered")
	}

	out, _ = r.Profile(types.Profile{Name: "Admin", Picture: "https://cdn.example.com/a.png"})
	imgs := findAll(parse(t, out, atom.Div), byTag("img"))
	if len(imgs) != 1 {
		t.Fatal("Expected an avatar image")
	}
	if src, _ := attr(imgs[0], "src"); src != "https://cdn.example.com/a.png" {
		t.Errorf("Unexpected src %q", src)
	}
}

func TestModal(t *testing.T) {
	r := newTestRenderer()

	id := uuid.New()
	out, err := r.Modal(actions.PendingBlock{
		ID:     id,
		Target: actions.Target{MessageID: "m1", Sender: "a@x.com", Subject: "Invoice"},
	})
	if err != nil {
		t.Fatalf("Modal failed: %v", err)
	}

	s := string(out)
	if !strings.Contains(s, "Sender: a@x.com") || !strings.Contains(s, "Subject: Invoice") {
		t.Errorf("Expected sender and subject lines, got %s", s)
	}
	if !strings.Contains(s, id.String()) {
		t.Error("Expected pending id in the confirm button")
	}
}
