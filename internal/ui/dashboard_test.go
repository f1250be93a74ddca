package ui

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/aegisai/aegisdash/internal/config"
	"github.com/aegisai/aegisdash/internal/console"
	"github.com/aegisai/aegisdash/internal/policy"
	"github.com/aegisai/aegisdash/internal/view"
	"github.com/aegisai/aegisdash/pkg/types"
	tea "github.com/charmbracelet/bubbletea"
)

type backendCalls struct {
	blocks   atomic.Int32
	unblocks atomic.Int32
}

func newTestDashboard(t *testing.T) (*Dashboard, *backendCalls) {
	t.Helper()

	calls := &backendCalls{}
	mux := http.NewServeMux()
	mux.HandleFunc("/api/emails", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"emails":[
			{"id":"m1","sender":"a@x.com","subject":"Invoice","category":"High","risk_score":82,"risk_reason":"Urgent payment","timestamp":"10:02"},
			{"id":"m2","sender":"b@y.com","subject":"Hi","category":"Safe","risk_score":5,"timestamp":"09:00"},
			{"id":"m3","sender":"c@z.com","subject":"Promo","category":"Medium","risk_score":60,"timestamp":"08:00"},
			{"id":"m4","sender":"d@w.com","subject":"Reset","category":"Critical","risk_score":97,"timestamp":"07:00","auto_blocked":true}
		],"stats":{"threats_blocked":3}}`))
	})
	mux.HandleFunc("/api/blocked", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"blocked_senders":[{"email":"evil@x.com","email_subject":"Win","reason":"Phishing","blocked_at":"2024-05-01T10:00:00","auto_blocked":true}]}`))
	})
	mux.HandleFunc("/api/login-logs", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"logs":[{"timestamp":"10:00","ip":"10.0.0.1","service":"ssh","proto":"tcp","state":"INT","category":"Brute Force","risk_score":91}]}`))
	})
	mux.HandleFunc("/api/bank-transactions", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"account_id":"ACC-1","transactions":[{"account_id":"ACC-1","merchant":"Cafe","amount":4.5,"is_fraud":false,"risk_score":2}]}`))
	})
	mux.HandleFunc("/api/profile", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"name":"Admin","email":"admin@aegisai.ai"}`))
	})
	mux.HandleFunc("/api/block", func(w http.ResponseWriter, r *http.Request) {
		calls.blocks.Add(1)
		_, _ = w.Write([]byte(`{"success":true}`))
	})
	mux.HandleFunc("/api/unblock", func(w http.ResponseWriter, r *http.Request) {
		calls.unblocks.Add(1)
		_, _ = w.Write([]byte(`{"success":true}`))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	cfg := config.DefaultConfig()
	cfg.Backend.BaseURL = srv.URL
	cfg.Backend.RPS = 0

	c, err := console.New(console.Options{Config: cfg})
	if err != nil {
		t.Fatalf("console.New failed: %v", err)
	}
	t.Cleanup(c.Stop)

	if err := c.FetchAll(context.Background()); err != nil {
		t.Fatalf("FetchAll failed: %v", err)
	}

	d := NewDashboard(context.Background(), c)
	d.Update(tea.WindowSizeMsg{Width: 140, Height: 40})
	return d, calls
}

func key(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

// run executes cmd and feeds its message back into the dashboard
func run(t *testing.T, d *Dashboard, cmd tea.Cmd) {
	t.Helper()
	if cmd == nil {
		t.Fatal("Expected a command")
	}
	d.Update(cmd())
}

func TestNewDashboard(t *testing.T) {
	d, _ := newTestDashboard(t)

	if d.Active() != view.Dashboard {
		t.Errorf("Expected dashboard view, got %s", d.Active())
	}
	if rows := d.table.Rows(); len(rows) != 4 {
		t.Fatalf("Expected 4 email rows, got %d", len(rows))
	}

	rows := d.table.Rows()
	want := []string{"Block", "", "Block", "Auto-Blocked"}
	for i, w := range want {
		if rows[i][4] != w {
			t.Errorf("Row %d: expected control %q, got %q", i, w, rows[i][4])
		}
	}
}

func TestDashboard_Navigate(t *testing.T) {
	d, _ := newTestDashboard(t)

	d.Update(key("3"))
	if d.Active() != view.LoginLogs {
		t.Fatalf("Expected login-logs, got %s", d.Active())
	}
	rows := d.table.Rows()
	if len(rows) != 1 || rows[0][2] != "SSH/TCP" {
		t.Errorf("Unexpected login rows %v", rows)
	}

	d.Update(tea.KeyMsg{Type: tea.KeyTab})
	if d.Active() != view.BankTransactions {
		t.Errorf("Expected bank-transactions after tab, got %s", d.Active())
	}
	if rows := d.table.Rows(); len(rows) != 1 || rows[0][3] != "$4.50" {
		t.Errorf("Unexpected bank rows %v", rows)
	}

	d.Update(tea.KeyMsg{Type: tea.KeyTab})
	if d.Active() != view.Dashboard {
		t.Errorf("Expected tab to wrap to dashboard, got %s", d.Active())
	}
}

func TestDashboard_BlockConfirm(t *testing.T) {
	d, calls := newTestDashboard(t)

	d.table.SetCursor(0)
	_, cmd := d.Update(key("b"))
	run(t, d, cmd)

	if d.prompt == nil || d.prompt.sender != "a@x.com" || d.prompt.subject != "Invoice" {
		t.Fatalf("Expected confirmation prompt, got %+v", d.prompt)
	}
	if !strings.Contains(d.View(), "Confirm Block") {
		t.Error("Expected prompt in view")
	}
	if calls.blocks.Load() != 0 {
		t.Error("Nothing should be sent before confirmation")
	}

	_, cmd = d.Update(key("y"))
	run(t, d, cmd)

	if d.prompt != nil {
		t.Error("Prompt should close after confirm")
	}
	if calls.blocks.Load() != 1 {
		t.Errorf("Expected 1 block call, got %d", calls.blocks.Load())
	}
	if last := d.logs[len(d.logs)-1]; last.Message != "Blocked: a@x.com" {
		t.Errorf("Expected ack logged, got %q", last.Message)
	}
}

func TestDashboard_BlockCancel(t *testing.T) {
	d, calls := newTestDashboard(t)

	d.table.SetCursor(0)
	_, cmd := d.Update(key("b"))
	run(t, d, cmd)

	d.Update(key("n"))
	if d.prompt != nil {
		t.Error("Prompt should close on cancel")
	}
	if _, ok := d.gate.Pending(); ok {
		t.Error("Pending block should be discarded")
	}
	if calls.blocks.Load() != 0 {
		t.Errorf("Expected no block calls, got %d", calls.blocks.Load())
	}
}

func TestDashboard_CursorSurvivesStoreUpdate(t *testing.T) {
	d, calls := newTestDashboard(t)

	if c := d.table.Cursor(); c != 0 {
		t.Fatalf("Expected cursor on the first row, got %d", c)
	}

	d.table.SetCursor(2)
	d.Update(StoreUpdateMsg{Endpoint: types.EndpointEmails})
	if c := d.table.Cursor(); c != 2 {
		t.Fatalf("Expected cursor kept at 2 after a poll, got %d", c)
	}

	_, cmd := d.Update(key("b"))
	run(t, d, cmd)
	if calls.blocks.Load() != 1 {
		t.Errorf("Expected block after a poll, got %d calls", calls.blocks.Load())
	}

	d.Update(key("2"))
	d.Update(StoreUpdateMsg{Endpoint: types.EndpointBlocked})
	d.Update(key("u"))
	if d.prompt == nil || d.prompt.sender != "evil@x.com" {
		t.Errorf("Expected unblock prompt after a poll, got %+v", d.prompt)
	}
}

func TestDashboard_BlockImmediateAndDisabled(t *testing.T) {
	d, calls := newTestDashboard(t)

	d.table.SetCursor(2)
	_, cmd := d.Update(key("b"))
	run(t, d, cmd)
	if d.prompt != nil || calls.blocks.Load() != 1 {
		t.Errorf("60-score email should block immediately, got prompt %+v and %d calls", d.prompt, calls.blocks.Load())
	}

	d.table.SetCursor(1)
	if _, cmd := d.Update(key("b")); cmd != nil {
		t.Error("Hidden control should not issue a request")
	}

	d.table.SetCursor(3)
	if _, cmd := d.Update(key("b")); cmd != nil {
		t.Error("Disabled control should not issue a request")
	}
}

func TestDashboard_Unblock(t *testing.T) {
	d, calls := newTestDashboard(t)

	d.Update(key("2"))
	if rows := d.table.Rows(); len(rows) != 1 || rows[0][1] != "AUTO" {
		t.Fatalf("Unexpected blocked rows %v", rows)
	}

	d.Update(key("u"))
	if d.prompt == nil || !strings.Contains(d.View(), "Unblock evil@x.com?") {
		t.Fatalf("Expected unblock prompt, got %+v", d.prompt)
	}

	_, cmd := d.Update(key("y"))
	run(t, d, cmd)

	if calls.unblocks.Load() != 1 {
		t.Errorf("Expected 1 unblock call, got %d", calls.unblocks.Load())
	}
	if last := d.logs[len(d.logs)-1]; last.Message != "Unblocked: evil@x.com" {
		t.Errorf("Expected ack logged, got %q", last.Message)
	}
}

func TestDashboard_View(t *testing.T) {
	d, _ := newTestDashboard(t)

	out := d.View()
	for _, want := range []string{"Threats Detected", "Urgent Alerts", "Invoice", "Brute Force", "Admin"} {
		if !strings.Contains(out, want) {
			t.Errorf("Expected %q in view", want)
		}
	}

	d.Update(key("4"))
	if strings.Contains(d.View(), "Urgent Alerts") {
		t.Error("Bank view without fraud should hide the alert panel")
	}
}

func TestDashboard_AddLogTrimming(t *testing.T) {
	d, _ := newTestDashboard(t)
	d.maxLogs = 5

	for i := 0; i < 10; i++ {
		d.AddLog("INFO", "Message")
	}

	if len(d.logs) != 5 {
		t.Errorf("Expected %d logs after trimming, got %d", d.maxLogs, len(d.logs))
	}
}

func TestRiskBar(t *testing.T) {
	bar := NewRiskBar(10, policy.DefaultThresholds())

	if out := bar.Render(82); !strings.Contains(out, "82%") {
		t.Errorf("Expected score label, got %q", out)
	}
	if out := bar.Render(150); !strings.Contains(out, "100%") {
		t.Errorf("Expected clamped score, got %q", out)
	}
	if out := bar.Render(-3); !strings.Contains(out, "  0%") {
		t.Errorf("Expected clamped score, got %q", out)
	}
}

func TestSpinnerProgress(t *testing.T) {
	s := NewSpinnerProgress()

	if s.Render() != "" {
		t.Error("Stopped spinner should render nothing")
	}
	s.Start()
	s.Tick()
	if !strings.Contains(s.Render(), "Refreshing") {
		t.Errorf("Unexpected spinner output %q", s.Render())
	}
}

func TestFormatNumber(t *testing.T) {
	tests := []struct {
		input    int64
		expected string
	}{
		{0, "0"},
		{999, "999"},
		{1000, "1.0K"},
		{1500, "1.5K"},
		{1000000, "1.0M"},
	}

	for _, tt := range tests {
		if got := formatNumber(tt.input); got != tt.expected {
			t.Errorf("formatNumber(%d) = %s, expected %s", tt.input, got, tt.expected)
		}
	}
}

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		input    time.Duration
		expected string
	}{
		{500 * time.Millisecond, "500ms"},
		{5 * time.Second, "5s"},
		{90 * time.Second, "1m30s"},
		{2*time.Hour + 5*time.Minute, "2h5m"},
	}

	for _, tt := range tests {
		if got := formatDuration(tt.input); got != tt.expected {
			t.Errorf("formatDuration(%v) = %s, expected %s", tt.input, got, tt.expected)
		}
	}
}
