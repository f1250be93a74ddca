// Package ui provides the terminal dashboard: the same feeds, alerts and
// block actions as the web front-end, drawn with bubbletea.
package ui

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/aegisai/aegisdash/internal/actions"
	"github.com/aegisai/aegisdash/internal/console"
	"github.com/aegisai/aegisdash/internal/policy"
	"github.com/aegisai/aegisdash/internal/state"
	"github.com/aegisai/aegisdash/internal/view"
	"github.com/aegisai/aegisdash/pkg/types"
	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// LogEntry represents an activity line
type LogEntry struct {
	Time    time.Time
	Level   string
	Message string
}

// prompt is a yes/no question shown over the dashboard
type prompt struct {
	action  string
	id      string
	sender  string
	subject string
}

// Dashboard is the main TUI model. It acts as a single viewer session.
type Dashboard struct {
	ctx     context.Context
	console *console.Console
	router  *view.Router
	gate    *actions.Gate

	// Dimensions
	width  int
	height int

	// State
	snap    state.Snapshot
	table   table.Model
	prompt  *prompt
	stats   *StatsView
	risk    *RiskBar
	spinner *SpinnerProgress

	// Logs
	logs    []LogEntry
	maxLogs int
}

// NewDashboard creates a dashboard over c
func NewDashboard(ctx context.Context, c *console.Console) *Dashboard {
	d := &Dashboard{
		ctx:     ctx,
		console: c,
		router:  view.NewRouter(c.Scheduler()),
		gate:    &actions.Gate{},
		width:   100,
		height:  30,
		stats:   NewStatsView(60),
		spinner: NewSpinnerProgress(),
		logs:    make([]LogEntry, 0, 64),
		maxLogs: 50,
	}

	d.table = table.New(
		table.WithFocused(true),
		table.WithHeight(10),
		table.WithStyles(TableStyles()),
	)
	d.rebuild()
	return d
}

// AddLog adds a log entry
func (d *Dashboard) AddLog(level, message string) {
	d.logs = append(d.logs, LogEntry{
		Time:    time.Now(),
		Level:   level,
		Message: message,
	})

	if len(d.logs) > d.maxLogs {
		d.logs = d.logs[len(d.logs)-d.maxLogs:]
	}
}

// Active returns the visible view
func (d *Dashboard) Active() view.View {
	return d.router.Active()
}

// Navigate switches the visible view and re-fetches its feeds
func (d *Dashboard) Navigate(v view.View) {
	if err := d.router.Navigate(v); err != nil {
		d.AddLog("WARN", fmt.Sprintf("refresh %s: %v", v, err))
	}
	if len(v.Refresh()) > 0 {
		d.spinner.Start()
	}
	d.rebuild()
	d.table.SetCursor(0)
}

// rebuild re-reads the store and redraws the table for the active view
func (d *Dashboard) rebuild() {
	d.snap = d.console.Store().Snapshot()
	d.risk = NewRiskBar(10, d.snap.Thresholds)
	active := d.router.Active()

	rows := d.rows(active)
	// Clearing the rows drags the cursor to -1, so keep it aside
	cursor := d.table.Cursor()

	// Columns and rows must agree in length before either is set
	d.table.SetRows(nil)
	d.table.SetColumns(columns(active))
	d.table.SetRows(rows)

	if cursor >= len(rows) {
		cursor = len(rows) - 1
	}
	if cursor < 0 {
		cursor = 0
	}
	d.table.SetCursor(cursor)
}

func columns(v view.View) []table.Column {
	switch v {
	case view.ThreatLogs:
		return []table.Column{
			{Title: "Sender", Width: 28},
			{Title: "Type", Width: 7},
			{Title: "Subject", Width: 26},
			{Title: "Reason", Width: 30},
			{Title: "Blocked", Width: 17},
		}
	case view.LoginLogs:
		return []table.Column{
			{Title: "Time", Width: 10},
			{Title: "Source IP", Width: 16},
			{Title: "Service", Width: 12},
			{Title: "State", Width: 6},
			{Title: "Category", Width: 20},
			{Title: "Risk", Width: 5},
		}
	case view.BankTransactions:
		return []table.Column{
			{Title: "Date", Width: 12},
			{Title: "Merchant", Width: 20},
			{Title: "Type", Width: 12},
			{Title: "Amount", Width: 11},
			{Title: "Location", Width: 14},
			{Title: "Status", Width: 11},
			{Title: "Risk", Width: 5},
		}
	default:
		return []table.Column{
			{Title: "Risk", Width: 5},
			{Title: "Subject", Width: 30},
			{Title: "Sender", Width: 26},
			{Title: "Category", Width: 10},
			{Title: "Action", Width: 12},
			{Title: "Time", Width: 8},
		}
	}
}

func (d *Dashboard) rows(v view.View) []table.Row {
	pt := d.console.Actions().Table()

	switch v {
	case view.ThreatLogs:
		rows := make([]table.Row, 0, len(d.snap.Blocked))
		for _, b := range d.snap.Blocked {
			kind := "MANUAL"
			if b.AutoBlocked {
				kind = "AUTO"
			}
			rows = append(rows, table.Row{b.Email, kind, b.EmailSubject, b.Reason, formatBlockedAt(b.BlockedAt)})
		}
		return rows

	case view.LoginLogs:
		rows := make([]table.Row, 0, len(d.snap.LoginLogs))
		for _, l := range d.snap.LoginLogs {
			rows = append(rows, table.Row{
				l.Timestamp,
				l.IP,
				strings.ToUpper(l.Service) + "/" + strings.ToUpper(l.Proto),
				l.State,
				l.Category,
				fmt.Sprintf("%d", l.RiskScore),
			})
		}
		return rows

	case view.BankTransactions:
		rows := make([]table.Row, 0, len(d.snap.Bank.Transactions))
		for _, tx := range d.snap.Bank.Transactions {
			status := "Legitimate"
			if tx.IsFraud {
				status = "Fraudulent"
			}
			rows = append(rows, table.Row{
				tx.Date,
				tx.Merchant,
				tx.Type,
				"$" + tx.Amount.StringFixed(2),
				tx.Location,
				status,
				fmt.Sprintf("%d", tx.RiskScore),
			})
		}
		return rows

	default:
		rows := make([]table.Row, 0, len(d.snap.Emails))
		for _, e := range d.snap.Emails {
			rows = append(rows, table.Row{
				fmt.Sprintf("%d%%", e.RiskScore),
				e.Subject,
				e.Sender,
				e.Category,
				controlLabel(pt.Control(e.RiskScore)),
				e.Timestamp,
			})
		}
		return rows
	}
}

func controlLabel(c policy.Control) string {
	switch c {
	case policy.ControlEnabled:
		return "Block"
	case policy.ControlDisabled:
		return "Auto-Blocked"
	default:
		return ""
	}
}

func formatBlockedAt(ts types.Timestamp) string {
	if ts.IsZero() {
		return "unknown"
	}
	return ts.Format("2006-01-02 15:04")
}

// --- Bubbletea Model interface ---

// TickMsg is sent on each animation tick
type TickMsg time.Time

// StoreUpdateMsg is sent after a feed has been applied to the store
type StoreUpdateMsg struct {
	Endpoint types.Endpoint
}

type blockMsg struct {
	sender  string
	outcome actions.Outcome
	err     error
}

type ackMsg struct {
	ack actions.Ack
	err error
}

// Init initializes the model
func (d *Dashboard) Init() tea.Cmd {
	return tickCmd()
}

// tickCmd returns a command that ticks periodically
func tickCmd() tea.Cmd {
	return tea.Tick(100*time.Millisecond, func(t time.Time) tea.Msg {
		return TickMsg(t)
	})
}

// Update handles messages
func (d *Dashboard) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if d.prompt != nil {
			return d, d.answer(msg.String())
		}

		switch msg.String() {
		case "q", "ctrl+c":
			return d, tea.Quit
		case "1", "2", "3", "4":
			views := view.All()
			d.Navigate(views[int(msg.String()[0]-'1')])
			return d, nil
		case "tab":
			d.Navigate(nextView(d.router.Active()))
			return d, nil
		case "r":
			d.refresh()
			return d, nil
		case "b":
			return d, d.requestBlock()
		case "u":
			d.requestUnblock()
			return d, nil
		}

	case tea.WindowSizeMsg:
		d.width = msg.Width
		d.height = msg.Height
		d.stats.SetSize(d.width/2 - 2)
		if h := d.height - 18; h > 3 {
			d.table.SetHeight(h)
		}
		return d, nil

	case StoreUpdateMsg:
		d.spinner.Stop()
		d.rebuild()
		return d, nil

	case blockMsg:
		d.handleBlock(msg)
		return d, nil

	case ackMsg:
		d.handleAck(msg)
		return d, nil

	case TickMsg:
		d.spinner.Tick()
		return d, tickCmd()
	}

	var cmd tea.Cmd
	d.table, cmd = d.table.Update(msg)
	return d, cmd
}

func nextView(v view.View) view.View {
	all := view.All()
	for i, candidate := range all {
		if candidate == v {
			return all[(i+1)%len(all)]
		}
	}
	return view.Dashboard
}

// refresh re-fetches the active view's feeds, or every feed on the dashboard
func (d *Dashboard) refresh() {
	eps := d.router.Active().Refresh()
	if len(eps) == 0 {
		eps = types.Endpoints()
	}
	if err := d.console.Scheduler().Refresh(eps...); err != nil {
		d.AddLog("WARN", err.Error())
		return
	}
	d.spinner.Start()
}

func (d *Dashboard) selectedEmail() (types.Email, bool) {
	i := d.table.Cursor()
	if d.router.Active() != view.Dashboard || i < 0 || i >= len(d.snap.Emails) {
		return types.Email{}, false
	}
	return d.snap.Emails[i], true
}

func (d *Dashboard) selectedBlocked() (types.BlockedSender, bool) {
	i := d.table.Cursor()
	if d.router.Active() != view.ThreatLogs || i < 0 || i >= len(d.snap.Blocked) {
		return types.BlockedSender{}, false
	}
	return d.snap.Blocked[i], true
}

// requestBlock applies the block policy to the selected email. Only rows
// with an enabled control can be blocked from the terminal.
func (d *Dashboard) requestBlock() tea.Cmd {
	e, ok := d.selectedEmail()
	if !ok {
		return nil
	}

	switch d.console.Actions().Table().Control(e.RiskScore) {
	case policy.ControlHidden:
		d.AddLog("INFO", fmt.Sprintf("%s is below the block threshold", e.Sender))
		return nil
	case policy.ControlDisabled:
		d.AddLog("INFO", fmt.Sprintf("%s is already auto-blocked", e.Sender))
		return nil
	}

	ctx, h, gate := d.ctx, d.console.Actions(), d.gate
	target := actions.TargetFromEmail(e)
	return func() tea.Msg {
		out, err := h.RequestBlock(ctx, gate, target)
		return blockMsg{sender: target.Sender, outcome: out, err: err}
	}
}

func (d *Dashboard) requestUnblock() {
	b, ok := d.selectedBlocked()
	if !ok {
		return
	}
	d.prompt = &prompt{action: actions.ActionUnblock, sender: b.Email}
}

func (d *Dashboard) handleBlock(msg blockMsg) {
	switch {
	case errors.Is(msg.err, actions.ErrBlockRejected):
		d.AddLog("WARN", fmt.Sprintf("%s is already auto-blocked", msg.sender))
	case msg.err != nil:
		d.AddLog("ERROR", msg.err.Error())
	case msg.outcome.Modal != nil:
		p := msg.outcome.Modal
		d.prompt = &prompt{
			action:  actions.ActionBlock,
			id:      p.ID.String(),
			sender:  p.Sender,
			subject: p.Subject,
		}
	case msg.outcome.Ack != nil:
		d.handleAck(ackMsg{ack: *msg.outcome.Ack})
	}
}

func (d *Dashboard) handleAck(msg ackMsg) {
	switch {
	case errors.Is(msg.err, actions.ErrNoPendingBlock):
		d.AddLog("WARN", "no block awaiting confirmation")
	case msg.err != nil:
		d.AddLog("ERROR", msg.err.Error())
	case msg.ack.OK:
		d.AddLog("INFO", msg.ack.Message)
		d.spinner.Start()
	default:
		d.AddLog("ERROR", msg.ack.Message)
	}
}

// answer resolves the open prompt
func (d *Dashboard) answer(key string) tea.Cmd {
	p := d.prompt
	ctx, h, gate := d.ctx, d.console.Actions(), d.gate

	switch key {
	case "y", "enter":
		d.prompt = nil
		if p.action == actions.ActionUnblock {
			return func() tea.Msg {
				ack, err := h.Unblock(ctx, p.sender)
				return ackMsg{ack: ack, err: err}
			}
		}
		return func() tea.Msg {
			ack, err := h.ConfirmBlock(ctx, gate, p.id)
			return ackMsg{ack: ack, err: err}
		}

	case "n", "esc", "ctrl+c":
		d.prompt = nil
		if p.action == actions.ActionBlock {
			h.CancelBlock(gate)
		}
	}
	return nil
}

// View renders the dashboard
func (d *Dashboard) View() string {
	if d.width == 0 {
		return "Loading..."
	}

	var b strings.Builder

	b.WriteString(d.renderHeader())
	b.WriteString("\n")

	if urgent := d.renderUrgent(); urgent != "" {
		b.WriteString(urgent)
		b.WriteString("\n")
	}

	b.WriteString(PanelStyle.Render(d.table.View()))
	b.WriteString("\n")

	if d.prompt != nil {
		b.WriteString(d.renderPrompt())
		b.WriteString("\n")
	} else {
		b.WriteString(lipgloss.JoinHorizontal(
			lipgloss.Top,
			d.stats.Render(d.console.Stats(), d.snap.Updated, time.Now()),
			d.renderLogPanel(),
		))
		b.WriteString("\n")
	}

	b.WriteString(d.renderFooter())

	return b.String()
}

// renderHeader renders the title, navigation and threat status
func (d *Dashboard) renderHeader() string {
	title := TitleStyle.Render(MiniBanner)

	var tabs []string
	active := d.router.Active()
	for i, p := range d.router.Panels() {
		label := fmt.Sprintf("%d %s", i+1, p.Title)
		if p.View == active {
			tabs = append(tabs, NavActiveStyle.Render(label))
		} else {
			tabs = append(tabs, NavStyle.Render(label))
		}
	}

	status := SuccessStyle.Render("● System Protected")
	if d.snap.ThreatsDetected() {
		status = ErrorStyle.Render("▲ Threats Detected")
	}
	status += HelpStyle.Render(fmt.Sprintf("  %d threats blocked", d.snap.Stats.ThreatsBlocked))

	user := ""
	if d.snap.HasProfile {
		user = InfoStyle.Render(d.snap.Profile.Name)
	}

	left := title + " " + strings.Join(tabs, "")
	right := d.spinner.Render() + "  " + status + "  " + user

	padding := d.width - lipgloss.Width(left) - lipgloss.Width(right)
	if padding < 1 {
		return left + "\n" + right
	}
	return left + strings.Repeat(" ", padding) + right
}

// renderUrgent renders the active view's urgent alerts, empty when none
func (d *Dashboard) renderUrgent() string {
	alerts := d.snap.UrgentAlerts(d.router.Active().AlertOrigins()...)
	if len(alerts) == 0 {
		return ""
	}

	var b strings.Builder
	b.WriteString(ErrorStyle.Render("Urgent Alerts"))
	for _, a := range alerts {
		b.WriteString("\n")
		b.WriteString(d.risk.Render(a.RiskScore()))
		b.WriteString(" ")
		switch a.Origin {
		case types.OriginEmail:
			line := fmt.Sprintf("%s | From: %s", a.Email.Subject, a.Email.Sender)
			if a.Email.AutoBlocked {
				line += " " + ErrorStyle.Render("AUTO-BLOCKED")
			}
			b.WriteString(line)
		case types.OriginNetwork:
			b.WriteString(fmt.Sprintf("Urgent Network Alert: %s | Source IP: %s", a.Log.Category, a.Log.IP))
		case types.OriginBank:
			b.WriteString(fmt.Sprintf("Bank Fraud Detected: %s | %s $%s", a.Txn.AccountID, a.Txn.Merchant, a.Txn.Amount.StringFixed(2)))
		}
	}
	return UrgentPanelStyle.Width(d.width - 2).Render(b.String())
}

// renderPrompt renders the open confirmation
func (d *Dashboard) renderPrompt() string {
	var b strings.Builder
	if d.prompt.action == actions.ActionUnblock {
		b.WriteString(WarningStyle.Render("Unblock " + d.prompt.sender + "?"))
	} else {
		b.WriteString(WarningStyle.Render("Confirm Block"))
		b.WriteString("\n\n")
		b.WriteString("Sender: " + d.prompt.sender + "\n")
		b.WriteString("Subject: " + d.prompt.subject)
	}
	b.WriteString("\n\n")
	b.WriteString(RenderHelp("y", "confirm") + "  " + RenderHelp("n", "cancel"))
	return ModalStyle.Render(b.String())
}

// renderLogPanel renders the activity log
func (d *Dashboard) renderLogPanel() string {
	var b strings.Builder

	b.WriteString(HeaderStyle.Render("Activity"))
	b.WriteString("\n")

	startIdx := 0
	if len(d.logs) > 7 {
		startIdx = len(d.logs) - 7
	}

	for _, log := range d.logs[startIdx:] {
		var levelStyle lipgloss.Style
		switch log.Level {
		case "ERROR":
			levelStyle = ErrorStyle
		case "WARN":
			levelStyle = WarningStyle
		default:
			levelStyle = InfoStyle
		}

		b.WriteString(fmt.Sprintf("%s %s %s\n",
			HelpStyle.Render(log.Time.Format("15:04:05")),
			levelStyle.Render(fmt.Sprintf("%-5s", log.Level)),
			log.Message,
		))
	}

	return PanelStyle.Width(d.width/2 - 2).Render(b.String())
}

// renderFooter renders the footer with help text
func (d *Dashboard) renderFooter() string {
	helps := []string{
		RenderHelp("1-4", "view"),
		RenderHelp("↑/↓", "select"),
	}
	switch d.router.Active() {
	case view.Dashboard:
		helps = append(helps, RenderHelp("b", "block"))
	case view.ThreatLogs:
		helps = append(helps, RenderHelp("u", "unblock"))
	}
	helps = append(helps, RenderHelp("r", "refresh"), RenderHelp("q", "quit"))

	return FooterStyle.Render(strings.Join(helps, "  "))
}

// Run starts the TUI and forwards store updates to it until it exits
func Run(ctx context.Context, c *console.Console) error {
	d := NewDashboard(ctx, c)
	p := tea.NewProgram(d, tea.WithAltScreen(), tea.WithContext(ctx))

	updates := make(chan types.Endpoint, 32)
	unsubscribe := c.Store().Subscribe(func(ep types.Endpoint) {
		select {
		case updates <- ep:
		default:
		}
	})
	defer unsubscribe()

	done := make(chan struct{})
	defer close(done)
	go func() {
		for {
			select {
			case <-done:
				return
			case ep := <-updates:
				p.Send(StoreUpdateMsg{Endpoint: ep})
			}
		}
	}()

	_, err := p.Run()
	if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		return nil
	}
	return err
}
