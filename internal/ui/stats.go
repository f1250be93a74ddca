package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/aegisai/aegisdash/internal/console"
	"github.com/aegisai/aegisdash/pkg/types"
)

// StatsView renders the poller and transport panel
type StatsView struct {
	width int
}

// NewStatsView creates a new stats view
func NewStatsView(width int) *StatsView {
	return &StatsView{width: width}
}

// SetSize updates the view width
func (v *StatsView) SetSize(width int) {
	v.width = width
}

// Render renders the stats view
func (v *StatsView) Render(stats console.Stats, updated map[types.Endpoint]time.Time, now time.Time) string {
	var b strings.Builder

	b.WriteString(HeaderStyle.Render("Feeds"))
	b.WriteString("\n")

	for _, ep := range types.Endpoints() {
		st, ok := stats.Polls[ep]
		if !ok {
			continue
		}

		age := "never"
		if at, ok := updated[ep]; ok {
			age = formatDuration(now.Sub(at)) + " ago"
		}

		line := fmt.Sprintf("%-18s every %-6s ok %s  stale %s  ",
			ep, formatDuration(st.Interval), formatNumber(st.Applied), formatNumber(st.Stale))
		b.WriteString(line)
		if st.Failed > 0 {
			b.WriteString(ErrorStyle.Render("fail " + formatNumber(st.Failed)))
		} else {
			b.WriteString(SuccessStyle.Render("fail 0"))
		}
		b.WriteString(HelpStyle.Render("  " + age))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(RenderLabelValue("Requests", formatNumber(stats.Transport.Total)))
	b.WriteString("  ")
	b.WriteString(RenderLabelValue("Failed", formatNumber(stats.Transport.Failed)))
	b.WriteString("\n")
	b.WriteString(RenderLabelValue("Workers", fmt.Sprintf("%d/%d", stats.Pool.Running, stats.Pool.Capacity)))

	return StatsPanelStyle.Width(v.width).Render(b.String())
}

func formatNumber(n int64) string {
	if n < 1000 {
		return fmt.Sprintf("%d", n)
	}
	if n < 1000000 {
		return fmt.Sprintf("%.1fK", float64(n)/1000)
	}
	return fmt.Sprintf("%.1fM", float64(n)/1000000)
}

func formatDuration(d time.Duration) string {
	if d < time.Second {
		return fmt.Sprintf("%dms", d.Milliseconds())
	}
	if d < time.Minute {
		return fmt.Sprintf("%.0fs", d.Seconds())
	}
	if d < time.Hour {
		return fmt.Sprintf("%dm%ds", int(d.Minutes()), int(d.Seconds())%60)
	}
	return fmt.Sprintf("%dh%dm", int(d.Hours()), int(d.Minutes())%60)
}
