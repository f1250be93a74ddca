package ui

import (
	"fmt"
	"strings"

	"github.com/aegisai/aegisdash/internal/policy"
)

// RiskBar draws a 0..100 risk score as a bar coloured by tier
type RiskBar struct {
	width int
	th    policy.Thresholds
}

// NewRiskBar creates a risk bar of the given cell width
func NewRiskBar(width int, th policy.Thresholds) *RiskBar {
	if width < 5 {
		width = 5
	}
	return &RiskBar{width: width, th: th}
}

// Render renders score. Out-of-range scores are clamped.
func (r *RiskBar) Render(score int) string {
	if score < 0 {
		score = 0
	}
	if score > policy.MaxScore {
		score = policy.MaxScore
	}

	filled := r.width * score / policy.MaxScore
	style := TierStyle(r.th.EmailTier(score))

	var b strings.Builder
	b.WriteString(style.Render(strings.Repeat("█", filled)))
	b.WriteString(RiskEmptyStyle.Render(strings.Repeat("░", r.width-filled)))
	b.WriteString(" ")
	b.WriteString(style.Render(fmt.Sprintf("%3d%%", score)))
	return b.String()
}

// SpinnerProgress shows that refreshes are in flight
type SpinnerProgress struct {
	frame  int
	active bool
	text   string
}

// NewSpinnerProgress creates a new spinner
func NewSpinnerProgress() *SpinnerProgress {
	return &SpinnerProgress{text: "Refreshing..."}
}

// SetText sets the spinner text
func (s *SpinnerProgress) SetText(text string) {
	s.text = text
}

// Start starts the spinner
func (s *SpinnerProgress) Start() {
	s.active = true
}

// Stop stops the spinner
func (s *SpinnerProgress) Stop() {
	s.active = false
}

// Active reports whether the spinner is running
func (s *SpinnerProgress) Active() bool {
	return s.active
}

// Tick advances the spinner animation
func (s *SpinnerProgress) Tick() {
	if s.active {
		s.frame = (s.frame + 1) % len(SpinnerChars)
	}
}

// Render renders the spinner
func (s *SpinnerProgress) Render() string {
	if !s.active {
		return ""
	}
	return InfoStyle.Render(SpinnerChars[s.frame] + " " + s.text)
}
