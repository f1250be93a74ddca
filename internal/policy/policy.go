// Package policy holds the risk thresholds the dashboard applies to
// backend scores: urgent-alert cut-offs, display tiers and the block
// policy table shared by every rendering context.
package policy

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/aegisai/aegisdash/pkg/types"
)

// MaxScore is the upper bound of a backend risk score
const MaxScore = 100

// Control describes how a block control is drawn
type Control string

const (
	ControlHidden   Control = "hidden"
	ControlEnabled  Control = "enabled"
	ControlDisabled Control = "disabled"
)

// Click describes what happens when a block is requested
type Click string

const (
	ClickImmediate Click = "immediate"
	ClickConfirm   Click = "confirm"
	ClickRejected  Click = "rejected"
)

// Rule maps an inclusive score band to a control and click outcome
type Rule struct {
	Min     int     `yaml:"min" toml:"min"`
	Max     int     `yaml:"max" toml:"max"`
	Control Control `yaml:"control" toml:"control"`
	Click   Click   `yaml:"click" toml:"click"`
}

// Table is an ordered, gap-free list of rules covering 0..MaxScore
type Table struct {
	rules []Rule
}

// DefaultRules is the block policy table. Score 90 is the seam where the
// control is already disabled but an explicit request still asks for
// confirmation.
func DefaultRules() []Rule {
	return []Rule{
		{Min: 0, Max: 49, Control: ControlHidden, Click: ClickImmediate},
		{Min: 50, Max: 74, Control: ControlEnabled, Click: ClickImmediate},
		{Min: 75, Max: 89, Control: ControlEnabled, Click: ClickConfirm},
		{Min: 90, Max: 90, Control: ControlDisabled, Click: ClickConfirm},
		{Min: 91, Max: MaxScore, Control: ControlDisabled, Click: ClickRejected},
	}
}

// Errors
var (
	ErrEmptyTable   = errors.New("policy: table has no rules")
	ErrTableGap     = errors.New("policy: rules must cover 0..100 without gaps or overlaps")
	ErrInvalidValue = errors.New("policy: invalid rule value")
)

// NewTable validates rules and returns a lookup table
func NewTable(rules []Rule) (*Table, error) {
	if len(rules) == 0 {
		return nil, ErrEmptyTable
	}

	sorted := make([]Rule, len(rules))
	copy(sorted, rules)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Min < sorted[j].Min })

	next := 0
	for _, r := range sorted {
		if r.Min != next || r.Max < r.Min {
			return nil, fmt.Errorf("%w: band %d-%d", ErrTableGap, r.Min, r.Max)
		}
		switch r.Control {
		case ControlHidden, ControlEnabled, ControlDisabled:
		default:
			return nil, fmt.Errorf("%w: control %q", ErrInvalidValue, r.Control)
		}
		switch r.Click {
		case ClickImmediate, ClickConfirm, ClickRejected:
		default:
			return nil, fmt.Errorf("%w: click %q", ErrInvalidValue, r.Click)
		}
		next = r.Max + 1
	}
	if next != MaxScore+1 {
		return nil, fmt.Errorf("%w: table ends at %d", ErrTableGap, next-1)
	}

	return &Table{rules: sorted}, nil
}

// DefaultTable returns the table built from DefaultRules
func DefaultTable() *Table {
	t, err := NewTable(DefaultRules())
	if err != nil {
		panic(err)
	}
	return t
}

// Lookup returns the rule for a score. Out-of-range scores are clamped.
func (t *Table) Lookup(score int) Rule {
	score = clamp(score)
	for _, r := range t.rules {
		if score >= r.Min && score <= r.Max {
			return r
		}
	}
	return t.rules[len(t.rules)-1]
}

// Control returns the control state for a score
func (t *Table) Control(score int) Control {
	return t.Lookup(score).Control
}

// Click returns the click outcome for a score
func (t *Table) Click(score int) Click {
	return t.Lookup(score).Click
}

// Rules returns a copy of the table rules in score order
func (t *Table) Rules() []Rule {
	out := make([]Rule, len(t.rules))
	copy(out, t.rules)
	return out
}

func clamp(score int) int {
	if score < 0 {
		return 0
	}
	if score > MaxScore {
		return MaxScore
	}
	return score
}

// Tier is an email risk display tier
type Tier string

const (
	TierSafe     Tier = "safe"
	TierHigh     Tier = "high"
	TierCritical Tier = "critical"
)

// Class returns the CSS class used for the tier
func (t Tier) Class() string {
	return "risk-" + string(t)
}

// Thresholds are the per-category urgent and display cut-offs
type Thresholds struct {
	EmailUrgent  int `yaml:"email_urgent" toml:"email_urgent"`
	LoginUrgent  int `yaml:"login_urgent" toml:"login_urgent"`
	StatusThreat int `yaml:"status_threat" toml:"status_threat"`
	EmailHigh    int `yaml:"email_high" toml:"email_high"`
	EmailCrit    int `yaml:"email_critical" toml:"email_critical"`
	LoginHot     int `yaml:"login_hot" toml:"login_hot"`
}

// DefaultThresholds returns the stock cut-offs
func DefaultThresholds() Thresholds {
	return Thresholds{
		EmailUrgent:  65,
		LoginUrgent:  80,
		StatusThreat: 70,
		EmailHigh:    50,
		EmailCrit:    75,
		LoginHot:     50,
	}
}

// Validate checks every threshold is a valid score
func (th Thresholds) Validate() error {
	for name, v := range map[string]int{
		"email_urgent":   th.EmailUrgent,
		"login_urgent":   th.LoginUrgent,
		"status_threat":  th.StatusThreat,
		"email_high":     th.EmailHigh,
		"email_critical": th.EmailCrit,
		"login_hot":      th.LoginHot,
	} {
		if v < 0 || v > MaxScore {
			return fmt.Errorf("%w: %s=%d", ErrInvalidValue, name, v)
		}
	}
	if th.EmailCrit < th.EmailHigh {
		return fmt.Errorf("%w: email_critical below email_high", ErrInvalidValue)
	}
	return nil
}

// EmailTier classifies an email score (strictly above the cut-offs)
func (th Thresholds) EmailTier(score int) Tier {
	switch {
	case score > th.EmailCrit:
		return TierCritical
	case score > th.EmailHigh:
		return TierHigh
	default:
		return TierSafe
	}
}

// UrgentEmail reports whether an email belongs to the urgent set
func (th Thresholds) UrgentEmail(e types.Email) bool {
	return e.RiskScore >= th.EmailUrgent
}

// UrgentLog reports whether a login event belongs to the urgent set
func (th Thresholds) UrgentLog(l types.LoginLogEntry) bool {
	return l.RiskScore >= th.LoginUrgent
}

// UrgentTxn reports whether a transaction belongs to the urgent set
func (th Thresholds) UrgentTxn(tx types.BankTransaction) bool {
	return tx.IsFraud
}

// ThreatsDetected reports whether the status header should warn
func (th Thresholds) ThreatsDetected(emails []types.Email) bool {
	for _, e := range emails {
		if e.RiskScore >= th.StatusThreat {
			return true
		}
	}
	return false
}

// HotLog reports whether a login score is drawn in the critical colour
func (th Thresholds) HotLog(score int) bool {
	return score > th.LoginHot
}

// Badge is a login category badge class
type Badge string

const (
	BadgeNormal  Badge = "normal"
	BadgeWarning Badge = "warning"
	BadgeThreat  Badge = "threat"
)

var threatCategories = map[string]bool{
	"brute force":      true,
	"ddos":             true,
	"ddos attack":      true,
	"ransomware entry": true,
}

// CategoryBadge classifies a login category label
func CategoryBadge(category string) Badge {
	c := strings.ToLower(strings.TrimSpace(category))
	switch {
	case threatCategories[c]:
		return BadgeThreat
	case c == "reconnaissance":
		return BadgeWarning
	default:
		return BadgeNormal
	}
}

// TxnBadge classifies a transaction by its fraud flag
func TxnBadge(tx types.BankTransaction) Badge {
	if tx.IsFraud {
		return BadgeThreat
	}
	return BadgeNormal
}
