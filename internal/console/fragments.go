package console

import (
	"errors"
	"fmt"
	"html/template"

	"github.com/aegisai/aegisdash/internal/render"
	"github.com/aegisai/aegisdash/internal/state"
	"github.com/aegisai/aegisdash/internal/view"
	"github.com/aegisai/aegisdash/pkg/types"
)

// ErrUnknownFragment is returned for names with no renderer
var ErrUnknownFragment = errors.New("console: unknown fragment")

// Fragment is a rendered piece of the page and whether its section shows
type Fragment struct {
	Target  string        `json:"target"`
	HTML    template.HTML `json:"html"`
	Visible bool          `json:"visible"`
}

// Urgent-alert containers, one per view that shows alerts
var urgentTargets = []string{
	view.Dashboard.UrgentTarget(),
	view.LoginLogs.UrgentTarget(),
	view.BankTransactions.UrgentTarget(),
}

// FragmentNames lists every shared fragment in page order. The modal is
// per-session and not included.
func FragmentNames() []string {
	names := []string{
		render.FragStatus,
		render.FragProfile,
	}
	names = append(names, urgentTargets...)
	return append(names,
		render.FragEmails,
		render.FragBlocked,
		render.FragLoginLogs,
		render.FragBankTransactions,
		render.FragAccount,
	)
}

// FragmentsFor lists the fragments that change when ep is updated
func FragmentsFor(ep types.Endpoint) []string {
	switch ep {
	case types.EndpointEmails:
		return []string{render.FragEmails, render.FragStatus, view.Dashboard.UrgentTarget()}
	case types.EndpointBlocked:
		return []string{render.FragBlocked}
	case types.EndpointLoginLogs:
		return []string{render.FragLoginLogs, view.Dashboard.UrgentTarget(), view.LoginLogs.UrgentTarget()}
	case types.EndpointBankTransactions:
		return []string{render.FragBankTransactions, render.FragAccount, view.Dashboard.UrgentTarget(), view.BankTransactions.UrgentTarget()}
	case types.EndpointProfile:
		return []string{render.FragProfile}
	default:
		return nil
	}
}

// Fragment renders one named fragment from the current state. sess is
// only needed for the modal.
func (c *Console) Fragment(name string, sess *Session) (Fragment, error) {
	return c.fragment(name, c.store.Snapshot(), sess)
}

// Fragments renders every shared fragment from one snapshot
func (c *Console) Fragments() ([]Fragment, error) {
	snap := c.store.Snapshot()

	out := make([]Fragment, 0, len(FragmentNames()))
	for _, name := range FragmentNames() {
		f, err := c.fragment(name, snap, nil)
		if err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	return out, nil
}

func (c *Console) fragment(name string, snap state.Snapshot, sess *Session) (Fragment, error) {
	r := c.Renderer()
	f := Fragment{Target: name, Visible: true}

	var err error
	switch name {
	case render.FragEmails:
		f.HTML, err = r.Emails(snap.Emails)
	case render.FragBlocked:
		f.HTML, err = r.Blocked(snap.Blocked)
	case render.FragLoginLogs:
		f.HTML, err = r.LoginLogs(snap.LoginLogs)
	case render.FragBankTransactions:
		f.HTML, err = r.BankTransactions(snap.Bank.Transactions)
	case render.FragAccount:
		f.HTML, err = r.Account(snap.Bank.AccountID)
	case render.FragStatus:
		f.HTML, err = r.Status(snap.Stats, snap.Emails)
	case render.FragProfile:
		f.Visible = snap.HasProfile
		if snap.HasProfile {
			f.HTML, err = r.Profile(snap.Profile)
		}
	case render.FragModal:
		f.Visible = false
		if sess != nil {
			if p, ok := sess.Gate.Pending(); ok {
				f.Visible = true
				f.HTML, err = r.Modal(p)
			}
		}
	default:
		v, ok := urgentView(name)
		if !ok {
			return Fragment{}, fmt.Errorf("%w: %q", ErrUnknownFragment, name)
		}
		alerts := snap.UrgentAlerts(v.AlertOrigins()...)
		f.Visible = len(alerts) > 0
		f.HTML, err = r.Urgent(alerts)
	}
	if err != nil {
		return Fragment{}, err
	}
	return f, nil
}

func urgentView(target string) (view.View, bool) {
	for _, v := range view.All() {
		if t := v.UrgentTarget(); t != "" && t == target {
			return v, true
		}
	}
	return "", false
}
