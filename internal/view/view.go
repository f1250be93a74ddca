// Package view implements the dashboard's view router: four mutually
// exclusive panels, one of which is visible at a time.
package view

import (
	"errors"
	"fmt"
	"sync"

	"github.com/aegisai/aegisdash/pkg/types"
)

// View is a dashboard panel
type View string

const (
	Dashboard        View = "dashboard"
	ThreatLogs       View = "threat-logs"
	LoginLogs        View = "login-logs"
	BankTransactions View = "bank-transactions"
)

// ErrUnknownView is returned for names outside the view set
var ErrUnknownView = errors.New("view: unknown view")

// All returns the views in navigation order
func All() []View {
	return []View{Dashboard, ThreatLogs, LoginLogs, BankTransactions}
}

// Parse validates a view name
func Parse(name string) (View, error) {
	for _, v := range All() {
		if string(v) == name {
			return v, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownView, name)
}

// Title returns the navigation label
func (v View) Title() string {
	switch v {
	case Dashboard:
		return "Dashboard"
	case ThreatLogs:
		return "Threat Logs"
	case LoginLogs:
		return "Login Logs"
	case BankTransactions:
		return "Bank Transactions"
	default:
		return string(v)
	}
}

// Refresh lists the feeds re-fetched when the view is entered
func (v View) Refresh() []types.Endpoint {
	switch v {
	case ThreatLogs:
		return []types.Endpoint{types.EndpointBlocked}
	case LoginLogs:
		return []types.Endpoint{types.EndpointLoginLogs}
	case BankTransactions:
		return []types.Endpoint{types.EndpointBankTransactions}
	default:
		return nil
	}
}

// AlertOrigins lists the urgent-alert origins shown on the view
func (v View) AlertOrigins() []types.AlertOrigin {
	switch v {
	case Dashboard:
		return []types.AlertOrigin{types.OriginEmail, types.OriginNetwork, types.OriginBank}
	case LoginLogs:
		return []types.AlertOrigin{types.OriginNetwork}
	case BankTransactions:
		return []types.AlertOrigin{types.OriginBank}
	default:
		return nil
	}
}

// UrgentTarget is the id of the view's urgent-alert container, empty if
// the view has none
func (v View) UrgentTarget() string {
	switch v {
	case Dashboard:
		return "urgent-container"
	case LoginLogs:
		return "urgent-container-login"
	case BankTransactions:
		return "urgent-container-bank"
	default:
		return ""
	}
}

// ForAlert returns the view an alert card's action button leads to:
// "Investigate" on network alerts, "View Details" on bank alerts.
func ForAlert(origin types.AlertOrigin) (View, bool) {
	switch origin {
	case types.OriginNetwork:
		return LoginLogs, true
	case types.OriginBank:
		return BankTransactions, true
	default:
		return "", false
	}
}

// Panel is one entry of the navigation and its visibility
type Panel struct {
	View    View
	Title   string
	Visible bool
}

// Refresher triggers eager fetches
type Refresher interface {
	Refresh(endpoints ...types.Endpoint) error
}

// Router tracks the active view for one viewer
type Router struct {
	mu        sync.Mutex
	active    View
	refresher Refresher
}

// NewRouter starts on the dashboard view. refresher may be nil.
func NewRouter(refresher Refresher) *Router {
	return &Router{
		active:    Dashboard,
		refresher: refresher,
	}
}

// Navigate makes v the only visible view and re-fetches its feeds. A
// failed refresh does not undo the switch.
func (r *Router) Navigate(v View) error {
	if _, err := Parse(string(v)); err != nil {
		return err
	}

	r.mu.Lock()
	r.active = v
	r.mu.Unlock()

	if r.refresher == nil {
		return nil
	}
	if eps := v.Refresh(); len(eps) > 0 {
		return r.refresher.Refresh(eps...)
	}
	return nil
}

// Active returns the visible view
func (r *Router) Active() View {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.active
}

// Panels returns every view with exactly one marked visible
func (r *Router) Panels() []Panel {
	active := r.Active()

	panels := make([]Panel, 0, 4)
	for _, v := range All() {
		panels = append(panels, Panel{
			View:    v,
			Title:   v.Title(),
			Visible: v == active,
		})
	}
	return panels
}
