package view

import (
	"errors"
	"testing"

	"github.com/aegisai/aegisdash/pkg/types"
)

type recordingRefresher struct {
	calls [][]types.Endpoint
}

func (r *recordingRefresher) Refresh(endpoints ...types.Endpoint) error {
	r.calls = append(r.calls, endpoints)
	return nil
}

func TestRouter_StartsOnDashboard(t *testing.T) {
	r := NewRouter(nil)

	if r.Active() != Dashboard {
		t.Errorf("Expected dashboard, got %s", r.Active())
	}
}

func TestRouter_ExactlyOneVisible(t *testing.T) {
	r := NewRouter(nil)

	for _, v := range All() {
		if err := r.Navigate(v); err != nil {
			t.Fatalf("Navigate(%s) failed: %v", v, err)
		}

		visible := 0
		for _, p := range r.Panels() {
			if p.Visible {
				visible++
				if p.View != v {
					t.Errorf("Expected %s visible, got %s", v, p.View)
				}
			}
		}
		if visible != 1 {
			t.Errorf("Expected exactly 1 visible panel, got %d", visible)
		}
	}
}

func TestRouter_NavigateRefreshes(t *testing.T) {
	tests := []struct {
		view View
		want types.Endpoint
	}{
		{LoginLogs, types.EndpointLoginLogs},
		{BankTransactions, types.EndpointBankTransactions},
		{ThreatLogs, types.EndpointBlocked},
	}

	for _, tt := range tests {
		t.Run(string(tt.view), func(t *testing.T) {
			rec := &recordingRefresher{}
			r := NewRouter(rec)

			if err := r.Navigate(tt.view); err != nil {
				t.Fatalf("Navigate failed: %v", err)
			}
			if len(rec.calls) != 1 || len(rec.calls[0]) != 1 || rec.calls[0][0] != tt.want {
				t.Errorf("Expected refresh of %s, got %v", tt.want, rec.calls)
			}
		})
	}
}

func TestRouter_DashboardNoRefresh(t *testing.T) {
	rec := &recordingRefresher{}
	r := NewRouter(rec)

	_ = r.Navigate(Dashboard)
	if len(rec.calls) != 0 {
		t.Errorf("Expected no refresh for dashboard, got %v", rec.calls)
	}
}

func TestRouter_UnknownView(t *testing.T) {
	r := NewRouter(nil)
	_ = r.Navigate(LoginLogs)

	if err := r.Navigate("settings"); !errors.Is(err, ErrUnknownView) {
		t.Errorf("Expected ErrUnknownView, got %v", err)
	}
	if r.Active() != LoginLogs {
		t.Errorf("Unknown view must not change the active view, got %s", r.Active())
	}
}

func TestForAlert(t *testing.T) {
	if v, ok := ForAlert(types.OriginBank); !ok || v != BankTransactions {
		t.Errorf("Expected bank alert to lead to bank view, got %s", v)
	}
	if v, ok := ForAlert(types.OriginNetwork); !ok || v != LoginLogs {
		t.Errorf("Expected network alert to lead to login logs, got %s", v)
	}
	if _, ok := ForAlert(types.OriginEmail); ok {
		t.Error("Email alerts have no navigation target")
	}
}

func TestView_Containers(t *testing.T) {
	if Dashboard.UrgentTarget() != "urgent-container" {
		t.Errorf("Unexpected dashboard container %q", Dashboard.UrgentTarget())
	}
	if len(Dashboard.AlertOrigins()) != 3 {
		t.Error("Dashboard should show every origin")
	}
	if o := LoginLogs.AlertOrigins(); len(o) != 1 || o[0] != types.OriginNetwork {
		t.Errorf("Login view should show network alerts only, got %v", o)
	}
	if ThreatLogs.UrgentTarget() != "" {
		t.Error("Threat logs has no urgent container")
	}
}
