package state

import (
	"sync"
	"testing"

	"github.com/aegisai/aegisdash/internal/policy"
	"github.com/aegisai/aegisdash/pkg/types"
)

func TestStore_UrgentSubsets(t *testing.T) {
	s := NewStore(policy.DefaultThresholds())

	s.SetEmails(types.EmailFeed{Emails: []types.Email{
		{ID: "m1", RiskScore: 82},
		{ID: "m2", RiskScore: 64},
		{ID: "m3", RiskScore: 65},
	}})
	s.SetLoginLogs([]types.LoginLogEntry{
		{IP: "10.0.0.1", RiskScore: 79},
		{IP: "10.0.0.2", RiskScore: 80},
	})
	s.SetBankTransactions(types.BankFeed{Transactions: []types.BankTransaction{
		{Merchant: "Steam", IsFraud: true, RiskScore: 10},
		{Merchant: "Cafe", IsFraud: false, RiskScore: 99},
	}})

	snap := s.Snapshot()
	if len(snap.Urgent.Emails) != 2 {
		t.Errorf("Expected 2 urgent emails, got %d", len(snap.Urgent.Emails))
	}
	if len(snap.Urgent.Logs) != 1 || snap.Urgent.Logs[0].IP != "10.0.0.2" {
		t.Errorf("Expected only the 80-score log, got %+v", snap.Urgent.Logs)
	}
	if len(snap.Urgent.Txns) != 1 || snap.Urgent.Txns[0].Merchant != "Steam" {
		t.Errorf("Expected only the fraud transaction, got %+v", snap.Urgent.Txns)
	}
}

func TestStore_ReplacedWholesale(t *testing.T) {
	s := NewStore(policy.DefaultThresholds())

	s.SetEmails(types.EmailFeed{Emails: []types.Email{{ID: "m1", RiskScore: 90}}})
	s.SetEmails(types.EmailFeed{Emails: []types.Email{{ID: "m2", RiskScore: 10}}})

	snap := s.Snapshot()
	if len(snap.Emails) != 1 || snap.Emails[0].ID != "m2" {
		t.Errorf("Expected feed to be replaced, got %+v", snap.Emails)
	}
	if len(snap.Urgent.Emails) != 0 {
		t.Errorf("Expected previous urgent set discarded, got %+v", snap.Urgent.Emails)
	}
	if _, ok := snap.Updated[types.EndpointEmails]; !ok {
		t.Error("Expected update time recorded for emails")
	}
}

func TestSnapshot_UrgentAlertsOrder(t *testing.T) {
	s := NewStore(policy.DefaultThresholds())

	s.SetBankTransactions(types.BankFeed{Transactions: []types.BankTransaction{{Merchant: "Steam", IsFraud: true}}})
	s.SetLoginLogs([]types.LoginLogEntry{{IP: "10.0.0.9", RiskScore: 95}})
	s.SetEmails(types.EmailFeed{Emails: []types.Email{{ID: "m1", RiskScore: 70}}})

	alerts := s.Snapshot().UrgentAlerts()
	if len(alerts) != 3 {
		t.Fatalf("Expected 3 alerts, got %d", len(alerts))
	}

	want := []types.AlertOrigin{types.OriginEmail, types.OriginNetwork, types.OriginBank}
	for i, a := range alerts {
		if a.Origin != want[i] {
			t.Errorf("Alert %d: expected origin %s, got %s", i, want[i], a.Origin)
		}
	}
	if alerts[1].RiskScore() != 95 {
		t.Errorf("Expected network alert score 95, got %d", alerts[1].RiskScore())
	}

	network := s.Snapshot().UrgentAlerts(types.OriginNetwork)
	if len(network) != 1 || network[0].Log == nil {
		t.Errorf("Expected one network alert, got %+v", network)
	}

	none := s.Snapshot().UrgentAlerts(types.OriginBank, types.OriginEmail)
	if len(none) != 2 || none[0].Origin != types.OriginEmail {
		t.Errorf("Expected email then bank, got %+v", none)
	}
}

func TestSnapshot_ThreatsDetected(t *testing.T) {
	s := NewStore(policy.DefaultThresholds())

	s.SetEmails(types.EmailFeed{Emails: []types.Email{{RiskScore: 69}}})
	if s.Snapshot().ThreatsDetected() {
		t.Error("69 should not raise the status")
	}

	s.SetEmails(types.EmailFeed{Emails: []types.Email{{RiskScore: 70}}})
	if !s.Snapshot().ThreatsDetected() {
		t.Error("70 should raise the status")
	}
}

func TestStore_SetThresholds(t *testing.T) {
	s := NewStore(policy.DefaultThresholds())
	s.SetEmails(types.EmailFeed{Emails: []types.Email{{ID: "m1", RiskScore: 60}}})

	if len(s.Snapshot().Urgent.Emails) != 0 {
		t.Fatal("60 should not be urgent by default")
	}

	th := policy.DefaultThresholds()
	th.EmailUrgent = 55
	s.SetThresholds(th)

	if len(s.Snapshot().Urgent.Emails) != 1 {
		t.Error("Expected urgent set re-derived with new threshold")
	}
}

func TestStore_Subscribe(t *testing.T) {
	s := NewStore(policy.DefaultThresholds())

	var mu sync.Mutex
	var got []types.Endpoint
	unsubscribe := s.Subscribe(func(ep types.Endpoint) {
		mu.Lock()
		got = append(got, ep)
		mu.Unlock()
	})

	s.SetBlocked(nil)
	s.SetProfile(types.Profile{Name: "Admin"})
	unsubscribe()
	s.SetBlocked(nil)

	mu.Lock()
	defer mu.Unlock()
	if len(got) != 2 {
		t.Fatalf("Expected 2 notifications, got %d", len(got))
	}
	if got[0] != types.EndpointBlocked || got[1] != types.EndpointProfile {
		t.Errorf("Unexpected notifications %v", got)
	}

	if !s.Snapshot().HasProfile {
		t.Error("Expected profile to be recorded")
	}
}
