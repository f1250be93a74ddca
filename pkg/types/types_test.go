package types

import (
	"encoding/json"
	"testing"
)

func TestTimestamp_NaiveISO(t *testing.T) {
	var b BlockedSender
	data := `{"email":"a@x.com","blocked_at":"2025-01-02T10:11:12.345678","auto_blocked":true}`

	if err := json.Unmarshal([]byte(data), &b); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}

	if b.BlockedAt.Year() != 2025 || b.BlockedAt.Hour() != 10 {
		t.Errorf("Unexpected time: %v", b.BlockedAt)
	}

	if !b.AutoBlocked {
		t.Error("Expected auto_blocked to be true")
	}
}

func TestTimestamp_RFC3339(t *testing.T) {
	var ts Timestamp
	if err := json.Unmarshal([]byte(`"2025-03-04T05:06:07Z"`), &ts); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}
	if ts.Minute() != 6 {
		t.Errorf("Expected minute 6, got %d", ts.Minute())
	}
}

func TestTimestamp_Invalid(t *testing.T) {
	var ts Timestamp
	if err := json.Unmarshal([]byte(`"yesterday"`), &ts); err == nil {
		t.Error("Expected error for unparseable timestamp")
	}
}

func TestTimestamp_Empty(t *testing.T) {
	var ts Timestamp
	if err := json.Unmarshal([]byte(`""`), &ts); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}
	if !ts.IsZero() {
		t.Error("Expected zero time")
	}
}

func TestBankTransaction_Amount(t *testing.T) {
	var tx BankTransaction
	if err := json.Unmarshal([]byte(`{"amount": 412.5, "is_fraud": true}`), &tx); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}
	if got := tx.Amount.StringFixed(2); got != "412.50" {
		t.Errorf("Expected 412.50, got %s", got)
	}
}

func TestUrgentAlert_RiskScore(t *testing.T) {
	e := &Email{RiskScore: 70}
	l := &LoginLogEntry{RiskScore: 85}
	tx := &BankTransaction{RiskScore: 91}

	tests := []struct {
		alert UrgentAlert
		want  int
	}{
		{UrgentAlert{Origin: OriginEmail, Email: e}, 70},
		{UrgentAlert{Origin: OriginNetwork, Log: l}, 85},
		{UrgentAlert{Origin: OriginBank, Txn: tx}, 91},
		{UrgentAlert{}, 0},
	}

	for _, tt := range tests {
		if got := tt.alert.RiskScore(); got != tt.want {
			t.Errorf("RiskScore(%s) = %d, want %d", tt.alert.Origin, got, tt.want)
		}
	}
}
