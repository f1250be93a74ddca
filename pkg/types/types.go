// Package types defines the records aegisdash receives from the Aegis backend.
package types

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Endpoint names one backend feed
type Endpoint string

const (
	EndpointEmails           Endpoint = "emails"
	EndpointBlocked          Endpoint = "blocked"
	EndpointLoginLogs        Endpoint = "login-logs"
	EndpointBankTransactions Endpoint = "bank-transactions"
	EndpointProfile          Endpoint = "profile"
)

// Endpoints lists every polled feed in registration order
func Endpoints() []Endpoint {
	return []Endpoint{
		EndpointEmails,
		EndpointBlocked,
		EndpointLoginLogs,
		EndpointBankTransactions,
		EndpointProfile,
	}
}

// Email is a scanned message with its backend risk assessment
type Email struct {
	ID          string `json:"id"`
	Sender      string `json:"sender"`
	Subject     string `json:"subject"`
	Snippet     string `json:"snippet,omitempty"`
	Category    string `json:"category"`
	RiskScore   int    `json:"risk_score"`
	RiskReason  string `json:"risk_reason"`
	AutoBlocked bool   `json:"auto_blocked"`
	IsBlocked   bool   `json:"is_blocked,omitempty"`
	Timestamp   string `json:"timestamp"`
}

// Stats is the summary block returned next to the email feed
type Stats struct {
	ThreatsBlocked int    `json:"threats_blocked"`
	TotalScanned   int    `json:"total_scanned,omitempty"`
	SystemStatus   string `json:"system_status,omitempty"`
}

// EmailFeed is the decoded /api/emails payload
type EmailFeed struct {
	Emails []Email `json:"emails"`
	Stats  Stats   `json:"stats"`
}

// LoginLogEntry is one login/network event scored by the backend
type LoginLogEntry struct {
	Timestamp string `json:"timestamp"`
	IP        string `json:"ip"`
	Service   string `json:"service"`
	Proto     string `json:"proto"`
	State     string `json:"state"`
	Category  string `json:"category"`
	RiskScore int    `json:"risk_score"`
}

// BankTransaction is one account movement with its fraud verdict
type BankTransaction struct {
	TransactionID string          `json:"transaction_id,omitempty"`
	AccountID     string          `json:"account_id"`
	Date          string          `json:"date"`
	Merchant      string          `json:"merchant"`
	Type          string          `json:"type"`
	Amount        decimal.Decimal `json:"amount"`
	Location      string          `json:"location"`
	IsFraud       bool            `json:"is_fraud"`
	RiskScore     int             `json:"risk_score"`
	Reason        string          `json:"reason,omitempty"`
}

// BankFeed is the decoded /api/bank-transactions payload
type BankFeed struct {
	AccountID    string            `json:"account_id"`
	Transactions []BankTransaction `json:"transactions"`
}

// BlockedSender is an entry of the backend block list
type BlockedSender struct {
	Email        string    `json:"email"`
	EmailSubject string    `json:"email_subject"`
	Reason       string    `json:"reason"`
	BlockedAt    Timestamp `json:"blocked_at"`
	AutoBlocked  bool      `json:"auto_blocked"`
}

// Profile describes the signed-in backend user
type Profile struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Picture string `json:"picture"`
}

// BlockRequest is the body of POST /api/block
type BlockRequest struct {
	Sender    string `json:"sender"`
	Subject   string `json:"subject"`
	Reason    string `json:"reason"`
	MessageID string `json:"message_id"`
}

// UnblockRequest is the body of POST /api/unblock
type UnblockRequest struct {
	SenderEmail string `json:"sender_email"`
}

// AlertOrigin tags where an urgent alert came from
type AlertOrigin string

const (
	OriginEmail   AlertOrigin = "email"
	OriginNetwork AlertOrigin = "network"
	OriginBank    AlertOrigin = "bank"
)

// UrgentAlert wraps one high-risk record. Exactly one of the record
// pointers is set, matching Origin.
type UrgentAlert struct {
	Origin AlertOrigin
	Email  *Email
	Log    *LoginLogEntry
	Txn    *BankTransaction
}

// RiskScore returns the score of the wrapped record
func (a UrgentAlert) RiskScore() int {
	switch a.Origin {
	case OriginEmail:
		return a.Email.RiskScore
	case OriginNetwork:
		return a.Log.RiskScore
	case OriginBank:
		return a.Txn.RiskScore
	default:
		return 0
	}
}

// Timestamp accepts both RFC 3339 and the backend's naive ISO format
// (Python's datetime.isoformat without a zone).
type Timestamp struct {
	time.Time
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05",
}

// UnmarshalJSON implements json.Unmarshaler
func (t *Timestamp) UnmarshalJSON(data []byte) error {
	if bytes.Equal(data, []byte("null")) {
		t.Time = time.Time{}
		return nil
	}

	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("timestamp: %w", err)
	}
	if s == "" {
		t.Time = time.Time{}
		return nil
	}

	for _, layout := range timestampLayouts {
		if parsed, err := time.Parse(layout, s); err == nil {
			t.Time = parsed
			return nil
		}
	}
	return fmt.Errorf("timestamp: unrecognized format %q", s)
}

// MarshalJSON implements json.Marshaler
func (t Timestamp) MarshalJSON() ([]byte, error) {
	if t.IsZero() {
		return []byte(`""`), nil
	}
	return json.Marshal(t.Format(time.RFC3339Nano))
}
