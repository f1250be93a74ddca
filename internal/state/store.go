// Package state holds the dashboard's client-side view of the backend: the
// latest copy of every feed plus the urgent subsets derived from them.
// Feeds are replaced wholesale on every applied fetch and the derived
// subsets are recomputed from scratch each time.
package state

import (
	"sync"
	"time"

	"github.com/aegisai/aegisdash/internal/policy"
	"github.com/aegisai/aegisdash/pkg/types"
)

// Urgent holds the high-risk subsets of the current feeds
type Urgent struct {
	Emails []types.Email
	Logs   []types.LoginLogEntry
	Txns   []types.BankTransaction
}

// Snapshot is an immutable copy of the store. Slices are shared with the
// store and must be treated as read-only.
type Snapshot struct {
	Emails     []types.Email
	Stats      types.Stats
	Blocked    []types.BlockedSender
	LoginLogs  []types.LoginLogEntry
	Bank       types.BankFeed
	Profile    types.Profile
	HasProfile bool
	Urgent     Urgent
	Thresholds policy.Thresholds
	Version    uint64
	Updated    map[types.Endpoint]time.Time
}

// Store is the shared client state
type Store struct {
	mu sync.RWMutex
	th policy.Thresholds

	emails     []types.Email
	stats      types.Stats
	blocked    []types.BlockedSender
	logs       []types.LoginLogEntry
	bank       types.BankFeed
	profile    types.Profile
	hasProfile bool
	urgent     Urgent
	version    uint64
	updated    map[types.Endpoint]time.Time

	subMu   sync.Mutex
	subs    map[int]func(types.Endpoint)
	nextSub int
}

// NewStore creates an empty store using th to derive urgent subsets
func NewStore(th policy.Thresholds) *Store {
	return &Store{
		th:      th,
		updated: make(map[types.Endpoint]time.Time),
		subs:    make(map[int]func(types.Endpoint)),
	}
}

// SetEmails replaces the email feed and its stats
func (s *Store) SetEmails(feed types.EmailFeed) {
	s.mu.Lock()
	s.emails = feed.Emails
	s.stats = feed.Stats
	s.urgent.Emails = urgentEmails(s.th, feed.Emails)
	s.touch(types.EndpointEmails)
	s.mu.Unlock()

	s.notify(types.EndpointEmails)
}

// SetStats replaces the email stats and keeps the cached list
func (s *Store) SetStats(stats types.Stats) {
	s.mu.Lock()
	s.stats = stats
	s.version++
	s.mu.Unlock()

	s.notify(types.EndpointEmails)
}

// SetBlocked replaces the block list
func (s *Store) SetBlocked(blocked []types.BlockedSender) {
	s.mu.Lock()
	s.blocked = blocked
	s.touch(types.EndpointBlocked)
	s.mu.Unlock()

	s.notify(types.EndpointBlocked)
}

// SetLoginLogs replaces the login/network feed
func (s *Store) SetLoginLogs(logs []types.LoginLogEntry) {
	s.mu.Lock()
	s.logs = logs
	s.urgent.Logs = urgentLogs(s.th, logs)
	s.touch(types.EndpointLoginLogs)
	s.mu.Unlock()

	s.notify(types.EndpointLoginLogs)
}

// SetBankTransactions replaces the transaction feed
func (s *Store) SetBankTransactions(feed types.BankFeed) {
	s.mu.Lock()
	s.bank = feed
	s.urgent.Txns = urgentTxns(s.th, feed.Transactions)
	s.touch(types.EndpointBankTransactions)
	s.mu.Unlock()

	s.notify(types.EndpointBankTransactions)
}

// SetProfile stores the signed-in user
func (s *Store) SetProfile(p types.Profile) {
	s.mu.Lock()
	s.profile = p
	s.hasProfile = true
	s.touch(types.EndpointProfile)
	s.mu.Unlock()

	s.notify(types.EndpointProfile)
}

// SetThresholds swaps the cut-offs and re-derives every urgent subset
func (s *Store) SetThresholds(th policy.Thresholds) {
	s.mu.Lock()
	s.th = th
	s.urgent = Urgent{
		Emails: urgentEmails(th, s.emails),
		Logs:   urgentLogs(th, s.logs),
		Txns:   urgentTxns(th, s.bank.Transactions),
	}
	s.version++
	s.mu.Unlock()

	s.notify(types.EndpointEmails, types.EndpointLoginLogs, types.EndpointBankTransactions)
}

// Snapshot returns the current state
func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	updated := make(map[types.Endpoint]time.Time, len(s.updated))
	for k, v := range s.updated {
		updated[k] = v
	}

	return Snapshot{
		Emails:     s.emails,
		Stats:      s.stats,
		Blocked:    s.blocked,
		LoginLogs:  s.logs,
		Bank:       s.bank,
		Profile:    s.profile,
		HasProfile: s.hasProfile,
		Urgent:     s.urgent,
		Thresholds: s.th,
		Version:    s.version,
		Updated:    updated,
	}
}

// Subscribe registers fn to be called after each update with the changed
// endpoints. fn runs on the updating goroutine and must not block.
func (s *Store) Subscribe(fn func(types.Endpoint)) (unsubscribe func()) {
	s.subMu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = fn
	s.subMu.Unlock()

	return func() {
		s.subMu.Lock()
		delete(s.subs, id)
		s.subMu.Unlock()
	}
}

func (s *Store) touch(ep types.Endpoint) {
	s.version++
	s.updated[ep] = time.Now()
}

func (s *Store) notify(eps ...types.Endpoint) {
	s.subMu.Lock()
	fns := make([]func(types.Endpoint), 0, len(s.subs))
	for _, fn := range s.subs {
		fns = append(fns, fn)
	}
	s.subMu.Unlock()

	for _, ep := range eps {
		for _, fn := range fns {
			fn(ep)
		}
	}
}

func urgentEmails(th policy.Thresholds, emails []types.Email) []types.Email {
	var out []types.Email
	for _, e := range emails {
		if th.UrgentEmail(e) {
			out = append(out, e)
		}
	}
	return out
}

func urgentLogs(th policy.Thresholds, logs []types.LoginLogEntry) []types.LoginLogEntry {
	var out []types.LoginLogEntry
	for _, l := range logs {
		if th.UrgentLog(l) {
			out = append(out, l)
		}
	}
	return out
}

func urgentTxns(th policy.Thresholds, txns []types.BankTransaction) []types.BankTransaction {
	var out []types.BankTransaction
	for _, tx := range txns {
		if th.UrgentTxn(tx) {
			out = append(out, tx)
		}
	}
	return out
}

// UrgentAlerts returns the urgent records tagged by origin: emails, then
// network, then bank. With no origins every origin is included.
func (s Snapshot) UrgentAlerts(origins ...types.AlertOrigin) []types.UrgentAlert {
	want := func(o types.AlertOrigin) bool {
		if len(origins) == 0 {
			return true
		}
		for _, x := range origins {
			if x == o {
				return true
			}
		}
		return false
	}

	var alerts []types.UrgentAlert
	if want(types.OriginEmail) {
		for i := range s.Urgent.Emails {
			alerts = append(alerts, types.UrgentAlert{Origin: types.OriginEmail, Email: &s.Urgent.Emails[i]})
		}
	}
	if want(types.OriginNetwork) {
		for i := range s.Urgent.Logs {
			alerts = append(alerts, types.UrgentAlert{Origin: types.OriginNetwork, Log: &s.Urgent.Logs[i]})
		}
	}
	if want(types.OriginBank) {
		for i := range s.Urgent.Txns {
			alerts = append(alerts, types.UrgentAlert{Origin: types.OriginBank, Txn: &s.Urgent.Txns[i]})
		}
	}
	return alerts
}

// ThreatsDetected reports whether the status header should warn
func (s Snapshot) ThreatsDetected() bool {
	return s.Thresholds.ThreatsDetected(s.Emails)
}
