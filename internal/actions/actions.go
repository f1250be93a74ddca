// Package actions implements the block and unblock flows, including the
// confirmation gate that holds a pending block until the viewer answers
// the modal.
package actions

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/aegisai/aegisdash/internal/logging"
	"github.com/aegisai/aegisdash/internal/metrics"
	"github.com/aegisai/aegisdash/internal/policy"
	"github.com/aegisai/aegisdash/pkg/types"
	"github.com/google/uuid"
)

// Errors
var (
	ErrNoPendingBlock = errors.New("actions: no pending block")
	ErrBlockRejected  = errors.New("actions: sender is already auto-blocked")
	ErrNoSender       = errors.New("actions: sender is required")
)

// Acknowledgment texts
const (
	ConfirmReason = "User confirmed block"
	blockFailed   = "Error blocking sender"
	unblockFailed = "Error unblocking sender"
)

// Action names used for metrics
const (
	ActionBlock   = "block"
	ActionUnblock = "unblock"
)

// Blocker is the backend side of the flows
type Blocker interface {
	Block(ctx context.Context, req types.BlockRequest) (bool, error)
	Unblock(ctx context.Context, senderEmail string) (bool, error)
}

// Refresher triggers eager fetches after a successful action
type Refresher interface {
	Refresh(endpoints ...types.Endpoint) error
}

// Target identifies the email a block was requested for
type Target struct {
	MessageID string `json:"message_id"`
	Sender    string `json:"sender"`
	Subject   string `json:"subject"`
	RiskScore int    `json:"risk_score"`
}

// TargetFromEmail builds a target from a feed record
func TargetFromEmail(e types.Email) Target {
	return Target{
		MessageID: e.ID,
		Sender:    e.Sender,
		Subject:   e.Subject,
		RiskScore: e.RiskScore,
	}
}

// PendingBlock is a block awaiting confirmation
type PendingBlock struct {
	ID uuid.UUID `json:"id"`
	Target
}

// Ack is the user-facing result of an action
type Ack struct {
	OK      bool   `json:"ok"`
	Message string `json:"message"`
}

// Outcome of RequestBlock: either an acknowledgment or a modal to show
type Outcome struct {
	Ack   *Ack          `json:"ack,omitempty"`
	Modal *PendingBlock `json:"modal,omitempty"`
}

// Gate holds at most one pending block for a viewer
type Gate struct {
	mu      sync.Mutex
	pending *PendingBlock
}

// Pending returns the block awaiting confirmation, if any
func (g *Gate) Pending() (PendingBlock, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.pending == nil {
		return PendingBlock{}, false
	}
	return *g.pending, true
}

func (g *Gate) open(p PendingBlock) {
	g.mu.Lock()
	g.pending = &p
	g.mu.Unlock()
}

// take removes the pending block. A non-nil id must match it.
func (g *Gate) take(id *uuid.UUID) (PendingBlock, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.pending == nil {
		return PendingBlock{}, false
	}
	if id != nil && *id != g.pending.ID {
		return PendingBlock{}, false
	}
	p := *g.pending
	g.pending = nil
	return p, true
}

// Handler runs the flows against the backend
type Handler struct {
	api     Blocker
	refresh Refresher
	table   atomic.Pointer[policy.Table]
	logger  *slog.Logger
	metrics *metrics.Metrics
}

// NewHandler creates a handler. A nil table uses the default policy.
func NewHandler(api Blocker, refresh Refresher, table *policy.Table, logger *slog.Logger, m *metrics.Metrics) *Handler {
	if table == nil {
		table = policy.DefaultTable()
	}
	if logger == nil {
		logger = logging.Discard()
	}

	h := &Handler{
		api:     api,
		refresh: refresh,
		logger:  logger,
		metrics: m,
	}
	h.table.Store(table)
	return h
}

// SetTable swaps the policy table
func (h *Handler) SetTable(t *policy.Table) {
	if t != nil {
		h.table.Store(t)
	}
}

// Table returns the policy table in use
func (h *Handler) Table() *policy.Table {
	return h.table.Load()
}

// RequestBlock applies the policy table to target: it blocks immediately,
// opens the confirmation modal on gate, or rejects the request.
func (h *Handler) RequestBlock(ctx context.Context, gate *Gate, target Target) (Outcome, error) {
	if target.Sender == "" {
		return Outcome{}, ErrNoSender
	}

	switch h.Table().Click(target.RiskScore) {
	case policy.ClickRejected:
		h.metrics.ObserveAction(ActionBlock, "rejected")
		return Outcome{}, fmt.Errorf("%w: %s", ErrBlockRejected, target.Sender)

	case policy.ClickConfirm:
		p := PendingBlock{ID: uuid.New(), Target: target}
		gate.open(p)
		h.logger.Debug("block awaiting confirmation",
			slog.String("sender", target.Sender),
			slog.Int("risk_score", target.RiskScore),
		)
		return Outcome{Modal: &p}, nil

	default:
		ack := h.block(ctx, types.BlockRequest{
			Sender:    target.Sender,
			Subject:   target.Subject,
			Reason:    fmt.Sprintf("Manually blocked (%d%% threat)", target.RiskScore),
			MessageID: target.MessageID,
		})
		return Outcome{Ack: &ack}, nil
	}
}

// ConfirmBlock sends the pending block and closes the modal. If id is
// non-empty it must name the pending block.
func (h *Handler) ConfirmBlock(ctx context.Context, gate *Gate, id string) (Ack, error) {
	var want *uuid.UUID
	if id != "" {
		parsed, err := uuid.Parse(id)
		if err != nil {
			return Ack{}, fmt.Errorf("%w: %v", ErrNoPendingBlock, err)
		}
		want = &parsed
	}

	p, ok := gate.take(want)
	if !ok {
		return Ack{}, ErrNoPendingBlock
	}

	return h.block(ctx, types.BlockRequest{
		Sender:    p.Sender,
		Subject:   p.Subject,
		Reason:    ConfirmReason,
		MessageID: p.MessageID,
	}), nil
}

// CancelBlock discards the pending block. It reports whether one existed.
func (h *Handler) CancelBlock(gate *Gate) bool {
	_, ok := gate.take(nil)
	return ok
}

// Unblock removes sender from the block list
func (h *Handler) Unblock(ctx context.Context, sender string) (Ack, error) {
	if sender == "" {
		return Ack{}, ErrNoSender
	}

	ok, err := h.api.Unblock(ctx, sender)
	if err != nil || !ok {
		h.fail(ActionUnblock, sender, err)
		return Ack{OK: false, Message: unblockFailed}, nil
	}

	h.succeed(ActionUnblock, sender)
	return Ack{OK: true, Message: "Unblocked: " + sender}, nil
}

func (h *Handler) block(ctx context.Context, req types.BlockRequest) Ack {
	ok, err := h.api.Block(ctx, req)
	if err != nil || !ok {
		h.fail(ActionBlock, req.Sender, err)
		return Ack{OK: false, Message: blockFailed}
	}

	h.succeed(ActionBlock, req.Sender)
	return Ack{OK: true, Message: "Blocked: " + req.Sender}
}

func (h *Handler) succeed(action, sender string) {
	h.metrics.ObserveAction(action, metrics.ResultOK)
	h.logger.Info(action+" succeeded", slog.String("sender", sender))

	if h.refresh == nil {
		return
	}
	if err := h.refresh.Refresh(types.EndpointEmails, types.EndpointBlocked); err != nil {
		h.logger.Warn("refresh after "+action+" failed", slog.Any("error", err))
	}
}

func (h *Handler) fail(action, sender string, err error) {
	h.metrics.ObserveAction(action, metrics.ResultError)
	attrs := []any{slog.String("sender", sender)}
	if err != nil {
		attrs = append(attrs, slog.Any("error", err))
	}
	h.logger.Warn(action+" failed", attrs...)
}
