package mapview

import (
	"context"
	"errors"
	"slices"
	"sync"

	"github.com/urbanize/urbanize-backend/internal/logger"
	"github.com/urbanize/urbanize-backend/internal/reports"
)

// ReportsAPI is the server side of the report feed. *client.Client satisfies it.
type ReportsAPI interface {
	ListReports(ctx context.Context) ([]reports.Report, error)
	DeleteReport(ctx context.Context, id string) error
}

var ErrTxResolved = errors.New("delete transaction already resolved")

// TxState is the position of an optimistic delete.
type TxState int

const (
	Pending TxState = iota
	Confirmed
	RolledBack
)

func (s TxState) String() string {
	switch s {
	case Confirmed:
		return "confirmed"
	case RolledBack:
		return "rolled_back"
	default:
		return "pending"
	}
}

// ReportFeed holds the client's copy of the report list and keeps the markers in
// step with it.
type ReportFeed struct {
	api   ReportsAPI
	recon *Reconciler

	mu      sync.Mutex
	reports []reports.Report
}

func NewReportFeed(api ReportsAPI, recon *Reconciler) *ReportFeed {
	return &ReportFeed{api: api, recon: recon}
}

// Reload replaces the snapshot with the server's list and reconciles markers.
func (f *ReportFeed) Reload(ctx context.Context) error {
	list, err := f.api.ListReports(ctx)
	if err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reports = slices.Clone(list)
	return f.reconcile()
}

// Reports returns a copy of the current snapshot.
func (f *ReportFeed) Reports() []reports.Report {
	f.mu.Lock()
	defer f.mu.Unlock()
	return slices.Clone(f.reports)
}

func (f *ReportFeed) reconcile() error {
	if f.recon == nil {
		return nil
	}
	_, err := f.recon.Apply(f.reports)
	return err
}

// DeleteTx is an optimistic removal: Pending until Commit or Rollback.
type DeleteTx struct {
	feed     *ReportFeed
	id       string
	previous []reports.Report
	state    TxState
}

// Begin removes id from the snapshot and the map immediately and returns the
// pending transaction holding the previous snapshot.
func (f *ReportFeed) Begin(id string) *DeleteTx {
	f.mu.Lock()
	defer f.mu.Unlock()

	tx := &DeleteTx{feed: f, id: id, previous: slices.Clone(f.reports)}
	f.reports = slices.DeleteFunc(slices.Clone(f.reports), func(r reports.Report) bool { return r.ID == id })
	if f.recon != nil {
		if err := f.recon.Remove(id); err != nil {
			logger.L().Warn("marker_remove_failed", "report_id", id, "err", err)
		}
	}
	return tx
}

func (tx *DeleteTx) ID() string { return tx.id }

func (tx *DeleteTx) State() TxState {
	tx.feed.mu.Lock()
	defer tx.feed.mu.Unlock()
	return tx.state
}

// Commit marks the delete as confirmed by the server.
func (tx *DeleteTx) Commit() error {
	tx.feed.mu.Lock()
	defer tx.feed.mu.Unlock()
	if tx.state != Pending {
		return ErrTxResolved
	}
	tx.state = Confirmed
	return nil
}

// Rollback restores the snapshot taken by Begin and redraws its markers.
func (tx *DeleteTx) Rollback() error {
	tx.feed.mu.Lock()
	defer tx.feed.mu.Unlock()
	if tx.state != Pending {
		return ErrTxResolved
	}
	tx.state = RolledBack
	tx.feed.reports = slices.Clone(tx.previous)
	return tx.feed.reconcile()
}

// Delete removes a report optimistically, confirms or rolls back on the server's
// answer, then reloads the list whatever the outcome. The delete error, if any, is
// returned in preference to the reload error.
func (f *ReportFeed) Delete(ctx context.Context, id string) (TxState, error) {
	tx := f.Begin(id)

	delErr := f.api.DeleteReport(ctx, id)
	if delErr != nil {
		logger.L().Warn("report_delete_failed", "report_id", id, "err", delErr)
		if err := tx.Rollback(); err != nil {
			logger.L().Warn("report_delete_rollback_failed", "report_id", id, "err", err)
		}
	} else {
		_ = tx.Commit()
	}

	reloadErr := f.Reload(ctx)
	if reloadErr != nil {
		logger.L().Warn("report_reload_failed", "err", reloadErr)
	}
	if delErr != nil {
		return tx.State(), delErr
	}
	return tx.State(), reloadErr
}
