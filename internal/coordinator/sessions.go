package coordinator

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/five82/timebank/internal/cache"
	"github.com/five82/timebank/internal/credit"
	"github.com/five82/timebank/internal/ledger"
)

// RefreshSessions fetches upcoming sessions and pending requests. Sessions
// whose credit state would move backwards are left as cached.
func (c *Coordinator) RefreshSessions(ctx context.Context) error {
	_, err := share(ctx, c, string(OpRefreshSessions), func(ctx context.Context) (struct{}, error) {
		return struct{}{}, c.run(OpRefreshSessions, func() error {
			var upcoming, pending []ledger.Doc[ledger.Session]
			g, gctx := errgroup.WithContext(ctx)
			g.Go(func() error {
				var err error
				upcoming, err = c.api.FetchUpcomingSessions(gctx, c.pageSize)
				return err
			})
			g.Go(func() error {
				var err error
				pending, err = c.api.FetchPendingRequests(gctx)
				return err
			})
			if err := g.Wait(); err != nil {
				return err
			}

			writes, _ := c.sessionWrites(OpRefreshSessions, append(append([]ledger.Doc[ledger.Session]{}, upcoming...), pending...))
			if err := c.cache.Apply(writes...); err != nil {
				return fmt.Errorf("apply sessions: %w", err)
			}
			c.mu.Lock()
			c.upcoming = ids(upcoming, sessionID)
			c.pending = ids(pending, sessionID)
			c.mu.Unlock()
			return nil
		})
	})
	return err
}

// RefreshSession fetches one session. An out-of-order credit transition is
// returned as *credit.InvalidTransitionError and the cache is left unchanged.
func (c *Coordinator) RefreshSession(ctx context.Context, id int64) error {
	key := fmt.Sprintf("%s:%d", OpRefreshSession, id)
	_, err := share(ctx, c, key, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, c.run(OpRefreshSession, func() error {
			doc, err := c.api.FetchSession(ctx, id)
			if err != nil {
				return err
			}
			w, err := c.sessionWrite(OpRefreshSession, doc)
			if err != nil {
				return err
			}
			return c.cache.Apply(w)
		}, "session_id", id)
	})
	return err
}

// CompleteSession marks the session completed and, once the server has
// accepted it, fetches the resulting transactions and balance. The session,
// transactions and user are applied as one cache write, so subscribers never
// see a completed session next to a stale balance. On any failure the cache
// is left unchanged.
func (c *Coordinator) CompleteSession(ctx context.Context, id int64) error {
	key := fmt.Sprintf("%s:%d", OpCompleteSession, id)
	_, err := share(ctx, c, key, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, c.run(OpCompleteSession, func() error {
			return c.completeSession(ctx, id)
		}, "session_id", id)
	})
	return err
}

func (c *Coordinator) completeSession(ctx context.Context, id int64) error {
	done, err := c.api.CompleteSession(ctx, id)
	if err != nil {
		return err
	}
	if done.Value.ID != id {
		// the completion response may omit the session body
		done, err = c.api.FetchSession(ctx, id)
		if err != nil {
			return err
		}
	}

	var (
		page    ledger.TransactionPage
		profile ledger.Doc[ledger.User]
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		page, err = c.api.FetchTransactions(gctx, RecentTransactions, 0)
		return err
	})
	g.Go(func() error {
		var err error
		profile, err = c.api.FetchProfile(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		c.logger.Warn("session completed but follow-up fetch failed", "session_id", id, "error", err)
		return err
	}

	sw, err := c.sessionWrite(OpCompleteSession, done)
	if err != nil {
		return err
	}

	txs := ledger.Values(page.Transactions)
	if !hasSessionTransaction(txs, id) {
		c.logger.Warn("no transaction references completed session", "session_id", id)
	}

	writes := []cache.Write{sw, {Kind: cache.Users, Doc: profile}}
	writes = append(writes, cache.Writes(cache.Transactions, page.Transactions...)...)
	if err := c.cache.Apply(writes...); err != nil {
		return fmt.Errorf("apply completion: %w", err)
	}

	check := credit.Reconcile(profile.Value, txs)
	if !check.OK() {
		c.report(OpCompleteSession, &credit.ConsistencyError{Before: check, After: check}, "session_id", id)
	}
	c.setUserID(profile.Value.ID)
	c.mu.Lock()
	c.check = &check
	c.recent = ids(page.Transactions, func(t ledger.Transaction) int64 { return t.ID })
	c.mu.Unlock()
	c.persistUser(profile)
	return nil
}

func hasSessionTransaction(txs []ledger.Transaction, id int64) bool {
	for _, tx := range txs {
		if tx.ForSession(id) {
			return true
		}
	}
	return false
}

func sessionID(s ledger.Session) int64 { return s.ID }
