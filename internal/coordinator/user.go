package coordinator

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/five82/timebank/internal/cache"
	"github.com/five82/timebank/internal/credit"
	"github.com/five82/timebank/internal/ledger"
)

// RefreshUserContext fetches the profile, stats and newest transactions of
// the current user concurrently and applies them to the cache as one write.
// Concurrent calls for the same user share a single set of requests.
//
// A balance that disagrees with the ledger triggers one re-fetch of the
// transactions. A disagreement that persists is logged and posted as a
// notice but is not returned; views fall back to the profile's balance.
func (c *Coordinator) RefreshUserContext(ctx context.Context, userID int64) error {
	key := fmt.Sprintf("%s:%d", OpRefreshUser, userID)
	_, err := share(ctx, c, key, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, c.run(OpRefreshUser, func() error {
			return c.refreshUserContext(ctx, userID)
		}, "user_id", userID)
	})
	return err
}

func (c *Coordinator) refreshUserContext(ctx context.Context, userID int64) error {
	var (
		profile ledger.Doc[ledger.User]
		stats   ledger.UserStats
		page    ledger.TransactionPage
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		profile, err = c.api.FetchProfile(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		stats, err = c.api.FetchStats(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		page, err = c.api.FetchTransactions(gctx, RecentTransactions, 0)
		return err
	})
	if err := g.Wait(); err != nil {
		return err
	}
	if userID > 0 && profile.Value.ID != userID {
		c.logger.Warn("profile belongs to another user", "user_id", userID, "profile_id", profile.Value.ID)
	}

	writes := []cache.Write{{Kind: cache.Users, Doc: profile}}
	writes = append(writes, cache.Writes(cache.Transactions, page.Transactions...)...)
	if err := c.cache.Apply(writes...); err != nil {
		return fmt.Errorf("apply user context: %w", err)
	}

	check := credit.Reconcile(profile.Value, ledger.Values(page.Transactions))
	recent := ids(page.Transactions, func(t ledger.Transaction) int64 { return t.ID })
	if !check.OK() {
		c.logger.Warn("balance disagrees with ledger, refetching transactions", "user_id", profile.Value.ID, "check", check)
		retry := check
		again, err := c.api.FetchTransactions(ctx, RecentTransactions, 0)
		switch {
		case err != nil:
			c.logger.Warn("refetch transactions", "user_id", profile.Value.ID, "error", err)
		default:
			if err := c.cache.Apply(cache.Writes(cache.Transactions, again.Transactions...)...); err != nil {
				return fmt.Errorf("apply transactions: %w", err)
			}
			retry = credit.Reconcile(profile.Value, ledger.Values(again.Transactions))
			recent = ids(again.Transactions, func(t ledger.Transaction) int64 { return t.ID })
		}
		if !retry.OK() {
			c.report(OpRefreshUser, &credit.ConsistencyError{Before: check, After: retry}, "user_id", profile.Value.ID)
		}
		check = retry
	}

	c.setUserID(profile.Value.ID)
	c.mu.Lock()
	c.stats = &stats
	c.check = &check
	c.recent = recent
	c.mu.Unlock()

	c.persistUser(profile)
	return nil
}

// LoadTransactions fetches one page of the transaction history.
func (c *Coordinator) LoadTransactions(ctx context.Context, limit, offset int) error {
	if limit <= 0 {
		limit = c.pageSize
	}
	if offset < 0 {
		offset = 0
	}
	key := fmt.Sprintf("%s:%d:%d", OpLoadTransactions, limit, offset)
	_, err := share(ctx, c, key, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, c.run(OpLoadTransactions, func() error {
			page, err := c.api.FetchTransactions(ctx, limit, offset)
			if err != nil {
				return err
			}
			if err := c.cache.Apply(cache.Writes(cache.Transactions, page.Transactions...)...); err != nil {
				return fmt.Errorf("apply transactions: %w", err)
			}
			c.mu.Lock()
			c.window = Window{
				IDs:    ids(page.Transactions, func(t ledger.Transaction) int64 { return t.ID }),
				Total:  page.Total,
				Limit:  limit,
				Offset: offset,
			}
			c.mu.Unlock()
			return nil
		}, "limit", limit, "offset", offset)
	})
	return err
}

// RefreshSkills fetches the skills the current user teaches.
func (c *Coordinator) RefreshSkills(ctx context.Context) error {
	_, err := share(ctx, c, string(OpRefreshSkills), func(ctx context.Context) (struct{}, error) {
		return struct{}{}, c.run(OpRefreshSkills, func() error {
			skills, err := c.api.FetchUserSkills(ctx)
			if err != nil {
				return err
			}
			if err := c.cache.Apply(cache.Writes(cache.UserSkills, skills...)...); err != nil {
				return fmt.Errorf("apply skills: %w", err)
			}
			c.mu.Lock()
			c.skills = ids(skills, func(s ledger.UserSkill) int64 { return s.ID })
			c.mu.Unlock()
			return nil
		})
	})
	return err
}

func (c *Coordinator) persistUser(user ledger.Doc[ledger.User]) {
	if c.creds == nil {
		return
	}
	raw, ok := c.cache.Get(cache.Users, user.Value.ID)
	if !ok {
		return
	}
	if err := c.creds.SaveUser(raw); err != nil {
		c.logger.Warn("persist user", "user_id", user.Value.ID, "error", err)
	}
}
