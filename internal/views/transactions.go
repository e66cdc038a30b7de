package views

import (
	"fmt"

	"github.com/five82/timebank/internal/cache"
	"github.com/five82/timebank/internal/coordinator"
	"github.com/five82/timebank/internal/ledger"
)

// Transactions is the paginated transaction history.
type Transactions struct {
	*feed
}

// NewTransactions subscribes a history adapter. onChange may be nil.
func NewTransactions(c *coordinator.Coordinator, onChange func()) *Transactions {
	return &Transactions{feed: newFeed(c,
		[]cache.Kind{cache.Transactions},
		[]coordinator.Op{coordinator.OpLoadTransactions},
		onChange,
	)}
}

// Rows returns the loaded page, newest first.
func (t *Transactions) Rows() []ledger.Transaction {
	return loadIDs[ledger.Transaction](t.store(), cache.Transactions, t.coord.TransactionWindow().IDs)
}

// Limit returns the page size of the loaded window.
func (t *Transactions) Limit() int {
	if w := t.coord.TransactionWindow(); w.Limit > 0 {
		return w.Limit
	}
	return t.coord.PageSize()
}

// Offset returns the offset of the loaded window.
func (t *Transactions) Offset() int { return t.coord.TransactionWindow().Offset }

// Total returns the number of transactions on the server.
func (t *Transactions) Total() int { return t.coord.TransactionWindow().Total }

// Page returns the 1-based page number.
func (t *Transactions) Page() int { return t.Offset()/t.Limit() + 1 }

// TotalPages returns the number of pages, at least 1.
func (t *Transactions) TotalPages() int {
	limit, total := t.Limit(), t.Total()
	if total <= 0 {
		return 1
	}
	return (total + limit - 1) / limit
}

// HasPrev reports whether an earlier page exists.
func (t *Transactions) HasPrev() bool { return t.Offset() > 0 }

// HasNext reports whether a later page exists.
func (t *Transactions) HasNext() bool { return t.Offset()+t.Limit() < t.Total() }

// PrevOffset returns the offset of the previous page.
func (t *Transactions) PrevOffset() int { return max(0, t.Offset()-t.Limit()) }

// NextOffset returns the offset of the next page.
func (t *Transactions) NextOffset() int {
	if !t.HasNext() {
		return t.Offset()
	}
	return t.Offset() + t.Limit()
}

// Summary describes the visible range, e.g. "Showing 11 to 20 of 42 transactions".
func (t *Transactions) Summary() string {
	total := t.Total()
	if total == 0 {
		return "No transactions"
	}
	offset, limit := t.Offset(), t.Limit()
	return fmt.Sprintf("Showing %d to %d of %d transactions", offset+1, min(offset+limit, total), total)
}
