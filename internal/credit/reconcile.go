package credit

import (
	"cmp"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/five82/timebank/internal/ledger"
)

// Violation is one broken ledger invariant.
type Violation struct {
	TransactionID int64
	Reason        string
}

func (v Violation) String() string {
	return fmt.Sprintf("tx %d: %s", v.TransactionID, v.Reason)
}

// Check is the result of comparing a user's balance with their ledger.
type Check struct {
	UserID        int64
	Balance       decimal.Decimal
	LedgerBalance decimal.Decimal
	LatestID      int64
	HasLedger     bool
	Violations    []Violation
}

// OK reports whether the balance matches the latest transaction and the chain is intact.
func (c Check) OK() bool {
	return len(c.Violations) == 0 && (!c.HasLedger || c.Balance.Equal(c.LedgerBalance))
}

// Displayed returns the balance to show. The ledger is authoritative when it
// agrees with the profile; otherwise the profile's credit_balance is used.
func (c Check) Displayed() decimal.Decimal {
	if c.HasLedger && c.OK() {
		return c.LedgerBalance
	}
	return c.Balance
}

// LogValue implements slog.LogValuer.
func (c Check) LogValue() slog.Value {
	reasons := make([]string, 0, len(c.Violations))
	for _, v := range c.Violations {
		reasons = append(reasons, v.String())
	}
	return slog.GroupValue(
		slog.Int64("user_id", c.UserID),
		slog.String("credit_balance", c.Balance.String()),
		slog.String("ledger_balance", c.LedgerBalance.String()),
		slog.Int64("latest_tx", c.LatestID),
		slog.String("violations", strings.Join(reasons, "; ")),
	)
}

// ConsistencyError reports a balance that still disagreed with the ledger
// after the transactions were fetched again.
type ConsistencyError struct {
	Before Check
	After  Check
}

func (e *ConsistencyError) Error() string {
	a := e.After
	if len(a.Violations) > 0 {
		return fmt.Sprintf("user %d: ledger inconsistent: %s", a.UserID, a.Violations[0])
	}
	return fmt.Sprintf("user %d: credit_balance %s does not match latest transaction %d balance_after %s",
		a.UserID, a.Balance, a.LatestID, a.LedgerBalance)
}

// Latest returns the most recent transaction by created_at, then id.
func Latest(txs []ledger.Transaction) (ledger.Transaction, bool) {
	if len(txs) == 0 {
		return ledger.Transaction{}, false
	}
	return slices.MaxFunc(txs, compareTx), true
}

// Chronological returns txs ordered oldest first.
func Chronological(txs []ledger.Transaction) []ledger.Transaction {
	out := slices.Clone(txs)
	slices.SortFunc(out, compareTx)
	return out
}

func compareTx(a, b ledger.Transaction) int {
	if c := a.ParsedCreatedAt().Compare(b.ParsedCreatedAt()); c != 0 {
		return c
	}
	return cmp.Compare(a.ID, b.ID)
}

// VerifyChain checks that every entry satisfies balance_after = balance_before + amount
// and that consecutive entries link up.
func VerifyChain(txs []ledger.Transaction) []Violation {
	var out []Violation
	ordered := Chronological(txs)
	for i, tx := range ordered {
		if !tx.BalanceBefore.Add(tx.Amount).Equal(tx.BalanceAfter) {
			out = append(out, Violation{
				TransactionID: tx.ID,
				Reason: fmt.Sprintf("balance_before %s + amount %s != balance_after %s",
					tx.BalanceBefore, tx.Amount, tx.BalanceAfter),
			})
		}
		if i == 0 {
			continue
		}
		prev := ordered[i-1]
		if !tx.BalanceBefore.Equal(prev.BalanceAfter) {
			out = append(out, Violation{
				TransactionID: tx.ID,
				Reason: fmt.Sprintf("balance_before %s != previous tx %d balance_after %s",
					tx.BalanceBefore, prev.ID, prev.BalanceAfter),
			})
		}
	}
	return out
}

// Reconcile compares user's credit_balance with their own transactions.
func Reconcile(user ledger.User, txs []ledger.Transaction) Check {
	own := make([]ledger.Transaction, 0, len(txs))
	for _, tx := range txs {
		if tx.UserID == 0 || tx.UserID == user.ID {
			own = append(own, tx)
		}
	}
	c := Check{UserID: user.ID, Balance: user.CreditBalance}
	if user.CreditBalance.IsNegative() {
		c.Violations = append(c.Violations, Violation{Reason: "negative credit_balance " + user.CreditBalance.String()})
	}
	latest, ok := Latest(own)
	if !ok {
		return c
	}
	c.HasLedger = true
	c.LatestID = latest.ID
	c.LedgerBalance = latest.BalanceAfter
	c.Violations = append(c.Violations, VerifyChain(own)...)
	return c
}
