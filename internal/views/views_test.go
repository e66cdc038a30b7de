package views

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/shopspring/decimal"

	"github.com/five82/timebank/internal/cache"
	"github.com/five82/timebank/internal/coordinator"
	"github.com/five82/timebank/internal/credit"
	"github.com/five82/timebank/internal/ledger"
	"github.com/five82/timebank/internal/video"
)

// backend serves canned envelope payloads keyed by request path.
type backend struct {
	mu     sync.Mutex
	data   map[string]string
	status map[string]int
}

func newBackend(t *testing.T) (*backend, *ledger.Client) {
	t.Helper()
	b := &backend{data: make(map[string]string), status: make(map[string]int)}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b.mu.Lock()
		data, ok := b.data[r.URL.Path]
		status := b.status[r.URL.Path]
		b.mu.Unlock()
		w.Header().Set("Content-Type", "application/json")
		switch {
		case status >= 400:
			w.WriteHeader(status)
			_, _ = fmt.Fprintf(w, `{"success":false,"message":"failed","error":"status %d"}`, status)
		case !ok:
			w.WriteHeader(http.StatusNotFound)
			_, _ = fmt.Fprint(w, `{"success":false,"message":"not found"}`)
		default:
			_, _ = fmt.Fprintf(w, `{"success":true,"message":"ok","data":%s}`, data)
		}
	}))
	t.Cleanup(server.Close)

	client, err := ledger.NewClient(server.URL+"/api/v1", ledger.WithTokenSource(ledger.StaticToken("test-token")))
	if err != nil {
		t.Fatalf("NewClient returned error: %v", err)
	}
	return b, client
}

func (b *backend) set(path, data string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.data["/api/v1"+path] = data
	delete(b.status, "/api/v1"+path)
}

func (b *backend) fail(path string, status int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.status["/api/v1"+path] = status
}

const (
	profile = `{"id":42,"email":"ada@example.com","full_name":"Ada","credit_balance":7.0}`
	history = `{"transactions":[
		{"id":101,"user_id":42,"type":"earned","amount":2.0,"balance_before":5.0,"balance_after":7.0,"session_id":7,"created_at":"2026-03-02T10:00:00Z"},
		{"id":100,"user_id":42,"type":"initial","amount":5.0,"balance_before":0.0,"balance_after":5.0,"created_at":"2026-03-01T10:00:00Z"}
	],"total":2}`
)

func seedUserContext(b *backend) {
	b.set("/user/profile", profile)
	b.set("/user/stats", `{"total_sessions_as_teacher":3,"total_credits_earned":2.0}`)
	b.set("/user/transactions", history)
}

func TestDashboard_ShowsConfirmedBalanceAndNotifies(t *testing.T) {
	b, client := newBackend(t)
	seedUserContext(b)
	b.set("/sessions/upcoming", `[{"id":7,"teacher_id":42,"student_id":9,"status":"approved","credit_held":true,"credit_amount":2.0}]`)
	b.set("/sessions/pending", `[]`)

	c := coordinator.New(client, cache.New())
	var changes atomic.Int32
	dash := NewDashboard(c, func() { changes.Add(1) })
	defer dash.Close()

	ctx := context.Background()
	if err := c.RefreshUserContext(ctx, 42); err != nil {
		t.Fatalf("RefreshUserContext returned error: %v", err)
	}
	if err := c.RefreshSessions(ctx); err != nil {
		t.Fatalf("RefreshSessions returned error: %v", err)
	}

	if changes.Load() == 0 {
		t.Fatalf("onChange never called")
	}
	bal := dash.Balance()
	if !bal.Confirmed || Credits(bal.Amount) != "7.0" {
		t.Fatalf("Balance = %+v, want confirmed 7.0", bal)
	}
	if user, ok := dash.User(); !ok || DisplayName(user) != "Ada" {
		t.Fatalf("User = %+v", user)
	}
	if stats, ok := dash.Stats(); !ok || stats.TotalSessionsAsTeacher != 3 {
		t.Fatalf("Stats = %+v", stats)
	}
	if got := dash.Upcoming(); len(got) != 1 || got[0].ID != 7 {
		t.Fatalf("Upcoming = %+v", got)
	}
	if got := dash.Pending(); len(got) != 0 {
		t.Fatalf("Pending = %+v", got)
	}
	var recent []int64
	for _, tx := range dash.Recent() {
		recent = append(recent, tx.ID)
	}
	if diff := cmp.Diff([]int64{101, 100}, recent); diff != "" {
		t.Fatalf("Recent (-want +got):\n%s", diff)
	}
	if dash.Loading() || dash.Err() != nil {
		t.Fatalf("Loading=%t Err=%v", dash.Loading(), dash.Err())
	}
}

func TestDashboard_FallsBackToProfileBalance(t *testing.T) {
	b, client := newBackend(t)
	seedUserContext(b)
	b.set("/user/profile", `{"id":42,"full_name":"Ada","credit_balance":9.0}`)

	c := coordinator.New(client, cache.New())
	dash := NewDashboard(c, nil)
	defer dash.Close()

	if err := c.RefreshUserContext(context.Background(), 42); err != nil {
		t.Fatalf("RefreshUserContext returned error: %v", err)
	}
	bal := dash.Balance()
	if bal.Confirmed || !bal.Amount.Equal(decimal.NewFromInt(9)) {
		t.Fatalf("Balance = %+v, want unconfirmed 9", bal)
	}
}

func TestDashboard_ErrReflectsLatestFailure(t *testing.T) {
	b, client := newBackend(t)
	seedUserContext(b)
	b.fail("/user/stats", http.StatusInternalServerError)

	c := coordinator.New(client, cache.New())
	dash := NewDashboard(c, nil)
	defer dash.Close()

	if err := c.RefreshUserContext(context.Background(), 42); err == nil {
		t.Fatalf("RefreshUserContext succeeded with failing stats")
	}
	if !ledger.IsServer(dash.Err()) {
		t.Fatalf("Err = %v, want ServerError", dash.Err())
	}
	if _, ok := dash.User(); ok {
		t.Fatalf("user cached although the refresh failed")
	}

	b.set("/user/stats", `{}`)
	if err := c.RefreshUserContext(context.Background(), 42); err != nil {
		t.Fatalf("RefreshUserContext returned error: %v", err)
	}
	if dash.Err() != nil {
		t.Fatalf("Err = %v after success", dash.Err())
	}
}

func TestClose_StopsNotifications(t *testing.T) {
	b, client := newBackend(t)
	seedUserContext(b)

	c := coordinator.New(client, cache.New())
	var changes atomic.Int32
	dash := NewDashboard(c, func() { changes.Add(1) })
	dash.Close()
	dash.Close()

	if err := c.RefreshUserContext(context.Background(), 42); err != nil {
		t.Fatalf("RefreshUserContext returned error: %v", err)
	}
	if got := changes.Load(); got != 0 {
		t.Fatalf("onChange called %d times after Close", got)
	}
}

func TestTransactions_Pagination(t *testing.T) {
	tests := []struct {
		name       string
		total      int
		offset     int
		page       int
		totalPages int
		summary    string
		hasPrev    bool
		hasNext    bool
		next, prev int
	}{
		{name: "first", total: 42, offset: 0, page: 1, totalPages: 5, summary: "Showing 1 to 10 of 42 transactions", hasNext: true, next: 10, prev: 0},
		{name: "middle", total: 42, offset: 10, page: 2, totalPages: 5, summary: "Showing 11 to 20 of 42 transactions", hasPrev: true, hasNext: true, next: 20, prev: 0},
		{name: "last", total: 42, offset: 40, page: 5, totalPages: 5, summary: "Showing 41 to 42 of 42 transactions", hasPrev: true, next: 40, prev: 30},
		{name: "exact", total: 20, offset: 10, page: 2, totalPages: 2, summary: "Showing 11 to 20 of 20 transactions", hasPrev: true, next: 10, prev: 0},
		{name: "empty", total: 0, offset: 0, page: 1, totalPages: 1, summary: "No transactions", next: 0, prev: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b, client := newBackend(t)
			b.set("/user/transactions", fmt.Sprintf(`{"transactions":[],"total":%d}`, tt.total))
			c := coordinator.New(client, cache.New(), coordinator.WithPageSize(10))
			view := NewTransactions(c, nil)
			defer view.Close()

			if err := c.LoadTransactions(context.Background(), 0, tt.offset); err != nil {
				t.Fatalf("LoadTransactions returned error: %v", err)
			}
			if view.Page() != tt.page || view.TotalPages() != tt.totalPages {
				t.Fatalf("page %d of %d, want %d of %d", view.Page(), view.TotalPages(), tt.page, tt.totalPages)
			}
			if view.Summary() != tt.summary {
				t.Fatalf("Summary = %q, want %q", view.Summary(), tt.summary)
			}
			if view.HasPrev() != tt.hasPrev || view.HasNext() != tt.hasNext {
				t.Fatalf("HasPrev=%t HasNext=%t", view.HasPrev(), view.HasNext())
			}
			if view.NextOffset() != tt.next || view.PrevOffset() != tt.prev {
				t.Fatalf("NextOffset=%d PrevOffset=%d, want %d %d", view.NextOffset(), view.PrevOffset(), tt.next, tt.prev)
			}
		})
	}
}

func TestTransactions_RowsFollowWindow(t *testing.T) {
	b, client := newBackend(t)
	b.set("/user/transactions", history)
	c := coordinator.New(client, cache.New())
	view := NewTransactions(c, nil)
	defer view.Close()

	if err := c.LoadTransactions(context.Background(), 10, 0); err != nil {
		t.Fatalf("LoadTransactions returned error: %v", err)
	}
	rows := view.Rows()
	if len(rows) != 2 || rows[0].ID != 101 || !Inflow(rows[0].Type) {
		t.Fatalf("Rows = %+v", rows)
	}
}

func TestSessions_RowsAndSelection(t *testing.T) {
	b, client := newBackend(t)
	b.set("/sessions/upcoming", `[
		{"id":1,"teacher_id":42,"status":"approved","mode":"online","credit_held":true},
		{"id":2,"teacher_id":9,"status":"in_progress","mode":"offline","credit_held":true}
	]`)
	b.set("/sessions/pending", `[{"id":3,"teacher_id":42,"status":"pending"},{"id":1,"teacher_id":42,"status":"approved","mode":"online","credit_held":true}]`)

	c := coordinator.New(client, cache.New())
	view := NewSessions(c, nil)
	defer view.Close()
	if err := c.RefreshSessions(context.Background()); err != nil {
		t.Fatalf("RefreshSessions returned error: %v", err)
	}

	type row struct {
		ID       int64
		Label    string
		Pending  bool
		Complete bool
		Call     bool
	}
	var got []row
	for _, r := range view.Rows() {
		got = append(got, row{r.Session.ID, r.Label, r.Pending, r.CanComplete(), r.CanCall()})
	}
	want := []row{
		{ID: 1, Label: "held", Complete: true, Call: true},
		{ID: 2, Label: "held", Complete: true},
		{ID: 3, Label: "booked", Pending: true},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("rows (-want +got):\n%s", diff)
	}

	if sel, ok := view.Selected(); !ok || sel.Session.ID != 1 {
		t.Fatalf("default selection = %+v", sel)
	}
	view.Move(5)
	if sel, _ := view.Selected(); sel.Session.ID != 3 {
		t.Fatalf("selection after Move(5) = %d, want 3", sel.Session.ID)
	}
	view.Move(-1)
	if sel, _ := view.Selected(); sel.Session.ID != 2 {
		t.Fatalf("selection after Move(-1) = %d, want 2", sel.Session.ID)
	}
	if view.Select(99) {
		t.Fatalf("Select accepted unlisted session")
	}
	if !view.Select(3) {
		t.Fatalf("Select(3) = false")
	}
	if sel, _ := view.Selected(); !sel.Teaching(42) {
		t.Fatalf("session 3 should be taught by 42")
	}
}

func TestSessionRow_InvalidFlags(t *testing.T) {
	row := newSessionRow(ledger.Session{ID: 5, Status: ledger.StatusApproved, CreditReleased: true}, false)
	if row.Label != "invalid" || row.State != credit.Unknown || row.CanComplete() {
		t.Fatalf("row = %+v", row)
	}
}

func TestVideo_ElapsedTimer(t *testing.T) {
	b, client := newBackend(t)
	b.set("/sessions/7/video/start", `{"session_id":7,"room_id":"room-7","status":"active"}`)
	b.set("/sessions/7/video/end", `{"session_id":7,"room_id":"room-7","status":"ended"}`)
	b.set("/user/video-history", `{"history":[{"id":1,"session_id":7,"room_id":"room-7","duration":65}],"total":1}`)
	b.set("/user/video-stats", `{"total_calls":1,"total_minutes":1.1}`)

	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	c := coordinator.New(client, cache.New(),
		coordinator.WithConference(video.NewJitsi("", nil)),
		coordinator.WithClock(func() time.Time { return now }),
	)
	if err := c.Cache().Upsert(cache.Sessions, []byte(`{"id":7,"title":"Go basics","status":"approved","credit_held":true}`)); err != nil {
		t.Fatalf("Upsert returned error: %v", err)
	}
	view := NewVideo(c, nil)
	defer view.Close()

	if view.Elapsed() != "" {
		t.Fatalf("Elapsed without call = %q", view.Elapsed())
	}
	if _, err := c.StartVideo(context.Background(), 7); err != nil {
		t.Fatalf("StartVideo returned error: %v", err)
	}
	now = now.Add(65 * time.Second)
	if view.Elapsed() != "00:01:05" {
		t.Fatalf("Elapsed = %q, want 00:01:05", view.Elapsed())
	}
	if s, ok := view.Session(); !ok || s.Title != "Go basics" {
		t.Fatalf("Session = %+v", s)
	}

	if err := c.EndVideo(context.Background()); err != nil {
		t.Fatalf("EndVideo returned error: %v", err)
	}
	if _, ok := view.Active(); ok {
		t.Fatalf("call still active")
	}
	if stats, ok := view.Stats(); !ok || stats.TotalCalls != 1 {
		t.Fatalf("Stats = %+v", stats)
	}
	if h := view.History(); len(h) != 1 || h[0].Duration != 65 {
		t.Fatalf("History = %+v", h)
	}
}

func TestFormatting(t *testing.T) {
	if got := Credits(decimal.RequireFromString("2")); got != "2.0" {
		t.Fatalf("Credits(2) = %q", got)
	}
	if got := Credits(decimal.RequireFromString("1.25")); got != "1.3" {
		t.Fatalf("Credits(1.25) = %q", got)
	}
	for typ, want := range map[ledger.TransactionType]bool{
		ledger.TxEarned: true, ledger.TxBonus: true, ledger.TxRefund: true, ledger.TxInitial: true,
		ledger.TxSpent: false, ledger.TxHold: false, ledger.TxPenalty: false,
	} {
		if Inflow(typ) != want {
			t.Fatalf("Inflow(%s) = %t, want %t", typ, !want, want)
		}
	}
	if got := DisplayName(ledger.User{Email: "a@b.c"}); got != "a@b.c" {
		t.Fatalf("DisplayName = %q", got)
	}
}
