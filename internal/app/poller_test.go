package app

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/five82/timebank/internal/ledger"
)

func TestCalculateBackoff(t *testing.T) {
	baseInterval := 2 * time.Second

	tests := []struct {
		name     string
		failures int
		want     time.Duration
	}{
		{"zero failures", 0, 2 * time.Second},
		{"negative failures", -1, 2 * time.Second},
		{"one failure", 1, 4 * time.Second},
		{"two failures", 2, 8 * time.Second},
		{"three failures", 3, 16 * time.Second},
		{"four failures capped", 4, 30 * time.Second}, // Would be 32s, capped to 30s
		{"many failures capped", 10, 30 * time.Second},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := calculateBackoff(tt.failures, baseInterval)
			if got != tt.want {
				t.Errorf("calculateBackoff(%d, %v) = %v, want %v", tt.failures, baseInterval, got, tt.want)
			}
		})
	}
}

func TestCalculateBackoff_MaxCap(t *testing.T) {
	baseInterval := 2 * time.Second
	for failures := 0; failures <= 64; failures++ {
		got := calculateBackoff(failures, baseInterval)
		if got > maxBackoff {
			t.Errorf("calculateBackoff(%d, %v) = %v, exceeds maxBackoff %v", failures, baseInterval, got, maxBackoff)
		}
	}
}

type fakeRefresher struct {
	mu        sync.Mutex
	userID    int64
	verifyID  int64
	verifyErr error
	userErr   error
	verified  int
	users     []int64
	sessions  int
	videos    int
	called    chan struct{}
}

func (f *fakeRefresher) CurrentUserID() int64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.userID
}

func (f *fakeRefresher) VerifySession(ctx context.Context) (ledger.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.verified++
	if f.verifyErr != nil {
		return ledger.User{}, f.verifyErr
	}
	f.userID = f.verifyID
	return ledger.User{ID: f.verifyID}, nil
}

func (f *fakeRefresher) CheckVideo(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.videos++
	return nil
}

func (f *fakeRefresher) RefreshUserContext(ctx context.Context, userID int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.users = append(f.users, userID)
	return f.userErr
}

func (f *fakeRefresher) RefreshSessions(ctx context.Context) error {
	f.mu.Lock()
	f.sessions++
	f.mu.Unlock()
	if f.called != nil {
		select {
		case f.called <- struct{}{}:
		default:
		}
	}
	return nil
}

func TestRefresh(t *testing.T) {
	tests := []struct {
		name         string
		token        string
		userID       int64
		verifyID     int64
		verifyErr    error
		userErr      error
		wantErr      bool
		wantVerified int
		wantUser     int64
		wantUsers    int
		wantSessions int
		wantVideos   int
	}{
		{name: "logged in", token: "tok", userID: 42, wantUser: 42, wantUsers: 1, wantSessions: 1, wantVideos: 1},
		{name: "no token", token: "", userID: 42},
		{name: "opaque token verified", token: "tok", verifyID: 9, wantVerified: 1, wantUser: 9, wantUsers: 1, wantSessions: 1, wantVideos: 1},
		{name: "opaque token rejected", token: "tok", verifyErr: errors.New("401"), wantErr: true, wantVerified: 1},
		{name: "verify without user", token: "tok", wantVerified: 1},
		{name: "user context fails", token: "tok", userID: 42, userErr: errors.New("boom"), wantErr: true, wantUser: 42, wantUsers: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := &fakeRefresher{userID: tt.userID, verifyID: tt.verifyID, verifyErr: tt.verifyErr, userErr: tt.userErr}
			err := refresh(context.Background(), r, ledger.StaticToken(tt.token))
			if (err != nil) != tt.wantErr {
				t.Fatalf("refresh error = %v, wantErr %v", err, tt.wantErr)
			}
			if r.verified != tt.wantVerified {
				t.Fatalf("verify calls = %d, want %d", r.verified, tt.wantVerified)
			}
			if len(r.users) != tt.wantUsers || r.sessions != tt.wantSessions || r.videos != tt.wantVideos {
				t.Fatalf("calls = %d user / %d sessions / %d video, want %d / %d / %d",
					len(r.users), r.sessions, r.videos, tt.wantUsers, tt.wantSessions, tt.wantVideos)
			}
			if tt.wantUsers > 0 && r.users[0] != tt.wantUser {
				t.Fatalf("refreshed user %d, want %d", r.users[0], tt.wantUser)
			}
		})
	}
}

func TestStartPoller_RefreshesImmediately(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	r := &fakeRefresher{userID: 7, called: make(chan struct{}, 1)}
	StartPoller(ctx, r, ledger.StaticToken("tok"), time.Hour, nil)

	select {
	case <-r.called:
	case <-time.After(2 * time.Second):
		t.Fatal("poller did not refresh on start")
	}
}
