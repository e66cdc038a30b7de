package video

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"sync"
)

// DefaultJitsiDomain is the public Jitsi deployment.
const DefaultJitsiDomain = "meet.jit.si"

// Jitsi hands rooms to a Jitsi Meet deployment. The meeting itself runs in
// whatever open launches (usually a browser); Jitsi only builds the URL and
// tracks handles so the client can be told when the user leaves.
type Jitsi struct {
	domain string
	open   func(meetingURL string) error

	mu      sync.Mutex
	next    int
	handles map[Handle][]func()
}

// NewJitsi returns a Jitsi conference for domain. open receives each meeting URL.
func NewJitsi(domain string, open func(meetingURL string) error) *Jitsi {
	domain = strings.TrimSpace(domain)
	domain = strings.TrimPrefix(strings.TrimPrefix(domain, "https://"), "http://")
	domain = strings.TrimSuffix(domain, "/")
	if domain == "" {
		domain = DefaultJitsiDomain
	}
	return &Jitsi{domain: domain, open: open, handles: make(map[Handle][]func())}
}

// MeetingURL returns the URL that joins roomID with displayName prefilled.
func (j *Jitsi) MeetingURL(roomID, displayName string) string {
	u := url.URL{Scheme: "https", Host: j.domain, Path: "/" + roomID}
	if displayName != "" {
		u.Fragment = "userInfo.displayName=" + strconv.Quote(displayName)
	}
	return u.String()
}

// Start implements Conference.
func (j *Jitsi) Start(roomID, displayName string) (Handle, error) {
	if strings.TrimSpace(roomID) == "" {
		return "", fmt.Errorf("jitsi: room id required")
	}
	if j.open != nil {
		if err := j.open(j.MeetingURL(roomID, displayName)); err != nil {
			return "", fmt.Errorf("jitsi: open meeting: %w", err)
		}
	}
	j.mu.Lock()
	defer j.mu.Unlock()
	j.next++
	h := Handle(roomID + "#" + strconv.Itoa(j.next))
	j.handles[h] = nil
	return h, nil
}

// OnEnded implements Conference.
func (j *Jitsi) OnEnded(h Handle, fn func()) {
	j.mu.Lock()
	defer j.mu.Unlock()
	if _, ok := j.handles[h]; !ok {
		return
	}
	j.handles[h] = append(j.handles[h], fn)
}

// Left reports that the user left the meeting behind h, firing its callbacks once.
func (j *Jitsi) Left(h Handle) {
	j.mu.Lock()
	fns, ok := j.handles[h]
	delete(j.handles, h)
	j.mu.Unlock()
	if !ok {
		return
	}
	for _, fn := range fns {
		fn()
	}
}

// Dispose implements Conference.
func (j *Jitsi) Dispose(h Handle) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	if _, ok := j.handles[h]; !ok {
		return ErrUnknownHandle
	}
	delete(j.handles, h)
	return nil
}

var (
	_ Conference = (*Jitsi)(nil)
	_ Leaver     = (*Jitsi)(nil)
)
