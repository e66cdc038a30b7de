package notify

import "testing"

func TestCenter_BoundedAndOrdered(t *testing.T) {
	c := NewCenter(2)
	c.Post(Info, "", "one")
	c.Post(Warn, "", "two")
	c.Post(Error, "", "three")

	got := c.Active()
	if len(got) != 2 || got[0].Message != "two" || got[1].Message != "three" {
		t.Fatalf("Active = %+v, want two,three", got)
	}
	latest, ok := c.Latest()
	if !ok || latest.Level != Error {
		t.Fatalf("Latest = %+v, want error notice", latest)
	}
}

func TestCenter_KeyReplacesPrevious(t *testing.T) {
	c := NewCenter(0)
	c.Post(Warn, "network", "offline")
	c.Post(Warn, "network", "still offline")
	if got := c.Active(); len(got) != 1 || got[0].Message != "still offline" {
		t.Fatalf("Active = %+v, want single replaced notice", got)
	}
	c.DismissKey("network")
	if len(c.Active()) != 0 {
		t.Fatalf("DismissKey left notices behind")
	}
}

func TestCenter_DismissAndChangedSignal(t *testing.T) {
	c := NewCenter(4)
	id := c.Post(Info, "", "hello")

	select {
	case <-c.Changed():
	default:
		t.Fatalf("Post did not signal")
	}

	if !c.Dismiss(id) {
		t.Fatalf("Dismiss(%d) = false", id)
	}
	if c.Dismiss(id) {
		t.Fatalf("second Dismiss reported removal")
	}
	if _, ok := c.Latest(); ok {
		t.Fatalf("Latest reported a notice after dismiss")
	}
}

func TestCenter_PostNeverBlocks(t *testing.T) {
	c := NewCenter(1)
	for i := 0; i < 100; i++ {
		c.Post(Info, "", "spam")
	}
	if len(c.Active()) != 1 {
		t.Fatalf("Active len = %d, want 1", len(c.Active()))
	}
}
