package stac

import (
	"net/url"
	"strings"
	"testing"
	"time"
)

func TestCursorRoundTrip(t *testing.T) {
	enc := EncodeCursor(&Cursor{Token: "abc123", Offset: 40})
	c, err := DecodeCursor(enc)
	if err != nil {
		t.Fatalf("DecodeCursor: %v", err)
	}
	if c.Token != "abc123" || c.Offset != 40 {
		t.Errorf("cursor = %+v", c)
	}

	if c, err := DecodeCursor(""); c != nil || err != nil {
		t.Errorf("empty cursor should decode to nil, got %+v, %v", c, err)
	}
	if _, err := DecodeCursor("!!!"); err == nil {
		t.Error("expected error for garbage cursor")
	}
	if _, err := DecodeCursor(EncodeCursor(&Cursor{Offset: 1})); err == nil {
		t.Error("expected error for cursor without token")
	}
}

func TestPage(t *testing.T) {
	s := []int{0, 1, 2, 3, 4}
	if got := Page(s, 0, 2); len(got) != 2 || got[0] != 0 {
		t.Errorf("first page = %v", got)
	}
	if got := Page(s, 4, 2); len(got) != 1 || got[0] != 4 {
		t.Errorf("last page = %v", got)
	}
	if got := Page(s, 10, 2); len(got) != 0 {
		t.Errorf("past the end = %v", got)
	}
	if got := Page(s, 1, 0); len(got) != 4 {
		t.Errorf("no limit = %v", got)
	}
}

func TestBuildPaginationLinks(t *testing.T) {
	info := PageInfo{
		BaseURL:     "http://example.com/search",
		Token:       "tok",
		Offset:      10,
		Limit:       10,
		Total:       25,
		QueryParams: url.Values{"collections": {"sentinel-2-l1c"}, "cursor": {"old"}, "limit": {"3"}},
	}

	links := BuildPaginationLinks(info)
	if len(links) != 2 {
		t.Fatalf("expected prev and next, got %d links", len(links))
	}

	for _, l := range links {
		u, err := url.Parse(l.Href)
		if err != nil {
			t.Fatal(err)
		}
		q := u.Query()
		if q.Get("collections") != "sentinel-2-l1c" || q.Get("limit") != "10" {
			t.Errorf("%s link lost params: %s", l.Rel, l.Href)
		}
		c, err := DecodeCursor(q.Get("cursor"))
		if err != nil {
			t.Fatalf("%s cursor: %v", l.Rel, err)
		}
		want := map[string]int{"prev": 0, "next": 20}[l.Rel]
		if c.Offset != want || c.Token != "tok" {
			t.Errorf("%s cursor = %+v, want offset %d", l.Rel, c, want)
		}
	}

	info.Offset = 20
	links = BuildPaginationLinks(info)
	if len(links) != 1 || links[0].Rel != "prev" {
		t.Errorf("last page should only link back, got %d links", len(links))
	}

	info.Token = ""
	if links := BuildPaginationLinks(info); len(links) != 0 {
		t.Error("no links without a stored set")
	}
}

func TestMemoryResultStore(t *testing.T) {
	store := NewMemoryResultStore(time.Minute, time.Hour)
	defer store.Stop()

	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return now }

	token, err := store.Store(&ResultSet{Collection: "sentinel-2-l1c"})
	if err != nil {
		t.Fatalf("Store: %v", err)
	}
	if len(token) != 32 || strings.Trim(token, "0123456789abcdef") != "" {
		t.Errorf("token %q is not 32 hex chars", token)
	}

	rs, err := store.Retrieve(token)
	if err != nil || rs.Collection != "sentinel-2-l1c" {
		t.Fatalf("Retrieve = %+v, %v", rs, err)
	}

	if _, err := store.Retrieve("missing"); err != ErrResultNotFound {
		t.Errorf("expected ErrResultNotFound, got %v", err)
	}

	now = now.Add(2 * time.Minute)
	if _, err := store.Retrieve(token); err != ErrResultExpired {
		t.Errorf("expected ErrResultExpired, got %v", err)
	}

	store.cleanup()
	if store.Len() != 0 {
		t.Errorf("cleanup left %d entries", store.Len())
	}

	store.Stop()
}
