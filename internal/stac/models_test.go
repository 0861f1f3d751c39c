package stac

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/vpremier/data-download/internal/scene"
)

func TestNewItemCollection_EmptyPage(t *testing.T) {
	ic := NewItemCollection(nil, 7, 10)
	ic.Context.Tiles = []string{"T32TNS"}
	ic.Dedup = &scene.Summary{Before: 9, After: 7}

	if ic.NumberReturned != 0 || *ic.NumberMatched != 7 {
		t.Errorf("returned = %d, matched = %d", ic.NumberReturned, *ic.NumberMatched)
	}
	if ic.Context.Limit != 10 || *ic.Context.Matched != 7 {
		t.Errorf("context = %+v", ic.Context)
	}

	b, err := json.Marshal(ic)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	body := string(b)
	for _, want := range []string{`"features":[]`, `"tiles":["T32TNS"]`, `"dedup":{`} {
		if !strings.Contains(body, want) {
			t.Errorf("expected %s in %s", want, body)
		}
	}
}
