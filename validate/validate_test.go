package validate

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

// fakeDDG serves both the autocomplete and instant answer endpoints from one
// server, switching on path.
func fakeDDG(t *testing.T, autocomplete, instant string, fail bool) (*Validator, *atomic.Int32) {
	t.Helper()
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		if fail {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		if r.URL.Path == "/ac" {
			w.Write([]byte(autocomplete))
		} else {
			w.Write([]byte(instant))
		}
	}))
	t.Cleanup(srv.Close)

	v := New(srv.Client(), time.Minute)
	v.autocompleteURL = srv.URL + "/ac"
	v.instantURL = srv.URL
	return v, &hits
}

func TestValidate_InstantAnswerWins(t *testing.T) {
	v, _ := fakeDDG(t,
		`[{"phrase":"usb c cable 2m"}]`,
		`{"AbstractText":"USB-C is a connector standard.","RelatedTopics":[]}`,
		false)

	resp := v.Validate(context.Background(), "usb c cable")
	if !resp.IsValid || !resp.HasResults {
		t.Errorf("resp = %+v, want valid with results", resp)
	}
	if resp.Confidence != 0.9 {
		t.Errorf("Confidence = %v, want 0.9", resp.Confidence)
	}
}

func TestValidate_SuggestionsOnly(t *testing.T) {
	v, _ := fakeDDG(t,
		`[{"phrase":"usb c cable"},{"phrase":"USB C CABLE"},{"phrase":"usb c cable 2m"}]`,
		`{"AbstractText":"","Answer":"","RelatedTopics":[]}`,
		false)

	resp := v.Validate(context.Background(), "usb c cable")
	if !resp.IsValid || resp.HasResults {
		t.Errorf("resp = %+v, want valid without results", resp)
	}
	if resp.Confidence != 0.7 {
		t.Errorf("Confidence = %v, want 0.7", resp.Confidence)
	}
	// The query itself is filtered out case-insensitively.
	if len(resp.Suggestions) != 1 || resp.Suggestions[0] != "usb c cable 2m" {
		t.Errorf("Suggestions = %v", resp.Suggestions)
	}
}

func TestValidate_NothingFound(t *testing.T) {
	v, _ := fakeDDG(t, `[]`, `{"AbstractText":"","Answer":"","RelatedTopics":[]}`, false)

	resp := v.Validate(context.Background(), "xzqwkjv")
	if resp.IsValid || resp.HasResults {
		t.Errorf("resp = %+v, want invalid", resp)
	}
	if resp.Confidence != 0.2 {
		t.Errorf("Confidence = %v, want 0.2", resp.Confidence)
	}
}

func TestValidate_UpstreamFailureIsPermissive(t *testing.T) {
	v, _ := fakeDDG(t, "", "", true)

	resp := v.Validate(context.Background(), "usb c cable")
	if !resp.IsValid {
		t.Error("upstream failure must not block searches")
	}
	if resp.Confidence != 0.5 {
		t.Errorf("Confidence = %v, want permissive 0.5", resp.Confidence)
	}
}

func TestValidate_EmptyQuery(t *testing.T) {
	v, hits := fakeDDG(t, "", "", false)

	resp := v.Validate(context.Background(), "   ")
	if resp.IsValid || resp.Confidence != 0 {
		t.Errorf("resp = %+v, want invalid with zero confidence", resp)
	}
	if hits.Load() != 0 {
		t.Error("empty query reached the upstream")
	}
}

func TestValidate_MemoizesWithinTTL(t *testing.T) {
	v, hits := fakeDDG(t, `[]`, `{"Answer":"42"}`, false)

	v.Validate(context.Background(), "meaning of life")
	after := hits.Load()
	v.Validate(context.Background(), "meaning of life")
	if hits.Load() != after {
		t.Errorf("repeat validation hit upstream again (%d -> %d)", after, hits.Load())
	}
}
