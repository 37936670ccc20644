package generic

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/youruser/chatdoc/internal/models"
)

func collect(t *testing.T, ch chan models.CompletionEvent) (string, bool) {
	t.Helper()
	var sb strings.Builder
	stopped := false
	timeout := time.After(2 * time.Second)
	for {
		select {
		case ev, ok := <-ch:
			if !ok {
				return sb.String(), stopped
			}
			switch e := ev.(type) {
			case string:
				sb.WriteString(e)
			case models.StopEvent:
				stopped = true
			case error:
				t.Fatalf("unexpected error event: %v", e)
			}
		case <-timeout:
			t.Fatal("timeout collecting events")
		}
	}
}

func TestStreamCompletions_HappyPath(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		fmt.Fprintf(w, "data: %s\n\n", `{"choices":[{"delta":{"content":"Hel"}}]}`)
		fmt.Fprintf(w, "data: %s\n\n", `{"choices":[{"delta":{"content":"lo"}}]}`)
		fmt.Fprint(w, "data: [DONE]\n\n")
	}))
	defer ts.Close()

	s := &StreamCompleter{Model: "m", URL: ts.URL, AuthHeader: "Authorization", AuthValue: "Bearer k"}
	s.Setup()
	ch, err := s.StreamCompletions(context.Background(), models.Chat{Turns: []models.Turn{{Role: "user", Content: "hi"}}})
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	got, stopped := collect(t, ch)
	if got != "Hello" {
		t.Fatalf("expected 'Hello', got: %q", got)
	}
	if !stopped {
		t.Fatal("expected StopEvent before close")
	}
}

func TestStreamCompletions_EventSplitAcrossChunks(t *testing.T) {
	// the SSE data line arrives in two network reads, the line buffering
	// must stitch them together into exactly one fragment
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fl := w.(http.Flusher)
		fmt.Fprint(w, `data: {"choices":[{"delta":{"content":"Hel`)
		fl.Flush()
		time.Sleep(20 * time.Millisecond)
		fmt.Fprint(w, "lo\"}}]}\n")
		fl.Flush()
		fmt.Fprint(w, "data: [DONE]\n")
	}))
	defer ts.Close()

	s := &StreamCompleter{Model: "m", URL: ts.URL, AuthHeader: "Authorization", AuthValue: "Bearer k"}
	s.Setup()
	ch, err := s.StreamCompletions(context.Background(), models.Chat{})
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	got, _ := collect(t, ch)
	if got != "Hello" {
		t.Fatalf("expected exactly 'Hello' despite chunk split, got: %q", got)
	}
}

func TestStreamCompletions_MalformedLineDropped(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "data: not json at all\n")
		fmt.Fprintf(w, "data: %s\n", `{"choices":[{"delta":{"content":"ok"}}]}`)
		fmt.Fprint(w, "data: [DONE]\n")
	}))
	defer ts.Close()

	s := &StreamCompleter{Model: "m", URL: ts.URL, AuthHeader: "Authorization", AuthValue: "Bearer k"}
	s.Setup()
	ch, err := s.StreamCompletions(context.Background(), models.Chat{})
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	got, _ := collect(t, ch)
	if got != "ok" {
		t.Fatalf("expected malformed line to be dropped, got: %q", got)
	}
}

func TestStreamCompletions_Non200(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte("bad key"))
	}))
	defer ts.Close()

	s := &StreamCompleter{Model: "m", URL: ts.URL, AuthHeader: "Authorization", AuthValue: "Bearer k"}
	s.Setup()
	_, err := s.StreamCompletions(context.Background(), models.Chat{})
	if err == nil || !strings.Contains(err.Error(), "unexpected status code") {
		t.Fatalf("expected status error, got: %v", err)
	}
}

func TestStreamCompletions_CancelEndsSequence(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fl := w.(http.Flusher)
		fmt.Fprintf(w, "data: %s\n", `{"choices":[{"delta":{"content":"first"}}]}`)
		fl.Flush()
		// keep the stream open, the client must abort it
		<-r.Context().Done()
	}))
	defer ts.Close()

	s := &StreamCompleter{Model: "m", URL: ts.URL, AuthHeader: "Authorization", AuthValue: "Bearer k"}
	s.Setup()
	ctx, cancel := context.WithCancel(context.Background())
	ch, err := s.StreamCompletions(ctx, models.Chat{})
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	select {
	case ev := <-ch:
		if ev != "first" {
			t.Fatalf("expected first fragment, got: %v", ev)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for first fragment")
	}
	cancel()
	select {
	case _, ok := <-ch:
		if ok {
			// a single in-flight event may race the cancel, the channel
			// must close right after
			if _, stillOpen := <-ch; stillOpen {
				t.Fatal("expected channel to close after cancel")
			}
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for channel close after cancel")
	}
}

func TestCreateRequest_BodyAndHeaders(t *testing.T) {
	s := &StreamCompleter{
		Model:       "gpt-4o",
		Temperature: 0.4,
		URL:         "http://example.invalid",
		AuthHeader:  "api-key",
		AuthValue:   "sekret",
	}
	s.Setup()
	chat := models.Chat{Turns: []models.Turn{
		{Role: "user", Content: "look", Images: []models.Image{{Data: "aGk=", MimeType: "image/png"}}},
		{Role: "assistant", Content: "plain"},
	}}
	req, err := s.createRequest(context.Background(), chat)
	if err != nil {
		t.Fatalf("createRequest err: %v", err)
	}
	if got := req.Header.Get("api-key"); got != "sekret" {
		t.Fatalf("bad auth header: %q", got)
	}
	body, _ := io.ReadAll(req.Body)
	var sent completionRequest
	if err := json.Unmarshal(body, &sent); err != nil {
		t.Fatalf("body not json: %v", err)
	}
	if sent.Model != "gpt-4o" || !sent.Stream || sent.Temperature != 0.4 {
		t.Fatalf("unexpected request fields: %+v", sent)
	}
	if !strings.Contains(string(body), "data:image/png;base64,aGk=") {
		t.Fatalf("expected data-URI image part, body: %v", string(body))
	}
	if !strings.Contains(string(body), `"content":"plain"`) {
		t.Fatalf("expected plain string content for imageless turn, body: %v", string(body))
	}
}
