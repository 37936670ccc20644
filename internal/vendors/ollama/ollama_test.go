package ollama

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/youruser/chatdoc/internal/conf"
	"github.com/youruser/chatdoc/internal/models"
)

func drain(t *testing.T, ch chan models.CompletionEvent) (string, bool) {
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
			t.Fatal("timeout draining events")
		}
	}
}

func TestStreamCompletions_NDJSON(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/chat" {
			t.Errorf("unexpected path: %v", r.URL.Path)
		}
		body, _ := io.ReadAll(r.Body)
		var req chatRequest
		if err := json.Unmarshal(body, &req); err != nil {
			t.Errorf("request not json: %v", err)
		}
		if !req.Stream || req.Model != "llama3" {
			t.Errorf("unexpected request: %+v", req)
		}
		fmt.Fprintln(w, `{"message":{"content":"Hel"},"done":false}`)
		fmt.Fprintln(w, `{"message":{"content":"lo"},"done":false}`)
		fmt.Fprintln(w, `{"message":{"content":""},"done":true}`)
	}))
	defer ts.Close()

	o := New(conf.Config{OllamaURL: ts.URL}, "llama3", 0.8)
	ch, err := o.StreamCompletions(context.Background(), models.Chat{Turns: []models.Turn{{Role: "user", Content: "hi"}}})
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	got, stopped := drain(t, ch)
	if got != "Hello" {
		t.Fatalf("expected 'Hello', got: %q", got)
	}
	if !stopped {
		t.Fatal("expected StopEvent on done frame")
	}
}

func TestStreamCompletions_LineSplitAcrossReads(t *testing.T) {
	// the JSON object is delivered in two separate network reads, the
	// carry-over buffering must yield exactly one fragment
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fl := w.(http.Flusher)
		fmt.Fprint(w, `{"message":{"content":"Hel`)
		fl.Flush()
		time.Sleep(20 * time.Millisecond)
		fmt.Fprint(w, "lo\"}}\n")
		fl.Flush()
		fmt.Fprintln(w, `{"done":true}`)
	}))
	defer ts.Close()

	o := New(conf.Config{OllamaURL: ts.URL}, "llama3", 1.0)
	ch, err := o.StreamCompletions(context.Background(), models.Chat{})
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	got, _ := drain(t, ch)
	if got != "Hello" {
		t.Fatalf("expected exactly one 'Hello' fragment, got: %q", got)
	}
}

func TestStreamCompletions_ImagesFlattened(t *testing.T) {
	var gotBody []byte
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotBody, _ = io.ReadAll(r.Body)
		fmt.Fprintln(w, `{"done":true}`)
	}))
	defer ts.Close()

	o := New(conf.Config{OllamaURL: ts.URL}, "llava", 1.0)
	chat := models.Chat{Turns: []models.Turn{{
		Role:    "user",
		Content: "what is this",
		Images:  []models.Image{{Data: "aGk=", MimeType: "image/png"}},
	}}}
	ch, err := o.StreamCompletions(context.Background(), chat)
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	drain(t, ch)
	if !strings.Contains(string(gotBody), `"images":["aGk="]`) {
		t.Fatalf("expected raw base64 image array, body: %v", string(gotBody))
	}
}

func TestStreamCompletions_MissingURL(t *testing.T) {
	o := New(conf.Config{}, "llama3", 1.0)
	_, err := o.StreamCompletions(context.Background(), models.Chat{})
	if err == nil {
		t.Fatal("expected configuration error")
	}
	if !errors.Is(err, models.ErrConfiguration) {
		t.Fatalf("expected configuration error, got: %v", err)
	}
}

func TestListModels(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/tags" {
			t.Errorf("unexpected path: %v", r.URL.Path)
		}
		fmt.Fprintln(w, `{"models":[{"name":"llama3"},{"name":"llava:13b"}]}`)
	}))
	defer ts.Close()

	o := New(conf.Config{OllamaURL: ts.URL}, "llama3", 1.0)
	got, err := o.ListModels(context.Background())
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	want := []string{"llama3", "llava:13b"}
	if len(got) != len(want) {
		t.Fatalf("expected %v models, got: %v", len(want), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("model %v: got %q want %q", i, got[i], want[i])
		}
	}
}
