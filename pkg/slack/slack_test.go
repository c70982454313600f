package slack

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"saunamon/pkg/measurement"
)

type request struct {
	path, channel, text, blocks, auth string
}

func newServer(t *testing.T, ok bool, got *[]request) *httptest.Server {
	t.Helper()

	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			t.Error(err)
		}
		*got = append(*got, request{
			path:    r.URL.Path,
			channel: r.PostForm.Get("channel"),
			text:    r.PostForm.Get("text"),
			blocks:  r.PostForm.Get("blocks"),
			auth:    r.Header.Get("Authorization") + r.PostForm.Get("token"),
		})

		w.Header().Set("Content-Type", "application/json")
		if ok {
			_, _ = w.Write([]byte(`{"ok":true,"channel":"C123","ts":"1700000000.000100"}`))
		} else {
			_, _ = w.Write([]byte(`{"ok":false,"error":"channel_not_found"}`))
		}
	}))
}

func TestSend(t *testing.T) {
	var got []request
	srv := newServer(t, true, &got)
	defer srv.Close()

	h := New("xoxb-token", "#sauna", srv.URL+"/")
	if h.Name() != "slack" {
		t.Errorf("Name() = %q", h.Name())
	}

	r := measurement.Reading{Water: measurement.Value(80), Air: measurement.Value(70), Humidity: measurement.Value(10)}
	if err := h.Send(context.Background(), r); err != nil {
		t.Fatal(err)
	}

	if len(got) != 1 {
		t.Fatalf("got %d requests want 1", len(got))
	}
	req := got[0]
	if req.path != "/chat.postMessage" {
		t.Errorf("path = %q", req.path)
	}
	if req.channel != "#sauna" {
		t.Errorf("channel = %q", req.channel)
	}
	if req.text != r.Status() {
		t.Errorf("text = %q want %q", req.text, r.Status())
	}
	if !strings.Contains(req.blocks, "section") {
		t.Errorf("blocks = %q", req.blocks)
	}
	if !strings.Contains(req.auth, "xoxb-token") {
		t.Errorf("authorization = %q", req.auth)
	}
}

func TestAnnounce(t *testing.T) {
	var got []request
	srv := newServer(t, true, &got)
	defer srv.Close()

	h := New("xoxb-token", "#sauna", srv.URL+"/")
	if err := h.Announce(context.Background(), "https://ambidata.io/bd/board.html?id=18138"); err != nil {
		t.Fatal(err)
	}

	if len(got) != 1 {
		t.Fatalf("got %d requests want 1", len(got))
	}
	if !strings.Contains(got[0].text, "https://ambidata.io/bd/board.html?id=18138") {
		t.Errorf("text = %q", got[0].text)
	}
	if !strings.Contains(got[0].blocks, header) {
		t.Errorf("blocks = %q", got[0].blocks)
	}
}

func TestSendError(t *testing.T) {
	var got []request
	srv := newServer(t, false, &got)
	defer srv.Close()

	h := New("xoxb-token", "#nowhere", srv.URL+"/")
	err := h.Send(context.Background(), measurement.Reading{})
	if err == nil || !strings.Contains(err.Error(), "channel_not_found") {
		t.Errorf("Send() error = %v", err)
	}
}
