package notify

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestSlack_SendsBoldTitleAndText(t *testing.T) {
	var got slackPayload
	var contentType string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		contentType = r.Header.Get("Content-Type")
		_ = json.NewDecoder(r.Body).Decode(&got)
		w.WriteHeader(200)
	}))
	defer ts.Close()

	s := NewSlack(ts.URL)
	if s == nil {
		t.Fatal("expected slack client")
	}
	if err := s.Send(context.Background(), "Title", "Body"); err != nil {
		t.Fatalf("send: %v", err)
	}
	if contentType != "application/json" {
		t.Fatalf("content type %q", contentType)
	}
	if !strings.HasPrefix(got.Text, "*Title*") || !strings.Contains(got.Text, "Body") {
		t.Fatalf("payload not as expected: %+v", got)
	}
}

func TestSlack_Non2xxIsError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(500)
	}))
	defer ts.Close()

	s := NewSlack(ts.URL)
	err := s.Send(context.Background(), "X", "Y")
	if err == nil {
		t.Fatal("expected error on non-2xx")
	}
	if !strings.Contains(err.Error(), "500") {
		t.Fatalf("error should carry the status code, got %q", err)
	}
}

func TestNewSlack_DisabledWithoutWebhook(t *testing.T) {
	if NewSlack("") != nil {
		t.Fatal("slack must be nil without a webhook")
	}
}

func TestMulti_SkipsNilAndReportsFirstError(t *testing.T) {
	bad := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(500)
	}))
	defer bad.Close()
	ok := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(200)
	}))
	defer ok.Close()

	m := Multi{nil, NewSlack(bad.URL), NewSlack(ok.URL)}
	if err := m.Send(context.Background(), "T", "X"); err == nil {
		t.Fatal("expected first error to surface")
	}
}
