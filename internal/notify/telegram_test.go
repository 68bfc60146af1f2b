package notify

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/hamed0406/airqmon/internal/domain"
)

func TestTelegram_SendsChatIDAndText(t *testing.T) {
	var got telegramPayload
	var path string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		_ = json.NewDecoder(r.Body).Decode(&got)
		w.WriteHeader(200)
	}))
	defer ts.Close()

	tg := NewTelegram("token123", "chat42")
	if tg == nil {
		t.Fatal("expected telegram client")
	}
	tg.BaseURL = ts.URL

	if err := tg.Send(context.Background(), "Title", "Body"); err != nil {
		t.Fatalf("send: %v", err)
	}
	if path != "/bottoken123/sendMessage" {
		t.Fatalf("unexpected path %q", path)
	}
	if got.ChatID != "chat42" || !strings.HasPrefix(got.Text, "*Title*") {
		t.Fatalf("payload not as expected: %+v", got)
	}
}

func TestTelegram_Non2xxIsError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(502)
	}))
	defer ts.Close()

	tg := NewTelegram("t", "c")
	tg.BaseURL = ts.URL
	if err := tg.Send(context.Background(), "X", "Y"); err == nil {
		t.Fatal("expected error on non-2xx")
	}
}

func TestNewTelegram_DisabledWithoutConfig(t *testing.T) {
	if NewTelegram("", "chat") != nil || NewTelegram("tok", "") != nil {
		t.Fatal("telegram must be nil without full config")
	}
}

func TestFormatAlertEvent(t *testing.T) {
	raised := &domain.AlertEvent{
		Kind:        domain.AlertRaised,
		SensorPath:  "/livingroom",
		HealthIndex: 412,
		Threshold:   600,
		Consecutive: 10,
		At:          time.Now().UTC(),
	}
	title, text := FormatAlertEvent(raised)
	if !strings.Contains(title, "alert") {
		t.Fatalf("title %q", title)
	}
	for _, want := range []string{"/livingroom", "412/1000", "600", "10"} {
		if !strings.Contains(text, want) {
			t.Fatalf("text missing %q: %q", want, text)
		}
	}

	cleared := &domain.AlertEvent{Kind: domain.AlertCleared, SensorPath: "/a", HealthIndex: 810, Threshold: 600}
	title, text = FormatAlertEvent(cleared)
	if !strings.Contains(title, "recovered") || !strings.Contains(text, "810/1000") {
		t.Fatalf("unexpected recovery message %q %q", title, text)
	}
}
