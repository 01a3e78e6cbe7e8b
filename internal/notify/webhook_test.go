package notify

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/homepulse/homepulse/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWebhookName(t *testing.T) {
	p := NewWebhook("http://localhost/hook", "", nil)
	assert.Equal(t, "webhook", p.Name())
}

func TestWebhookSendJSON(t *testing.T) {
	var gotBody model.Notification
	var gotContentType string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotContentType = r.Header.Get("Content-Type")
		b, _ := io.ReadAll(r.Body)
		json.Unmarshal(b, &gotBody)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	p := NewWebhook(srv.URL+"/hook", "", nil)
	notif := model.Notification{
		AlertType: "anomaly",
		Severity:  "critical",
		Title:     "Memory saturation",
		Message:   "Memory at 96.2% exceeds the 90% saturation threshold",
		Subject:   "memory_percent",
		Timestamp: time.Date(2026, 8, 15, 12, 0, 0, 0, time.UTC),
		Metadata:  map[string]string{"host": "pulse1"},
	}

	err := p.Send(context.Background(), notif)
	require.NoError(t, err)

	assert.Equal(t, "application/json", gotContentType)
	assert.Equal(t, "anomaly", gotBody.AlertType)
	assert.Equal(t, "critical", gotBody.Severity)
	assert.Equal(t, "Memory saturation", gotBody.Title)
	assert.Equal(t, "memory_percent", gotBody.Subject)
	assert.Equal(t, "pulse1", gotBody.Metadata["host"])
}

func TestWebhookCustomHeaders(t *testing.T) {
	var gotAuth string
	var gotCustom string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotCustom = r.Header.Get("X-Custom")
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	headers := map[string]string{
		"Authorization": "Bearer tok123",
		"X-Custom":      "my-value",
	}
	p := NewWebhook(srv.URL, "", headers)
	err := p.Send(context.Background(), model.Notification{
		Severity: "info",
		Title:    "Test",
		Message:  "test",
	})
	require.NoError(t, err)

	assert.Equal(t, "Bearer tok123", gotAuth)
	assert.Equal(t, "my-value", gotCustom)
}

func TestWebhookMethodOverride(t *testing.T) {
	var gotMethod string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	p := NewWebhook(srv.URL, http.MethodPut, nil)
	err := p.Send(context.Background(), model.Notification{
		Severity: "info",
		Title:    "Test",
		Message:  "test",
	})
	require.NoError(t, err)
	assert.Equal(t, "PUT", gotMethod)
}

func TestWebhookDefaultMethodIsPost(t *testing.T) {
	var gotMethod string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	p := NewWebhook(srv.URL, "", nil)
	err := p.Send(context.Background(), model.Notification{
		Severity: "info",
		Title:    "Test",
		Message:  "test",
	})
	require.NoError(t, err)
	assert.Equal(t, "POST", gotMethod)
}

func TestWebhookServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	p := NewWebhook(srv.URL, "", nil)
	err := p.Send(context.Background(), model.Notification{
		Severity: "info",
		Title:    "Test",
		Message:  "test",
	})
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "502")
}

func TestWebhookSendCancelledContext(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	p := NewWebhook(srv.URL, "", nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := p.Send(ctx, model.Notification{
		Severity: "info",
		Title:    "Test",
		Message:  "cancelled",
	})
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "webhook: send:")
}

type stubProvider struct {
	name string
	err  error
	sent []model.Notification
}

func (s *stubProvider) Name() string { return s.name }

func (s *stubProvider) Send(_ context.Context, n model.Notification) error {
	s.sent = append(s.sent, n)
	return s.err
}

func TestBroadcast_AllProvidersAttempted(t *testing.T) {
	failing := &stubProvider{name: "first", err: errors.New("boom")}
	working := &stubProvider{name: "second"}

	err := Broadcast(context.Background(), []Provider{failing, working}, model.Notification{
		Severity: "info", Title: "Test", Message: "test",
	})
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "first")
	assert.Len(t, failing.sent, 1)
	assert.Len(t, working.sent, 1)
}

func TestBroadcast_NoProviders(t *testing.T) {
	err := Broadcast(context.Background(), nil, model.Notification{Title: "Test"})
	assert.NoError(t, err)
}
