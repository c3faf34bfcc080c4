package senders

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testClient(url string) *Client {
	return &Client{
		HTTPClient:   &http.Client{},
		EmailAPIURL:  url,
		GraphAPIBase: url,
	}
}

func TestSendEmailSuccess(t *testing.T) {
	t.Setenv("RESEND_API_KEY", "test-key")
	t.Setenv("DEFAULT_FROM_EMAIL", "support@example.com")
	t.Setenv("DEFAULT_FROM_NAME", "Acme Support")

	var received emailRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&received))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"id":"email-123"}`))
	}))
	defer server.Close()

	ok := testClient(server.URL).SendEmail(context.Background(), "alex@example.com", "Re: Order", "<p>hi</p>")
	assert.True(t, ok)
	assert.Equal(t, "Acme Support <support@example.com>", received.From)
	assert.Equal(t, []string{"alex@example.com"}, received.To)
	assert.Equal(t, "Re: Order", received.Subject)
	assert.Equal(t, "<p>hi</p>", received.HTML)
}

func TestSendEmailMissingCredential(t *testing.T) {
	t.Setenv("RESEND_API_KEY", "")

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("provider must not be called without credentials")
	}))
	defer server.Close()

	ok := testClient(server.URL).SendEmail(context.Background(), "a@example.com", "s", "c")
	assert.False(t, ok)
}

func TestSendEmailProviderError(t *testing.T) {
	t.Setenv("RESEND_API_KEY", "test-key")

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"invalid recipient"}`, http.StatusUnprocessableEntity)
	}))
	defer server.Close()

	ok := testClient(server.URL).SendEmail(context.Background(), "bad", "s", "c")
	assert.False(t, ok)
}

func TestSendWhatsAppSuccess(t *testing.T) {
	t.Setenv("WHATSAPP_API_KEY", "wa-key")
	t.Setenv("WHATSAPP_PHONE_NUMBER_ID", "12345")

	var received whatsAppRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/12345/messages", r.URL.Path)
		assert.Equal(t, "Bearer wa-key", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&received))
		w.Write([]byte(`{"messages":[{"id":"wamid.1"}]}`))
	}))
	defer server.Close()

	ok := testClient(server.URL).SendWhatsApp(context.Background(), "+1 (555) 123-4567", "hello")
	assert.True(t, ok)
	assert.Equal(t, "whatsapp", received.MessagingProduct)
	assert.Equal(t, "15551234567", received.To, "phone must be normalized to digits")
	assert.Equal(t, "hello", received.Text.Body)
}

func TestSendWhatsAppMissingCredential(t *testing.T) {
	t.Setenv("WHATSAPP_API_KEY", "")
	t.Setenv("WHATSAPP_PHONE_NUMBER_ID", "")

	ok := NewClient().SendWhatsApp(context.Background(), "+1555", "hello")
	assert.False(t, ok)
}

func TestNormalizePhone(t *testing.T) {
	assert.Equal(t, "15551234567", normalizePhone("+1 (555) 123-4567"))
	assert.Equal(t, "49301234", normalizePhone("49 30 12 34"))
	assert.Equal(t, "", normalizePhone("no digits"))
}
