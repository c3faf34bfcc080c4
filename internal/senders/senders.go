// Package senders holds the outbound channel integrations. Both senders
// are fire-and-forget for the caller: they log failure detail internally
// and return false instead of an error, and true only on confirmed
// provider acceptance. Credentials are read from the environment per
// call, so a missing credential surfaces at send time, not at startup.
package senders

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"strings"
)

const (
	defaultEmailAPIURL  = "https://api.resend.com/emails"
	defaultGraphAPIBase = "https://graph.facebook.com/v19.0"
)

type Client struct {
	HTTPClient   *http.Client
	EmailAPIURL  string
	GraphAPIBase string
}

func NewClient() *Client {
	return &Client{
		HTTPClient:   &http.Client{},
		EmailAPIURL:  defaultEmailAPIURL,
		GraphAPIBase: defaultGraphAPIBase,
	}
}

type emailRequest struct {
	From    string   `json:"from"`
	To      []string `json:"to"`
	Subject string   `json:"subject"`
	HTML    string   `json:"html"`
}

// SendEmail delivers an email through the Resend API.
func (c *Client) SendEmail(ctx context.Context, to, subject, htmlContent string) bool {
	apiKey := os.Getenv("RESEND_API_KEY")
	if apiKey == "" {
		log.Println("Email send failed: RESEND_API_KEY is not set")
		return false
	}

	fromEmail := os.Getenv("DEFAULT_FROM_EMAIL")
	if fromEmail == "" {
		fromEmail = "onboarding@resend.dev"
	}
	fromName := os.Getenv("DEFAULT_FROM_NAME")
	if fromName == "" {
		fromName = "Support Inbox"
	}

	payload := emailRequest{
		From:    fmt.Sprintf("%s <%s>", fromName, fromEmail),
		To:      []string{to},
		Subject: subject,
		HTML:    htmlContent,
	}

	body, err := c.post(ctx, c.EmailAPIURL, apiKey, payload)
	if err != nil {
		log.Printf("Email send to %s failed: %v", to, err)
		return false
	}

	var resp struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(body, &resp); err != nil || resp.ID == "" {
		log.Printf("Email send to %s: provider returned no message id", to)
		return false
	}

	log.Printf("Email sent to %s (id %s)", to, resp.ID)
	return true
}

type whatsAppRequest struct {
	MessagingProduct string      `json:"messaging_product"`
	RecipientType    string      `json:"recipient_type"`
	To               string      `json:"to"`
	Type             string      `json:"type"`
	Text             whatsAppTxt `json:"text"`
}

type whatsAppTxt struct {
	PreviewURL bool   `json:"preview_url"`
	Body       string `json:"body"`
}

// SendWhatsApp delivers a text message through the WhatsApp Cloud API.
func (c *Client) SendWhatsApp(ctx context.Context, to, content string) bool {
	apiKey := os.Getenv("WHATSAPP_API_KEY")
	phoneNumberID := os.Getenv("WHATSAPP_PHONE_NUMBER_ID")
	if apiKey == "" || phoneNumberID == "" {
		log.Println("WhatsApp send failed: WHATSAPP_API_KEY or WHATSAPP_PHONE_NUMBER_ID is not set")
		return false
	}

	payload := whatsAppRequest{
		MessagingProduct: "whatsapp",
		RecipientType:    "individual",
		To:               normalizePhone(to),
		Type:             "text",
		Text:             whatsAppTxt{Body: content},
	}

	url := fmt.Sprintf("%s/%s/messages", c.GraphAPIBase, phoneNumberID)
	if _, err := c.post(ctx, url, apiKey, payload); err != nil {
		log.Printf("WhatsApp send to %s failed: %v", to, err)
		return false
	}

	log.Printf("WhatsApp message sent to %s", to)
	return true
}

func (c *Client) post(ctx context.Context, url, token string, payload any) ([]byte, error) {
	jsonData, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode >= 400 {
		return respBody, fmt.Errorf("API error: %s - %s", resp.Status, string(respBody))
	}
	return respBody, nil
}

// normalizePhone strips everything except digits, matching what the
// provider expects.
func normalizePhone(phone string) string {
	var b strings.Builder
	for _, r := range phone {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
