// Package webhook ingests inbound WhatsApp Cloud API notifications and
// turns them into inbox messages, auto-creating the customer on first
// contact.
package webhook

import (
	"log"
	"net/http"
	"strconv"
	"time"

	"support-inbox/internal/config"
	"support-inbox/internal/store"
	apperrors "support-inbox/pkg/errors"
	"support-inbox/pkg/models"

	"github.com/gin-gonic/gin"
)

type Handler struct {
	Config *config.Config
	Store  *store.Store
}

func NewHandler(cfg *config.Config, st *store.Store) *Handler {
	return &Handler{
		Config: cfg,
		Store:  st,
	}
}

func (h *Handler) VerifyWebhook(c *gin.Context) {
	mode := c.Query("hub.mode")
	token := c.Query("hub.verify_token")
	challenge := c.Query("hub.challenge")

	if mode != "" && token != "" {
		if mode == "subscribe" && token == h.Config.VerifyToken {
			log.Println("Webhook verified successfully!")
			c.String(http.StatusOK, challenge)
		} else {
			c.Status(http.StatusForbidden)
		}
	} else {
		c.Status(http.StatusBadRequest)
	}
}

func (h *Handler) HandleMessage(c *gin.Context) {
	var payload WebhookPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		log.Printf("Error binding JSON: %v", err)
		c.Status(http.StatusBadRequest)
		return
	}

	if len(payload.Entry) > 0 && len(payload.Entry[0].Changes) > 0 {
		value := payload.Entry[0].Changes[0].Value
		for _, inbound := range value.Messages {
			content := extractContent(inbound)
			if content == "" {
				continue
			}
			log.Printf("Received %s message from %s", inbound.Type, inbound.From)

			customer, err := h.findOrCreateCustomer(c, inbound.From, contactName(value, inbound.From))
			if err != nil {
				log.Printf("Error resolving customer for %s: %v", inbound.From, err)
				continue
			}

			message := models.Message{
				CustomerID: customer.ID,
				Channel:    models.ChannelWhatsApp,
				Content:    content,
				Timestamp:  parseTimestamp(inbound.Timestamp),
			}
			if _, err := h.Store.CreateMessage(c, message); err != nil {
				log.Printf("Error storing inbound message from %s: %v", inbound.From, err)
			}
		}
	}

	c.Status(http.StatusOK)
}

func (h *Handler) findOrCreateCustomer(c *gin.Context, phone, name string) (models.Customer, error) {
	customer, err := h.Store.FindCustomerByPhone(c, phone)
	if err == nil {
		return customer, nil
	}
	if !apperrors.IsNotFound(err) {
		return models.Customer{}, err
	}

	if name == "" {
		name = phone
	}
	return h.Store.CreateCustomer(c, models.Customer{
		Name:   name,
		Email:  phone + "@whatsapp.invalid", // no email on this channel
		Phone:  phone,
		Status: models.StatusNew,
	})
}

func extractContent(inbound InboundMessage) string {
	switch inbound.Type {
	case "text":
		return inbound.Text.Body
	case "image":
		if inbound.Image != nil {
			content := "[image]:" + inbound.Image.ID
			if inbound.Image.Caption != "" {
				content += ":" + inbound.Image.Caption
			}
			return content
		}
	case "document":
		if inbound.Document != nil {
			content := "[document]:" + inbound.Document.ID
			if inbound.Document.Filename != "" {
				content += ":" + inbound.Document.Filename
			}
			return content
		}
	default:
		return "[" + inbound.Type + "]"
	}
	return ""
}

func contactName(value ChangeValue, waID string) string {
	for _, contact := range value.Contacts {
		if contact.WaID == waID {
			return contact.Profile.Name
		}
	}
	return ""
}

func parseTimestamp(raw string) time.Time {
	seconds, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return time.Now().UTC()
	}
	return time.Unix(seconds, 0).UTC()
}
