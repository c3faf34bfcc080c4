package api

import (
	"net/http"
	"time"

	"support-inbox/internal/inbox"
	"support-inbox/internal/store"
	"support-inbox/pkg/models"

	"github.com/gin-gonic/gin"
)

type MessageHandler struct {
	Inbox *inbox.Inbox
	Store *store.Store
}

func NewMessageHandler(in *inbox.Inbox, st *store.Store) *MessageHandler {
	return &MessageHandler{Inbox: in, Store: st}
}

// GetMessages returns the aggregator's visible messages. Query params
// update the session filter state before the view is derived.
func (h *MessageHandler) GetMessages(c *gin.Context) {
	if channel, ok := c.GetQuery("channel"); ok {
		h.Inbox.SetChannelFilter(channel)
	}
	if category, ok := c.GetQuery("category"); ok {
		h.Inbox.SetCategoryFilter(category)
	}
	if query, ok := c.GetQuery("q"); ok {
		h.Inbox.SetSearchQuery(query)
	}

	status, loadErr := h.Inbox.Status()
	resp := gin.H{
		"status":   status,
		"messages": h.Inbox.VisibleMessages(),
	}
	if loadErr != nil {
		resp["load_error"] = loadErr.Error()
	}
	c.JSON(http.StatusOK, resp)
}

func (h *MessageHandler) GetMessage(c *gin.Context) {
	message, err := h.Store.FetchMessageByID(c, c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, message)
}

type CreateMessageRequest struct {
	CustomerID string     `json:"customer_id" binding:"required"`
	Channel    string     `json:"channel" binding:"required"`
	Content    string     `json:"content" binding:"required"`
	Subject    string     `json:"subject"`
	Timestamp  *time.Time `json:"timestamp"`
}

func (h *MessageHandler) CreateMessage(c *gin.Context) {
	var req CreateMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	channel, ok := models.ParseChannel(req.Channel)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown channel: " + req.Channel})
		return
	}

	message := models.Message{
		CustomerID: req.CustomerID,
		Channel:    channel,
		Content:    req.Content,
		Subject:    req.Subject,
	}
	if req.Timestamp != nil {
		message.Timestamp = *req.Timestamp
	}

	created, err := h.Inbox.CreateMessage(c, message)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, created)
}

func (h *MessageHandler) MarkRead(c *gin.Context) {
	updated, err := h.Inbox.MarkRead(c, c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, updated)
}

type CategorizeRequest struct {
	Category string `json:"category" binding:"required"`
}

func (h *MessageHandler) Categorize(c *gin.Context) {
	var req CategorizeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	category, ok := models.ParseCategory(req.Category)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown category: " + req.Category})
		return
	}

	updated, err := h.Inbox.Categorize(c, c.Param("id"), category)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, updated)
}

type ReplyRequest struct {
	Content string `json:"content" binding:"required"`
}

// Reply records the reply and dispatches it. A dispatch failure does not
// fail the request: the reply is persisted either way and the delivery
// problem is reported alongside the message.
func (h *MessageHandler) Reply(c *gin.Context) {
	var req ReplyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	updated, dispatchErr := h.Inbox.Reply(c, c.Param("id"), req.Content)
	if updated.ID == "" && dispatchErr != nil {
		respondError(c, dispatchErr)
		return
	}

	resp := gin.H{"message": updated}
	if dispatchErr != nil {
		resp["dispatch_error"] = dispatchErr.Error()
	}
	c.JSON(http.StatusOK, resp)
}

func (h *MessageHandler) DeleteMessage(c *gin.Context) {
	if err := h.Store.DeleteMessage(c, c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "Message deleted"})
}
