package api

import (
	"net/http"

	"support-inbox/internal/adapter"
	"support-inbox/internal/inbox"
	"support-inbox/pkg/models"

	"github.com/gin-gonic/gin"
)

type TemplateHandler struct {
	Inbox *inbox.Inbox
}

func NewTemplateHandler(in *inbox.Inbox) *TemplateHandler {
	return &TemplateHandler{Inbox: in}
}

func (h *TemplateHandler) GetTemplates(c *gin.Context) {
	c.JSON(http.StatusOK, h.Inbox.Templates())
}

type TemplateRequest struct {
	Name     string   `json:"name"`
	Content  string   `json:"content"`
	Category string   `json:"category"`
	Keywords []string `json:"keywords"`
}

func (h *TemplateHandler) CreateTemplate(c *gin.Context) {
	var req TemplateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	template := models.ResponseTemplate{
		Name:     req.Name,
		Content:  req.Content,
		Keywords: req.Keywords,
	}
	if req.Category != "" {
		category, ok := models.ParseCategory(req.Category)
		if !ok {
			c.JSON(http.StatusBadRequest, gin.H{"error": "unknown category: " + req.Category})
			return
		}
		template.Category = category
	}

	created, err := h.Inbox.AddTemplate(c, template)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, created)
}

func (h *TemplateHandler) UpdateTemplate(c *gin.Context) {
	var req TemplateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	patch := adapter.TemplatePatch{Keywords: req.Keywords}
	if req.Name != "" {
		patch.Name = &req.Name
	}
	if req.Content != "" {
		patch.Content = &req.Content
	}
	if req.Category != "" {
		category, ok := models.ParseCategory(req.Category)
		if !ok {
			c.JSON(http.StatusBadRequest, gin.H{"error": "unknown category: " + req.Category})
			return
		}
		patch.Category = &category
	}

	updated, err := h.Inbox.UpdateTemplate(c, c.Param("id"), patch)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, updated)
}

func (h *TemplateHandler) DeleteTemplate(c *gin.Context) {
	if err := h.Inbox.DeleteTemplate(c, c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "Template deleted"})
}
