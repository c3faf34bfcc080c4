package api

import (
	"io"
	"net/http"

	"support-inbox/internal/storage"
	"support-inbox/internal/store"
	"support-inbox/pkg/models"

	"github.com/gin-gonic/gin"
)

type AttachmentHandler struct {
	Store *store.Store
	Blobs *storage.Store
}

func NewAttachmentHandler(st *store.Store, blobs *storage.Store) *AttachmentHandler {
	return &AttachmentHandler{Store: st, Blobs: blobs}
}

func (h *AttachmentHandler) GetAttachments(c *gin.Context) {
	attachments, err := h.Store.FetchAttachmentsByMessageID(c, c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, attachments)
}

// UploadAttachment accepts a multipart file, stores the blob, and
// records it against the message.
func (h *AttachmentHandler) UploadAttachment(c *gin.Context) {
	messageID := c.Param("id")
	if _, err := h.Store.FetchMessageByID(c, messageID); err != nil {
		respondError(c, err)
		return
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "file is required"})
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to read upload: " + err.Error()})
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to read upload: " + err.Error()})
		return
	}

	path, err := h.Blobs.Save(messageID, fileHeader.Filename, data)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to store file: " + err.Error()})
		return
	}

	attachment, err := h.Store.CreateAttachment(c, models.Attachment{
		MessageID: messageID,
		FileName:  fileHeader.Filename,
		FilePath:  path,
		FileSize:  fileHeader.Size,
		FileType:  fileHeader.Header.Get("Content-Type"),
	})
	if err != nil {
		// Record failed; don't leave an orphaned blob behind.
		if removeErr := h.Blobs.Remove(path); removeErr != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, attachment)
}

func (h *AttachmentHandler) DeleteAttachment(c *gin.Context) {
	if err := h.Store.DeleteAttachment(c, c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "Attachment deleted"})
}
