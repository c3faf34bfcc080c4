package api

import (
	"net/http"

	"support-inbox/internal/inbox"
	"support-inbox/internal/store"
	"support-inbox/pkg/models"

	"github.com/gin-gonic/gin"
)

type CustomerHandler struct {
	Inbox *inbox.Inbox
	Store *store.Store
}

func NewCustomerHandler(in *inbox.Inbox, st *store.Store) *CustomerHandler {
	return &CustomerHandler{Inbox: in, Store: st}
}

func (h *CustomerHandler) GetCustomers(c *gin.Context) {
	c.JSON(http.StatusOK, h.Inbox.Customers())
}

func (h *CustomerHandler) GetCustomer(c *gin.Context) {
	customer, err := h.Store.FetchCustomerByID(c, c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, customer)
}

type CreateCustomerRequest struct {
	Name   string `json:"name" binding:"required"`
	Email  string `json:"email" binding:"required"`
	Phone  string `json:"phone"`
	Status string `json:"status"`
	Notes  string `json:"notes"`
	Avatar string `json:"avatar"`
}

func (h *CustomerHandler) CreateCustomer(c *gin.Context) {
	var req CreateCustomerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	customer := models.Customer{
		Name:   req.Name,
		Email:  req.Email,
		Phone:  req.Phone,
		Notes:  req.Notes,
		Avatar: req.Avatar,
	}
	if req.Status != "" {
		status, ok := models.ParseStatus(req.Status)
		if !ok {
			c.JSON(http.StatusBadRequest, gin.H{"error": "unknown status: " + req.Status})
			return
		}
		customer.Status = status
	}

	created, err := h.Inbox.CreateCustomer(c, customer)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, created)
}

type UpdateNotesRequest struct {
	Notes string `json:"notes"`
}

func (h *CustomerHandler) UpdateNotes(c *gin.Context) {
	var req UpdateNotesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	updated, err := h.Inbox.UpdateCustomerNotes(c, c.Param("id"), req.Notes)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, updated)
}

type UpdateStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

func (h *CustomerHandler) UpdateStatus(c *gin.Context) {
	var req UpdateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	updated, err := h.Inbox.UpdateCustomerStatus(c, c.Param("id"), models.CustomerStatus(req.Status))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, updated)
}

func (h *CustomerHandler) DeleteCustomer(c *gin.Context) {
	if err := h.Store.DeleteCustomer(c, c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "Customer deleted"})
}
