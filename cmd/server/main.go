package main

import (
	"context"
	"log"

	"support-inbox/internal/api"
	"support-inbox/internal/config"
	"support-inbox/internal/dispatch"
	"support-inbox/internal/feed"
	"support-inbox/internal/inbox"
	"support-inbox/internal/senders"
	"support-inbox/internal/storage"
	"support-inbox/internal/store"
	"support-inbox/internal/webhook"
	"support-inbox/internal/ws"

	"github.com/gin-gonic/gin"
)

func main() {
	cfg := config.LoadConfig()

	db, err := store.Open(cfg)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}

	blobs, err := storage.NewStore(cfg.StorageDir, cfg.PublicBase)
	if err != nil {
		log.Fatalf("Failed to init attachment storage: %v", err)
	}

	bus := feed.NewBus()
	go bus.Run()
	defer bus.Close()

	st := store.NewStore(db, bus, blobs, cfg.OwnerID)
	dispatcher := dispatch.NewDispatcher(senders.NewClient())

	in := inbox.New(st, dispatcher, bus)
	if err := in.Start(context.Background()); err != nil {
		log.Printf("Warning: initial inbox load failed: %v", err)
	}
	defer in.Close()

	hub := ws.NewHub()
	hub.Attach(bus)
	go hub.Run()

	r := gin.Default()

	// CORS Middleware
	r.Use(func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, X-CSRF-Token, Authorization, accept, origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	})

	webhookHandler := webhook.NewHandler(cfg, st)
	messageHandler := api.NewMessageHandler(in, st)
	customerHandler := api.NewCustomerHandler(in, st)
	templateHandler := api.NewTemplateHandler(in)
	attachmentHandler := api.NewAttachmentHandler(st, blobs)
	statsHandler := api.NewStatsHandler(st)

	// Webhook Routes
	r.GET("/webhook", webhookHandler.VerifyWebhook)
	r.POST("/webhook", webhookHandler.HandleMessage)

	// Live updates + attachment files
	r.GET("/ws", func(c *gin.Context) { hub.ServeWs(c.Writer, c.Request) })
	r.Static("/attachments", blobs.Dir())

	apiGroup := r.Group("/api")
	{
		// Inbox Routes
		apiGroup.GET("/messages", messageHandler.GetMessages)
		apiGroup.POST("/messages", messageHandler.CreateMessage)
		apiGroup.GET("/messages/:id", messageHandler.GetMessage)
		apiGroup.POST("/messages/:id/read", messageHandler.MarkRead)
		apiGroup.POST("/messages/:id/categorize", messageHandler.Categorize)
		apiGroup.POST("/messages/:id/reply", messageHandler.Reply)
		apiGroup.DELETE("/messages/:id", messageHandler.DeleteMessage)

		// Attachment Routes
		apiGroup.GET("/messages/:id/attachments", attachmentHandler.GetAttachments)
		apiGroup.POST("/messages/:id/attachments", attachmentHandler.UploadAttachment)
		apiGroup.DELETE("/attachments/:id", attachmentHandler.DeleteAttachment)

		// CRM Routes
		apiGroup.GET("/customers", customerHandler.GetCustomers)
		apiGroup.POST("/customers", customerHandler.CreateCustomer)
		apiGroup.GET("/customers/:id", customerHandler.GetCustomer)
		apiGroup.PUT("/customers/:id/notes", customerHandler.UpdateNotes)
		apiGroup.PUT("/customers/:id/status", customerHandler.UpdateStatus)
		apiGroup.DELETE("/customers/:id", customerHandler.DeleteCustomer)

		// Response Template Routes
		apiGroup.GET("/templates", templateHandler.GetTemplates)
		apiGroup.POST("/templates", templateHandler.CreateTemplate)
		apiGroup.PUT("/templates/:id", templateHandler.UpdateTemplate)
		apiGroup.DELETE("/templates/:id", templateHandler.DeleteTemplate)

		// Statistics
		apiGroup.GET("/stats", statsHandler.GetStats)
	}

	log.Printf("Server starting on port %s", cfg.Port)
	if err := r.Run(":" + cfg.Port); err != nil {
		log.Fatalf("Failed to run server: %v", err)
	}
}
