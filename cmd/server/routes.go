package main

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"diamond-pay.backend/internal/interfaces/http/handlers"
)

type routeDeps struct {
	paymentHandler *handlers.PaymentHandler
	walletHandler  *handlers.WalletHandler
	webhookHandler *handlers.WebhookHandler
	authMiddleware gin.HandlerFunc
}

func registerAPIV1Routes(r *gin.Engine, d routeDeps) {
	v1 := r.Group("/api/v1")
	{
		// Payment routes (protected)
		payments := v1.Group("/payments")
		payments.Use(d.authMiddleware)
		{
			payments.POST("/purchase", d.paymentHandler.PurchaseDiamond)
			payments.POST("/exchange", d.paymentHandler.Exchange)
			payments.GET("/history", d.paymentHandler.GetHistory)
		}

		// Ledger routes (protected)
		ledger := v1.Group("/ledger")
		ledger.Use(d.authMiddleware)
		{
			ledger.GET("/balance", d.paymentHandler.GetBalance)
			ledger.GET("/entries", d.paymentHandler.GetLedgerEntries)
		}

		// Wallet routes (protected)
		wallets := v1.Group("/wallets")
		wallets.Use(d.authMiddleware)
		{
			wallets.POST("", d.walletHandler.EnsureWallet)
			wallets.GET("", d.walletHandler.ListWallets)
			wallets.GET("/balance", d.walletHandler.GetBalance)
			wallets.POST("/link", d.walletHandler.LinkWallet)
		}

		// Webhook from the wallet provider (signature-verified, public)
		webhooks := v1.Group("/webhooks")
		{
			webhooks.POST("/provider", d.webhookHandler.HandleProviderWebhook)
		}
	}
}

func registerHealthRoute(r *gin.Engine) {
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "ok",
			"service": "diamond-pay-backend",
			"version": "0.1.0",
		})
	})
}

func registerMetricsRoute(r *gin.Engine) {
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
}

func applyCORSMiddleware(r *gin.Engine) {
	r.Use(func(c *gin.Context) {
		origin := c.GetHeader("Origin")
		if origin != "" {
			c.Header("Access-Control-Allow-Origin", origin)
			c.Header("Access-Control-Allow-Credentials", "true")
			c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
			c.Header("Access-Control-Allow-Headers", "Authorization, Content-Type, X-Request-ID")
		}
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	})
}
