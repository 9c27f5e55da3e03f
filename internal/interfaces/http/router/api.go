package router

import (
	"github.com/gin-gonic/gin"
	"github.com/vendora/backend/internal/domain/billing"
	"github.com/vendora/backend/internal/interfaces/http/handler"
	"github.com/vendora/backend/internal/interfaces/http/middleware"
)

// Handlers are the HTTP handlers mounted by RegisterAPI
type Handlers struct {
	Subscription *handler.SubscriptionHandler
	Resource     *handler.ResourceHandler
	Report       *handler.ReportHandler
	Admin        *handler.AdminHandler
	Webhook      *handler.WebhookHandler
}

// Guards are the services behind the authentication and plan middleware
type Guards struct {
	Tokens middleware.TokenValidator
	Gate   middleware.Admitter
	Plans  middleware.PlanResolver
}

// RegisterAPI registers the subscription API on r.
//
// Webhooks are public and body-capped. Every other group authenticates the
// bearer token and binds the tenant before its handlers run; creation routes
// additionally pass the admission gate, and /admin requires the admin role.
func RegisterAPI(r *Router, h Handlers, g Guards) {
	authenticated := []gin.HandlerFunc{middleware.JWTAuth(g.Tokens), middleware.BindTenant()}

	webhooks := NewDomainGroup("webhooks", "/webhooks").
		Use(middleware.BodyLimit(h.Webhook.MaxPayload()))
	webhooks.POST("/stripe", h.Webhook.Stripe).
		POST("/pagseguro", h.Webhook.PagSeguro).
		POST("/paddle", h.Webhook.Paddle)

	subscriptions := NewDomainGroup("subscriptions", "/subscriptions").Use(authenticated...)
	subscriptions.GET("/plans", h.Subscription.ListPlans).
		GET("/info", h.Subscription.GetInfo).
		GET("/usage", h.Subscription.GetUsage).
		POST("/refresh-usage", h.Subscription.RefreshUsage).
		GET("/check-limit/:kind", h.Subscription.CheckLimit).
		GET("/current", h.Subscription.GetCurrent)

	commerce := NewDomainGroup("commerce", "").Use(authenticated...)
	commerce.POST("/products", middleware.RequireQuota(g.Gate, billing.ResourceProduct), h.Resource.CreateProduct).
		POST("/customers", middleware.RequireQuota(g.Gate, billing.ResourceCustomer), h.Resource.CreateCustomer).
		POST("/orders", middleware.RequireQuota(g.Gate, billing.ResourceOrder), h.Resource.CreateOrder)

	reports := NewDomainGroup("reports", "/reports").Use(authenticated...)
	reports.GET("/usage-export", middleware.RequireFeature(g.Plans, billing.FeatureExportData), h.Report.UsageExport)

	admin := NewDomainGroup("admin", "/admin").Use(authenticated...).Use(middleware.RequireAdmin())
	admin.PUT("/accounts/:id/plan", h.Admin.UpdatePlan).
		POST("/accounts/:id/subscriptions", h.Admin.CreateSubscription).
		POST("/accounts/:id/usage/refresh", h.Admin.RefreshUsage).
		POST("/subscriptions/:id/cancel", h.Admin.CancelSubscription)

	r.Register(webhooks).
		Register(subscriptions).
		Register(commerce).
		Register(reports).
		Register(admin)
}
