package server

import (
	"context"
	"net/http"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/salestext/dtax-crm/internal/apikey"
	apikeydomain "github.com/salestext/dtax-crm/internal/apikey/domain"
	"github.com/salestext/dtax-crm/internal/config"
	"github.com/salestext/dtax-crm/internal/funnel"
	"github.com/salestext/dtax-crm/internal/integrations"
	"github.com/salestext/dtax-crm/internal/invoice"
	invoicedomain "github.com/salestext/dtax-crm/internal/invoice/domain"
	"github.com/salestext/dtax-crm/internal/prospect"
	prospectdomain "github.com/salestext/dtax-crm/internal/prospect/domain"
	"github.com/salestext/dtax-crm/internal/taxevent"
	"github.com/salestext/dtax-crm/internal/ticket"
	ticketdomain "github.com/salestext/dtax-crm/internal/ticket/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var Module = fx.Module("http.server",
	fx.Provide(registerGin),
	apikey.Module,
	integrations.Module,
	prospect.Module,
	funnel.Module,
	invoice.Module,
	taxevent.Module,
	ticket.Module,
	fx.Invoke(NewServer),
	fx.Invoke(run),
)

func NewEngine(log *zap.Logger) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(RequestLogger(log))
	r.Use(MetricsMiddleware())
	r.Use(ErrorHandlingMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

func registerGin(log *zap.Logger) *gin.Engine {
	return NewEngine(log)
}

func run(lc fx.Lifecycle, cfg config.Config, log *zap.Logger, r *gin.Engine) {
	srv := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: r,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			log.Info("http server starting", zap.String("addr", cfg.HTTPAddr))
			go func() {
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					panic(err)
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	})
}

type Server struct {
	engine      *gin.Engine
	cfg         config.Config
	db          *gorm.DB
	log         *zap.Logger
	genID       *snowflake.Node
	prospectSvc prospectdomain.Service
	apiKeySvc   apikeydomain.Service
	funnelSvc   *funnel.Service
	invoiceSvc  invoicedomain.Service
	ticketSvc   ticketdomain.Service
	taxEventSvc *taxevent.Service
}

type ServerParams struct {
	fx.In

	Gin         *gin.Engine
	Cfg         config.Config
	DB          *gorm.DB
	Log         *zap.Logger
	GenID       *snowflake.Node
	ProspectSvc prospectdomain.Service
	APIKeySvc   apikeydomain.Service
	FunnelSvc   *funnel.Service
	InvoiceSvc  invoicedomain.Service
	TicketSvc   ticketdomain.Service
	TaxEventSvc *taxevent.Service
}

func NewServer(p ServerParams) *Server {
	svc := &Server{
		engine:      p.Gin,
		cfg:         p.Cfg,
		db:          p.DB,
		log:         p.Log.Named("server"),
		genID:       p.GenID,
		prospectSvc: p.ProspectSvc,
		apiKeySvc:   p.APIKeySvc,
		funnelSvc:   p.FunnelSvc,
		invoiceSvc:  p.InvoiceSvc,
		ticketSvc:   p.TicketSvc,
		taxEventSvc: p.TaxEventSvc,
	}

	svc.registerAPIRoutes()
	svc.registerDialerRoutes()

	return svc
}

func (s *Server) Engine() *gin.Engine {
	return s.engine
}

func (s *Server) registerAPIRoutes() {
	api := s.engine.Group("/api")

	// -------- Webhooks --------
	api.POST("/webhooks/tax-system", s.HandleTaxSystemWebhook)

	// -------- Tax system --------
	api.POST("/tax-system/users", s.RegisterTaxSystemUser)

	// -------- Dashboard --------
	api.GET("/dashboard", s.GetDashboard)
	api.GET("/stats/sidebar", s.GetSidebarStats)

	// -------- Prospects --------
	api.GET("/prospects", s.ListProspects)
	api.POST("/prospects", s.CreateProspect)
	api.GET("/prospects/:id", s.GetProspectByID)
	api.PATCH("/prospects/:id", s.UpdateProspect)
	api.DELETE("/prospects/:id", s.DeleteProspect)
	api.GET("/prospects/:id/activities", s.ListProspectActivities)
	api.POST("/prospects/:id/notes", s.AddProspectNote)
	api.POST("/prospects/:id/tasks", s.AddProspectTask)
	api.POST("/prospects/:id/tasks/:taskId/complete", s.CompleteProspectTask)

	// -------- Customers (converted prospects) --------
	api.GET("/customers", s.ListCustomers)

	// -------- Invoices --------
	api.GET("/invoices", s.ListInvoices)
	api.GET("/invoices/:id", s.GetInvoiceByID)
	api.POST("/invoices/sync", s.SyncInvoiceStatuses)

	// -------- Tickets --------
	api.GET("/tickets", s.ListTickets)
	api.POST("/tickets", s.CreateTicket)
	api.GET("/tickets/:id", s.GetTicketByID)
	api.POST("/tickets/:id/messages", s.AddTicketMessage)
	api.PATCH("/tickets/:id/status", s.UpdateTicketStatus)

	// -------- API keys --------
	api.GET("/api-keys", s.ListAPIKeys)
	api.POST("/api-keys", s.CreateAPIKey)
	api.GET("/api-keys/:id", s.GetAPIKeyByID)
	api.PATCH("/api-keys/:id", s.UpdateAPIKey)
	api.DELETE("/api-keys/:id", s.DeleteAPIKey)

	// -------- Users / Campaigns / Settings --------
	api.GET("/users", s.ListUsers)
	api.POST("/users", s.CreateUser)
	api.PATCH("/users/:id", s.UpdateUser)
	api.DELETE("/users/:id", s.DeactivateUser)

	api.GET("/campaigns", s.ListCampaigns)
	api.POST("/campaigns", s.CreateCampaign)

	api.GET("/settings", s.ListSettings)
	api.PUT("/settings/:key", s.PutSetting)
}

func (s *Server) registerDialerRoutes() {
	dialer := s.engine.Group("/api/external/dialer")

	dialer.GET("/prospects", s.DialerAuth(apikeydomain.PermissionDialerRead), s.DialerListProspects)
	dialer.GET("/prospects/:id", s.DialerAuth(apikeydomain.PermissionDialerRead), s.DialerGetProspect)
	dialer.PATCH("/prospects/:id", s.DialerAuth(apikeydomain.PermissionDialerWrite), s.DialerUpdateProspect)
	dialer.POST("/prospects/:id/call", s.DialerAuth(apikeydomain.PermissionDialerCall), s.DialerRecordCall)
	dialer.POST("/prospects/:id/notes", s.DialerAuth(apikeydomain.PermissionDialerWrite), s.DialerAddNote)
}
