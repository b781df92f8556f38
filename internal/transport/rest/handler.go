package rest

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"course-ledger/internal/domain"
	"course-ledger/internal/repository"
	"course-ledger/internal/service"
)

type PaymentRecorder interface {
	ApplyPayment(ctx context.Context, req service.PaymentRequest) (*service.PaymentResult, error)
}

type RegistrationManager interface {
	Create(ctx context.Context, req service.RegistrationRequest) (*service.RegistrationReceipt, error)
	Cancel(ctx context.Context, receiptNo string) (*service.CancellationResult, error)
	List(ctx context.Context, page, limit int) ([]repository.RegistrationSummary, *service.Pagination, error)
}

type Reconciler interface {
	Registration(ctx context.Context, receiptNo string) (*domain.Registration, error)
	InstallmentStatus(ctx context.Context, receiptNo string) ([]service.CourseInstallments, error)
	PaymentHistory(ctx context.Context, receiptNo string) ([]domain.PaymentHistory, error)
}

type CourseLister interface {
	ListActive(ctx context.Context) ([]domain.Course, error)
}

type DashboardProvider interface {
	Stats(ctx context.Context) (*repository.DashboardStats, error)
}

type Authenticator interface {
	Login(ctx context.Context, username, password string) (*service.LoginResult, error)
}

type LedgerExporter interface {
	StartLedgerExport(ctx context.Context, selected []string, userID int64) (string, error)
	GetExports(ctx context.Context, userID int64) ([]service.ExportStatus, error)
	GetExport(ctx context.Context, exportID string, userID int64) (*service.ExportStatus, error)
}

// PaymentNotifier pushes payment confirmations to the recording operator
// over websocket. Nil disables notifications.
type PaymentNotifier interface {
	NotifyPaymentRecorded(ctx context.Context, userID int64, paymentReceiptNo string, warnings []string) error
}

type Handler struct {
	payments      PaymentRecorder
	registrations RegistrationManager
	reconciler    Reconciler
	courses       CourseLister
	dashboard     DashboardProvider
	authenticator Authenticator
	exporter      LedgerExporter
	notifier      PaymentNotifier
}

func NewHandler(
	payments PaymentRecorder,
	registrations RegistrationManager,
	reconciler Reconciler,
	courses CourseLister,
	dashboard DashboardProvider,
	authenticator Authenticator,
	exporter LedgerExporter,
	notifier PaymentNotifier,
) *Handler {
	return &Handler{
		payments:      payments,
		registrations: registrations,
		reconciler:    reconciler,
		courses:       courses,
		dashboard:     dashboard,
		authenticator: authenticator,
		exporter:      exporter,
		notifier:      notifier,
	}
}

func (h *Handler) InitRouter() *chi.Mux {
	return h.InitRouterWithAuth(nil)
}

// InitRouterWithAuth builds the API router. Login stays outside the auth
// middleware; everything else requires a valid token when middleware is set.
func (h *Handler) InitRouterWithAuth(authMiddleware func(http.Handler) http.Handler) *chi.Mux {
	r := chi.NewRouter()

	r.Use(
		middleware.RequestID,
		middleware.RealIP,
		middleware.Logger,
		middleware.Recoverer,
		middleware.Timeout(60*time.Second),
	)

	r.Post("/auth/login", h.login)

	r.Group(func(r chi.Router) {
		if authMiddleware != nil {
			r.Use(authMiddleware)
		}

		r.Post("/payments", h.recordPayment)

		r.Route("/registrations", func(r chi.Router) {
			r.Post("/", h.createRegistration)
			r.Get("/", h.listRegistrations)
			r.Route("/{receipt_no}", func(r chi.Router) {
				r.Get("/", h.getRegistration)
				r.Delete("/", h.cancelRegistration)
				r.Get("/installments", h.installmentStatus)
				r.Get("/payments", h.paymentHistory)
			})
		})

		r.Get("/courses", h.listCourses)
		r.Get("/dashboard/stats", h.dashboardStats)

		r.Route("/export", func(r chi.Router) {
			r.Get("/", h.listExports)
			r.Get("/{export_id}", h.getExport)
			r.Post("/ledger", h.exportLedger)
		})
	})

	return r
}
