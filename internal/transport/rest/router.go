package rest

import (
	"database/sql"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi"
	"github.com/go-redis/redis/v8"

	"github.com/okanehara/travel-approval/internal/application"
	"github.com/okanehara/travel-approval/internal/auth"
	"github.com/okanehara/travel-approval/internal/department"
	"github.com/okanehara/travel-approval/internal/document"
	"github.com/okanehara/travel-approval/internal/notification"
	"github.com/okanehara/travel-approval/internal/rbac"
	"github.com/okanehara/travel-approval/internal/settings"
	"github.com/okanehara/travel-approval/internal/transport/middleware"
	"github.com/okanehara/travel-approval/internal/transport/swagger"
)

type Handlers struct {
	Auth         *auth.Handler
	Application  *application.Handler
	Notification *notification.Handler
	Document     *document.Handler
	Department   *department.Handler
	Settings     *settings.Handler
}

// RegisterAllRoutes mounts the API under /api/v1. Everything except
// health, auth and the OpenAPI spec sits behind the auth middleware.
func RegisterAllRoutes(router *chi.Mux, db *sql.DB, session *redis.Client, handlers Handlers, allowedOrigins string, logger *slog.Logger) {
	healthHandler := NewHealthHandler(db, session)

	router.Use(middleware.CORS(allowedOrigins))
	router.Use(middleware.RequestID)
	router.Use(middleware.LoggingMiddleware(logger))
	router.Use(middleware.RecoveryMiddleware(logger))

	router.Get("/openapi.yml", func(w http.ResponseWriter, r *http.Request) {
		http.ServeFile(w, r, "./api/openapi.yml")
	})
	router.Handle("/swagger/*", swagger.Handler())

	router.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", healthHandler.healthCheckHandler)
		r.Get("/ping", healthHandler.pingHandler)

		r.Route("/auth", func(sr chi.Router) {
			sr.Post("/login", handlers.Auth.Login)
			sr.Post("/register", handlers.Auth.Register)
			sr.Post("/refresh", handlers.Auth.RefreshToken)
			sr.Post("/logout", handlers.Auth.Logout)
		})

		r.Group(func(pr chi.Router) {
			pr.Use(handlers.Auth.AuthMiddleware)

			pr.Get("/users/me", handlers.Auth.Me)

			pr.Route("/applications", func(ar chi.Router) {
				ar.Get("/", handlers.Application.ListApplications)
				ar.Post("/", handlers.Application.CreateApplication)
				ar.Get("/{id}", handlers.Application.GetApplication)
				ar.Patch("/{id}", handlers.Application.UpdateApplication)
				ar.Delete("/{id}", handlers.Application.DeleteApplication)
				ar.Post("/{id}/submit", handlers.Application.SubmitApplication)
				ar.Get("/{id}/logs", handlers.Application.ListApprovalLogs)

				ar.Group(func(mr chi.Router) {
					mr.Use(middleware.RequireRole(rbac.RoleApprover))
					mr.Post("/{id}/approve", handlers.Application.ApproveApplication)
					mr.Post("/{id}/reject", handlers.Application.RejectApplication)
					mr.Post("/{id}/hold", handlers.Application.HoldApplication)
					mr.Post("/{id}/resume", handlers.Application.ResumeApplication)
					mr.Post("/{id}/complete", handlers.Application.CompleteApplication)
				})
			})

			pr.Route("/notifications", func(nr chi.Router) {
				nr.Get("/", handlers.Notification.ListNotifications)
				nr.Get("/unread-count", handlers.Notification.UnreadCount)
				nr.Post("/{id}/read", handlers.Notification.MarkRead)
				nr.Post("/read-all", handlers.Notification.MarkAllRead)
			})

			pr.Route("/documents", func(dr chi.Router) {
				dr.Get("/", handlers.Document.ListDocuments)
				dr.Post("/", handlers.Document.CreateDocument)
				dr.Get("/{id}", handlers.Document.GetDocument)
				dr.Patch("/{id}", handlers.Document.UpdateDocument)
				dr.Delete("/{id}", handlers.Document.DeleteDocument)
				dr.Post("/{id}/submit", handlers.Document.SubmitDocument)
				dr.Post("/{id}/attachments", handlers.Document.AddAttachment)
				dr.Delete("/{id}/attachments", handlers.Document.RemoveAttachment)

				dr.Group(func(mr chi.Router) {
					mr.Use(middleware.RequireRole(rbac.RoleApprover))
					mr.Post("/{id}/approve", handlers.Document.ApproveDocument)
					mr.Post("/{id}/reject", handlers.Document.RejectDocument)
				})
			})

			// Accepting an invitation only needs a valid token, so it
			// sits outside the department admin gate. Cancelling still
			// authorizes inside the service.
			pr.Post("/invitations/accept", handlers.Department.AcceptInvitation)
			pr.Delete("/invitations/{invitationID}", handlers.Department.CancelInvitation)

			pr.Route("/departments", func(dr chi.Router) {
				dr.Use(middleware.RequireDepartmentAdmin())
				dr.Get("/", handlers.Department.ListDepartments)
				dr.Post("/", handlers.Department.CreateDepartment)
				dr.Get("/{id}", handlers.Department.GetDepartment)
				dr.Patch("/{id}", handlers.Department.UpdateDepartment)
				dr.Delete("/{id}", handlers.Department.DeactivateDepartment)
				dr.Get("/{id}/members", handlers.Department.ListMembers)
				dr.Delete("/{id}/members/{userID}", handlers.Department.RemoveMember)
				dr.Post("/{id}/invitations", handlers.Department.InviteMember)
				dr.Get("/{id}/invitations", handlers.Department.ListInvitations)
			})

			pr.Route("/settings", func(sr chi.Router) {
				sr.Get("/", handlers.Settings.GetSettings)
				sr.Put("/", handlers.Settings.UpdateSettings)
			})
		})
	})
}
