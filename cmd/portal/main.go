package main

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/joho/godotenv"

	api "github.com/classpoint/classpoint/internal/api/http"
	auth "github.com/classpoint/classpoint/internal/auth/middleware"
	"github.com/classpoint/classpoint/internal/config"
	"github.com/classpoint/classpoint/internal/db"
	"github.com/classpoint/classpoint/internal/exam"
	"github.com/classpoint/classpoint/internal/grading"
	"github.com/classpoint/classpoint/internal/logger"
	"github.com/classpoint/classpoint/internal/rbac"
	"github.com/classpoint/classpoint/internal/report"
	"github.com/classpoint/classpoint/internal/term"
)

func main() {
	_ = godotenv.Load()
	cfg := config.FromEnv()
	logger.Init(cfg.LogLevel, cfg.LogFormat)
	log := logger.Get()

	// --- DB ---
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	dbh, err := db.Open(ctx, db.Driver(cfg.DBDriver), cfg.DBDSN)
	if err != nil {
		log.Fatal().Err(err).Msg("db open failed")
	}

	ledger := grading.NewSQLStore(dbh, cfg.DBDriver)
	exams := exam.NewSQLStore(dbh, cfg.DBDriver, ledger)
	terms := term.NewSQLStore(dbh, cfg.DBDriver, func() int64 { return time.Now().Unix() })
	reports := report.NewSQLStore(dbh, cfg.DBDriver)
	builder := report.NewBuilder(reports, time.Now)

	authSvc := auth.NewAuthService(cfg.AuthSecret)

	// --- Router ---
	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))
	r.Use(api.RequestLogger(log))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Content-Length", "Content-Disposition"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Post("/auth/login", auth.LoginHandler(authSvc, dbh))

	// Protected API (JWT -> role from DB -> RBAC)
	r.Group(func(pr chi.Router) {
		pr.Use(auth.JWTMiddleware(authSvc))
		pr.Use(auth.AttachRoleFromDB(dbh, cfg.AllowClaimRoleFallback))

		// Exams
		pr.With(rbac.Require("exam:create")).
			Post("/exams", api.UploadExamHandler(exams))
		pr.With(rbac.Require("exam:view")).
			Get("/exams", api.ListExamsHandler(exams))
		pr.With(rbac.Require("exam:view")).
			Get("/exams/{examID}", api.GetExamHandler(exams))

		// Attempts
		pr.With(rbac.Require("attempt:create")).
			Post("/attempts", api.CreateAttemptHandler(exams))
		pr.With(rbac.RequireAny("attempt:view-own", "attempt:view-all")).
			Get("/attempts", api.ListAttemptsHandler(exams))
		pr.With(rbac.Require("attempt:save")).
			Post("/attempts/{attemptID}/responses", api.SaveResponsesHandler(exams))
		pr.With(rbac.Require("attempt:submit")).
			Post("/attempts/{attemptID}/submit", api.SubmitAttemptHandler(exams))
		pr.With(rbac.RequireAny("attempt:view-own", "attempt:view-all")).
			Get("/attempts/{attemptID}", api.GetAttemptHandler(exams))

		// Question-level grading
		pr.With(rbac.Require("attempt:grade")).
			Get("/grading/questions", api.GetAttemptGradingHandler(ledger))
		pr.With(rbac.Require("attempt:grade")).
			Post("/grading/questions", api.RecordQuestionGradeHandler(ledger))

		// Subject grades
		pr.With(rbac.Require("grade:calculate")).
			Post("/grades/calculate", api.CalculateGradeHandler(ledger))
		pr.With(rbac.RequireAny("grade:view-own", "grade:view-all")).
			Get("/grades", api.ListGradesHandler(ledger))

		// Term reports
		pr.With(rbac.RequireAny("report:view-own", "report:view-all")).
			Get("/reports", api.GetReportHandler(builder))
		pr.With(rbac.RequireAny("report:view-own", "report:view-all")).
			Get("/reports/student/{studentID}", api.StudentReportHandler(builder, terms))
		pr.With(rbac.Require("report:export")).
			Get("/reports/export", api.ExportGradesHandler(reports))

		// Academic terms (admin)
		pr.Route("/admin/terms", func(ar chi.Router) {
			ar.Use(rbac.Require("term:manage"))
			ar.Post("/", api.CreateTermHandler(terms))
			ar.Get("/", api.ListTermsHandler(terms))
			ar.Post("/bulk-publish", api.BulkPublishHandler(terms))
			ar.Post("/{termID}/activate", api.ActivateTermHandler(terms))
			ar.Post("/{termID}/publish", api.PublishTermHandler(terms, true))
			ar.Post("/{termID}/unpublish", api.PublishTermHandler(terms, false))
			ar.Delete("/{termID}", api.DeleteTermHandler(terms))
		})

		// Teacher-subject assignments (admin)
		pr.Route("/admin/assignments", func(ar chi.Router) {
			ar.Use(rbac.Require("assignment:manage"))
			ar.Post("/", api.AssignTeacherHandler(dbh))
			ar.Get("/", api.ListAssignmentsHandler(dbh))
			ar.Delete("/", api.UnassignTeacherHandler(dbh))
		})

		// Users
		pr.With(rbac.Require("users:bulk_upsert")).
			Post("/users/bulk", api.BulkUpsertUsersHandler(dbh))
		pr.With(rbac.Require("users:list")).
			Get("/users", api.ListUsersHandler(dbh))
		pr.With(rbac.Require("user:change_password")).
			Post("/users/change-password", api.ChangePasswordHandler(dbh))
	})

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })
	r.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		if err := dbh.PingContext(r.Context()); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	})

	log.Info().Str("addr", cfg.HTTPAddr).Str("db", cfg.DBDriver).Msg("listening")
	if err := http.ListenAndServe(cfg.HTTPAddr, r); err != nil {
		log.Fatal().Err(err).Msg("server stopped")
	}
}
