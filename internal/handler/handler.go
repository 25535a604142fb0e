package handler

import (
	"context"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/locales/zh"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	zh_translations "github.com/go-playground/validator/v10/translations/zh"
	"github.com/opsdesk/shiftdesk/backend/internal/config"
	"github.com/opsdesk/shiftdesk/backend/internal/conflict"
	"github.com/opsdesk/shiftdesk/backend/internal/domain"
	"github.com/opsdesk/shiftdesk/backend/internal/repository"
	"github.com/opsdesk/shiftdesk/backend/internal/shifttoken"
	"github.com/opsdesk/shiftdesk/backend/internal/submission"
)

// Notifier 尽力投递通知，失败不会返回错误
type Notifier interface {
	Publish(ctx context.Context, n domain.Notification)
}

type Handler struct {
	validate   *validator.Validate
	config     *config.Config
	repository *repository.Repository
	translator ut.Translator
	notifier   Notifier

	issuer    *shifttoken.Issuer
	tokens    *shifttoken.Validator
	links     shifttoken.Links
	guard     *submission.Guard
	detector  *conflict.Detector
	overrides *conflict.OverrideFlow

	Mux *chi.Mux
}

func NewHandler(cfg *config.Config, repo *repository.Repository, pending conflict.PendingStore, checker conflict.CodeChecker, notifier Notifier) (*Handler, error) {
	validate := validator.New(validator.WithRequiredStructEnabled())
	zh := zh.New()
	uni := ut.New(zh, zh)
	trans, _ := uni.GetTranslator("zh")
	if err := zh_translations.RegisterDefaultTranslations(validate, trans); err != nil {
		return nil, err
	}

	tokens := shifttoken.NewValidator(repo)
	pendingExpiration := cfg.OverridePendingExpiration()

	return &Handler{
		validate:   validate,
		config:     cfg,
		repository: repo,
		translator: trans,
		notifier:   notifier,

		issuer:    shifttoken.NewIssuer(repo, shifttoken.TTLsFromConfig(cfg), cfg.Token.MaxIssueAttempts),
		tokens:    tokens,
		links:     shifttoken.NewLinks(cfg.Public.Origin),
		guard:     submission.NewGuard(repo, tokens),
		detector:  conflict.NewDetector(repo),
		overrides: conflict.NewOverrideFlow(repo, pending, checker, pendingExpiration),

		Mux: chi.NewRouter(),
	}, nil
}

func (h *Handler) RegisterRoutes() {
	h.Mux.Use(h.logger)
	h.Mux.Use(h.recoverer)

	// 认证相关
	h.Mux.Route("/auth", func(r chi.Router) {
		r.Post("/login", h.Login)
		r.Post("/logout", h.Logout)
	})

	// 员工通过链接访问，令牌本身就是凭证
	h.Mux.Route("/public", func(r chi.Router) {
		r.Get("/tokens/{token}", h.ValidateToken)
		r.Post("/submission-status", h.GetSubmissionStatus)
		r.Post("/shift-submissions", h.SubmitWeeklyShifts)
		r.Post("/shift-requests", h.SubmitShiftRequest)
		r.Post("/registrations", h.CompleteRegistration)
	})

	// 以下 API 必须要在登录后才允许调用
	h.Mux.Group(func(r chi.Router) {
		r.Use(h.auth)
		r.Use(h.myInfo)

		r.Get("/my-info", h.GetMyInfo)

		r.Route("/businesses", func(r chi.Router) {
			r.With(h.RequiredRole([]domain.Role{domain.RolePlatformAdmin})).Post("/", h.CreateBusiness)
			r.Route("/{id}", func(r chi.Router) {
				r.Use(h.businessInfo)
				r.Get("/", h.GetBusiness)
				r.Get("/employees", h.GetEmployees)
				r.Post("/employees", h.CreateEmployee)
				r.Get("/branches", h.GetBranches)
				r.Post("/branches", h.CreateBranch)
			})
		})

		r.Route("/tokens", func(r chi.Router) {
			r.Post("/", h.IssueToken)
			r.Post("/bulk", h.BulkIssueTokens)
		})

		r.Route("/shifts", func(r chi.Router) {
			r.Get("/", h.GetShifts)
			r.Post("/", h.AssignShift)
			r.Get("/conflicts", h.FindConflicts)
			r.Get("/export", h.ExportSchedule)
			r.Route("/overrides/{overrideID}", func(r chi.Router) {
				r.Use(h.pendingOverride)
				r.Get("/", h.GetPendingOverride)
				r.Post("/confirm", h.ConfirmOverride)
				r.Delete("/", h.CancelOverride)
			})
			r.With(h.shiftInfo).Patch("/{id}", h.UpdateShift)
		})

		r.Route("/submissions", func(r chi.Router) {
			r.Get("/", h.GetSubmissions)
			r.Patch("/{id}/review", h.ReviewSubmission)
		})
	})
}
