package http

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/hopetreehub/innerspell/internal/app"
	"github.com/hopetreehub/innerspell/internal/domain"
	"github.com/hopetreehub/innerspell/internal/ports"
	"github.com/hopetreehub/innerspell/internal/reading"
)

// Services bundles the application services the API exposes.
type Services struct {
	Decks      ports.DeckStore
	Readings   *app.ReadingService
	History    *app.HistoryService
	Dreams     *app.DreamService
	Community  *app.CommunityService
	Profiles   *app.ProfileService
	Newsletter *app.NewsletterService
	Settings   *app.SettingsService
}

type Handler struct {
	svc    Services
	logger *slog.Logger
}

func NewHandler(svc Services, logger *slog.Logger) *Handler {
	return &Handler{svc: svc, logger: logger}
}

// Guards are the route-group middlewares applied by Register.
type Guards struct {
	Auth          echo.MiddlewareFunc
	RateLimit     echo.MiddlewareFunc
	ContentSecret echo.MiddlewareFunc
}

func (h *Handler) Register(e *echo.Echo, g Guards) {
	e.GET("/healthz", h.Healthz)

	v1 := e.Group("/v1", g.Auth)
	v1.GET("/cards", h.ListCards)
	v1.GET("/spreads", h.ListSpreads)

	s := v1.Group("/readings/sessions")
	s.POST("", h.CreateSession)
	s.GET("/:id", h.GetSession)
	s.DELETE("/:id", h.DiscardSession)
	s.PUT("/:id/question", h.SetQuestion)
	s.PUT("/:id/config", h.ConfigureSession)
	s.POST("/:id/shuffle", h.ShuffleSession)
	s.POST("/:id/reveal", h.RevealSession)
	s.POST("/:id/cards/:cardId", h.ToggleCard)
	s.POST("/:id/interpret", h.InterpretSession, g.RateLimit)
	s.POST("/:id/restart", h.RestartSession)
	s.POST("/:id/save", h.SaveSession)

	v1.GET("/readings", h.ListReadings)
	v1.GET("/readings/:id", h.GetReading)
	v1.DELETE("/readings/:id", h.DeleteReading)

	v1.POST("/dreams/questions", h.DreamQuestions, g.RateLimit)
	v1.POST("/dreams/interpret", h.DreamInterpret, g.RateLimit)

	v1.GET("/community/posts", h.ListPosts)
	v1.POST("/community/posts", h.CreatePost)
	v1.GET("/community/posts/:id", h.GetPost)
	v1.PUT("/community/posts/:id", h.UpdatePost)
	v1.DELETE("/community/posts/:id", h.DeletePost)
	v1.GET("/community/posts/:id/comments", h.ListComments)
	v1.POST("/community/posts/:id/comments", h.AddComment)
	v1.PUT("/community/comments/:id", h.UpdateComment)
	v1.DELETE("/community/comments/:id", h.DeleteComment)

	v1.GET("/profile", h.GetProfile)
	v1.PUT("/profile", h.UpdateProfile)

	v1.POST("/newsletter/subscribe", h.Subscribe)
	v1.POST("/newsletter/unsubscribe", h.Unsubscribe)

	admin := v1.Group("/admin")
	admin.GET("/users", h.ListUsers)
	admin.PUT("/users/:id/role", h.SetRole)
	admin.GET("/settings/tarot", h.GetSettings(domain.SettingsTarotPrompt))
	admin.PUT("/settings/tarot", h.SaveSettings(domain.SettingsTarotPrompt))
	admin.GET("/settings/dream", h.GetSettings(domain.SettingsDreamPrompt))
	admin.PUT("/settings/dream", h.SaveSettings(domain.SettingsDreamPrompt))

	content := e.Group("/api/content", g.ContentSecret)
	content.POST("/posts", h.ImportPost)
}

func (h *Handler) Healthz(c echo.Context) error {
	return c.String(http.StatusOK, "OK")
}

func (h *Handler) ListCards(c echo.Context) error {
	deck, err := h.svc.Decks.GetDeck(c.Request().Context(), "")
	if err != nil {
		return h.mapError(c, err)
	}
	return c.JSON(http.StatusOK, okEnvelope(CatalogResponse{
		Deck:  deck.ID,
		Name:  deck.Name,
		Count: len(deck.Cards),
		Cards: deck.Cards,
	}))
}

func (h *Handler) ListSpreads(c echo.Context) error {
	return c.JSON(http.StatusOK, okEnvelope(SpreadsResponse{
		Spreads:  domain.Spreads(),
		Styles:   domain.Styles(),
		PoolSize: domain.PoolSize,
	}))
}

// Reading sessions.

func (h *Handler) CreateSession(c echo.Context) error {
	var in app.ConfigureInput
	if err := bind(c, &in); err != nil {
		return h.mapError(c, err)
	}
	view, err := h.svc.Readings.Create(c.Request().Context(), viewerFrom(c), in)
	if err != nil {
		return h.mapError(c, err)
	}
	return c.JSON(http.StatusCreated, Envelope{Success: true, Data: view, ID: view.ID})
}

func (h *Handler) GetSession(c echo.Context) error {
	view, err := h.svc.Readings.Get(c.Request().Context(), viewerFrom(c), c.Param("id"))
	if err != nil {
		return h.mapError(c, err)
	}
	return c.JSON(http.StatusOK, okEnvelope(view))
}

func (h *Handler) ConfigureSession(c echo.Context) error {
	var in app.ConfigureInput
	if err := bind(c, &in); err != nil {
		return h.mapError(c, err)
	}
	view, err := h.svc.Readings.Configure(c.Request().Context(), viewerFrom(c), c.Param("id"), in)
	if err != nil {
		return h.mapError(c, err)
	}
	return c.JSON(http.StatusOK, okEnvelope(view))
}

func (h *Handler) ShuffleSession(c echo.Context) error {
	view, err := h.svc.Readings.Shuffle(c.Request().Context(), viewerFrom(c), c.Param("id"))
	if err != nil {
		return h.mapError(c, err)
	}
	return c.JSON(http.StatusOK, okEnvelope(view))
}

func (h *Handler) RevealSession(c echo.Context) error {
	view, err := h.svc.Readings.Reveal(c.Request().Context(), viewerFrom(c), c.Param("id"))
	if err != nil {
		return h.mapError(c, err)
	}
	return c.JSON(http.StatusOK, okEnvelope(view))
}

// ToggleCard accepts either a pool slot index or a card id.
func (h *Handler) ToggleCard(c echo.Context) error {
	ctx := c.Request().Context()
	ref := c.Param("cardId")

	var (
		view reading.View
		err  error
	)
	if slot, convErr := strconv.Atoi(ref); convErr == nil {
		view, err = h.svc.Readings.Toggle(ctx, viewerFrom(c), c.Param("id"), slot)
	} else {
		view, err = h.svc.Readings.ToggleCard(ctx, viewerFrom(c), c.Param("id"), ref)
	}
	if err != nil {
		return h.mapError(c, err)
	}
	return c.JSON(http.StatusOK, okEnvelope(view))
}

func (h *Handler) InterpretSession(c echo.Context) error {
	var in app.InterpretInput
	if err := bind(c, &in); err != nil {
		return h.mapError(c, err)
	}
	view, err := h.svc.Readings.Interpret(c.Request().Context(), viewerFrom(c), c.Param("id"), in)
	if err != nil {
		return h.mapError(c, err)
	}
	return c.JSON(http.StatusOK, okEnvelope(view))
}

func (h *Handler) SetQuestion(c echo.Context) error {
	var in app.QuestionInput
	if err := bind(c, &in); err != nil {
		return h.mapError(c, err)
	}
	view, err := h.svc.Readings.SetQuestion(c.Request().Context(), viewerFrom(c), c.Param("id"), in)
	if err != nil {
		return h.mapError(c, err)
	}
	return c.JSON(http.StatusOK, okEnvelope(view))
}

func (h *Handler) DiscardSession(c echo.Context) error {
	id := c.Param("id")
	if err := h.svc.Readings.Discard(c.Request().Context(), viewerFrom(c), id); err != nil {
		return h.mapError(c, err)
	}
	return c.JSON(http.StatusOK, Envelope{Success: true, ID: id})
}

func (h *Handler) RestartSession(c echo.Context) error {
	view, err := h.svc.Readings.Restart(c.Request().Context(), viewerFrom(c), c.Param("id"))
	if err != nil {
		return h.mapError(c, err)
	}
	return c.JSON(http.StatusOK, okEnvelope(view))
}

func (h *Handler) SaveSession(c echo.Context) error {
	saved, err := h.svc.Readings.Save(c.Request().Context(), viewerFrom(c), c.Param("id"))
	if err != nil {
		return h.mapError(c, err)
	}
	return c.JSON(http.StatusCreated, Envelope{Success: true, Data: saved, ID: saved.ID})
}

// Saved readings.

func (h *Handler) ListReadings(c echo.Context) error {
	page, pageSize, err := pageParams(c)
	if err != nil {
		return h.mapError(c, err)
	}
	out, err := h.svc.History.List(c.Request().Context(), viewerFrom(c), page, pageSize)
	if err != nil {
		return h.mapError(c, err)
	}
	return c.JSON(http.StatusOK, okEnvelope(out))
}

func (h *Handler) GetReading(c echo.Context) error {
	r, err := h.svc.History.Get(c.Request().Context(), viewerFrom(c), c.Param("id"))
	if err != nil {
		return h.mapError(c, err)
	}
	return c.JSON(http.StatusOK, okEnvelope(r))
}

func (h *Handler) DeleteReading(c echo.Context) error {
	id := c.Param("id")
	if err := h.svc.History.Delete(c.Request().Context(), viewerFrom(c), id); err != nil {
		return h.mapError(c, err)
	}
	return c.JSON(http.StatusOK, Envelope{Success: true, ID: id})
}

// Dreams.

func (h *Handler) DreamQuestions(c echo.Context) error {
	var in app.DreamQuestionsInput
	if err := bind(c, &in); err != nil {
		return h.mapError(c, err)
	}
	out, err := h.svc.Dreams.GenerateQuestions(c.Request().Context(), in)
	if err != nil {
		return h.mapError(c, err)
	}
	return c.JSON(http.StatusOK, okEnvelope(out))
}

func (h *Handler) DreamInterpret(c echo.Context) error {
	var in app.DreamInterpretInput
	if err := bind(c, &in); err != nil {
		return h.mapError(c, err)
	}
	text, err := h.svc.Dreams.Interpret(c.Request().Context(), viewerFrom(c), in)
	if err != nil {
		return h.mapError(c, err)
	}
	return c.JSON(http.StatusOK, okEnvelope(InterpretationResponse{Interpretation: text}))
}

// Community.

func (h *Handler) ListPosts(c echo.Context) error {
	page, pageSize, err := pageParams(c)
	if err != nil {
		return h.mapError(c, err)
	}
	out, err := h.svc.Community.ListPosts(c.Request().Context(), domain.PostFilter{
		Category: domain.PostCategory(c.QueryParam("category")),
		Page:     page,
		PageSize: pageSize,
	})
	if err != nil {
		return h.mapError(c, err)
	}
	return c.JSON(http.StatusOK, okEnvelope(out))
}

func (h *Handler) CreatePost(c echo.Context) error {
	var in app.PostInput
	if err := bind(c, &in); err != nil {
		return h.mapError(c, err)
	}
	post, err := h.svc.Community.CreatePost(c.Request().Context(), viewerFrom(c), in)
	if err != nil {
		return h.mapError(c, err)
	}
	return c.JSON(http.StatusCreated, Envelope{Success: true, Data: post, ID: post.ID})
}

func (h *Handler) GetPost(c echo.Context) error {
	post, err := h.svc.Community.GetPost(c.Request().Context(), c.Param("id"))
	if err != nil {
		return h.mapError(c, err)
	}
	return c.JSON(http.StatusOK, okEnvelope(post))
}

func (h *Handler) UpdatePost(c echo.Context) error {
	var in app.PostInput
	if err := bind(c, &in); err != nil {
		return h.mapError(c, err)
	}
	post, err := h.svc.Community.UpdatePost(c.Request().Context(), viewerFrom(c), c.Param("id"), in)
	if err != nil {
		return h.mapError(c, err)
	}
	return c.JSON(http.StatusOK, Envelope{Success: true, Data: post, ID: post.ID})
}

func (h *Handler) DeletePost(c echo.Context) error {
	id := c.Param("id")
	if err := h.svc.Community.DeletePost(c.Request().Context(), viewerFrom(c), id); err != nil {
		return h.mapError(c, err)
	}
	return c.JSON(http.StatusOK, Envelope{Success: true, ID: id})
}

func (h *Handler) ListComments(c echo.Context) error {
	comments, err := h.svc.Community.ListComments(c.Request().Context(), c.Param("id"))
	if err != nil {
		return h.mapError(c, err)
	}
	return c.JSON(http.StatusOK, okEnvelope(comments))
}

func (h *Handler) AddComment(c echo.Context) error {
	var in app.CommentInput
	if err := bind(c, &in); err != nil {
		return h.mapError(c, err)
	}
	comment, err := h.svc.Community.AddComment(c.Request().Context(), viewerFrom(c), c.Param("id"), in)
	if err != nil {
		return h.mapError(c, err)
	}
	return c.JSON(http.StatusCreated, Envelope{Success: true, Data: comment, ID: comment.ID})
}

func (h *Handler) UpdateComment(c echo.Context) error {
	var in app.CommentInput
	if err := bind(c, &in); err != nil {
		return h.mapError(c, err)
	}
	comment, err := h.svc.Community.UpdateComment(c.Request().Context(), viewerFrom(c), c.Param("id"), in)
	if err != nil {
		return h.mapError(c, err)
	}
	return c.JSON(http.StatusOK, Envelope{Success: true, Data: comment, ID: comment.ID})
}

func (h *Handler) DeleteComment(c echo.Context) error {
	id := c.Param("id")
	if err := h.svc.Community.DeleteComment(c.Request().Context(), viewerFrom(c), id); err != nil {
		return h.mapError(c, err)
	}
	return c.JSON(http.StatusOK, Envelope{Success: true, ID: id})
}

// ImportPost is the content API entry point.
func (h *Handler) ImportPost(c echo.Context) error {
	var in app.ContentPostInput
	if err := bind(c, &in); err != nil {
		return h.mapError(c, err)
	}
	post, err := h.svc.Community.ImportPost(c.Request().Context(), in)
	if err != nil {
		return h.mapError(c, err)
	}
	return c.JSON(http.StatusCreated, Envelope{Success: true, PostID: post.ID})
}

// Profiles, newsletter and admin.

func (h *Handler) GetProfile(c echo.Context) error {
	p, err := h.svc.Profiles.Get(c.Request().Context(), viewerFrom(c))
	if err != nil {
		return h.mapError(c, err)
	}
	return c.JSON(http.StatusOK, okEnvelope(p))
}

func (h *Handler) UpdateProfile(c echo.Context) error {
	var in app.UpdateProfileInput
	if err := bind(c, &in); err != nil {
		return h.mapError(c, err)
	}
	p, err := h.svc.Profiles.Update(c.Request().Context(), viewerFrom(c), in)
	if err != nil {
		return h.mapError(c, err)
	}
	return c.JSON(http.StatusOK, okEnvelope(p))
}

func (h *Handler) Subscribe(c echo.Context) error {
	var in app.NewsletterInput
	if err := bind(c, &in); err != nil {
		return h.mapError(c, err)
	}
	sub, err := h.svc.Newsletter.Subscribe(c.Request().Context(), in)
	if err != nil {
		return h.mapError(c, err)
	}
	return c.JSON(http.StatusOK, okEnvelope(sub))
}

func (h *Handler) Unsubscribe(c echo.Context) error {
	var in app.NewsletterInput
	if err := bind(c, &in); err != nil {
		return h.mapError(c, err)
	}
	sub, err := h.svc.Newsletter.Unsubscribe(c.Request().Context(), in)
	if err != nil {
		return h.mapError(c, err)
	}
	return c.JSON(http.StatusOK, okEnvelope(sub))
}

func (h *Handler) ListUsers(c echo.Context) error {
	page, pageSize, err := pageParams(c)
	if err != nil {
		return h.mapError(c, err)
	}
	out, err := h.svc.Profiles.ListUsers(c.Request().Context(), viewerFrom(c), page, pageSize)
	if err != nil {
		return h.mapError(c, err)
	}
	return c.JSON(http.StatusOK, okEnvelope(out))
}

func (h *Handler) SetRole(c echo.Context) error {
	var in RoleRequest
	if err := bind(c, &in); err != nil {
		return h.mapError(c, err)
	}
	id := c.Param("id")
	if err := h.svc.Profiles.SetRole(c.Request().Context(), viewerFrom(c), id, in.Role); err != nil {
		return h.mapError(c, err)
	}
	return c.JSON(http.StatusOK, Envelope{Success: true, ID: id})
}

func (h *Handler) GetSettings(id string) echo.HandlerFunc {
	return func(c echo.Context) error {
		ps, err := h.svc.Settings.Get(c.Request().Context(), viewerFrom(c), id)
		if err != nil {
			return h.mapError(c, err)
		}
		return c.JSON(http.StatusOK, okEnvelope(ps))
	}
}

func (h *Handler) SaveSettings(id string) echo.HandlerFunc {
	return func(c echo.Context) error {
		var in app.SaveSettingsInput
		if err := bind(c, &in); err != nil {
			return h.mapError(c, err)
		}
		ps, err := h.svc.Settings.Save(c.Request().Context(), viewerFrom(c), id, in)
		if err != nil {
			return h.mapError(c, err)
		}
		return c.JSON(http.StatusOK, okEnvelope(ps))
	}
}

// bind decodes the JSON body. Decode failures are reported as validation
// errors on the body.
func bind(c echo.Context, v any) error {
	if err := (&echo.DefaultBinder{}).BindBody(c, v); err != nil {
		return domain.NewValidationError("body", "must be a valid JSON object")
	}
	return nil
}

func pageParams(c echo.Context) (int, int, error) {
	page, err := intQuery(c, "page")
	if err != nil {
		return 0, 0, err
	}
	pageSize, err := intQuery(c, "pageSize")
	if err != nil {
		return 0, 0, err
	}
	return page, pageSize, nil
}

func intQuery(c echo.Context, name string) (int, error) {
	raw := c.QueryParam(name)
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, domain.NewValidationError(name, "must be an integer")
	}
	return n, nil
}

func (h *Handler) mapError(c echo.Context, err error) error {
	requestID, _ := c.Get("request_id").(string)

	var verr *domain.ValidationError
	var ferr *app.FlowError

	switch {
	case errors.As(err, &verr):
		return c.JSON(http.StatusBadRequest, Envelope{Error: "validation failed", FieldErrors: verr.Fields})
	case errors.As(err, &ferr):
		h.logger.Error("AI flow failed", "request_id", requestID, "flow", ferr.Flow, "error", err)
		return c.JSON(http.StatusBadGateway, errEnvelope(ferr.Message))
	case errors.Is(err, domain.ErrUnauthorized):
		return c.JSON(http.StatusUnauthorized, errEnvelope(err.Error()))
	case errors.Is(err, domain.ErrForbidden):
		return c.JSON(http.StatusForbidden, errEnvelope(err.Error()))
	case errors.Is(err, domain.ErrNotFound),
		errors.Is(err, domain.ErrSessionNotFound),
		errors.Is(err, domain.ErrDeckNotFound):
		return c.JSON(http.StatusNotFound, errEnvelope(err.Error()))
	case errors.Is(err, domain.ErrUnknownSpread),
		errors.Is(err, domain.ErrUnknownStyle),
		errors.Is(err, domain.ErrEmptyQuestion),
		errors.Is(err, domain.ErrIncompleteSelection),
		errors.Is(err, domain.ErrCardNotInPool),
		errors.Is(err, domain.ErrMaxCardsSelected):
		return c.JSON(http.StatusBadRequest, errEnvelope(err.Error()))
	case errors.Is(err, domain.ErrInvalidTransition),
		errors.Is(err, domain.ErrShuffleInProgress),
		errors.Is(err, domain.ErrSessionBusy),
		errors.Is(err, domain.ErrStaleInterpretation),
		errors.Is(err, domain.ErrDeckTooSmall):
		return c.JSON(http.StatusConflict, errEnvelope(err.Error()))
	case errors.Is(err, domain.ErrUpstreamLLM), errors.Is(err, domain.ErrInvalidLLMJSON):
		h.logger.Error("upstream LLM failure", "request_id", requestID, "error", err)
		return c.JSON(http.StatusBadGateway, errEnvelope("upstream LLM failure"))
	default:
		h.logger.Error("internal error", "request_id", requestID, "error", err)
		return c.JSON(http.StatusInternalServerError, errEnvelope("internal error"))
	}
}
