package api

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"OddsEdge/internal/domain/models"
	domrepo "OddsEdge/internal/domain/repository"
	"OddsEdge/internal/service/ratelimit"
	"OddsEdge/internal/service/stream"
	"OddsEdge/internal/usecase"
	"OddsEdge/pkg/cache"
	xhttp "OddsEdge/pkg/http"
	xlogger "OddsEdge/pkg/logger"

	"github.com/labstack/echo/v4"
)

// ArbsHandler serves the opportunity endpoints: counts, teaser, plan, and the
// SSE stream.
type ArbsHandler struct {
	logger    *xlogger.Logger
	engine    *usecase.Engine
	hub       *stream.Hub
	ents      domrepo.Entitlements
	prefs     domrepo.UserPrefs
	cache     cache.Service
	teaserTTL time.Duration
	limiter   *ratelimit.Limiter
}

func NewArbsHandler(
	logger *xlogger.Logger,
	engine *usecase.Engine,
	hub *stream.Hub,
	ents domrepo.Entitlements,
	prefs domrepo.UserPrefs,
	c cache.Service,
	teaserTTL time.Duration,
) *ArbsHandler {
	if teaserTTL <= 0 {
		teaserTTL = 15 * time.Second
	}
	return &ArbsHandler{
		logger:    logger,
		engine:    engine,
		hub:       hub,
		ents:      ents,
		prefs:     prefs,
		cache:     c,
		teaserTTL: teaserTTL,
		limiter:   ratelimit.New(),
	}
}

func (h *ArbsHandler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/api")
	g.GET("/arbs/counts", h.Counts)
	g.GET("/arbs/teaser", h.Teaser)
	g.GET("/arbs/stream", h.Stream)
	g.GET("/me/plan", h.Plan)
}

// Counts reports the pregame/live split of the current snapshot.
func (h *ArbsHandler) Counts(c echo.Context) error {
	return xhttp.SuccessResponse(c, h.engine.Current().Counts)
}

// Teaser returns a capped, free-tier-filtered sample of the current
// opportunities. Cached so anonymous landing-page traffic never touches the
// hot path directly.
func (h *ArbsHandler) Teaser(c echo.Context) error {
	if !h.limiter.Allow(c.RealIP(), 10, 2) {
		return xhttp.AppErrorResponse(c, xhttp.TooManyRequestsError("rate limited"))
	}

	req := &models.TeaserRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	key := fmt.Sprintf("teaser:%d", req.Limit)
	if h.cache != nil {
		var cached models.View
		if err := h.cache.Get(c.Request().Context(), key, &cached); err == nil {
			return xhttp.SuccessResponse(c, cached)
		}
	}

	snap := h.engine.Current()
	view := h.engine.Ranker().View(snap, usecase.ViewOptions{
		Tier:  models.TierFree,
		Mode:  models.ModePrematch,
		Limit: req.Limit,
		Now:   snap.At,
	})

	if h.cache != nil {
		if err := h.cache.Set(c.Request().Context(), key, view, h.teaserTTL); err != nil {
			h.logger.Debug("teaser cache set failed", xlogger.Error(err))
		}
	}
	return xhttp.SuccessResponse(c, view)
}

// Plan reports the caller's entitlement. A failed lookup falls back to an
// unauthenticated free plan rather than erroring.
func (h *ArbsHandler) Plan(c echo.Context) error {
	plan, err := h.ents.PlanByToken(c.Request().Context(), sessionToken(c))
	if err != nil && err != domrepo.ErrSessionExpired {
		h.logger.Warn("plan lookup failed, serving free", xlogger.Error(err))
	}
	return xhttp.SuccessResponse(c, plan)
}

// Stream is the SSE endpoint. The tier is resolved server-side from the
// session token; query parameters only scope mode, event, limit, and the
// optional EV model.
func (h *ArbsHandler) Stream(c echo.Context) error {
	req := &models.StreamRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	ctx := c.Request().Context()
	token := sessionToken(c)

	plan, err := h.ents.PlanByToken(ctx, token)
	planDegraded := false
	if err != nil {
		if err == domrepo.ErrSessionExpired {
			return xhttp.AppErrorResponse(c, xhttp.UnauthorizedError("session expired"))
		}
		// Recoverable lookup failure: stream continues on free tier and the
		// subscription announces the degraded plan to the client.
		h.logger.Warn("entitlement lookup failed, streaming free tier", xlogger.Error(err))
		plan = models.Plan{Plan: "free"}
		planDegraded = true
	}

	var model *models.EVModel
	if req.Model != "" && plan.Authenticated {
		model, err = h.prefs.EVModel(ctx, plan.UserID, req.Model)
		if err != nil {
			h.logger.Warn("ev model lookup failed", xlogger.Error(err))
		}
	}

	sub := h.hub.Subscribe(ctx, stream.SubscribeOptions{
		Token:   token,
		UserID:  plan.UserID,
		Tier:    plan.Tier(),
		Mode:    models.Mode(req.Mode),
		EventID: req.EventID,
		Limit:   req.Limit,
		Model:   model,

		PlanDegraded: planDegraded,
	})
	defer h.hub.Unsubscribe(sub.ID)

	res := c.Response()
	res.Header().Set(echo.HeaderContentType, "text/event-stream")
	res.Header().Set(echo.HeaderCacheControl, "no-cache")
	res.Header().Set(echo.HeaderConnection, "keep-alive")
	res.Header().Set("X-Accel-Buffering", "no")
	res.WriteHeader(http.StatusOK)
	res.Flush()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-sub.Done():
			// Flush any control event (authExpired, hasFailed) queued just
			// before the hub closed the subscription.
			for {
				select {
				case ev := <-sub.Events():
					_ = writeSSE(res, ev)
				default:
					return nil
				}
			}
		case ev, ok := <-sub.Events():
			if !ok {
				return nil
			}
			if err := writeSSE(res, ev); err != nil {
				return nil // client went away
			}
		}
	}
}

func writeSSE(res *echo.Response, ev stream.Event) error {
	if ev.Name == stream.EventHeartbeat {
		if _, err := fmt.Fprint(res, ": hb\n\n"); err != nil {
			return err
		}
		res.Flush()
		return nil
	}
	if _, err := fmt.Fprintf(res, "event: %s\n", ev.Name); err != nil {
		return err
	}
	if len(ev.Data) > 0 {
		if _, err := fmt.Fprintf(res, "data: %s\n", ev.Data); err != nil {
			return err
		}
	} else {
		if _, err := fmt.Fprint(res, "data: {}\n"); err != nil {
			return err
		}
	}
	if _, err := fmt.Fprint(res, "\n"); err != nil {
		return err
	}
	res.Flush()
	return nil
}

// sessionToken pulls the session token from the Authorization header or the
// session cookie.
func sessionToken(c echo.Context) string {
	auth := c.Request().Header.Get(echo.HeaderAuthorization)
	if strings.HasPrefix(auth, "Bearer ") {
		return strings.TrimPrefix(auth, "Bearer ")
	}
	if cookie, err := c.Cookie("session"); err == nil && cookie != nil {
		return cookie.Value
	}
	return ""
}
