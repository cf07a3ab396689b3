package controller

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"testwise_attempt/internal/model"
	"testwise_attempt/internal/service"
	"testwise_attempt/internal/util"

	"github.com/gin-gonic/gin"
)

type AttemptController struct {
	Registry *service.SessionRegistry
	Hub      *service.SessionHub
	Storage  *service.StorageService
}

func NewAttemptController(registry *service.SessionRegistry, hub *service.SessionHub, storage *service.StorageService) *AttemptController {
	return &AttemptController{Registry: registry, Hub: hub, Storage: storage}
}

// StartRequest optionally names the page to return to once the attempt ends,
// e.g. /section/tree/{topic}.
type StartRequest struct {
	ReturnPath string `json:"returnPath"`
}

type AnswerRequest struct {
	QuestionID uint            `json:"questionId" binding:"required"`
	Answer     json.RawMessage `json:"answer" swaggertype:"object"`
}

// session resolves the caller's session for the :testId route parameter.
// On failure the response has already been written.
func (c *AttemptController) session(ctx *gin.Context) (*service.AttemptSession, bool) {
	p, ok := util.GetPrincipal(ctx)
	if !ok {
		util.Unauthorized(ctx)
		return nil, false
	}
	testID, err := util.ParseID(ctx.Param("testId"))
	if err != nil {
		util.BadRequest(ctx, "invalid test id")
		return nil, false
	}
	return c.Registry.Get(p, testID), true
}

func (c *AttemptController) snapshot(ctx context.Context, s *service.AttemptSession) service.SessionSnapshot {
	snap := s.Snapshot()
	if snap.State == model.SessionIdle || snap.State == model.SessionStarting {
		if draft, err := s.Draft(ctx); err == nil {
			snap.Draft = draft
		}
	}
	if c.Storage != nil {
		snap.Questions = c.Storage.ResolveImages(ctx, snap.Questions)
		if snap.Draft != nil {
			draft := *snap.Draft
			draft.Questions = c.Storage.ResolveImages(ctx, draft.Questions)
			snap.Draft = &draft
		}
	}
	return snap
}

func (c *AttemptController) reply(ctx *gin.Context, s *service.AttemptSession, err error) {
	snap := c.snapshot(ctx.Request.Context(), s)
	if err != nil {
		code := sessionErrorStatus(err)
		if code == http.StatusInternalServerError {
			util.LogInternalError(ctx, err)
			return
		}
		util.ErrorWithData(ctx, code, err.Error(), snap)
		return
	}
	util.Success(ctx, snap)
}

func sessionErrorStatus(err error) int {
	var gwErr *util.GatewayError
	switch {
	case errors.Is(err, util.ErrNotEntitled):
		return http.StatusForbidden
	case errors.Is(err, util.ErrAttemptAlreadyActive), errors.Is(err, util.ErrInvalidState):
		return http.StatusConflict
	case errors.Is(err, util.ErrStatusUnknown):
		return http.StatusServiceUnavailable
	case errors.Is(err, util.ErrSubmissionExhausted):
		return http.StatusBadGateway
	case errors.Is(err, util.ErrQuestionNotFound):
		return http.StatusNotFound
	case errors.Is(err, util.ErrAnswerKindMismatch), errors.Is(err, util.ErrAnswerOutOfRange):
		return http.StatusUnprocessableEntity
	case errors.Is(err, util.ErrSessionClosed):
		return http.StatusGone
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return http.StatusGatewayTimeout
	case errors.As(err, &gwErr):
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

// @Summary Get attempt session
// @Description Current state, remaining time, answers and result of the caller's session
// @Tags Attempt session
// @Produce json
// @Security ApiKeyAuth
// @Param testId path int true "Test ID"
// @Success 200 {object} util.Response{data=service.SessionSnapshot}
// @Router /tests/{testId}/session [get]
func (c *AttemptController) GetSession(ctx *gin.Context) {
	s, ok := c.session(ctx)
	if !ok {
		return
	}
	c.reply(ctx, s, nil)
}

// @Summary Resume attempt session
// @Description Rebuild the session from the assessment service after a reload
// @Tags Attempt session
// @Produce json
// @Security ApiKeyAuth
// @Param testId path int true "Test ID"
// @Success 200 {object} util.Response{data=service.SessionSnapshot}
// @Failure 503 {object} util.Response
// @Router /tests/{testId}/session/resume [post]
func (c *AttemptController) Resume(ctx *gin.Context) {
	s, ok := c.session(ctx)
	if !ok {
		return
	}
	c.reply(ctx, s, s.Resume(ctx.Request.Context()))
}

// @Summary Start attempt
// @Tags Attempt session
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param testId path int true "Test ID"
// @Param body body StartRequest false "Return path"
// @Success 200 {object} util.Response{data=service.SessionSnapshot}
// @Failure 403 {object} util.Response
// @Failure 409 {object} util.Response
// @Router /tests/{testId}/session/start [post]
func (c *AttemptController) Start(ctx *gin.Context) {
	s, ok := c.session(ctx)
	if !ok {
		return
	}
	var req StartRequest
	if ctx.Request.ContentLength > 0 {
		if err := ctx.ShouldBindJSON(&req); err != nil {
			util.BadRequest(ctx, err.Error())
			return
		}
	}
	s.SetReturnPath(req.ReturnPath)
	c.reply(ctx, s, s.Start(ctx.Request.Context()))
}

// @Summary Answer a question
// @Description Replace the answer to one question: an option index for single choice, an index array for multiple choice, a string for open text
// @Tags Attempt session
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param testId path int true "Test ID"
// @Param body body AnswerRequest true "Answer"
// @Success 200 {object} util.Response{data=service.SessionSnapshot}
// @Failure 422 {object} util.Response
// @Router /tests/{testId}/session/answers [post]
func (c *AttemptController) Answer(ctx *gin.Context) {
	s, ok := c.session(ctx)
	if !ok {
		return
	}
	var req AnswerRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}
	kind, found := s.QuestionKind(req.QuestionID)
	if !found {
		c.reply(ctx, s, util.ErrQuestionNotFound)
		return
	}
	v, err := model.ParseAnswerValue(kind, req.Answer)
	if err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}
	c.reply(ctx, s, s.Answer(req.QuestionID, v))
}

// @Summary Next question
// @Tags Attempt session
// @Produce json
// @Security ApiKeyAuth
// @Param testId path int true "Test ID"
// @Success 200 {object} util.Response{data=service.SessionSnapshot}
// @Router /tests/{testId}/session/next [post]
func (c *AttemptController) Next(ctx *gin.Context) {
	s, ok := c.session(ctx)
	if !ok {
		return
	}
	c.reply(ctx, s, s.Next())
}

// @Summary Previous question
// @Tags Attempt session
// @Produce json
// @Security ApiKeyAuth
// @Param testId path int true "Test ID"
// @Success 200 {object} util.Response{data=service.SessionSnapshot}
// @Router /tests/{testId}/session/previous [post]
func (c *AttemptController) Previous(ctx *gin.Context) {
	s, ok := c.session(ctx)
	if !ok {
		return
	}
	c.reply(ctx, s, s.Previous())
}

// @Summary Submit attempt
// @Description Hand in the attempt. Retries transient failures before giving up.
// @Tags Attempt session
// @Produce json
// @Security ApiKeyAuth
// @Param testId path int true "Test ID"
// @Success 200 {object} util.Response{data=service.SessionSnapshot}
// @Failure 502 {object} util.Response
// @Router /tests/{testId}/session/submit [post]
func (c *AttemptController) Submit(ctx *gin.Context) {
	s, ok := c.session(ctx)
	if !ok {
		return
	}
	c.reply(ctx, s, s.Submit(ctx.Request.Context()))
}

// @Summary Reset attempt session
// @Tags Attempt session
// @Produce json
// @Security ApiKeyAuth
// @Param testId path int true "Test ID"
// @Success 200 {object} util.Response{data=service.SessionSnapshot}
// @Router /tests/{testId}/session/reset [post]
func (c *AttemptController) Reset(ctx *gin.Context) {
	s, ok := c.session(ctx)
	if !ok {
		return
	}
	s.Reset()
	c.reply(ctx, s, nil)
}

// @Summary Cancel redirect
// @Description Stop the post-completion redirect countdown
// @Tags Attempt session
// @Produce json
// @Security ApiKeyAuth
// @Param testId path int true "Test ID"
// @Success 200 {object} util.Response{data=service.SessionSnapshot}
// @Router /tests/{testId}/session/redirect/cancel [post]
func (c *AttemptController) CancelRedirect(ctx *gin.Context) {
	s, ok := c.session(ctx)
	if !ok {
		return
	}
	s.CancelRedirect()
	c.reply(ctx, s, nil)
}

// @Summary Session event stream
// @Description WebSocket carrying state changes, remaining seconds and navigation requests
// @Tags Attempt session
// @Security ApiKeyAuth
// @Param testId path int true "Test ID"
// @Param token query string false "JWT when headers cannot be set"
// @Router /tests/{testId}/session/ws [get]
func (c *AttemptController) Stream(ctx *gin.Context) {
	p, ok := util.GetPrincipal(ctx)
	if !ok {
		util.Unauthorized(ctx)
		return
	}
	testID, err := util.ParseID(ctx.Param("testId"))
	if err != nil {
		util.BadRequest(ctx, "invalid test id")
		return
	}
	service.ServeSessionWs(c.Hub, ctx.Writer, ctx.Request, p.UserID, testID)
}
