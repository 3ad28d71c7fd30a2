package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	userapp "github.com/oksasatya/tutorhub-user-service/internal/application"
	"github.com/oksasatya/tutorhub-user-service/internal/domain/domainerr"
	"github.com/oksasatya/tutorhub-user-service/internal/domain/entity"
	repo "github.com/oksasatya/tutorhub-user-service/internal/domain/repository"
	vo "github.com/oksasatya/tutorhub-user-service/internal/domain/valueobject"
	"github.com/oksasatya/tutorhub-user-service/internal/interface/middleware"
	"github.com/oksasatya/tutorhub-user-service/pkg/response"
	"github.com/oksasatya/tutorhub-user-service/pkg/validation"
)

type UserHandler struct {
	Svc    *userapp.Service
	Logger *logrus.Logger
}

func NewUserHandler(svc *userapp.Service, logger *logrus.Logger) *UserHandler {
	return &UserHandler{Svc: svc, Logger: logger}
}

type registerRequest struct {
	Email     string `json:"email" binding:"required,email,max=254"`
	FirstName string `json:"first_name" binding:"required,max=100"`
	LastName  string `json:"last_name" binding:"required,max=100"`
}

type reasonRequest struct {
	Reason string `json:"reason" binding:"required,max=500"`
}

type skillRequest struct {
	Name     string `json:"name" binding:"required,max=60"`
	Category string `json:"category" binding:"required,skillcategory"`
	Level    string `json:"level" binding:"required,skilllevel"`
}

type profileRequest struct {
	FirstName   string         `json:"first_name" binding:"required,max=100"`
	LastName    string         `json:"last_name" binding:"required,max=100"`
	Bio         string         `json:"bio" binding:"max=2000"`
	Skills      []skillRequest `json:"skills" binding:"omitempty,max=50,dive"`
	DateOfBirth *string        `json:"date_of_birth" binding:"omitempty,datetime=2006-01-02"`
}

type preferencesRequest struct {
	Notifications map[string]bool `json:"notifications"`
	Language      string          `json:"language" binding:"omitempty,bcp47_language_tag"`
	Timezone      string          `json:"timezone" binding:"omitempty,timezone"`
}

type emailRequest struct {
	Email string `json:"email" binding:"required,email,max=254"`
}

type factorsRequest struct {
	CompletedSessions int     `json:"completed_sessions" binding:"gte=0"`
	CancelledSessions int     `json:"cancelled_sessions" binding:"gte=0"`
	AverageRating     float64 `json:"average_rating" binding:"gte=0,lte=5"`
}

func (f factorsRequest) factors() vo.ReputationFactors {
	return vo.ReputationFactors{
		CompletedSessions: f.CompletedSessions,
		CancelledSessions: f.CancelledSessions,
		AverageRating:     f.AverageRating,
	}
}

type roleRequest struct {
	Role    string         `json:"role" binding:"required,role"`
	Factors factorsRequest `json:"factors"`
}

type loginRequest struct {
	At *time.Time `json:"at"`
}

func (h *UserHandler) Register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error[any](c, http.StatusBadRequest, "invalid payload", validation.ToDetails(err))
		return
	}
	u, err := h.Svc.Register(c.Request.Context(), userapp.RegisterInput{Email: req.Email, FirstName: req.FirstName, LastName: req.LastName})
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, http.StatusCreated, newUserView(u), "user registered", nil)
}

func (h *UserHandler) Get(c *gin.Context) {
	u, err := h.Svc.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, http.StatusOK, newUserView(u), "user", nil)
}

func (h *UserHandler) Activate(c *gin.Context) {
	h.respond(c, "user activated")(h.Svc.Activate(c.Request.Context(), c.Param("id")))
}

func (h *UserHandler) Reinstate(c *gin.Context) {
	h.respond(c, "user reinstated")(h.Svc.Reinstate(c.Request.Context(), c.Param("id")))
}

func (h *UserHandler) Suspend(c *gin.Context) {
	var req reasonRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error[any](c, http.StatusBadRequest, "invalid payload", validation.ToDetails(err))
		return
	}
	h.respond(c, "user suspended")(h.Svc.Suspend(c.Request.Context(), c.Param("id"), req.Reason))
}

func (h *UserHandler) Deactivate(c *gin.Context) {
	var req reasonRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error[any](c, http.StatusBadRequest, "invalid payload", validation.ToDetails(err))
		return
	}
	h.respond(c, "user deactivated")(h.Svc.Deactivate(c.Request.Context(), c.Param("id"), req.Reason))
}

func (h *UserHandler) UpdateProfile(c *gin.Context) {
	var req profileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error[any](c, http.StatusBadRequest, "invalid payload", validation.ToDetails(err))
		return
	}
	in := userapp.ProfileInput{FirstName: req.FirstName, LastName: req.LastName, Bio: req.Bio}
	for _, s := range req.Skills {
		in.Skills = append(in.Skills, vo.Skill{Name: s.Name, Category: vo.SkillCategory(s.Category), Level: vo.ExperienceLevel(s.Level)})
	}
	if req.DateOfBirth != nil {
		dob, err := time.Parse(time.DateOnly, *req.DateOfBirth)
		if err != nil {
			response.Error[any](c, http.StatusBadRequest, "invalid payload", map[string]string{"date_of_birth": "must match the format 2006-01-02"})
			return
		}
		in.DateOfBirth = &dob
	}
	h.respond(c, "profile updated")(h.Svc.UpdateProfile(c.Request.Context(), c.Param("id"), in))
}

func (h *UserHandler) UpdatePreferences(c *gin.Context) {
	var req preferencesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error[any](c, http.StatusBadRequest, "invalid payload", validation.ToDetails(err))
		return
	}
	in := vo.PreferencesParams{Language: req.Language, Timezone: req.Timezone}
	if len(req.Notifications) > 0 {
		in.Notifications = make(map[vo.NotificationKind]bool, len(req.Notifications))
		for k, v := range req.Notifications {
			in.Notifications[vo.NotificationKind(k)] = v
		}
	}
	h.respond(c, "preferences updated")(h.Svc.UpdatePreferences(c.Request.Context(), c.Param("id"), in))
}

func (h *UserHandler) ChangeEmail(c *gin.Context) {
	var req emailRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error[any](c, http.StatusBadRequest, "invalid payload", validation.ToDetails(err))
		return
	}
	h.respond(c, "email changed")(h.Svc.ChangeEmail(c.Request.Context(), c.Param("id"), req.Email))
}

// ChangeRole expects the Actor middleware in front of it.
func (h *UserHandler) ChangeRole(c *gin.Context) {
	actorID, actorRole, ok := middleware.ActorFrom(c)
	if !ok {
		response.Error[any](c, http.StatusUnauthorized, "missing actor", nil)
		return
	}
	var req roleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error[any](c, http.StatusBadRequest, "invalid payload", validation.ToDetails(err))
		return
	}
	h.respond(c, "role changed")(h.Svc.ChangeRole(c.Request.Context(), c.Param("id"), userapp.ChangeRoleInput{
		Target:    vo.Role(req.Role),
		ActorID:   actorID,
		ActorRole: actorRole,
		Factors:   req.Factors.factors(),
	}))
}

func (h *UserHandler) RecordLogin(c *gin.Context) {
	var req loginRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			response.Error[any](c, http.StatusBadRequest, "invalid payload", validation.ToDetails(err))
			return
		}
	}
	at := time.Now().UTC()
	if req.At != nil {
		at = *req.At
	}
	h.respond(c, "login recorded")(h.Svc.RecordLogin(c.Request.Context(), c.Param("id"), at))
}

func (h *UserHandler) EvaluateReputation(c *gin.Context) {
	var req factorsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error[any](c, http.StatusBadRequest, "invalid payload", validation.ToDetails(err))
		return
	}
	view, err := h.Svc.EvaluateReputation(c.Request.Context(), c.Param("id"), req.factors())
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, http.StatusOK, view, "reputation evaluated", nil)
}

func (h *UserHandler) CachedReputation(c *gin.Context) {
	view, ok, err := h.Svc.CachedReputation(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	if !ok {
		response.Error[any](c, http.StatusNotFound, "no cached reputation", nil)
		return
	}
	response.Success(c, http.StatusOK, view, "cached reputation", nil)
}

func (h *UserHandler) Search(c *gin.Context) {
	q := c.Query("q")
	if q == "" {
		response.Error[any](c, http.StatusBadRequest, "invalid query", map[string]string{"q": "is required"})
		return
	}
	size, _ := strconv.Atoi(c.DefaultQuery("size", "10"))
	docs, err := h.Svc.SearchUsers(c.Request.Context(), q, size)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, http.StatusOK, docs, "search results", map[string]any{"count": len(docs)})
}

func (h *UserHandler) respond(c *gin.Context, message string) func(*entity.User, error) {
	return func(u *entity.User, err error) {
		if err != nil {
			h.fail(c, err)
			return
		}
		response.Success(c, http.StatusOK, newUserView(u), message, nil)
	}
}

// fail maps domain and repository errors onto HTTP statuses.
func (h *UserHandler) fail(c *gin.Context, err error) {
	var (
		stateErr    *domainerr.InvalidStateTransitionError
		ruleErr     *domainerr.BusinessRuleViolationError
		conflictErr *domainerr.ConflictError
	)
	switch {
	case errors.Is(err, domainerr.ErrValidation):
		response.Error[any](c, http.StatusBadRequest, "validation failed", validation.ToDetails(err))
	case errors.As(err, &stateErr):
		response.Error[any](c, http.StatusConflict, stateErr.Error(), stateErr)
	case errors.As(err, &ruleErr):
		response.Error[any](c, http.StatusUnprocessableEntity, ruleErr.Message, ruleErr)
	case errors.As(err, &conflictErr):
		response.Error[any](c, http.StatusConflict, "user was modified concurrently, retry", conflictErr)
	case errors.Is(err, repo.ErrUserNotFound):
		response.Error[any](c, http.StatusNotFound, "user not found", nil)
	case errors.Is(err, repo.ErrEmailTaken):
		response.Error[any](c, http.StatusConflict, "email already registered", map[string]string{"email": "is already registered"})
	default:
		if h.Logger != nil {
			h.Logger.WithError(err).WithFields(logrus.Fields{"path": c.FullPath(), "request_id": c.GetString("request_id")}).Error("request failed")
		}
		response.Error[any](c, http.StatusInternalServerError, "internal error", nil)
	}
}
