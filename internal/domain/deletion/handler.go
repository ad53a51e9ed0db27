package deletion

import (
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/kdu-mi/miu-server/internal/platform/auth"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	admin := auth.RequireRole("admin")
	anyUser := auth.RequireRole("admin", "physician", "nurse", "patient")

	api.POST("/deletion-requests", h.Create, admin)
	api.GET("/deletion-requests", h.ListAll, admin)
	api.GET("/deletion-requests/pending-admin", h.ListPendingAdmin, admin)
	api.PUT("/deletion-requests/:id/admin-confirm", h.AdminConfirm, admin)
	api.DELETE("/deletion-requests/:id", h.Remove, admin)
	api.POST("/deletion-requests/cleanup-legacy", h.CleanupLegacy, admin)

	api.GET("/deletion-requests/patient/:indexNo", h.ListForPatient, anyUser)
	api.GET("/deletion-requests/pending-count/:indexNo", h.CountPending, anyUser)
	api.PUT("/deletion-requests/:id/respond", h.Respond, anyUser)
	api.PUT("/deletion-requests/:id/dismiss", h.Dismiss, anyUser)
}

type createRequest struct {
	MedicalRecordRef string `json:"medical_record_ref"`
	PatientIndexNo   string `json:"patient_index_no"`
	Reason           string `json:"reason"`
}

type respondRequest struct {
	Response string `json:"response"`
	Comment  string `json:"comment"`
}

type adminConfirmRequest struct {
	Response string `json:"response"`
	Comment  string `json:"comment"`
}

func (h *Handler) Create(c echo.Context) error {
	var body createRequest
	if err := c.Bind(&body); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	ctx := c.Request().Context()
	req, err := h.svc.Create(ctx, CreateParams{
		RecordRef:      body.MedicalRecordRef,
		PatientIndexNo: body.PatientIndexNo,
		AdminID:        auth.UserIDFromContext(ctx),
		AdminName:      auth.UserNameFromContext(ctx),
		Reason:         body.Reason,
	})
	if err != nil {
		return mapError(err)
	}
	return c.JSON(http.StatusCreated, req)
}

func (h *Handler) Respond(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	var body respondRequest
	if err := c.Bind(&body); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	ctx := c.Request().Context()
	req, err := h.svc.Respond(ctx, id, body.Response, body.Comment, auth.IndexNoFromContext(ctx))
	if err != nil {
		return mapError(err)
	}
	return c.JSON(http.StatusOK, req)
}

func (h *Handler) AdminConfirm(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	var body adminConfirmRequest
	if err := c.Bind(&body); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	req, err := h.svc.AdminConfirm(c.Request().Context(), id, body.Response, body.Comment)
	if err != nil {
		return mapError(err)
	}
	return c.JSON(http.StatusOK, req)
}

func (h *Handler) Dismiss(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	ctx := c.Request().Context()
	req, err := h.svc.Dismiss(ctx, id, auth.IndexNoFromContext(ctx))
	if err != nil {
		return mapError(err)
	}
	return c.JSON(http.StatusOK, req)
}

func (h *Handler) ListForPatient(c echo.Context) error {
	items, err := h.svc.ListForPatient(c.Request().Context(), c.Param("indexNo"))
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	if items == nil {
		items = []*Request{}
	}
	return c.JSON(http.StatusOK, items)
}

func (h *Handler) ListAll(c echo.Context) error {
	items, err := h.svc.ListAll(c.Request().Context())
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	if items == nil {
		items = []*Request{}
	}
	return c.JSON(http.StatusOK, items)
}

func (h *Handler) ListPendingAdmin(c echo.Context) error {
	items, err := h.svc.ListPendingAdminConfirmation(c.Request().Context())
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	if items == nil {
		items = []*Request{}
	}
	return c.JSON(http.StatusOK, items)
}

func (h *Handler) CountPending(c echo.Context) error {
	n, err := h.svc.CountPending(c.Request().Context(), c.Param("indexNo"))
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, map[string]int{"count": n})
}

func (h *Handler) CleanupLegacy(c echo.Context) error {
	n, err := h.svc.CleanupLegacyRequests(c.Request().Context())
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, map[string]int64{"removed": n})
}

func (h *Handler) Remove(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	if err := h.svc.RemoveRequest(c.Request().Context(), id); err != nil {
		return mapError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

func mapError(err error) error {
	switch {
	case errors.Is(err, ErrRequestNotFound), errors.Is(err, ErrPatientNotFound):
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	case errors.Is(err, ErrNotOwner):
		return echo.NewHTTPError(http.StatusForbidden, err.Error())
	case errors.Is(err, ErrDuplicatePending),
		errors.Is(err, ErrAlreadyResponded),
		errors.Is(err, ErrNotAwaitingAdmin),
		errors.Is(err, ErrAlreadyDismissed),
		errors.Is(err, ErrReasonRequired),
		errors.Is(err, ErrInvalidResponse):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
}
