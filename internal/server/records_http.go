package server

import (
	"errors"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	log "github.com/sirupsen/logrus"

	"github.com/DonatFortini/mailmate/internal/export"
	"github.com/DonatFortini/mailmate/internal/hydrate"
	"github.com/DonatFortini/mailmate/internal/service"
	"github.com/DonatFortini/mailmate/internal/webmail"
)

type RecordsHandler struct {
	svc      *service.Service
	validate *validator.Validate
}

type ExtractRequest struct {
	Address string `json:"address" validate:"required,url"`
	HTML    string `json:"html" validate:"required"`
}

type HydrateRequest struct {
	Address      string `json:"address" validate:"required,url"`
	AttachmentID string `json:"attachment_id" validate:"required"`
	Retry        bool   `json:"retry"`
}

type HydrateAllRequest struct {
	Address string `json:"address" validate:"required,url"`
}

func NewRecordsHandler(svc *service.Service, validate *validator.Validate) *RecordsHandler {
	return &RecordsHandler{
		svc:      svc,
		validate: validate,
	}
}

func (h *RecordsHandler) Extract() echo.HandlerFunc {
	return func(c echo.Context) error {
		var req ExtractRequest
		if err := h.bind(c, &req); err != nil {
			return err
		}

		record, err := h.svc.Extract(c.Request().Context(), req.Address, req.HTML)
		if err != nil {
			return h.fail(c, err, "Extraction failed")
		}
		return c.JSON(http.StatusOK, record)
	}
}

func (h *RecordsHandler) Hydrate() echo.HandlerFunc {
	return func(c echo.Context) error {
		var req HydrateRequest
		if err := h.bind(c, &req); err != nil {
			return err
		}

		att, err := h.svc.Hydrate(c.Request().Context(), req.Address, req.AttachmentID, req.Retry)
		if err != nil {
			return h.fail(c, err, "Hydration failed")
		}
		return c.JSON(http.StatusOK, att)
	}
}

func (h *RecordsHandler) HydrateAll() echo.HandlerFunc {
	return func(c echo.Context) error {
		var req HydrateAllRequest
		if err := h.bind(c, &req); err != nil {
			return err
		}

		record, err := h.svc.HydrateAll(c.Request().Context(), req.Address)
		if err != nil {
			return h.fail(c, err, "Hydration failed")
		}
		return c.JSON(http.StatusOK, record)
	}
}

func (h *RecordsHandler) Cached() echo.HandlerFunc {
	return func(c echo.Context) error {
		address := c.QueryParam("address")
		if address == "" {
			return c.JSON(http.StatusBadRequest, map[string]string{
				"error": "Missing address parameter",
			})
		}

		record, err := h.svc.GetCached(address)
		if err != nil {
			return h.fail(c, err, "Cache lookup failed")
		}
		return c.JSON(http.StatusOK, record)
	}
}

// Current serves the most recently cached record. The address parameter is
// optional: without it the record is served tentatively, so a client coming
// back up can rehydrate before it knows where the user navigated.
func (h *RecordsHandler) Current() echo.HandlerFunc {
	return func(c echo.Context) error {
		record, err := h.svc.GetCurrent(c.QueryParam("address"))
		if err != nil {
			return h.fail(c, err, "Current record lookup failed")
		}
		return c.JSON(http.StatusOK, record)
	}
}

func (h *RecordsHandler) Export() echo.HandlerFunc {
	return func(c echo.Context) error {
		address := c.QueryParam("address")
		if address == "" {
			return c.JSON(http.StatusBadRequest, map[string]string{
				"error": "Missing address parameter",
			})
		}

		record, err := h.svc.GetCached(address)
		if err != nil {
			return h.fail(c, err, "Export lookup failed")
		}

		eml, err := export.EML(record)
		if err != nil {
			return h.fail(c, err, "Export failed")
		}
		return c.Blob(http.StatusOK, "message/rfc822", eml)
	}
}

func (h *RecordsHandler) Invalidate() echo.HandlerFunc {
	return func(c echo.Context) error {
		id := c.QueryParam("id")
		if id == "" {
			return c.JSON(http.StatusBadRequest, map[string]string{
				"error": "Missing id parameter",
			})
		}

		var err error
		if id == "all" {
			err = h.svc.InvalidateAll()
		} else {
			err = h.svc.Invalidate(id)
		}
		if err != nil {
			return h.fail(c, err, "Invalidation failed")
		}
		return c.NoContent(http.StatusNoContent)
	}
}

// bind decodes and validates a JSON request body.
func (h *RecordsHandler) bind(c echo.Context, req interface{}) error {
	if err := c.Bind(req); err != nil {
		log.WithError(err).Error("Failed to bind request")
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request payload")
	}
	if err := h.validate.Struct(req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return nil
}

// fail maps pipeline errors onto HTTP statuses.
func (h *RecordsHandler) fail(c echo.Context, err error, msg string) error {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, webmail.ErrUnsupportedProvider):
		status = http.StatusUnprocessableEntity
	case errors.Is(err, service.ErrRecordNotFound),
		errors.Is(err, service.ErrAttachmentNotFound):
		status = http.StatusNotFound
	case errors.Is(err, hydrate.ErrNotRetriable):
		status = http.StatusConflict
	}

	if status == http.StatusInternalServerError {
		log.WithError(err).Error(msg)
	}
	return c.JSON(status, map[string]string{"error": err.Error()})
}
