package encounter

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/chartstack/chartstack/internal/domain/procedure"
	"github.com/chartstack/chartstack/internal/platform/auth"
	"github.com/chartstack/chartstack/internal/platform/cms1500"
	"github.com/chartstack/chartstack/internal/platform/metrics"
	"github.com/chartstack/chartstack/internal/platform/superbill"
	"github.com/chartstack/chartstack/pkg/pagination"
)

type Handler struct {
	svc        *Service
	superbills *superbill.Generator
	claims     *cms1500.Generator
	metrics    *metrics.Metrics
}

func NewHandler(svc *Service, sb *superbill.Generator, cl *cms1500.Generator, m *metrics.Metrics) *Handler {
	return &Handler{svc: svc, superbills: sb, claims: cl, metrics: m}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	read := api.Group("", auth.RequireRole("admin", "physician", "nurse", "biller"))
	read.GET("/encounters", h.List)
	read.GET("/encounters/:id", h.Get)
	read.GET("/encounters/:id/line-items", h.ListLineItems)
	read.GET("/encounters/:id/diagnoses", h.ListDiagnoses)
	read.GET("/encounters/:id/vitals", h.GetVitals)
	read.GET("/encounters/:id/total", h.TotalCharges)
	read.GET("/encounters/:id/superbill", h.Superbill)
	read.GET("/encounters/:id/claim", h.Claim)

	write := api.Group("", auth.RequireRole("admin", "physician", "nurse"))
	write.POST("/encounters", h.Create)
	write.PUT("/encounters/:id", h.Update)
	write.DELETE("/encounters/:id", h.Delete)
	write.PUT("/encounters/:id/status", h.UpdateStatus)
	write.POST("/encounters/:id/line-items", h.AddLineItem)
	write.DELETE("/encounters/:id/line-items/:itemID", h.RemoveLineItem)
	write.POST("/encounters/:id/diagnoses", h.AddDiagnosis)
	write.DELETE("/encounters/:id/diagnoses/:itemID", h.RemoveDiagnosis)
	write.PUT("/encounters/:id/vitals", h.SaveVitals)

	api.POST("/encounters/:id/sign", h.Sign, auth.RequireRole("admin", "physician"))
}

func scope(c echo.Context) (orgID, encounterID uuid.UUID, err error) {
	orgID, err = auth.OrganizationID(c)
	if err != nil {
		return uuid.Nil, uuid.Nil, echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	encounterID, err = uuid.Parse(c.Param("id"))
	if err != nil {
		return uuid.Nil, uuid.Nil, echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	return orgID, encounterID, nil
}

func (h *Handler) Create(c echo.Context) error {
	orgID, err := auth.OrganizationID(c)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	var e Encounter
	if err := c.Bind(&e); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	e.OrganizationID = orgID
	if err := h.svc.Create(c.Request().Context(), &e); err != nil {
		return mapError(err)
	}
	return c.JSON(http.StatusCreated, e)
}

func (h *Handler) Get(c echo.Context) error {
	orgID, id, err := scope(c)
	if err != nil {
		return err
	}
	e, err := h.svc.Get(c.Request().Context(), orgID, id)
	if err != nil {
		return mapError(err)
	}
	return c.JSON(http.StatusOK, e)
}

func (h *Handler) List(c echo.Context) error {
	orgID, err := auth.OrganizationID(c)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	pg := pagination.FromContext(c)
	ctx := c.Request().Context()

	if pid := c.QueryParam("patient_id"); pid != "" {
		patientID, err := uuid.Parse(pid)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid patient_id")
		}
		encs, total, err := h.svc.ListByPatient(ctx, orgID, patientID, pg.Limit, pg.Offset)
		if err != nil {
			return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
		}
		return c.JSON(http.StatusOK, pagination.NewResponse(encs, total, pg.Limit, pg.Offset))
	}

	if c.QueryParam("needs_signature") == "true" {
		encs, total, err := h.svc.ListNeedingSignature(ctx, orgID, pg.Limit, pg.Offset)
		if err != nil {
			return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
		}
		return c.JSON(http.StatusOK, pagination.NewResponse(encs, total, pg.Limit, pg.Offset))
	}

	encs, total, err := h.svc.List(ctx, orgID, pg.Limit, pg.Offset)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(encs, total, pg.Limit, pg.Offset))
}

func (h *Handler) Update(c echo.Context) error {
	orgID, id, err := scope(c)
	if err != nil {
		return err
	}
	var e Encounter
	if err := c.Bind(&e); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	e.ID = id
	e.OrganizationID = orgID
	if err := h.svc.Update(c.Request().Context(), &e); err != nil {
		return mapError(err)
	}
	return c.JSON(http.StatusOK, e)
}

func (h *Handler) Delete(c echo.Context) error {
	orgID, id, err := scope(c)
	if err != nil {
		return err
	}
	if err := h.svc.Delete(c.Request().Context(), orgID, id); err != nil {
		return mapError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) UpdateStatus(c echo.Context) error {
	orgID, id, err := scope(c)
	if err != nil {
		return err
	}
	var body struct {
		Status Status `json:"status"`
	}
	if err := c.Bind(&body); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := h.svc.UpdateStatus(c.Request().Context(), orgID, id, body.Status); err != nil {
		return mapError(err)
	}
	e, err := h.svc.Get(c.Request().Context(), orgID, id)
	if err != nil {
		return mapError(err)
	}
	return c.JSON(http.StatusOK, e)
}

func (h *Handler) Sign(c echo.Context) error {
	orgID, id, err := scope(c)
	if err != nil {
		return err
	}
	ctx := c.Request().Context()
	signed, err := h.svc.Sign(ctx, orgID, id, auth.UserIDFromContext(ctx))
	if err != nil {
		return mapError(err)
	}
	if !signed {
		return echo.NewHTTPError(http.StatusUnprocessableEntity,
			"encounter is not ready to sign: complete all SOAP sections and mark it completed")
	}
	e, err := h.svc.Get(ctx, orgID, id)
	if err != nil {
		return mapError(err)
	}
	return c.JSON(http.StatusOK, e)
}

func (h *Handler) AddLineItem(c echo.Context) error {
	orgID, id, err := scope(c)
	if err != nil {
		return err
	}
	var in LineItemInput
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	li, err := h.svc.AddLineItem(c.Request().Context(), orgID, id, in)
	if err != nil {
		return mapError(err)
	}
	if li == nil {
		return c.NoContent(http.StatusNoContent)
	}
	return c.JSON(http.StatusCreated, li)
}

func (h *Handler) ListLineItems(c echo.Context) error {
	orgID, id, err := scope(c)
	if err != nil {
		return err
	}
	items, err := h.svc.ListLineItems(c.Request().Context(), orgID, id)
	if err != nil {
		return mapError(err)
	}
	return c.JSON(http.StatusOK, items)
}

func (h *Handler) RemoveLineItem(c echo.Context) error {
	orgID, id, err := scope(c)
	if err != nil {
		return err
	}
	itemID, err := uuid.Parse(c.Param("itemID"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid item id")
	}
	if err := h.svc.RemoveLineItem(c.Request().Context(), orgID, id, itemID); err != nil {
		return mapError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) AddDiagnosis(c echo.Context) error {
	orgID, id, err := scope(c)
	if err != nil {
		return err
	}
	var d Diagnosis
	if err := c.Bind(&d); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := h.svc.AddDiagnosis(c.Request().Context(), orgID, id, &d); err != nil {
		return mapError(err)
	}
	return c.JSON(http.StatusCreated, d)
}

func (h *Handler) ListDiagnoses(c echo.Context) error {
	orgID, id, err := scope(c)
	if err != nil {
		return err
	}
	diags, err := h.svc.ListDiagnoses(c.Request().Context(), orgID, id)
	if err != nil {
		return mapError(err)
	}
	return c.JSON(http.StatusOK, diags)
}

func (h *Handler) RemoveDiagnosis(c echo.Context) error {
	orgID, id, err := scope(c)
	if err != nil {
		return err
	}
	itemID, err := uuid.Parse(c.Param("itemID"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid item id")
	}
	if err := h.svc.RemoveDiagnosis(c.Request().Context(), orgID, id, itemID); err != nil {
		return mapError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) SaveVitals(c echo.Context) error {
	orgID, id, err := scope(c)
	if err != nil {
		return err
	}
	var v Vitals
	if err := c.Bind(&v); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := h.svc.SaveVitals(c.Request().Context(), orgID, id, &v); err != nil {
		return mapError(err)
	}
	return c.JSON(http.StatusOK, v)
}

func (h *Handler) GetVitals(c echo.Context) error {
	orgID, id, err := scope(c)
	if err != nil {
		return err
	}
	v, err := h.svc.GetVitals(c.Request().Context(), orgID, id)
	if err != nil {
		return mapError(err)
	}
	return c.JSON(http.StatusOK, v)
}

func (h *Handler) TotalCharges(c echo.Context) error {
	orgID, id, err := scope(c)
	if err != nil {
		return err
	}
	total, err := h.svc.TotalCharges(c.Request().Context(), orgID, id)
	if err != nil {
		return mapError(err)
	}
	return c.JSON(http.StatusOK, map[string]float64{"total_charges": total})
}

// Superbill streams the visit receipt PDF.
func (h *Handler) Superbill(c echo.Context) error {
	orgID, id, err := scope(c)
	if err != nil {
		return err
	}
	ctx := c.Request().Context()

	data, lastName, err := h.svc.SuperbillData(ctx, orgID, id)
	if err != nil {
		return mapError(err)
	}
	out, err := h.superbills.Generate(data)
	if err != nil {
		if h.metrics != nil {
			h.metrics.DocumentFailures.WithLabelValues("superbill").Inc()
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	if h.metrics != nil {
		h.metrics.DocumentsGenerated.WithLabelValues("superbill").Inc()
	}

	filename := superbill.Filename(lastName, data.VisitDate)
	c.Response().Header().Set(echo.HeaderContentDisposition,
		fmt.Sprintf(`attachment; filename=%q`, filename))
	return c.Blob(http.StatusOK, "application/pdf", out)
}

// Claim streams the CMS-1500 PDF. The mode query selects print (data only,
// for form stock) or digital (data over the scanned form).
func (h *Handler) Claim(c echo.Context) error {
	orgID, id, err := scope(c)
	if err != nil {
		return err
	}
	mode := cms1500.Mode(c.QueryParam("mode"))
	if mode == "" {
		mode = cms1500.ModeDigital
	}
	if mode != cms1500.ModePrint && mode != cms1500.ModeDigital {
		return echo.NewHTTPError(http.StatusBadRequest, "mode must be print or digital")
	}
	ctx := c.Request().Context()

	data, err := h.svc.ClaimData(ctx, orgID, id)
	if err != nil {
		return mapError(err)
	}
	out, err := h.claims.Generate(data, mode)
	if err != nil {
		if h.metrics != nil {
			h.metrics.DocumentFailures.WithLabelValues("cms1500").Inc()
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	if h.metrics != nil {
		h.metrics.DocumentsGenerated.WithLabelValues("cms1500").Inc()
	}

	c.Response().Header().Set(echo.HeaderContentDisposition,
		fmt.Sprintf(`attachment; filename=%q`, cms1500.Filename(id, mode)))
	return c.Blob(http.StatusOK, "application/pdf", out)
}

func mapError(err error) error {
	switch {
	case errors.Is(err, ErrNotFound), errors.Is(err, ErrVitalsNotFound):
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	case errors.Is(err, ErrInvalid):
		return echo.NewHTTPError(http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, ErrInvalidTransition), errors.Is(err, ErrSigned):
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	case errors.Is(err, ErrDuplicateLineItem):
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	case errors.Is(err, procedure.ErrEmptyCode), errors.Is(err, procedure.ErrMissingOrganization):
		return echo.NewHTTPError(http.StatusUnprocessableEntity, err.Error())
	default:
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
}
