package patient

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/chartstack/chartstack/internal/platform/auth"
	"github.com/chartstack/chartstack/internal/platform/ccda"
	"github.com/chartstack/chartstack/internal/platform/metrics"
	"github.com/chartstack/chartstack/pkg/pagination"
)

type Handler struct {
	svc     *Service
	ccda    *ccda.Generator
	metrics *metrics.Metrics
}

func NewHandler(svc *Service, gen *ccda.Generator, m *metrics.Metrics) *Handler {
	return &Handler{svc: svc, ccda: gen, metrics: m}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	read := api.Group("", auth.RequireRole("admin", "physician", "nurse", "biller"))
	read.GET("/patients", h.List)
	read.GET("/patients/search", h.Search)
	read.GET("/patients/:id", h.Get)
	read.GET("/patients/:id/allergies", h.ListAllergies)
	read.GET("/patients/:id/conditions", h.ListConditions)
	read.GET("/patients/:id/medications", h.ListMedications)
	read.GET("/patients/:id/labs", h.ListLabs)
	read.GET("/patients/:id/dmes", h.ListDMEs)
	read.GET("/patients/:id/ccda", h.ExportCCDA)

	write := api.Group("", auth.RequireRole("admin", "physician", "nurse"))
	write.POST("/patients", h.Create)
	write.PUT("/patients/:id", h.Update)
	write.DELETE("/patients/:id", h.Delete)
	write.POST("/patients/:id/allergies", h.AddAllergy)
	write.DELETE("/patients/:id/allergies/:itemID", h.RemoveAllergy)
	write.POST("/patients/:id/conditions", h.AddCondition)
	write.DELETE("/patients/:id/conditions/:itemID", h.RemoveCondition)
	write.POST("/patients/:id/medications", h.AddMedication)
	write.DELETE("/patients/:id/medications/:itemID", h.RemoveMedication)
	write.POST("/patients/:id/labs", h.AddLab)
	write.DELETE("/patients/:id/labs/:itemID", h.RemoveLab)
	write.POST("/patients/:id/dmes", h.AddDME)
	write.DELETE("/patients/:id/dmes/:itemID", h.RemoveDME)
}

// scope extracts the organization and patient ids common to every chart
// route.
func scope(c echo.Context) (orgID, patientID uuid.UUID, err error) {
	orgID, err = auth.OrganizationID(c)
	if err != nil {
		return uuid.Nil, uuid.Nil, echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	patientID, err = uuid.Parse(c.Param("id"))
	if err != nil {
		return uuid.Nil, uuid.Nil, echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	return orgID, patientID, nil
}

func (h *Handler) Create(c echo.Context) error {
	orgID, err := auth.OrganizationID(c)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	var p Patient
	if err := c.Bind(&p); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	p.OrganizationID = orgID
	if err := h.svc.Create(c.Request().Context(), &p); err != nil {
		return mapError(err)
	}
	return c.JSON(http.StatusCreated, p)
}

func (h *Handler) Get(c echo.Context) error {
	orgID, id, err := scope(c)
	if err != nil {
		return err
	}
	p, err := h.svc.Get(c.Request().Context(), orgID, id)
	if err != nil {
		return mapError(err)
	}
	return c.JSON(http.StatusOK, p)
}

func (h *Handler) List(c echo.Context) error {
	orgID, err := auth.OrganizationID(c)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	pg := pagination.FromContext(c)
	patients, total, err := h.svc.List(c.Request().Context(), orgID, pg.Limit, pg.Offset)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(patients, total, pg.Limit, pg.Offset))
}

func (h *Handler) Search(c echo.Context) error {
	orgID, err := auth.OrganizationID(c)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	patients, err := h.svc.Search(c.Request().Context(), orgID, c.QueryParam("q"), pagination.DefaultLimit)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	if patients == nil {
		patients = []*Patient{}
	}
	return c.JSON(http.StatusOK, patients)
}

func (h *Handler) Update(c echo.Context) error {
	orgID, id, err := scope(c)
	if err != nil {
		return err
	}
	var p Patient
	if err := c.Bind(&p); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	p.ID = id
	p.OrganizationID = orgID
	if err := h.svc.Update(c.Request().Context(), &p); err != nil {
		return mapError(err)
	}
	return c.JSON(http.StatusOK, p)
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

func (h *Handler) ListAllergies(c echo.Context) error {
	orgID, id, err := scope(c)
	if err != nil {
		return err
	}
	items, err := h.svc.ListAllergies(c.Request().Context(), orgID, id)
	if err != nil {
		return mapError(err)
	}
	return c.JSON(http.StatusOK, items)
}

func (h *Handler) AddAllergy(c echo.Context) error {
	orgID, id, err := scope(c)
	if err != nil {
		return err
	}
	var a Allergy
	if err := c.Bind(&a); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	a.PatientID = id
	if err := h.svc.AddAllergy(c.Request().Context(), orgID, &a); err != nil {
		return mapError(err)
	}
	return c.JSON(http.StatusCreated, a)
}

func (h *Handler) RemoveAllergy(c echo.Context) error {
	return h.removeItem(c, h.svc.RemoveAllergy)
}

func (h *Handler) ListConditions(c echo.Context) error {
	orgID, id, err := scope(c)
	if err != nil {
		return err
	}
	items, err := h.svc.ListConditions(c.Request().Context(), orgID, id)
	if err != nil {
		return mapError(err)
	}
	return c.JSON(http.StatusOK, items)
}

func (h *Handler) AddCondition(c echo.Context) error {
	orgID, id, err := scope(c)
	if err != nil {
		return err
	}
	var cond Condition
	if err := c.Bind(&cond); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	cond.PatientID = id
	if err := h.svc.AddCondition(c.Request().Context(), orgID, &cond); err != nil {
		return mapError(err)
	}
	return c.JSON(http.StatusCreated, cond)
}

func (h *Handler) RemoveCondition(c echo.Context) error {
	return h.removeItem(c, h.svc.RemoveCondition)
}

func (h *Handler) ListMedications(c echo.Context) error {
	orgID, id, err := scope(c)
	if err != nil {
		return err
	}
	items, err := h.svc.ListMedications(c.Request().Context(), orgID, id)
	if err != nil {
		return mapError(err)
	}
	return c.JSON(http.StatusOK, items)
}

func (h *Handler) AddMedication(c echo.Context) error {
	orgID, id, err := scope(c)
	if err != nil {
		return err
	}
	var m Medication
	if err := c.Bind(&m); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	m.PatientID = id
	if err := h.svc.AddMedication(c.Request().Context(), orgID, &m); err != nil {
		return mapError(err)
	}
	return c.JSON(http.StatusCreated, m)
}

func (h *Handler) RemoveMedication(c echo.Context) error {
	return h.removeItem(c, h.svc.RemoveMedication)
}

func (h *Handler) ListLabs(c echo.Context) error {
	orgID, id, err := scope(c)
	if err != nil {
		return err
	}
	items, err := h.svc.ListLabs(c.Request().Context(), orgID, id)
	if err != nil {
		return mapError(err)
	}
	return c.JSON(http.StatusOK, items)
}

func (h *Handler) AddLab(c echo.Context) error {
	orgID, id, err := scope(c)
	if err != nil {
		return err
	}
	var l Lab
	if err := c.Bind(&l); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	l.PatientID = id
	if err := h.svc.AddLab(c.Request().Context(), orgID, &l); err != nil {
		return mapError(err)
	}
	return c.JSON(http.StatusCreated, l)
}

func (h *Handler) RemoveLab(c echo.Context) error {
	return h.removeItem(c, h.svc.RemoveLab)
}

func (h *Handler) ListDMEs(c echo.Context) error {
	orgID, id, err := scope(c)
	if err != nil {
		return err
	}
	items, err := h.svc.ListDMEs(c.Request().Context(), orgID, id)
	if err != nil {
		return mapError(err)
	}
	return c.JSON(http.StatusOK, items)
}

func (h *Handler) AddDME(c echo.Context) error {
	orgID, id, err := scope(c)
	if err != nil {
		return err
	}
	var d DME
	if err := c.Bind(&d); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	d.PatientID = id
	if err := h.svc.AddDME(c.Request().Context(), orgID, &d); err != nil {
		return mapError(err)
	}
	return c.JSON(http.StatusCreated, d)
}

func (h *Handler) RemoveDME(c echo.Context) error {
	return h.removeItem(c, h.svc.RemoveDME)
}

func (h *Handler) removeItem(c echo.Context, remove func(ctx context.Context, orgID, patientID, id uuid.UUID) error) error {
	orgID, patientID, err := scope(c)
	if err != nil {
		return err
	}
	itemID, err := uuid.Parse(c.Param("itemID"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid item id")
	}
	if err := remove(c.Request().Context(), orgID, patientID, itemID); err != nil {
		return mapError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

// ExportCCDA streams a Continuity of Care Document for the chart.
func (h *Handler) ExportCCDA(c echo.Context) error {
	orgID, id, err := scope(c)
	if err != nil {
		return err
	}
	ctx := c.Request().Context()

	summary, err := h.svc.Summary(ctx, orgID, id)
	if err != nil {
		return mapError(err)
	}
	out, err := h.ccda.Generate(summary)
	if err != nil {
		if h.metrics != nil {
			h.metrics.DocumentFailures.WithLabelValues("ccda").Inc()
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	if h.metrics != nil {
		h.metrics.DocumentsGenerated.WithLabelValues("ccda").Inc()
	}

	filename := ccda.Filename(summary.LastName, summary.FirstName, time.Now())
	c.Response().Header().Set(echo.HeaderContentDisposition,
		fmt.Sprintf(`attachment; filename=%q`, filename))
	return c.Blob(http.StatusOK, "application/xml", out)
}

func mapError(err error) error {
	switch {
	case errors.Is(err, ErrNotFound):
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	case errors.Is(err, ErrInvalid):
		return echo.NewHTTPError(http.StatusUnprocessableEntity, err.Error())
	default:
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
}
