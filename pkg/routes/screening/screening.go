package screening

import (
	"net/http"
	"strconv"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectoinject"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"

	"github.com/Ramsey-B/thistle/pkg/context"
	"github.com/Ramsey-B/thistle/pkg/ingest"
	"github.com/Ramsey-B/thistle/pkg/matching"
	"github.com/Ramsey-B/thistle/pkg/models"
)

var validate = validator.New()

// Register registers screening routes
func Register(g *echo.Group) {
	g.POST("", CreateScreening)
	g.GET("", ListScreenings)
	g.GET("/:id", GetScreening)
	g.GET("/:id/matches", ListMatches)
	g.POST("/:id/commit", CommitScreening)
	g.POST("/:id/matches/:matchID/confirm", ConfirmMatch)
	g.POST("/:id/matches/:matchID/dismiss", DismissMatch)
}

// CreateScreening starts a screening run. The batch arrives either as a
// multipart CSV upload under the "file" field or as an inline JSON body.
func CreateScreening(c echo.Context) error {
	ctx := c.Request().Context()
	tenantID := context.GetTenantID(ctx)

	ctx, svc, err := ectoinject.GetContext[*matching.Service](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}

	var result *ingest.Result
	sourceName := ""

	if file, err := c.FormFile("file"); err == nil {
		src, err := file.Open()
		if err != nil {
			return httperror.NewHTTPError(http.StatusBadRequest, "failed to open uploaded file")
		}
		defer src.Close()

		result, err = ingest.ParseCSV(src)
		if err != nil {
			return err
		}
		sourceName = file.Filename
	} else {
		var req models.CreateScreeningRequest
		if err := c.Bind(&req); err != nil {
			return httperror.NewHTTPError(http.StatusBadRequest, "invalid request body")
		}
		if err := validate.Struct(req); err != nil {
			return httperror.NewHTTPError(http.StatusBadRequest, err.Error())
		}
		result = ingest.ValidateRecords(req.Records)
		sourceName = req.SourceName
	}

	run, err := svc.StartScreening(ctx, tenantID, sourceName, result.Records, result.Rejected)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusCreated, models.ScreeningRunResponse{
		Run:      *run,
		Rejected: result.Rejected,
	})
}

// ListScreenings lists a tenant's screening runs, newest first
func ListScreenings(c echo.Context) error {
	ctx := c.Request().Context()
	tenantID := context.GetTenantID(ctx)

	page, pageSize := pagination(c)

	ctx, svc, err := ectoinject.GetContext[*matching.Service](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}

	runs, total, err := svc.ListRuns(ctx, tenantID, page, pageSize)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, models.ScreeningRunListResponse{
		Items:      runs,
		TotalCount: total,
		Page:       page,
		PageSize:   pageSize,
	})
}

// GetScreening gets a screening run by ID
func GetScreening(c echo.Context) error {
	ctx := c.Request().Context()
	tenantID := context.GetTenantID(ctx)

	ctx, svc, err := ectoinject.GetContext[*matching.Service](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}

	run, err := svc.GetRun(ctx, tenantID, c.Param("id"))
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, models.ScreeningRunResponse{
		Run:      *run,
		Rejected: run.Rejected,
	})
}

// ListMatches lists a run's flagged pairs in report order
func ListMatches(c echo.Context) error {
	ctx := c.Request().Context()
	tenantID := context.GetTenantID(ctx)

	page, pageSize := pagination(c)

	ctx, svc, err := ectoinject.GetContext[*matching.Service](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}

	matches, total, err := svc.ListMatches(ctx, tenantID, c.Param("id"), page, pageSize)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, models.ScreeningMatchListResponse{
		Items:      matches,
		TotalCount: total,
		Page:       page,
		PageSize:   pageSize,
	})
}

// CommitScreening appends a completed run's records to the register
func CommitScreening(c echo.Context) error {
	ctx := c.Request().Context()
	tenantID := context.GetTenantID(ctx)

	ctx, svc, err := ectoinject.GetContext[*matching.Service](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}

	resp, err := svc.Commit(ctx, tenantID, c.Param("id"))
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, resp)
}

// ConfirmMatch records an operator confirmation of a flagged pair
func ConfirmMatch(c echo.Context) error {
	return resolveMatch(c, models.ScreeningMatchStatusConfirmed)
}

// DismissMatch records an operator dismissal of a flagged pair
func DismissMatch(c echo.Context) error {
	return resolveMatch(c, models.ScreeningMatchStatusDismissed)
}

func resolveMatch(c echo.Context, status string) error {
	ctx := c.Request().Context()
	tenantID := context.GetTenantID(ctx)

	var req models.ResolveMatchRequest
	if err := c.Bind(&req); err != nil {
		return httperror.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := validate.Struct(req); err != nil {
		return httperror.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	ctx, svc, err := ectoinject.GetContext[*matching.Service](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}

	matchID := c.Param("matchID")

	var match *models.ScreeningMatch
	if status == models.ScreeningMatchStatusConfirmed {
		match, err = svc.ConfirmMatch(ctx, tenantID, matchID, req.ResolvedBy)
	} else {
		match, err = svc.DismissMatch(ctx, tenantID, matchID, req.ResolvedBy)
	}
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, match)
}

func pagination(c echo.Context) (int, int) {
	page, _ := strconv.Atoi(c.QueryParam("page"))
	if page < 1 {
		page = 1
	}
	pageSize, _ := strconv.Atoi(c.QueryParam("page_size"))
	if pageSize < 1 {
		pageSize = 100
	}
	return page, pageSize
}
