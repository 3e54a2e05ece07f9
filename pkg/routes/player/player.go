package player

import (
	"net/http"
	"strconv"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectoinject"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"

	playerrepo "github.com/Ramsey-B/thistle/internal/repositories/player"
	"github.com/Ramsey-B/thistle/pkg/context"
	"github.com/Ramsey-B/thistle/pkg/graph"
	"github.com/Ramsey-B/thistle/pkg/models"
)

var validate = validator.New()

// Register registers register player routes
func Register(g *echo.Group) {
	g.GET("", ListPlayers)
	g.POST("", CreatePlayer)
	g.GET("/:id", GetPlayer)
	g.DELETE("/:id", DeletePlayer)
	g.GET("/:id/links", GetPlayerLinks)
}

// ListPlayers lists register players for the tenant
func ListPlayers(c echo.Context) error {
	ctx := c.Request().Context()
	tenantID := context.GetTenantID(ctx)

	page, _ := strconv.Atoi(c.QueryParam("page"))
	if page < 1 {
		page = 1
	}
	pageSize, _ := strconv.Atoi(c.QueryParam("page_size"))

	ctx, repo, err := ectoinject.GetContext[*playerrepo.Repository](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}

	players, total, err := repo.List(ctx, tenantID, page, pageSize)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, models.PlayerListResponse{
		Items:      players,
		TotalCount: total,
		Page:       page,
		PageSize:   pageSize,
	})
}

// CreatePlayer adds a single player to the register. Most rows arrive through
// committed screening runs; this is for manual corrections.
func CreatePlayer(c echo.Context) error {
	ctx := c.Request().Context()
	tenantID := context.GetTenantID(ctx)

	var req models.CreatePlayerRequest
	if err := c.Bind(&req); err != nil {
		return httperror.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := validate.Struct(req); err != nil {
		return httperror.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	ctx, repo, err := ectoinject.GetContext[*playerrepo.Repository](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}

	created, err := repo.Create(ctx, tenantID, models.PlayerRecord{
		PlayerID:  req.PlayerID,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Postcode:  req.Postcode,
		DOB:       req.DOB,
		Mobile:    req.Mobile,
		Email:     req.Email,
		Casino:    req.Casino,
		NetworkID: req.NetworkID,
	})
	if err != nil {
		return err
	}

	return c.JSON(http.StatusCreated, created)
}

// GetPlayer gets a register player by ID
func GetPlayer(c echo.Context) error {
	ctx := c.Request().Context()
	tenantID := context.GetTenantID(ctx)

	ctx, repo, err := ectoinject.GetContext[*playerrepo.Repository](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}

	player, err := repo.Get(ctx, tenantID, c.Param("id"))
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, player)
}

// DeletePlayer soft-deletes a register player
func DeletePlayer(c echo.Context) error {
	ctx := c.Request().Context()
	tenantID := context.GetTenantID(ctx)

	ctx, repo, err := ectoinject.GetContext[*playerrepo.Repository](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}

	if err := repo.Delete(ctx, tenantID, c.Param("id")); err != nil {
		return err
	}

	return c.NoContent(http.StatusNoContent)
}

// GetPlayerLinks returns the players linked to this one through confirmed
// matches in the identity graph
func GetPlayerLinks(c echo.Context) error {
	ctx := c.Request().Context()
	tenantID := context.GetTenantID(ctx)

	ctx, graphClient, err := ectoinject.GetContext[*graph.Client](ctx)
	if err != nil || graphClient == nil {
		return httperror.NewHTTPError(http.StatusServiceUnavailable, "identity graph is not configured")
	}

	maxDepth, _ := strconv.Atoi(c.QueryParam("depth"))

	// The path param is the source player ID, the key the graph stores
	linked, err := graphClient.LinkedIdentities(ctx, tenantID, c.Param("id"), maxDepth)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, map[string]any{
		"player_id": c.Param("id"),
		"links":     linked,
	})
}
