// Package catalog exposes read-only catalog inspection endpoints.
package catalog

import (
	"net/http"
	"strconv"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/labstack/echo/v4"

	"github.com/opencookbook/mortar/internal/repositories/ingredient"
	"github.com/opencookbook/mortar/internal/repositories/ingredientalias"
	"github.com/opencookbook/mortar/internal/repositories/metrics"
)

// Handler serves catalog inspection routes
type Handler struct {
	metricsRepo    *metrics.Repository
	ingredientRepo *ingredient.Repository
	aliasRepo      *ingredientalias.Repository
}

// NewHandler creates a new catalog handler
func NewHandler(
	metricsRepo *metrics.Repository,
	ingredientRepo *ingredient.Repository,
	aliasRepo *ingredientalias.Repository,
) *Handler {
	return &Handler{
		metricsRepo:    metricsRepo,
		ingredientRepo: ingredientRepo,
		aliasRepo:      aliasRepo,
	}
}

// Register registers catalog routes
func (h *Handler) Register(g *echo.Group) {
	g.GET("/snapshot", h.GetSnapshot)
	g.GET("/collisions", h.ListCollisions)
	g.GET("/ingredients/:id", h.GetIngredient)
	g.GET("/ingredients/:id/aliases", h.ListIngredientAliases)
}

// GetSnapshot returns aggregate catalog counters
func (h *Handler) GetSnapshot(c echo.Context) error {
	snap, err := h.metricsRepo.Snapshot(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, snap)
}

// ListCollisions returns normalized alias forms owned by more than one ingredient
func (h *Handler) ListCollisions(c echo.Context) error {
	limit := 20
	if raw := c.QueryParam("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			return httperror.NewHTTPError(http.StatusBadRequest, "limit must be a positive integer")
		}
		limit = parsed
	}

	groups, err := h.aliasRepo.ListNormConflicts(c.Request().Context(), limit)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, groups)
}

// GetIngredient returns a single ingredient by id
func (h *Handler) GetIngredient(c echo.Context) error {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return httperror.NewHTTPError(http.StatusBadRequest, "id must be an integer")
	}

	ing, err := h.ingredientRepo.Get(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, ing)
}

// ListIngredientAliases returns the alias rows of one ingredient
func (h *Handler) ListIngredientAliases(c echo.Context) error {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return httperror.NewHTTPError(http.StatusBadRequest, "id must be an integer")
	}

	aliases, err := h.aliasRepo.ListByIngredient(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, aliases)
}
