package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/adityap2202/portfolios/internal/models"
	"github.com/adityap2202/portfolios/internal/quotes"
	"github.com/adityap2202/portfolios/internal/services"
)

// PortfolioHandler handles the dashboard views and price refreshes
type PortfolioHandler struct {
	portfolioSvc *services.PortfolioService
	pricingSvc   *services.PricingService
}

// NewPortfolioHandler creates a new PortfolioHandler
func NewPortfolioHandler(portfolioSvc *services.PortfolioService, pricingSvc *services.PricingService) *PortfolioHandler {
	return &PortfolioHandler{
		portfolioSvc: portfolioSvc,
		pricingSvc:   pricingSvc,
	}
}

// ListAccounts handles GET /accounts
func (h *PortfolioHandler) ListAccounts(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"accounts": h.portfolioSvc.ListAccounts()})
}

// GetAccount handles GET /accounts/:id. The id "consolidated" returns the
// merged view across all accounts.
func (h *PortfolioHandler) GetAccount(c *gin.Context) {
	account, err := h.portfolioSvc.GetAccount(c.Param("id"))
	if err != nil {
		if errors.Is(err, services.ErrAccountNotFound) {
			c.JSON(http.StatusNotFound, models.ErrorResponse{
				Error:   "not_found",
				Message: "account not found",
			})
			return
		}
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{
			Error:   "internal_error",
			Message: err.Error(),
		})
		return
	}

	view := h.portfolioSvc.BuildView(account, h.pricingSvc.PriceFor)
	c.JSON(http.StatusOK, view)
}

// GetConsolidated handles GET /portfolio/consolidated
func (h *PortfolioHandler) GetConsolidated(c *gin.Context) {
	view := h.portfolioSvc.BuildView(h.portfolioSvc.Consolidated(), h.pricingSvc.PriceFor)
	c.JSON(http.StatusOK, view)
}

// RefreshPrices handles POST /portfolio/refresh-prices. It resolves live
// quotes for every distinct ISIN across the loaded accounts and returns
// the per-ISIN outcomes. Unresolved ISINs are reported, not errors; views
// fall back to the statement rate for them.
func (h *PortfolioHandler) RefreshPrices(c *gin.Context) {
	isins := h.portfolioSvc.DistinctISINs()
	if len(isins) == 0 {
		c.JSON(http.StatusOK, models.RefreshResponse{Results: map[string]quotes.Result{}})
		return
	}

	results, err := h.pricingSvc.RefreshAll(c.Request.Context(), isins)
	if err != nil {
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{
			Error:   "internal_error",
			Message: err.Error(),
		})
		return
	}

	resolved := 0
	for _, res := range results {
		if res.Resolved {
			resolved++
		}
	}
	c.JSON(http.StatusOK, models.RefreshResponse{
		Requested: len(isins),
		Resolved:  resolved,
		Results:   results,
	})
}

// RefreshStatus handles GET /portfolio/refresh-prices/status
func (h *PortfolioHandler) RefreshStatus(c *gin.Context) {
	c.JSON(http.StatusOK, h.pricingSvc.Status())
}
