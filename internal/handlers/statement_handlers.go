package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"

	"github.com/adityap2202/portfolios/internal/models"
	"github.com/adityap2202/portfolios/internal/services"
	"github.com/adityap2202/portfolios/internal/statement"
)

// StatementHandler handles demat statement uploads
type StatementHandler struct {
	portfolioSvc *services.PortfolioService
}

// NewStatementHandler creates a new StatementHandler
func NewStatementHandler(portfolioSvc *services.PortfolioService) *StatementHandler {
	return &StatementHandler{
		portfolioSvc: portfolioSvc,
	}
}

// Upload handles POST /statements. It accepts one or more statement files
// under the "files" multipart field. A file that fails to parse is reported
// in the response but does not fail the upload of the others.
func (h *StatementHandler) Upload(c *gin.Context) {
	form, err := c.MultipartForm()
	if err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Error:   "bad_request",
			Message: "expected multipart form upload",
		})
		return
	}

	files := form.File["files"]
	if len(files) == 0 {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Error:   "bad_request",
			Message: "no files in upload; use the 'files' field",
		})
		return
	}

	resp := models.UploadResponse{}
	for _, fh := range files {
		outcome := models.UploadedStatement{Filename: fh.Filename}

		f, err := fh.Open()
		if err != nil {
			outcome.Error = err.Error()
			resp.Statements = append(resp.Statements, outcome)
			continue
		}

		stmt, err := statement.Parse(f, fh.Filename)
		f.Close()
		if err != nil {
			log.Warnf("failed to parse statement %s: %v", fh.Filename, err)
			outcome.Error = err.Error()
			resp.Statements = append(resp.Statements, outcome)
			continue
		}

		info := statement.ExtractAccountInfo(fh.Filename, stmt.Cells)
		account := h.portfolioSvc.AddAccount(info, stmt.Holdings)

		outcome.Account = account.ID
		outcome.Holdings = len(account.Holdings)
		resp.Statements = append(resp.Statements, outcome)
		resp.Accounts = append(resp.Accounts, *account)
	}

	if len(resp.Accounts) == 0 {
		c.JSON(http.StatusUnprocessableEntity, resp)
		return
	}
	c.JSON(http.StatusCreated, resp)
}
