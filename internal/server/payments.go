package server

import (
	"bytes"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	paymentdomain "github.com/smallbiznis/revenue/internal/payment/domain"
	"github.com/smallbiznis/revenue/pkg/db/pagination"
	"github.com/smallbiznis/revenue/pkg/money"
)

// amountField accepts both "500.00" and 500.00 so the validator sees the
// exact text the client sent.
type amountField string

func (a *amountField) UnmarshalJSON(b []byte) error {
	trimmed := bytes.TrimSpace(b)
	if bytes.Equal(trimmed, []byte("null")) {
		*a = ""
		return nil
	}
	if len(trimmed) > 0 && trimmed[0] == '"' {
		var s string
		if err := json.Unmarshal(trimmed, &s); err != nil {
			return err
		}
		*a = amountField(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(trimmed, &n); err != nil {
		return err
	}
	*a = amountField(n.String())
	return nil
}

type submitPaymentRequest struct {
	AccountNumber  string      `json:"account_number"`
	AccountType    string      `json:"account_type"`
	Period         int         `json:"period"`
	PaymentMethod  string      `json:"payment_method"`
	PaymentChannel string      `json:"payment_channel"`
	Amount         amountField `json:"amount"`
	TransactionID  string      `json:"transaction_id"`
	Notes          string      `json:"notes"`
}

type submitPaymentResponse struct {
	paymentdomain.Result
	Error *errorPayload `json:"error,omitempty"`
}

func (s *Server) SubmitPayment(c *gin.Context) {
	var req submitPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	actor, _ := actorFromContext(c)
	res, err := s.paymentSvc.Submit(c.Request.Context(), paymentdomain.SubmitRequest{
		AccountNumber: req.AccountNumber,
		AccountType:   req.AccountType,
		Period:        req.Period,
		Method:        req.PaymentMethod,
		Channel:       req.PaymentChannel,
		Amount:        string(req.Amount),
		TransactionID: req.TransactionID,
		Notes:         req.Notes,
		Actor:         actor.toPaymentActor(),
	})
	if err != nil {
		// The result carries the cashier-facing reasons, so the error body is
		// written here rather than by ErrorHandlingMiddleware.
		_ = c.Error(err)
		status, payload := mapError(err)
		c.JSON(status, submitPaymentResponse{Result: res, Error: &payload})
		return
	}

	c.Set("payment_reference", res.PaymentReference)
	c.JSON(http.StatusCreated, submitPaymentResponse{Result: res})
}

type listPaymentsQuery struct {
	PageToken   string `form:"page_token"`
	PageSize    string `form:"page_size"`
	StartDate   string `form:"start_date"`
	EndDate     string `form:"end_date"`
	AccountType string `form:"account_type"`
	Method      string `form:"payment_method"`
	Status      string `form:"status"`
	Search      string `form:"search"`
}

func (s *Server) ListPayments(c *gin.Context) {
	var query listPaymentsQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	pageSize, err := parseOptionalInt(query.PageSize)
	if err != nil {
		AbortWithError(c, newValidationError("page_size", "invalid_page_size", "invalid page_size"))
		return
	}
	startDate, err := parseOptionalTime(query.StartDate, false)
	if err != nil {
		AbortWithError(c, newValidationError("start_date", "invalid_start_date", "invalid start_date"))
		return
	}
	endDate, err := parseOptionalTime(query.EndDate, true)
	if err != nil {
		AbortWithError(c, newValidationError("end_date", "invalid_end_date", "invalid end_date"))
		return
	}

	resp, err := s.paymentQuery.List(c.Request.Context(), paymentdomain.ListRequest{
		Pagination: pagination.Pagination{
			PageToken: strings.TrimSpace(query.PageToken),
			PageSize:  pageSize,
		},
		StartDate:   startDate,
		EndDate:     endDate,
		AccountType: strings.TrimSpace(query.AccountType),
		Method:      strings.TrimSpace(query.Method),
		Status:      strings.TrimSpace(query.Status),
		Search:      strings.TrimSpace(query.Search),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp.Payments, "page_info": resp.PageInfo})
}

func (s *Server) GetPayment(c *gin.Context) {
	reference := strings.TrimSpace(c.Param("reference"))
	if reference == "" {
		AbortWithError(c, paymentdomain.ErrInvalidReference)
		return
	}
	c.Set("payment_reference", reference)

	view, err := s.paymentQuery.Get(c.Request.Context(), reference)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": view})
}

type methodStatResponse struct {
	Method       string `json:"method"`
	Label        string `json:"label"`
	Count        int64  `json:"count"`
	Total        int64  `json:"total"`
	TotalDisplay string `json:"total_display"`
}

type paymentStatsResponse struct {
	Count        int64                `json:"count"`
	Total        int64                `json:"total"`
	TotalDisplay string               `json:"total_display"`
	ByMethod     []methodStatResponse `json:"by_method"`
}

func (s *Server) PaymentStats(c *gin.Context) {
	today, err := parseOptionalBool(c.Query("today"))
	if err != nil {
		AbortWithError(c, newValidationError("today", "invalid_today", "today must be true or false"))
		return
	}

	stats, err := s.paymentQuery.Stats(c.Request.Context(), paymentdomain.StatsRequest{
		TodayOnly:   today != nil && *today,
		AccountType: strings.TrimSpace(c.Query("account_type")),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	out := paymentStatsResponse{
		Count:        stats.Count,
		Total:        stats.Total,
		TotalDisplay: money.Format(stats.Total),
		ByMethod:     make([]methodStatResponse, 0, len(stats.ByMethod)),
	}
	for _, m := range stats.ByMethod {
		out.ByMethod = append(out.ByMethod, methodStatResponse{
			Method:       m.Method.String(),
			Label:        m.Method.Label(),
			Count:        m.Count,
			Total:        m.Total,
			TotalDisplay: money.Format(m.Total),
		})
	}

	c.JSON(http.StatusOK, gin.H{"data": out})
}
