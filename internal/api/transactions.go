package api

import (
	"bytes"
	"fmt"
	"net/http"
	"strings"
	"time"

	"balmar-shop/internal/rules"
	"balmar-shop/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/tealeg/xlsx"
)

type actionRequest struct {
	Action       string `json:"action" binding:"required"`
	TrackingCode string `json:"tracking_code"`
	Reason       string `json:"reason"`
}

func parseAction(s string) (rules.Action, bool) {
	action := rules.Action(strings.ToUpper(strings.TrimSpace(s)))
	switch action {
	case rules.ActionPayDeposit, rules.ActionPay, rules.ActionShip, rules.ActionDeliver,
		rules.ActionValidate, rules.ActionDispute, rules.ActionCancel:
		return action, true
	}
	return "", false
}

// quote prices a checkout without reserving the product
func (h *Handler) quote(c *gin.Context) {
	var req service.QuoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request body", err)
		return
	}
	req.BuyerID = currentUser(c)

	quote, err := h.transactions.QuoteFees(c.Request.Context(), &req)
	if err != nil {
		h.renderError(c, "Failed to quote transaction", err)
		return
	}
	c.JSON(http.StatusOK, quote)
}

// createTransaction handles checkout. A replayed Idempotency-Key answers 200 with the first transaction.
func (h *Handler) createTransaction(c *gin.Context) {
	var req service.CreateTransactionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request body", err)
		return
	}
	req.BuyerID = currentUser(c)

	if req.IdempotencyKey == "" {
		req.IdempotencyKey = c.GetHeader("Idempotency-Key")
	}

	txn, replayed, err := h.transactions.CreateTransaction(c.Request.Context(), &req)
	if err != nil {
		h.renderError(c, "Failed to create transaction", err)
		return
	}

	if replayed {
		c.JSON(http.StatusOK, txn)
		return
	}
	c.JSON(http.StatusCreated, txn)
}

func (h *Handler) getTransaction(c *gin.Context) {
	txn, err := h.transactions.GetTransaction(c.Request.Context(), c.Param("id"), currentUser(c))
	if err != nil {
		h.renderError(c, "Transaction not found", err)
		return
	}
	c.JSON(http.StatusOK, txn)
}

func (h *Handler) listTransactions(c *gin.Context) {
	txns, err := h.transactions.ListUserTransactions(c.Request.Context(), currentUser(c))
	if err != nil {
		h.renderError(c, "Failed to list transactions", err)
		return
	}
	c.JSON(http.StatusOK, txns)
}

func (h *Handler) applyAction(c *gin.Context) {
	var req actionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request body", err)
		return
	}

	action, ok := parseAction(req.Action)
	if !ok {
		badRequest(c, "Unknown action", fmt.Errorf("action %q is not supported", req.Action))
		return
	}

	txn, err := h.transactions.ApplyAction(c.Request.Context(), c.Param("id"), currentUser(c), action, service.ActionDetails{
		TrackingCode: req.TrackingCode,
		Reason:       req.Reason,
	})
	if err != nil {
		h.renderError(c, "Failed to apply action", err)
		return
	}
	c.JSON(http.StatusOK, txn)
}

func (h *Handler) cancelTransaction(c *gin.Context) {
	txn, err := h.transactions.Cancel(c.Request.Context(), c.Param("id"), currentUser(c))
	if err != nil {
		h.renderError(c, "Failed to cancel transaction", err)
		return
	}
	c.JSON(http.StatusOK, txn)
}

func (h *Handler) completeTransaction(c *gin.Context) {
	txn, err := h.transactions.Complete(c.Request.Context(), c.Param("id"), currentUser(c))
	if err != nil {
		h.renderError(c, "Failed to complete transaction", err)
		return
	}
	c.JSON(http.StatusOK, txn)
}

var exportHeaders = []string{
	"ID", "ProductID", "BuyerID", "SellerID", "Status", "PaymentMethod",
	"ProductPrice", "ShippingFee", "ServiceFee", "DepositRequired", "Total",
	"TrackingCode", "CreatedAt", "UpdatedAt",
}

// exportTransactions streams every transaction as an xlsx workbook
func (h *Handler) exportTransactions(c *gin.Context) {
	txns, err := h.transactions.ExportTransactions(c.Request.Context())
	if err != nil {
		h.renderError(c, "Failed to fetch transactions", err)
		return
	}

	file := xlsx.NewFile()
	sheet, err := file.AddSheet("Transactions")
	if err != nil {
		h.renderError(c, "Failed to create Excel sheet", err)
		return
	}

	headerRow := sheet.AddRow()
	for _, col := range exportHeaders {
		headerRow.AddCell().SetValue(col)
	}

	for _, t := range txns {
		row := sheet.AddRow()
		row.AddCell().SetValue(t.ID)
		row.AddCell().SetValue(t.ProductID)
		row.AddCell().SetValue(t.BuyerID)
		row.AddCell().SetValue(t.SellerID)
		row.AddCell().SetValue(string(t.Status))
		row.AddCell().SetValue(string(t.PaymentMethod))
		row.AddCell().SetValue(t.Amounts.ProductPrice)
		row.AddCell().SetValue(t.Amounts.ShippingFee)
		row.AddCell().SetValue(t.Amounts.ServiceFee)
		row.AddCell().SetValue(t.Amounts.DepositRequired)
		row.AddCell().SetValue(t.Amounts.Total)
		row.AddCell().SetValue(t.TrackingCode)
		row.AddCell().SetValue(t.CreatedAt.Format("2006-01-02 15:04:05"))
		row.AddCell().SetValue(t.UpdatedAt.Format("2006-01-02 15:04:05"))
	}

	var buf bytes.Buffer
	if err := file.Write(&buf); err != nil {
		h.renderError(c, "Failed to write Excel file", err)
		return
	}

	filename := fmt.Sprintf("transactions-%s.xlsx", time.Now().Format("20060102"))
	c.Header("Content-Disposition", "attachment; filename="+filename)
	c.Data(http.StatusOK, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", buf.Bytes())
}
