package handlers

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/suPer8Hu/fin-advisor/internal/common"
	"github.com/suPer8Hu/fin-advisor/internal/finance"
)

const (
	dateLayout     = "2006-01-02"
	maxImportBatch = 1000
)

type transactionIn struct {
	Kind        finance.Kind `json:"kind"`
	Amount      float64      `json:"amount"`
	Date        string       `json:"date"` // YYYY-MM-DD
	Category    string       `json:"category"`
	Description string       `json:"description"`
}

type importTransactionsReq struct {
	Transactions []transactionIn `json:"transactions" binding:"required"`
}

func (in transactionIn) toModel(userID uint64) (finance.Transaction, error) {
	if in.Kind != finance.KindIncome && in.Kind != finance.KindExpense {
		return finance.Transaction{}, fmt.Errorf("kind must be income or expense")
	}
	if in.Amount <= 0 {
		return finance.Transaction{}, fmt.Errorf("amount must be positive")
	}
	d, err := time.Parse(dateLayout, in.Date)
	if err != nil {
		return finance.Transaction{}, fmt.Errorf("date must be YYYY-MM-DD")
	}
	return finance.Transaction{
		UserID:      userID,
		Kind:        in.Kind,
		Amount:      in.Amount,
		Date:        d,
		Category:    strings.TrimSpace(in.Category),
		Description: strings.TrimSpace(in.Description),
	}, nil
}

// ImportTransactions stores a batch of income and expense records. The batch
// is rejected as a whole when any row is invalid.
func (h *Handler) ImportTransactions(c *gin.Context) {
	uid, ok := mustUser(c)
	if !ok {
		return
	}
	var req importTransactionsReq
	if err := c.ShouldBindJSON(&req); err != nil {
		common.Fail(c, http.StatusBadRequest, 10001, "invalid json")
		return
	}
	if len(req.Transactions) == 0 || len(req.Transactions) > maxImportBatch {
		common.Fail(c, http.StatusBadRequest, 10005, fmt.Sprintf("between 1 and %d transactions required", maxImportBatch))
		return
	}

	txs := make([]finance.Transaction, 0, len(req.Transactions))
	for i, in := range req.Transactions {
		tx, err := in.toModel(uid)
		if err != nil {
			common.Fail(c, http.StatusBadRequest, 10006, fmt.Sprintf("transactions[%d]: %v", i, err))
			return
		}
		txs = append(txs, tx)
	}
	if err := h.Finance.CreateTransactions(c.Request.Context(), txs); err != nil {
		h.failErr(c, "import_transactions", err, "")
		return
	}
	common.OK(c, gin.H{"imported": len(txs)})
}

type createGoalReq struct {
	Title               string  `json:"title" binding:"required"`
	GoalType            string  `json:"goal_type"`
	TargetAmount        float64 `json:"target_amount" binding:"required"`
	CurrentAmount       float64 `json:"current_amount"`
	Deadline            string  `json:"deadline" binding:"required"`
	MonthlyContribution float64 `json:"monthly_contribution"`
	Priority            int     `json:"priority"`
}

func (h *Handler) CreateGoal(c *gin.Context) {
	uid, ok := mustUser(c)
	if !ok {
		return
	}
	var req createGoalReq
	if err := c.ShouldBindJSON(&req); err != nil {
		common.Fail(c, http.StatusBadRequest, 10001, "invalid json")
		return
	}
	deadline, err := time.Parse(dateLayout, req.Deadline)
	if err != nil || req.TargetAmount <= 0 {
		common.Fail(c, http.StatusBadRequest, 10007, "positive target_amount and YYYY-MM-DD deadline required")
		return
	}
	if req.GoalType == "" {
		req.GoalType = "savings"
	}
	if req.Priority <= 0 {
		req.Priority = 5
	}

	g := &finance.Goal{
		UserID:              uid,
		Title:               strings.TrimSpace(req.Title),
		GoalType:            req.GoalType,
		TargetAmount:        req.TargetAmount,
		CurrentAmount:       req.CurrentAmount,
		Deadline:            deadline,
		Status:              finance.GoalActive,
		MonthlyContribution: req.MonthlyContribution,
		Priority:            req.Priority,
	}
	if err := h.Finance.CreateGoal(c.Request.Context(), g); err != nil {
		h.failErr(c, "create_goal", err, "")
		return
	}
	common.OK(c, g)
}

// GetAggregates returns the precomputed financial memory the advisor reads.
func (h *Handler) GetAggregates(c *gin.Context) {
	uid, ok := mustUser(c)
	if !ok {
		return
	}
	agg, err := h.Memory.Aggregates(c.Request.Context(), uid)
	if err != nil {
		h.failErr(c, "aggregates", err, "")
		return
	}
	common.OK(c, agg)
}
