package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"finrag/features/transaction"
	"finrag/internal/retrieval"
)

func stringProp(desc string) map[string]string {
	return map[string]string{"type": "string", "description": desc}
}

var tools = []Tool{
	{
		Name: "finrag_search",
		Description: `Semantic search over one user's indexed transaction history. Use this for questions like "how much did I spend on rent" or "largest medical bills".

Results are chunks of the plain-text ledger, closest first. Run a reindex after editing transactions or results may be stale.

USAGE EXAMPLE:
finrag_search(user_id="u1", query="grocery spending in March", limit=5)`,
		InputSchema: map[string]interface{}{
			"type": "object",
			"properties": map[string]interface{}{
				"user_id": stringProp("The user whose transactions to search"),
				"query":   stringProp("Natural-language question"),
				"limit": map[string]interface{}{
					"type":        "integer",
					"description": "Max results to return (default 5).",
					"minimum":     1,
					"maximum":     retrieval.MaxLimit,
				},
			},
			"required": []string{"user_id", "query"},
		},
	},
	{
		Name: "finrag_summary",
		Description: `Exact totals from the transaction ledger. Returns count, income, expenses and balance for the filtered records. Prefer this over search when the question asks for a number.

USAGE EXAMPLE:
finrag_summary(user_id="u1", type="expense", category="food", date_from="2024-01-01", date_to="2024-01-31")`,
		InputSchema: map[string]interface{}{
			"type": "object",
			"properties": map[string]interface{}{
				"user_id":   stringProp("The user whose ledger to summarize"),
				"search":    stringProp("Case-insensitive title match"),
				"type":      stringProp("income or expense"),
				"category":  stringProp("income, food, housing, bills or health"),
				"date_from": stringProp("Inclusive start date, YYYY-MM-DD"),
				"date_to":   stringProp("Inclusive end date, YYYY-MM-DD"),
			},
			"required": []string{"user_id"},
		},
	},
}

type SearchArgs struct {
	UserID string `json:"user_id"`
	Query  string `json:"query"`
	Limit  *int   `json:"limit,omitempty"`
}

type SummaryArgs struct {
	UserID   string `json:"user_id"`
	Search   string `json:"search,omitempty"`
	Type     string `json:"type,omitempty"`
	Category string `json:"category,omitempty"`
	DateFrom string `json:"date_from,omitempty"`
	DateTo   string `json:"date_to,omitempty"`
}

func (h *Handler) callSearch(ctx context.Context, id interface{}, raw json.RawMessage) *JSONRPCResponse {
	var args SearchArgs
	if err := json.Unmarshal(raw, &args); err != nil {
		slog.WarnContext(ctx, "invalid search arguments", "error", err)
		return makeErrorResponse(id, ErrInvalidParams, "Invalid search arguments")
	}
	if args.UserID == "" {
		return makeErrorResponse(id, ErrInvalidParams, "user_id is required")
	}
	if strings.TrimSpace(args.Query) == "" {
		return makeErrorResponse(id, ErrInvalidParams, "Query is required")
	}
	limit := 0
	if args.Limit != nil {
		limit = *args.Limit
	}

	results, err := h.searcher.Search(ctx, args.UserID, args.Query, limit)
	if err != nil {
		slog.ErrorContext(ctx, "search failed", "error", err)
		return toolError(id, "Search failed")
	}

	if len(results) == 0 {
		return textResult(id, "No results found. The user may need a reindex.")
	}
	var b strings.Builder
	for i, res := range results {
		fmt.Fprintf(&b, "Result %d (Distance: %.3f, Chunk: %s):\n%s\n\n---\n", i+1, res.Distance, res.ChunkKey, res.Content)
	}
	slog.InfoContext(ctx, "tool execution completed", "tool", "finrag_search", "result_count", len(results))
	return textResult(id, b.String())
}

func (h *Handler) callSummary(ctx context.Context, id interface{}, raw json.RawMessage) *JSONRPCResponse {
	var args SummaryArgs
	if err := json.Unmarshal(raw, &args); err != nil {
		slog.WarnContext(ctx, "invalid summary arguments", "error", err)
		return makeErrorResponse(id, ErrInvalidParams, "Invalid summary arguments")
	}
	if args.UserID == "" {
		return makeErrorResponse(id, ErrInvalidParams, "user_id is required")
	}

	f := transaction.Filter{Search: args.Search, Type: args.Type, Category: args.Category}
	if args.DateFrom != "" {
		d, err := transaction.ParseDate(args.DateFrom)
		if err != nil {
			return makeErrorResponse(id, ErrInvalidParams, err.Error())
		}
		f.DateFrom = &d
	}
	if args.DateTo != "" {
		d, err := transaction.ParseDate(args.DateTo)
		if err != nil {
			return makeErrorResponse(id, ErrInvalidParams, err.Error())
		}
		f.DateTo = &d
	}

	sum, err := h.ledger.List(ctx, args.UserID, f)
	if err != nil {
		slog.ErrorContext(ctx, "summary failed", "error", err)
		return toolError(id, "Summary failed")
	}

	out := struct {
		Count    int    `json:"count"`
		Income   string `json:"income"`
		Expenses string `json:"expenses"`
		Balance  string `json:"balance"`
	}{sum.Count, sum.Income.StringFixed(2), sum.Expenses.StringFixed(2), sum.Balance.StringFixed(2)}
	jsonBytes, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return toolError(id, "Error marshalling results")
	}
	slog.InfoContext(ctx, "tool execution completed", "tool", "finrag_summary", "count", sum.Count)
	return textResult(id, string(jsonBytes))
}
