package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/pocketbudget/backend/internal/models"
	"github.com/pocketbudget/backend/internal/types"
	"github.com/shopspring/decimal"
)

// ParseKind tags the outcome of parsing a chat message.
type ParseKind string

const (
	ParseReject  ParseKind = "reject"  // Message is not a transaction
	ParseClarify ParseKind = "clarify" // Transaction-like but incomplete
	ParseSingle  ParseKind = "single"  // One complete transaction
	ParseList    ParseKind = "list"    // Multiple complete transactions
)

// ParseResult is the validated outcome of the parse adapter.
type ParseResult struct {
	Kind              ParseKind
	Reason            string              // Set for reject
	Question          string              // Set for clarify
	MissingFields     []models.DraftField // Set for clarify
	SuggestedCategory string              // Optionally set for clarify
	Draft             models.Draft        // Set for clarify
	Transactions      []models.Draft      // Set for single (length 1) and list
}

// rawTransaction is the loosely-typed transaction shape the model
// returns. All fields are optional, amounts may arrive as strings.
type rawTransaction struct {
	Merchant *string      `json:"merchant"`
	Amount   *json.Number `json:"amount"`
	Category *string      `json:"category"`
	Date     *string      `json:"date"`
}

// draft converts the raw shape into a Draft, dropping unusable values.
func (r rawTransaction) draft() models.Draft {
	var draft models.Draft

	if r.Merchant != nil {
		draft.Merchant = strings.TrimSpace(*r.Merchant)
	}
	if r.Category != nil {
		draft.Category = strings.TrimSpace(*r.Category)
	}
	if r.Date != nil {
		draft.Date = strings.TrimSpace(*r.Date)
	}
	if r.Amount != nil {
		amount, err := decimal.NewFromString(r.Amount.String())
		if err == nil {
			draft.Amount = amount
		}
	}

	return draft
}

type rawParseResponse struct {
	Intent            string           `json:"intent"`
	Reason            string           `json:"reason"`
	Question          string           `json:"question"`
	SuggestedCategory string           `json:"suggested_category"`
	MissingFields     []string         `json:"missing_fields"`
	Transaction       *rawTransaction  `json:"transaction"`
	Transactions      []rawTransaction `json:"transactions"`
}

func (r rawParseResponse) missingFields() []models.DraftField {
	var fields []models.DraftField
	for _, f := range r.MissingFields {
		switch models.DraftField(f) {
		case models.FieldMerchant, models.FieldAmount, models.FieldCategory, models.FieldDate:
			fields = append(fields, models.DraftField(f))
		}
	}

	if len(fields) == 0 {
		fields = []models.DraftField{models.FieldMerchant}
	}
	return fields
}

func (r rawParseResponse) firstDraft() models.Draft {
	if r.Transaction != nil {
		return r.Transaction.draft()
	}
	if len(r.Transactions) > 0 {
		return r.Transactions[0].draft()
	}
	return models.Draft{}
}

const parsePromptFormat = `Decide if the following message is not a transaction, a partial transaction that needs clarification, a single transaction, or a list of transactions.
Message: %q
Current date is %s.

Categories available: %s

Return JSON only:
{
  "intent": "not_transaction" | "clarify" | "single" | "list",
  "reason": "required when intent is not_transaction",
  "question": "required when intent is clarify",
  "suggested_category": "optional category suggestion when category is missing",
  "missing_fields": ["merchant" | "amount" | "category" | "date"],
  "transaction": {"merchant": "string", "amount": number, "category": "string", "date": "YYYY-MM-DD"},
  "transactions": [{"merchant": "string", "amount": number, "category": "string", "date": "YYYY-MM-DD"}]
}

Rules:
- Use "clarify" when the message is transaction-like but missing required details (example: missing merchant).
- Use "single" for one complete transaction.
- Use "list" for multiple complete transactions.
- Never output empty strings for merchant/category/date.
- If category is missing, include your best guess in "suggested_category".`

// ParseTransactions classifies a free-text chat message into a typed
// parse result. An unusable model reply becomes a reject with a retry
// hint, never an error, so only transport failures and ErrTimeout
// propagate.
func (c *Client) ParseTransactions(ctx context.Context, text string, categories []string, referenceDate types.Day) (ParseResult, error) {
	prompt := fmt.Sprintf(parsePromptFormat, text, referenceDate, strings.Join(categories, ", "))

	content, err := c.complete(ctx, parseTimeout, prompt)
	if err != nil {
		return ParseResult{}, err
	}

	var raw rawParseResponse
	err = json.Unmarshal([]byte(content), &raw)
	if err != nil {
		return ParseResult{
			Kind:   ParseReject,
			Reason: `I couldn't parse a clear transaction. Please send something like "Spent 10 at Subway".`,
		}, nil
	}

	switch raw.Intent {
	case "not_transaction":
		reason := raw.Reason
		if reason == "" {
			reason = `This does not look like a transaction. Please send something like "Spent 12.50 on lunch".`
		}
		return ParseResult{Kind: ParseReject, Reason: reason}, nil

	case "clarify":
		question := raw.Question
		if question == "" {
			question = "I can log that. Could you share the merchant name?"
		}
		return ParseResult{
			Kind:              ParseClarify,
			Question:          question,
			MissingFields:     raw.missingFields(),
			SuggestedCategory: strings.TrimSpace(raw.SuggestedCategory),
			Draft:             raw.firstDraft(),
		}, nil

	case "single":
		draft := raw.firstDraft()
		if draft.Complete() {
			return ParseResult{Kind: ParseSingle, Transactions: []models.Draft{draft}}, nil
		}

		return ParseResult{
			Kind:              ParseClarify,
			Question:          "I can log that. Could you share the missing transaction details?",
			MissingFields:     raw.missingFields(),
			SuggestedCategory: strings.TrimSpace(raw.SuggestedCategory),
			Draft:             draft,
		}, nil

	case "list":
		var complete []models.Draft
		for _, transaction := range raw.Transactions {
			draft := transaction.draft()
			if draft.Complete() {
				complete = append(complete, draft)
			}
		}

		if len(complete) == 1 {
			return ParseResult{Kind: ParseSingle, Transactions: complete}, nil
		}
		if len(complete) > 1 {
			return ParseResult{Kind: ParseList, Transactions: complete}, nil
		}

		return ParseResult{
			Kind:              ParseClarify,
			Question:          "I found possible transactions but need more detail. Can you clarify the merchant names?",
			MissingFields:     raw.missingFields(),
			SuggestedCategory: strings.TrimSpace(raw.SuggestedCategory),
			Draft:             raw.firstDraft(),
		}, nil
	}

	return ParseResult{
		Kind:   ParseReject,
		Reason: `I couldn't parse a clear transaction. Please send something like "Spent 10 at Subway".`,
	}, nil
}
