package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/pocketbudget/backend/internal/models"
	"github.com/pocketbudget/backend/internal/types"
)

// EditKind tags the outcome of applying an edit instruction.
type EditKind string

const (
	EditUpdated   EditKind = "updated"
	EditUnchanged EditKind = "unchanged"
	EditInvalid   EditKind = "invalid"
)

// EditResult is the validated outcome of the edit adapter. Updated
// results always carry the entire transaction list, even for a
// single-field change.
type EditResult struct {
	Kind         EditKind
	Reason       string         // Set for unchanged and invalid
	Transactions []models.Draft // Set for updated, all complete
}

type rawEditResponse struct {
	Intent       string           `json:"intent"`
	Reason       string           `json:"reason"`
	Transactions []rawTransaction `json:"transactions"`
}

const editPromptFormat = `You are editing a draft list of transactions.
Current date is %s.
Allowed categories: %s

Current transactions JSON:
%s

User edit instruction:
%q

Return JSON only:
{
  "intent": "updated" | "unchanged" | "invalid",
  "reason": "short reason if unchanged/invalid",
  "transactions": [{"merchant": "string", "amount": number, "category": "string", "date": "YYYY-MM-DD"}]
}

Rules:
- If the instruction clearly updates one or more fields, return "updated" with the full updated transaction list.
- For "all dates are wrong, should be 2026-02-07", apply to every transaction date.
- Keep unchanged transactions as-is.
- If instruction is ambiguous, return "unchanged" or "invalid" with reason.
- Never return empty fields.`

// ApplyEdits interprets a free-text instruction against the current
// complete drafts. Replies that fail schema validation become an
// invalid result, only transport failures and ErrTimeout propagate.
func (c *Client) ApplyEdits(ctx context.Context, instruction string, drafts []models.Draft, categories []string, referenceDate types.Day) (EditResult, error) {
	current, err := json.Marshal(drafts)
	if err != nil {
		return EditResult{}, err
	}

	prompt := fmt.Sprintf(editPromptFormat, referenceDate, strings.Join(categories, ", "), current, instruction)

	content, err := c.complete(ctx, editTimeout, prompt)
	if err != nil {
		return EditResult{}, err
	}

	invalid := EditResult{
		Kind:   EditInvalid,
		Reason: `I could not parse that edit request. Try: 'set all dates to 2026-02-07'.`,
	}

	var raw rawEditResponse
	err = json.Unmarshal([]byte(content), &raw)
	if err != nil {
		return invalid, nil
	}

	switch raw.Intent {
	case "updated":
		transactions := make([]models.Draft, 0, len(raw.Transactions))
		for _, transaction := range raw.Transactions {
			draft := transaction.draft()
			if !draft.Complete() {
				// Partial patches are not acceptable, the adapter
				// contract requires the full valid list
				return invalid, nil
			}
			transactions = append(transactions, draft)
		}

		if len(transactions) == 0 {
			return invalid, nil
		}

		return EditResult{Kind: EditUpdated, Transactions: transactions}, nil

	case "unchanged":
		reason := raw.Reason
		if reason == "" {
			reason = "I understood your message but could not find a clear change to apply."
		}
		return EditResult{Kind: EditUnchanged, Reason: reason}, nil
	}

	reason := raw.Reason
	if reason == "" {
		reason = "I could not apply that edit. Please be more specific."
	}
	return EditResult{Kind: EditInvalid, Reason: reason}, nil
}
