package telegram

import (
	"fmt"
	"strings"

	"github.com/pocketbudget/backend/internal/models"
)

// summary renders the confirmation message for one or more complete
// drafts. The caller attaches the log/cancel keyboard.
func summary(drafts []models.Draft) string {
	var b strings.Builder

	if len(drafts) == 1 {
		b.WriteString("📝 Here's what I got:\n\n")
	} else {
		fmt.Fprintf(&b, "📝 Here's what I got (%d transactions):\n\n", len(drafts))
	}

	total := models.Draft{}.Amount
	for _, draft := range drafts {
		fmt.Fprintf(&b, "• <b>%s</b> — %s\n  %s · %s\n",
			draft.Merchant, draft.Amount.StringFixed(2), draft.Category, draft.Date)
		total = total.Add(draft.Amount)
	}

	if len(drafts) > 1 {
		fmt.Fprintf(&b, "\nTotal: <b>%s</b>\n", total.StringFixed(2))
	}

	b.WriteString("\nLog it, or reply with changes like 'make it 12.50'.")

	return b.String()
}

// loggedConfirmation renders the message sent after drafts are saved.
func loggedConfirmation(drafts []models.Draft) string {
	if len(drafts) == 1 {
		return fmt.Sprintf("✅ Logged <b>%s</b> at %s (%s).",
			drafts[0].Amount.StringFixed(2), drafts[0].Merchant, drafts[0].Category)
	}

	total := models.Draft{}.Amount
	for _, draft := range drafts {
		total = total.Add(draft.Amount)
	}

	return fmt.Sprintf("✅ Logged %d transactions totalling <b>%s</b>.", len(drafts), total.StringFixed(2))
}
