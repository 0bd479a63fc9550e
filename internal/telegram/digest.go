package telegram

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/pocketbudget/backend/internal/models"
	"github.com/pocketbudget/backend/internal/types"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// digestDays is the window the weekly digest summarizes, today included.
const digestDays = 7

// digestTopEntries caps the category and merchant rankings.
const digestTopEntries = 3

// SendWeeklyDigest sends a spending summary of the last seven days to
// every linked chat. It returns the number of digests sent. Chats with
// no transactions in the window get no message.
func (h *Handler) SendWeeklyDigest(ctx context.Context, today types.Day) (int, error) {
	var profiles []models.Profile
	if err := h.db.Where("telegram_chat_id IS NOT NULL").Find(&profiles).Error; err != nil {
		return 0, err
	}
	if len(profiles) == 0 {
		return 0, nil
	}

	from := today.AddDate(0, 0, -(digestDays - 1))

	var transactions []models.Transaction
	err := h.db.
		Where("date >= ? AND date <= ?", from, today).
		Find(&transactions).Error
	if err != nil {
		return 0, err
	}

	message := buildWeeklyDigest(transactions, categoryNamesByID(h.db))
	if message == "" {
		return 0, nil
	}

	sent := 0
	for _, profile := range profiles {
		h.send(ctx, *profile.TelegramChatID, message, nil)
		sent++
	}

	return sent, nil
}

// buildWeeklyDigest renders the digest: transaction count, total spend
// and the top categories and merchants by amount. Empty input renders
// an empty string so no digest is sent.
func buildWeeklyDigest(transactions []models.Transaction, categoryNames map[uuid.UUID]string) string {
	if len(transactions) == 0 {
		return ""
	}

	total := decimal.Zero
	byCategory := make(map[string]decimal.Decimal)
	byMerchant := make(map[string]decimal.Decimal)

	for _, transaction := range transactions {
		total = total.Add(transaction.Amount)

		category := "Uncategorized"
		if transaction.CategoryID != nil {
			if name, ok := categoryNames[*transaction.CategoryID]; ok {
				category = name
			}
		}
		byCategory[category] = byCategory[category].Add(transaction.Amount)

		merchant := strings.TrimSpace(transaction.Description)
		if merchant == "" {
			merchant = "Unknown"
		}
		byMerchant[merchant] = byMerchant[merchant].Add(transaction.Amount)
	}

	lines := []string{
		"📊 <b>Weekly Digest</b>",
		"",
		fmt.Sprintf("Transactions: <b>%d</b>", len(transactions)),
		fmt.Sprintf("Total spend: <b>%s</b>", total.StringFixed(2)),
		"",
		"<b>Top categories</b>",
	}
	lines = append(lines, topEntries(byCategory)...)
	lines = append(lines, "", "<b>Top merchants</b>")
	lines = append(lines, topEntries(byMerchant)...)

	return strings.Join(lines, "\n")
}

// topEntries returns the largest sums as bullet lines, biggest first.
// Equal sums are ordered by name so the output is stable.
func topEntries(sums map[string]decimal.Decimal) []string {
	type entry struct {
		name string
		sum  decimal.Decimal
	}

	entries := make([]entry, 0, len(sums))
	for name, sum := range sums {
		entries = append(entries, entry{name: name, sum: sum})
	}

	sort.Slice(entries, func(i, j int) bool {
		if entries[i].sum.Equal(entries[j].sum) {
			return entries[i].name < entries[j].name
		}
		return entries[i].sum.GreaterThan(entries[j].sum)
	})

	if len(entries) > digestTopEntries {
		entries = entries[:digestTopEntries]
	}

	lines := make([]string, 0, len(entries))
	for _, e := range entries {
		lines = append(lines, fmt.Sprintf("• %s: %s", e.name, e.sum.StringFixed(2)))
	}

	return lines
}

func categoryNamesByID(db *gorm.DB) map[uuid.UUID]string {
	var categories []models.Category
	if err := db.Find(&categories).Error; err != nil {
		return nil
	}

	names := make(map[uuid.UUID]string, len(categories))
	for _, category := range categories {
		names[category.ID] = category.Name
	}

	return names
}
