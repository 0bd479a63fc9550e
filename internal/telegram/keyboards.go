package telegram

import (
	"fmt"

	tgmodels "github.com/go-telegram/bot/models"
)

// maxCategoryButtons bounds the category picker so the keyboard stays
// one tap away. The picked index resolves against the session's
// snapshot of these options, not the live category list.
const maxCategoryButtons = 6

func onboardingKeyboard() *tgmodels.InlineKeyboardMarkup {
	return &tgmodels.InlineKeyboardMarkup{
		InlineKeyboard: [][]tgmodels.InlineKeyboardButton{
			{{Text: "✨ Smart setup", CallbackData: "onboarding:smart"}},
			{{Text: "📋 Use defaults", CallbackData: "onboarding:defaults"}},
			{{Text: "⏭ Skip for now", CallbackData: "onboarding:skip"}},
		},
	}
}

// categoryKeyboard lays out up to maxCategoryButtons options two per
// row, with a cancel button at the bottom.
func categoryKeyboard(sessionID string, options []string) *tgmodels.InlineKeyboardMarkup {
	if len(options) > maxCategoryButtons {
		options = options[:maxCategoryButtons]
	}

	var rows [][]tgmodels.InlineKeyboardButton
	var row []tgmodels.InlineKeyboardButton
	for i, name := range options {
		row = append(row, tgmodels.InlineKeyboardButton{
			Text:         name,
			CallbackData: fmt.Sprintf("pick_category:%s:%d", sessionID, i),
		})

		if len(row) == 2 {
			rows = append(rows, row)
			row = nil
		}
	}

	if len(row) > 0 {
		rows = append(rows, row)
	}

	rows = append(rows, []tgmodels.InlineKeyboardButton{
		{Text: "❌ Cancel", CallbackData: fmt.Sprintf("cancel_session:%s", sessionID)},
	})

	return &tgmodels.InlineKeyboardMarkup{InlineKeyboard: rows}
}

func dateKeyboard(sessionID string) *tgmodels.InlineKeyboardMarkup {
	return &tgmodels.InlineKeyboardMarkup{
		InlineKeyboard: [][]tgmodels.InlineKeyboardButton{
			{
				{Text: "📅 Today", CallbackData: fmt.Sprintf("pick_date:%s:today", sessionID)},
				{Text: "📅 Yesterday", CallbackData: fmt.Sprintf("pick_date:%s:yesterday", sessionID)},
			},
			{
				{Text: "✏️ Another date", CallbackData: fmt.Sprintf("pick_date:%s:custom", sessionID)},
			},
			{
				{Text: "❌ Cancel", CallbackData: fmt.Sprintf("cancel_session:%s", sessionID)},
			},
		},
	}
}

func confirmKeyboard(sessionID string) *tgmodels.InlineKeyboardMarkup {
	return &tgmodels.InlineKeyboardMarkup{
		InlineKeyboard: [][]tgmodels.InlineKeyboardButton{
			{
				{Text: "✅ Log it", CallbackData: fmt.Sprintf("log_session:%s", sessionID)},
				{Text: "❌ Cancel", CallbackData: fmt.Sprintf("cancel_session:%s", sessionID)},
			},
		},
	}
}
