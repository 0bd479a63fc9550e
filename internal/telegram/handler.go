package telegram

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	tgmodels "github.com/go-telegram/bot/models"
	"github.com/google/uuid"
	"github.com/pocketbudget/backend/internal/llm"
	"github.com/pocketbudget/backend/internal/models"
	"github.com/pocketbudget/backend/internal/types"
	"github.com/rs/zerolog/log"
)

const (
	notLinkedMessage = "🔗 This chat isn't linked to a profile yet. Open the app, create a linking code and send it here with /start <code>."
	errorMessage     = "😕 Something went wrong on my end. Please try again in a moment."
	timeoutMessage   = "⏱ That took longer than expected. Please try again."
)

// HandleUpdate routes one webhook update through the state machine.
// Failures are reported to the user and logged; the webhook itself
// always succeeds so Telegram does not retry.
func (h *Handler) HandleUpdate(ctx context.Context, update *tgmodels.Update) {
	switch {
	case update.Message != nil:
		messagesProcessed.Inc()
		h.handleMessage(ctx, update.Message)
	case update.CallbackQuery != nil:
		callbacksProcessed.Inc()
		h.handleCallback(ctx, update.CallbackQuery)
	}
}

func (h *Handler) handleMessage(ctx context.Context, message *tgmodels.Message) {
	chatID := message.Chat.ID
	text := strings.TrimSpace(message.Text)
	if text == "" {
		return
	}

	if strings.HasPrefix(text, "/start") {
		h.handleStart(ctx, chatID, text)
		return
	}

	profile, err := models.LinkedProfile(h.db, chatID)
	if err != nil {
		h.send(ctx, chatID, notLinkedMessage, nil)
		return
	}

	session, err := h.sessionFor(chatID, profile.ID)
	if err != nil {
		log.Error().Err(err).Int64("chat_id", chatID).Msg("could not load session")
		h.send(ctx, chatID, errorMessage, nil)
		return
	}

	referenceDate := types.Today()
	if message.Date > 0 {
		referenceDate = types.DayOf(time.Unix(int64(message.Date), 0))
	}

	switch session.State {
	case models.StateOnboardingChoice:
		h.send(ctx, chatID, "👆 Pick one of the options above to finish setting up.", onboardingKeyboard())
	case models.StateOnboardingProfile:
		h.handleOnboardingProfile(ctx, session, text)
	case models.StateAwaitingClarification:
		h.handleClarification(ctx, session, text)
	case models.StateAwaitingConfirmation:
		h.handleEditRequest(ctx, session, text, referenceDate)
	default:
		h.handleNewMessage(ctx, session, text, referenceDate)
	}
}

// handleStart links a chat to a profile via a single-use code.
func (h *Handler) handleStart(ctx context.Context, chatID int64, text string) {
	fields := strings.Fields(text)
	if len(fields) < 2 {
		if linked, err := models.LinkedProfile(h.db, chatID); err == nil {
			h.send(ctx, chatID, fmt.Sprintf("👋 Hi %s! You're all set. Just tell me what you spent, e.g. \"Coffee 4.50\".", linked.Name), nil)
			return
		}

		h.send(ctx, chatID, notLinkedMessage, nil)
		return
	}

	code, err := models.RedeemLinkingCode(h.db, fields[1], time.Now())
	switch {
	case errors.Is(err, models.ErrLinkingCodeExpired):
		h.send(ctx, chatID, "⌛ That code has expired. Generate a fresh one in the app and try again.", nil)
		return
	case err != nil:
		h.send(ctx, chatID, "🚫 That code doesn't look right. Generate a fresh one in the app and try again.", nil)
		return
	}

	// A chat links to exactly one profile; moving it unlinks the old one
	h.db.Model(&models.Profile{}).Where("telegram_chat_id = ?", chatID).Update("telegram_chat_id", nil)

	if err := h.db.Model(&code.Profile).Update("telegram_chat_id", chatID).Error; err != nil {
		log.Error().Err(err).Int64("chat_id", chatID).Msg("could not link profile")
		h.send(ctx, chatID, errorMessage, nil)
		return
	}
	h.db.Delete(&code)

	_, err = models.UpsertSession(h.db, models.TelegramSession{
		ChatID:    chatID,
		ProfileID: code.ProfileID,
		State:     models.StateOnboardingChoice,
	})
	if err != nil {
		log.Error().Err(err).Int64("chat_id", chatID).Msg("could not start onboarding session")
	}

	h.send(ctx, chatID,
		fmt.Sprintf("🎉 Linked to <b>%s</b>! Let's set up your spending categories. How would you like to start?", code.Profile.Name),
		onboardingKeyboard())
}

// handleOnboardingProfile turns a free-text self-description into a
// category set, falling back to the defaults when the description is
// skipped or the suggestion fails.
func (h *Handler) handleOnboardingProfile(ctx context.Context, session models.TelegramSession, text string) {
	chatID := session.ChatID

	var names []string
	if !strings.EqualFold(text, "skip") {
		suggested, err := h.assistant.SuggestCategories(ctx, text)
		switch {
		case errors.Is(err, llm.ErrTimeout):
			assistantTimeouts.Inc()
			h.send(ctx, chatID, "⏱ The suggestion took too long, so I'll start you with the default categories instead.", nil)
		case err != nil:
			log.Error().Err(err).Int64("chat_id", chatID).Msg("category suggestion failed")
			h.send(ctx, chatID, "😕 I couldn't come up with suggestions, so I'll start you with the defaults.", nil)
		default:
			names = suggested
		}
	}
	if len(names) == 0 {
		names = DefaultBootstrapCategories
	}

	created := h.createCategories(names)

	session.Reset()
	h.saveSession(ctx, session)

	h.send(ctx, chatID, fmt.Sprintf(
		"🎉 Set up %d categories:\n%s\n\nNow just tell me what you spent, e.g. \"Coffee 4.50 at Blue Bottle\".",
		len(created), "• "+strings.Join(created, "\n• ")), nil)
}

// handleNewMessage runs a fresh message through the parse adapter.
func (h *Handler) handleNewMessage(ctx context.Context, session models.TelegramSession, text string, referenceDate types.Day) {
	chatID := session.ChatID
	h.send(ctx, chatID, "🔄 Parsing your transaction...", nil)

	result, err := h.assistant.ParseTransactions(ctx, text, h.categoryNames(), referenceDate)
	if errors.Is(err, llm.ErrTimeout) {
		assistantTimeouts.Inc()
		h.send(ctx, chatID, timeoutMessage, nil)
		return
	}
	if err != nil {
		log.Error().Err(err).Int64("chat_id", chatID).Msg("parse failed")
		h.send(ctx, chatID, errorMessage, nil)
		return
	}

	switch result.Kind {
	case llm.ParseReject:
		h.send(ctx, chatID, "🤷 "+result.Reason, nil)

	case llm.ParseClarify:
		session.Drafts = []models.Draft{result.Draft}
		h.advance(ctx, session, result.Question, result.SuggestedCategory)

	case llm.ParseSingle, llm.ParseList:
		session.Drafts = result.Transactions
		h.advance(ctx, session, "", "")
	}
}

// handleClarification fills the pending field from a free-text reply
// without a model round trip.
func (h *Handler) handleClarification(ctx context.Context, session models.TelegramSession, text string) {
	index, field := h.pendingField(session)
	if index < 0 {
		h.advance(ctx, session, "", "")
		return
	}

	if session.ClarificationField != "" {
		field = session.ClarificationField
	}

	if !fillField(&session.Drafts[index], field, text) {
		prompt := "🙈 I didn't catch that. " + clarificationPrompt(session.Drafts[index], field)
		h.send(ctx, session.ChatID, prompt, h.clarificationKeyboard(session, field))
		return
	}

	h.advance(ctx, session, "", "")
}

// handleEditRequest treats free text during confirmation as an edit
// instruction for the drafted transactions.
func (h *Handler) handleEditRequest(ctx context.Context, session models.TelegramSession, text string, referenceDate types.Day) {
	chatID := session.ChatID

	if strings.HasPrefix(text, "/") {
		h.send(ctx, chatID, "Use the buttons to log or cancel, or reply with a change like 'make it 12.50'.", confirmKeyboard(session.ID.String()))
		return
	}

	h.send(ctx, chatID, "✏️ Updating your draft...", nil)

	result, err := h.assistant.ApplyEdits(ctx, text, session.Drafts, h.categoryNames(), referenceDate)
	if errors.Is(err, llm.ErrTimeout) {
		assistantTimeouts.Inc()
		h.send(ctx, chatID, timeoutMessage, confirmKeyboard(session.ID.String()))
		return
	}
	if err != nil {
		log.Error().Err(err).Int64("chat_id", chatID).Msg("edit failed")
		h.send(ctx, chatID, errorMessage, confirmKeyboard(session.ID.String()))
		return
	}

	switch result.Kind {
	case llm.EditUpdated:
		session.Drafts = result.Transactions
		session = h.saveSession(ctx, session)
		h.send(ctx, chatID, summary(session.Drafts), confirmKeyboard(session.ID.String()))

	case llm.EditUnchanged:
		h.send(ctx, chatID, "ℹ️ "+result.Reason, confirmKeyboard(session.ID.String()))

	default:
		h.send(ctx, chatID, "🙈 "+result.Reason, confirmKeyboard(session.ID.String()))
	}
}

// advance moves the session to the next state its drafts allow: the
// confirmation summary when every draft is complete, otherwise a
// clarification prompt for the first missing field.
func (h *Handler) advance(ctx context.Context, session models.TelegramSession, question, suggestedCategory string) {
	chatID := session.ChatID

	index, field := h.pendingField(session)
	if index < 0 {
		if len(session.Drafts) == 0 {
			session.Reset()
			h.saveSession(ctx, session)
			h.send(ctx, chatID, "🤷 I couldn't find anything to log there.", nil)
			return
		}

		session.State = models.StateAwaitingConfirmation
		session.ClarificationField = ""
		session = h.saveSession(ctx, session)
		h.send(ctx, chatID, summary(session.Drafts), confirmKeyboard(session.ID.String()))
		return
	}

	session.State = models.StateAwaitingClarification
	session.ClarificationField = field

	if field == models.FieldCategory {
		session.Meta = &models.SessionMeta{CategoryOptions: h.categoryOptions(suggestedCategory)}
	}

	session = h.saveSession(ctx, session)

	if question == "" {
		question = clarificationPrompt(session.Drafts[index], field)
	}
	h.send(ctx, chatID, question, h.clarificationKeyboard(session, field))
}

func (h *Handler) handleCallback(ctx context.Context, callback *tgmodels.CallbackQuery) {
	chatID, ok := callbackChatID(callback)
	if !ok {
		h.answer(ctx, callback.ID, "")
		return
	}

	var session models.TelegramSession
	err := h.db.Where(&models.TelegramSession{ChatID: chatID}).First(&session).Error
	if err != nil {
		h.answer(ctx, callback.ID, "This menu has expired.")
		return
	}

	action, argument, _ := strings.Cut(callback.Data, ":")
	switch action {
	case "onboarding":
		h.callbackOnboarding(ctx, callback.ID, session, argument)
	case "cancel_session":
		h.callbackCancel(ctx, callback.ID, session, argument)
	case "pick_category":
		h.callbackPickCategory(ctx, callback.ID, session, argument)
	case "pick_date":
		h.callbackPickDate(ctx, callback.ID, session, argument)
	case "log_session":
		h.callbackLog(ctx, callback.ID, session, argument)
	default:
		h.answer(ctx, callback.ID, "")
	}
}

func (h *Handler) callbackOnboarding(ctx context.Context, callbackID string, session models.TelegramSession, choice string) {
	if session.State != models.StateOnboardingChoice {
		h.answer(ctx, callbackID, "This menu has expired.")
		return
	}
	h.answer(ctx, callbackID, "")

	switch choice {
	case "smart":
		session.State = models.StateOnboardingProfile
		h.saveSession(ctx, session)
		h.send(ctx, session.ChatID,
			"✨ Tell me a bit about yourself — work, hobbies, household — and I'll suggest categories that fit. Or reply \"skip\".", nil)

	case "defaults":
		created := h.createCategories(DefaultBootstrapCategories)
		session.Reset()
		h.saveSession(ctx, session)
		h.send(ctx, session.ChatID, fmt.Sprintf(
			"🎉 Set up %d categories:\n%s\n\nNow just tell me what you spent, e.g. \"Coffee 4.50\".",
			len(created), "• "+strings.Join(created, "\n• ")), nil)

	default: // skip
		session.Reset()
		h.saveSession(ctx, session)
		h.send(ctx, session.ChatID, "👍 No problem, you can add categories any time. Just tell me what you spent, e.g. \"Coffee 4.50\".", nil)
	}
}

func (h *Handler) callbackCancel(ctx context.Context, callbackID string, session models.TelegramSession, sessionID string) {
	if session.ID.String() != sessionID {
		h.answer(ctx, callbackID, "This menu is out of date.")
		return
	}

	h.answer(ctx, callbackID, "Cancelled")
	session.Reset()
	h.saveSession(ctx, session)
	h.send(ctx, session.ChatID, "❌ Cancelled. Nothing was logged.", nil)
}

// callbackPickCategory resolves a category button against the snapshot
// stored in the session, so buttons from an earlier menu can't pick the
// wrong category after the list changed.
func (h *Handler) callbackPickCategory(ctx context.Context, callbackID string, session models.TelegramSession, argument string) {
	sessionID, indexText, _ := strings.Cut(argument, ":")
	index, err := strconv.Atoi(indexText)

	stale := err != nil ||
		session.ID.String() != sessionID ||
		session.State != models.StateAwaitingClarification ||
		session.Meta == nil ||
		index < 0 || index >= len(session.Meta.CategoryOptions)
	if stale {
		h.answer(ctx, callbackID, "This menu is out of date.")
		return
	}

	draftIndex, _ := h.pendingField(session)
	if draftIndex < 0 {
		h.answer(ctx, callbackID, "This menu is out of date.")
		return
	}

	h.answer(ctx, callbackID, "")
	session.Drafts[draftIndex].Category = session.Meta.CategoryOptions[index]
	h.advance(ctx, session, "", "")
}

func (h *Handler) callbackPickDate(ctx context.Context, callbackID string, session models.TelegramSession, argument string) {
	sessionID, choice, _ := strings.Cut(argument, ":")

	if session.ID.String() != sessionID || session.State != models.StateAwaitingClarification {
		h.answer(ctx, callbackID, "This menu is out of date.")
		return
	}

	draftIndex, _ := h.pendingField(session)
	if draftIndex < 0 {
		h.answer(ctx, callbackID, "This menu is out of date.")
		return
	}

	h.answer(ctx, callbackID, "")

	switch choice {
	case "today":
		session.Drafts[draftIndex].Date = types.Today().String()
	case "yesterday":
		session.Drafts[draftIndex].Date = types.Today().AddDate(0, 0, -1).String()
	default: // custom
		session.ClarificationField = models.FieldDate
		h.saveSession(ctx, session)
		h.send(ctx, session.ChatID, "📅 Send the date as YYYY-MM-DD, e.g. 2026-08-30.", nil)
		return
	}

	h.advance(ctx, session, "", "")
}

// callbackLog saves every complete draft as a transaction, resolving or
// creating categories by name, then reports budget alerts.
func (h *Handler) callbackLog(ctx context.Context, callbackID string, session models.TelegramSession, sessionID string) {
	if session.ID.String() != sessionID || session.State != models.StateAwaitingConfirmation {
		h.answer(ctx, callbackID, "This menu is out of date.")
		return
	}

	drafts := session.CompleteDrafts()
	if len(drafts) == 0 {
		h.answer(ctx, callbackID, "")
		session.Reset()
		h.saveSession(ctx, session)
		h.send(ctx, session.ChatID, "🤷 There was nothing complete to log.", nil)
		return
	}

	h.answer(ctx, callbackID, "Logging...")

	var categoryIDs []uuid.UUID
	for _, draft := range drafts {
		category, err := h.resolveCategory(draft.Category)
		if err != nil {
			log.Error().Err(err).Str("category", draft.Category).Msg("could not resolve category")
			h.send(ctx, session.ChatID, errorMessage, nil)
			return
		}

		date, err := types.ParseDay(draft.Date)
		if err != nil {
			date = types.Today()
		}

		transaction := models.Transaction{
			Date:        date,
			Amount:      draft.Amount,
			Description: draft.Merchant,
			CategoryID:  &category.ID,
		}
		if err := h.db.Create(&transaction).Error; err != nil {
			log.Error().Err(err).Msg("could not save transaction")
			h.send(ctx, session.ChatID, errorMessage, nil)
			return
		}

		categoryIDs = append(categoryIDs, category.ID)
	}

	transactionsLogged.Add(float64(len(drafts)))

	nudges := budgetNudges(h.db, session.ProfileID, categoryIDs, types.Today())

	session.Reset()
	h.saveSession(ctx, session)

	h.send(ctx, session.ChatID, loggedConfirmation(drafts), nil)
	for _, nudge := range nudges {
		h.send(ctx, session.ChatID, nudge, nil)
	}
}

// pendingField returns the index of the first incomplete draft and its
// first missing field, or -1 when every draft is complete.
func (h *Handler) pendingField(session models.TelegramSession) (int, models.DraftField) {
	for i, draft := range session.Drafts {
		if missing := draft.MissingFields(); len(missing) > 0 {
			return i, missing[0]
		}
	}
	return -1, ""
}

func (h *Handler) clarificationKeyboard(session models.TelegramSession, field models.DraftField) *tgmodels.InlineKeyboardMarkup {
	switch field {
	case models.FieldCategory:
		if session.Meta != nil && len(session.Meta.CategoryOptions) > 0 {
			return categoryKeyboard(session.ID.String(), session.Meta.CategoryOptions)
		}
	case models.FieldDate:
		return dateKeyboard(session.ID.String())
	}
	return nil
}

// categoryOptions builds the button menu snapshot: the model's
// suggestion first, then existing categories, capped at the keyboard
// limit.
func (h *Handler) categoryOptions(suggested string) []string {
	options := make([]string, 0, maxCategoryButtons)
	seen := make(map[string]bool)

	if suggested = strings.TrimSpace(suggested); suggested != "" {
		options = append(options, suggested)
		seen[strings.ToLower(suggested)] = true
	}

	for _, name := range h.categoryNames() {
		if len(options) >= maxCategoryButtons {
			break
		}
		if seen[strings.ToLower(name)] {
			continue
		}
		options = append(options, name)
		seen[strings.ToLower(name)] = true
	}

	return options
}

func (h *Handler) categoryNames() []string {
	var categories []models.Category
	if err := h.db.Order("name").Find(&categories).Error; err != nil {
		return nil
	}

	names := make([]string, 0, len(categories))
	for _, category := range categories {
		names = append(names, category.Name)
	}
	return names
}

// createCategories creates the named categories, skipping ones that
// already exist. It returns the final names in input order.
func (h *Handler) createCategories(names []string) []string {
	var created []string
	for _, name := range names {
		category, err := h.resolveCategory(name)
		if err != nil {
			log.Error().Err(err).Str("category", name).Msg("could not create category")
			continue
		}
		created = append(created, category.Name)
	}
	return created
}

// resolveCategory finds a category by name (case-insensitive) or
// creates it.
func (h *Handler) resolveCategory(name string) (models.Category, error) {
	category, err := models.FindCategoryByName(h.db, name)
	if err == nil {
		return category, nil
	}
	if !errors.Is(err, models.ErrResourceNotFound) {
		return models.Category{}, err
	}

	category = models.Category{Name: name}
	err = h.db.Create(&category).Error
	if errors.Is(err, models.ErrCategoryNameNotUnique) {
		// Lost a race against a concurrent create, use theirs
		return models.FindCategoryByName(h.db, name)
	}
	return category, err
}

func (h *Handler) sessionFor(chatID int64, profileID uuid.UUID) (models.TelegramSession, error) {
	var session models.TelegramSession
	err := h.db.Where(&models.TelegramSession{ChatID: chatID}).First(&session).Error
	if err == nil {
		return session, nil
	}
	if !errors.Is(err, models.ErrResourceNotFound) {
		return session, err
	}

	return models.UpsertSession(h.db, models.TelegramSession{
		ChatID:    chatID,
		ProfileID: profileID,
		State:     models.StateIdle,
	})
}

func (h *Handler) saveSession(ctx context.Context, session models.TelegramSession) models.TelegramSession {
	saved, err := models.UpsertSession(h.db, session)
	if err != nil {
		log.Error().Err(err).Int64("chat_id", session.ChatID).Msg("could not save session")
		return session
	}
	return saved
}

func (h *Handler) send(ctx context.Context, chatID int64, text string, markup *tgmodels.InlineKeyboardMarkup) {
	// A typed nil would end up as "reply_markup": null on the wire
	var reply tgmodels.ReplyMarkup
	if markup != nil {
		reply = markup
	}

	if err := h.sender.SendMessage(ctx, chatID, text, reply); err != nil {
		log.Error().Err(err).Int64("chat_id", chatID).Msg("could not send message")
	}
}

func (h *Handler) answer(ctx context.Context, callbackID, text string) {
	if err := h.sender.AnswerCallback(ctx, callbackID, text); err != nil {
		log.Error().Err(err).Msg("could not answer callback")
	}
}

func callbackChatID(callback *tgmodels.CallbackQuery) (int64, bool) {
	if callback.Message.Message != nil {
		return callback.Message.Message.Chat.ID, true
	}
	if callback.Message.InaccessibleMessage != nil {
		return callback.Message.InaccessibleMessage.Chat.ID, true
	}
	return 0, false
}
