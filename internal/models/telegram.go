package models

import (
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pocketbudget/backend/internal/types"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Profile is the account owning all budget data. A profile can be
// linked to at most one Telegram chat.
type Profile struct {
	DefaultModel
	Name           string
	TelegramChatID *int64 `gorm:"uniqueIndex"`
}

// LinkingCode is a short-lived, single-use code to link a profile
// to a Telegram chat. It is deleted after successful use.
type LinkingCode struct {
	DefaultModel
	ProfileID uuid.UUID
	Profile   Profile `json:"-"`
	Code      string  `gorm:"uniqueIndex"`
	ExpiresAt time.Time
}

// Expired reports whether the code can no longer be used.
func (l LinkingCode) Expired(now time.Time) bool {
	return now.After(l.ExpiresAt)
}

// RedeemLinkingCode looks up a linking code with its profile. Expired
// codes are deleted on sight and reported as ErrLinkingCodeExpired.
func RedeemLinkingCode(db *gorm.DB, code string, now time.Time) (LinkingCode, error) {
	var linkingCode LinkingCode
	if err := db.Preload("Profile").Where(&LinkingCode{Code: code}).First(&linkingCode).Error; err != nil {
		return LinkingCode{}, ErrLinkingCodeInvalid
	}

	if linkingCode.Expired(now) {
		db.Delete(&linkingCode)
		return LinkingCode{}, ErrLinkingCodeExpired
	}

	return linkingCode, nil
}

// LinkedProfile returns the profile linked to the given Telegram chat,
// or ErrProfileNotLinked when there is none.
func LinkedProfile(db *gorm.DB, chatID int64) (Profile, error) {
	var profile Profile
	if err := db.Where("telegram_chat_id = ?", chatID).First(&profile).Error; err != nil {
		return Profile{}, ErrProfileNotLinked
	}

	return profile, nil
}

// SessionState is the conversational state of a Telegram chat.
type SessionState string

const (
	StateIdle                  SessionState = "idle"
	StateOnboardingChoice      SessionState = "onboarding_choice"
	StateOnboardingProfile     SessionState = "onboarding_profile"
	StateAwaitingClarification SessionState = "awaiting_clarification"
	StateAwaitingConfirmation  SessionState = "awaiting_confirmation"
)

// DraftField is one of the four fields a transaction draft needs.
type DraftField string

const (
	FieldMerchant DraftField = "merchant"
	FieldAmount   DraftField = "amount"
	FieldCategory DraftField = "category"
	FieldDate     DraftField = "date"
)

// draftDatePattern is the only accepted date format for drafts.
var draftDatePattern = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)

// Draft is an in-progress transaction captured during chat intake.
// Any subset of the fields may be filled.
type Draft struct {
	Merchant string          `json:"merchant"`
	Amount   decimal.Decimal `json:"amount"`
	Category string          `json:"category"`
	Date     string          `json:"date"`
}

// MissingFields returns the fields that still need to be filled before
// the draft can be logged. It is always derived from the draft itself,
// never cached.
func (d Draft) MissingFields() []DraftField {
	var missing []DraftField

	if strings.TrimSpace(d.Merchant) == "" {
		missing = append(missing, FieldMerchant)
	}
	if !d.Amount.IsPositive() {
		missing = append(missing, FieldAmount)
	}
	if strings.TrimSpace(d.Category) == "" {
		missing = append(missing, FieldCategory)
	}
	if !draftDatePattern.MatchString(d.Date) {
		missing = append(missing, FieldDate)
	}

	return missing
}

// Complete reports whether all four fields are filled and valid.
func (d Draft) Complete() bool {
	return len(d.MissingFields()) == 0
}

// SessionMeta is auxiliary session state, e.g. the category button menu
// last offered to the user. Button callbacks resolve against this
// snapshot, so stale buttons can be detected.
type SessionMeta struct {
	CategoryOptions []string `json:"categoryOptions,omitempty"`
}

// TelegramSession is the conversational state for one chat.
// There is exactly one session per chat. Version guards saves: a save
// only applies when the stored row still has the version the caller
// loaded.
type TelegramSession struct {
	DefaultModel
	ChatID             int64 `gorm:"uniqueIndex"`
	ProfileID          uuid.UUID
	Profile            Profile `json:"-"`
	State              SessionState
	ClarificationField DraftField
	Drafts             []Draft      `gorm:"serializer:json"`
	Meta               *SessionMeta `gorm:"serializer:json"`
	Version            int          `json:"-"`
}

// Reset clears the session back to idle, discarding all drafts.
func (s *TelegramSession) Reset() {
	s.State = StateIdle
	s.ClarificationField = ""
	s.Drafts = nil
	s.Meta = nil
}

// ActiveDraft returns the first pending draft, or an empty one.
func (s TelegramSession) ActiveDraft() Draft {
	if len(s.Drafts) == 0 {
		return Draft{}
	}
	return s.Drafts[0]
}

// CompleteDrafts returns only the drafts that are ready to be logged.
func (s TelegramSession) CompleteDrafts() []Draft {
	var complete []Draft
	for _, draft := range s.Drafts {
		if draft.Complete() {
			complete = append(complete, draft)
		}
	}
	return complete
}

// UpsertSession creates or replaces the session for a chat. Updates
// are conditional on the version the caller loaded, so two interleaved
// turns for the same chat cannot silently overwrite each other.
func UpsertSession(db *gorm.DB, session TelegramSession) (TelegramSession, error) {
	var existing TelegramSession
	if err := db.Where(&TelegramSession{ChatID: session.ChatID}).First(&existing).Error; err != nil {
		err = db.Create(&session).Error
		return session, err
	}

	version := session.Version
	if session.ID != existing.ID {
		// A fresh value replacing the stored session, e.g. after re-linking
		version = existing.Version
	}

	session.Version = version + 1
	result := db.Model(&existing).
		Where("version = ?", version).
		Select("ProfileID", "State", "ClarificationField", "Drafts", "Meta", "Version").
		Updates(&session)
	if result.Error != nil {
		return session, result.Error
	}
	if result.RowsAffected == 0 {
		return session, ErrSessionConflict
	}

	session.DefaultModel = existing.DefaultModel
	return session, nil
}

// BudgetNudge records that a budget threshold notification was sent,
// so each (category, period, level) nudge fires at most once.
type BudgetNudge struct {
	DefaultModel
	ProfileID   uuid.UUID `gorm:"uniqueIndex:nudge_once"`
	CategoryID  uuid.UUID `gorm:"uniqueIndex:nudge_once"`
	PeriodStart types.Day `gorm:"uniqueIndex:nudge_once"`
	Level       int       `gorm:"uniqueIndex:nudge_once"` // Threshold percentage, 80 or 100
}
