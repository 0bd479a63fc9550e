package models

import (
	"errors"
)

var (
	ErrGeneral          = errors.New("an error occurred on the server during your request")
	ErrResourceNotFound = errors.New("there is no")
)

// Category errors
var ErrCategoryNameNotUnique = errors.New("the category name must be unique")

// RecurringRule errors
var (
	ErrRecurringRuleAmountNegative = errors.New("the amount of a recurring rule must not be negative")
	ErrRecurringRuleInterval       = errors.New("the interval of a recurring rule must be a positive integer")
	ErrRecurringRuleFrequency      = errors.New("the frequency of a recurring rule must be one of: daily, weekly, monthly, yearly")
	ErrRecurringRuleEndBeforeStart = errors.New("the end date of a recurring rule must not be before its start date")
)

// RecurringException errors
var (
	ErrExceptionActionInvalid = errors.New("the exception action must be one of: deleted, modified, paid")
	ErrExceptionNotUnique     = errors.New("there already is an exception for this rule and occurrence date")
)

// TelegramSession errors
var ErrSessionConflict = errors.New("the session was changed by a concurrent update")

// Linking errors
var (
	ErrLinkingCodeInvalid = errors.New("the linking code is invalid")
	ErrLinkingCodeExpired = errors.New("the linking code has expired")
	ErrProfileNotLinked   = errors.New("this chat is not linked to a profile")
)
