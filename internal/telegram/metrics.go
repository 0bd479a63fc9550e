package telegram

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	messagesProcessed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "pocketbudget_telegram_messages_total",
		Help: "Number of Telegram messages processed by the webhook.",
	})

	callbacksProcessed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "pocketbudget_telegram_callbacks_total",
		Help: "Number of Telegram callback queries processed by the webhook.",
	})

	transactionsLogged = promauto.NewCounter(prometheus.CounterOpts{
		Name: "pocketbudget_telegram_transactions_logged_total",
		Help: "Number of transactions confirmed and saved through Telegram.",
	})

	assistantTimeouts = promauto.NewCounter(prometheus.CounterOpts{
		Name: "pocketbudget_telegram_assistant_timeouts_total",
		Help: "Number of assistant calls that hit their deadline.",
	})
)
