package telegram

// Client relays plain text to a Telegram chat. The operator channel mirrors
// incident reports through it when a bot token is configured.
type Client interface {
	SendMessage(recipientChatID int64, text string) error
}
