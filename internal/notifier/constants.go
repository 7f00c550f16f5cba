package notifier

// Discord formatting constants
const (
	DiscordUsername   = "piiwatch"
	SuccessEmbedColor = 0x5CB85C
	ErrorEmbedColor   = 0xD9534F
	WarningEmbedColor = 0xF0AD4E
)

// MaxErrorTextLength caps error text copied into an embed field
const MaxErrorTextLength = 800
