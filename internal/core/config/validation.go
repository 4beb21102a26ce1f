package config

import (
	"fmt"
)

// ValidateConfig checks constraints the schema cannot express
func ValidateConfig(config *Config) error {
	if config == nil {
		return fmt.Errorf("config is nil")
	}

	if err := ValidateConversation(&config.Conversation); err != nil {
		return fmt.Errorf("invalid conversation: %w", err)
	}

	if port := config.MCP.HTTP.Port; port < 0 || port > 65535 {
		return fmt.Errorf("invalid mcp.http.port: %d", port)
	}

	if err := config.Hooks.Validate(); err != nil {
		return fmt.Errorf("invalid hooks: %w", err)
	}

	return nil
}

// ValidateConversation validates conversation timing
func ValidateConversation(conv *ConversationConfig) error {
	if conv.ManualWaitTimeout < 0 {
		return fmt.Errorf("manualWaitTimeout must not be negative")
	}
	if conv.ReplyTimeout < 0 {
		return fmt.Errorf("replyTimeout must not be negative")
	}
	if conv.ReplyAttempts < 0 {
		return fmt.Errorf("replyAttempts must not be negative")
	}
	if conv.HistoryLimit < 0 {
		return fmt.Errorf("historyLimit must not be negative")
	}
	return nil
}
