package cli

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/google/uuid"

	"taskpilot/app/pkg/types"
)

// CLIChannel drives the bot from stdin, mostly for local development.
type CLIChannel struct {
	id     string
	userID string
	chatID string
}

func NewCLIChannel(userID string) *CLIChannel {
	if strings.TrimSpace(userID) == "" {
		userID = "local_user"
	}
	return &CLIChannel{id: "cli", userID: userID, chatID: "local"}
}

func (c *CLIChannel) ID() string {
	return c.id
}

func (c *CLIChannel) Start(ctx context.Context, handler func(types.Message)) error {
	scanner := bufio.NewScanner(os.Stdin)
	fmt.Println(">> TaskPilot CLI started. Type 'exit' to quit.")

	for {
		select {
		case <-ctx.Done():
			return nil
		default:
			fmt.Print("> ")
			if !scanner.Scan() {
				return nil
			}
			text := strings.TrimSpace(scanner.Text())
			if text == "exit" || text == "quit" {
				fmt.Println("Exiting CLI loop...")
				return nil
			}

			handler(types.Message{
				ID:        uuid.NewString(),
				Content:   text,
				Role:      types.RoleUser,
				ChannelID: c.id,
				ChatID:    c.chatID,
				UserID:    c.userID,
				RequestID: uuid.NewString(),
				Mention:   true,
			})
		}
	}
}

func (c *CLIChannel) Send(ctx context.Context, msg types.Message) error {
	fmt.Printf("[TaskPilot]: %s\n", msg.Content)
	return nil
}
