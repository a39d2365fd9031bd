package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"fazaachat/internal/usecase"
)

func init() {
	typingCmd.Flags().Duration("hold", 0, "keep the session open this long after the draft (defaults to the typing expiry plus a second)")

	rootCmd.AddCommand(sendCmd, tailCmd, typingCmd)
}

var sendCmd = &cobra.Command{
	Use:   "send [conversation-id] [message...]",
	Short: "Send a message as --user and notify the counterpart",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		session, err := currentSession()
		if err != nil {
			return err
		}
		msg, err := chat.ChatUseCase.SendMessage(cmd.Context(), session, args[0], strings.Join(args[1:], " "))
		if err != nil {
			return err
		}
		if msg == nil {
			fmt.Fprintln(cmd.OutOrStdout(), "Nothing to send")
			return nil
		}
		printMessage(cmd, *msg)
		return nil
	},
}

var tailCmd = &cobra.Command{
	Use:   "tail [conversation-id]",
	Short: "Follow a conversation, printing new messages and typing changes",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		session, err := currentSession()
		if err != nil {
			return err
		}
		chatSession, err := chat.ChatUseCase.OpenSession(cmd.Context(), session, args[0])
		if err != nil {
			return err
		}
		defer chatSession.Close()

		states, cancel := chatSession.Subscribe()
		defer cancel()

		var printer statePrinter
		for {
			select {
			case <-cmd.Context().Done():
				return nil
			case state, ok := <-states:
				if !ok {
					return nil
				}
				printer.print(cmd, chatSession.Counterpart(), state)
			}
		}
	},
}

var typingCmd = &cobra.Command{
	Use:   "typing [conversation-id] [draft...]",
	Short: "Set a draft as --user and hold the session until the typing flag expires",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		session, err := currentSession()
		if err != nil {
			return err
		}
		hold, _ := cmd.Flags().GetDuration("hold")
		if hold <= 0 {
			hold = chat.Config.TypingExpiry + time.Second
		}

		chatSession, err := chat.ChatUseCase.OpenSession(cmd.Context(), session, args[0])
		if err != nil {
			return err
		}
		defer chatSession.Close()

		if err := chatSession.SetDraft(cmd.Context(), strings.Join(args[1:], " ")); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s is typing in %s\n", session.CurrentUserID, args[0])

		select {
		case <-cmd.Context().Done():
		case <-time.After(hold):
		}
		return nil
	},
}

// statePrinter prints the part of each snapshot that changed since the last
// one it saw.
type statePrinter struct {
	seen   map[string]bool
	typing bool
	status usecase.SessionStatus
}

func (p *statePrinter) print(cmd *cobra.Command, counterpart string, state usecase.SessionState) {
	if state.Status != p.status {
		p.status = state.Status
		fmt.Fprintf(cmd.OutOrStdout(), "-- %s %s\n", state.ConversationID, state.Status)
	}
	if p.seen == nil {
		p.seen = make(map[string]bool)
	}
	for _, msg := range state.Messages {
		if !p.seen[msg.ID] {
			p.seen[msg.ID] = true
			printMessage(cmd, msg)
		}
	}

	if state.CounterpartTyping != p.typing {
		p.typing = state.CounterpartTyping
		if p.typing {
			fmt.Fprintf(cmd.OutOrStdout(), "-- %s is typing...\n", counterpart)
		} else {
			fmt.Fprintf(cmd.OutOrStdout(), "-- %s stopped typing\n", counterpart)
		}
	}
}
