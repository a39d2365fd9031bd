package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"fazaachat/internal/domain/entity"
	"fazaachat/internal/usecase"
)

func init() {
	createCmd.Flags().String("order", "", "order the conversation belongs to")
	createCmd.Flags().String("receiver", "", "the other participant")
	createCmd.Flags().String("id", "", "conversation id (defaults to the order id)")
	_ = createCmd.MarkFlagRequired("order")
	_ = createCmd.MarkFlagRequired("receiver")

	rootCmd.AddCommand(createCmd, listCmd, historyCmd)
}

var createCmd = &cobra.Command{
	Use:   "create",
	Short: "Open the conversation for an accepted order",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		session, err := currentSession()
		if err != nil {
			return err
		}
		orderID, _ := cmd.Flags().GetString("order")
		receiverID, _ := cmd.Flags().GetString("receiver")
		id, _ := cmd.Flags().GetString("id")

		conv, err := chat.ChatUseCase.CreateConversation(cmd.Context(), session, usecase.CreateConversationInput{
			ConversationID: id,
			OrderID:        orderID,
			ReceiverID:     receiverID,
		})
		if err != nil {
			return err
		}
		printConversation(cmd, conv)
		return nil
	},
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List the conversations of --user, newest first",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		session, err := currentSession()
		if err != nil {
			return err
		}
		convs, err := chat.ChatUseCase.ListConversations(cmd.Context(), session)
		if err != nil {
			return err
		}
		if len(convs) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "No conversations")
			return nil
		}
		for _, conv := range convs {
			printConversation(cmd, conv)
		}
		return nil
	},
}

var historyCmd = &cobra.Command{
	Use:   "history [conversation-id]",
	Short: "Print the ordered message log of a conversation",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		session, err := currentSession()
		if err != nil {
			return err
		}
		messages, err := chat.ChatUseCase.GetMessages(cmd.Context(), session, args[0])
		if err != nil {
			return err
		}
		for _, msg := range messages {
			printMessage(cmd, msg)
		}
		return nil
	},
}

func printConversation(cmd *cobra.Command, conv *entity.Conversation) {
	status := "enabled"
	if !conv.ChatEnabled {
		status = "disabled"
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s  order=%s  %s <-> %s  [%s]\n", conv.ID, conv.OrderID, conv.SenderID, conv.ReceiverID, status)
	if conv.LastMessage != "" {
		fmt.Fprintf(cmd.OutOrStdout(), "    last: %q at %s\n", conv.LastMessage, formatTime(conv.LastMessageDate))
	}
}

func printMessage(cmd *cobra.Command, msg entity.Message) {
	fmt.Fprintf(cmd.OutOrStdout(), "[%s] %s: %s\n", formatTime(msg.MessageDate), msg.SenderID, msg.Message)
}

func formatTime(sec int64) string {
	return time.Unix(sec, 0).Format(time.DateTime)
}
