package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"fazaachat/internal/domain/entity"
	"fazaachat/internal/usecase"
)

func init() {
	rootCmd.AddCommand(demoCmd)
}

var demoCmd = &cobra.Command{
	Use:   "demo",
	Short: "Run a buyer/seller exchange against the in-memory backend",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if chat.Memory == nil {
			return fmt.Errorf("demo needs CHAT_BACKEND=memory, got %q", chat.Config.ChatBackend)
		}
		ctx := cmd.Context()
		buyer := entity.Session{CurrentUserID: "buyer"}
		seller := entity.Session{CurrentUserID: "seller"}
		chat.Memory.PutUser("buyer", map[string]interface{}{"name": "Buyer", "fcmToken": "buyer-device"})
		chat.Memory.PutUser("seller", map[string]interface{}{"name": "Seller", "fcmToken": "seller-device"})

		conv, err := chat.ChatUseCase.CreateConversation(ctx, buyer, usecase.CreateConversationInput{
			OrderID:    "order-demo",
			ReceiverID: "seller",
		})
		if err != nil {
			return err
		}
		printConversation(cmd, conv)

		buyerSession, err := chat.ChatUseCase.OpenSession(ctx, buyer, conv.ID)
		if err != nil {
			return err
		}
		defer buyerSession.Close()
		sellerSession, err := chat.ChatUseCase.OpenSession(ctx, seller, conv.ID)
		if err != nil {
			return err
		}
		defer sellerSession.Close()

		states, cancel := sellerSession.Subscribe()
		defer cancel()
		var printer statePrinter
		drain := func(wait time.Duration) {
			deadline := time.After(wait)
			for {
				select {
				case state, ok := <-states:
					if !ok {
						return
					}
					printer.print(cmd, sellerSession.Counterpart(), state)
				case <-deadline:
					return
				case <-ctx.Done():
					return
				}
			}
		}

		drain(100 * time.Millisecond)
		if err := buyerSession.SetDraft(ctx, "is the account still avail"); err != nil {
			return err
		}
		drain(200 * time.Millisecond)
		if _, err := buyerSession.Send(ctx, "Is the account still available?"); err != nil {
			return err
		}
		drain(200 * time.Millisecond)
		if _, err := sellerSession.Send(ctx, "Yes, sending the credentials now."); err != nil {
			return err
		}
		drain(200 * time.Millisecond)
		return nil
	},
}
