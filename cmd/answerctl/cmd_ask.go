package main

import (
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/answerdesk/answerdesk/pkg/models"
)

func newAskCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ask <question>",
		Short: "Ask the knowledge base a question",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sessionID, _ := cmd.Flags().GetString("session")
			sources, _ := cmd.Flags().GetBool("sources")

			req := models.AnswerRequest{
				Query:     strings.Join(args, " "),
				SessionID: sessionID,
			}

			var result models.AnswerResult
			if err := newClient(cmd).do("POST", "/api/v1/answer", req, &result); err != nil {
				return err
			}

			jsonOut, _ := cmd.Flags().GetBool("json")
			if jsonOut {
				printJSON(result)
				return nil
			}

			boldGreen := color.New(color.FgGreen, color.Bold).SprintFunc()
			dim := color.New(color.Faint).SprintFunc()

			fmt.Println(result.Response)
			fmt.Println()
			switch {
			case result.Conversational:
				fmt.Println(dim("(conversational — knowledge base not consulted)"))
			case result.ContextFound:
				line := fmt.Sprintf("grounded in %d source(s)", len(result.Sources))
				if result.Validation != nil {
					line += fmt.Sprintf(", confidence %.2f", result.Validation.Confidence)
					if result.Validation.RetryCount > 0 {
						line += fmt.Sprintf(" after %d retry(ies)", result.Validation.RetryCount)
					}
				}
				fmt.Println(boldGreen("✔ " + line))
			default:
				fmt.Println(dim("(no matching context found)"))
			}

			if result.MessageID != "" {
				fmt.Println(dim("message " + result.MessageID + " — rate it with: answerctl feedback " + result.MessageID + " --up|--down"))
			}

			if sources {
				for i, src := range result.Sources {
					fmt.Printf("\n%s %s\n%s\n", dim(fmt.Sprintf("[%d]", i+1)), dim(fmt.Sprintf("similarity %.3f", src.Similarity)), src.Content)
				}
			}
			return nil
		},
	}
	cmd.Flags().String("session", "", "Session ID for multi-turn conversations")
	cmd.Flags().Bool("sources", false, "Print the retrieved source snippets")
	return cmd
}

func newFeedbackCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "feedback <message-id>",
		Short: "Rate an answer (thumbs up or down)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			up, _ := cmd.Flags().GetBool("up")
			down, _ := cmd.Flags().GetBool("down")
			comment, _ := cmd.Flags().GetString("comment")
			if up == down {
				return fmt.Errorf("pass exactly one of --up or --down")
			}

			rating := 0
			if up {
				rating = 1
			}
			body := map[string]interface{}{
				"message_id": args[0],
				"rating":     rating,
			}
			if comment != "" {
				body["comment"] = comment
			}

			var fb models.FeedbackEvent
			if err := newClient(cmd).do("POST", "/api/v1/feedback", body, &fb); err != nil {
				return err
			}

			jsonOut, _ := cmd.Flags().GetBool("json")
			if jsonOut {
				printJSON(fb)
				return nil
			}
			fmt.Printf("Feedback %s recorded for message %s\n", fb.ID, fb.MessageID)
			return nil
		},
	}
	cmd.Flags().Bool("up", false, "Positive rating")
	cmd.Flags().Bool("down", false, "Negative rating")
	cmd.Flags().String("comment", "", "Optional comment")
	return cmd
}
