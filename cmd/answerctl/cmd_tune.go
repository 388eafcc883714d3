package main

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/answerdesk/answerdesk/pkg/models"
)

func newThresholdsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "thresholds",
		Short: "Show the current retrieval thresholds",
		RunE: func(cmd *cobra.Command, args []string) error {
			var resp struct {
				Version    int                    `json:"version"`
				Thresholds models.ThresholdConfig `json:"thresholds"`
			}
			if err := newClient(cmd).do("GET", "/api/v1/thresholds", nil, &resp); err != nil {
				return err
			}

			jsonOut, _ := cmd.Flags().GetBool("json")
			if jsonOut {
				printJSON(resp)
				return nil
			}

			fmt.Printf("version:               %d\n", resp.Version)
			fmt.Printf("similarity_threshold:  %.2f\n", resp.Thresholds.SimilarityThreshold)
			fmt.Printf("top_k:                 %d\n", resp.Thresholds.TopK)
			fmt.Printf("validation_confidence: %.2f\n", resp.Thresholds.ValidationConfidence)
			fmt.Printf("temperature:           %.2f\n", resp.Thresholds.Temperature)
			return nil
		},
	}
}

func newLearnCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "learn",
		Short: "Trigger a learning run over recent negative feedback",
		RunE: func(cmd *cobra.Command, args []string) error {
			var report models.LearningReport
			if err := newClient(cmd).do("POST", "/api/v1/learning/run", nil, &report); err != nil {
				return err
			}

			jsonOut, _ := cmd.Flags().GetBool("json")
			if jsonOut {
				printJSON(report)
				return nil
			}

			boldGreen := color.New(color.FgGreen, color.Bold).SprintFunc()
			dim := color.New(color.Faint).SprintFunc()

			fmt.Println(report.Message)
			if len(report.AdjustmentsApplied) == 0 {
				fmt.Println(dim("no threshold adjustments applied"))
				return nil
			}
			fmt.Println(boldGreen("adjustments applied:"))
			for key, change := range report.AdjustmentsApplied {
				fmt.Printf("  %s: %s\n", key, change)
			}
			return nil
		},
	}
}
