package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/mljr/facematch/pkg/models"
	"github.com/mljr/facematch/pkg/recognition"
	"github.com/mljr/facematch/pkg/storage"
	"github.com/spf13/cobra"
)

var compareCmd = &cobra.Command{
	Use:   "compare <reference> <probe>",
	Short: "Compare the faces in two image files",
	Long: `Compare the largest face found in each of two image files and print
the distance, similarity percentage and match verdict.`,
	Args: cobra.ExactArgs(2),
	RunE: runCompare,
}

func init() {
	rootCmd.AddCommand(compareCmd)

	compareCmd.Flags().Float64("threshold", 0, "match threshold (overrides config)")
	compareCmd.Flags().Bool("no-history", false, "do not record the result in the comparison history")
}

func runCompare(cmd *cobra.Command, args []string) error {
	if t, _ := cmd.Flags().GetFloat64("threshold"); t > 0 {
		cfg.Recognition.Threshold = t
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	if err := models.Verify(cfg.Recognition.ModelPath); err != nil {
		return err
	}

	recognizer := recognition.NewRecognizer(cfg.Recognition.Threshold)
	defer func() { _ = recognizer.Close() }()

	if err := recognizer.LoadModels(cfg.Recognition.ModelPath); err != nil {
		return fmt.Errorf("failed to load models: %w", err)
	}

	faces := make([]recognition.Face, 0, 2)
	for _, path := range args {
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", path, err)
		}
		face, err := recognizer.DetectBestFace(data)
		if err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
		faces = append(faces, *face)
	}

	result := recognizer.Compare(faces[0].Descriptor, faces[1].Descriptor)

	fmt.Printf("Distance:   %.4f\n", result.Distance)
	fmt.Printf("Similarity: %.1f%%\n", result.Similarity)
	if result.Match {
		fmt.Println("Verdict:    MATCH")
	} else {
		fmt.Println("Verdict:    NO MATCH")
	}

	if noHistory, _ := cmd.Flags().GetBool("no-history"); noHistory {
		return nil
	}
	if err := cfg.EnsureDirectories(); err != nil {
		return err
	}
	history, err := storage.NewHistoryStore(cfg.HistoryPath(), cfg.Storage.HistoryLimit,
		cfg.Storage.EncryptionEnabled)
	if err != nil {
		return err
	}
	return history.Append(storage.Record{
		Time:       time.Now(),
		SessionID:  "cli",
		Distance:   result.Distance,
		Similarity: result.Similarity,
		Match:      result.Match,
	})
}
