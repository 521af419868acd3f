package cmd

import (
	"fmt"

	"github.com/mljr/facematch/pkg/models"
	"github.com/spf13/cobra"
)

var downloadModelsCmd = &cobra.Command{
	Use:   "download-models",
	Short: "Download the dlib model files",
	Long: `Download and extract the dlib detection and recognition models into
the configured model directory. The files are fetched from dlib.net
and total roughly 120 MB compressed.`,
	RunE: runDownloadModels,
}

func init() {
	rootCmd.AddCommand(downloadModelsCmd)
}

func runDownloadModels(cmd *cobra.Command, args []string) error {
	dir := cfg.Recognition.ModelPath

	missing := models.Missing(dir)
	if len(missing) == 0 {
		fmt.Printf("All model files already present in %s\n", dir)
		return nil
	}

	fmt.Printf("Downloading %d model file(s) to %s\n", len(missing), dir)
	if err := models.Download(dir); err != nil {
		return err
	}
	fmt.Println("Done")
	return nil
}
