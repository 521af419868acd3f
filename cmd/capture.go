package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/mljr/facematch/pkg/camera"
	"github.com/mljr/facematch/pkg/logging"
	"github.com/spf13/cobra"
)

var captureCmd = &cobra.Command{
	Use:   "capture <output.jpg>",
	Short: "Capture a single frame from the local webcam",
	Long: `Capture a single JPEG frame from the configured V4L2 camera device
and write it to the given file. Useful for producing probe images for
the compare command on headless machines.`,
	Args: cobra.ExactArgs(1),
	RunE: runCapture,
}

func init() {
	rootCmd.AddCommand(captureCmd)

	captureCmd.Flags().String("device", "", "camera device path (overrides config)")
	captureCmd.Flags().Duration("timeout", 5*time.Second, "how long to wait for a frame")
}

func runCapture(cmd *cobra.Command, args []string) error {
	device := cfg.Camera.Device
	if d, _ := cmd.Flags().GetString("device"); d != "" {
		device = d
	}
	timeout, _ := cmd.Flags().GetDuration("timeout")

	cam := camera.NewWebcam(device, cfg.Camera.Width, cfg.Camera.Height)
	if err := cam.Open(); err != nil {
		return fmt.Errorf("failed to open %s: %w", device, err)
	}
	defer func() { _ = cam.Close() }()

	frame, err := cam.Capture(timeout)
	if err != nil {
		return fmt.Errorf("capture failed: %w", err)
	}

	if err := os.WriteFile(args[0], frame.Data, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", args[0], err)
	}

	logging.WithFields(logging.Fields{
		"device": device,
		"bytes":  len(frame.Data),
		"width":  frame.Width,
		"height": frame.Height,
	}).Info("Frame captured")
	fmt.Printf("Wrote %d bytes to %s\n", len(frame.Data), args[0])
	return nil
}
