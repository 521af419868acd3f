// Package models manages the pre-trained dlib model files that
// go-face needs. It can verify their presence and download missing
// ones from dlib.net.
package models

import (
	"compress/bzip2"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/mljr/facematch/pkg/logging"
	"github.com/schollz/progressbar/v3"
)

// ModelFile describes one required model file.
type ModelFile struct {
	Name string
	URL  string
}

// Required lists the model files go-face expects in its model directory.
var Required = []ModelFile{
	{
		Name: "shape_predictor_5_face_landmarks.dat",
		URL:  "http://dlib.net/files/shape_predictor_5_face_landmarks.dat.bz2",
	},
	{
		Name: "dlib_face_recognition_resnet_model_v1.dat",
		URL:  "http://dlib.net/files/dlib_face_recognition_resnet_model_v1.dat.bz2",
	},
	{
		Name: "mmod_human_face_detector.dat",
		URL:  "http://dlib.net/files/mmod_human_face_detector.dat.bz2",
	},
}

// ErrModelsMissing is returned by Verify when model files are absent.
var ErrModelsMissing = errors.New("model files missing")

// downloadTimeout bounds a single model download. The resnet model is
// ~20MB compressed, so this is generous.
const downloadTimeout = 10 * time.Minute

// Missing returns the names of required model files absent from dir.
func Missing(dir string) []string {
	var missing []string
	for _, m := range Required {
		if _, err := os.Stat(filepath.Join(dir, m.Name)); err != nil {
			missing = append(missing, m.Name)
		}
	}
	return missing
}

// Verify checks that all required model files exist in dir.
func Verify(dir string) error {
	if missing := Missing(dir); len(missing) > 0 {
		return fmt.Errorf("%w in %s: %s (run 'facematch download-models')",
			ErrModelsMissing, dir, strings.Join(missing, ", "))
	}
	return nil
}

// Download fetches all missing model files into dir, showing a
// progress bar per file. Already present files are skipped.
func Download(dir string) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create model directory: %w", err)
	}

	for _, m := range Required {
		targetPath := filepath.Join(dir, m.Name)
		if _, err := os.Stat(targetPath); err == nil {
			logging.Infof("Model %s already exists, skipping", m.Name)
			continue
		}

		logging.Infof("Downloading %s...", m.Name)
		if err := downloadAndExtract(m.URL, targetPath, m.Name); err != nil {
			return fmt.Errorf("failed to download %s: %w", m.Name, err)
		}
		logging.Infof("Downloaded %s", m.Name)
	}

	return nil
}

func downloadAndExtract(url, targetPath, label string) error {
	client := &http.Client{
		Timeout: downloadTimeout,
	}

	resp, err := client.Get(url)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("bad status: %s", resp.Status)
	}

	out, err := os.Create(targetPath)
	if err != nil {
		return err
	}
	defer func() { _ = out.Close() }()

	bar := progressbar.DefaultBytes(resp.ContentLength, label)

	// The bar tracks compressed bytes read, the file gets the
	// decompressed stream.
	bz2Reader := bzip2.NewReader(io.TeeReader(resp.Body, bar))

	if _, err := io.Copy(out, bz2Reader); err != nil {
		_ = os.Remove(targetPath)
		return err
	}
	return nil
}
