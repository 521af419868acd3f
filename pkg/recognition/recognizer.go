// Package recognition wraps dlib/go-face for face detection and
// descriptor extraction, and owns the descriptor comparison rules.
package recognition

import (
	"errors"
	"fmt"
	"sync"

	"github.com/Kagami/go-face"
	"github.com/mljr/facematch/pkg/logging"
)

// Descriptor is a 128-dimensional face descriptor from dlib.
type Descriptor = face.Descriptor

// Face represents a detected face in an image.
type Face struct {
	BoundingBox Rectangle
	Descriptor  Descriptor
}

// Rectangle represents a bounding box.
type Rectangle struct {
	X, Y          int
	Width, Height int
}

// Area returns the pixel area of the bounding box.
func (r Rectangle) Area() int {
	return r.Width * r.Height
}

// ErrNoFaceDetected is returned when no face is found in the image.
var ErrNoFaceDetected = errors.New("no face detected")

// ErrModelNotLoaded is returned when models are not loaded.
var ErrModelNotLoaded = errors.New("recognition models not loaded")

// FaceEngine is the subset of go-face used by the recognizer.
// It exists so tests can substitute a fake engine.
type FaceEngine interface {
	Recognize(imgData []byte) ([]face.Face, error)
	Close()
}

// EngineFactory creates a FaceEngine for a model directory.
type EngineFactory func(modelPath string) (FaceEngine, error)

func dlibFactory(modelPath string) (FaceEngine, error) {
	return face.NewRecognizer(modelPath)
}

// Recognizer performs face detection and descriptor comparison
// using dlib via go-face.
type Recognizer struct {
	engine    FaceEngine
	factory   EngineFactory
	modelPath string
	loaded    bool
	threshold float64
	mu        sync.RWMutex
}

// NewRecognizer creates a Recognizer with the given match threshold.
// Descriptor pairs with a distance below the threshold count as the
// same person.
func NewRecognizer(threshold float64) *Recognizer {
	return &Recognizer{
		factory:   dlibFactory,
		threshold: threshold,
	}
}

// Threshold returns the configured match threshold.
func (r *Recognizer) Threshold() float64 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.threshold
}

// LoadModels loads the dlib models from the specified directory.
// The directory must contain:
//   - shape_predictor_5_face_landmarks.dat
//   - dlib_face_recognition_resnet_model_v1.dat
//   - mmod_human_face_detector.dat
func (r *Recognizer) LoadModels(modelPath string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.loaded {
		return nil
	}

	logging.Infof("Loading face recognition models from: %s", modelPath)

	engine, err := r.factory(modelPath)
	if err != nil {
		return fmt.Errorf("failed to load models: %w", err)
	}

	r.engine = engine
	r.modelPath = modelPath
	r.loaded = true

	logging.Info("Face recognition models loaded")
	return nil
}

// IsLoaded returns true if models are loaded.
func (r *Recognizer) IsLoaded() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.loaded
}

// Close releases the underlying engine.
func (r *Recognizer) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.engine != nil {
		r.engine.Close()
		r.engine = nil
	}
	r.loaded = false
	return nil
}

// DetectFaces detects all faces in a JPEG image.
func (r *Recognizer) DetectFaces(imageData []byte) ([]Face, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if !r.loaded {
		return nil, ErrModelNotLoaded
	}

	faces, err := r.engine.Recognize(imageData)
	if err != nil {
		return nil, fmt.Errorf("face detection failed: %w", err)
	}

	if len(faces) == 0 {
		return nil, ErrNoFaceDetected
	}

	result := make([]Face, len(faces))
	for i, f := range faces {
		rect := f.Rectangle
		result[i] = Face{
			BoundingBox: Rectangle{
				X:      rect.Min.X,
				Y:      rect.Min.Y,
				Width:  rect.Dx(),
				Height: rect.Dy(),
			},
			Descriptor: f.Descriptor,
		}
	}

	logging.Debugf("Detected %d face(s) in image", len(result))
	return result, nil
}

// DetectBestFace detects the single best face in the image.
// When several faces are present the largest detection wins; dlib
// reports no confidence, so bounding box area is the tie-breaker.
func (r *Recognizer) DetectBestFace(imageData []byte) (*Face, error) {
	faces, err := r.DetectFaces(imageData)
	if err != nil {
		return nil, err
	}

	best := 0
	for i := 1; i < len(faces); i++ {
		if faces[i].BoundingBox.Area() > faces[best].BoundingBox.Area() {
			best = i
		}
	}

	if len(faces) > 1 {
		logging.Debugf("Multiple faces detected, keeping the largest of %d", len(faces))
	}

	return &faces[best], nil
}

// Compare scores two descriptors against the configured threshold.
func (r *Recognizer) Compare(ref, probe Descriptor) Result {
	r.mu.RLock()
	threshold := r.threshold
	r.mu.RUnlock()

	return Score(ref, probe, threshold)
}
