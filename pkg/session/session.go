// Package session holds the transient state of a face comparison:
// one reference descriptor, one captured descriptor, and the result
// computed from them. Everything here is cleared on reset.
package session

import (
	"errors"
	"sync"
	"time"

	"github.com/mljr/facematch/pkg/recognition"
)

// State describes which inputs a session currently holds.
type State string

const (
	// StateReady means neither descriptor is present.
	StateReady State = "ready"
	// StateAwaitingCapture means only the reference is present.
	StateAwaitingCapture State = "awaiting_capture"
	// StateAwaitingReference means only the capture is present.
	StateAwaitingReference State = "awaiting_reference"
	// StateComplete means both descriptors are present.
	StateComplete State = "complete"
)

// ErrMissingReference is returned when comparing without a reference face.
var ErrMissingReference = errors.New("no reference face uploaded")

// ErrMissingCapture is returned when comparing without a captured frame.
var ErrMissingCapture = errors.New("no camera frame captured")

// Side identifies one of the two comparison inputs.
type Side string

const (
	SideReference Side = "reference"
	SideCapture   Side = "capture"
)

// Session is one browser's comparison state.
type Session struct {
	ID        string
	CreatedAt time.Time

	mu         sync.Mutex
	lastActive time.Time
	reference  *recognition.Descriptor
	capture    *recognition.Descriptor
	refImage   []byte
	capImage   []byte
	result     *recognition.Result
}

// Snapshot is the JSON view of a session.
type Snapshot struct {
	ID           string              `json:"id"`
	State        State               `json:"state"`
	HasReference bool                `json:"has_reference"`
	HasCapture   bool                `json:"has_capture"`
	Result       *recognition.Result `json:"result,omitempty"`
	CreatedAt    time.Time           `json:"created_at"`
}

func newSession(id string, now time.Time) *Session {
	return &Session{
		ID:         id,
		CreatedAt:  now,
		lastActive: now,
	}
}

// SetFace stores the descriptor and source image for one side.
// Replacing a side invalidates any previously computed result.
func (s *Session) SetFace(side Side, desc recognition.Descriptor, image []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastActive = time.Now()

	d := desc
	switch side {
	case SideReference:
		s.reference = &d
		s.refImage = image
	case SideCapture:
		s.capture = &d
		s.capImage = image
	}
	s.result = nil
}

// Image returns the stored source image for one side, or nil.
func (s *Session) Image(side Side) []byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastActive = time.Now()

	if side == SideReference {
		return s.refImage
	}
	return s.capImage
}

// Compare scores the two stored descriptors against the threshold.
// It fails with an error naming the missing side when the session
// is incomplete.
func (s *Session) Compare(threshold float64) (recognition.Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastActive = time.Now()

	if s.reference == nil {
		return recognition.Result{}, ErrMissingReference
	}
	if s.capture == nil {
		return recognition.Result{}, ErrMissingCapture
	}

	result := recognition.Score(*s.reference, *s.capture, threshold)
	s.result = &result
	return result, nil
}

// Reset clears both images, both descriptors, and the result.
func (s *Session) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastActive = time.Now()

	s.reference = nil
	s.capture = nil
	s.refImage = nil
	s.capImage = nil
	s.result = nil
}

// State reports which inputs the session holds.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stateLocked()
}

func (s *Session) stateLocked() State {
	switch {
	case s.reference != nil && s.capture != nil:
		return StateComplete
	case s.reference != nil:
		return StateAwaitingCapture
	case s.capture != nil:
		return StateAwaitingReference
	default:
		return StateReady
	}
}

// Snapshot returns the JSON view of the session.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	return Snapshot{
		ID:           s.ID,
		State:        s.stateLocked(),
		HasReference: s.reference != nil,
		HasCapture:   s.capture != nil,
		Result:       s.result,
		CreatedAt:    s.CreatedAt,
	}
}

func (s *Session) idleSince() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastActive
}
