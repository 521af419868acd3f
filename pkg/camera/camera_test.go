package camera

import (
	"errors"
	"path/filepath"
	"testing"
	"time"
	"unsafe"
)

func TestNewWebcam(t *testing.T) {
	w := NewWebcam("/dev/video0", 640, 480)
	if w.device != "/dev/video0" {
		t.Errorf("expected device /dev/video0, got %s", w.device)
	}
	if w.width != 640 || w.height != 480 {
		t.Errorf("expected 640x480, got %dx%d", w.width, w.height)
	}
	if w.open {
		t.Error("expected camera to start closed")
	}
}

func TestOpenMissingDevice(t *testing.T) {
	w := NewWebcam(filepath.Join(t.TempDir(), "video42"), 640, 480)

	err := w.Open()
	if !errors.Is(err, ErrCameraNotFound) {
		t.Errorf("expected ErrCameraNotFound, got %v", err)
	}
}

func TestCaptureNotOpen(t *testing.T) {
	w := NewWebcam("/dev/video0", 640, 480)

	if _, err := w.Capture(time.Second); !errors.Is(err, ErrCameraNotOpen) {
		t.Errorf("expected ErrCameraNotOpen, got %v", err)
	}
}

func TestCloseNotOpen(t *testing.T) {
	w := NewWebcam("/dev/video0", 640, 480)
	if err := w.Close(); err != nil {
		t.Errorf("Close on unopened camera failed: %v", err)
	}
}

// The ioctl request codes encode the argument struct sizes; a layout
// drift would break every call at runtime.
func TestStructLayouts(t *testing.T) {
	if size := unsafe.Sizeof(v4l2Format{}); size != 208 {
		t.Errorf("v4l2Format size = %d, want 208", size)
	}
	if size := unsafe.Sizeof(v4l2Buffer{}); size != 88 {
		t.Errorf("v4l2Buffer size = %d, want 88", size)
	}
	if size := unsafe.Sizeof(v4l2RequestBuffers{}); size != 20 {
		t.Errorf("v4l2RequestBuffers size = %d, want 20", size)
	}
}
