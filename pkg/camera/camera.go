// Package camera captures JPEG frames from a local V4L2 webcam.
// It drives the device directly through ioctls with a single
// memory-mapped buffer, which is enough for one-shot captures.
package camera

import (
	"errors"
	"fmt"
	"os"
	"sync"
	"time"
	"unsafe"

	"github.com/mljr/facematch/pkg/logging"
	"golang.org/x/sys/unix"
)

// V4L2 ABI constants for the 64-bit struct layouts.
const (
	v4l2BufTypeVideoCapture = 1
	v4l2PixFmtJPEG          = 0x4745504a // 'JPEG' fourcc
	v4l2FieldNone           = 1
	v4l2MemoryMmap          = 1

	vidiocSFmt      = 0xc0d05605
	vidiocReqbufs   = 0xc0145608
	vidiocQuerybuf  = 0xc0585609
	vidiocQbuf      = 0xc058560f
	vidiocDqbuf     = 0xc0585611
	vidiocStreamon  = 0x40045612
	vidiocStreamoff = 0x40045613
)

type v4l2PixFormat struct {
	width        uint32
	height       uint32
	pixelformat  uint32
	field        uint32
	bytesperline uint32
	sizeimage    uint32
	colorspace   uint32
	priv         uint32
	flags        uint32
	ycbcrEnc     uint32
	quantization uint32
	xferFunc     uint32
}

type v4l2Format struct {
	typ uint32
	_   [4]byte // union alignment
	pix v4l2PixFormat
	_   [200 - unsafe.Sizeof(v4l2PixFormat{})]byte
}

type v4l2RequestBuffers struct {
	count    uint32
	typ      uint32
	memory   uint32
	reserved [2]uint32
}

type v4l2Timecode struct {
	typ      uint32
	flags    uint32
	frames   uint8
	seconds  uint8
	minutes  uint8
	hours    uint8
	userbits [4]uint8
}

type v4l2Buffer struct {
	index     uint32
	typ       uint32
	bytesused uint32
	flags     uint32
	field     uint32
	_         [4]byte // timestamp alignment
	timestamp unix.Timeval
	timecode  v4l2Timecode
	sequence  uint32
	memory    uint32
	m         uint64 // offset for mmap buffers
	length    uint32
	reserved2 uint32
	requestFD uint32
}

// Frame is a single captured camera frame.
type Frame struct {
	Data      []byte
	Width     int
	Height    int
	Format    string
	Timestamp time.Time
}

// ErrCameraNotFound is returned when the camera device does not exist.
var ErrCameraNotFound = errors.New("camera device not found")

// ErrCameraNotOpen is returned when capturing from a closed camera.
var ErrCameraNotOpen = errors.New("camera not open")

// ErrNoFrame is returned when no frame arrives before the deadline.
var ErrNoFrame = errors.New("failed to capture frame")

// Webcam is a V4L2 video capture device producing JPEG frames.
type Webcam struct {
	device string
	width  int
	height int

	mu   sync.Mutex
	fd   int
	data []byte
	open bool
}

// NewWebcam creates a Webcam for the device at the given resolution.
// The device is not opened until Open is called.
func NewWebcam(device string, width, height int) *Webcam {
	return &Webcam{
		device: device,
		width:  width,
		height: height,
		fd:     -1,
	}
}

// Open opens the device, configures JPEG capture and starts streaming.
func (w *Webcam) Open() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.open {
		return nil
	}

	fd, err := unix.Open(w.device, unix.O_RDWR|unix.O_NONBLOCK, 0)
	if err != nil {
		if errors.Is(err, unix.ENOENT) || errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("%w: %s", ErrCameraNotFound, w.device)
		}
		return fmt.Errorf("failed to open %s: %w", w.device, err)
	}
	w.fd = fd

	if err := w.startStream(); err != nil {
		_ = unix.Close(fd)
		w.fd = -1
		return err
	}

	w.open = true
	logging.Component("camera").Debugf("streaming from %s at %dx%d", w.device, w.width, w.height)
	return nil
}

func (w *Webcam) ioctl(req uintptr, arg unsafe.Pointer) error {
	_, _, errno := unix.Syscall(unix.SYS_IOCTL, uintptr(w.fd), req, uintptr(arg))
	if errno != 0 {
		return errno
	}
	return nil
}

func (w *Webcam) startStream() error {
	format := v4l2Format{typ: v4l2BufTypeVideoCapture}
	format.pix = v4l2PixFormat{
		width:       uint32(w.width),
		height:      uint32(w.height),
		pixelformat: v4l2PixFmtJPEG,
		field:       v4l2FieldNone,
	}
	if err := w.ioctl(vidiocSFmt, unsafe.Pointer(&format)); err != nil {
		return fmt.Errorf("failed to set capture format: %w", err)
	}

	req := v4l2RequestBuffers{
		count:  1,
		typ:    v4l2BufTypeVideoCapture,
		memory: v4l2MemoryMmap,
	}
	if err := w.ioctl(vidiocReqbufs, unsafe.Pointer(&req)); err != nil {
		return fmt.Errorf("failed to request buffer: %w", err)
	}

	buf := v4l2Buffer{
		typ:    v4l2BufTypeVideoCapture,
		memory: v4l2MemoryMmap,
	}
	if err := w.ioctl(vidiocQuerybuf, unsafe.Pointer(&buf)); err != nil {
		return fmt.Errorf("failed to query buffer: %w", err)
	}

	data, err := unix.Mmap(w.fd, int64(buf.m), int(buf.length),
		unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		return fmt.Errorf("failed to map buffer: %w", err)
	}
	w.data = data

	if err := w.ioctl(vidiocQbuf, unsafe.Pointer(&buf)); err != nil {
		return fmt.Errorf("failed to queue buffer: %w", err)
	}

	bufType := uint32(v4l2BufTypeVideoCapture)
	if err := w.ioctl(vidiocStreamon, unsafe.Pointer(&bufType)); err != nil {
		return fmt.Errorf("failed to start stream: %w", err)
	}

	return nil
}

// Capture waits for the next frame and returns a copy of it.
func (w *Webcam) Capture(timeout time.Duration) (Frame, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if !w.open {
		return Frame{}, ErrCameraNotOpen
	}

	// Wait for the driver to fill the buffer.
	var fds unix.FdSet
	fds.Set(w.fd)
	tv := unix.NsecToTimeval(timeout.Nanoseconds())
	n, err := unix.Select(w.fd+1, &fds, nil, nil, &tv)
	if err != nil {
		return Frame{}, fmt.Errorf("failed waiting for frame: %w", err)
	}
	if n == 0 {
		return Frame{}, fmt.Errorf("%w: timeout after %s", ErrNoFrame, timeout)
	}

	buf := v4l2Buffer{
		typ:    v4l2BufTypeVideoCapture,
		memory: v4l2MemoryMmap,
	}
	if err := w.ioctl(vidiocDqbuf, unsafe.Pointer(&buf)); err != nil {
		return Frame{}, fmt.Errorf("failed to dequeue buffer: %w", err)
	}

	frame := make([]byte, buf.bytesused)
	copy(frame, w.data)

	// Re-queue for the next capture.
	if err := w.ioctl(vidiocQbuf, unsafe.Pointer(&buf)); err != nil {
		return Frame{}, fmt.Errorf("failed to re-queue buffer: %w", err)
	}

	return Frame{
		Data:      frame,
		Width:     w.width,
		Height:    w.height,
		Format:    "JPEG",
		Timestamp: time.Now(),
	}, nil
}

// Close stops streaming and releases the device.
func (w *Webcam) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if !w.open {
		return nil
	}

	bufType := uint32(v4l2BufTypeVideoCapture)
	if err := w.ioctl(vidiocStreamoff, unsafe.Pointer(&bufType)); err != nil {
		logging.Component("camera").Warnf("failed to stop stream: %v", err)
	}

	if w.data != nil {
		_ = unix.Munmap(w.data)
		w.data = nil
	}

	err := unix.Close(w.fd)
	w.fd = -1
	w.open = false
	return err
}
