// Package camera captures dinner photos and stores them remotely. Results
// are reported on the bus as CAMERA_STARTED, CAPTURED or CAMERA_ERROR.
package camera

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"sync"

	"github.com/dukerupert/kinboard/internal/bus"
	"github.com/dukerupert/kinboard/internal/event"
)

var (
	ErrNotStarted     = errors.New("camera not started")
	ErrNoImageStorage = errors.New("image storage not configured")
)

// Camera is a source of still images.
type Camera interface {
	Start(ctx context.Context) error
	// Capture returns the encoded image and its content type.
	Capture(ctx context.Context) ([]byte, string, error)
	Stop()
}

// Uploader stores a captured image and returns its source.
type Uploader interface {
	Put(ctx context.Context, data []byte, contentType string) (string, error)
}

// FileCamera "captures" the image file at Path. It stands in for a device
// camera on hosts that have none.
type FileCamera struct {
	Path string
}

func (c *FileCamera) Start(context.Context) error {
	if c.Path == "" {
		return fmt.Errorf("no image file configured")
	}
	if _, err := os.Stat(c.Path); err != nil {
		return fmt.Errorf("open camera: %w", err)
	}
	return nil
}

func (c *FileCamera) Capture(context.Context) ([]byte, string, error) {
	data, err := os.ReadFile(c.Path)
	if err != nil {
		return nil, "", fmt.Errorf("read image: %w", err)
	}
	return data, http.DetectContentType(data), nil
}

func (c *FileCamera) Stop() {}

// Service drives a Camera for the image-capture feature.
type Service struct {
	camera Camera
	store  Uploader
	bus    *bus.Bus
	logger *slog.Logger

	mu      sync.Mutex
	started bool
}

// NewService creates the capture service. store may be nil, in which case
// every capture fails with ErrNoImageStorage.
func NewService(cam Camera, store Uploader, b *bus.Bus, logger *slog.Logger) *Service {
	return &Service{
		camera: cam,
		store:  store,
		bus:    b,
		logger: logger.With("component", "camera"),
	}
}

func (s *Service) Start(ctx context.Context) {
	if s.store == nil {
		s.fail(ErrNoImageStorage)
		return
	}
	if err := s.camera.Start(ctx); err != nil {
		s.fail(err)
		return
	}
	s.mu.Lock()
	s.started = true
	s.mu.Unlock()
	s.bus.Publish(event.New(event.CameraStarted, nil))
}

func (s *Service) Capture(ctx context.Context) {
	s.mu.Lock()
	started := s.started
	s.mu.Unlock()
	if !started {
		s.fail(ErrNotStarted)
		return
	}

	data, contentType, err := s.camera.Capture(ctx)
	if err != nil {
		s.fail(err)
		return
	}
	src, err := s.store.Put(ctx, data, contentType)
	if err != nil {
		s.fail(err)
		return
	}
	s.logger.Info("image captured", "src", src, "bytes", len(data))
	s.bus.Publish(event.New(event.Captured, event.Image{Src: src}))
}

// Stop releases the camera.
func (s *Service) Stop() {
	s.mu.Lock()
	started := s.started
	s.started = false
	s.mu.Unlock()
	if started {
		s.camera.Stop()
	}
}

func (s *Service) fail(err error) {
	s.logger.Warn("camera failure", "error", err)
	s.bus.Publish(event.New(event.CameraError, event.Failure{Message: err.Error()}))
}
