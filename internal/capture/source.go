package capture

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// ErrNoFrame indicates the source had nothing new to capture.
var ErrNoFrame = errors.New("no frame available")

// Frame is one captured image ready for upload.
type Frame struct {
	Name       string
	Data       []byte
	CapturedAt time.Time
	retries    int
}

// FrameSource produces frames for the agent loop.
type FrameSource interface {
	Capture(ctx context.Context) (*Frame, error)
}

// DirectorySource picks up image files dropped into a directory,
// newest first, consuming each file once. On the bench it stands in
// for the camera hardware.
type DirectorySource struct {
	dir  string
	seen map[string]struct{}
}

// NewDirectorySource watches dir for jpg/jpeg/png frames.
func NewDirectorySource(dir string) *DirectorySource {
	return &DirectorySource{dir: dir, seen: make(map[string]struct{})}
}

// Capture returns the newest unconsumed frame, or ErrNoFrame.
func (s *DirectorySource) Capture(ctx context.Context) (*Frame, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, err
	}

	var (
		newestPath string
		newestName string
		newestTime time.Time
	)
	for _, entry := range entries {
		if entry.IsDir() || !isImageFile(entry.Name()) {
			continue
		}
		if _, ok := s.seen[entry.Name()]; ok {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		if newestPath == "" || info.ModTime().After(newestTime) {
			newestPath = filepath.Join(s.dir, entry.Name())
			newestName = entry.Name()
			newestTime = info.ModTime()
		}
	}
	if newestPath == "" {
		return nil, ErrNoFrame
	}

	data, err := os.ReadFile(newestPath)
	if err != nil {
		return nil, err
	}
	s.seen[newestName] = struct{}{}

	return &Frame{
		Name:       newestName,
		Data:       data,
		CapturedAt: newestTime,
	}, nil
}

func isImageFile(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".jpg", ".jpeg", ".png":
		return true
	default:
		return false
	}
}
