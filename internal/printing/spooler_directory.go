package printing

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

// defaultDeviceFile names the file in the spool root holding the default
// device name.
const defaultDeviceFile = "default"

// DirectorySpooler exposes every sub-directory of a root as a virtual device.
// A job is written to a file inside the device directory and only keeps its
// final name once EndJob succeeds.
type DirectorySpooler struct {
	root string
}

// NewDirectorySpooler creates a DirectorySpooler rooted at root.
func NewDirectorySpooler(root string) (*DirectorySpooler, error) {
	if root == "" {
		return nil, fmt.Errorf("NewDirectorySpooler: root cannot be empty")
	}
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("failed to stat spool directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("spool root %s is not a directory", root)
	}
	return &DirectorySpooler{root: root}, nil
}

// Enumerate lists the device directories in directory order.
func (s *DirectorySpooler) Enumerate(ctx context.Context) ([]string, error) {
	entries, err := os.ReadDir(s.root)
	if err != nil {
		return nil, fmt.Errorf("failed to read spool directory: %w", err)
	}
	var names []string
	for _, e := range entries {
		if e.IsDir() && !strings.HasPrefix(e.Name(), ".") {
			names = append(names, e.Name())
		}
	}
	return names, nil
}

// Default reads the default device from the root's default file.
func (s *DirectorySpooler) Default(ctx context.Context) (string, error) {
	b, err := os.ReadFile(filepath.Join(s.root, defaultDeviceFile))
	if errors.Is(err, fs.ErrNotExist) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to read default device: %w", err)
	}
	return strings.TrimSpace(string(b)), nil
}

// Open returns a handle on the named device directory.
func (s *DirectorySpooler) Open(ctx context.Context, name string) (Handle, error) {
	if name == "" || name != filepath.Base(name) || strings.HasPrefix(name, ".") {
		return nil, fmt.Errorf("%w: %q", ErrDeviceNotFound, name)
	}
	dir := filepath.Join(s.root, name)
	info, err := os.Stat(dir)
	if err != nil || !info.IsDir() {
		return nil, fmt.Errorf("%w: %q", ErrDeviceNotFound, name)
	}
	return &directoryHandle{dir: dir}, nil
}

var unsafeJobChars = regexp.MustCompile(`[^a-zA-Z0-9]+`)

type directoryHandle struct {
	dir     string
	file    *os.File
	jobName string
	inPage  bool
	closed  bool
}

func (h *directoryHandle) BeginJob(name, datatype string) error {
	if h.closed || h.file != nil {
		return fmt.Errorf("%w: job already started", ErrJobState)
	}
	if datatype != DatatypeRaw {
		return fmt.Errorf("unsupported datatype %q", datatype)
	}
	h.jobName = strings.Trim(unsafeJobChars.ReplaceAllString(strings.ToLower(name), "_"), "_")
	if h.jobName == "" {
		h.jobName = "job"
	}
	f, err := os.CreateTemp(h.dir, "."+h.jobName+"-*.part")
	if err != nil {
		return fmt.Errorf("failed to create spool file: %w", err)
	}
	h.file = f
	return nil
}

func (h *directoryHandle) BeginPage() error {
	if h.file == nil || h.inPage {
		return fmt.Errorf("%w: begin page outside a job", ErrJobState)
	}
	h.inPage = true
	return nil
}

func (h *directoryHandle) Write(p []byte) (int, error) {
	if !h.inPage {
		return 0, fmt.Errorf("%w: write outside a page", ErrJobState)
	}
	return h.file.Write(p)
}

func (h *directoryHandle) EndPage() error {
	if !h.inPage {
		return fmt.Errorf("%w: end page without begin page", ErrJobState)
	}
	h.inPage = false
	return nil
}

// EndJob finalizes the spool file under a visible name.
func (h *directoryHandle) EndJob() error {
	if h.file == nil || h.inPage {
		return fmt.Errorf("%w: end job with an open page or no job", ErrJobState)
	}
	f := h.file
	h.file = nil
	if err := f.Close(); err != nil {
		os.Remove(f.Name())
		return fmt.Errorf("failed to finalize spool file: %w", err)
	}
	final := strings.TrimSuffix(strings.TrimPrefix(filepath.Base(f.Name()), "."), ".part") + ".raw"
	if err := os.Rename(f.Name(), filepath.Join(h.dir, final)); err != nil {
		os.Remove(f.Name())
		return fmt.Errorf("failed to publish spool file: %w", err)
	}
	return nil
}

// Close discards an unfinished job.
func (h *directoryHandle) Close() error {
	if h.closed {
		return nil
	}
	h.closed = true
	if h.file != nil {
		name := h.file.Name()
		h.file.Close()
		h.file = nil
		return os.Remove(name)
	}
	return nil
}
