package printing

import (
	"context"
	"log/slog"
	"slices"

	"github.com/Lllllllleong/reportprinter/internal/models"
)

// Registry answers device questions against a fresh enumeration every time.
// Nothing is cached between calls, so a device removed from the system is
// reflected on the next query.
type Registry struct {
	spooler         Spooler
	fallbackDefault string
	logger          *slog.Logger
}

// NewRegistry creates a Registry. fallbackDefault is used as the default
// device when the subsystem reports none; it may be empty.
func NewRegistry(spooler Spooler, fallbackDefault string) *Registry {
	return &Registry{
		spooler:         spooler,
		fallbackDefault: fallbackDefault,
		logger:          slog.Default(),
	}
}

// WithLogger returns the registry with its logger replaced.
func (r *Registry) WithLogger(logger *slog.Logger) *Registry {
	if logger != nil {
		r.logger = logger
	}
	return r
}

// Enumerate returns the device names in the order given by the subsystem.
func (r *Registry) Enumerate(ctx context.Context) ([]string, error) {
	names, err := r.spooler.Enumerate(ctx)
	if err != nil {
		return nil, &DeviceQueryError{Op: "enumerate", Err: err}
	}
	return names, nil
}

// Devices returns the enumeration with the default device marked. A failure
// to read the default only leaves every device unmarked.
func (r *Registry) Devices(ctx context.Context) ([]models.Device, error) {
	names, err := r.Enumerate(ctx)
	if err != nil {
		return nil, err
	}
	def, err := r.DefaultDevice(ctx)
	if err != nil {
		r.logger.Debug("No default device to mark.", "error", err)
	}
	devices := make([]models.Device, 0, len(names))
	for _, name := range names {
		devices = append(devices, models.Device{Name: name, IsDefault: name == def})
	}
	return devices, nil
}

// IsAvailable reports whether name is present in a fresh enumeration.
func (r *Registry) IsAvailable(ctx context.Context, name string) (bool, error) {
	if name == "" {
		return false, nil
	}
	names, err := r.Enumerate(ctx)
	if err != nil {
		return false, err
	}
	return slices.Contains(names, name), nil
}

// DefaultDevice returns the subsystem default, falling back to the
// configured default.
func (r *Registry) DefaultDevice(ctx context.Context) (string, error) {
	name, err := r.spooler.Default(ctx)
	switch {
	case err != nil && r.fallbackDefault == "":
		return "", &DeviceQueryError{Op: "default", Err: err}
	case err != nil:
		r.logger.Warn("Could not read the system default device. Using the configured default.", "error", err, "device", r.fallbackDefault)
		return r.fallbackDefault, nil
	case name != "":
		return name, nil
	case r.fallbackDefault != "":
		return r.fallbackDefault, nil
	}
	return "", &DeviceQueryError{Op: "default", Err: ErrNoDefaultDevice}
}
