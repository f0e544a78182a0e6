package printing

import "context"

// DatatypeRaw marks a job whose bytes are passed to the device untouched.
const DatatypeRaw = "RAW"

// SystemConfig locates the OS print subsystem. Only the CUPS spooler reads
// it; zero values select the local scheduler.
type SystemConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	TLS      bool
}

// Spooler is the capability set the dispatcher needs from an OS print
// subsystem.
type Spooler interface {
	// Enumerate lists the locally installed and connected devices in the
	// order reported by the subsystem. An empty list is not an error.
	Enumerate(ctx context.Context) ([]string, error)
	// Default returns the configured default device, or "" when there is none.
	Default(ctx context.Context) (string, error)
	// Open acquires a handle on the named device.
	Open(ctx context.Context, name string) (Handle, error)
}

// Handle is an open connection to a single device. Close must be called once
// the handle is no longer needed, whatever state the job is in.
type Handle interface {
	BeginJob(name, datatype string) error
	BeginPage() error
	Write(p []byte) (int, error)
	EndPage() error
	EndJob() error
	Close() error
}
