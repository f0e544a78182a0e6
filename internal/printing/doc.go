// Package printing discovers output devices and streams rendered artifacts to
// them through the operating system print queue.
//
// The package never talks to a platform API directly. A Spooler provides
// device enumeration and raw job handles. The system spooler speaks IPP to
// CUPS on Unix and uses winspool on Windows. A directory-backed spooler is
// available for virtual devices.
//
//	spooler, _ := printing.NewSystemSpooler(printing.SystemConfig{}, logger)
//	registry := printing.NewRegistry(spooler, "")
//	dispatcher := printing.NewDispatcher(spooler, registry)
//	result, err := dispatcher.Submit(ctx, "summary.pdf", "")
package printing
