package printing

import (
	"bytes"
	"context"
	"errors"
	"fmt"
)

// fakeSpooler is an in-memory Spooler recording every call made on it.
type fakeSpooler struct {
	devices       []string
	defaultDevice string
	enumerateErr  error
	defaultErr    error
	openErr       error
	failAt        string

	enumerations int
	calls        []string
	handles      []*fakeHandle
}

func (s *fakeSpooler) Enumerate(ctx context.Context) ([]string, error) {
	s.enumerations++
	if s.enumerateErr != nil {
		return nil, s.enumerateErr
	}
	return append([]string(nil), s.devices...), nil
}

func (s *fakeSpooler) Default(ctx context.Context) (string, error) {
	return s.defaultDevice, s.defaultErr
}

func (s *fakeSpooler) Open(ctx context.Context, name string) (Handle, error) {
	s.calls = append(s.calls, "open:"+name)
	if s.openErr != nil {
		return nil, s.openErr
	}
	h := &fakeHandle{spooler: s, device: name}
	s.handles = append(s.handles, h)
	return h, nil
}

type fakeHandle struct {
	spooler *fakeSpooler
	device  string
	buf     bytes.Buffer
	closes  int
}

var errInjected = errors.New("injected failure")

func (h *fakeHandle) step(name string) error {
	h.spooler.calls = append(h.spooler.calls, name)
	if h.spooler.failAt == name {
		return errInjected
	}
	return nil
}

func (h *fakeHandle) BeginJob(name, datatype string) error {
	return h.step(fmt.Sprintf("begin_job:%s:%s", name, datatype))
}

func (h *fakeHandle) BeginPage() error { return h.step("begin_page") }

func (h *fakeHandle) Write(p []byte) (int, error) {
	if err := h.step("write"); err != nil {
		return 0, err
	}
	return h.buf.Write(p)
}

func (h *fakeHandle) EndPage() error { return h.step("end_page") }

func (h *fakeHandle) EndJob() error { return h.step("end_job") }

func (h *fakeHandle) Close() error {
	h.closes++
	return h.step("close")
}
