package stream

import (
	"github.com/ardnew/usbstream/pkg"
	"github.com/ardnew/usbstream/stream/driver"
)

// FrameFunc receives one video frame or mic block together with the argument
// given at registration. frame.Data is borrowed from the driver and is only
// valid until the function returns; use frame.Clone to retain it.
type FrameFunc func(frame *driver.Frame, arg any)

// StateFunc receives a device state change together with the argument given
// at registration.
type StateFunc func(state driver.State, arg any)

type frameRegistration struct {
	fn  FrameFunc
	arg any
}

type stateRegistration struct {
	fn  StateFunc
	arg any
}

// frameSlot maps a frame-producing kind to its callback slot.
func frameSlot(kind driver.Kind) (int, bool) {
	switch kind {
	case driver.KindUVC:
		return 0, true
	case driver.KindUACMic:
		return 1, true
	}
	return -1, false
}

// RegisterFrameCallback installs fn as the frame callback for kind, which
// must be driver.KindUVC or driver.KindUACMic. It replaces any previous
// registration for that kind. A nil fn is rejected with pkg.ErrNilCallback
// and the previous registration stays in place.
//
// The callback runs on a driver goroutine.
func (c *Controller) RegisterFrameCallback(kind driver.Kind, fn FrameFunc, arg any) error {
	const op = "register_frame_callback"
	slot, ok := frameSlot(kind)
	if !ok {
		return c.fail(op, kind.String(), pkg.ErrInvalidStream)
	}
	if fn == nil {
		return c.fail(op, kind.String(), pkg.ErrNilCallback)
	}
	c.frames[slot].Store(&frameRegistration{fn: fn, arg: arg})
	c.log.Debug("frame callback registered", "stream", kind.String())
	return nil
}

// RegisterStateCallback installs fn as the device state callback, replacing
// any previous registration. A nil fn is rejected with pkg.ErrNilCallback.
func (c *Controller) RegisterStateCallback(fn StateFunc, arg any) error {
	const op = "register_state_callback"
	if fn == nil {
		return c.fail(op, "", pkg.ErrNilCallback)
	}
	if err := c.drv.SetStateHandler(c.deliverState); err != nil {
		return c.fail(op, "", err)
	}
	c.state.Store(&stateRegistration{fn: fn, arg: arg})
	c.log.Debug("state callback registered")
	return nil
}

// RegisterFrame is the typed form of RegisterFrameCallback: fn receives arg
// as a T without a type assertion.
func RegisterFrame[T any](c *Controller, kind driver.Kind, fn func(*driver.Frame, T), arg T) error {
	if fn == nil {
		return c.RegisterFrameCallback(kind, nil, arg)
	}
	return c.RegisterFrameCallback(kind, func(f *driver.Frame, _ any) { fn(f, arg) }, arg)
}

// RegisterState is the typed form of RegisterStateCallback.
func RegisterState[T any](c *Controller, fn func(driver.State, T), arg T) error {
	if fn == nil {
		return c.RegisterStateCallback(nil, arg)
	}
	return c.RegisterStateCallback(func(s driver.State, _ any) { fn(s, arg) }, arg)
}

// =============================================================================
// Driver trampolines
// =============================================================================

// These run on driver goroutines. They only load the callback slots and
// never touch the stored configuration.

func (c *Controller) deliverVideo(f *driver.Frame) {
	if r := c.frames[0].Load(); r != nil {
		r.fn(f, r.arg)
	}
}

func (c *Controller) deliverMic(f *driver.Frame) {
	if r := c.frames[1].Load(); r != nil {
		r.fn(f, r.arg)
	}
}

func (c *Controller) deliverState(s driver.State) {
	c.log.Info("device state changed", "state", s.String())
	if r := c.state.Load(); r != nil {
		r.fn(s, r.arg)
	}
}
