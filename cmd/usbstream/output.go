package main

import (
	"fmt"
	"io"
	"sync"

	"github.com/fatih/color"

	"github.com/ardnew/usbstream/stream/driver"
)

var (
	connectedColor    = color.New(color.FgGreen, color.Bold)
	disconnectedColor = color.New(color.FgYellow)
	errorColor        = color.New(color.FgRed, color.Bold)
	headingColor      = color.New(color.FgCyan, color.Bold)
	currentColor      = color.New(color.FgGreen)
)

// statePrinter writes device state changes as they arrive. It is called
// from driver goroutines.
type statePrinter struct {
	w  io.Writer
	mu sync.Mutex
}

func (p *statePrinter) print(s driver.State) {
	p.mu.Lock()
	defer p.mu.Unlock()

	c := disconnectedColor
	switch s {
	case driver.StateConnected:
		c = connectedColor
	case driver.StateError:
		c = errorColor
	}
	c.Fprintf(p.w, "device %s\n", s)
}

func heading(w io.Writer, format string, args ...any) {
	headingColor.Fprintf(w, format+"\n", args...)
}

// marker prefixes the entry in use.
func marker(w io.Writer, current bool) {
	if current {
		currentColor.Fprint(w, "* ")
		return
	}
	fmt.Fprint(w, "  ")
}
