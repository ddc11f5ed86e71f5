package main

import (
	"fmt"
	"os"
	"time"

	"golang.org/x/term"

	"github.com/cessnao3/scpu/vm"
)

// console puts stdin into raw mode and shuttles bytes between the host
// terminal and a SerialDevice's input/output queues, the way tty.go
// bridges a real TTY to the machine's keyboard and display devices.
// Restore must be called on every exit path to leave the terminal the
// way it was found.
type console struct {
	fd    int
	state *term.State
	done  chan struct{}
}

func newConsole(device *vm.SerialDevice) (*console, error) {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return nil, fmt.Errorf("console: stdin is not a terminal")
	}

	state, err := term.MakeRaw(fd)
	if err != nil {
		return nil, fmt.Errorf("console: %w", err)
	}

	c := &console{fd: fd, state: state, done: make(chan struct{})}
	go c.feedInput(device)
	go c.drainOutput(device)
	return c, nil
}

func (c *console) Restore() {
	close(c.done)
	_ = term.Restore(c.fd, c.state)
}

// feedInput reads raw bytes from stdin one at a time, so a raw-mode
// terminal's keystrokes land in the device's input FIFO unbuffered
// instead of waiting on a line the OS terminal driver would otherwise
// hold back.
func (c *console) feedInput(device *vm.SerialDevice) {
	buf := make([]byte, 1)
	for {
		select {
		case <-c.done:
			return
		default:
		}

		n, err := os.Stdin.Read(buf)
		if err != nil {
			return
		}
		if n > 0 {
			device.Feed(buf[:n])
		}
	}
}

// drainOutput polls the device's output queue and writes whatever is
// pending straight to the raw terminal.
func (c *console) drainOutput(device *vm.SerialDevice) {
	for {
		select {
		case <-c.done:
			return
		default:
		}

		if out := device.Drain(); len(out) > 0 {
			os.Stdout.Write(out)
			continue
		}
		time.Sleep(5 * time.Millisecond)
	}
}
