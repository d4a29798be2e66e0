package controller

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"unsafe"

	"golang.org/x/sys/unix"
)

var (
	// ErrDeviceNotFound means the configured device node does not exist,
	// typically because the gamepad is not paired or powered on.
	ErrDeviceNotFound = errors.New("input device not found")

	// ErrDeviceIO means the event stream failed mid-read, typically a
	// Bluetooth disconnect. The stream is not restartable.
	ErrDeviceIO = errors.New("input device I/O error")
)

// Event is one decoded input event.
type Event struct {
	Type  uint16
	Code  uint16
	Value int32
}

// Device is the raw event source consumed by the input engine. ReadEvent
// blocks until an event arrives or the stream fails.
type Device interface {
	Name() string
	ReadEvent() (Event, error)
	Close() error
}

// OpenFunc opens the device at the given locator. Injected so tests can
// supply a scripted device.
type OpenFunc func(path string) (Device, error)

// evdev input events are 16-byte records: two 32-bit timestamp words
// followed by type, code and value.
const eventSize = 16

// EVIOCGNAME(256): read the device name string.
const evdevNameIoctl = 0x81004506

type evdevDevice struct {
	file *os.File
	name string
	buf  [eventSize]byte
}

// OpenEvdev opens a /dev/input/event* node for reading.
func OpenEvdev(path string) (Device, error) {
	file, err := os.OpenFile(path, os.O_RDONLY, 0)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrDeviceNotFound, path)
		}
		return nil, fmt.Errorf("failed to open input device %s: %w", path, err)
	}

	d := &evdevDevice{file: file}
	d.name = d.readName()
	return d, nil
}

func (d *evdevDevice) readName() string {
	buf := make([]byte, 256)
	_, _, errno := unix.Syscall(
		unix.SYS_IOCTL,
		d.file.Fd(),
		uintptr(evdevNameIoctl),
		uintptr(unsafe.Pointer(&buf[0])),
	)
	if errno != 0 {
		return "unknown"
	}
	return strings.TrimRight(string(buf), "\x00")
}

func (d *evdevDevice) Name() string {
	return d.name
}

func (d *evdevDevice) ReadEvent() (Event, error) {
	if _, err := io.ReadFull(d.file, d.buf[:]); err != nil {
		return Event{}, fmt.Errorf("%w: %v", ErrDeviceIO, err)
	}
	return Event{
		Type:  binary.LittleEndian.Uint16(d.buf[8:10]),
		Code:  binary.LittleEndian.Uint16(d.buf[10:12]),
		Value: int32(binary.LittleEndian.Uint32(d.buf[12:16])),
	}, nil
}

func (d *evdevDevice) Close() error {
	return d.file.Close()
}
