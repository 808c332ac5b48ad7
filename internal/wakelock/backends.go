package wakelock

import (
	"fmt"
	"net"
	"os"
	"sync"
	"syscall"
	"time"

	"github.com/godbus/dbus/v5"
)

// Backend kinds
const (
	KindLogind = "logind"
	KindSocket = "socket"
	KindKernel = "kernel"
	KindNone   = "none"
)

// DefaultSocketPath is the pm-service suspend inhibitor socket
const DefaultSocketPath = "/tmp/suspend_inhibitor"

// NewBackend creates the backend named kind
func NewBackend(kind, socketPath string) (Backend, error) {
	switch kind {
	case KindLogind:
		return NewLogind()
	case KindSocket:
		return NewSocket(socketPath), nil
	case KindKernel:
		return NewKernel(), nil
	case KindNone, "":
		return Nop{}, nil
	default:
		return nil, fmt.Errorf("unknown wake lock backend: %s", kind)
	}
}

// Nop accepts every request without doing anything
type Nop struct{}

func (Nop) Acquire(string, time.Duration) error { return nil }
func (Nop) Release(string) error                { return nil }
func (Nop) Close() error                        { return nil }

// Kernel uses the Android style /sys/power/wake_lock interface
type Kernel struct {
	lockPath   string
	unlockPath string
}

// NewKernel creates a backend on the standard sysfs paths
func NewKernel() *Kernel {
	return &Kernel{
		lockPath:   "/sys/power/wake_lock",
		unlockPath: "/sys/power/wake_unlock",
	}
}

// Available reports whether the kernel supports wake locks
func (k *Kernel) Available() bool {
	_, err := os.Stat(k.lockPath)
	return err == nil
}

func (k *Kernel) Acquire(name string, timeout time.Duration) error {
	data := name + "\n"
	if timeout > 0 {
		data = fmt.Sprintf("%s %d\n", name, timeout.Nanoseconds())
	}
	return writeFile(k.lockPath, data)
}

func (k *Kernel) Release(name string) error {
	return writeFile(k.unlockPath, name+"\n")
}

func (k *Kernel) Close() error {
	return nil
}

func writeFile(path, data string) error {
	f, err := os.OpenFile(path, os.O_WRONLY, 0)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	if _, err := f.WriteString(data); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}

// Logind holds a systemd-logind sleep inhibitor per wake lock
type Logind struct {
	conn  *dbus.Conn
	mutex sync.Mutex
	fds   map[string]dbus.UnixFD
}

// NewLogind connects to the system bus
func NewLogind() (*Logind, error) {
	conn, err := dbus.ConnectSystemBus()
	if err != nil {
		return nil, fmt.Errorf("failed to connect to system bus: %w", err)
	}
	return &Logind{
		conn: conn,
		fds:  make(map[string]dbus.UnixFD),
	}, nil
}

func (l *Logind) Acquire(name string, _ time.Duration) error {
	l.mutex.Lock()
	defer l.mutex.Unlock()

	if _, held := l.fds[name]; held {
		return nil
	}

	obj := l.conn.Object("org.freedesktop.login1", "/org/freedesktop/login1")

	var fd dbus.UnixFD
	err := obj.Call("org.freedesktop.login1.Manager.Inhibit", 0,
		"sleep", "als-service", name, "block").Store(&fd)
	if err != nil {
		return fmt.Errorf("failed to take logind inhibitor: %w", err)
	}

	l.fds[name] = fd
	return nil
}

func (l *Logind) Release(name string) error {
	l.mutex.Lock()
	defer l.mutex.Unlock()

	fd, held := l.fds[name]
	if !held {
		return nil
	}
	delete(l.fds, name)

	// Closing the inhibitor fd drops the inhibitor
	if err := syscall.Close(int(fd)); err != nil {
		return fmt.Errorf("failed to close inhibitor fd: %w", err)
	}
	return nil
}

func (l *Logind) Close() error {
	l.mutex.Lock()
	for name, fd := range l.fds {
		syscall.Close(int(fd))
		delete(l.fds, name)
	}
	l.mutex.Unlock()

	return l.conn.Close()
}

// Socket holds a connection to the pm-service inhibitor socket per wake
// lock. pm-service blocks suspend while the connection is open.
type Socket struct {
	path    string
	timeout time.Duration
	mutex   sync.Mutex
	conns   map[string]net.Conn
}

// NewSocket creates a backend for the inhibitor socket at path
func NewSocket(path string) *Socket {
	if path == "" {
		path = DefaultSocketPath
	}
	return &Socket{
		path:    path,
		timeout: 2 * time.Second,
		conns:   make(map[string]net.Conn),
	}
}

func (s *Socket) Acquire(name string, _ time.Duration) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if _, held := s.conns[name]; held {
		return nil
	}

	conn, err := net.DialTimeout("unix", s.path, s.timeout)
	if err != nil {
		return fmt.Errorf("failed to connect to %s: %w", s.path, err)
	}

	// The inhibitor is active once the acknowledgment byte arrives
	conn.SetReadDeadline(time.Now().Add(s.timeout))
	ack := make([]byte, 1)
	if _, err := conn.Read(ack); err != nil {
		conn.Close()
		return fmt.Errorf("no acknowledgment from %s: %w", s.path, err)
	}
	conn.SetReadDeadline(time.Time{})

	s.conns[name] = conn
	return nil
}

func (s *Socket) Release(name string) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	conn, held := s.conns[name]
	if !held {
		return nil
	}
	delete(s.conns, name)
	return conn.Close()
}

func (s *Socket) Close() error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	for name, conn := range s.conns {
		conn.Close()
		delete(s.conns, name)
	}
	return nil
}
