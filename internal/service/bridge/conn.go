package bridge

import (
	"context"
	"errors"
	"fmt"
	"net"
	"syscall"
	"time"
)

// PacketConn is the part of *net.UDPConn the session uses.
type PacketConn interface {
	ReadFromUDP(b []byte) (int, *net.UDPAddr, error)
	WriteToUDP(b []byte, addr *net.UDPAddr) (int, error)
	SetReadDeadline(t time.Time) error
	LocalAddr() net.Addr
	Close() error
}

// FrameRecorder receives a copy of every datagram that crosses the session.
type FrameRecorder interface {
	Record(src, dst *net.UDPAddr, payload []byte) error
}

// ErrNotUDP is returned when the listener is not a UDP socket.
var ErrNotUDP = errors.New("not a udp listener")

// Listen opens the UDP socket the session serves on.
func Listen(ctx context.Context, address string) (*net.UDPConn, error) {
	lc := net.ListenConfig{}

	pc, err := lc.ListenPacket(ctx, "udp", address)
	if err != nil {
		return nil, fmt.Errorf("listen udp %s: %w", address, err)
	}

	conn, ok := pc.(*net.UDPConn)
	if !ok {
		_ = pc.Close()

		return nil, fmt.Errorf("%w: %T", ErrNotUDP, pc)
	}

	return conn, nil
}

func udpAddr(addr net.Addr) *net.UDPAddr {
	if ua, ok := addr.(*net.UDPAddr); ok {
		return ua
	}

	return nil
}

// isTransient reports read errors caused by ICMP replies to earlier sends.
// The socket stays usable after them.
func isTransient(err error) bool {
	return errors.Is(err, syscall.ECONNRESET) || errors.Is(err, syscall.ECONNREFUSED)
}

func isTimeout(err error) bool {
	var ne net.Error

	return errors.As(err, &ne) && ne.Timeout()
}
