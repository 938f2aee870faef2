package capture

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"sync"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/pcapgo"

	"github.com/oshokin/xrp-sim/internal/clock"
)

const (
	// snapshotLength fits the largest UDP datagram with its headers.
	snapshotLength = 65535 + 128
	ipTTL          = 64
)

var (
	// ErrMissingAddress is returned when a datagram has no source or destination.
	ErrMissingAddress = errors.New("missing address")
	// ErrClosed is returned by Record after Close.
	ErrClosed = errors.New("capture closed")
)

// Writer appends datagrams to a pcap stream. It is safe for concurrent use.
type Writer struct {
	mu     sync.Mutex
	clock  clock.Clock
	buf    *bufio.Writer
	pcap   *pcapgo.Writer
	closer io.Closer
	count  int
}

// Create truncates path and starts a capture in it.
func Create(path string, c clock.Clock) (*Writer, error) {
	f, err := os.Create(path) //nolint:gosec // Path comes from the operator.
	if err != nil {
		return nil, fmt.Errorf("create capture file: %w", err)
	}

	w, err := NewWriter(f, c)
	if err != nil {
		_ = f.Close()

		return nil, err
	}

	w.closer = f

	return w, nil
}

// NewWriter writes the pcap file header to out and returns a Writer.
func NewWriter(out io.Writer, c clock.Clock) (*Writer, error) {
	buf := bufio.NewWriter(out)
	pw := pcapgo.NewWriter(buf)

	if err := pw.WriteFileHeader(snapshotLength, layers.LinkTypeEthernet); err != nil {
		return nil, fmt.Errorf("write pcap header: %w", err)
	}

	return &Writer{
		clock: clock.OrReal(c),
		buf:   buf,
		pcap:  pw,
	}, nil
}

// Record appends one UDP datagram sent from src to dst.
func (w *Writer) Record(src, dst *net.UDPAddr, payload []byte) error {
	if src == nil || dst == nil {
		return ErrMissingAddress
	}

	frame, err := serialize(src, dst, payload)
	if err != nil {
		return err
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	if w.pcap == nil {
		return ErrClosed
	}

	ci := gopacket.CaptureInfo{
		Timestamp:     w.clock.Now(),
		CaptureLength: len(frame),
		Length:        len(frame),
	}

	if err = w.pcap.WritePacket(ci, frame); err != nil {
		return fmt.Errorf("write packet: %w", err)
	}

	w.count++

	return nil
}

// Count returns how many datagrams were recorded.
func (w *Writer) Count() int {
	w.mu.Lock()
	defer w.mu.Unlock()

	return w.count
}

// Close flushes buffered packets and closes the file opened by Create.
func (w *Writer) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.pcap == nil {
		return nil
	}

	w.pcap = nil

	err := w.buf.Flush()
	if err != nil {
		err = fmt.Errorf("flush capture: %w", err)
	}

	if w.closer != nil {
		if closeErr := w.closer.Close(); closeErr != nil && err == nil {
			err = fmt.Errorf("close capture: %w", closeErr)
		}
	}

	return err
}

func serialize(src, dst *net.UDPAddr, payload []byte) ([]byte, error) {
	udp := &layers.UDP{
		SrcPort: layers.UDPPort(src.Port), //nolint:gosec // Ports fit in 16 bits.
		DstPort: layers.UDPPort(dst.Port), //nolint:gosec // Ports fit in 16 bits.
	}

	eth := &layers.Ethernet{
		SrcMAC: net.HardwareAddr{0x02, 0, 0, 0, 0, 1},
		DstMAC: net.HardwareAddr{0x02, 0, 0, 0, 0, 2},
	}

	var network gopacket.SerializableLayer

	src4, dst4 := src.IP.To4(), dst.IP.To4()
	if src4 != nil && dst4 != nil {
		ip := &layers.IPv4{
			Version:  4,
			TTL:      ipTTL,
			Protocol: layers.IPProtocolUDP,
			SrcIP:    src4,
			DstIP:    dst4,
		}
		eth.EthernetType = layers.EthernetTypeIPv4
		network = ip

		if err := udp.SetNetworkLayerForChecksum(ip); err != nil {
			return nil, fmt.Errorf("udp checksum: %w", err)
		}
	} else {
		ip := &layers.IPv6{
			Version:    6,
			HopLimit:   ipTTL,
			NextHeader: layers.IPProtocolUDP,
			SrcIP:      ipv6(src.IP),
			DstIP:      ipv6(dst.IP),
		}
		eth.EthernetType = layers.EthernetTypeIPv6
		network = ip

		if err := udp.SetNetworkLayerForChecksum(ip); err != nil {
			return nil, fmt.Errorf("udp checksum: %w", err)
		}
	}

	buf := gopacket.NewSerializeBuffer()
	opts := gopacket.SerializeOptions{FixLengths: true, ComputeChecksums: true}

	if err := gopacket.SerializeLayers(buf, opts, eth, network, udp, gopacket.Payload(payload)); err != nil {
		return nil, fmt.Errorf("serialize datagram: %w", err)
	}

	return buf.Bytes(), nil
}

// ipv6 returns ip as 16 bytes; unspecified addresses become ::.
func ipv6(ip net.IP) net.IP {
	if v6 := ip.To16(); v6 != nil {
		return v6
	}

	return net.IPv6unspecified
}
