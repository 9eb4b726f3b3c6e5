package canbus

import (
	"encoding/binary"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"
)

// Cannelloni framing constants (protocol version 2, opcode DATA).
const (
	cannelloniVersion    = 2
	cannelloniOpCodeData = 0

	cannelloniHeaderLen = 5

	// maximum number of classic CAN messages fitting in one
	// udp/ipv4/ethernet packet
	defaultFramesPerDatagram = 113

	defaultDatagramSize = 1474
)

var errShortDatagram = errors.New("cannelloni: not enough data")

// CannelloniConfig configures a [Cannelloni] bus endpoint.
type CannelloniConfig struct {
	// LocalAddr is the UDP address the tunnel listens on.
	LocalAddr string
	// PeerAddr is the UDP address datagrams are sent to.
	PeerAddr string
}

func NewDefaultCannelloniConfig() *CannelloniConfig {
	return &CannelloniConfig{
		LocalAddr: "127.0.0.1:20000",
		PeerAddr:  "127.0.0.1:20001",
	}
}

// Cannelloni is a [Bus] that tunnels CAN frames over UDP using the
// cannelloni framing. One datagram may carry several frames; received
// frames are queued and handed out one at a time by TryReceive.
type Cannelloni struct {
	conn *net.UDPConn
	peer *net.UDPAddr

	mux     sync.Mutex
	pending []Frame
	seq     uint8

	readBuf []byte
}

// DialCannelloni opens a cannelloni tunnel endpoint.
func DialCannelloni(cfg *CannelloniConfig) (*Cannelloni, error) {
	localAddr, err := net.ResolveUDPAddr("udp", cfg.LocalAddr)
	if err != nil {
		return nil, fmt.Errorf("cannelloni: resolve local address: %w", err)
	}

	peerAddr, err := net.ResolveUDPAddr("udp", cfg.PeerAddr)
	if err != nil {
		return nil, fmt.Errorf("cannelloni: resolve peer address: %w", err)
	}

	conn, err := net.ListenUDP("udp", localAddr)
	if err != nil {
		return nil, fmt.Errorf("cannelloni: listen: %w", err)
	}

	return &Cannelloni{
		conn: conn,
		peer: peerAddr,

		readBuf: make([]byte, defaultDatagramSize),
	}, nil
}

// TryReceive returns the next tunnelled frame, if any.
// It polls the socket without blocking.
func (c *Cannelloni) TryReceive() (Frame, bool, error) {
	c.mux.Lock()
	defer c.mux.Unlock()

	if len(c.pending) == 0 {
		if err := c.poll(); err != nil {
			return Frame{}, false, err
		}
	}

	if len(c.pending) == 0 {
		return Frame{}, false, nil
	}

	frame := c.pending[0]
	c.pending = c.pending[1:]

	return frame, true, nil
}

func (c *Cannelloni) poll() error {
	if err := c.conn.SetReadDeadline(time.Now()); err != nil {
		return err
	}

	n, _, err := c.conn.ReadFromUDP(c.readBuf)
	if err != nil {
		var netErr net.Error
		if errors.As(err, &netErr) && netErr.Timeout() {
			return nil
		}
		return err
	}

	frames, _, err := decodeDatagram(c.readBuf[:n])
	if err != nil {
		return err
	}

	c.pending = append(c.pending, frames...)

	return nil
}

// Transmit sends one frame to the peer wrapped in a single-frame datagram.
func (c *Cannelloni) Transmit(frame Frame) error {
	c.mux.Lock()
	seq := c.seq
	c.seq++
	c.mux.Unlock()

	buf := encodeDatagram(seq, []Frame{frame})

	_, err := c.conn.WriteToUDP(buf, c.peer)
	return err
}

// Close closes the tunnel socket.
func (c *Cannelloni) Close() error {
	return c.conn.Close()
}

func encodeDatagram(seq uint8, frames []Frame) []byte {
	buf := make([]byte, cannelloniHeaderLen, cannelloniHeaderLen+len(frames)*(5+MaxDataLen))

	buf[0] = cannelloniVersion
	buf[1] = cannelloniOpCodeData
	buf[2] = seq
	binary.BigEndian.PutUint16(buf[3:5], uint16(len(frames)))

	for idx := range frames {
		frame := &frames[idx]

		var hdr [5]byte
		binary.BigEndian.PutUint32(hdr[0:4], frame.ID)
		hdr[4] = frame.Length

		buf = append(buf, hdr[:]...)
		buf = append(buf, frame.Data[:frame.Length]...)
	}

	return buf
}

func decodeDatagram(buf []byte) ([]Frame, uint8, error) {
	if len(buf) < cannelloniHeaderLen {
		return nil, 0, errShortDatagram
	}

	seq := buf[2]
	frameCount := binary.BigEndian.Uint16(buf[3:5])

	frames := make([]Frame, 0, frameCount)
	pos := cannelloniHeaderLen

	for range frameCount {
		frame, n, err := decodeTunnelledFrame(buf[pos:])
		if err != nil {
			return nil, seq, err
		}

		frames = append(frames, frame)
		pos += n
	}

	return frames, seq, nil
}

func decodeTunnelledFrame(buf []byte) (Frame, int, error) {
	if len(buf) < 5 {
		return Frame{}, 0, errShortDatagram
	}

	var frame Frame
	frame.ID = binary.BigEndian.Uint32(buf[0:4])

	n := 5
	dataLen := buf[4]

	// bit 7 of the length byte flags a CAN FD frame, which carries an
	// extra flags byte
	if dataLen&0x80 != 0 {
		if len(buf) < 6 {
			return Frame{}, 0, errShortDatagram
		}

		dataLen &= 0x7f
		n++
	}

	if dataLen > MaxDataLen {
		return Frame{}, 0, fmt.Errorf("cannelloni: frame payload too long: %d", dataLen)
	}

	if len(buf) < n+int(dataLen) {
		return Frame{}, 0, errShortDatagram
	}

	frame.Length = dataLen
	copy(frame.Data[:dataLen], buf[n:n+int(dataLen)])
	n += int(dataLen)

	return frame, n, nil
}
