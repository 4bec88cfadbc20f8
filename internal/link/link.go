// Package link implements the host-side Link: a framed, checksum-guarded
// transport with a reader and writer task connected to the rest of the
// system by a bounded queue, a drop-oldest outgoing policy, and a PING/PONG
// heartbeat. Link does not redial: when the transport fails it is closed
// and dropped, and the Link stays disconnected until Connect is called
// with a new one. Grounded on SO101Controller (controller.go: a
// mutex-protected connection, a sendPacket/readResponse pair,
// reconnect-on-demand) and the original source's Controller::worker/
// PingTask (controller/src/controller/Controller.cpp,
// controller/src/controller/tasks/PingTask.cpp), adapted from a binary
// Feetech-style packet to the text line protocol in internal/protocol.
package link

import (
	"bufio"
	"context"
	"io"
	"sync"
	"time"

	"go.viam.com/rdk/logging"

	"github.com/opsnlops/creature-controller-go/internal/bus"
	"github.com/opsnlops/creature-controller-go/internal/errkind"
	"github.com/opsnlops/creature-controller-go/internal/protocol"
	"github.com/opsnlops/creature-controller-go/internal/session"
)

// outgoingQueueDepth bounds the outgoing queue; beyond this, a drop-oldest
// policy kicks in (position messages are idempotent, so a stale one is
// worse than none).
const outgoingQueueDepth = 64

// PongTimeoutIntervals is how many missed heartbeat intervals mark the
// link unhealthy.
const PongTimeoutIntervals = 3

const pingInterval = 5 * time.Second

// Link owns one physical connection to a firmware module: a reader
// goroutine that verifies checksums and dispatches messages, a writer
// goroutine that drains the outgoing queue, and a ping task that drives
// the heartbeat. It is the sole owner of the underlying transport.
type Link struct {
	logger  logging.Logger
	session *session.Machine

	mu        sync.Mutex
	transport io.ReadWriteCloser
	connected bool

	outgoing *bus.Queue[protocol.Message]

	checksumErrors  uint64
	lastPongAt      time.Time
	missedPongCount int

	// OnMessage is invoked for every successfully parsed, checksum-valid
	// incoming message (excluding Pong, which Link handles itself for the
	// heartbeat). It runs on the reader goroutine, so handlers must not
	// block.
	OnMessage func(protocol.Message)
}

// New constructs a disconnected Link. Connect must be called before Run.
func New(logger logging.Logger, sess *session.Machine) *Link {
	return &Link{
		logger:   logger,
		session:  sess,
		outgoing: bus.NewQueue[protocol.Message](outgoingQueueDepth, true),
	}
}

// Connect binds a transport. Any previously bound transport is closed
// first. Connecting resets the checksum-error-free connected state but not
// the cumulative checksum error counter.
func (l *Link) Connect(t io.ReadWriteCloser) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.transport != nil {
		l.transport.Close()
	}
	l.transport = t
	l.connected = true
	l.missedPongCount = 0
	l.lastPongAt = time.Now()
}

// Connected reports whether Link currently has a live transport.
func (l *Link) Connected() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.connected
}

// Send enqueues a command for transmission, subject to the queue's
// drop-oldest policy. While disconnected, only PINGs are queued —
// everything else is silently dropped, since a stale burst of commands is
// worse than a gap. The writer discards any message it pops while no
// transport is connected, including ones queued before a disconnect.
func (l *Link) Send(m protocol.Message) {
	if !l.Connected() {
		if _, isPing := m.(protocol.Ping); !isPing {
			return
		}
	}
	l.outgoing.Push(m)
}

// Run starts the reader and writer loops and blocks until ctx is canceled.
// Callers typically run it in its own goroutine.
func (l *Link) Run(ctx context.Context) {
	var wg sync.WaitGroup
	wg.Add(3)
	go func() { defer wg.Done(); l.writerLoop(ctx) }()
	go func() { defer wg.Done(); l.readerLoop(ctx) }()
	go func() { defer wg.Done(); l.pingLoop(ctx) }()
	wg.Wait()
}

func (l *Link) writerLoop(ctx context.Context) {
	ticker := time.NewTicker(2 * time.Millisecond)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			msg, ok := l.outgoing.Pop()
			if !ok {
				continue
			}
			l.writeOne(msg)
		}
	}
}

func (l *Link) writeOne(msg protocol.Message) {
	l.mu.Lock()
	t := l.transport
	connected := l.connected
	l.mu.Unlock()

	if t == nil || !connected {
		return
	}
	frame := protocol.Frame(msg)
	if _, err := io.WriteString(t, frame); err != nil {
		l.logger.Warnf("link write failed, marking disconnected: %v", err)
		l.markDisconnected()
	}
}

func (l *Link) readerLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		l.mu.Lock()
		t := l.transport
		l.mu.Unlock()
		if t == nil {
			time.Sleep(100 * time.Millisecond)
			continue
		}

		scanner := bufio.NewScanner(t)
		scanner.Buffer(make([]byte, 4096), 4096)
		for scanner.Scan() {
			select {
			case <-ctx.Done():
				return
			default:
			}
			l.handleLine(scanner.Bytes())
		}
		// The scanner returning means the transport hit EOF or an error:
		// the physical link dropped, a TransportError condition.
		l.markDisconnected()
		time.Sleep(100 * time.Millisecond)
	}
}

func (l *Link) handleLine(line []byte) {
	msg, err := protocol.Parse(line)
	if err != nil {
		l.mu.Lock()
		l.checksumErrors++
		l.mu.Unlock()
		l.logger.Warnf("dropping malformed line: %v", err)
		return
	}

	if pong, ok := msg.(protocol.Pong); ok {
		l.mu.Lock()
		l.lastPongAt = time.Now()
		l.missedPongCount = 0
		l.mu.Unlock()
		_ = pong
		return
	}

	if l.session != nil {
		l.session.Handle(msg)
	}
	if l.OnMessage != nil {
		l.OnMessage(msg)
	}
}

func (l *Link) pingLoop(ctx context.Context) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			l.checkHeartbeat()
			l.Send(protocol.Ping{Ms: time.Now().UnixMilli()})
		}
	}
}

func (l *Link) checkHeartbeat() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.connected {
		return
	}
	if time.Since(l.lastPongAt) > pingInterval {
		l.missedPongCount++
		if l.missedPongCount >= PongTimeoutIntervals {
			l.logger.Warnf("link unhealthy: missed %d consecutive PONGs", l.missedPongCount)
		}
	}
}

// Healthy reports whether the link is connected and fewer than
// PongTimeoutIntervals consecutive heartbeat intervals have passed without
// a PONG.
func (l *Link) Healthy() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.connected && l.missedPongCount < PongTimeoutIntervals
}

func (l *Link) markDisconnected() {
	l.mu.Lock()
	if l.transport != nil {
		l.transport.Close()
		l.transport = nil
	}
	l.connected = false
	l.mu.Unlock()

	if l.session != nil {
		l.session.TransportLost()
	}
}

// ChecksumErrors returns the cumulative count of lines dropped by this Link
// because they failed to parse (a checksum mismatch or any other malformed
// line); each such line is also logged as a warning.
func (l *Link) ChecksumErrors() uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.checksumErrors
}

// ErrDisconnected is a TransportError describing a disconnected link. Send
// and Connect do not return errors, so nothing in this package returns it.
var ErrDisconnected = errkind.New(errkind.TransportError, "link is disconnected")
