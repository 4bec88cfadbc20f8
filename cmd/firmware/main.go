// Command firmware simulates the embedded side of the link: it accepts a
// single transport connection at a time (serial or TCP, mirroring
// cmd/controller's dialLink), drives firmware.State and a simulated
// pwm.Controller, and speaks the same line protocol the host-side Link
// expects. A real board runs this loop on bare metal against actual GPIO;
// here it runs as an ordinary process against pwm.SimPin so the whole
// CONFIG -> POS -> PWM write -> telemetry -> ESTOP path can be exercised
// end to end without hardware.
package main

import (
	"bufio"
	"context"
	"flag"
	"io"
	"net"
	"os"
	"os/signal"
	"strconv"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"go.viam.com/rdk/logging"

	"periph.io/x/periph/conn/gpio"

	"github.com/opsnlops/creature-controller-go/internal/errkind"
	"github.com/opsnlops/creature-controller-go/internal/firmware"
	"github.com/opsnlops/creature-controller-go/internal/firmware/pwm"
	"github.com/opsnlops/creature-controller-go/internal/link/transport"
	"github.com/opsnlops/creature-controller-go/internal/protocol"
)

const (
	protocolVersion  = 1
	initInterval     = time.Second
	telemetryTick    = time.Second
	watchdogKickPer  = 50
	firmwareUpdateHz = 50
	frameLengthUS    = uint64(time.Second / firmwareUpdateHz / time.Microsecond)
)

func main() {
	if err := realMain(); err != nil {
		logging.NewLogger("firmware").Errorw("firmware process exited with error", "error", err)
		os.Exit(1)
	}
}

func realMain() error {
	listenAddr := flag.String("listen", "", "tcp address to listen on for the host connection (bench mode)")
	serialPort := flag.String("serial", "", "serial port device to open for the host connection")
	baud := flag.Int("baud", 115200, "serial baud rate, used only with -serial")
	flag.Parse()

	logger := logging.NewLogger("firmware")

	if *listenAddr == "" && *serialPort == "" {
		return errkind.New(errkind.InvalidConfiguration, "one of -listen or -serial is required")
	}

	state := firmware.New(watchdogKickPer)
	pins := make(map[string]gpio.PinOut, firmware.MotorMapSize)
	for i := 0; i < firmware.MotorMapSize; i++ {
		id := string(rune('0' + i))
		pins[id] = pwm.NewSimPin("motor" + id)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	controller := pwm.NewController(state, pins, firmwareUpdateHz)
	go controller.Run(ctx)

	if *listenAddr != "" {
		return runTCP(ctx, logger, state, *listenAddr)
	}
	return runSerial(ctx, logger, state, *serialPort, *baud)
}

// runTCP accepts connections one at a time on addr, handling each to
// completion before accepting the next — a dropped bench connection is
// exactly the TransportError disconnect scenario the firmware's real UART
// link can also hit.
func runTCP(ctx context.Context, logger logging.Logger, state *firmware.State, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return errkind.Wrapf(errkind.TransportError, err, "failed to listen on %s", addr)
	}
	defer ln.Close()

	go func() {
		<-ctx.Done()
		ln.Close()
	}()

	logger.Infow("firmware listening", "addr", addr)
	for {
		conn, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			logger.Warnw("accept failed", "error", err)
			continue
		}
		logger.Infow("host connected", "remote", conn.RemoteAddr())
		handleConn(ctx, logger, state, conn)
	}
}

// runSerial opens a serial port and handles it until it fails or ctx is
// canceled, reopening after a short backoff on failure.
func runSerial(ctx context.Context, logger logging.Logger, state *firmware.State, port string, baud int) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}
		conn, err := transport.OpenSerial(port, baud)
		if err != nil {
			logger.Warnw("failed to open serial port, retrying", "port", port, "error", err)
			time.Sleep(time.Second)
			continue
		}
		logger.Infow("serial port open", "port", port)
		handleConn(ctx, logger, state, conn)
	}
}

// handleConn runs one connection's full lifecycle: the INIT/telemetry
// writer goroutines, and the blocking read/dispatch loop. It returns once
// the connection's read side fails, having already marked the firmware
// disconnected.
func handleConn(ctx context.Context, logger logging.Logger, state *firmware.State, conn io.ReadWriteCloser) {
	connCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	defer conn.Close()
	defer state.Disconnected()

	var writeMu sync.Mutex
	write := func(m protocol.Message) {
		writeMu.Lock()
		defer writeMu.Unlock()
		if _, err := io.WriteString(conn, protocol.Frame(m)); err != nil {
			logger.Warnw("write failed", "error", err)
		}
	}

	var configured atomic.Bool

	var wg sync.WaitGroup
	wg.Add(2)
	go func() { defer wg.Done(); initLoop(connCtx, &configured, write) }()
	go func() { defer wg.Done(); telemetryLoop(connCtx, state, write) }()

	readLoop(connCtx, logger, state, &configured, conn, write)
	cancel()
	wg.Wait()
}

// initLoop asserts INIT every second until a CONFIG has been accepted,
// matching the firmware's boot-time handshake: it keeps announcing itself
// until the host configures it.
func initLoop(ctx context.Context, configured *atomic.Bool, write func(protocol.Message)) {
	ticker := time.NewTicker(initInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if configured.Load() {
				continue
			}
			write(protocol.Init{ProtocolVersion: protocolVersion})
		}
	}
}

// telemetryLoop emits STATS/MSENSE/BSENSE once per tick, independent of
// configuration state — a disconnected or unconfigured firmware still
// reports what it knows about itself.
func telemetryLoop(ctx context.Context, state *firmware.State, write func(protocol.Message)) {
	ticker := time.NewTicker(telemetryTick)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			write(statsMessage(state))
			write(motorSenseMessage(state))
			write(boardSenseMessage())
		}
	}
}

func statsMessage(state *firmware.State) protocol.Stats {
	return protocol.Stats{Pairs: []protocol.KV{
		{Key: "PWM_WRAPS", Value: strconv.FormatUint(state.PWMWraps(), 10)},
		{Key: "CHECKSUM_FAILURES", Value: strconv.FormatUint(state.ChecksumErrors(), 10)},
	}}
}

func motorSenseMessage(state *firmware.State) protocol.MSense {
	snapshot := state.Motors.Snapshot()
	motors := make([]protocol.MotorSense, 0, len(snapshot))
	for _, slot := range snapshot {
		if !slot.IsConfigured {
			continue
		}
		motors = append(motors, protocol.MotorSense{
			Motor:    slot.ID,
			Position: float64(slot.CurrentUS),
			Voltage:  0,
			Amperage: 0,
			Velocity: 0,
		})
	}
	return protocol.MSense{Motors: motors}
}

// boardSenseMessage reports a fixed ambient reading: this simulated
// firmware has no real thermistor or rail-voltage ADCs to sample.
func boardSenseMessage() protocol.BSense {
	return protocol.BSense{Pairs: []protocol.KV{
		{Key: "TEMP", Value: "25.0"},
	}}
}

// readLoop scans lines off conn, parses and dispatches each into the
// firmware state machine, and returns once the scanner hits EOF or an
// error — the caller treats that as a transport disconnect.
func readLoop(ctx context.Context, logger logging.Logger, state *firmware.State, configured *atomic.Bool, conn io.Reader, write func(protocol.Message)) {
	scanner := bufio.NewScanner(conn)
	scanner.Buffer(make([]byte, 4096), 4096)
	for scanner.Scan() {
		select {
		case <-ctx.Done():
			return
		default:
		}
		dispatch(logger, state, configured, scanner.Bytes(), write)
	}
}

func dispatch(logger logging.Logger, state *firmware.State, configured *atomic.Bool, line []byte, write func(protocol.Message)) {
	msg, err := protocol.Parse(line)
	if err != nil {
		state.IncrementChecksumErrors()
		logger.Warnw("dropping malformed line", "error", err)
		return
	}

	switch m := msg.(type) {
	case protocol.Config:
		applied, errs := state.HandleConfig(m)
		for _, e := range errs {
			logger.Warnw("rejected servo config record", "error", e)
		}
		if applied > 0 {
			configured.Store(true)
			write(protocol.Ready{Version: protocolVersion})
		}
	case protocol.Pos:
		for _, entry := range m.Entries {
			if err := state.HandlePosition(entry.ID, entry.Value, pwm.Resolution, frameLengthUS); err != nil {
				logger.Warnw("rejected position request", "id", entry.ID, "error", err)
			}
		}
	case protocol.Ping:
		write(protocol.Pong{Ms: m.Ms})
	case protocol.Estop:
		logger.Errorw("ESTOP received, latching emergency stop")
		state.HandleEstop()
	case protocol.Init:
		// Host-originated re-handshake request; nothing to do beyond the
		// ongoing initLoop announcements.
	default:
		logger.Warnw("ignoring unsupported message type on firmware link", "type", m)
	}
}
