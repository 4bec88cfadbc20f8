// Command controller is the host-side process: it reads creature and
// controller configuration, opens the Link to the firmware, and runs the
// FrameScheduler and WatchdogMonitor until interrupted.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"io"
	"net"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"go.viam.com/rdk/logging"

	"github.com/opsnlops/creature-controller-go/internal/config"
	"github.com/opsnlops/creature-controller-go/internal/creature"
	"github.com/opsnlops/creature-controller-go/internal/dmx"
	"github.com/opsnlops/creature-controller-go/internal/errkind"
	"github.com/opsnlops/creature-controller-go/internal/link"
	"github.com/opsnlops/creature-controller-go/internal/link/transport"
	"github.com/opsnlops/creature-controller-go/internal/outbound"
	"github.com/opsnlops/creature-controller-go/internal/protocol"
	"github.com/opsnlops/creature-controller-go/internal/rig"
	"github.com/opsnlops/creature-controller-go/internal/scheduler"
	"github.com/opsnlops/creature-controller-go/internal/session"
	"github.com/opsnlops/creature-controller-go/internal/telemetry"
	"github.com/opsnlops/creature-controller-go/internal/watchdog"
)

func main() {
	if err := realMain(); err != nil {
		logger := logging.NewLogger("controller")
		if errkind.Is(err, errkind.InvalidConfiguration) {
			logger.Errorw("invalid configuration, exiting", "error", err)
			os.Exit(1)
		}
		logger.Errorw("controller exited with error", "error", err)
		os.Exit(1)
	}
}

func realMain() error {
	creatureFile := flag.String("creature", "", "path to the creature configuration JSON")
	controllerFile := flag.String("controller", "", "path to the controller configuration JSON")
	e131Iface := flag.String("e131-interface", "", "network interface to listen for E1.31/DMX input on (informational; the socket binds to input_addr)")
	flag.Parse()

	logger := logging.NewLogger("controller")
	_ = e131Iface // surfaced for operators; the actual bind address is input_addr in the controller config

	if *creatureFile == "" || *controllerFile == "" {
		return errkind.New(errkind.InvalidConfiguration, "both -creature and -controller config file paths are required")
	}

	creatureCfg, err := loadCreatureConfig(*creatureFile)
	if err != nil {
		return err
	}
	controllerCfg, err := loadControllerConfig(*controllerFile)
	if err != nil {
		return err
	}

	r, err := buildRig(creatureCfg)
	if err != nil {
		return err
	}

	c, err := creature.New(creatureCfg, r)
	if err != nil {
		return err
	}

	mapper, err := dmx.NewMapper(creatureCfg.ChannelOffset, creatureCfg.Universe, dmx.ParrotCrowChannels())
	if err != nil {
		return err
	}

	sess := session.New()
	lnk := link.New(logger, sess)

	var sink outbound.EventSink = outbound.NopSink{}
	if controllerCfg.OutboundURL != "" {
		ws := outbound.NewWebSocketSink(controllerCfg.OutboundURL)
		defer ws.Close()
		sink = ws
	}

	wd := watchdog.New(logger, lnk, sink, watchdog.Limits{
		MaxPowerWatts:         controllerCfg.MaxPowerWatts,
		MaxTemperatureCelsius: controllerCfg.MaxTempCelsius,
		GracePeriod:           controllerCfg.WatchdogGrace,
	})
	backgroundCtx := context.Background()
	lnk.OnMessage = func(m protocol.Message) {
		switch tm := m.(type) {
		case protocol.BSense:
			wd.ObserveBoard(backgroundCtx, telemetry.ParseBoardReading(tm), 0, time.Now())
		case protocol.MSense:
			wd.ObserveMotorPower(backgroundCtx, telemetry.ParseMotorReadings(tm), time.Now())
		}
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	transportConn, err := dialLink(controllerCfg.LinkAddr)
	if err != nil {
		return err
	}
	lnk.Connect(transportConn)

	var inputSource scheduler.InputSource = noopInputSource{}
	if udp := newUDPInputSource(logger, controllerCfg.InputAddr, mapper); udp != nil {
		go udp.run(ctx)
		defer udp.close()
		inputSource = udp
	}

	sched := scheduler.New(r, c.Bank, inputSource, lnk, logger, controllerCfg.UpdateHz)

	var wg sync.WaitGroup
	wg.Add(2)
	go func() { defer wg.Done(); lnk.Run(ctx) }()
	go func() { defer wg.Done(); sched.Run(ctx) }()

	<-ctx.Done()
	wg.Wait()
	return nil
}

func loadCreatureConfig(path string) (config.CreatureConfig, error) {
	var cfg config.CreatureConfig
	if err := readJSON(path, &cfg); err != nil {
		return cfg, err
	}
	if _, _, err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func loadControllerConfig(path string) (config.ControllerConfig, error) {
	var cfg config.ControllerConfig
	if err := readJSON(path, &cfg); err != nil {
		return cfg, err
	}
	if _, _, err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func readJSON(path string, v interface{}) error {
	f, err := os.Open(path)
	if err != nil {
		return errkind.Wrapf(errkind.InvalidConfiguration, err, "failed to open %s", path)
	}
	defer f.Close()
	if err := json.NewDecoder(f).Decode(v); err != nil {
		return errkind.Wrapf(errkind.InvalidConfiguration, err, "failed to parse %s", path)
	}
	return nil
}

// buildRig dispatches on the creature's configured rig variant. Rig variants
// are a closed, compile-time set — there is no dynamically loaded rig type.
func buildRig(cfg config.CreatureConfig) (*rig.Rig, error) {
	switch cfg.RigVariant {
	case "parrot_crow":
		return rig.NewParrotCrow(cfg.Name, rig.ParrotCrowConfig{
			PositionMin:          0,
			PositionMax:          1023,
			HeadOffsetMaxPercent: 0.4,
			ChannelOffset:        cfg.ChannelOffset,
			Universe:             cfg.Universe,
		})
	default:
		return nil, errkind.Errorf(errkind.InvalidConfiguration, "unknown rig_variant %q", cfg.RigVariant)
	}
}

// dialLink opens the transport named by addr's scheme: serial:// for a real
// UART connection, tcp:// for a bench/simulation connection.
func dialLink(addr string) (io.ReadWriteCloser, error) {
	u, err := url.Parse(addr)
	if err != nil {
		return nil, errkind.Wrapf(errkind.InvalidConfiguration, err, "malformed link_addr %q", addr)
	}
	switch u.Scheme {
	case "serial":
		return transport.OpenSerial(strings.TrimPrefix(addr, "serial://"), 115200)
	case "tcp":
		return transport.DialTCP(u.Host)
	default:
		return nil, errkind.Errorf(errkind.InvalidConfiguration, "link_addr scheme %q must be serial:// or tcp://", u.Scheme)
	}
}

// udpInputSource stands in for the out-of-scope E1.31 multicast client: it
// reads raw universe-sized UDP payloads and decodes them through a
// dmx.Mapper, holding the latest extracted inputs for the scheduler to pull.
type udpInputSource struct {
	logger logging.Logger
	conn   *net.UDPConn
	mapper *dmx.Mapper

	mu     sync.Mutex
	latest rig.Inputs
}

func newUDPInputSource(logger logging.Logger, addr string, mapper *dmx.Mapper) *udpInputSource {
	if addr == "" {
		return nil
	}
	udpAddr, err := net.ResolveUDPAddr("udp", addr)
	if err != nil {
		logger.Warnw("failed to resolve input_addr, running without DMX input", "error", err)
		return nil
	}
	conn, err := net.ListenUDP("udp", udpAddr)
	if err != nil {
		logger.Warnw("failed to bind input_addr, running without DMX input", "error", err)
		return nil
	}
	return &udpInputSource{logger: logger, conn: conn, mapper: mapper}
}

func (u *udpInputSource) run(ctx context.Context) {
	buf := make([]byte, dmx.UniverseSize)
	go func() {
		<-ctx.Done()
		u.conn.Close()
	}()
	for {
		n, _, err := u.conn.ReadFromUDP(buf)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			u.logger.Warnw("DMX input read failed", "error", err)
			continue
		}
		inputs := u.mapper.Extract(buf[:n])
		u.mu.Lock()
		u.latest = inputs
		u.mu.Unlock()
	}
}

func (u *udpInputSource) Latest() (rig.Inputs, bool) {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.latest, u.latest != nil
}

func (u *udpInputSource) close() {
	u.conn.Close()
}

// noopInputSource is used when no input_addr is configured: the scheduler
// still runs, and the rig maps every absent input channel to the middle of
// the position range (511), so every servo is driven toward mid-travel.
type noopInputSource struct{}

func (noopInputSource) Latest() (rig.Inputs, bool) { return nil, false }
