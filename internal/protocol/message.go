package protocol

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/opsnlops/creature-controller-go/internal/errkind"
)

// Message is the closed set of protocol message types. Render produces the
// message body without the trailing checksum/newline framing — Frame adds
// that. The original firmware's duck-typed dispatch is modeled here as a
// closed sum type: Parse switches on the type token, and receivers
// dispatch on the concrete type with a type switch, while the wire
// representation itself stays stringly typed.
type Message interface {
	Render() string
}

// Init is sent host->firmware to re-handshake, or firmware->host
// periodically at boot while awaiting configuration.
type Init struct {
	ProtocolVersion int
}

func (m Init) Render() string { return fmt.Sprintf("INIT %d", m.ProtocolVersion) }

// ServoRange is one SERVO record inside a Config message.
type ServoRange struct {
	ID    string
	MinUS int
	MaxUS int
}

// DynamixelRange is one DYNAMIXEL record inside a Config message.
type DynamixelRange struct {
	ID       string
	MinPos   int
	MaxPos   int
	Velocity int
}

// Config carries per-servo PWM bounds and/or Dynamixel bounds.
type Config struct {
	Servos     []ServoRange
	Dynamixels []DynamixelRange
}

func (m Config) Render() string {
	parts := []string{"CONFIG"}
	for _, s := range m.Servos {
		parts = append(parts, fmt.Sprintf("SERVO %s %d %d", s.ID, s.MinUS, s.MaxUS))
	}
	for _, d := range m.Dynamixels {
		parts = append(parts, fmt.Sprintf("DYNAMIXEL %s %d %d %d", d.ID, d.MinPos, d.MaxPos, d.Velocity))
	}
	return strings.Join(parts, "\t")
}

// Ready confirms configuration was accepted.
type Ready struct {
	Version int
}

func (m Ready) Render() string { return fmt.Sprintf("READY %d", m.Version) }

// PosEntry is one (servo id, pulse width or Dynamixel position) pair.
type PosEntry struct {
	ID    string
	Value int
}

// Pos is a per-frame batch of positions.
type Pos struct {
	Entries []PosEntry
}

func (m Pos) Render() string {
	parts := []string{"POS"}
	for _, e := range m.Entries {
		parts = append(parts, fmt.Sprintf("%s %d", e.ID, e.Value))
	}
	return strings.Join(parts, "\t")
}

// Ping/Pong carry a monotonic millisecond timestamp for the heartbeat.
type Ping struct{ Ms int64 }
type Pong struct{ Ms int64 }

func (m Ping) Render() string { return fmt.Sprintf("PING %d", m.Ms) }
func (m Pong) Render() string { return fmt.Sprintf("PONG %d", m.Ms) }

// Stats is a free-form counter report. Key order is preserved as given so
// rendering is deterministic (a map would not round-trip predictably).
type Stats struct {
	Pairs []KV
}

// KV is one ordered key/value pair used by Stats and BSense.
type KV struct {
	Key   string
	Value string
}

func (m Stats) Render() string {
	parts := []string{"STATS"}
	for _, kv := range m.Pairs {
		parts = append(parts, fmt.Sprintf("%s %s", kv.Key, kv.Value))
	}
	return strings.Join(parts, "\t")
}

// MotorSense is one motor's sensor snapshot: position, voltage, amperage,
// angular velocity.
type MotorSense struct {
	Motor    string
	Position float64
	Voltage  float64
	Amperage float64
	Velocity float64
}

// MSense is a per-motor sensor snapshot.
type MSense struct {
	Motors []MotorSense
}

func (m MSense) Render() string {
	parts := []string{"MSENSE"}
	for _, ms := range m.Motors {
		parts = append(parts, fmt.Sprintf("%s %s %s %s %s",
			ms.Motor,
			strconv.FormatFloat(ms.Position, 'f', -1, 64),
			strconv.FormatFloat(ms.Voltage, 'f', -1, 64),
			strconv.FormatFloat(ms.Amperage, 'f', -1, 64),
			strconv.FormatFloat(ms.Velocity, 'f', -1, 64)))
	}
	return strings.Join(parts, "\t")
}

// BSense is board/rail telemetry.
type BSense struct {
	Pairs []KV
}

func (m BSense) Render() string {
	parts := []string{"BSENSE"}
	for _, kv := range m.Pairs {
		parts = append(parts, fmt.Sprintf("%s %s", kv.Key, kv.Value))
	}
	return strings.Join(parts, "\t")
}

// Log is a structured log line forwarded from the firmware.
type Log struct {
	TimestampMs int64
	Level       string // optional, may be empty
	Text        string
}

func (m Log) Render() string {
	if m.Level != "" {
		return fmt.Sprintf("LOG %d [%s] %s", m.TimestampMs, m.Level, m.Text)
	}
	return fmt.Sprintf("LOG %d %s", m.TimestampMs, m.Text)
}

// Estop is the terminal emergency-stop command.
type Estop struct{}

func (m Estop) Render() string { return "ESTOP" }

// Frame appends the checksum and trailing newline to a message's rendered
// body: M.Render() + "\tCS " + checksum(...) + "\n", where the checksum
// covers the rendered body plus the tab that precedes "CS".
func Frame(m Message) string {
	prefix := m.Render() + "\t"
	sum := Checksum([]byte(prefix))
	return prefix + FormatChecksum(sum) + "\n"
}

var errMalformed = errkind.New(errkind.InvalidData, "malformed protocol line")

// Parse validates the checksum on a single line (without its trailing
// newline) and dispatches it into a concrete Message. Checksum mismatches,
// missing CS fields, and unknown message types all return InvalidData — the
// caller is expected to drop the line, bump a counter, and continue.
func Parse(line []byte) (Message, error) {
	s := string(line)
	idx := strings.LastIndex(s, "\tCS ")
	if idx < 0 {
		return nil, errMalformed
	}
	body := s[:idx+1] // includes the trailing tab before "CS"
	csText := s[idx+len("\tCS "):]

	n, err := strconv.ParseUint(strings.TrimSpace(csText), 10, 64)
	if err != nil {
		return nil, errkind.Wrap(errkind.InvalidData, err, "malformed checksum field")
	}

	want := Checksum([]byte(body))
	got := uint32(n % checksumModulus)
	if want != got {
		return nil, errkind.Errorf(errkind.InvalidData, "checksum mismatch: want %d got %d", want, got)
	}

	content := body[:len(body)-1] // strip the trailing tab belonging to the CS framing
	return parseContent(content)
}

func parseContent(content string) (Message, error) {
	fields := strings.Split(content, "\t")
	if len(fields) == 0 || fields[0] == "" {
		return nil, errMalformed
	}
	head := strings.Fields(fields[0])
	if len(head) == 0 {
		return nil, errMalformed
	}

	switch head[0] {
	case "INIT":
		v, err := parseIntArg(head, 1)
		if err != nil {
			return nil, err
		}
		return Init{ProtocolVersion: v}, nil

	case "CONFIG":
		return parseConfig(fields[1:])

	case "READY":
		v, err := parseIntArg(head, 1)
		if err != nil {
			return nil, err
		}
		return Ready{Version: v}, nil

	case "POS":
		return parsePos(fields[1:])

	case "PING":
		v, err := parseInt64Arg(head, 1)
		if err != nil {
			return nil, err
		}
		return Ping{Ms: v}, nil

	case "PONG":
		v, err := parseInt64Arg(head, 1)
		if err != nil {
			return nil, err
		}
		return Pong{Ms: v}, nil

	case "STATS":
		return Stats{Pairs: parseKVFields(fields[1:])}, nil

	case "MSENSE":
		return parseMSense(fields[1:])

	case "BSENSE":
		return BSense{Pairs: parseKVFields(fields[1:])}, nil

	case "LOG":
		return parseLog(fields[0])

	case "ESTOP":
		return Estop{}, nil

	default:
		return nil, errkind.Errorf(errkind.InvalidData, "unknown message type %q", head[0])
	}
}

func parseIntArg(head []string, i int) (int, error) {
	if i >= len(head) {
		return 0, errMalformed
	}
	v, err := strconv.Atoi(head[i])
	if err != nil {
		return 0, errkind.Wrap(errkind.InvalidData, err, "expected integer argument")
	}
	return v, nil
}

func parseInt64Arg(head []string, i int) (int64, error) {
	if i >= len(head) {
		return 0, errMalformed
	}
	v, err := strconv.ParseInt(head[i], 10, 64)
	if err != nil {
		return 0, errkind.Wrap(errkind.InvalidData, err, "expected integer argument")
	}
	return v, nil
}

func parseConfig(fields []string) (Message, error) {
	var cfg Config
	for _, f := range fields {
		toks := strings.Fields(f)
		if len(toks) == 0 {
			continue
		}
		switch toks[0] {
		case "SERVO":
			if len(toks) != 4 {
				return nil, errkind.Errorf(errkind.InvalidData, "malformed SERVO record %q", f)
			}
			minUS, err1 := strconv.Atoi(toks[2])
			maxUS, err2 := strconv.Atoi(toks[3])
			if err1 != nil || err2 != nil {
				return nil, errkind.Errorf(errkind.InvalidData, "malformed SERVO record %q", f)
			}
			cfg.Servos = append(cfg.Servos, ServoRange{ID: toks[1], MinUS: minUS, MaxUS: maxUS})
		case "DYNAMIXEL":
			if len(toks) != 5 {
				return nil, errkind.Errorf(errkind.InvalidData, "malformed DYNAMIXEL record %q", f)
			}
			minPos, err1 := strconv.Atoi(toks[2])
			maxPos, err2 := strconv.Atoi(toks[3])
			vel, err3 := strconv.Atoi(toks[4])
			if err1 != nil || err2 != nil || err3 != nil {
				return nil, errkind.Errorf(errkind.InvalidData, "malformed DYNAMIXEL record %q", f)
			}
			cfg.Dynamixels = append(cfg.Dynamixels, DynamixelRange{ID: toks[1], MinPos: minPos, MaxPos: maxPos, Velocity: vel})
		default:
			return nil, errkind.Errorf(errkind.InvalidData, "unknown CONFIG record type %q", toks[0])
		}
	}
	return cfg, nil
}

func parsePos(fields []string) (Message, error) {
	var p Pos
	for _, f := range fields {
		toks := strings.Fields(f)
		if len(toks) != 2 {
			return nil, errkind.Errorf(errkind.InvalidData, "malformed POS entry %q", f)
		}
		v, err := strconv.Atoi(toks[1])
		if err != nil {
			return nil, errkind.Errorf(errkind.InvalidData, "malformed POS entry %q", f)
		}
		p.Entries = append(p.Entries, PosEntry{ID: toks[0], Value: v})
	}
	return p, nil
}

func parseKVFields(fields []string) []KV {
	var out []KV
	for _, f := range fields {
		toks := strings.Fields(f)
		if len(toks) == 0 {
			continue
		}
		out = append(out, KV{Key: toks[0], Value: strings.Join(toks[1:], " ")})
	}
	return out
}

func parseMSense(fields []string) (Message, error) {
	var m MSense
	for _, f := range fields {
		toks := strings.Fields(f)
		if len(toks) != 5 {
			return nil, errkind.Errorf(errkind.InvalidData, "malformed MSENSE entry %q", f)
		}
		pos, e1 := strconv.ParseFloat(toks[1], 64)
		v, e2 := strconv.ParseFloat(toks[2], 64)
		a, e3 := strconv.ParseFloat(toks[3], 64)
		w, e4 := strconv.ParseFloat(toks[4], 64)
		if e1 != nil || e2 != nil || e3 != nil || e4 != nil {
			return nil, errkind.Errorf(errkind.InvalidData, "malformed MSENSE entry %q", f)
		}
		m.Motors = append(m.Motors, MotorSense{Motor: toks[0], Position: pos, Voltage: v, Amperage: a, Velocity: w})
	}
	return m, nil
}

func parseLog(firstField string) (Message, error) {
	toks := strings.SplitN(firstField, " ", 3)
	if len(toks) < 2 {
		return nil, errMalformed
	}
	ts, err := strconv.ParseInt(toks[1], 10, 64)
	if err != nil {
		return nil, errkind.Wrap(errkind.InvalidData, err, "malformed LOG timestamp")
	}
	if len(toks) == 2 {
		return Log{TimestampMs: ts}, nil
	}
	rest := toks[2]
	if strings.HasPrefix(rest, "[") {
		end := strings.Index(rest, "]")
		if end > 0 {
			level := rest[1:end]
			text := strings.TrimPrefix(rest[end+1:], " ")
			return Log{TimestampMs: ts, Level: level, Text: text}, nil
		}
	}
	return Log{TimestampMs: ts, Text: rest}, nil
}
