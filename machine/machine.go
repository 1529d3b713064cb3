package machine

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/pkg/errors"

	"github.com/outofforest/eelog/journal"
	"github.com/outofforest/eelog/pkg/logger"
)

// Payloads written by the machine.
const (
	BootPayload  = "Boot"
	ProbePayload = "Test"
)

// Commands accepted in the UserInput state.
const (
	CommandErase = "erase"
	CommandWrite = "write"
	CommandRead  = "read"
)

// Messages printed by the machine.
const (
	Prompt          = "Type 'erase' to erase EEPROM, 'write' to write or 'read' to read every valid entry:"
	MsgBoot         = "Boot."
	MsgErasing      = "Erasing EEPROM..."
	MsgWriting      = "Writing to EEPROM..."
	MsgReading      = "Reading EEPROM..."
	MsgInvalidInput = "Invalid input!"
	MsgNoEntries    = "No valid log entries found!"
	MsgLogFull      = "Log is full! Type 'erase' first."
	MsgRescanning   = "Log position is unknown! Scanning EEPROM again..."
)

// FormatEntry formats the entry the way it is printed by the read command.
func FormatEntry(entry journal.Entry) string {
	return fmt.Sprintf("Log entry: %s. Memory address: 0X%02X", entry.Payload, uint32(entry.Offset))
}

// DefaultStepDelay is the default delay between steps executed by Run.
const DefaultStepDelay = 5 * time.Millisecond

// Kind is the kind of the machine state.
type Kind byte

// State kinds.
const (
	BootScan Kind = iota
	Erase
	Write
	Read
	UserInput
)

func (k Kind) String() string {
	switch k {
	case BootScan:
		return "BootScan"
	case Erase:
		return "Erase"
	case Write:
		return "Write"
	case Read:
		return "Read"
	case UserInput:
		return "UserInput"
	default:
		return fmt.Sprintf("Kind(%d)", byte(k))
	}
}

// State is the state of the machine.
type State struct {
	Kind Kind

	// Boot marks the pending write as the boot entry. Used only by the Write state.
	Boot bool
}

func (s State) String() string {
	if s.Kind == Write && s.Boot {
		return "Write(boot)"
	}
	return s.Kind.String()
}

// LineReader is the source of the user commands.
type LineReader interface {
	ReadLine() (string, error)
}

// Machine sequences the journal operations in response to the boot scan outcome and user commands.
type Machine struct {
	j     *journal.Journal
	in    LineReader
	out   io.Writer
	log   *slog.Logger
	delay time.Duration
	sleep func(time.Duration)

	state State
}

// Option is a functional option for configuring the machine.
type Option func(*Machine)

// WithLogger sets the logger.
func WithLogger(log *slog.Logger) Option {
	return func(m *Machine) {
		if log != nil {
			m.log = log
		}
	}
}

// WithStepDelay sets the delay between steps executed by Run.
func WithStepDelay(delay time.Duration) Option {
	return func(m *Machine) {
		if delay >= 0 {
			m.delay = delay
		}
	}
}

// New returns new machine starting in the BootScan state.
func New(j *journal.Journal, in LineReader, out io.Writer, opts ...Option) *Machine {
	m := &Machine{
		j:     j,
		in:    in,
		out:   out,
		log:   logger.Discard(),
		delay: DefaultStepDelay,
		sleep: time.Sleep,
		state: State{Kind: BootScan},
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// State returns the current state.
func (m *Machine) State() State {
	return m.state
}

// Run executes steps until input is closed or context is canceled.
func (m *Machine) Run(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			return errors.WithStack(err)
		}
		if err := m.Step(); err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}
		m.sleep(m.delay)
	}
}

// Step executes the current state and moves the machine to the next one.
// Medium failures are reported to the user and are not returned. Returned error means that machine can't continue,
// io.EOF is returned when the input is closed.
func (m *Machine) Step() error {
	next, err := m.transition(m.state)
	if err != nil {
		return err
	}
	if next != m.state {
		m.log.Debug("state changed", "from", m.state, "to", next)
	}
	m.state = next
	return nil
}

func (m *Machine) transition(s State) (State, error) {
	switch s.Kind {
	case BootScan:
		return m.bootScan()
	case Erase:
		return m.erase()
	case Write:
		return m.write(s.Boot)
	case Read:
		return m.read()
	case UserInput:
		return m.userInput()
	default:
		return State{}, errors.Errorf("unknown state %s", s)
	}
}

func (m *Machine) bootScan() (State, error) {
	outcome, err := m.j.BootScan()
	if err != nil {
		return m.mediumFailure(err)
	}
	if outcome.Kind == journal.Full {
		return State{Kind: Erase}, nil
	}
	if err := m.println(MsgBoot); err != nil {
		return State{}, err
	}
	return State{Kind: Write, Boot: true}, nil
}

func (m *Machine) erase() (State, error) {
	if err := m.j.EraseAll(); err != nil {
		return m.mediumFailure(err)
	}
	return State{Kind: UserInput}, nil
}

func (m *Machine) write(boot bool) (State, error) {
	payload := ProbePayload
	if boot {
		payload = BootPayload
	}

	if _, err := m.j.Append(payload); err != nil {
		if errors.Is(err, journal.ErrNotRecovered) {
			m.log.Warn("append rejected", "error", err)
			if err := m.println(MsgRescanning); err != nil {
				return State{}, err
			}
			return State{Kind: BootScan}, nil
		}
		if errors.Is(err, journal.ErrLogFull) {
			m.log.Warn("append rejected", "error", err)
			if err := m.println(MsgLogFull); err != nil {
				return State{}, err
			}
			return State{Kind: UserInput}, nil
		}
		return m.mediumFailure(err)
	}
	return State{Kind: UserInput}, nil
}

func (m *Machine) read() (State, error) {
	r := m.j.Entries()
	for {
		entry, ok, err := r.Next()
		if err != nil {
			return m.mediumFailure(err)
		}
		if !ok {
			break
		}
		if err := m.println(FormatEntry(entry)); err != nil {
			return State{}, err
		}
	}
	if err := m.println(MsgNoEntries); err != nil {
		return State{}, err
	}
	return State{Kind: UserInput}, nil
}

func (m *Machine) userInput() (State, error) {
	if err := m.println(Prompt); err != nil {
		return State{}, err
	}

	line, err := m.in.ReadLine()
	if err != nil {
		return State{}, err
	}

	switch line {
	case CommandErase:
		return State{Kind: Erase}, m.println(MsgErasing)
	case CommandRead:
		return State{Kind: Read}, m.println(MsgReading)
	case CommandWrite:
		return State{Kind: Write}, m.println(MsgWriting)
	case "":
		return State{Kind: UserInput}, nil
	default:
		m.log.Debug("invalid input", "input", line)
		return State{Kind: UserInput}, m.println(MsgInvalidInput)
	}
}

func (m *Machine) mediumFailure(err error) (State, error) {
	m.log.Error("medium operation failed", "state", m.state, "error", err)
	if err := m.printf("EEPROM error: %s\n", err); err != nil {
		return State{}, err
	}
	return State{Kind: UserInput}, nil
}

func (m *Machine) println(msg string) error {
	return m.printf("%s\n", msg)
}

func (m *Machine) printf(format string, args ...any) error {
	_, err := fmt.Fprintf(m.out, format, args...)
	return errors.WithStack(err)
}
