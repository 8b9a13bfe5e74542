package escrow

import (
	"encoding/binary"
	"fmt"
)

// MaxLegs bounds the asset legs on each side of a trade.
const MaxLegs = 9

// CommandKind selects the lifecycle operation. The values are the tag byte of
// the instruction buffer.
type CommandKind uint8

const (
	CommandCommit CommandKind = 0
	CommandSettle CommandKind = 1
	CommandCancel CommandKind = 2
)

func (k CommandKind) String() string {
	switch k {
	case CommandCommit:
		return "commit"
	case CommandSettle:
		return "settle"
	case CommandCancel:
		return "cancel"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(k))
	}
}

// NativeDirection describes how the native-currency leg flows.
type NativeDirection uint8

const (
	// NativeNone means the trade carries no native leg.
	NativeNone NativeDirection = 0
	// NativeInitiatorDeposits escrows the reserve from the initiator at commit
	// and pays it to the counterparty at settle.
	NativeInitiatorDeposits NativeDirection = 1
	// NativeCounterpartyPays charges the counterparty at settle; the amount
	// reaches the initiator through the closing sweep.
	NativeCounterpartyPays NativeDirection = 2
)

func (d NativeDirection) String() string {
	switch d {
	case NativeNone:
		return "none"
	case NativeInitiatorDeposits:
		return "initiator_deposits"
	case NativeCounterpartyPays:
		return "counterparty_pays"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(d))
	}
}

// Command is a decoded instruction. Only the first LegCountA and LegCountB
// entries of the amount arrays are meaningful.
type Command struct {
	Kind            CommandKind
	NativeDirection NativeDirection
	ReserveAmount   uint64
	LegCountA       uint8
	LegCountB       uint8
	LegAmountsA     [MaxLegs]uint64
	LegAmountsB     [MaxLegs]uint64
}

const instructionHeaderSize = 1 + 1 + 8 + 1

// Validate checks the enumerations and leg counts of cmd.
func (c *Command) Validate() error {
	if c == nil {
		return fmt.Errorf("%w: nil command", ErrMalformedInstruction)
	}
	if c.Kind > CommandCancel {
		return fmt.Errorf("%w: unknown tag %d", ErrMalformedInstruction, c.Kind)
	}
	if c.NativeDirection > NativeCounterpartyPays {
		return fmt.Errorf("%w: unknown native direction %d", ErrMalformedInstruction, c.NativeDirection)
	}
	if c.LegCountA > MaxLegs || c.LegCountB > MaxLegs {
		return fmt.Errorf("%w: leg counts %d/%d exceed %d", ErrMalformedInstruction, c.LegCountA, c.LegCountB, MaxLegs)
	}
	return nil
}

// DecodeInstruction parses an instruction buffer:
//
//	tag(1) direction(1) reserve(8) N(1) N×amount(8) M(1) M×amount(8)
//
// Integers are little-endian. Bytes past the last amount are ignored.
func DecodeInstruction(data []byte) (*Command, error) {
	if len(data) < instructionHeaderSize {
		return nil, fmt.Errorf("%w: %d bytes, need at least %d", ErrMalformedInstruction, len(data), instructionHeaderSize)
	}
	cmd := &Command{
		Kind:            CommandKind(data[0]),
		NativeDirection: NativeDirection(data[1]),
		ReserveAmount:   binary.LittleEndian.Uint64(data[2:10]),
		LegCountA:       data[10],
	}
	if cmd.Kind > CommandCancel {
		return nil, fmt.Errorf("%w: unknown tag %d", ErrMalformedInstruction, data[0])
	}
	if cmd.LegCountA > MaxLegs {
		return nil, fmt.Errorf("%w: leg_count_a %d exceeds %d", ErrMalformedInstruction, cmd.LegCountA, MaxLegs)
	}
	rest := data[instructionHeaderSize:]
	rest, err := readAmounts(rest, cmd.LegAmountsA[:cmd.LegCountA], "a")
	if err != nil {
		return nil, err
	}
	if len(rest) < 1 {
		return nil, fmt.Errorf("%w: missing leg_count_b", ErrMalformedInstruction)
	}
	cmd.LegCountB = rest[0]
	if cmd.LegCountB > MaxLegs {
		return nil, fmt.Errorf("%w: leg_count_b %d exceeds %d", ErrMalformedInstruction, cmd.LegCountB, MaxLegs)
	}
	if _, err := readAmounts(rest[1:], cmd.LegAmountsB[:cmd.LegCountB], "b"); err != nil {
		return nil, err
	}
	if err := cmd.Validate(); err != nil {
		return nil, err
	}
	return cmd, nil
}

func readAmounts(buf []byte, dst []uint64, side string) ([]byte, error) {
	for i := range dst {
		if len(buf) < 8 {
			return nil, fmt.Errorf("%w: leg %s[%d] amount truncated", ErrMalformedInstruction, side, i)
		}
		dst[i] = binary.LittleEndian.Uint64(buf[:8])
		buf = buf[8:]
	}
	return buf, nil
}

// EncodeInstruction is the inverse of DecodeInstruction.
func EncodeInstruction(cmd *Command) ([]byte, error) {
	if err := cmd.Validate(); err != nil {
		return nil, err
	}
	size := instructionHeaderSize + 8*int(cmd.LegCountA) + 1 + 8*int(cmd.LegCountB)
	out := make([]byte, 0, size)
	out = append(out, byte(cmd.Kind), byte(cmd.NativeDirection))
	out = binary.LittleEndian.AppendUint64(out, cmd.ReserveAmount)
	out = append(out, cmd.LegCountA)
	for _, amount := range cmd.LegAmountsA[:cmd.LegCountA] {
		out = binary.LittleEndian.AppendUint64(out, amount)
	}
	out = append(out, cmd.LegCountB)
	for _, amount := range cmd.LegAmountsB[:cmd.LegCountB] {
		out = binary.LittleEndian.AppendUint64(out, amount)
	}
	return out, nil
}
