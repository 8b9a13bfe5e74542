package escrow

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func sampleCommand(kind CommandKind, a, b int) *Command {
	cmd := &Command{
		Kind:            kind,
		NativeDirection: NativeInitiatorDeposits,
		ReserveAmount:   0x0102030405060708,
		LegCountA:       uint8(a),
		LegCountB:       uint8(b),
	}
	for i := 0; i < a; i++ {
		cmd.LegAmountsA[i] = uint64(1000 * (i + 1))
	}
	for j := 0; j < b; j++ {
		cmd.LegAmountsB[j] = uint64(2000*(j+1)) + 1<<40
	}
	return cmd
}

func TestInstructionRoundTrip(t *testing.T) {
	for _, kind := range []CommandKind{CommandCommit, CommandSettle, CommandCancel} {
		for a := 0; a <= MaxLegs; a++ {
			for _, b := range []int{0, 1, 4, MaxLegs} {
				cmd := sampleCommand(kind, a, b)
				data, err := EncodeInstruction(cmd)
				require.NoError(t, err)
				require.Len(t, data, 12+8*a+8*b)

				decoded, err := DecodeInstruction(data)
				require.NoError(t, err)
				require.Equal(t, cmd, decoded)
			}
		}
	}
}

func TestInstructionLayoutIsLittleEndian(t *testing.T) {
	cmd := &Command{Kind: CommandSettle, NativeDirection: NativeCounterpartyPays, ReserveAmount: 0x0102, LegCountA: 1, LegCountB: 1}
	cmd.LegAmountsA[0] = 0x0A0B
	cmd.LegAmountsB[0] = 0xFF
	data, err := EncodeInstruction(cmd)
	require.NoError(t, err)
	require.Equal(t, []byte{
		1, 2,
		0x02, 0x01, 0, 0, 0, 0, 0, 0,
		1,
		0x0B, 0x0A, 0, 0, 0, 0, 0, 0,
		1,
		0xFF, 0, 0, 0, 0, 0, 0, 0,
	}, data)
}

func TestDecodeIgnoresTrailingBytes(t *testing.T) {
	data, err := EncodeInstruction(sampleCommand(CommandCommit, 1, 1))
	require.NoError(t, err)
	cmd, err := DecodeInstruction(append(data, 0xDE, 0xAD))
	require.NoError(t, err)
	require.Equal(t, sampleCommand(CommandCommit, 1, 1), cmd)
}

func TestDecodeRejectsMalformed(t *testing.T) {
	valid, err := EncodeInstruction(sampleCommand(CommandCommit, 2, 2))
	require.NoError(t, err)

	withByte := func(idx int, v byte) []byte {
		out := append([]byte(nil), valid...)
		out[idx] = v
		return out
	}

	cases := map[string][]byte{
		"empty":                nil,
		"short header":         valid[:10],
		"unknown tag":          withByte(0, 3),
		"unknown direction":    withByte(1, 3),
		"leg_count_a over max": withByte(10, MaxLegs+1),
		"leg_count_a 255":      withByte(10, 0xFF),
		"truncated a amount":   valid[:11+8+4],
		"missing leg_count_b":  valid[:11+16],
		"leg_count_b over max": withByte(11+16, 10),
		"truncated b amount":   valid[:len(valid)-1],
	}
	for name, data := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := DecodeInstruction(data)
			require.ErrorIs(t, err, ErrMalformedInstruction)
		})
	}
}

func TestEncodeRejectsTooManyLegs(t *testing.T) {
	_, err := EncodeInstruction(&Command{LegCountA: MaxLegs + 1})
	require.ErrorIs(t, err, ErrMalformedInstruction)
	_, err = EncodeInstruction(&Command{LegCountB: MaxLegs + 1})
	require.ErrorIs(t, err, ErrMalformedInstruction)
}

func TestCommandKindStrings(t *testing.T) {
	require.Equal(t, "commit", CommandCommit.String())
	require.Equal(t, "settle", CommandSettle.String())
	require.Equal(t, "cancel", CommandCancel.String())
	require.Equal(t, "unknown(7)", CommandKind(7).String())
	require.Equal(t, "counterparty_pays", NativeCounterpartyPays.String())
}

func TestDescribeCommandKeepsPopulatedLegs(t *testing.T) {
	view := DescribeCommand(sampleCommand(CommandSettle, 2, 0))
	require.Equal(t, CommandSettle.String(), view.Kind)
	require.Equal(t, NativeInitiatorDeposits.String(), view.NativeDirection)
	require.Equal(t, uint64(0x0102030405060708), view.ReserveAmount)
	require.Equal(t, []uint64{1000, 2000}, view.LegAmountsA)
	require.Empty(t, view.LegAmountsB)
	require.NotNil(t, view.LegAmountsB)
}
