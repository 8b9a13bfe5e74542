package escrow

import (
	"testing"

	"github.com/stretchr/testify/require"

	"multiswap/crypto"
)

func sampleRecord(a, b int) *Record {
	rec := &Record{
		Status:          StatusCommitted,
		LegCountA:       uint8(a),
		LegCountB:       uint8(b),
		NativeDirection: NativeCounterpartyPays,
		ReserveAmount:   500,
		Initiator:       crypto.PublicKey{0x01},
		Counterparty:    crypto.PublicKey{0x02},
	}
	for i := 0; i < a; i++ {
		rec.LegsA[i] = CustodyLeg{
			InitiatorAsset:    crypto.PublicKey{0x10, byte(i)},
			CounterpartyAsset: crypto.PublicKey{0x20, byte(i)},
			Custody:           crypto.PublicKey{0x30, byte(i)},
			Amount:            uint64(1000 + i),
		}
	}
	for j := 0; j < b; j++ {
		rec.LegsB[j] = DirectLeg{
			InitiatorAsset:    crypto.PublicKey{0x40, byte(j)},
			CounterpartyAsset: crypto.PublicKey{0x50, byte(j)},
			Amount:            uint64(2000 + j),
		}
	}
	return rec
}

func TestRecordSizes(t *testing.T) {
	require.Equal(t, 76, HeaderSize)
	require.Equal(t, 104, CustodyLegSize)
	require.Equal(t, 72, DirectLegSize)
	require.Equal(t, 1660, MaxRecordSize)
	require.Equal(t, MaxRecordSize, RecordSize(MaxLegs, MaxLegs))
}

func TestRecordRoundTrip(t *testing.T) {
	for _, counts := range [][2]int{{0, 0}, {1, 1}, {3, 0}, {0, 5}, {MaxLegs, MaxLegs}} {
		rec := sampleRecord(counts[0], counts[1])
		buf := make([]byte, MaxRecordSize)
		WriteRecord(buf, rec)

		got, err := ReadRecord(buf)
		require.NoError(t, err)
		require.Equal(t, rec, got)
		require.Equal(t, rec.Encode(), buf[:rec.Size()])
	}
}

func TestRecordLayoutOffsets(t *testing.T) {
	rec := sampleRecord(1, 1)
	rec.ReserveAmount = 0x0102030405060708
	buf := make([]byte, MaxRecordSize)
	WriteRecord(buf, rec)

	require.Equal(t, byte(1), buf[0])
	require.Equal(t, byte(1), buf[1])
	require.Equal(t, byte(1), buf[2])
	require.Equal(t, byte(2), buf[3])
	require.Equal(t, []byte{1, 2, 3, 4, 5, 6, 7, 8}, buf[4:12])
	require.Equal(t, rec.Initiator[:], buf[12:44])
	require.Equal(t, rec.Counterparty[:], buf[44:76])
	require.Equal(t, rec.LegsA[0].InitiatorAsset[:], buf[76:108])
	require.Equal(t, rec.LegsA[0].CounterpartyAsset[:], buf[108:140])
	require.Equal(t, rec.LegsA[0].Custody[:], buf[140:172])
	require.Equal(t, []byte{0, 0, 0, 0, 0, 0, 0x03, 0xE8}, buf[172:180])
	require.Equal(t, rec.LegsB[0].InitiatorAsset[:], buf[180:212])
	require.Equal(t, rec.LegsB[0].CounterpartyAsset[:], buf[212:244])
	require.Equal(t, []byte{0, 0, 0, 0, 0, 0, 0x07, 0xD0}, buf[244:252])
	require.Equal(t, make([]byte, MaxRecordSize-252), buf[252:])
}

func TestWriteRecordPastCapacityPanics(t *testing.T) {
	rec := sampleRecord(MaxLegs, MaxLegs)
	buf := make([]byte, MaxRecordSize-1)
	require.PanicsWithValue(t, CursorOverflow{Offset: MaxRecordSize - 8, Need: 8, Capacity: MaxRecordSize - 1}, func() {
		WriteRecord(buf, rec)
	})
}

func TestReadRecordChecksCapacity(t *testing.T) {
	_, err := ReadRecord(make([]byte, HeaderSize-1))
	require.ErrorIs(t, err, ErrStorageUndersized)

	rec := sampleRecord(2, 0)
	buf := rec.Encode()
	_, err = ReadRecord(buf[:len(buf)-1])
	require.ErrorIs(t, err, ErrStorageUndersized)

	buf[1] = MaxLegs + 1
	_, err = ReadRecord(buf)
	require.ErrorIs(t, err, ErrCorruptRecord)

	buf[0] = 9
	_, err = ReadRecord(buf)
	require.ErrorIs(t, err, ErrCorruptRecord)
}

func TestReadUninitializedRecord(t *testing.T) {
	rec, err := ReadRecord(make([]byte, MaxRecordSize))
	require.NoError(t, err)
	require.Equal(t, StatusUninitialized, rec.Status)
	require.Equal(t, "uninitialized", DescribeRecord(rec).Status)
}

func TestEraseRecord(t *testing.T) {
	buf := make([]byte, MaxRecordSize)
	WriteRecord(buf, sampleRecord(3, 3))
	EraseRecord(buf)
	require.Equal(t, make([]byte, MaxRecordSize), buf)
}

func TestCursorReaderOverflowPanics(t *testing.T) {
	r := NewReader([]byte{1, 2, 3})
	require.Equal(t, uint8(1), r.ReadU8())
	require.Equal(t, 1, r.Offset())
	require.Panics(t, func() { r.ReadU64BE() })
}

func TestDescribeRecord(t *testing.T) {
	rec := sampleRecord(1, 2)
	view := DescribeRecord(rec)
	require.Equal(t, "committed", view.Status)
	require.Equal(t, "counterparty_pays", view.NativeDirection)
	require.Len(t, view.LegsA, 1)
	require.Len(t, view.LegsB, 2)
	require.Equal(t, rec.LegsA[0].Custody.String(), view.LegsA[0].Custody)
	require.Empty(t, view.LegsB[0].Custody)
	require.Len(t, view.TermsHash, 64)
}
