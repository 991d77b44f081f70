// Package wire implements the fixed-width binary broadcast format and
// the intraday ledger record format.
//
// A broadcast frame is a 4-byte little-endian signed sentinel (0 =
// incremental update, 1 = resync) followed, for update frames, by zero
// or more 84-byte records:
//
//	offset  0: int64   timestamp (nanoseconds)
//	offset  8: int32   row identifier
//	offset 12: float64 quantity
//	offset 20: float64 price
//	offset 28: float64 bid
//	offset 36: float64 ask
//	offset 44: float64 market value
//	offset 52: float64 pct of AUM
//	offset 60: float64 open gain/loss
//	offset 68: float64 pct change
//	offset 76: float64 P&L
//
// A resync frame carries only the sentinel: subscribers must discard
// their row cache and re-request the snapshot out-of-band.
package wire

import (
	"encoding/binary"
	"fmt"
	"math"

	"portfolio-rtd/internal/model"
)

// Frame sentinels.
const (
	SentinelUpdate int32 = 0
	SentinelResync int32 = 1
)

// Fixed sizes in bytes.
const (
	HeaderSize       = 4
	RecordSize       = 84
	LedgerRecordSize = 20
)

// Record is one decoded update record.
type Record struct {
	TimestampNano int64
	RowID         int32

	Quantity float64
	Price    float64
	Bid      float64
	Ask      float64
	MktValue float64
	PctAUM   float64
	GainLoss float64
	PctChg   float64
	PnL      float64
}

// AppendRecord appends the wire representation of a live row.
func AppendRecord(buf []byte, tsNano int64, r *model.LiveRow) []byte {
	buf = binary.LittleEndian.AppendUint64(buf, uint64(tsNano))
	buf = binary.LittleEndian.AppendUint32(buf, uint32(r.RowID))
	for _, f := range [...]float64{
		r.Quantity, r.Price, r.Bid, r.Ask, r.MktValue,
		r.PctAUM, r.GainLoss, r.PctChg, r.PnL,
	} {
		buf = binary.LittleEndian.AppendUint64(buf, math.Float64bits(f))
	}
	return buf
}

// EncodeUpdate builds an update frame for the given rows.
func EncodeUpdate(tsNano int64, rows []*model.LiveRow) []byte {
	buf := make([]byte, 0, HeaderSize+RecordSize*len(rows))
	buf = binary.LittleEndian.AppendUint32(buf, uint32(SentinelUpdate))
	for _, r := range rows {
		buf = AppendRecord(buf, tsNano, r)
	}
	return buf
}

// EncodeResync builds a sentinel-only resync frame.
func EncodeResync() []byte {
	buf := make([]byte, 0, HeaderSize)
	return binary.LittleEndian.AppendUint32(buf, uint32(SentinelResync))
}

// DecodeFrame parses a broadcast frame into its sentinel and records.
func DecodeFrame(b []byte) (int32, []Record, error) {
	if len(b) < HeaderSize {
		return 0, nil, fmt.Errorf("wire: frame too short: %d bytes", len(b))
	}
	sentinel := int32(binary.LittleEndian.Uint32(b))
	body := b[HeaderSize:]
	if sentinel == SentinelResync {
		if len(body) != 0 {
			return 0, nil, fmt.Errorf("wire: resync frame carries %d trailing bytes", len(body))
		}
		return sentinel, nil, nil
	}
	if len(body)%RecordSize != 0 {
		return 0, nil, fmt.Errorf("wire: update body length %d not a multiple of %d", len(body), RecordSize)
	}

	recs := make([]Record, 0, len(body)/RecordSize)
	for off := 0; off < len(body); off += RecordSize {
		recs = append(recs, decodeRecord(body[off:off+RecordSize]))
	}
	return sentinel, recs, nil
}

func decodeRecord(b []byte) Record {
	rec := Record{
		TimestampNano: int64(binary.LittleEndian.Uint64(b[0:8])),
		RowID:         int32(binary.LittleEndian.Uint32(b[8:12])),
	}
	fields := [...]*float64{
		&rec.Quantity, &rec.Price, &rec.Bid, &rec.Ask, &rec.MktValue,
		&rec.PctAUM, &rec.GainLoss, &rec.PctChg, &rec.PnL,
	}
	off := 12
	for _, f := range fields {
		*f = math.Float64frombits(binary.LittleEndian.Uint64(b[off : off+8]))
		off += 8
	}
	return rec
}

// LedgerRecord is one intraday P&L ledger entry:
// int32 portfolio id, int64 timestamp (ns), float64 total P&L.
type LedgerRecord struct {
	PortfolioID   int32
	TimestampNano int64
	TotalPnL      float64
}

// AppendLedgerRecord appends the 20-byte wire form of a ledger entry.
func AppendLedgerRecord(buf []byte, rec LedgerRecord) []byte {
	buf = binary.LittleEndian.AppendUint32(buf, uint32(rec.PortfolioID))
	buf = binary.LittleEndian.AppendUint64(buf, uint64(rec.TimestampNano))
	buf = binary.LittleEndian.AppendUint64(buf, math.Float64bits(rec.TotalPnL))
	return buf
}

// DecodeLedger parses a whole ledger file image into records.
func DecodeLedger(b []byte) ([]LedgerRecord, error) {
	if len(b)%LedgerRecordSize != 0 {
		return nil, fmt.Errorf("wire: ledger length %d not a multiple of %d", len(b), LedgerRecordSize)
	}
	recs := make([]LedgerRecord, 0, len(b)/LedgerRecordSize)
	for off := 0; off < len(b); off += LedgerRecordSize {
		recs = append(recs, LedgerRecord{
			PortfolioID:   int32(binary.LittleEndian.Uint32(b[off : off+4])),
			TimestampNano: int64(binary.LittleEndian.Uint64(b[off+4 : off+12])),
			TotalPnL:      math.Float64frombits(binary.LittleEndian.Uint64(b[off+12 : off+20])),
		})
	}
	return recs, nil
}
