package wire

import (
	"encoding/binary"
	"math"
	"testing"

	"portfolio-rtd/internal/model"
)

func sampleRow(id int32) *model.LiveRow {
	return &model.LiveRow{
		RowID:    id,
		Quantity: 100,
		Price:    101.5,
		Bid:      101.4,
		Ask:      101.6,
		MktValue: 10150,
		PctAUM:   0.1015,
		GainLoss: 150,
		PctChg:   0.015,
		PnL:      150,
	}
}

func TestEncodeUpdate_RoundTrip(t *testing.T) {
	rows := []*model.LiveRow{sampleRow(1), sampleRow(42)}
	frame := EncodeUpdate(123456789, rows)

	if want := HeaderSize + 2*RecordSize; len(frame) != want {
		t.Fatalf("frame length: got %d, want %d", len(frame), want)
	}

	sentinel, recs, err := DecodeFrame(frame)
	if err != nil {
		t.Fatalf("DecodeFrame: %v", err)
	}
	if sentinel != SentinelUpdate {
		t.Errorf("sentinel: got %d, want %d", sentinel, SentinelUpdate)
	}
	if len(recs) != 2 {
		t.Fatalf("records: got %d, want 2", len(recs))
	}
	if recs[1].RowID != 42 {
		t.Errorf("row id: got %d, want 42", recs[1].RowID)
	}
	if recs[0].TimestampNano != 123456789 {
		t.Errorf("timestamp: got %d", recs[0].TimestampNano)
	}
	if recs[0].Price != 101.5 || recs[0].PnL != 150 {
		t.Errorf("fields: got price=%v pnl=%v", recs[0].Price, recs[0].PnL)
	}
}

func TestEncodeUpdate_FieldOffsets(t *testing.T) {
	frame := EncodeUpdate(7, []*model.LiveRow{sampleRow(3)})
	rec := frame[HeaderSize:]

	if got := int64(binary.LittleEndian.Uint64(rec[0:8])); got != 7 {
		t.Errorf("ts at offset 0: got %d", got)
	}
	if got := int32(binary.LittleEndian.Uint32(rec[8:12])); got != 3 {
		t.Errorf("row id at offset 8: got %d", got)
	}
	if got := math.Float64frombits(binary.LittleEndian.Uint64(rec[12:20])); got != 100 {
		t.Errorf("quantity at offset 12: got %v", got)
	}
	if got := math.Float64frombits(binary.LittleEndian.Uint64(rec[76:84])); got != 150 {
		t.Errorf("pnl at offset 76: got %v", got)
	}
}

func TestEncodeResync(t *testing.T) {
	frame := EncodeResync()
	if len(frame) != HeaderSize {
		t.Fatalf("resync frame length: got %d, want %d", len(frame), HeaderSize)
	}

	sentinel, recs, err := DecodeFrame(frame)
	if err != nil {
		t.Fatalf("DecodeFrame: %v", err)
	}
	if sentinel != SentinelResync {
		t.Errorf("sentinel: got %d, want %d", sentinel, SentinelResync)
	}
	if len(recs) != 0 {
		t.Errorf("resync frame carries %d records", len(recs))
	}
}

func TestDecodeFrame_Malformed(t *testing.T) {
	cases := [][]byte{
		nil,
		{0x00},
		append(EncodeResync(), 0xFF),
		append(EncodeUpdate(1, nil), 0x01, 0x02),
	}
	for i, b := range cases {
		if _, _, err := DecodeFrame(b); err == nil {
			t.Errorf("case %d: expected error for %d-byte input", i, len(b))
		}
	}
}

func TestLedgerRecord_RoundTrip(t *testing.T) {
	var buf []byte
	buf = AppendLedgerRecord(buf, LedgerRecord{PortfolioID: 7, TimestampNano: 999, TotalPnL: -123.25})
	buf = AppendLedgerRecord(buf, LedgerRecord{PortfolioID: 8, TimestampNano: 1000, TotalPnL: 42})

	if len(buf) != 2*LedgerRecordSize {
		t.Fatalf("buffer length: got %d, want %d", len(buf), 2*LedgerRecordSize)
	}

	recs, err := DecodeLedger(buf)
	if err != nil {
		t.Fatalf("DecodeLedger: %v", err)
	}
	if len(recs) != 2 {
		t.Fatalf("records: got %d, want 2", len(recs))
	}
	if recs[0].PortfolioID != 7 || recs[0].TotalPnL != -123.25 {
		t.Errorf("record 0: %+v", recs[0])
	}
	if recs[1].TimestampNano != 1000 {
		t.Errorf("record 1 ts: got %d", recs[1].TimestampNano)
	}
}

func TestDecodeLedger_Truncated(t *testing.T) {
	buf := AppendLedgerRecord(nil, LedgerRecord{PortfolioID: 1})
	if _, err := DecodeLedger(buf[:LedgerRecordSize-1]); err == nil {
		t.Error("expected error for truncated ledger")
	}
}
