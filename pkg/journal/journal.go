package journal

import (
	"encoding/binary"
	"encoding/json"
	"fmt"

	"github.com/cockroachdb/pebble"

	"github.com/futarchy-tools/arbot/pkg/bot"
)

// Journal is an optional on-disk record of tick reports and executed
// trades. The controller runs fine without one; the status API reads
// recent history out of it when present.
type Journal struct {
	db *pebble.DB
}

// Open creates or reopens a journal at path.
func Open(path string) (*Journal, error) {
	db, err := pebble.Open(path, &pebble.Options{})
	if err != nil {
		return nil, fmt.Errorf("open journal: %w", err)
	}
	return &Journal{db: db}, nil
}

// Close flushes and releases the store.
func (j *Journal) Close() error { return j.db.Close() }

// keys: t:<8-byte-big-endian-tick> for reports, x:<8-byte-tick> for
// executed trades. Big-endian keeps pebble iteration in tick order.
func tickKey(index uint64) []byte  { return appendUint64([]byte("t:"), index) }
func tradeKey(index uint64) []byte { return appendUint64([]byte("x:"), index) }

func appendUint64(prefix []byte, v uint64) []byte {
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], v)
	return append(prefix, buf[:]...)
}

// SaveTick persists one tick report. Reports are append-only; an index
// collision (restarted controller) overwrites, which is the right answer
// for a fresh run.
func (j *Journal) SaveTick(report bot.TickReport) error {
	val, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("encode tick report: %w", err)
	}
	if err := j.db.Set(tickKey(report.Index), val, pebble.NoSync); err != nil {
		return fmt.Errorf("save tick report: %w", err)
	}
	if report.Outcome == bot.OutcomeExecuted {
		if err := j.db.Set(tradeKey(report.Index), val, pebble.Sync); err != nil {
			return fmt.Errorf("save trade record: %w", err)
		}
	}
	return nil
}

// RecentTicks returns up to limit reports, newest first.
func (j *Journal) RecentTicks(limit int) ([]bot.TickReport, error) {
	return j.scan([]byte("t:"), limit)
}

// RecentTrades returns up to limit executed-trade reports, newest first.
func (j *Journal) RecentTrades(limit int) ([]bot.TickReport, error) {
	return j.scan([]byte("x:"), limit)
}

func (j *Journal) scan(prefix []byte, limit int) ([]bot.TickReport, error) {
	iter, err := j.db.NewIter(&pebble.IterOptions{
		LowerBound: prefix,
		UpperBound: keyUpperBound(prefix),
	})
	if err != nil {
		return nil, err
	}
	defer iter.Close()

	var out []bot.TickReport
	for iter.Last(); iter.Valid() && len(out) < limit; iter.Prev() {
		var report bot.TickReport
		if err := json.Unmarshal(iter.Value(), &report); err != nil {
			continue // skip torn writes
		}
		out = append(out, report)
	}
	return out, nil
}

func keyUpperBound(prefix []byte) []byte {
	end := append([]byte(nil), prefix...)
	for i := len(end) - 1; i >= 0; i-- {
		end[i]++
		if end[i] != 0 {
			return end[:i+1]
		}
	}
	return nil
}
