// Package rowcodec converts between database row tuples and the
// internal timer record types, and between Postgres's microsecond
// epoch and Go's time.Time (spec.md §4.3). Grounded on
// original_source/src/timestamp.rs for the epoch offset and round-trip
// contract, and on the teacher's src/storage/storage_timer.go for the
// field-by-field decode-with-typed-errors idiom.
package rowcodec

import (
	"errors"
	"fmt"
	"time"

	"github.com/cezarmathe/horloge/internal/events"
)

// PGEpochOffsetSeconds is 2000-01-01T00:00:00Z expressed as seconds since the Unix
// epoch — the fixed offset spec.md §4.3 requires when converting a
// Postgres microsecond timestamp to an internal instant.
const PGEpochOffsetSeconds int64 = 946_684_800

// Decode error taxonomy (spec.md §4.3).
var (
	ErrMissingColumn       = errors.New("rowcodec: missing column")
	ErrWrongType           = errors.New("rowcodec: wrong column type")
	ErrNullInNonNullable   = errors.New("rowcodec: null value in non-nullable column")
	ErrAlreadyFiredOrDone  = errors.New("rowcodec: cannot create a timer that is already fired or completed")
)

// PGEpochToTime converts microseconds-since-2000-01-01 (as stored by
// Postgres's `timestamp` type) into a Go time.Time.
func PGEpochToTime(microsSinceY2K int64) time.Time {
	secs := microsSinceY2K / 1_000_000
	micros := microsSinceY2K % 1_000_000
	if micros < 0 {
		micros += 1_000_000
		secs--
	}
	return time.Unix(PGEpochOffsetSeconds+secs, micros*1000).UTC()
}

// TimeToPGEpoch is the inverse of PGEpochToTime; round-tripping a value
// through both functions preserves its microsecond component exactly,
// the property spec.md §8 requires.
func TimeToPGEpoch(t time.Time) int64 {
	unixMicros := t.UnixMicro()
	return unixMicros - PGEpochOffsetSeconds*1_000_000
}

// RowScanner is the by-name column lookup rowcodec decodes from. pgx's
// row types do not implement it; callers adapt a live row into a
// NamedRow first (as sqlcmds does), and tests build one directly, so
// pgx is not imported here.
type RowScanner interface {
	ScanByName(name string, dest interface{}) error
}

// NamedRow is the simplest RowScanner: a name-to-value map, the form
// tests build directly and sqlcmds builds from a live pgx.Rows.
type NamedRow map[string]interface{}

func (r NamedRow) ScanByName(name string, dest interface{}) error {
	v, ok := r[name]
	if !ok {
		return fmt.Errorf("%w: %s", ErrMissingColumn, name)
	}
	switch d := dest.(type) {
	case *int64:
		switch tv := v.(type) {
		case int64:
			*d = tv
			return nil
		case nil:
			return fmt.Errorf("%w: %s", ErrNullInNonNullable, name)
		default:
			return fmt.Errorf("%w: %s", ErrWrongType, name)
		}
	case **time.Time:
		switch tv := v.(type) {
		case time.Time:
			tc := tv
			*d = &tc
			return nil
		case *time.Time:
			*d = tv
			return nil
		case nil:
			*d = nil
			return nil
		default:
			return fmt.Errorf("%w: %s", ErrWrongType, name)
		}
	case *time.Time:
		switch tv := v.(type) {
		case time.Time:
			*d = tv
			return nil
		case nil:
			return fmt.Errorf("%w: %s", ErrNullInNonNullable, name)
		default:
			return fmt.Errorf("%w: %s", ErrWrongType, name)
		}
	default:
		return fmt.Errorf("%w: %s", ErrWrongType, name)
	}
}

// DecodeTimerRow reads id, expires_at, fired_at, completed_at by name
// (spec.md §4.3's tuple → TimerRow conversion).
func DecodeTimerRow(row RowScanner) (events.TimerRow, error) {
	var out events.TimerRow

	if err := row.ScanByName("id", &out.ID); err != nil {
		return events.TimerRow{}, err
	}
	if err := row.ScanByName("expires_at", &out.ExpiresAt); err != nil {
		return events.TimerRow{}, err
	}
	if err := row.ScanByName("fired_at", &out.FiredAt); err != nil {
		return events.TimerRow{}, err
	}
	if err := row.ScanByName("completed_at", &out.CompletedAt); err != nil {
		return events.TimerRow{}, err
	}

	return out, nil
}

// DecodeCreateTimerRow first decodes a TimerRow, then rejects rows that
// are already fired or completed — creating a timer for such a row is
// forbidden (spec.md §4.3).
func DecodeCreateTimerRow(row RowScanner) (events.CreateTimerRow, error) {
	tr, err := DecodeTimerRow(row)
	if err != nil {
		return events.CreateTimerRow{}, err
	}

	if tr.FiredAt != nil || tr.CompletedAt != nil {
		return events.CreateTimerRow{}, ErrAlreadyFiredOrDone
	}

	return events.CreateTimerRow{ID: tr.ID, ExpiresAt: tr.ExpiresAt}, nil
}
