// Package syncer implements the builder trade synchronization engine: the
// cursor-paginated fetch-and-upsert loop, its retry policy, and the pure
// normalization helpers that map remote trade records into local rows.
package syncer

import (
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/alanyoungcy/buildertrades/internal/domain"
)

// NormalizeTradeID returns the trimmed string form of a remote trade ID.
// An empty result means the record has no usable identifier and must be
// skipped by the caller.
func NormalizeTradeID(t domain.RawTrade) string {
	return strings.TrimSpace(t.ID)
}

// ResolveWallet resolves the wallet attribution of a trade by trying maker,
// owner, and builder in that priority order; the first non-empty value wins.
// When all are absent it resolves to the "unknown" sentinel. Values that are
// valid hex addresses are normalized to their EIP-55 checksum form.
func ResolveWallet(t domain.RawTrade) string {
	for _, candidate := range []string{t.Maker, t.Owner, t.Builder} {
		w := strings.TrimSpace(candidate)
		if w == "" {
			continue
		}
		if common.IsHexAddress(w) {
			return common.HexToAddress(w).Hex()
		}
		return w
	}
	return domain.UnknownWallet
}

// NormalizeSize validates a remote size value as a finite decimal and
// returns it trimmed, or "0" when the value does not parse as a finite
// number.
func NormalizeSize(value string) string {
	raw := strings.TrimSpace(value)
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsInf(f, 0) || math.IsNaN(f) {
		return "0"
	}
	return raw
}

// dateLayouts are tried in order when a match time is not a bare epoch.
var dateLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05Z07:00",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// ParseMatchTime parses a remote match time. Purely numeric input is read
// as an epoch value: up to 10 digits means seconds, more means
// milliseconds. Anything else is tried against common date layouts.
// Unparseable input yields nil, never an error.
func ParseMatchTime(value string) *time.Time {
	raw := strings.TrimSpace(value)
	if raw == "" {
		return nil
	}

	if isDigits(raw) {
		if n, err := strconv.ParseInt(raw, 10, 64); err == nil {
			var t time.Time
			if len(raw) <= 10 {
				t = time.Unix(n, 0).UTC()
			} else {
				t = time.UnixMilli(n).UTC()
			}
			return &t
		}
		// Too many digits for int64 falls through to layout parsing.
	}

	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			t = t.UTC()
			return &t
		}
	}

	return nil
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return len(s) > 0
}
