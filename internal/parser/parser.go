// Package parser turns a line of rsync-style output into a structured
// metric delta. It is intentionally stateless per call; per-directory
// accumulation lives in internal/monitor.
package parser

import (
	"regexp"
	"strconv"
	"strings"
)

// Kind identifies which output shape a line matched.
type Kind int

const (
	KindNone Kind = iota
	KindProgressPercent
	KindTransferredCount // xfr#<n>
	KindItemTransferred  // >f...
	KindItemExamined     // <f... or other itemized prefixes
	KindTotalFiles       // "Number of files: <n>"
	KindPlannedTransfers // "Number of created/transferred files: <n>"
	KindTotalBytesPlanned
	KindFinalStats // "sent X bytes received Y bytes Z bytes/sec"
	KindByteRateSample
)

// Event is the structured result of parsing one line. Only the fields
// relevant to Kind are populated.
type Event struct {
	Kind Kind

	Percent int     // KindProgressPercent, KindByteRateSample
	Count   int64   // KindTransferredCount, KindTotalFiles, KindPlannedTransfers
	Bytes   int64   // KindTotalBytesPlanned, KindByteRateSample
	RateBps float64 // KindByteRateSample
	SentBytes,
	ReceivedBytes int64
	FinalRateBps float64 // KindFinalStats
	FileName     string  // KindItemTransferred
}

var (
	// a trailing integer followed by '%', e.g. "  42%" at end of line.
	rePercentTrailing = regexp.MustCompile(`(\d{1,3})%\s*$`)

	reTransferredCount = regexp.MustCompile(`xfr#(\d+)`)

	reTotalFiles       = regexp.MustCompile(`Number of files:\s*([\d,]+)`)
	rePlannedTransfers = regexp.MustCompile(`Number of (?:created files|(?:regular )?files transferred):\s*([\d,]+)`)
	reTotalBytesPlan   = regexp.MustCompile(`Total transferred file size:\s*([\d,]+)\s*bytes`)

	reFinalStats = regexp.MustCompile(`sent\s+([\d,]+)\s+bytes\s+received\s+([\d,]+)\s+bytes\s+([\d.,]+)\s+bytes/sec`)

	// progress sample: "<bytes> <pct>% <rate><unit>/s <ETA>"
	reByteRateSample = regexp.MustCompile(`([\d,]+)\s+(\d{1,3})%\s+([\d.]+)(B|kB|MB|GB)/s`)
)

func stripCommas(s string) string {
	return strings.ReplaceAll(s, ",", "")
}

// ParseInt64 strips thousands separators and parses s as an int64. Exported
// because the monitor also needs it for ad-hoc numeric fields.
func ParseInt64(s string) (int64, error) {
	return strconv.ParseInt(stripCommas(s), 10, 64)
}

// ParseFloat64 strips thousands separators and parses s as a float64.
func ParseFloat64(s string) (float64, error) {
	return strconv.ParseFloat(stripCommas(s), 64)
}

// unitMultiplier returns the bytes-per-unit multiplier for the rate units
// rsync emits, normalizing everything to bytes/sec.
func unitMultiplier(unit string) float64 {
	switch unit {
	case "B":
		return 1
	case "kB":
		return 1024
	case "MB":
		return 1024 * 1024
	case "GB":
		return 1024 * 1024 * 1024
	default:
		return 1
	}
}

// ParseLine recognizes the rsync progress and summary line shapes and
// returns the most specific match. Unparseable lines return
// Event{Kind: KindNone} — parsing never fails the caller.
func ParseLine(line string) Event {
	trimmed := strings.TrimSpace(line)
	if trimmed == "" {
		return Event{Kind: KindNone}
	}

	// Order matters: the byte-rate sample line also ends in a percent
	// sign, so check it before the bare trailing-percent pattern.
	if m := reByteRateSample.FindStringSubmatch(trimmed); m != nil {
		bytes, _ := ParseInt64(m[1])
		pct, _ := strconv.Atoi(m[2])
		rate, _ := ParseFloat64(m[3])
		return Event{
			Kind:    KindByteRateSample,
			Bytes:   bytes,
			Percent: pct,
			RateBps: rate * unitMultiplier(m[4]),
		}
	}

	if m := reFinalStats.FindStringSubmatch(trimmed); m != nil {
		sent, _ := ParseInt64(m[1])
		recv, _ := ParseInt64(m[2])
		rate, _ := ParseFloat64(m[3])
		return Event{Kind: KindFinalStats, SentBytes: sent, ReceivedBytes: recv, FinalRateBps: rate}
	}

	if m := reTotalBytesPlan.FindStringSubmatch(trimmed); m != nil {
		b, _ := ParseInt64(m[1])
		return Event{Kind: KindTotalBytesPlanned, Bytes: b}
	}

	if m := reTotalFiles.FindStringSubmatch(trimmed); m != nil {
		n, _ := ParseInt64(m[1])
		return Event{Kind: KindTotalFiles, Count: n}
	}

	if m := rePlannedTransfers.FindStringSubmatch(trimmed); m != nil {
		n, _ := ParseInt64(m[1])
		return Event{Kind: KindPlannedTransfers, Count: n}
	}

	if m := reTransferredCount.FindStringSubmatch(trimmed); m != nil {
		n, _ := ParseInt64(m[1])
		return Event{Kind: KindTransferredCount, Count: n}
	}

	if strings.HasPrefix(trimmed, ">f") {
		fields := strings.Fields(trimmed)
		name := ""
		if len(fields) > 1 {
			name = fields[1]
		}
		return Event{Kind: KindItemTransferred, FileName: name}
	}

	// itemize-changes lines for examined-but-not-transferred entries
	// start with a second character other than 'f' in the ">f"
	// position, or with "<f" for incoming changes we're not sending.
	if looksItemized(trimmed) {
		return Event{Kind: KindItemExamined}
	}

	if m := rePercentTrailing.FindStringSubmatch(trimmed); m != nil {
		pct, _ := strconv.Atoi(m[1])
		return Event{Kind: KindProgressPercent, Percent: pct}
	}

	return Event{Kind: KindNone}
}

// looksItemized matches rsync's --itemize-changes format: an 11-character
// flag field such as "<f+++++++++" or ".d..t......" at the start of the
// line, followed by whitespace and a path.
func looksItemized(line string) bool {
	if len(line) < 12 {
		return false
	}
	flags := line[:11]
	if flags[0] != '<' && flags[0] != '>' && flags[0] != 'c' && flags[0] != 'h' && flags[0] != '.' && flags[0] != '*' {
		return false
	}
	return line[11] == ' '
}
