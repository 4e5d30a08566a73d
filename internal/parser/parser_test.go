package parser_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/duskvault/backupd/internal/parser"
)

func TestByteRateSampleUnits(t *testing.T) {
	cases := []struct {
		line     string
		wantRate float64
	}{
		{"     1,048,576  50%    1.23MB/s    0:00:10", 1.23 * 1024 * 1024},
		{"     1,048,576  50%    1.23kB/s    0:00:10", 1.23 * 1024},
		{"     1,048,576  50%    1.23GB/s    0:00:10", 1.23 * 1024 * 1024 * 1024},
		{"     1,048,576  50%    42.00B/s    0:00:10", 42},
	}
	for _, c := range cases {
		ev := parser.ParseLine(c.line)
		assert.Equal(t, parser.KindByteRateSample, ev.Kind, c.line)
		assert.InDelta(t, c.wantRate, ev.RateBps, 0.01, c.line)
		assert.Equal(t, 50, ev.Percent)
		assert.Equal(t, int64(1048576), ev.Bytes)
	}
}

func TestTransferredCount(t *testing.T) {
	ev := parser.ParseLine("xfr#42, to-chk=0/100")
	assert.Equal(t, parser.KindTransferredCount, ev.Kind)
	assert.Equal(t, int64(42), ev.Count)
}

func TestTotalFilesWithThousandsSeparator(t *testing.T) {
	ev := parser.ParseLine("Number of files: 1,234 (reg: 1,200, dir: 34)")
	assert.Equal(t, parser.KindTotalFiles, ev.Kind)
	assert.Equal(t, int64(1234), ev.Count)
}

func TestPlannedTransfers(t *testing.T) {
	ev := parser.ParseLine("Number of created files: 10")
	assert.Equal(t, parser.KindPlannedTransfers, ev.Kind)
	assert.Equal(t, int64(10), ev.Count)
}

func TestTotalBytesPlanned(t *testing.T) {
	ev := parser.ParseLine("Total transferred file size: 10,737,418,240 bytes")
	assert.Equal(t, parser.KindTotalBytesPlanned, ev.Kind)
	assert.Equal(t, int64(10737418240), ev.Bytes)
}

func TestFinalStatsLine(t *testing.T) {
	ev := parser.ParseLine("sent 1,024 bytes  received 256 bytes  2560.00 bytes/sec")
	assert.Equal(t, parser.KindFinalStats, ev.Kind)
	assert.Equal(t, int64(1024), ev.SentBytes)
	assert.Equal(t, int64(256), ev.ReceivedBytes)
	assert.InDelta(t, 2560.0, ev.FinalRateBps, 0.01)
}

func TestItemizedTransferredLine(t *testing.T) {
	ev := parser.ParseLine(">f+++++++++ path/to/file.txt")
	assert.Equal(t, parser.KindItemTransferred, ev.Kind)
	assert.Equal(t, "path/to/file.txt", ev.FileName)
}

func TestItemizedExaminedLine(t *testing.T) {
	ev := parser.ParseLine(".d..t...... some/dir")
	assert.Equal(t, parser.KindItemExamined, ev.Kind)
}

func TestTrailingPercent(t *testing.T) {
	ev := parser.ParseLine("some scan output 73%")
	assert.Equal(t, parser.KindProgressPercent, ev.Kind)
	assert.Equal(t, 73, ev.Percent)
}

func TestUnparseableLineIsNone(t *testing.T) {
	ev := parser.ParseLine("receiving incremental file list")
	assert.Equal(t, parser.KindNone, ev.Kind)
}

func TestReapplyingSameLineIsIdempotent(t *testing.T) {
	line := "     1,048,576  50%    1.23MB/s    0:00:10"
	first := parser.ParseLine(line)
	second := parser.ParseLine(line)
	assert.Equal(t, first, second)
}
