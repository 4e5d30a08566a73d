package control

import "github.com/dustin/go-humanize"

// humanizeRate renders a bytes/sec float as a human string like "42.3 MB/s".
func humanizeRate(bytesPerSec float64) string {
	if bytesPerSec <= 0 {
		return "0 B/s"
	}
	return humanize.Bytes(uint64(bytesPerSec)) + "/s"
}
