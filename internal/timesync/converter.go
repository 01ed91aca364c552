package timesync

import (
	"bufio"
	"fmt"
	"math/bits"
	"os"
	"strconv"
	"strings"
	"time"
)

// Converter handles conversion from mach_time ticks to wall-clock time.
type Converter struct {
	bootTime time.Time
	numer    uint32
	denom    uint32
}

// NewConverter creates a new time converter with a 1/1 timebase.
// It reads the system boot time from /proc/stat.
// If reading fails, it uses a conservative fallback estimate.
func NewConverter() (*Converter, error) {
	bootTime, err := getSystemBootTime()
	if err != nil {
		bootTime = time.Now().Add(-time.Hour)
	}
	return NewConverterAt(bootTime, 1, 1)
}

// NewConverterAt creates a converter for a known boot time and timebase.
func NewConverterAt(bootTime time.Time, numer, denom uint32) (*Converter, error) {
	if numer == 0 || denom == 0 {
		return nil, fmt.Errorf("invalid timebase %d/%d", numer, denom)
	}
	return &Converter{bootTime: bootTime, numer: numer, denom: denom}, nil
}

// Nanos scales mach ticks to nanoseconds since boot.
func (c *Converter) Nanos(ticks uint64) uint64 {
	if c.numer == c.denom {
		return ticks
	}
	hi, lo := bits.Mul64(ticks, uint64(c.numer))
	if hi >= uint64(c.denom) {
		return ^uint64(0)
	}
	q, _ := bits.Div64(hi, lo, uint64(c.denom))
	return q
}

// MachToWallClock converts a mach_time value to wall-clock time.
func (c *Converter) MachToWallClock(ticks uint64) time.Time {
	//nolint:gosec // nanoseconds since boot fit in int64 for any real uptime
	return c.bootTime.Add(time.Duration(c.Nanos(ticks)))
}

// BootTime returns the system boot time used for conversions.
func (c *Converter) BootTime() time.Time {
	return c.bootTime
}

// getSystemBootTime reads the system boot time from /proc/stat.
func getSystemBootTime() (time.Time, error) {
	file, err := os.Open("/proc/stat")
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to open /proc/stat: %w", err)
	}
	defer func() {
		_ = file.Close() //nolint:errcheck // Read-only file, defer cleanup
	}()

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) >= 2 && fields[0] == "btime" {
			sec, err := strconv.ParseInt(fields[1], 10, 64)
			if err != nil {
				return time.Time{}, fmt.Errorf("failed to parse btime: %w", err)
			}
			return time.Unix(sec, 0), nil
		}
	}
	if err := scanner.Err(); err != nil {
		return time.Time{}, fmt.Errorf("error reading /proc/stat: %w", err)
	}
	return time.Time{}, fmt.Errorf("btime not found in /proc/stat")
}
