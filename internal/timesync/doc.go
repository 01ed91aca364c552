// Package timesync converts message mach_time values to wall-clock time.
//
// mach_time counts timebase ticks since boot. The converter scales ticks to
// nanoseconds with the numer/denom timebase and adds them to the boot time
// read from /proc/stat. It is used when a message carries no wall-clock
// time of its own.
package timesync
