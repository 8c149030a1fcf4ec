package log

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"sync/atomic"
)

type logLevel int32

const (
	SilentLevel logLevel = iota
	MajorLevel
	MinorLevel
	DebugLevel
)

var (
	majorPrefix = ""
	minorPrefix = "  "
	debugPrefix = "   Dbg:"

	mu    sync.Mutex // Serializes writes to out
	out   io.Writer
	level int32 // logLevel, accessed atomically as --log-queries et al can change at run-time
)

func init() {
	out = os.Stdout
}

func (t logLevel) String() string {
	switch t {
	case MajorLevel:
		return "Major"
	case MinorLevel:
		return "Minor"
	case DebugLevel:
		return "Debug"
	}

	return "Silent"
}

// ParseLevel converts the String() form of a level back into a level. Case is ignored.
func ParseLevel(s string) (logLevel, error) {
	for _, l := range []logLevel{SilentLevel, MajorLevel, MinorLevel, DebugLevel} {
		if strings.EqualFold(s, l.String()) {
			return l, nil
		}
	}

	return SilentLevel, fmt.Errorf("log: unknown level '%s'", s)
}

// SetOut changes the output of logging to the supplied io.Writer. The default is
// os.Stdout. The supplied io.Writer must never be nil.
func SetOut(w io.Writer) {
	if w == nil {
		panic("log.SetOut() called with a nil io.Writer")
	}
	mu.Lock()
	out = w
	mu.Unlock()
}

// Out returns the current io.Writer. Writes made directly to it are not serialized with
// other log output, so callers running concurrently should use Line instead.
func Out() io.Writer {
	mu.Lock()
	defer mu.Unlock()

	return out
}

// SetLevel sets the current logging level.
func SetLevel(l logLevel) {
	atomic.StoreInt32(&level, int32(l))
}

// Level returns current level
func Level() logLevel {
	return logLevel(atomic.LoadInt32(&level))
}

// IfMajor returns true if Major logging is written to the output stream. Callers can use
// the If* functions to avoid constructing expensive log arguments.
func IfMajor() bool {
	return Level() >= MajorLevel
}

func IfMinor() bool {
	return Level() >= MinorLevel
}

func IfDebug() bool {
	return Level() >= DebugLevel
}

// Line writes s as a single line regardless of level. A newline is appended if s does
// not already end with one.
func Line(s string) (int, error) {
	if !strings.HasSuffix(s, "\n") {
		s += "\n"
	}
	mu.Lock()
	defer mu.Unlock()

	return io.WriteString(out, s)
}

// Majorf is a fmt.Printf equivalent which only generates output if the level is >=
// Major.
func Majorf(format string, a ...interface{}) (n int, err error) {
	if IfMajor() {
		return prefixAndPrintLines(fmt.Sprintf(format, a...), majorPrefix)
	}

	return 0, nil
}

// Major is a fmt.Print equivalent which only generates output if the level is >= Major.
// Being based on fmt.Sprint, spaces are only added between operands when neither is a
// string.
func Major(a ...interface{}) (n int, err error) {
	if IfMajor() {
		return prefixAndPrintLines(fmt.Sprint(a...), majorPrefix)
	}

	return 0, nil
}

// Minorf is a fmt.Printf equivalent which only generates output if the level is >=
// Minor.
func Minorf(format string, a ...interface{}) (n int, err error) {
	if IfMinor() {
		return prefixAndPrintLines(fmt.Sprintf(format, a...), minorPrefix)
	}

	return 0, nil
}

// Minor is the fmt.Print equivalent for MinorLevel.
func Minor(a ...interface{}) (n int, err error) {
	if IfMinor() {
		return prefixAndPrintLines(fmt.Sprint(a...), minorPrefix)
	}

	return 0, nil
}

// Debugf is the fmt.Printf equivalent for DebugLevel.
func Debugf(format string, a ...interface{}) (n int, err error) {
	if IfDebug() {
		return prefixAndPrintLines(fmt.Sprintf(format, a...), debugPrefix)
	}

	return 0, nil
}

// Debug is the fmt.Print equivalent for DebugLevel.
func Debug(a ...interface{}) (n int, err error) {
	if IfDebug() {
		return prefixAndPrintLines(fmt.Sprint(a...), debugPrefix)
	}

	return 0, nil
}

// prefixAndPrintLines takes potentially multiple lines, chomps trailing empty lines and
// writes them all to out with each line prefixed.
func prefixAndPrintLines(lines, prefix string) (int, error) {
	ar := strings.Split(lines, "\n")
	for len(ar) > 0 && len(ar[len(ar)-1]) == 0 {
		ar = ar[:len(ar)-1]
	}

	s := prefix + strings.Join(ar, "\n"+prefix) + "\n"

	mu.Lock()
	defer mu.Unlock()

	return io.WriteString(out, s)
}
