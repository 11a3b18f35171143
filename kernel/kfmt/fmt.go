// Package kfmt provides a minimal, allocation-light Printf implementation
// safe to use before the Go heap is self-hosting — boot diagnostics, the
// page-fault handler, and the frame allocator's warning path all go through
// here instead of the standard fmt package.
package kfmt

import "io"

const maxNumBufSize = 32

var (
	singleByte = make([]byte, 1)
	numBuf     [maxNumBufSize]byte

	// earlyBuffer holds output produced before a console is attached.
	earlyBuffer ringBuffer

	// outputSink is where Printf sends output once a console exists.
	outputSink io.Writer
)

// SetOutputSink directs future Printf calls to w, first draining whatever
// accumulated in the early ring buffer.
func SetOutputSink(w io.Writer) {
	outputSink = w
	if w != nil {
		io.Copy(w, &earlyBuffer)
	}
}

// GetOutputSink returns the currently active sink, or nil before one has
// been installed.
func GetOutputSink() io.Writer {
	return outputSink
}

// Printf writes formatted output to the active sink (or the early ring
// buffer if none is installed yet). Supported verbs: %s, %d, %x, %o, %t, %c.
// Width is an optional decimal prefix, e.g. %4d.
func Printf(format string, args ...interface{}) {
	Fprintf(outputSink, format, args...)
}

// Fprintf behaves like Printf but writes to an explicit io.Writer.
func Fprintf(w io.Writer, format string, args ...interface{}) {
	argIdx := 0
	i, n := 0, len(format)
	for i < n {
		c := format[i]
		if c != '%' {
			singleByte[0] = c
			doWrite(w, singleByte)
			i++
			continue
		}

		i++
		if i >= n {
			doWrite(w, []byte("%!(NOVERB)"))
			break
		}

		width := 0
		for i < n && format[i] >= '0' && format[i] <= '9' {
			width = width*10 + int(format[i]-'0')
			i++
		}
		if i >= n {
			doWrite(w, []byte("%!(NOVERB)"))
			break
		}

		verb := format[i]
		i++

		if verb == '%' {
			singleByte[0] = '%'
			doWrite(w, singleByte)
			continue
		}

		if argIdx >= len(args) {
			doWrite(w, []byte("%!(MISSING)"))
			continue
		}
		arg := args[argIdx]
		argIdx++

		switch verb {
		case 's':
			writeString(w, toString(arg), width)
		case 'c':
			writeRune(w, arg)
		case 't':
			writeBool(w, arg)
		case 'd':
			writeInt(w, arg, 10, false, width)
		case 'x':
			writeInt(w, arg, 16, false, width)
		case 'o':
			writeInt(w, arg, 8, false, width)
		default:
			doWrite(w, []byte("%!(NOVERB)"))
		}
	}

	if argIdx < len(args) {
		doWrite(w, []byte("%!(EXTRA)"))
	}
}

func doWrite(w io.Writer, p []byte) {
	if w == nil {
		earlyBuffer.Write(p)
		return
	}
	w.Write(p)
}

func toString(v interface{}) string {
	switch t := v.(type) {
	case string:
		return t
	case []byte:
		return string(t)
	case error:
		return t.Error()
	default:
		return "%!(WRONGTYPE)"
	}
}

func writeString(w io.Writer, s string, width int) {
	for i := len(s); i < width; i++ {
		singleByte[0] = ' '
		doWrite(w, singleByte)
	}
	doWrite(w, []byte(s))
}

func writeRune(w io.Writer, v interface{}) {
	switch t := v.(type) {
	case rune:
		singleByte[0] = byte(t)
	case byte:
		singleByte[0] = t
	default:
		doWrite(w, []byte("%!(WRONGTYPE)"))
		return
	}
	doWrite(w, singleByte)
}

func writeBool(w io.Writer, v interface{}) {
	b, ok := v.(bool)
	if !ok {
		doWrite(w, []byte("%!(WRONGTYPE)"))
		return
	}
	if b {
		doWrite(w, []byte("true"))
	} else {
		doWrite(w, []byte("false"))
	}
}

// writeInt renders any built-in integer type in the given base, optionally
// left-padding with spaces (base 10) or zeroes (base 16/8) to width.
func writeInt(w io.Writer, v interface{}, base int, signed bool, width int) {
	u, neg, ok := toUint64(v)
	if !ok {
		doWrite(w, []byte("%!(WRONGTYPE)"))
		return
	}

	pos := maxNumBufSize
	if u == 0 {
		pos--
		numBuf[pos] = '0'
	}
	for u > 0 {
		pos--
		digit := u % uint64(base)
		if digit < 10 {
			numBuf[pos] = byte('0' + digit)
		} else {
			numBuf[pos] = byte('a' + digit - 10)
		}
		u /= uint64(base)
	}

	digits := maxNumBufSize - pos
	padChar := byte(' ')
	if base != 10 {
		padChar = '0'
	}
	for i := digits; i < width; i++ {
		pos--
		numBuf[pos] = padChar
	}

	if neg {
		pos--
		numBuf[pos] = '-'
	}

	doWrite(w, numBuf[pos:])
}

func toUint64(v interface{}) (u uint64, neg bool, ok bool) {
	switch t := v.(type) {
	case int:
		return absUint64(int64(t))
	case int8:
		return absUint64(int64(t))
	case int16:
		return absUint64(int64(t))
	case int32:
		return absUint64(int64(t))
	case int64:
		return absUint64(t)
	case uint:
		return uint64(t), false, true
	case uint8:
		return uint64(t), false, true
	case uint16:
		return uint64(t), false, true
	case uint32:
		return uint64(t), false, true
	case uint64:
		return t, false, true
	case uintptr:
		return uint64(t), false, true
	default:
		return 0, false, false
	}
}

func absUint64(v int64) (uint64, bool, bool) {
	if v < 0 {
		return uint64(-v), true, true
	}
	return uint64(v), false, true
}
