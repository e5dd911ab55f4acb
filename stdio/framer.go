package stdio

import "bytes"

// lineFramer accumulates raw input and splits it into newline-terminated
// units. The trailing partial line survives across Append calls. The framer
// has no notion of message boundaries beyond '\n'; JSON string escaping keeps
// argument values from ever containing a raw newline.
type lineFramer struct {
	buf []byte
}

// Append adds a chunk to the accumulation buffer.
func (f *lineFramer) Append(p []byte) {
	f.buf = append(f.buf, p...)
}

// Next extracts the next complete line, skipping lines that are empty or
// whitespace-only. The returned slice is a copy and safe to retain. The
// second result is false when no complete line remains buffered.
func (f *lineFramer) Next() ([]byte, bool) {
	for {
		i := bytes.IndexByte(f.buf, '\n')
		if i < 0 {
			return nil, false
		}
		line := f.buf[:i]
		f.buf = f.buf[i+1:]
		line = bytes.TrimSuffix(line, []byte{'\r'})
		if len(bytes.TrimSpace(line)) == 0 {
			continue
		}
		out := make([]byte, len(line))
		copy(out, line)
		return out, true
	}
}

// Remainder drains the buffer and returns the trailing unterminated unit, if
// any. Called at EOF: the stream ending closes the final line.
func (f *lineFramer) Remainder() []byte {
	rest := bytes.TrimSpace(f.buf)
	f.buf = nil
	if len(rest) == 0 {
		return nil
	}
	out := make([]byte, len(rest))
	copy(out, rest)
	return out
}
