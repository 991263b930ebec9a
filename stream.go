package xmlcore

import "io"

// defaultChunkSize is the streamer's default read chunk, matching the
// chunk_size configuration default of 1 MiB.
const defaultChunkSize = 1 << 20

// stream is the chunked input source feeding the lexer (C3). In
// whole-buffer mode (streaming == false) the entire source is already
// resident and the streamer never reads further or compacts. In streaming
// mode it holds a file (or any io.Reader) and grows/compacts its backing
// array as the lexer's cursor advances, per the design in spec.md §4.3.
//
// Go's `string(buf[a:b])` conversion always copies, so unlike the C
// original there is no raw-pointer aliasing hazard for identifier/string
// token spans surviving a buffer move — the "volatile token" copy-on-slice
// rule from §4.4 is therefore automatically satisfied by the language and
// needs no special-cased code path here.
type stream struct {
	r         io.Reader
	chunkSize int
	buf       []byte
	filled    int // valid bytes in buf[:filled]
	pos       int // consumed cursor
	streaming bool
	eof       bool
	readErr   error
}

// newStreamFromBytes wraps an already-resident buffer. No further reads
// ever occur.
func newStreamFromBytes(b []byte) *stream {
	return &stream{buf: b, filled: len(b), eof: true}
}

// newStreamFromReader opens a chunked streamer over r with the given chunk
// size (defaultChunkSize if <= 0).
func newStreamFromReader(r io.Reader, chunkSize int) *stream {
	if chunkSize <= 0 {
		chunkSize = defaultChunkSize
	}
	s := &stream{r: r, chunkSize: chunkSize, buf: make([]byte, chunkSize), streaming: true}
	s.fill()
	return s
}

// fill reads one chunk when the remaining valid bytes have dropped to <= 10,
// growing the backing array first if the incoming chunk wouldn't fit, then
// compacting once the cursor has eaten through 75% of the initial chunk.
func (s *stream) fill() {
	if !s.streaming || s.eof {
		return
	}
	if s.filled-s.pos > 10 {
		return
	}
	if s.filled+s.chunkSize > len(s.buf) {
		grown := make([]byte, len(s.buf)+s.chunkSize)
		copy(grown, s.buf[:s.filled])
		s.buf = grown
	}
	n, err := s.r.Read(s.buf[s.filled : s.filled+s.chunkSize])
	s.filled += n
	if err != nil {
		s.eof = true
		if err != io.EOF {
			s.readErr = err
		}
	}
	s.compact()
}

// compact slides unconsumed bytes to offset 0 once the cursor has consumed
// at least 75% of the initial chunk size, downsizing the backing array
// toward chunkSize if it had grown larger.
func (s *stream) compact() {
	if float64(s.pos) < float64(s.chunkSize)*0.75 {
		return
	}
	valid := s.filled - s.pos
	copy(s.buf, s.buf[s.pos:s.filled])
	s.filled = valid
	s.pos = 0
	if len(s.buf) > s.chunkSize {
		newSize := s.chunkSize
		if newSize < valid {
			newSize = valid
		}
		shrunk := make([]byte, newSize)
		copy(shrunk, s.buf[:valid])
		s.buf = shrunk
	}
}

// byteAt peeks the byte `offset` positions ahead of the cursor (0 = current).
func (s *stream) byteAt(offset int) (byte, bool) {
	s.fill()
	i := s.pos + offset
	for i >= s.filled && !s.eof {
		s.fill()
	}
	if i >= s.filled {
		return 0, false
	}
	return s.buf[i], true
}

func (s *stream) current() (byte, bool) { return s.byteAt(0) }

func (s *stream) advance() {
	s.pos++
	s.fill()
}

// mark returns the current cursor position, valid until the next advance
// that triggers a compaction or growth; callers that need a stable span
// must call slice before advancing further.
func (s *stream) mark() int { return s.pos }

// slice returns the (copied, per Go string semantics) text of buf[a:s.pos).
// a must have been obtained from mark() without an intervening
// reallocation; callers crossing a fill() boundary should accumulate into a
// buffer instead (the lexer does this for long comments/CDATA/text runs).
func (s *stream) slice(a int) string { return string(s.buf[a:s.pos]) }

func (s *stream) atEOF() bool {
	s.fill()
	return s.pos >= s.filled && s.eof
}
