package chat

// recvBuffer is a fixed-capacity byte buffer that reads append into. It never
// grows: once full, the owner has to consume or reset it before reading again.
type recvBuffer struct {
	buf []byte
	n   int
}

func newRecvBuffer(size int) *recvBuffer {
	return &recvBuffer{buf: make([]byte, size)}
}

// free returns the unused tail of the buffer for the next read to fill.
func (b *recvBuffer) free() []byte { return b.buf[b.n:] }

func (b *recvBuffer) advance(n int) {
	if n < 0 || b.n+n > len(b.buf) {
		panic("chat: receive buffer advanced past capacity")
	}
	b.n += n
}

func (b *recvBuffer) bytes() []byte { return b.buf[:b.n] }
func (b *recvBuffer) len() int      { return b.n }
func (b *recvBuffer) full() bool    { return b.n == len(b.buf) }
func (b *recvBuffer) reset()        { b.n = 0 }

// consume drops the first n bytes and moves whatever follows to the front.
func (b *recvBuffer) consume(n int) {
	if n >= b.n {
		b.n = 0
		return
	}
	copy(b.buf, b.buf[n:b.n])
	b.n -= n
}
