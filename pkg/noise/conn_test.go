package noise_test

import (
	"errors"
	"sync"
)

var errPipeClosed = errors.New("pipe closed")

// framePipe is an in-memory FrameConn. Closing either end closes both.
type framePipe struct {
	in     <-chan []byte
	out    chan<- []byte
	closed chan struct{}
	once   *sync.Once

	mu   sync.Mutex
	sent [][]byte
}

func newFramePipe() (*framePipe, *framePipe) {
	a := make(chan []byte, 4)
	b := make(chan []byte, 4)
	closed := make(chan struct{})
	once := &sync.Once{}
	return &framePipe{in: a, out: b, closed: closed, once: once},
		&framePipe{in: b, out: a, closed: closed, once: once}
}

func (p *framePipe) SendFrame(payload []byte) error {
	frame := append([]byte{}, payload...)
	p.mu.Lock()
	p.sent = append(p.sent, frame)
	p.mu.Unlock()
	select {
	case <-p.closed:
		return errPipeClosed
	default:
	}
	select {
	case p.out <- frame:
		return nil
	case <-p.closed:
		return errPipeClosed
	}
}

func (p *framePipe) ReceiveFrame() ([]byte, error) {
	select {
	case frame := <-p.in:
		return frame, nil
	case <-p.closed:
		return nil, errPipeClosed
	}
}

func (p *framePipe) Close() error {
	p.once.Do(func() { close(p.closed) })
	return nil
}

func (p *framePipe) Sent() [][]byte {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([][]byte{}, p.sent...)
}
