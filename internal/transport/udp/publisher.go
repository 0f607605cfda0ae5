// SPDX-License-Identifier: MIT

// Package udp publishes the newest frame's levels and band amplitudes as a
// compact binary datagram at a fixed interval.
package udp

import (
	"fmt"
	"sync"
	"time"

	"spectra/internal/engine"
	"spectra/internal/transport"
)

// DefaultInterval is used when the configured interval is not positive.
const DefaultInterval = 16 * time.Millisecond

// Publisher keeps the most recent frame handed to Send and transmits it on
// every tick. Ticks with no new frame send nothing, and frames replaced
// before a tick are never sent.
type Publisher struct {
	sender   *Sender
	interval time.Duration

	mu       sync.Mutex
	latest   Packet
	fresh    bool
	ticker   *time.Ticker
	doneChan chan struct{}
	wg       sync.WaitGroup

	sequence uint32
	sent     uint64
	buf      []byte // reused packet buffer, publisher goroutine only
	scratch  Packet
}

// NewPublisher creates a Publisher sending through sender every interval.
func NewPublisher(interval time.Duration, sender *Sender) (*Publisher, error) {
	if sender == nil {
		return nil, fmt.Errorf("udp publisher: sender cannot be nil")
	}
	if interval <= 0 {
		logger.Warnf("invalid interval %s, defaulting to %s", interval, DefaultInterval)
		interval = DefaultInterval
	}
	logger.Infof("publisher initialised (interval %s)", interval)
	return &Publisher{sender: sender, interval: interval}, nil
}

// Send stores an engine.Frame (or *engine.Frame) as the next packet.
func (p *Publisher) Send(data any) error {
	var f *engine.Frame
	switch v := data.(type) {
	case engine.Frame:
		f = &v
	case *engine.Frame:
		f = v
	default:
		return fmt.Errorf("udp publisher: unsupported payload %T", data)
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	p.latest.Levels = [3]float32{float32(f.Shaped.Bass), float32(f.Shaped.Mid), float32(f.Shaped.Treble)}
	p.latest.Amplitudes = p.latest.Amplitudes[:0]
	for _, b := range f.Bands {
		p.latest.Amplitudes = append(p.latest.Amplitudes, float32(b.SmoothedAmplitude))
	}
	p.fresh = true
	return nil
}

// Start begins the periodic publishing loop. Calling Start on a running
// Publisher is a no-op.
func (p *Publisher) Start() {
	p.mu.Lock()
	if p.ticker != nil {
		p.mu.Unlock()
		logger.Warnf("Start called but already running")
		return
	}
	p.ticker = time.NewTicker(p.interval)
	p.doneChan = make(chan struct{})
	ticker, done := p.ticker, p.doneChan
	p.mu.Unlock()

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		for {
			select {
			case <-ticker.C:
				p.publish()
			case <-done:
				return
			}
		}
	}()
}

// Stop ends the publishing loop and waits for it to exit.
func (p *Publisher) Stop() {
	p.mu.Lock()
	if p.ticker == nil {
		p.mu.Unlock()
		return
	}
	p.ticker.Stop()
	p.ticker = nil
	close(p.doneChan)
	p.mu.Unlock()

	p.wg.Wait()
	logger.Infof("publisher stopped after %d packets", p.sent)
}

func (p *Publisher) publish() {
	p.mu.Lock()
	if !p.fresh {
		p.mu.Unlock()
		return
	}
	p.fresh = false
	p.scratch.Levels = p.latest.Levels
	p.scratch.Amplitudes = append(p.scratch.Amplitudes[:0], p.latest.Amplitudes...)
	p.mu.Unlock()

	p.sequence++
	p.scratch.Sequence = p.sequence
	p.scratch.Timestamp = time.Now().UnixNano()
	p.buf = AppendPacket(p.buf[:0], p.scratch)

	if err := p.sender.Send(p.buf); err != nil {
		logger.Warnf("packet %d: %v", p.sequence, err)
		return
	}
	p.sent++
	logger.Debugf("sent packet %d (%d bytes)", p.sequence, len(p.buf))
}

// Close stops the loop and closes the sender.
func (p *Publisher) Close() error {
	p.Stop()
	return p.sender.Close()
}

var _ transport.Transport = (*Publisher)(nil)
