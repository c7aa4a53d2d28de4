package media

import (
	"sync"
	"time"

	"github.com/pion/rtp"
)

// Meter is an Output that only counts what it receives.
type Meter struct {
	mu      sync.Mutex
	packets uint64
	bytes   uint64
	last    time.Time
	lost    uint64
	seq     uint16
	started bool
}

func (m *Meter) WriteRTP(pkt *rtp.Packet) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.started {
		if gap := pkt.SequenceNumber - m.seq; gap > 1 && gap < 1<<15 {
			m.lost += uint64(gap - 1)
		}
	}
	m.started = true
	m.seq = pkt.SequenceNumber
	m.packets++
	m.bytes += uint64(len(pkt.Payload))
	m.last = time.Now()
	return nil
}

type MeterReading struct {
	Packets uint64
	Bytes   uint64
	Lost    uint64
	Last    time.Time
}

func (m *Meter) Read() MeterReading {
	m.mu.Lock()
	defer m.mu.Unlock()
	return MeterReading{Packets: m.packets, Bytes: m.bytes, Lost: m.lost, Last: m.last}
}
