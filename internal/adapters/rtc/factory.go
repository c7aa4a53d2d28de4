// Package rtc adapts pion/webrtc to the connection interfaces of package core.
package rtc

import (
	"fmt"
	"sync/atomic"

	"github.com/dkeye/Livecast/internal/core"
	"github.com/dkeye/Livecast/internal/logging"
	"github.com/pion/ice/v4"
	"github.com/pion/interceptor"
	"github.com/pion/webrtc/v4"
	"github.com/rs/zerolog"
)

// DefaultICEServers are public STUN servers used when nothing is configured.
var DefaultICEServers = []string{
	"stun:stun.l.google.com:19302",
	"stun:stun1.l.google.com:19302",
}

type Config struct {
	ICEServers []string
	// Loopback keeps 127.0.0.1 candidates and disables mDNS, for in-process peers.
	Loopback bool
	LogLevel zerolog.Level
}

// Factory builds peer connections sharing one media engine and interceptor set.
type Factory struct {
	api  *webrtc.API
	conf webrtc.Configuration
	seq  atomic.Uint64
}

var _ core.PeerFactory = (*Factory)(nil)

func NewFactory(cfg Config) (*Factory, error) {
	m := &webrtc.MediaEngine{}
	if err := m.RegisterDefaultCodecs(); err != nil {
		return nil, fmt.Errorf("register codecs: %w", err)
	}
	i := &interceptor.Registry{}
	if err := webrtc.RegisterDefaultInterceptors(m, i); err != nil {
		return nil, fmt.Errorf("register interceptors: %w", err)
	}

	s := webrtc.SettingEngine{LoggerFactory: logging.NewPionFactory(cfg.LogLevel)}
	if cfg.Loopback {
		s.SetIncludeLoopbackCandidate(true)
		s.SetICEMulticastDNSMode(ice.MulticastDNSModeDisabled)
		s.SetNetworkTypes([]webrtc.NetworkType{webrtc.NetworkTypeUDP4})
	}

	servers := cfg.ICEServers
	if servers == nil {
		servers = DefaultICEServers
	}
	conf := webrtc.Configuration{ICEServers: []webrtc.ICEServer{}}
	if len(servers) > 0 {
		conf.ICEServers = append(conf.ICEServers, webrtc.ICEServer{URLs: servers})
	}

	return &Factory{
		api:  webrtc.NewAPI(webrtc.WithMediaEngine(m), webrtc.WithInterceptorRegistry(i), webrtc.WithSettingEngine(s)),
		conf: conf,
	}, nil
}

func (f *Factory) NewConnection() (core.MediaConnection, error) {
	pc, err := f.api.NewPeerConnection(f.conf)
	if err != nil {
		return nil, err
	}
	return newConnection(pc, fmt.Sprintf("pc-%d", f.seq.Add(1))), nil
}
