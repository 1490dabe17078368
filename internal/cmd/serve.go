package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"splithid/protocol"
	"splithid/splitter"
	"splithid/transport/hidg"
	"splithid/transport/null"
	"splithid/transport/stream"
)

// Serve runs the report splitter daemon: it loads the classifier mapping,
// opens the report transport, starts the keepalive scheduler and accepts
// key-event connections.
type Serve struct {
	Listen    string        `help:"Address to accept key-event connections on" default:":7354" env:"SPLITHID_LISTEN"`
	Mapping   string        `help:"Classifier mapping file (yaml/toml/json); built-in default when empty" env:"SPLITHID_MAPPING"`
	Watch     bool          `help:"Reload the mapping file when it changes" default:"true" negatable:""`
	Transport string        `help:"Report transport" enum:"hidg,stream,null" default:"hidg" env:"SPLITHID_TRANSPORT"`
	HidgPath  string        `help:"HID gadget function file (hidg transport)" default:"/dev/hidg0" env:"SPLITHID_HIDG"`
	SinkAddr  string        `help:"Report sink address (stream transport)" env:"SPLITHID_SINK"`
	SinkPSK   string        `help:"Pre-shared key sealing the stream transport" env:"SPLITHID_SINK_PSK"`
	Interval  time.Duration `help:"Keepalive interval" default:"5ms" env:"SPLITHID_INTERVAL"`
	Layer     uint8         `help:"Layer bit that drives the activation gate" default:"1" env:"SPLITHID_LAYER"`
}

// Run is called by kong when the serve command is executed.
func (s *Serve) Run(logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return s.StartServer(ctx, logger)
}

func (s *Serve) StartServer(ctx context.Context, logger *slog.Logger) error {
	mapping := splitter.DefaultMapping()
	if s.Mapping != "" {
		m, err := splitter.LoadMapping(s.Mapping)
		if err != nil {
			return err
		}
		mapping = m
	}

	tr, closer, err := s.openTransport()
	if err != nil {
		return err
	}
	if closer != nil {
		defer closer.Close()
	}

	sp, err := splitter.New(mapping, tr, logger)
	if err != nil {
		return err
	}
	logger.Info("splitter ready",
		"devices", sp.DeviceCount(),
		"base_report_id", fmt.Sprintf("0x%02X", mapping.ReportID(0)),
		"transport", s.Transport)

	keepalive := splitter.NewKeepalive(sp, s.Interval, logger)
	go func() {
		if err := keepalive.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("keepalive stopped", "error", err)
		}
	}()

	if s.Watch && s.Mapping != "" {
		go func() {
			err := splitter.WatchMapping(ctx, s.Mapping, sp.Reconfigure, logger)
			if err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("mapping watcher stopped", "error", err)
			}
		}()
	}

	ln, err := net.Listen("tcp", s.Listen)
	if err != nil {
		return fmt.Errorf("listen %s: %w", s.Listen, err)
	}
	logger.Info("accepting key-event connections", "addr", ln.Addr().String())
	go func() {
		<-ctx.Done()
		ln.Close()
	}()

	layers := splitter.NewLayerListener(sp, s.Layer)
	for {
		conn, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("accept: %w", err)
		}
		go s.serveConn(ctx, conn, sp, layers, logger)
	}
}

// serveConn pumps one key-event connection into the splitter. The splitter
// serializes mutations internally, but the daemon expects a single event
// source at a time; a second concurrent source interleaves at frame
// granularity only.
func (s *Serve) serveConn(ctx context.Context, conn net.Conn, sp *splitter.Splitter, layers *splitter.LayerListener, logger *slog.Logger) {
	defer conn.Close()
	remote := conn.RemoteAddr().String()
	logger.Info("key-event source connected", "remote", remote)
	go func() {
		<-ctx.Done()
		conn.Close()
	}()

	for {
		frame, err := protocol.ReadFrame(conn)
		if err != nil {
			if errors.Is(err, io.EOF) || ctx.Err() != nil {
				logger.Info("key-event source disconnected", "remote", remote)
			} else {
				logger.Warn("key-event source failed", "remote", remote, "error", err)
			}
			return
		}
		switch f := frame.(type) {
		case protocol.KeyEvent:
			if f.Pressed {
				err = sp.PositionPress(f.Position, f.Key)
			} else {
				err = sp.PositionRelease(f.Position)
			}
			if err != nil {
				// Dropped keystrokes are logged, never fatal: rollover and
				// out-of-range positions must not kill the event stream.
				logger.Warn("keystroke dropped",
					"position", f.Position, "pressed", f.Pressed, "key", f.Key, "error", err)
			}
		case protocol.LayerState:
			layers.LayerStateChanged(f.State)
		}
	}
}

func (s *Serve) openTransport() (splitter.Transport, io.Closer, error) {
	switch s.Transport {
	case "hidg":
		t, err := hidg.Open(s.HidgPath)
		if err != nil {
			return nil, nil, err
		}
		return t, t, nil
	case "stream":
		if s.SinkAddr == "" {
			return nil, nil, fmt.Errorf("stream transport requires --sink-addr")
		}
		t, err := stream.Dial("tcp", s.SinkAddr, []byte(s.SinkPSK))
		if err != nil {
			return nil, nil, err
		}
		return t, t, nil
	case "null":
		return null.New(), nil, nil
	default:
		return nil, nil, fmt.Errorf("unknown transport %q", s.Transport)
	}
}
