package cmd

import (
	"fmt"
	"log/slog"
	"net"
	"os"
	"time"

	"golang.org/x/term"

	"splithid/protocol"
	"splithid/splitter"
)

// Feed reads keys from a raw terminal and injects them into a running daemon
// as position events, for exercising the splitter without real hardware.
// Ctrl-L toggles the activation layer, Esc or Ctrl-C exits.
type Feed struct {
	Addr  string        `help:"Daemon key-event address" default:"127.0.0.1:7354" env:"SPLITHID_ADDR"`
	Hold  time.Duration `help:"Time between injected press and release" default:"10ms"`
	Layer uint8         `help:"Layer bit toggled by Ctrl-L" default:"1"`
}

// feedKey pairs the physical position a rune sits on in the built-in 42-key
// layout with the HID usage code the keymap would resolve for it.
type feedKey struct {
	position uint16
	key      uint8
}

// feedLayout follows the default mapping's 42-key numbering: left half rows
// at 0-5, 6-11 and 12-17, right half rows at 18-23, 24-29 and 30-35, thumbs
// at 36-41.
var feedLayout = map[byte]feedKey{
	'q': {1, splitter.KeyQ}, 'w': {2, splitter.KeyW}, 'e': {3, splitter.KeyE},
	'r': {4, splitter.KeyR}, 't': {5, splitter.KeyT},
	'y': {18, splitter.KeyY}, 'u': {19, splitter.KeyU}, 'i': {20, splitter.KeyI},
	'o': {21, splitter.KeyO}, 'p': {22, splitter.KeyP},

	'a': {7, splitter.KeyA}, 's': {8, splitter.KeyS}, 'd': {9, splitter.KeyD},
	'f': {10, splitter.KeyF}, 'g': {11, splitter.KeyG},
	'h': {24, splitter.KeyH}, 'j': {25, splitter.KeyJ}, 'k': {26, splitter.KeyK},
	'l': {27, splitter.KeyL}, ';': {28, splitter.KeySemicolon},

	'z': {13, splitter.KeyZ}, 'x': {14, splitter.KeyX}, 'c': {15, splitter.KeyC},
	'v': {16, splitter.KeyV}, 'b': {17, splitter.KeyB},
	'n': {30, splitter.KeyN}, 'm': {31, splitter.KeyM}, ',': {32, splitter.KeyComma},
	'.': {33, splitter.KeyPeriod}, '/': {34, splitter.KeySlash},

	' ':  {37, splitter.KeySpace},
	'\r': {40, splitter.KeyEnter},
}

// Run is called by kong when the feed command is executed.
func (f *Feed) Run(logger *slog.Logger) error {
	conn, err := net.Dial("tcp", f.Addr)
	if err != nil {
		return fmt.Errorf("dial daemon: %w", err)
	}
	defer conn.Close()

	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return fmt.Errorf("feed needs an interactive terminal")
	}
	oldState, err := term.MakeRaw(fd)
	if err != nil {
		return fmt.Errorf("raw terminal: %w", err)
	}
	defer term.Restore(fd, oldState)

	fmt.Printf("feeding %s; Ctrl-L toggles layer %d, Esc quits\r\n", f.Addr, f.Layer)

	layerOn := false
	buf := make([]byte, 1)
	for {
		if _, err := os.Stdin.Read(buf); err != nil {
			return err
		}
		switch buf[0] {
		case 0x03, 0x1B: // Ctrl-C, Esc
			return nil
		case 0x0C: // Ctrl-L
			layerOn = !layerOn
			var state uint32
			if layerOn {
				state = 1 << f.Layer
			}
			if err := protocol.WriteFrame(conn, protocol.LayerState{State: state}); err != nil {
				return fmt.Errorf("send layer state: %w", err)
			}
			fmt.Printf("layer %d -> %v\r\n", f.Layer, layerOn)
		default:
			fk, ok := feedLayout[buf[0]]
			if !ok {
				continue
			}
			if err := f.tap(conn, fk); err != nil {
				return err
			}
			logger.Debug("injected key",
				"position", fk.position, "key", splitter.KeyName[fk.key])
		}
	}
}

func (f *Feed) tap(conn net.Conn, fk feedKey) error {
	press := protocol.KeyEvent{
		Position:  fk.position,
		Pressed:   true,
		Key:       fk.key,
		Timestamp: time.Now().UnixMilli(),
	}
	if err := protocol.WriteFrame(conn, press); err != nil {
		return fmt.Errorf("send press: %w", err)
	}
	time.Sleep(f.Hold)
	release := protocol.KeyEvent{
		Position:  fk.position,
		Timestamp: time.Now().UnixMilli(),
	}
	if err := protocol.WriteFrame(conn, release); err != nil {
		return fmt.Errorf("send release: %w", err)
	}
	return nil
}
