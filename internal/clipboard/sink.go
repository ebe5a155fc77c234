package clipboard

import (
	"strings"

	"github.com/atotto/clipboard"
	"github.com/pkg/errors"
)

// Sink is the OS clipboard. The manager never reads it back.
type Sink interface {
	Set(text string) error
	Clear() error
}

// ErrUnavailable is returned when no clipboard utility is installed
// (pbcopy, xclip, xsel, wl-copy, clip.exe).
var ErrUnavailable = errors.New("no clipboard available")

// SystemSink writes through github.com/atotto/clipboard.
type SystemSink struct{}

func (SystemSink) Set(text string) error {
	if clipboard.Unsupported {
		return ErrUnavailable
	}
	text = strings.ReplaceAll(text, "\r\n", "\n")
	if err := clipboard.WriteAll(text); err != nil {
		return errors.Wrap(err, "write clipboard")
	}
	return nil
}

func (SystemSink) Clear() error {
	if clipboard.Unsupported {
		return ErrUnavailable
	}
	if err := clipboard.WriteAll(""); err != nil {
		return errors.Wrap(err, "clear clipboard")
	}
	return nil
}
