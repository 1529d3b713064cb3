package console

import (
	"bufio"
	"io"

	"github.com/pkg/errors"
)

// DefaultMaxLen is the default size of the line buffer, including the place reserved for the terminator.
const DefaultMaxLen = 62

const (
	etx       = 0x03
	eot       = 0x04
	backspace = 0x08
	del       = 0x7F
)

var erase = []byte("\b \b")

// LineReader reads lines typed by the user, echoing every accepted character.
type LineReader struct {
	in     *bufio.Reader
	echo   io.Writer
	maxLen int

	afterCR bool
}

// NewLineReader returns new line reader. Lines longer than maxLen-1 characters are truncated.
func NewLineReader(in io.Reader, echo io.Writer, maxLen int) *LineReader {
	if maxLen < 2 {
		maxLen = DefaultMaxLen
	}
	return &LineReader{
		in:     bufio.NewReader(in),
		echo:   echo,
		maxLen: maxLen,
	}
}

// ReadLine blocks until the whole line is read and returns it without the line terminator.
// io.EOF is returned if input ends before any character of the line is received, or if Ctrl+C or Ctrl+D
// is typed, as terminal in raw mode delivers them as characters.
func (lr *LineReader) ReadLine() (string, error) {
	line := make([]byte, 0, lr.maxLen)
	for {
		c, err := lr.in.ReadByte()
		if err != nil {
			if errors.Is(err, io.EOF) && len(line) > 0 {
				return string(line), lr.write([]byte{'\n'})
			}
			return "", errors.WithStack(err)
		}

		afterCR := lr.afterCR
		lr.afterCR = c == '\r'

		switch c {
		case '\n':
			if afterCR {
				continue
			}
			fallthrough
		case '\r':
			return string(line), lr.write([]byte{'\n'})
		case etx, eot:
			return "", errors.WithStack(io.EOF)
		case backspace, del:
			if len(line) > 0 {
				line = line[:len(line)-1]
				if err := lr.write(erase); err != nil {
					return "", err
				}
			}
		default:
			if len(line) < lr.maxLen-1 {
				line = append(line, c)
				if err := lr.write([]byte{c}); err != nil {
					return "", err
				}
			}
		}
	}
}

func (lr *LineReader) write(p []byte) error {
	if lr.echo == nil {
		return nil
	}
	_, err := lr.echo.Write(p)
	return errors.WithStack(err)
}
