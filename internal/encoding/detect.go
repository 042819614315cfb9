// Package encoding normalizes uploaded text files to UTF-8. Client registers
// arrive from spreadsheet exports on office machines, so besides UTF-8 and
// UTF-16 they are often in a legacy Windows code page: 1252 for Latin-only
// sheets, 1256 when names or addresses are written in Urdu.
package encoding

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"unicode/utf8"

	"github.com/saintfish/chardet"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// Charset names the encoding an input was decoded from.
type Charset string

const (
	UTF8        Charset = "UTF-8"
	UTF16LE     Charset = "UTF-16LE"
	UTF16BE     Charset = "UTF-16BE"
	Windows1252 Charset = "windows-1252"
	Windows1256 Charset = "windows-1256"
	ISO8859_6   Charset = "ISO-8859-6"
)

const sampleSize = 4096

var (
	bomUTF8    = []byte{0xEF, 0xBB, 0xBF}
	bomUTF16LE = []byte{0xFF, 0xFE}
	bomUTF16BE = []byte{0xFE, 0xFF}
)

// NewUTF8Reader detects the encoding of r from its first bytes and returns a
// reader producing UTF-8 together with the detected charset.
//
// Detection order:
//  1. BOM (a UTF-8 BOM is stripped, UTF-16 is decoded)
//  2. valid UTF-8 passes through
//  3. runs of high bytes typical of Arabic-script text select windows-1256
//  4. chardet
//  5. windows-1252
func NewUTF8Reader(r io.Reader) (io.Reader, Charset, error) {
	br := bufio.NewReaderSize(r, sampleSize)

	buf, err := br.Peek(sampleSize)
	if err != nil && err != io.EOF && err != bufio.ErrBufferFull {
		return nil, "", fmt.Errorf("peek: %w", err)
	}

	switch {
	case bytes.HasPrefix(buf, bomUTF8):
		_, _ = br.Discard(len(bomUTF8))
		return br, UTF8, nil
	case bytes.HasPrefix(buf, bomUTF16LE):
		return decode(br, unicode.UTF16(unicode.LittleEndian, unicode.UseBOM)), UTF16LE, nil
	case bytes.HasPrefix(buf, bomUTF16BE):
		return decode(br, unicode.UTF16(unicode.BigEndian, unicode.UseBOM)), UTF16BE, nil
	}

	charset := Detect(buf)
	if charset == UTF8 {
		return br, UTF8, nil
	}

	return decode(br, codePages[charset]), charset, nil
}

var codePages = map[Charset]encoding.Encoding{
	Windows1252: charmap.Windows1252,
	Windows1256: charmap.Windows1256,
	ISO8859_6:   charmap.ISO8859_6,
}

// Detect guesses the charset of a BOM-less sample.
func Detect(sample []byte) Charset {
	if utf8.Valid(sample) {
		return UTF8
	}

	if looksArabicScript(sample) {
		return Windows1256
	}

	result, err := chardet.NewTextDetector().DetectBest(sample)
	if err == nil {
		switch result.Charset {
		case "UTF-8":
			return UTF8
		case "windows-1256":
			return Windows1256
		case "ISO-8859-6":
			return ISO8859_6
		}
	}

	return Windows1252
}

// looksArabicScript reports whether three quarters of the non-ASCII bytes sit
// in runs of three or more. Latin text in a single-byte code page has isolated accented letters
// between ASCII ones; Arabic-script words consist of high bytes only.
func looksArabicScript(sample []byte) bool {
	var high, inRuns, run int

	flush := func() {
		if run >= 3 {
			inRuns += run
		}

		run = 0
	}

	for _, b := range sample {
		if b < 0x80 {
			flush()
			continue
		}

		high++
		run++
	}

	flush()

	return high > 0 && inRuns*4 > high*3
}

func decode(r io.Reader, e encoding.Encoding) io.Reader {
	return transform.NewReader(r, e.NewDecoder())
}
