package fetch

import (
	"io"
	"mime"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// bodyDecoder wraps the response body so it yields UTF-8 text.
// A non-UTF-8 charset declared in the Content-Type header is decoded.
// Otherwise bytes pass through unchanged and a leading byte order mark is
// honored and stripped.
func bodyDecoder(body io.Reader, contentType string) io.Reader {
	return transform.NewReader(body, sourceDecoder(contentType))
}

func sourceDecoder(contentType string) transform.Transformer {
	passthrough := unicode.BOMOverride(transform.Nop)

	if contentType == "" {
		return passthrough
	}
	_, params, err := mime.ParseMediaType(contentType)
	if err != nil {
		return passthrough
	}
	charset := strings.TrimSpace(params["charset"])
	if charset == "" {
		return passthrough
	}
	enc, err := htmlindex.Get(charset)
	if err != nil {
		return passthrough
	}
	if name, _ := htmlindex.Name(enc); name == "utf-8" {
		return passthrough
	}
	return unicode.BOMOverride(enc.NewDecoder())
}

// toUTF8 returns line as valid NFC-normalized UTF-8. Lines that are not valid
// UTF-8 after decoding are assumed to be Windows-1252, the usual encoding of
// spreadsheet exports served without a charset.
func toUTF8(line string) string {
	if !utf8.ValidString(line) {
		decoded, err := charmap.Windows1252.NewDecoder().String(line)
		if err != nil {
			decoded = strings.ToValidUTF8(line, "\uFFFD")
		}
		line = decoded
	}
	return norm.NFC.String(line)
}
