// Package xmlfile reads the small XML descriptors found in an installation and its
// projects. Files that declare a GB codepage in their prolog are transcoded to UTF-8
// before decoding; everything else is read as UTF-8.
package xmlfile

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"os"
	"regexp"
	"strings"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/simplifiedchinese"
)

var prologEncoding = regexp.MustCompile(`(?i)<\?xml[^>]*encoding\s*=\s*["']([^"']+)["']`)

// DeclaredEncoding returns the lower-cased encoding named in the XML prolog, or "".
func DeclaredEncoding(data []byte) string {
	head := data
	if len(head) > 256 {
		head = head[:256]
	}
	m := prologEncoding.FindSubmatch(head)
	if m == nil {
		return ""
	}
	return strings.ToLower(string(m[1]))
}

func codepage(name string) encoding.Encoding {
	switch name {
	case "gb2312", "gbk":
		return simplifiedchinese.GBK
	case "gb18030":
		return simplifiedchinese.GB18030
	}
	return nil
}

// ToUTF8 transcodes data according to its declared encoding.
func ToUTF8(data []byte) ([]byte, error) {
	enc := codepage(DeclaredEncoding(data))
	if enc == nil {
		return data, nil
	}
	out, err := enc.NewDecoder().Bytes(data)
	if err != nil {
		return nil, fmt.Errorf("failed to decode %s content: %w", DeclaredEncoding(data), err)
	}
	return out, nil
}

// DecodeBytes unmarshals XML data into v.
func DecodeBytes(data []byte, v any) error {
	utf8Data, err := ToUTF8(data)
	if err != nil {
		return err
	}
	decoder := xml.NewDecoder(bytes.NewReader(utf8Data))
	// Content is UTF-8 at this point whatever the prolog says.
	decoder.CharsetReader = func(_ string, input io.Reader) (io.Reader, error) {
		return input, nil
	}
	if err := decoder.Decode(v); err != nil {
		return fmt.Errorf("failed to decode XML: %w", err)
	}
	return nil
}

// Decode reads the file at path and unmarshals it into v.
func Decode(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", path, err)
	}
	if err := DecodeBytes(data, v); err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	return nil
}
