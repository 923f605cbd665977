package xmlfile

import (
	"encoding/xml"
	"os"
	"path/filepath"
	"testing"

	"golang.org/x/text/encoding/simplifiedchinese"
)

type note struct {
	XMLName xml.Name `xml:"note"`
	Title   string   `xml:"title"`
}

func TestDeclaredEncoding(t *testing.T) {
	cases := map[string]string{
		`<?xml version="1.0" encoding="GBK"?><a/>`:    "gbk",
		`<?xml version='1.0' encoding='gb2312'?><a/>`: "gb2312",
		`<?xml version="1.0"?><a/>`:                   "",
		`<a/>`:                                        "",
	}
	for in, want := range cases {
		if got := DeclaredEncoding([]byte(in)); got != want {
			t.Errorf("DeclaredEncoding(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestDecodeGBKFile(t *testing.T) {
	body := `<?xml version="1.0" encoding="gbk"?><note><title>客户档案</title></note>`
	raw, err := simplifiedchinese.GBK.NewEncoder().Bytes([]byte(body))
	if err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(t.TempDir(), "note.xml")
	if err := os.WriteFile(path, raw, 0o644); err != nil {
		t.Fatal(err)
	}

	var n note
	if err := Decode(path, &n); err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if n.Title != "客户档案" {
		t.Errorf("title = %q", n.Title)
	}
}

func TestDecodeUTF8(t *testing.T) {
	var n note
	if err := DecodeBytes([]byte(`<?xml version="1.0" encoding="UTF-8"?><note><title>x</title></note>`), &n); err != nil {
		t.Fatal(err)
	}
	if n.Title != "x" {
		t.Errorf("title = %q", n.Title)
	}
}

func TestDecodeMissingFile(t *testing.T) {
	var n note
	if err := Decode(filepath.Join(t.TempDir(), "absent.xml"), &n); err == nil {
		t.Fatal("expected error for missing file")
	}
}
