package docs

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func crlf(s string) []byte {
	return []byte(strings.ReplaceAll(s, "\n", "\r\n"))
}

func TestParseMailDecodesBodies(t *testing.T) {
	tests := []struct {
		name     string
		raw      string
		wantType string
		wantBody string
	}{
		{
			name: "quoted-printable soft line break",
			raw: `Subject: upi
Content-Type: text/plain; charset=utf-8
Content-Transfer-Encoding: quoted-printable

The amount was debi=
ted twice =E2=82=B92000
`,
			wantType: "text/plain",
			wantBody: "The amount was debited twice ₹2000\r\n",
		},
		{
			name: "base64",
			raw: `Content-Type: text/plain
Content-Transfer-Encoding: base64

YXRtIGVycm9y
`,
			wantType: "text/plain",
			wantBody: "atm error",
		},
		{
			name: "latin-1 charset",
			raw: `Content-Type: text/plain; charset=iso-8859-1
Content-Transfer-Encoding: quoted-printable

caf=E9 party
`,
			wantType: "text/plain",
			wantBody: "café party\r\n",
		},
		{
			name: "alternative prefers plain text",
			raw: `Content-Type: multipart/alternative; boundary="b1"

--b1
Content-Type: text/html

<p>html version</p>
--b1
Content-Type: text/plain
Content-Transfer-Encoding: base64

cGxhaW4gdmVyc2lvbg==
--b1--
`,
			wantType: "text/plain",
			wantBody: "plain version",
		},
		{
			name: "nested html with attachment",
			raw: `Content-Type: multipart/mixed; boundary="outer"

--outer
Content-Type: multipart/alternative; boundary="inner"

--inner
Content-Type: text/html; charset=utf-8
Content-Transfer-Encoding: quoted-printable

<p>credit card declin=
ed</p>
--inner--
--outer
Content-Type: text/plain
Content-Disposition: attachment; filename="notes.txt"

attachment text
--outer--
`,
			wantType: "text/html",
			wantBody: "<p>credit card declined</p>",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			item, err := parseMail(crlf(tt.raw))
			require.NoError(t, err)
			assert.Equal(t, tt.wantType, item.ContentType)
			assert.Equal(t, tt.wantBody, item.Body)
		})
	}
}

func TestParseMailHTMLPartIsStripped(t *testing.T) {
	item, err := parseMail(crlf(`Content-Type: multipart/alternative; boundary=x

--x
Content-Type: text/html

<p>Happy <b>birthday</b></p>
--x--
`))
	require.NoError(t, err)
	assert.Equal(t, "Happy birthday", item.Document().Body)
}

func TestParseMailErrors(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"no text part", "Content-Type: multipart/mixed; boundary=x\n\n--x\nContent-Type: image/png\n\nPNG\n--x--\n"},
		{"only attachments", "Content-Type: multipart/mixed; boundary=x\n\n--x\nContent-Type: text/plain\nContent-Disposition: attachment\n\nhi\n--x--\n"},
		{"single binary body", "Content-Type: application/pdf\n\n%PDF\n"},
		{"missing boundary", "Content-Type: multipart/mixed\n\nbody\n"},
		{"unknown charset", "Content-Type: text/plain; charset=x-klingon\n\nbody\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := parseMail(crlf(tt.raw))
			assert.Error(t, err)
		})
	}
}
