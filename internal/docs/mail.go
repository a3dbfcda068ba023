package docs

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"mime/quotedprintable"
	"net/mail"
	"net/textproto"
	"strings"

	"golang.org/x/text/encoding/htmlindex"
)

var errNoTextPart = errors.New("message has no text/plain or text/html part")

// parseMail reads an RFC 5322 message. The body is the first text/plain
// part, or the first text/html part when there is none, with its transfer
// encoding and charset decoded. Attachments are ignored.
func parseMail(data []byte) (Item, error) {
	msg, err := mail.ReadMessage(bytes.NewReader(data))
	if err != nil {
		return Item{}, err
	}

	contentType, body, err := mailBody(textproto.MIMEHeader(msg.Header), msg.Body)
	if err != nil {
		return Item{}, err
	}
	if contentType != "text/plain" && contentType != "text/html" {
		return Item{}, errNoTextPart
	}

	dec := &mime.WordDecoder{CharsetReader: charsetReader}
	subject, err := dec.DecodeHeader(msg.Header.Get("Subject"))
	if err != nil {
		subject = msg.Header.Get("Subject")
	}

	item := Item{
		ID:          strings.Trim(msg.Header.Get("Message-Id"), "<>"),
		Subject:     subject,
		Body:        string(body),
		ContentType: contentType,
		Meta:        make(map[string]string),
	}
	if from := msg.Header.Get("From"); from != "" {
		item.Meta["from"] = from
	}
	return item, nil
}

// mailBody returns the media type and decoded body of the preferred text
// part under h. The type is "" when a multipart entity holds no text part.
func mailBody(h textproto.MIMEHeader, r io.Reader) (string, []byte, error) {
	mt, params, err := mime.ParseMediaType(h.Get("Content-Type"))
	if err != nil {
		mt, params = "text/plain", nil
	}

	if strings.HasPrefix(mt, "multipart/") {
		boundary := params["boundary"]
		if boundary == "" {
			return "", nil, fmt.Errorf("%s without boundary", mt)
		}

		var htmlBody []byte
		mr := multipart.NewReader(r, boundary)
		for {
			part, err := mr.NextRawPart()
			if err == io.EOF {
				break
			}
			if err != nil {
				return "", nil, err
			}
			if isAttachment(part.Header) {
				continue
			}

			pt, pb, err := mailBody(part.Header, part)
			if err != nil {
				return "", nil, err
			}
			switch pt {
			case "text/plain":
				return pt, pb, nil
			case "text/html":
				if htmlBody == nil {
					htmlBody = pb
				}
			}
		}
		if htmlBody != nil {
			return "text/html", htmlBody, nil
		}
		return "", nil, nil
	}

	body, err := decodeTransfer(h.Get("Content-Transfer-Encoding"), r)
	if err != nil {
		return "", nil, err
	}
	if strings.HasPrefix(mt, "text/") {
		if body, err = decodeCharset(params["charset"], body); err != nil {
			return "", nil, err
		}
	}
	return mt, body, nil
}

func decodeTransfer(encoding string, r io.Reader) ([]byte, error) {
	switch strings.ToLower(strings.TrimSpace(encoding)) {
	case "quoted-printable":
		r = quotedprintable.NewReader(r)
	case "base64":
		r = base64.NewDecoder(base64.StdEncoding, r)
	}
	return io.ReadAll(r)
}

func decodeCharset(charset string, body []byte) ([]byte, error) {
	switch strings.ToLower(charset) {
	case "", "utf-8", "utf8", "us-ascii":
		return body, nil
	}
	enc, err := htmlindex.Get(charset)
	if err != nil {
		return nil, fmt.Errorf("charset %q: %w", charset, err)
	}
	return enc.NewDecoder().Bytes(body)
}

func charsetReader(charset string, input io.Reader) (io.Reader, error) {
	enc, err := htmlindex.Get(charset)
	if err != nil {
		return nil, err
	}
	return enc.NewDecoder().Reader(input), nil
}

func isAttachment(h textproto.MIMEHeader) bool {
	disp, _, err := mime.ParseMediaType(h.Get("Content-Disposition"))
	return err == nil && disp == "attachment"
}
