package email

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/textproto"
)

// buildRawMessage renders msg as a multipart/mixed MIME document
func buildRawMessage(from string, msg Message) ([]byte, error) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	fmt.Fprintf(&buf, "From: %s\r\n", from)
	fmt.Fprintf(&buf, "To: %s\r\n", msg.To)
	fmt.Fprintf(&buf, "Subject: %s\r\n", mime.QEncoding.Encode("utf-8", msg.Subject))
	buf.WriteString("MIME-Version: 1.0\r\n")
	fmt.Fprintf(&buf, "Content-Type: multipart/mixed; boundary=%q\r\n\r\n", writer.Boundary())

	if err := writeBody(writer, msg); err != nil {
		return nil, err
	}

	for _, a := range msg.Attachments {
		contentType := a.ContentType
		if contentType == "" {
			contentType = "application/octet-stream"
		}
		header := textproto.MIMEHeader{}
		header.Set("Content-Type", contentType)
		header.Set("Content-Transfer-Encoding", "base64")
		header.Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": a.Filename}))

		part, err := writer.CreatePart(header)
		if err != nil {
			return nil, err
		}
		if err := writeBase64(part, a.Data); err != nil {
			return nil, err
		}
	}

	if err := writer.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// writeBody adds the text and HTML alternatives as a nested part
func writeBody(writer *multipart.Writer, msg Message) error {
	var alt bytes.Buffer
	altWriter := multipart.NewWriter(&alt)

	header := textproto.MIMEHeader{}
	header.Set("Content-Type", fmt.Sprintf("multipart/alternative; boundary=%q", altWriter.Boundary()))
	part, err := writer.CreatePart(header)
	if err != nil {
		return err
	}

	bodies := []struct {
		contentType string
		content     string
	}{
		{"text/plain; charset=UTF-8", msg.Text},
		{"text/html; charset=UTF-8", msg.HTML},
	}
	for _, b := range bodies {
		if b.content == "" {
			continue
		}
		h := textproto.MIMEHeader{}
		h.Set("Content-Type", b.contentType)
		h.Set("Content-Transfer-Encoding", "base64")
		p, err := altWriter.CreatePart(h)
		if err != nil {
			return err
		}
		if err := writeBase64(p, []byte(b.content)); err != nil {
			return err
		}
	}
	if err := altWriter.Close(); err != nil {
		return err
	}

	_, err = part.Write(alt.Bytes())
	return err
}

// writeBase64 writes data base64 encoded in 76 character lines
func writeBase64(w io.Writer, data []byte) error {
	encoded := base64.StdEncoding.EncodeToString(data)
	for len(encoded) > 76 {
		if _, err := w.Write([]byte(encoded[:76] + "\r\n")); err != nil {
			return err
		}
		encoded = encoded[76:]
	}
	_, err := w.Write([]byte(encoded + "\r\n"))
	return err
}
