package chatsdk

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"

	"github.com/contenox/chatsync/chattypes"
)

// DefaultBucket is the file-server bucket for message attachments.
const DefaultBucket = "attachments"

// UploadAttachment uploads one file and returns the id the server assigned to it.
func (c *Client) UploadAttachment(ctx context.Context, data []byte, filename, bucket, contentType string, onProgress chattypes.ProgressFunc) (string, error) {
	if bucket == "" {
		bucket = DefaultBucket
	}

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename=%q`, filename))
	if contentType != "" {
		header.Set("Content-Type", contentType)
	} else {
		header.Set("Content-Type", "application/octet-stream")
	}
	part, err := mw.CreatePart(header)
	if err != nil {
		return "", err
	}
	if _, err := part.Write(data); err != nil {
		return "", err
	}
	if err := mw.Close(); err != nil {
		return "", err
	}

	var body io.Reader = &buf
	if onProgress != nil {
		body = &progressReader{r: &buf, total: int64(buf.Len()), fn: onProgress}
	}

	rURL := fmt.Sprintf("%s/%s", c.filesURL, url.PathEscape(bucket))
	var out struct {
		ID string `json:"id"`
	}
	if err := c.do(ctx, http.MethodPost, rURL, body, mw.FormDataContentType(), http.StatusOK, &out); err != nil {
		return "", fmt.Errorf("upload %s: %w", filename, err)
	}
	if out.ID == "" {
		return "", fmt.Errorf("upload %s: server returned no id", filename)
	}
	return out.ID, nil
}

type progressReader struct {
	r     io.Reader
	sent  int64
	total int64
	fn    chattypes.ProgressFunc
}

func (p *progressReader) Read(b []byte) (int, error) {
	n, err := p.r.Read(b)
	if n > 0 {
		p.sent += int64(n)
		p.fn(p.sent, p.total)
	}
	return n, err
}
