package api

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"path/filepath"

	"github.com/polkiloo/invoicedesk/internal/domain/model"
	"github.com/polkiloo/invoicedesk/internal/server/http/dto"
)

// UploadInvoice posts the file as the "file" field of a multipart form.
func (c *Client) UploadInvoice(ctx context.Context, name string, content io.Reader) (*model.Invoice, error) {
	var body bytes.Buffer
	form := multipart.NewWriter(&body)
	part, err := form.CreateFormFile("file", filepath.Base(name))
	if err != nil {
		return nil, err
	}
	if _, err := io.Copy(part, content); err != nil {
		return nil, fmt.Errorf("read %s: %w", name, err)
	}
	if err := form.Close(); err != nil {
		return nil, err
	}

	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	req, err := c.newRequest(ctx, http.MethodPost, "/upload-invoice", &body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", form.FormDataContentType())

	var out dto.UploadResponse
	if err := c.send(req, &out); err != nil {
		return nil, err
	}
	invoice := out.Data.ToModel()
	return &invoice, nil
}
