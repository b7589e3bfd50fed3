package moltin

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"path"
)

// NewProduct describes a catalog product to create. Used by the seed tool.
type NewProduct struct {
	Name        string
	SKU         string
	Slug        string
	Description string
	PriceMinor  int64
	Currency    string
}

// AddProduct creates a live catalog product and returns its ID.
func (c *Client) AddProduct(ctx context.Context, p NewProduct) (string, error) {
	body := map[string]any{
		"data": map[string]any{
			"type":           "product",
			"name":           p.Name,
			"sku":            p.SKU,
			"slug":           p.Slug,
			"description":    p.Description,
			"manage_stock":   false,
			"status":         "live",
			"commodity_type": "physical",
			"price": []map[string]any{{
				"amount":       p.PriceMinor,
				"currency":     p.Currency,
				"includes_tax": true,
			}},
		},
	}
	var resp envelope[productData]
	if err := c.do(ctx, http.MethodPost, "/products", nil, body, &resp); err != nil {
		return "", err
	}
	return resp.Data.ID, nil
}

// UploadImage fetches an image from imageURL, uploads it as a file, and
// returns the file ID.
func (c *Client) UploadImage(ctx context.Context, imageURL string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, imageURL, nil)
	if err != nil {
		return "", fmt.Errorf("moltin: build image request: %w", err)
	}
	imgResp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("moltin: fetch image: %w", err)
	}
	defer imgResp.Body.Close()
	if imgResp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("moltin: fetch image: unexpected status %s", imgResp.Status)
	}

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	part, err := writer.CreateFormFile("file", path.Base(imageURL))
	if err != nil {
		return "", fmt.Errorf("moltin: build upload form: %w", err)
	}
	if _, err := io.Copy(part, imgResp.Body); err != nil {
		return "", fmt.Errorf("moltin: read image: %w", err)
	}
	if err := writer.WriteField("public", "true"); err != nil {
		return "", fmt.Errorf("moltin: build upload form: %w", err)
	}
	if err := writer.Close(); err != nil {
		return "", fmt.Errorf("moltin: build upload form: %w", err)
	}

	token, err := c.authToken(ctx)
	if err != nil {
		return "", err
	}
	upload, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint+"/"+apiVersion+"/files", &buf)
	if err != nil {
		return "", fmt.Errorf("moltin: build upload request: %w", err)
	}
	upload.Header.Set("Authorization", token)
	upload.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := c.http.Do(upload)
	if err != nil {
		return "", fmt.Errorf("moltin: upload image: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		excerpt, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", fmt.Errorf("moltin: upload image: status %s: %s", resp.Status, string(excerpt))
	}

	var out envelope[fileData]
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("moltin: decode upload response: %w", err)
	}
	return out.Data.ID, nil
}

// LinkProductImage sets a previously uploaded file as the product's main image.
func (c *Client) LinkProductImage(ctx context.Context, productID, fileID string) error {
	body := map[string]any{
		"data": map[string]any{
			"type": "main_image",
			"id":   fileID,
		},
	}
	return c.do(ctx, http.MethodPost, "/products/"+productID+"/relationships/main-image", nil, body, nil)
}
