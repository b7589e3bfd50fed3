package moltin

import (
	"context"
	"net/http"
)

// Products lists all catalog products.
func (c *Client) Products(ctx context.Context) ([]Product, error) {
	var resp envelope[[]productData]
	if err := c.do(ctx, http.MethodGet, "/products", nil, nil, &resp); err != nil {
		return nil, err
	}
	products := make([]Product, 0, len(resp.Data))
	for _, d := range resp.Data {
		products = append(products, productFromWire(d))
	}
	return products, nil
}

// Product fetches a single product by ID.
func (c *Client) Product(ctx context.Context, productID string) (Product, error) {
	var resp envelope[productData]
	if err := c.do(ctx, http.MethodGet, "/products/"+productID, nil, nil, &resp); err != nil {
		return Product{}, err
	}
	return productFromWire(resp.Data), nil
}

// Categories lists all catalog categories.
func (c *Client) Categories(ctx context.Context) ([]Category, error) {
	var resp envelope[[]categoryData]
	if err := c.do(ctx, http.MethodGet, "/categories", nil, nil, &resp); err != nil {
		return nil, err
	}
	categories := make([]Category, 0, len(resp.Data))
	for _, d := range resp.Data {
		categories = append(categories, Category(d))
	}
	return categories, nil
}

// ImageURL resolves a file ID to its public URL.
func (c *Client) ImageURL(ctx context.Context, fileID string) (string, error) {
	var resp envelope[fileData]
	if err := c.do(ctx, http.MethodGet, "/files/"+fileID, nil, nil, &resp); err != nil {
		return "", err
	}
	return resp.Data.Link.Href, nil
}
