package moltin

// Wire structures follow the JSON:API envelope the commerce backend
// serves. Only the fields the bot consumes are mapped.

type envelope[T any] struct {
	Data T `json:"data"`
}

type displayPrice struct {
	WithTax struct {
		Amount    int64  `json:"amount"`
		Formatted string `json:"formatted"`
	} `json:"with_tax"`
}

type productData struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	SKU         string `json:"sku"`
	Meta        struct {
		DisplayPrice displayPrice `json:"display_price"`
	} `json:"meta"`
	Price []struct {
		Amount   int64  `json:"amount"`
		Currency string `json:"currency"`
	} `json:"price"`
	Relationships struct {
		MainImage *struct {
			Data struct {
				ID string `json:"id"`
			} `json:"data"`
		} `json:"main_image"`
		Categories *struct {
			Data []struct {
				ID string `json:"id"`
			} `json:"data"`
		} `json:"categories"`
	} `json:"relationships"`
}

type categoryData struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Slug string `json:"slug"`
}

type fileData struct {
	ID   string `json:"id"`
	Link struct {
		Href string `json:"href"`
	} `json:"link"`
}

type cartItemDisplayPrice struct {
	WithTax struct {
		Unit struct {
			Amount    int64  `json:"amount"`
			Formatted string `json:"formatted"`
		} `json:"unit"`
		Value struct {
			Amount    int64  `json:"amount"`
			Formatted string `json:"formatted"`
		} `json:"value"`
	} `json:"with_tax"`
}

type cartItemData struct {
	ID          string `json:"id"`
	ProductID   string `json:"product_id"`
	SKU         string `json:"sku"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Quantity    int    `json:"quantity"`
	UnitPrice   struct {
		Amount int64 `json:"amount"`
	} `json:"unit_price"`
	Meta struct {
		DisplayPrice cartItemDisplayPrice `json:"display_price"`
	} `json:"meta"`
	Image struct {
		Href string `json:"href"`
	} `json:"image"`
}

type cartResponse struct {
	Data []cartItemData `json:"data"`
	Meta struct {
		DisplayPrice displayPrice `json:"display_price"`
	} `json:"meta"`
}

// Product is a catalog product as the bot presents it.
type Product struct {
	ID             string
	Name           string
	Description    string
	SKU            string
	PriceMinor     int64
	PriceFormatted string
	ImageID        string
	CategoryIDs    []string
}

// Category is a catalog category.
type Category struct {
	ID   string
	Name string
	Slug string
}

func productFromWire(d productData) Product {
	p := Product{
		ID:             d.ID,
		Name:           d.Name,
		Description:    d.Description,
		SKU:            d.SKU,
		PriceMinor:     d.Meta.DisplayPrice.WithTax.Amount,
		PriceFormatted: d.Meta.DisplayPrice.WithTax.Formatted,
	}
	if p.PriceMinor == 0 && len(d.Price) > 0 {
		p.PriceMinor = d.Price[0].Amount
	}
	if d.Relationships.MainImage != nil {
		p.ImageID = d.Relationships.MainImage.Data.ID
	}
	if d.Relationships.Categories != nil {
		for _, c := range d.Relationships.Categories.Data {
			p.CategoryIDs = append(p.CategoryIDs, c.ID)
		}
	}
	return p
}
