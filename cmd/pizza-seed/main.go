// Command pizza-seed imports a menu and pizzeria address book into the
// commerce backend and refreshes the cached catalog snapshot.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/gosimple/slug"
	"github.com/redis/go-redis/v9"

	coreconfig "github.com/grepto/pizza-bot/core/config"
	"github.com/grepto/pizza-bot/core/logger"
	"github.com/grepto/pizza-bot/core/netutil"
	"github.com/grepto/pizza-bot/internal/moltin"
	"github.com/grepto/pizza-bot/internal/state"
)

type menuItem struct {
	Name         string `json:"name"`
	Description  string `json:"description"`
	Price        int64  `json:"price"`
	ProductImage struct {
		URL string `json:"url"`
	} `json:"product_image"`
}

type addressItem struct {
	Alias   string `json:"alias"`
	Address struct {
		Full string `json:"full"`
	} `json:"address"`
	Coordinates struct {
		Lat string `json:"lat"`
		Lon string `json:"lon"`
	} `json:"coordinates"`
	CourierID int64 `json:"courier_id"`
}

func main() {
	menuPath := flag.String("menu", "", "path to menu.json with products to import")
	addressesPath := flag.String("addresses", "", "path to addresses.json with pizzerias to import")
	refreshCache := flag.Bool("refresh-cache", true, "rebuild the cached catalog snapshot after import")
	flag.Parse()

	if err := run(*menuPath, *addressesPath, *refreshCache); err != nil {
		log.Fatalf("pizza-seed: %v", err)
	}
}

func run(menuPath, addressesPath string, refreshCache bool) error {
	cfgPath := os.Getenv("CONFIG_PATH")
	if cfgPath == "" {
		cfgPath = "config.yaml"
	}
	cfg, err := coreconfig.Load(cfgPath)
	if err != nil {
		return err
	}
	if err := logger.InitLogger(cfg); err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	httpClient := netutil.BuildHTTPClient()
	commerce := moltin.NewClient(cfg.Moltin.Endpoint, cfg.Moltin.ClientID, cfg.Moltin.ClientSecret, httpClient)

	if menuPath != "" {
		if err := importMenu(ctx, commerce, menuPath, cfg.Telegram.Currency); err != nil {
			return err
		}
	}
	if addressesPath != "" {
		if err := importAddresses(ctx, commerce, addressesPath); err != nil {
			return err
		}
	}
	if refreshCache {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer rdb.Close()
		if err := rebuildMenuCache(ctx, commerce, state.NewRedisStore(rdb)); err != nil {
			return err
		}
	}
	return nil
}

func importMenu(ctx context.Context, commerce *moltin.Client, path, currency string) error {
	var items []menuItem
	if err := readJSON(path, &items); err != nil {
		return err
	}

	for _, item := range items {
		productID, err := commerce.AddProduct(ctx, moltin.NewProduct{
			Name:        item.Name,
			SKU:         slug.Make(item.Name),
			Slug:        slug.Make(item.Name),
			Description: item.Description,
			PriceMinor:  item.Price * 100,
			Currency:    currency,
		})
		if err != nil {
			return fmt.Errorf("import product %q: %w", item.Name, err)
		}
		if item.ProductImage.URL == "" {
			continue
		}
		fileID, err := commerce.UploadImage(ctx, item.ProductImage.URL)
		if err != nil {
			return fmt.Errorf("upload image for %q: %w", item.Name, err)
		}
		if err := commerce.LinkProductImage(ctx, productID, fileID); err != nil {
			return fmt.Errorf("link image for %q: %w", item.Name, err)
		}
		log.Printf("imported product %q", item.Name)
	}
	return nil
}

func importAddresses(ctx context.Context, commerce *moltin.Client, path string) error {
	var items []addressItem
	if err := readJSON(path, &items); err != nil {
		return err
	}

	for _, item := range items {
		lat, err := strconv.ParseFloat(item.Coordinates.Lat, 64)
		if err != nil {
			return fmt.Errorf("address %q: bad latitude: %w", item.Address.Full, err)
		}
		lon, err := strconv.ParseFloat(item.Coordinates.Lon, 64)
		if err != nil {
			return fmt.Errorf("address %q: bad longitude: %w", item.Address.Full, err)
		}
		err = commerce.SavePizzeria(ctx, moltin.Pizzeria{
			Address:   item.Address.Full,
			Alias:     item.Alias,
			Lat:       lat,
			Lon:       lon,
			CourierID: item.CourierID,
		})
		if err != nil {
			return fmt.Errorf("import pizzeria %q: %w", item.Address.Full, err)
		}
		log.Printf("imported pizzeria %q", item.Address.Full)
	}
	return nil
}

// rebuildMenuCache snapshots the catalog with resolved image URLs so the
// Messenger galleries can render without per-request file lookups.
func rebuildMenuCache(ctx context.Context, commerce *moltin.Client, cache state.MenuCache) error {
	products, err := commerce.Products(ctx)
	if err != nil {
		return err
	}

	cached := make([]state.CachedProduct, 0, len(products))
	for _, p := range products {
		cp := state.CachedProduct{
			ID:             p.ID,
			Name:           p.Name,
			Description:    p.Description,
			PriceMinor:     p.PriceMinor,
			PriceFormatted: p.PriceFormatted,
			CategoryIDs:    p.CategoryIDs,
		}
		if p.ImageID != "" {
			url, err := commerce.ImageURL(ctx, p.ImageID)
			if err != nil {
				return fmt.Errorf("resolve image for %q: %w", p.Name, err)
			}
			cp.ImageURL = url
		}
		cached = append(cached, cp)
	}
	if err := cache.SetMenu(ctx, cached); err != nil {
		return err
	}
	log.Printf("menu cache rebuilt: %d products", len(cached))
	return nil
}

func readJSON(path string, out any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}
	return nil
}
