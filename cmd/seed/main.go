// Package main populates a running shop with demo catalog data through the
// HTTP API: products with opening stock, carriers, customers, a supplier and
// a quantity promotion.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	pkgconfig "github.com/residoken-wq/mini-shop-app-sub001/pkg/config"
	apperrors "github.com/residoken-wq/mini-shop-app-sub001/pkg/errors"
	"github.com/residoken-wq/mini-shop-app-sub001/pkg/httpclient"
	"github.com/residoken-wq/mini-shop-app-sub001/pkg/logger"
)

type seedConfig struct {
	BaseURL  string `env:"SHOP_URL" envDefault:"http://localhost:8080"`
	Username string `env:"SEED_ADMIN_USERNAME" envDefault:"admin"`
	Password string `env:"SEED_ADMIN_PASSWORD" envDefault:"admin123"`
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`
}

type productDef struct {
	Name              string `json:"name"`
	Category          string `json:"category"`
	Price             int64  `json:"price"`
	Cost              int64  `json:"cost"`
	Unit              string `json:"unit"`
	LowStockThreshold string `json:"low_stock_threshold"`
	InitialStock      string `json:"initial_stock"`
}

var products = []productDef{
	{Name: "Jasmine Rice", Category: "Grains", Price: 22000, Cost: 18000, Unit: "kg", LowStockThreshold: "20", InitialStock: "200"},
	{Name: "Sea Salt", Category: "Spices", Price: 8000, Cost: 5000, Unit: "bag", LowStockThreshold: "10", InitialStock: "50"},
	{Name: "Fish Sauce", Category: "Sauces", Price: 45000, Cost: 36000, Unit: "bottle", LowStockThreshold: "5", InitialStock: "40"},
	{Name: "Cane Sugar", Category: "Grains", Price: 25000, Cost: 20000, Unit: "kg", LowStockThreshold: "10", InitialStock: "80"},
	{Name: "Soybean Oil", Category: "Oils", Price: 52000, Cost: 44000, Unit: "liter", LowStockThreshold: "8", InitialStock: "30"},
}

type client struct {
	http    *httpclient.Client
	baseURL string
	token   string
}

// envelope mirrors the API response wrapper.
type envelope struct {
	Data json.RawMessage `json:"data"`
}

func (c *client) post(ctx context.Context, path string, body, out any) error {
	data, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshal body: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(ctx, req)
	if err != nil {
		return fmt.Errorf("POST %s: %w", path, err)
	}
	if resp.StatusCode >= 400 {
		return httpclient.ParseResponseError(resp, "shop")
	}
	defer resp.Body.Close()

	if out == nil {
		return nil
	}
	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return fmt.Errorf("decode %s response: %w", path, err)
	}
	return json.Unmarshal(env.Data, out)
}

func main() {
	var cfg seedConfig
	if err := pkgconfig.Load(&cfg); err != nil {
		slog.Error("failed to load config", slog.String("error", err.Error()))
		os.Exit(1)
	}
	log := logger.New("minishop-seed", cfg.LogLevel)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	if err := run(ctx, cfg, log); err != nil {
		log.Error("seed failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
	log.Info("seed complete")
}

func run(ctx context.Context, cfg seedConfig, log *slog.Logger) error {
	c := &client{http: httpclient.New(httpclient.DefaultConfig()), baseURL: cfg.BaseURL}

	var login struct {
		Token string `json:"token"`
	}
	if err := c.post(ctx, "/api/v1/auth/login", map[string]string{
		"username": cfg.Username,
		"password": cfg.Password,
	}, &login); err != nil {
		return fmt.Errorf("login: %w", err)
	}
	c.token = login.Token
	log.Info("logged in", slog.String("username", cfg.Username))

	var riceID string
	for _, p := range products {
		var created struct {
			ID  string `json:"id"`
			SKU string `json:"sku"`
		}
		if err := c.post(ctx, "/api/v1/products", p, &created); err != nil {
			if !rejected(err) {
				return fmt.Errorf("create product %s: %w", p.Name, err)
			}
			log.Warn("skipping product", slog.String("name", p.Name), slog.String("error", err.Error()))
			continue
		}
		if riceID == "" {
			riceID = created.ID
		}
		log.Info("product created", slog.String("name", p.Name), slog.String("sku", created.SKU))
	}

	for _, name := range []string{"GHN", "Viettel Post", "Shop courier"} {
		if err := c.post(ctx, "/api/v1/carriers", map[string]string{"name": name}, nil); err != nil {
			log.Warn("skipping carrier", slog.String("name", name), slog.String("error", err.Error()))
		}
	}

	customers := []map[string]string{
		{"name": "Nguyen Lan", "phone": "0901234567", "address": "12 Le Loi, District 1"},
		{"name": "Tran Minh", "phone": "0912345678", "address": "88 Hai Ba Trung, District 3"},
	}
	for _, cust := range customers {
		if err := c.post(ctx, "/api/v1/customers", cust, nil); err != nil {
			log.Warn("skipping customer", slog.String("name", cust["name"]), slog.String("error", err.Error()))
		}
	}
	if err := c.post(ctx, "/api/v1/suppliers", map[string]string{"name": "Mekong Wholesale", "phone": "0283456789"}, nil); err != nil {
		log.Warn("skipping supplier", slog.String("error", err.Error()))
	}

	if riceID == "" {
		return nil
	}
	today := time.Now().UTC()
	promo := map[string]any{
		"name":       "Bulk rice",
		"start_date": today.Format("2006-01-02"),
		"end_date":   today.AddDate(0, 1, 0).Format("2006-01-02"),
		"products": []map[string]any{{
			"product_id": riceID,
			"tiers": []map[string]any{
				{"min_quantity": "10", "price": 21000},
				{"min_quantity": "50", "price": 20000},
			},
		}},
	}
	if err := c.post(ctx, "/api/v1/promotions", promo, nil); err != nil {
		return fmt.Errorf("create promotion: %w", err)
	}
	log.Info("promotion created", slog.String("product_id", riceID))
	return nil
}

// rejected reports whether the shop refused the request itself, as opposed to
// being unreachable or failing.
func rejected(err error) bool {
	var appErr *apperrors.AppError
	return errors.As(err, &appErr) && httpclient.IsClientError(appErr.Status)
}
