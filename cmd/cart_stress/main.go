package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"net/http"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/rl1809/storefront/internal/logger"
)

// cart_stress fires concurrent "add to cart" requests for one product at a
// running storefront and checks that the cart never exceeds stock.
func main() {
	baseURL := flag.String("url", "http://localhost:8080", "storefront base URL")
	productID := flag.Int64("product", 2, "product to add")
	stock := flag.Int("stock", 5, "expected stock of the product")
	requests := flag.Int("requests", 50, "concurrent add requests")
	flag.Parse()

	log, err := logger.New(logger.Options{Service: "cart-stress", Env: "dev", Level: "info"})
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to build logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	client := &http.Client{Timeout: 10 * time.Second}

	// Start from an empty cart
	if _, err := post(client, *baseURL+"/api/cart/checkout", nil); err != nil {
		log.Fatal("reset cart", zap.Error(err))
	}

	var successCount, conflictCount, otherCount atomic.Int32
	var wg sync.WaitGroup
	start := time.Now()

	for i := 0; i < *requests; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			status, err := post(client, *baseURL+"/api/cart/items", map[string]int64{"product_id": *productID})
			switch {
			case err != nil:
				otherCount.Add(1)
			case status == http.StatusOK:
				successCount.Add(1)
			case status == http.StatusConflict:
				conflictCount.Add(1)
			default:
				otherCount.Add(1)
			}
		}()
	}
	wg.Wait()
	elapsed := time.Since(start)

	amount, err := cartAmount(client, *baseURL, *productID)
	if err != nil {
		log.Fatal("read cart", zap.Error(err))
	}

	log.Info("stress results",
		zap.Int("stock", *stock),
		zap.Int("requests", *requests),
		zap.Int32("added", successCount.Load()),
		zap.Int32("stock_exceeded", conflictCount.Load()),
		zap.Int32("other", otherCount.Load()),
		zap.Int("cart_amount", amount),
		zap.Duration("duration", elapsed),
	)

	if amount != int(successCount.Load()) || amount > *stock {
		log.Error("FAIL: cart amount does not match successful adds or exceeds stock")
		os.Exit(1)
	}
	log.Info("PASS: cart amount within stock")
}

func post(client *http.Client, url string, body any) (int, error) {
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return 0, err
		}
	}
	resp, err := client.Post(url, "application/json", &buf)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	return resp.StatusCode, nil
}

func cartAmount(client *http.Client, baseURL string, productID int64) (int, error) {
	resp, err := client.Get(baseURL + "/api/cart")
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	var summary struct {
		Items []struct {
			ID     int64 `json:"id"`
			Amount int   `json:"amount"`
		} `json:"items"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&summary); err != nil {
		return 0, err
	}
	for _, item := range summary.Items {
		if item.ID == productID {
			return item.Amount, nil
		}
	}
	return 0, nil
}
