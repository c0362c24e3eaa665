package service

import (
	"context"
	"fmt"

	"github.com/rl1809/storefront/internal/core/domain"
	"github.com/rl1809/storefront/internal/port"
)

// ProductListing is a catalog product as shown on the listing page.
type ProductListing struct {
	domain.Product
	PriceFormatted string `json:"price_formatted"`
	CartAmount     int    `json:"cart_amount"`
}

type CartLine struct {
	domain.LineItem
	PriceFormatted string `json:"price_formatted"`
	SubTotal       string `json:"sub_total"`
}

type CartSummary struct {
	Items []CartLine `json:"items"`
	Count int        `json:"count"`
	Total string     `json:"total"`
}

// Storefront builds the read models for the product list and cart pages.
type Storefront struct {
	cart    *CartService
	catalog port.Catalog
}

func NewStorefront(cart *CartService, catalog port.Catalog) *Storefront {
	return &Storefront{cart: cart, catalog: catalog}
}

func (f *Storefront) Products(ctx context.Context) ([]ProductListing, error) {
	products, err := f.catalog.Products(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: products: %w", ErrLookupFailure, err)
	}

	amounts := f.cart.Cart().Amounts()
	messages := f.cart.Messages()

	listings := make([]ProductListing, 0, len(products))
	for _, p := range products {
		listings = append(listings, ProductListing{
			Product:        p,
			PriceFormatted: messages.Price(p.Price),
			CartAmount:     amounts[p.ID],
		})
	}
	return listings, nil
}

func (f *Storefront) Summary() CartSummary {
	cart := f.cart.Cart()
	messages := f.cart.Messages()

	lines := make([]CartLine, 0, len(cart))
	for _, item := range cart {
		lines = append(lines, CartLine{
			LineItem:       item,
			PriceFormatted: messages.Price(item.Price),
			SubTotal:       messages.Price(item.SubTotal()),
		})
	}
	return CartSummary{
		Items: lines,
		Count: len(cart),
		Total: messages.Price(cart.Total()),
	}
}
