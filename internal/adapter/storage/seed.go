package storage

import (
	_ "embed"
	"encoding/json"
	"fmt"

	"github.com/rl1809/storefront/internal/core/domain"
)

//go:embed seed.json
var seedJSON []byte

// Seed is the initial catalog loaded into an empty database.
type Seed struct {
	Products []domain.Product `json:"products"`
	Stock    []domain.Stock   `json:"stock"`
}

func DefaultSeed() (Seed, error) {
	var s Seed
	if err := json.Unmarshal(seedJSON, &s); err != nil {
		return Seed{}, fmt.Errorf("decode seed: %w", err)
	}
	return s, nil
}
