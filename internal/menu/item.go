package menu

import (
	"fmt"
	"strings"
	"time"

	"github.com/appetiteclub/dinein/internal/core"
	"github.com/appetiteclub/dinein/internal/store"
	"github.com/google/uuid"
)

// Item is an entry of the menu catalog. Orders copy name and price at order
// time, so later edits never change an open session.
type Item struct {
	ID          string     `json:"id"`
	Name        string     `json:"name"`
	Category    string     `json:"category"`
	Price       float64    `json:"price"`
	Description string     `json:"description,omitempty"`
	Image       string     `json:"image,omitempty"`
	Available   bool       `json:"available"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   *time.Time `json:"updatedAt,omitempty"`
}

// ItemUpdate carries a partial edit; nil fields are left untouched.
type ItemUpdate struct {
	Name        *string  `json:"name"`
	Category    *string  `json:"category"`
	Price       *float64 `json:"price"`
	Description *string  `json:"description"`
	Image       *string  `json:"image"`
	Available   *bool    `json:"available"`
}

func Key(id string) string {
	return store.MenuPrefix + id
}

func NewItem(name, category string, price float64) *Item {
	return &Item{
		ID:        "menu-" + uuid.NewString(),
		Name:      strings.TrimSpace(name),
		Category:  strings.TrimSpace(category),
		Price:     price,
		Available: true,
		CreatedAt: time.Now().UTC(),
	}
}

func (i *Item) Validate() error {
	if strings.TrimSpace(i.Name) == "" {
		return fmt.Errorf("menu item name is required: %w", core.ErrInvalidInput)
	}
	if i.Price < 0 {
		return fmt.Errorf("menu item price cannot be negative: %w", core.ErrInvalidInput)
	}
	return nil
}

func (i *Item) apply(u ItemUpdate) {
	if u.Name != nil {
		i.Name = strings.TrimSpace(*u.Name)
	}
	if u.Category != nil {
		i.Category = strings.TrimSpace(*u.Category)
	}
	if u.Price != nil {
		i.Price = *u.Price
	}
	if u.Description != nil {
		i.Description = *u.Description
	}
	if u.Image != nil {
		i.Image = *u.Image
	}
	if u.Available != nil {
		i.Available = *u.Available
	}
	i.touch()
}

func (i *Item) touch() {
	now := time.Now().UTC()
	i.UpdatedAt = &now
}
