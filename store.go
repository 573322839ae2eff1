package main

import "fmt"

// WinCreditAward is granted per level completion
const WinCreditAward = 50

// Rarity levels for cosmetic items
const (
	RarityCommon    = 0
	RarityRare      = 1
	RarityEpic      = 2
	RarityLegendary = 3
)

// ItemType distinguishes cosmetic categories. Cosmetics are pure settings
// input for the render client; the simulation never reads them.
const (
	ItemIcon  = "icon"
	ItemTrail = "trail"
)

// StoreItem represents a purchasable cosmetic item
type StoreItem struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Type    string `json:"type"`
	Rarity  int    `json:"rarity"`
	Price   int    `json:"price"` // in credits
	Color1  string `json:"color1"`
	Color2  string `json:"color2"`
	Preview string `json:"preview"`
}

// StoreCatalog is the full list of purchasable items
var StoreCatalog = []StoreItem{
	{ID: "icon_ember", Name: "Ember", Type: ItemIcon, Rarity: RarityCommon, Price: 50, Color1: "#ff5533", Color2: "#aa2200", Preview: "Warm orange cube face"},
	{ID: "icon_moss", Name: "Moss", Type: ItemIcon, Rarity: RarityCommon, Price: 50, Color1: "#44bb44", Color2: "#117711", Preview: "Forest green cube face"},
	{ID: "icon_tide", Name: "Tide", Type: ItemIcon, Rarity: RarityCommon, Price: 75, Color1: "#3399ff", Color2: "#1144aa", Preview: "Deep sea blue cube face"},
	{ID: "icon_gilded", Name: "Gilded", Type: ItemIcon, Rarity: RarityRare, Price: 200, Color1: "#ffcc00", Color2: "#aa8800", Preview: "Gold trim cube face"},
	{ID: "icon_phantom", Name: "Phantom", Type: ItemIcon, Rarity: RarityEpic, Price: 450, Color1: "#333344", Color2: "#111122", Preview: "Near-invisible dark face"},
	{ID: "icon_nova", Name: "Nova", Type: ItemIcon, Rarity: RarityLegendary, Price: 1000, Color1: "#ff44ff", Color2: "#4444ff", Preview: "Swirling cosmic face"},

	{ID: "trail_spark", Name: "Spark Trail", Type: ItemTrail, Rarity: RarityCommon, Price: 75, Color1: "#ffee66", Color2: "#ffaa00", Preview: "Crackling spark wake"},
	{ID: "trail_frost", Name: "Frost Trail", Type: ItemTrail, Rarity: RarityRare, Price: 200, Color1: "#88ddff", Color2: "#44aacc", Preview: "Icy shimmer wake"},
	{ID: "trail_void", Name: "Void Trail", Type: ItemTrail, Rarity: RarityEpic, Price: 500, Color1: "#220044", Color2: "#6600cc", Preview: "Light-swallowing wake"},
}

// FindStoreItem returns the catalog entry for an item ID
func FindStoreItem(id string) *StoreItem {
	for i := range StoreCatalog {
		if StoreCatalog[i].ID == id {
			return &StoreCatalog[i]
		}
	}
	return nil
}

// PurchaseItem buys a catalog item for a player, debiting credits
func PurchaseItem(db *DB, playerID int64, itemID string) (*StoreItem, error) {
	item := FindStoreItem(itemID)
	if item == nil {
		return nil, fmt.Errorf("unknown item")
	}

	owned, err := db.GetUnlocks(playerID)
	if err != nil {
		return nil, fmt.Errorf("database error")
	}
	for _, id := range owned {
		if id == itemID {
			return nil, fmt.Errorf("already owned")
		}
	}

	credits, err := db.GetCredits(playerID)
	if err != nil {
		return nil, fmt.Errorf("database error")
	}
	if credits < item.Price {
		return nil, fmt.Errorf("not enough credits")
	}

	if err := db.AdjustCredits(playerID, -item.Price); err != nil {
		return nil, fmt.Errorf("database error")
	}
	if err := db.AddUnlock(playerID, itemID); err != nil {
		return nil, fmt.Errorf("database error")
	}
	return item, nil
}
