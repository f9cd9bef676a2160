package catalog

import (
	"testing"

	"ge-market-watch/internal/domain"
)

func TestCache_ReplaceAndLookup(t *testing.T) {
	cache := New()

	cache.Replace([]*domain.ItemMetadata{
		{ID: 4151, Name: "Abyssal whip", BuyLimit: 70},
		{ID: 561, Name: "Nature rune", BuyLimit: 12000},
	})

	item, ok := cache.Item(4151)
	if !ok || item.Name != "Abyssal whip" {
		t.Errorf("expected abyssal whip, got %+v ok=%v", item, ok)
	}
	if _, ok := cache.Item(999); ok {
		t.Error("expected lookup miss for unknown item")
	}
	if cache.Len() != 2 {
		t.Errorf("expected 2 items, got %d", cache.Len())
	}
}

func TestCache_EmptyReplaceKeepsCatalog(t *testing.T) {
	cache := New()
	cache.Replace([]*domain.ItemMetadata{{ID: 4151, Name: "Abyssal whip"}})

	// A failed refresh delivering nothing must not wipe a working catalog.
	cache.Replace(nil)

	if cache.Len() != 1 {
		t.Errorf("expected catalog preserved after empty replace, got %d items", cache.Len())
	}
}

func TestCache_AllOrdered(t *testing.T) {
	cache := New()
	cache.Replace([]*domain.ItemMetadata{
		{ID: 561}, {ID: 2}, {ID: 4151},
	})

	all := cache.All()
	if len(all) != 3 {
		t.Fatalf("expected 3 items, got %d", len(all))
	}
	for i := 1; i < len(all); i++ {
		if all[i].ID <= all[i-1].ID {
			t.Errorf("items not ordered by id: %d after %d", all[i].ID, all[i-1].ID)
		}
	}
}
