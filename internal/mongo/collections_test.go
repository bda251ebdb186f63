package mongo

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"
)

func TestDropResult_String(t *testing.T) {
	cases := map[DropResult]string{
		DropFailed:     "failed",
		DropNotNeeded:  "not_needed",
		Dropped:        "dropped",
		DropResult(42): "failed",
	}
	for r, want := range cases {
		if got := r.String(); got != want {
			t.Errorf("DropResult(%d).String() = %q, want %q", int(r), got, want)
		}
	}
}

func TestIndexes(t *testing.T) {
	if idx := CountryIndexes(); len(idx) != 1 || idx[0].Key != "name" || !idx[0].Unique {
		t.Errorf("CountryIndexes = %+v", idx)
	}
	if idx := ArticleIndexes(); len(idx) != 1 || idx[0].Key != "published_at" || !idx[0].Desc {
		t.Errorf("ArticleIndexes = %+v", idx)
	}
}

// testClient connects to the server in COVIDWATCH_MONGO_URI or skips.
func testClient(t *testing.T) *Client {
	t.Helper()
	uri := os.Getenv("COVIDWATCH_MONGO_URI")
	if uri == "" {
		t.Skip("COVIDWATCH_MONGO_URI not set")
	}
	db := fmt.Sprintf("covidwatch_test_%d", time.Now().UnixNano())
	c, err := Connect(context.Background(), uri, db, 10*time.Second)
	if err != nil {
		t.Fatalf("Connect: %v", err)
	}
	t.Cleanup(func() {
		_ = c.DB.Drop(context.Background())
		_ = c.Close(context.Background())
	})
	return c
}

func TestClient_FullReplace(t *testing.T) {
	c := testClient(t)
	ctx := context.Background()
	ts := time.Date(2021, 1, 1, 0, 0, 0, 0, time.UTC)

	res, err := c.DropCollection(ctx, "countries")
	if err != nil || res != DropNotNeeded {
		t.Fatalf("first drop = %v, %v; want not_needed", res, err)
	}

	docs := []any{
		CountryDoc{Name: "B", Confirmed: 4, LastUpdatedBySourceAt: ts},
		CountryDoc{Name: "A", Confirmed: 10, LastUpdatedBySourceAt: ts},
		CountryDoc{Name: "Worldwide", Confirmed: 14, LastUpdatedBySourceAt: ts},
	}
	if err := c.InsertAll(ctx, "countries", docs); err != nil {
		t.Fatalf("InsertAll: %v", err)
	}
	if err := c.EnsureIndexes(ctx, "countries", CountryIndexes()...); err != nil {
		t.Fatalf("EnsureIndexes: %v", err)
	}

	items, total, err := c.FindCountries(ctx, "countries", "", 0, 10)
	if err != nil {
		t.Fatalf("FindCountries: %v", err)
	}
	if total != 3 || len(items) != 3 || items[0].Name != "A" {
		t.Errorf("items = %+v total = %d", items, total)
	}

	ww, err := c.FindCountry(ctx, "countries", "Worldwide")
	if err != nil || ww.Confirmed != 14 || !ww.LastUpdatedBySourceAt.Equal(ts) {
		t.Errorf("Worldwide = %+v, %v", ww, err)
	}
	if _, err := c.FindCountry(ctx, "countries", "Atlantis"); err != ErrNotFound {
		t.Errorf("missing country err = %v", err)
	}

	res, err = c.DropCollection(ctx, "countries")
	if err != nil || res != Dropped {
		t.Fatalf("second drop = %v, %v; want dropped", res, err)
	}
	if _, total, _ := c.FindCountries(ctx, "countries", "", 0, 10); total != 0 {
		t.Errorf("collection not empty after drop: %d", total)
	}
}

func TestClient_InsertAllEmpty(t *testing.T) {
	c := testClient(t)
	if err := c.InsertAll(context.Background(), "articles", nil); err != nil {
		t.Errorf("InsertAll(nil) = %v", err)
	}
}
