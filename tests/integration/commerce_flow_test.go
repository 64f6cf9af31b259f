package integration

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"testing"
	"time"
)

// TestCatalogListing verifies that the seeded catalog is readable anonymously.
func TestCatalogListing(t *testing.T) {
	skipIfNotRunning(t)

	itemID := firstItemID(t)

	status, data := httpGet(t, baseURL()+"/items/"+itemID)
	requireStatus(t, status, 200)
	if got := extractString(t, data, "data.id"); got != itemID {
		t.Fatalf("expected item id %q, got %q", itemID, got)
	}
	if price := extractFloat(t, data, "data.price"); price < 0 {
		t.Fatalf("expected non-negative price, got %v", price)
	}
}

// TestCartAddAndTotal verifies that adding an item yields a cart view with
// the line total derived from the catalog price.
func TestCartAddAndTotal(t *testing.T) {
	skipIfNotRunning(t)

	token := registerAndLogin(t, "cart")
	itemID := firstItemID(t)

	// A fresh account starts with an empty cart.
	status, data := httpGetWithAuth(t, baseURL()+"/carts/my-cart", token)
	requireStatus(t, status, 200)
	if total := extractFloat(t, data, "data.total_price"); total != 0 {
		t.Fatalf("expected empty cart total 0, got %v", total)
	}

	status, data = httpPostWithAuth(t, baseURL()+"/carts", map[string]interface{}{
		"item_id":  itemID,
		"quantity": 2,
	}, token)
	requireStatus(t, status, 200)

	items, ok := extractField(data, "data.items").([]interface{})
	if !ok || len(items) != 1 {
		t.Fatalf("expected one cart line, got %v", extractField(data, "data.items"))
	}
	price := extractFloat(t, data, "data.total_price")
	line := items[0].(map[string]interface{})
	if qty := line["quantity"].(float64); qty != 2 {
		t.Fatalf("expected quantity 2, got %v", qty)
	}
	if lineTotal := line["line_total"].(float64); lineTotal != price {
		t.Fatalf("expected cart total %v to equal single line total %v", price, lineTotal)
	}
}

// TestCartMergesDuplicateItem verifies that adding an item that already has a
// line merges quantities into a single line instead of appending a second one.
func TestCartMergesDuplicateItem(t *testing.T) {
	skipIfNotRunning(t)

	token := registerAndLogin(t, "merge")
	itemID := firstItemID(t)

	status, _ := httpPostWithAuth(t, baseURL()+"/carts", map[string]interface{}{
		"item_id":  itemID,
		"quantity": 2,
	}, token)
	requireStatus(t, status, 200)

	status, data := httpPostWithAuth(t, baseURL()+"/carts", map[string]interface{}{
		"item_id":  itemID,
		"quantity": 3,
	}, token)
	requireStatus(t, status, 200)

	items, ok := extractField(data, "data.items").([]interface{})
	if !ok || len(items) != 1 {
		t.Fatalf("expected one merged cart line, got %v", extractField(data, "data.items"))
	}
	line := items[0].(map[string]interface{})
	if qty := line["quantity"].(float64); qty != 5 {
		t.Fatalf("expected merged quantity 5, got %v", qty)
	}
}

// addCartLine is a goroutine-safe add-to-cart call: it returns errors instead
// of failing the test, so concurrent callers can report through a channel.
func addCartLine(token, itemID string, quantity int) error {
	payload, err := json.Marshal(map[string]interface{}{
		"item_id":  itemID,
		"quantity": quantity,
	})
	if err != nil {
		return err
	}

	req, err := http.NewRequest(http.MethodPost, baseURL()+"/carts", bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	client := &http.Client{Timeout: 10 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("add to cart: status %d", resp.StatusCode)
	}
	return nil
}

// TestConcurrentAddsNeverLoseUpdates fires N parallel adds of the same item
// and verifies every one of them landed in the single merged line.
func TestConcurrentAddsNeverLoseUpdates(t *testing.T) {
	skipIfNotRunning(t)

	token := registerAndLogin(t, "concurrent")
	itemID := firstItemID(t)

	const workers = 8
	errCh := make(chan error, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errCh <- addCartLine(token, itemID, 1)
		}()
	}
	wg.Wait()
	close(errCh)
	for err := range errCh {
		if err != nil {
			t.Fatalf("concurrent add failed: %v", err)
		}
	}

	status, data := httpGetWithAuth(t, baseURL()+"/carts/my-cart", token)
	requireStatus(t, status, 200)

	items, ok := extractField(data, "data.items").([]interface{})
	if !ok || len(items) != 1 {
		t.Fatalf("expected one merged cart line, got %v", extractField(data, "data.items"))
	}
	line := items[0].(map[string]interface{})
	if qty := line["quantity"].(float64); qty != workers {
		t.Fatalf("expected quantity %d after %d concurrent adds, got %v", workers, workers, qty)
	}
}

// TestCartRemoveLine verifies that removing a line brings the total back down.
func TestCartRemoveLine(t *testing.T) {
	skipIfNotRunning(t)

	token := registerAndLogin(t, "remove")
	itemID := firstItemID(t)

	status, _ := httpPostWithAuth(t, baseURL()+"/carts", map[string]interface{}{
		"item_id": itemID,
	}, token)
	requireStatus(t, status, 200)

	status, data := httpDeleteWithAuth(t, baseURL()+"/carts/my-cart/items/"+itemID, token)
	requireStatus(t, status, 200)
	if total := extractFloat(t, data, "data.total_price"); total != 0 {
		t.Fatalf("expected total 0 after removing the only line, got %v", total)
	}
}

// TestCheckoutEmptyCart verifies that checkout without any cart lines fails.
func TestCheckoutEmptyCart(t *testing.T) {
	skipIfNotRunning(t)

	token := registerAndLogin(t, "emptyco")

	status, data := httpPostWithAuth(t, baseURL()+"/orders", nil, token)
	requireStatus(t, status, 400)
	if code := extractString(t, data, "error.code"); code != "EMPTY_CART" {
		t.Fatalf("expected EMPTY_CART, got %q", code)
	}
}

// TestCheckoutFlow runs the full happy path: add to cart, place the order,
// and verify the order snapshot and the now-empty cart.
func TestCheckoutFlow(t *testing.T) {
	skipIfNotRunning(t)

	token := registerAndLogin(t, "checkout")
	itemID := firstItemID(t)

	status, data := httpPostWithAuth(t, baseURL()+"/carts", map[string]interface{}{
		"item_id":  itemID,
		"quantity": 3,
	}, token)
	requireStatus(t, status, 200)
	cartTotal := extractFloat(t, data, "data.total_price")

	status, data = httpPostWithAuth(t, baseURL()+"/orders", nil, token)
	requireStatus(t, status, 201)
	orderID := extractString(t, data, "data.id")
	if got := extractFloat(t, data, "data.total_amount"); got != cartTotal {
		t.Fatalf("expected order total %v to match cart total %v", got, cartTotal)
	}
	if status := extractString(t, data, "data.status"); status != "confirmed" {
		t.Fatalf("expected order status confirmed, got %q", status)
	}

	// The cart is emptied atomically with order creation.
	status, data = httpGetWithAuth(t, baseURL()+"/carts/my-cart", token)
	requireStatus(t, status, 200)
	if total := extractFloat(t, data, "data.total_price"); total != 0 {
		t.Fatalf("expected empty cart after checkout, got total %v", total)
	}

	// The order is retrievable by its owner with snapshotted lines.
	status, data = httpGetWithAuth(t, baseURL()+"/orders/"+orderID, token)
	requireStatus(t, status, 200)
	items, ok := extractField(data, "data.items").([]interface{})
	if !ok || len(items) != 1 {
		t.Fatalf("expected one order line, got %v", extractField(data, "data.items"))
	}
	line := items[0].(map[string]interface{})
	if name, _ := line["name"].(string); name == "" {
		t.Fatal("expected snapshotted item name on order line")
	}

	// And it shows up in the owner's order history.
	status, data = httpGetWithAuth(t, baseURL()+"/orders/my-orders", token)
	requireStatus(t, status, 200)
	orders, ok := extractField(data, "data").([]interface{})
	if !ok || len(orders) != 1 {
		t.Fatalf("expected exactly one order in history, got %v", extractField(data, "data"))
	}
}

// TestOrderInvisibleToOtherAccounts verifies per-owner order scoping.
func TestOrderInvisibleToOtherAccounts(t *testing.T) {
	skipIfNotRunning(t)

	ownerToken := registerAndLogin(t, "owner")
	itemID := firstItemID(t)

	status, _ := httpPostWithAuth(t, baseURL()+"/carts", map[string]interface{}{
		"item_id": itemID,
	}, ownerToken)
	requireStatus(t, status, 200)

	status, data := httpPostWithAuth(t, baseURL()+"/orders", nil, ownerToken)
	requireStatus(t, status, 201)
	orderID := extractString(t, data, "data.id")

	otherToken := registerAndLogin(t, "other")
	status, _ = httpGetWithAuth(t, baseURL()+"/orders/"+orderID, otherToken)
	requireStatus(t, status, 404)
}
