package session

import (
	"sync"

	"tokopos/backend/internal/domain"
	"tokopos/backend/internal/store"
)

// Cart is the draft state of one checkout or purchase. It holds lines
// only; totals are always derived from the lines at read time.
type Cart struct {
	mu    sync.Mutex
	mode  string
	lines []domain.CartLine
}

func NewCart(mode string) *Cart {
	return &Cart{mode: mode}
}

func (c *Cart) Mode() string {
	return c.mode
}

// AddLine merges qty into the line for the product. In sale mode the
// resulting quantity may not exceed the product's current stock; a
// violating add returns ErrStockLimit and leaves the cart untouched.
// Purchase mode has no stock ceiling.
func (c *Cart) AddLine(product domain.Product, qty int) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if qty < 1 {
		return store.ErrValidation
	}

	next := qty
	idx := c.indexOf(product.ID)
	if idx >= 0 {
		next = c.lines[idx].Quantity + qty
	}
	if c.mode == domain.CartModeSale && next > product.Stock {
		return store.ErrStockLimit
	}

	price := product.Price
	if c.mode == domain.CartModePurchase && product.SupplierPrice > 0 {
		price = product.SupplierPrice
	}

	if idx >= 0 {
		c.lines[idx].Quantity = next
		return nil
	}
	c.lines = append(c.lines, domain.CartLine{
		ProductID: product.ID,
		Name:      product.Name,
		Price:     price,
		Quantity:  qty,
	})
	return nil
}

// SetQuantity replaces a line's quantity. Zero removes the line. The
// sale-mode stock cap applies the same way as AddLine.
func (c *Cart) SetQuantity(product domain.Product, qty int) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	idx := c.indexOf(product.ID)
	if idx < 0 {
		return store.ErrNotFound
	}
	if qty < 0 {
		return store.ErrValidation
	}
	if qty == 0 {
		c.lines = append(c.lines[:idx], c.lines[idx+1:]...)
		return nil
	}
	if c.mode == domain.CartModeSale && qty > product.Stock {
		return store.ErrStockLimit
	}
	c.lines[idx].Quantity = qty
	return nil
}

func (c *Cart) RemoveLine(productID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	idx := c.indexOf(productID)
	if idx < 0 {
		return store.ErrNotFound
	}
	c.lines = append(c.lines[:idx], c.lines[idx+1:]...)
	return nil
}

func (c *Cart) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.lines = c.lines[:0]
}

func (c *Cart) Empty() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	return len(c.lines) == 0
}

func (c *Cart) Lines() []domain.CartLine {
	c.mu.Lock()
	defer c.mu.Unlock()

	lines := make([]domain.CartLine, len(c.lines))
	copy(lines, c.lines)
	return lines
}

// Subtotal is always recomputed from the lines.
func (c *Cart) Subtotal() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()

	var total int64
	for _, line := range c.lines {
		total += line.Price * int64(line.Quantity)
	}
	return total
}

func (c *Cart) indexOf(productID string) int {
	for i, line := range c.lines {
		if line.ProductID == productID {
			return i
		}
	}
	return -1
}

// Manager holds one cart per operator and mode.
type Manager struct {
	mu    sync.Mutex
	carts map[string]*Cart
}

func NewManager() *Manager {
	return &Manager{carts: make(map[string]*Cart)}
}

func (m *Manager) Get(operator string, mode string) *Cart {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := operator + "|" + mode
	cart, ok := m.carts[key]
	if !ok {
		cart = NewCart(mode)
		m.carts[key] = cart
	}
	return cart
}
