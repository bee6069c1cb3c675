package domain

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ItemStatus is the lifecycle state of a stored item.
type ItemStatus string

const (
	ItemPending ItemStatus = "pending"
	ItemPlaced  ItemStatus = "placed"
	ItemRemoved ItemStatus = "removed"
)

// Item is a physical unit of goods with a printed system code.
//
// LocationCode is set exactly while Status is placed.
type Item struct {
	SystemCode       string          `db:"system_code" json:"system_code"`
	SKU              string          `db:"sku" json:"sku"`
	Description      string          `db:"description" json:"description"`
	Weight           decimal.Decimal `db:"weight" json:"weight"`
	Category         string          `db:"category" json:"category"`
	Status           ItemStatus      `db:"status" json:"status"`
	LocationCode     *string         `db:"location_code" json:"location_code"`
	LocationVerified bool            `db:"location_verified" json:"location_verified"`
	Metadata         Metadata        `db:"metadata" json:"metadata"`
	Version          int64           `db:"version" json:"version"`
	CreatedAt        time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt        time.Time       `db:"updated_at" json:"updated_at"`
}

// Location returns the current location code, or "" when not placed.
func (i *Item) Location() string {
	if i.LocationCode == nil {
		return ""
	}
	return *i.LocationCode
}

// Place moves a pending item into a slot.
func (i *Item) Place(code string) error {
	if i.Status != ItemPending {
		return InvalidTransition("place item", string(i.Status))
	}
	i.Status = ItemPlaced
	i.LocationCode = &code
	i.LocationVerified = true
	return nil
}

// Remove takes a placed item out of its slot.
func (i *Item) Remove() error {
	if i.Status != ItemPlaced {
		return InvalidTransition("remove item", string(i.Status))
	}
	i.Status = ItemRemoved
	i.LocationCode = nil
	i.LocationVerified = false
	return nil
}

// Consistent reports whether status and location agree.
func (i *Item) Consistent() bool {
	if i.Status == ItemPlaced {
		return i.LocationCode != nil
	}
	return i.LocationCode == nil
}

// SystemCodeGenerator issues SYS<yyyymmddHHMMSS><node><seq> codes. node
// tells instances apart; seq counts codes within one second and, once a
// second runs out, the generator borrows the next one so codes never repeat.
type SystemCodeGenerator struct {
	mu   sync.Mutex
	node string
	now  func() time.Time
	sec  int64
	seq  int
}

const (
	systemCodeNodeLen = 6
	systemCodeSeqMax  = 9999
)

// NewSystemCodeGenerator returns a generator on the wall clock. An empty
// node draws a random one.
func NewSystemCodeGenerator(node string) *SystemCodeGenerator {
	return newSystemCodeGenerator(node, time.Now)
}

func newSystemCodeGenerator(node string, now func() time.Time) *SystemCodeGenerator {
	node = strings.ToUpper(node)
	if node == "" {
		node = strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:systemCodeNodeLen])
	}
	return &SystemCodeGenerator{node: node, now: now}
}

// Node returns the instance discriminator embedded in every code.
func (g *SystemCodeGenerator) Node() string {
	return g.node
}

// Next returns a fresh system code.
func (g *SystemCodeGenerator) Next() string {
	g.mu.Lock()
	defer g.mu.Unlock()

	if sec := g.now().Unix(); sec > g.sec {
		g.sec, g.seq = sec, 0
	}
	g.seq++
	if g.seq > systemCodeSeqMax {
		g.sec++
		g.seq = 1
	}
	stamp := time.Unix(g.sec, 0).UTC().Format("20060102150405")
	return fmt.Sprintf("SYS%s%s%04d", stamp, g.node, g.seq)
}

// NewItem validates input for goods-in and returns a pending item.
func NewItem(systemCode, sku, description string, weight decimal.Decimal, category Category, metadata Metadata) (*Item, error) {
	details := map[string]string{}
	if sku == "" {
		details["sku"] = "this field is required"
	}
	if !weight.IsPositive() {
		details["weight"] = "must be positive"
	}
	if category.CountManaged() {
		details["category"] = "count-managed categories are stocked through counters"
	}
	if len(details) > 0 {
		return nil, validationError(details)
	}
	if err := metadata.ValidateFor(category.Kind); err != nil {
		return nil, err
	}
	metadata.Kind = category.Kind

	return &Item{
		SystemCode:  systemCode,
		SKU:         sku,
		Description: description,
		Weight:      weight,
		Category:    category.Code,
		Status:      ItemPending,
		Metadata:    metadata,
	}, nil
}
