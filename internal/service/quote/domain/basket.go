// internal/service/quote/domain/basket.go
package domain

import "github.com/shopspring/decimal"

// Basket 是有序的条目集合，保持插入顺序，条目 ID 唯一。
type Basket struct {
	items []OrderItem
}

func NewBasket() *Basket {
	return &Basket{}
}

// Add 追加一个条目，不修改已有条目。
func (b *Basket) Add(item OrderItem) error {
	for _, existing := range b.items {
		if existing.ID == item.ID {
			return ErrDuplicateItem
		}
	}
	b.items = append(b.items, item)
	return nil
}

// Remove 删除指定 ID 的条目，返回是否删除；不存在时什么也不做。
func (b *Basket) Remove(id string) bool {
	for i, item := range b.items {
		if item.ID == id {
			b.items = append(b.items[:i:i], b.items[i+1:]...)
			return true
		}
	}
	return false
}

// Total 是所有条目价格之和，保留两位小数。
func (b *Basket) Total() decimal.Decimal {
	total := decimal.Zero
	for _, item := range b.items {
		total = total.Add(item.Price)
	}
	return total.Round(2)
}

// Items 返回条目的副本
func (b *Basket) Items() []OrderItem {
	out := make([]OrderItem, len(b.items))
	copy(out, b.items)
	return out
}

func (b *Basket) Len() int {
	return len(b.items)
}

func (b *Basket) IsEmpty() bool {
	return len(b.items) == 0
}

func (b *Basket) Clear() {
	b.items = nil
}
