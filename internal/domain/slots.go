package domain

import "strconv"

// SlotCount mirrors Shopify's limit on line item property slots a cart
// transform can read. It is a constant on purpose: slot N must name the same
// storefront property for every shop.
const SlotCount = 10

// SlotID identifies one line item property slot, e.g. "lineItemProperty3".
type SlotID string

const slotPrefix = "lineItemProperty"

// Slots is the fixed, ordered slot enumeration.
var Slots = func() []SlotID {
	out := make([]SlotID, SlotCount)
	for i := range out {
		out[i] = SlotID(slotPrefix + strconv.Itoa(i+1))
	}
	return out
}()

// IsValid reports whether s belongs to the fixed enumeration.
func (s SlotID) IsValid() bool {
	return s.Index() >= 0
}

// Index returns the zero-based position of s in Slots, or -1.
func (s SlotID) Index() int {
	for i, slot := range Slots {
		if slot == s {
			return i
		}
	}
	return -1
}

// PropertyName is the cart line item property the storefront writes for s.
func (s SlotID) PropertyName() string {
	return "properties[" + string(s) + "]"
}

// AllocateSlot returns the first slot, in enumeration order, that is not in
// used. The second return value is false when every slot is taken.
func AllocateSlot(used map[SlotID]bool) (SlotID, bool) {
	for _, slot := range Slots {
		if !used[slot] {
			return slot, true
		}
	}
	return "", false
}
