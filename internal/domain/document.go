package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
)

// MergeConfigurationsKey is the metafield key the storefront and the cart
// transform function read.
const MergeConfigurationsKey = "merge-configurations"

// MergeConfigurationsNamespace is the app-owned metafield namespace.
const MergeConfigurationsNamespace = "$app:bundles"

const mergeConfigurationsField = "mergeConfigurations"

// FlattenedMergeDocument is the published view of a shop's merge groups.
// Assignments always has an entry for every slot; nil means unbound.
type FlattenedMergeDocument struct {
	Assignments         map[SlotID]*string
	MergeConfigurations map[string][]string
}

// NewFlattenedMergeDocument returns a document with every slot unbound.
func NewFlattenedMergeDocument() *FlattenedMergeDocument {
	doc := &FlattenedMergeDocument{
		Assignments:         make(map[SlotID]*string, SlotCount),
		MergeConfigurations: make(map[string][]string),
	}
	for _, slot := range Slots {
		doc.Assignments[slot] = nil
	}
	return doc
}

// Bind assigns groupKey to slot and records its members.
func (d *FlattenedMergeDocument) Bind(slot SlotID, groupKey string, productIDs []string) {
	key := groupKey
	d.Assignments[slot] = &key
	members := make([]string, len(productIDs))
	copy(members, productIDs)
	d.MergeConfigurations[groupKey] = members
}

// BoundCount returns how many slots carry a group key.
func (d *FlattenedMergeDocument) BoundCount() int {
	n := 0
	for _, slot := range Slots {
		if d.Assignments[slot] != nil {
			n++
		}
	}
	return n
}

// MarshalJSON writes the canonical form: slot keys in enumeration order
// followed by mergeConfigurations with keys sorted. Consumers compare the
// value byte for byte, so the layout must not depend on map order.
func (d FlattenedMergeDocument) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for _, slot := range Slots {
		key, _ := json.Marshal(string(slot))
		buf.Write(key)
		buf.WriteByte(':')
		if v := d.Assignments[slot]; v != nil {
			val, err := json.Marshal(*v)
			if err != nil {
				return nil, err
			}
			buf.Write(val)
		} else {
			buf.WriteString("null")
		}
		buf.WriteByte(',')
	}

	buf.WriteString(`"` + mergeConfigurationsField + `":{`)
	groups := make([]string, 0, len(d.MergeConfigurations))
	for g := range d.MergeConfigurations {
		groups = append(groups, g)
	}
	sort.Strings(groups)
	for i, g := range groups {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(g)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		members := d.MergeConfigurations[g]
		if members == nil {
			members = []string{}
		}
		val, err := json.Marshal(members)
		if err != nil {
			return nil, err
		}
		buf.Write(val)
	}
	buf.WriteString("}}")
	return buf.Bytes(), nil
}

// UnmarshalJSON parses a published value back into a document. Unknown
// top-level keys are rejected; missing slot keys read as unbound.
func (d *FlattenedMergeDocument) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	out := NewFlattenedMergeDocument()
	for k, v := range raw {
		if k == mergeConfigurationsField {
			if err := json.Unmarshal(v, &out.MergeConfigurations); err != nil {
				return fmt.Errorf("decode %s: %w", mergeConfigurationsField, err)
			}
			if out.MergeConfigurations == nil {
				out.MergeConfigurations = make(map[string][]string)
			}
			continue
		}
		slot := SlotID(k)
		if !slot.IsValid() {
			return fmt.Errorf("unknown slot key %q", k)
		}
		var val *string
		if err := json.Unmarshal(v, &val); err != nil {
			return fmt.Errorf("decode %s: %w", k, err)
		}
		out.Assignments[slot] = val
	}
	*d = *out
	return nil
}
