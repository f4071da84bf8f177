package store

import (
	"encoding/json"
	"fmt"
	"time"
)

// Kind names an entity table of the record store.
type Kind string

const (
	KindProducts     Kind = "products"
	KindSales        Kind = "sales"
	KindMissingItems Kind = "missingItems"
	KindMetadata     Kind = "metadata"
	KindDebts        Kind = "debts"
	KindLedger       Kind = "ledger"
)

// Kinds lists every kind in schema order.
var Kinds = []Kind{KindProducts, KindSales, KindMissingItems, KindMetadata, KindDebts, KindLedger}

// TimestampLayout is the form timestamp index columns are stored in. It is
// fixed-width UTC, so the columns compare and sort as text.
const TimestampLayout = "2006-01-02T15:04:05.000000000Z"

// index maps a record field (by JSON key path) to the column backing it.
type index struct {
	keyPath   string
	column    string
	timestamp bool
}

// table describes how a kind is laid out in SQLite.
type table struct {
	name    string
	keyPath string
	indexes []index
}

var tables = map[Kind]table{
	KindProducts: {
		name:    "products",
		keyPath: "id",
		indexes: []index{
			{"category", "category", false},
			{"nameAr", "name_ar", false},
			{"quantity", "quantity", false},
			{"createdAt", "created_at", true},
		},
	},
	KindSales: {
		name:    "sales",
		keyPath: "id",
		indexes: []index{
			{"createdAt", "created_at", true},
			{"customerName", "customer_name", false},
			{"paymentMethod", "payment_method", false},
		},
	},
	KindMissingItems: {
		name:    "missing_items",
		keyPath: "id",
		indexes: []index{
			{"priority", "priority", false},
			{"reason", "reason", false},
			{"isResolved", "is_resolved", false},
			{"detectedAt", "detected_at", true},
		},
	},
	KindMetadata: {
		name:    "metadata",
		keyPath: "key",
	},
	KindDebts: {
		name:    "debts",
		keyPath: "id",
		indexes: []index{
			{"clientName", "client_name", false},
			{"isPaid", "is_paid", false},
			{"createdAt", "created_at", true},
		},
	},
	KindLedger: {
		name:    "ledger",
		keyPath: "id",
		indexes: []index{
			{"isPaid", "is_paid", false},
			{"createdAt", "created_at", true},
		},
	},
}

func lookupTable(kind Kind) (table, error) {
	t, ok := tables[kind]
	if !ok {
		return table{}, fmt.Errorf("%w: %q", ErrUnknownKind, kind)
	}
	return t, nil
}

func (t table) index(keyPath string) (index, error) {
	for _, idx := range t.indexes {
		if idx.keyPath == keyPath {
			return idx, nil
		}
	}
	return index{}, fmt.Errorf("%w: %s.%s", ErrUnknownIndex, t.name, keyPath)
}

// row is a record ready to be written: its key, JSON document and index values
// in the order of table.indexes.
type row struct {
	id     string
	doc    string
	values []any
}

// encode marshals rec and extracts its key and index values by key path,
// the way an IndexedDB object store reads them off the stored object.
func (t table) encode(rec Record) (row, error) {
	data, err := json.Marshal(rec)
	if err != nil {
		return row{}, fmt.Errorf("marshal %s record: %w", t.name, err)
	}
	var fields map[string]any
	if err := json.Unmarshal(data, &fields); err != nil {
		return row{}, fmt.Errorf("decode %s record fields: %w", t.name, err)
	}

	id, _ := fields[t.keyPath].(string)
	if id == "" {
		id = rec.RecordID()
	}
	if id == "" {
		return row{}, fmt.Errorf("%s record has empty %s", t.name, t.keyPath)
	}

	values := make([]any, len(t.indexes))
	for i, idx := range t.indexes {
		values[i] = idx.value(fields[idx.keyPath])
	}
	return row{id: id, doc: string(data), values: values}, nil
}

// value converts a decoded JSON value into a column value.
// Composite values are not indexable and are stored as NULL.
func (idx index) value(v any) any {
	if idx.timestamp {
		return timestampValue(v)
	}
	switch val := v.(type) {
	case string, bool, float64:
		return val
	default:
		return nil
	}
}

// arg converts a FindBy argument into the form the column holds.
func (idx index) arg(v any) any {
	if idx.timestamp {
		return timestampValue(v)
	}
	return v
}

// timestampValue renders times and RFC 3339 strings in TimestampLayout.
// Strings that do not parse are kept as they are.
func timestampValue(v any) any {
	switch val := v.(type) {
	case time.Time:
		return val.UTC().Format(TimestampLayout)
	case *time.Time:
		if val == nil {
			return nil
		}
		return val.UTC().Format(TimestampLayout)
	case string:
		ts, err := time.Parse(time.RFC3339Nano, val)
		if err != nil {
			return val
		}
		return ts.UTC().Format(TimestampLayout)
	default:
		return nil
	}
}
