package model

// Entity is implemented by every record kind that crosses the storage boundary.
type Entity interface {
	RecordID() string
	Validate() error
}

var (
	_ Entity = Product{}
	_ Entity = MissingItem{}
	_ Entity = Sale{}
	_ Entity = Debt{}
	_ Entity = LedgerEntry{}
)
