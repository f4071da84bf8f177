// Package export encodes and decodes the inventory exchange formats: the
// full JSON document and the product CSV.
package export

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
	cuejson "cuelang.org/go/encoding/json"

	"github.com/roach88/stockroom/internal/datasync"
	"github.com/roach88/stockroom/internal/model"
)

// Version is written into every exported document.
const Version = "1.0"

//go:embed schema.cue
var schemaSource string

// Document is the JSON export of products, missing items and sales.
type Document struct {
	Products     []model.Product     `json:"products"`
	MissingItems []model.MissingItem `json:"missingItems"`
	Sales        []model.Sale        `json:"sales"`
	ExportDate   time.Time           `json:"exportDate"`
	Version      string              `json:"version"`

	// Set by DecodeJSON for kinds the input did not carry.
	missingItemsAbsent bool
	salesAbsent        bool
}

// NewDocument builds a document stamped with now. Nil slices are written
// as empty arrays.
func NewDocument(snap datasync.Snapshot, now time.Time) Document {
	doc := Document{
		Products:     snap.Products,
		MissingItems: snap.MissingItems,
		Sales:        snap.Sales,
		ExportDate:   now.UTC(),
		Version:      Version,
	}
	if doc.Products == nil {
		doc.Products = []model.Product{}
	}
	if doc.MissingItems == nil {
		doc.MissingItems = []model.MissingItem{}
	}
	if doc.Sales == nil {
		doc.Sales = []model.Sale{}
	}
	return doc
}

// ImportData converts a decoded document into an import payload. Kinds the
// input did not carry are left nil so a ReplacePresent import keeps them.
func (d Document) ImportData() datasync.ImportData {
	data := datasync.ImportData{
		Products:     d.Products,
		MissingItems: d.MissingItems,
		Sales:        d.Sales,
	}
	if d.missingItemsAbsent {
		data.MissingItems = nil
	}
	if d.salesAbsent {
		data.Sales = nil
	}
	return data
}

// EncodeJSON writes doc indented with two spaces.
func EncodeJSON(w io.Writer, doc Document) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("encode export: %w", err)
	}
	return nil
}

// FormatError reports an import document that is not a valid export.
type FormatError struct {
	Msg string
	Err error
}

func (e *FormatError) Error() string {
	return "invalid data format: " + e.Msg
}

func (e *FormatError) Unwrap() error {
	return e.Err
}

// IsFormatError reports whether err wraps a *FormatError.
func IsFormatError(err error) bool {
	var fe *FormatError
	return errors.As(err, &fe)
}

// DecodeJSON reads an export document. The products array is required;
// missing items and sales default to empty.
func DecodeJSON(r io.Reader) (Document, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return Document{}, fmt.Errorf("read import: %w", err)
	}

	var top map[string]json.RawMessage
	if err := json.Unmarshal(data, &top); err != nil {
		return Document{}, &FormatError{Msg: "not a JSON object", Err: err}
	}
	products, ok := top["products"]
	if !ok || !isArray(products) {
		return Document{}, &FormatError{Msg: "products array missing"}
	}

	if err := validateSchema(data); err != nil {
		return Document{}, err
	}

	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return Document{}, &FormatError{Msg: err.Error(), Err: err}
	}
	if doc.MissingItems == nil {
		doc.MissingItems = []model.MissingItem{}
		doc.missingItemsAbsent = !isArray(top["missingItems"])
	}
	if doc.Sales == nil {
		doc.Sales = []model.Sale{}
		doc.salesAbsent = !isArray(top["sales"])
	}
	return doc, nil
}

func isArray(raw json.RawMessage) bool {
	raw = bytes.TrimSpace(raw)
	return len(raw) > 0 && raw[0] == '['
}

var (
	schemaOnce sync.Once
	schemaMu   sync.Mutex
	cueCtx     *cue.Context
	docSchema  cue.Value
	schemaErr  error
)

func loadSchema() {
	cueCtx = cuecontext.New()
	v := cueCtx.CompileString(schemaSource, cue.Filename("schema.cue"))
	if err := v.Err(); err != nil {
		schemaErr = fmt.Errorf("compile export schema: %w", err)
		return
	}
	docSchema = v.LookupPath(cue.ParsePath("#Document"))
	schemaErr = docSchema.Err()
}

// validateSchema checks data against the embedded document schema.
func validateSchema(data []byte) error {
	schemaOnce.Do(loadSchema)
	if schemaErr != nil {
		return schemaErr
	}

	expr, err := cuejson.Extract("import.json", data)
	if err != nil {
		return &FormatError{Msg: err.Error(), Err: err}
	}

	// A cue.Context is not safe for concurrent use.
	schemaMu.Lock()
	defer schemaMu.Unlock()

	v := docSchema.Unify(cueCtx.BuildExpr(expr))
	if err := v.Validate(cue.Concrete(true)); err != nil {
		return &FormatError{Msg: firstCUEError(err), Err: err}
	}
	return nil
}

func firstCUEError(err error) string {
	errs := cueerrors.Errors(err)
	if len(errs) == 0 {
		return err.Error()
	}
	return errs[0].Error()
}
