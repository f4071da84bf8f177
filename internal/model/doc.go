// Package model defines the business records persisted by stockroom.
//
// Every entity kind is an explicit struct whose JSON field names match the
// export document (nameAr, createdAt, ...), so the same types serve the
// record store, the legacy migration and the import/export formats.
//
// Money is carried as decimal.Decimal and encoded as plain JSON numbers.
// Text fields are NFC-normalised before they are written.
package model
