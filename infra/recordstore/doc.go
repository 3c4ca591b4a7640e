// Package recordstore implements the store.RecordStore backends: an
// in-memory table set, a directory of CSV files, a SQLite database and
// Google Sheets. Backends register themselves in the store factory under
// "memory", "csv", "sqlite" and "sheets".
package recordstore
