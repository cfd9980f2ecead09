// Package store persists the measurement series to an Excel workbook and
// watches the workbook for out-of-band edits.
//
// The backing store is deliberately simple: one sheet, one header row, one row
// per sample, rewritten wholesale on every save (last write wins). Header
// matching is case-insensitive so workbooks edited by hand with Weight or
// Hardness capitalized keep loading. Unparseable numeric cells default to 0.0
// and a missing id defaults to the row's 1-based position, so a ragged
// workbook degrades to data rather than to an error.
package store
