// Package report exports render plans to XLSX workbooks and reads batch
// manifests from them.
//
// A plan workbook has a "Plan" sheet with one row per rendered range and a
// "Summary" sheet with per-kind counts. Manifests are workbooks whose first
// sheet lists source files, one per row, under a "path" or "file" header.
package report
