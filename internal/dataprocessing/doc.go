// Package dataprocessing turns heterogeneous tabular files (delimited text,
// spreadsheets, PDFs) into a uniform Grid of ordered columns and string rows.
//
// Delimited and spreadsheet inputs are parsed structurally. PDF inputs go
// through a multi-strategy reconstruction: native row extraction first, then
// identifier-based line stitching, delimiter sniffing and fixed-width
// inference over the raw text. The reconstruction heuristics are pure
// functions over string slices so they can be tested without file I/O.
package dataprocessing
