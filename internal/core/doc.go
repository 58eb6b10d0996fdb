// Package core turns a batch of NetLogo exports into one table.
//
// It is independent of any transport: the CLI and the web server both build
// a [Converter] and hand it inputs.
//
// # Conversion
//
// For every input the converter:
//
//  1. Opens the source, transparently decompressing gzip or zstd and
//     decoding a legacy charset when one is configured ([Decode]).
//  2. Strips a UTF-8 BOM and replaces invalid UTF-8 ([WrapForStreaming]).
//  3. Detects the export kind and parses it with [dump.Parse].
//  4. Drops the input's skip rows.
//  5. Folds the result into the running table with [table.Merge].
//
// The merged headers are sanitized before the table is returned. The first
// error aborts the whole batch.
//
// # Error Handling
//
// Technical errors are mapped to user-facing messages with [MapError].
// Each category has a code for support reference:
//
//   - FMT001-FMT006: export format errors (unknown file, bad quoting,
//     bad header, truncated file, missing key column, wrong target)
//   - DB001-DB007: database errors while loading into PostgreSQL
//   - FILE001-FILE005: file errors (size, encoding, compression, empty)
//   - CNV001-CNV003: conversion errors (busy, cancelled, timeout)
package core
