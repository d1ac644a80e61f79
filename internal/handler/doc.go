// Package handler implements HTTP request handlers for the netcensus API.
//
// # Handlers
//
// InventoryHandler serves the latest aggregated inventory, its device
// index and statistics, the run history, on-demand aggregation and
// document export.
//
// Middleware provides panic recovery, request logging, and CORS support.
//
// # Endpoints
//
//	GET  /api/inventory        latest inventory document
//	GET  /api/statistics       statistics of the latest inventory
//	GET  /api/devices          devices, filtered by ?vendor= ?type= ?limit=
//	GET  /api/devices/{id}     one device
//	GET  /api/runs             run history, newest first
//	GET  /api/runs/{id}        one run with its document
//	POST /api/aggregate        run an aggregation, ?force=true to ignore the digest
//	GET  /api/export/{format}  json or yaml download
//
// # Response Format
//
// Success responses return JSON data with appropriate status codes (200, 201).
// Error responses return JSON with {error, details} structure.
package handler
