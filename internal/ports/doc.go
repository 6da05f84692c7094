// Package ports defines the interfaces (ports) that connect the application
// layer to infrastructure adapters.
//
// Ports are the boundaries between the rendering pipeline and the outside
// world. They define what the pipeline needs from external systems without
// specifying how those needs are fulfilled.
//
// # Port Interfaces
//
//   - [Exporter]: exports one row range of a sheet as a document
//   - [Converter]: turns an exported document into a trimmed raster image
//   - [AlbumSender]: uploads the ordered album in a single call
//   - [Staging]: per-run scratch storage for in-flight chunks
//   - [SheetInspector]: discovers the last occupied row and caption cell
//   - [Logger]: structured logging abstraction
//   - [HTTPClient]: HTTP request abstraction for dependency injection
//
// # Usage
//
// The application layer (internal/app) depends only on these interfaces.
// Infrastructure adapters (internal/adapters) implement them with concrete
// implementations (Google export API, pdfium, gocloud blob, excelize, ...).
package ports
