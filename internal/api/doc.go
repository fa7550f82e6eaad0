// Package api hosts the HTTP server, middleware, and JSON handlers consumed by
// the browsing UI. Notable routes:
//   - GET /api/headings, /api/categories/{heading}, /api/products/{category}
//     and /api/product/{id} for catalog browsing.
//   - GET /api/search for keyword search.
//   - GET /api/health, GET /api/cache/stats and DELETE /api/cache for operators.
//   - GET /metrics for Prometheus scraping.
package api
