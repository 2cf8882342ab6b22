package main

// General API documentation for swaggo. The document served at
// /swagger/doc.json lives in internal/httpapi/docs.go.
//
// @title           querylite API
// @version         1.0
// @description     Read-through HTTP API over the querylite posts cache.
//
// @license.name   MIT
// @license.url    https://opensource.org/licenses/MIT
//
// @BasePath  /
//
// @schemes http
