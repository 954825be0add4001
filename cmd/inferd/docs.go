package main

// General API documentation for swaggo. Run `swag init -g cmd/inferd/docs.go`
// and build with -tags=swagger to serve the UI at /swagger/.
//
// @title           inferd API
// @version         1.0
// @description     HTTP API for asynchronous GPU inference jobs: warmup, submit, poll.
//
// @contact.name   inferd maintainers
//
// @license.name   MIT
// @license.url    https://opensource.org/licenses/MIT
//
// @BasePath  /
//
// @schemes http
