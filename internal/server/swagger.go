package server

//go:generate swag init -g internal/server/server.go -o docs

// @title VentiScan API
// @version 0.1
// @description Interactive documentation for the VentiScan dashboard API surface.
// @contact.name VentiScan Maintainers
// @contact.url https://github.com/KJWesthoff/ventiscan
// @BasePath /
