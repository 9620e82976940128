// Package application provides application initialization and dependency wiring.
// It opens state storage, restores the saved session, and builds the calculator,
// handlers, routers and HTTP server. It also owns the session lifecycle:
// periodic autosave while running and a final save on shutdown.
package application
