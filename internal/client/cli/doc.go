// Package cli provides the interactive authsvc command-line client.
//
// The REPL supports signup, login (prompting for a 2FA code when the
// account requires one), verify, logout, whoami and ping. A background
// watcher pings the server and switches between online and offline mode.
package cli
