// Package browser captures registry snapshots from a running application
// and renders views for element conditions, through the Chrome DevTools
// protocol (go-rod).
//
// A Session either connects to an existing Chrome (Config.DebuggerURL) or
// launches one, opens the application page and waits until the module
// registry expression evaluates to an object. Capture then serializes the
// registry into the snapshot document format read by package snapshot.
package browser
