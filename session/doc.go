// Package session distinguishes standalone operation from pooled workers
// and decodes the program snapshots the host attaches to requests for
// named pool sessions.
package session
