// Package content fetches document bytes by reference.
//
// References are local paths, file:// URLs or http(s):// URLs. Router
// dispatches on the URL scheme to FileSource or HTTPSource.
package content
