// Package server implements the acceptevents demo server.
//
// The server keeps named resources in memory. A GET that carries an
// Accept-Events header is answered through event negotiation using the
// protocols enabled in the server configuration; when negotiation fails the
// resource is returned as a plain response.
//
// Routes:
//
//	GET    /healthz            registered protocols
//	GET    /resources          list resources
//	GET    /resources/{name}   read a resource, negotiating event delivery
//	PUT    /resources/{name}   store a resource
//	DELETE /resources/{name}   delete a resource
package server
