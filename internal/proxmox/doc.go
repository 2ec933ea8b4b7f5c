// Package proxmox is the transport client for the Proxmox VE REST API.
//
// A Client performs exactly one HTTP request per call against
// https://<host>:8006/api2/json, authenticated with an API token header of the
// form "PVEAPIToken=<user>!<token-id>=<token-secret>". Responses are unwrapped
// from the conventional {"data": ...} envelope; bodies without that key are
// returned as-is. Any network failure, timeout or non-2xx status is returned as
// a *TransportError carrying the upstream message. Requests are never retried.
//
// The package also holds the wire types shared by the aggregation and operation
// layers. Proxmox is loose with JSON number encoding, so numeric fields use Int,
// which accepts numbers, numeric strings and booleans.
package proxmox
