// Package request defines the immutable Request and Response value types
// shared by every protocol client (REST/gRPC/SOAP). A Request is built once
// by a per-protocol builder and then only ever copied-with-change by
// interceptors; a Response is produced once by the pipeline on return from
// Transport.
package request

import "github.com/aperturestack/svcclient/svcerr"

// Protocol re-exports svcerr.Protocol so callers building requests don't need
// to import svcerr directly just to tag a protocol.
type Protocol = svcerr.Protocol

const (
	ProtocolREST = svcerr.ProtocolREST
	ProtocolGRPC = svcerr.ProtocolGRPC
	ProtocolSOAP = svcerr.ProtocolSOAP
)
