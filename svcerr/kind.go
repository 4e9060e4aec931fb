package svcerr

import "time"

// Kind enumerates the closed set of ServiceError variants.
type Kind int

const (
	KindValidation Kind = iota
	KindUnprocessable
	KindAuthentication
	KindNotFound
	KindConflict
	KindTimeout
	KindRateLimit
	KindInternalError
	KindTemporarilyUnavailable
	KindConnection
	KindSerialization
	KindCircuitBreakerOpen
	KindBulkheadFull
	KindLoadShed
	KindConfiguration
	KindSoapFault
	KindUnknown
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "Validation"
	case KindUnprocessable:
		return "Unprocessable"
	case KindAuthentication:
		return "Authentication"
	case KindNotFound:
		return "NotFound"
	case KindConflict:
		return "Conflict"
	case KindTimeout:
		return "Timeout"
	case KindRateLimit:
		return "RateLimit"
	case KindInternalError:
		return "InternalError"
	case KindTemporarilyUnavailable:
		return "TemporarilyUnavailable"
	case KindConnection:
		return "Connection"
	case KindSerialization:
		return "Serialization"
	case KindCircuitBreakerOpen:
		return "CircuitBreakerOpen"
	case KindBulkheadFull:
		return "BulkheadFull"
	case KindLoadShed:
		return "LoadShed"
	case KindConfiguration:
		return "Configuration"
	case KindSoapFault:
		return "SoapFault"
	default:
		return "Unknown"
	}
}

// kindProfile captures the static category/retryability/suggested-delay
// facts for a Kind. SoapFault's category depends on the fault code and is
// resolved at construction time instead of here.
type kindProfile struct {
	category      Category
	retryable     bool
	suggestedWait time.Duration
}

var profiles = map[Kind]kindProfile{
	KindValidation:             {CategoryValidation, false, 0},
	KindUnprocessable:          {CategoryValidation, false, 0},
	KindAuthentication:         {CategoryAuth, false, 0},
	KindNotFound:               {CategoryClient, false, 0},
	KindConflict:               {CategoryClient, false, 0},
	KindTimeout:                {CategoryTimeout, true, 2 * time.Second},
	KindRateLimit:              {CategoryRateLimit, true, 60 * time.Second},
	KindInternalError:          {CategoryServer, true, 2 * time.Second},
	KindTemporarilyUnavailable: {CategoryServer, true, 5 * time.Second},
	KindConnection:             {CategoryNetwork, true, 1 * time.Second},
	KindSerialization:          {CategorySerialization, false, 0},
	KindCircuitBreakerOpen:     {CategoryCircuit, true, 5 * time.Second},
	KindBulkheadFull:           {CategoryCircuit, true, 500 * time.Millisecond},
	KindLoadShed:               {CategoryRateLimit, true, 3 * time.Second},
	KindConfiguration:          {CategoryConfig, false, 0},
	KindSoapFault:              {CategoryClient, false, 0},
	KindUnknown:                {CategoryUnknown, false, 0},
}
