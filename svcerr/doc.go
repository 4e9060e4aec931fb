// Package svcerr defines the error taxonomy shared by every protocol client
// in this module: a closed set of typed failure kinds, a retryability trait,
// and a rich ErrorContext carried on every terminal failure.
//
// Every other package — resilience, interceptor, pipeline, oauth2, wsclient,
// upload — terminates its failure paths in a *ServiceError built here. Gate
// rejections (circuit open, bulkhead full, rate limited, load shed) also
// construct ServiceError values so the retry policy can apply one uniform
// decision rule regardless of where in the pipeline a call failed.
package svcerr
