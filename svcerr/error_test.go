package svcerr

import "testing"

func TestEveryKind_HasDeterministicRetryability(t *testing.T) {
	for k := KindValidation; k <= KindUnknown; k++ {
		ctx := NewContextBuilder("svc", "/ep", "GET", ProtocolREST).Build()
		se := New(k, "x", ctx, nil)
		// Calling Retryable() twice must be stable and match the profile table.
		if se.Retryable() != se.Retryable() {
			t.Fatalf("kind %v: Retryable() not stable", k)
		}
	}
}

func TestGateErrors_AreRetryable(t *testing.T) {
	ctx := NewContextBuilder("svc", "/ep", "GET", ProtocolREST).Build()

	retryable := []*ServiceError{
		NewCircuitOpen(ctx),
		NewBulkheadFull(ctx),
		NewRateLimited(ctx),
		NewLoadShed(ctx),
		NewConnection(ctx, nil),
		NewAttemptTimeout(ctx, nil),
	}
	for _, se := range retryable {
		if !se.Retryable() {
			t.Errorf("%v should be retryable", se.Kind())
		}
	}

	nonRetryable := []*ServiceError{
		NewSerialization(ctx, nil),
		NewConfiguration(ctx, "bad config"),
	}
	for _, se := range nonRetryable {
		if se.Retryable() {
			t.Errorf("%v should not be retryable", se.Kind())
		}
	}
}

func TestWithContext_DoesNotMutateOriginal(t *testing.T) {
	ctx := NewContextBuilder("svc", "/ep", "GET", ProtocolREST).Build()
	se := New(KindTimeout, "timed out", ctx, nil)

	retried := se.WithContext(ctx.WithRetryAttempt(2))

	if se.Context().RetryAttempt != 0 {
		t.Fatalf("original mutated: RetryAttempt = %d", se.Context().RetryAttempt)
	}
	if retried.Context().RetryAttempt != 2 {
		t.Fatalf("copy RetryAttempt = %d, want 2", retried.Context().RetryAttempt)
	}
}

func TestSoapFault_CategoryByFaultSide(t *testing.T) {
	ctx := NewContextBuilder("billing", "Billing#charge", "charge", ProtocolSOAP).Build()

	client := NewSoapFault("Client.InvalidArgs", "bad args", false, ctx, nil)
	if client.Category() != CategoryClient {
		t.Fatalf("category = %v, want client", client.Category())
	}

	server := NewSoapFault("Server.Unavailable", "down", true, ctx, nil)
	if server.Category() != CategoryServer {
		t.Fatalf("category = %v, want server", server.Category())
	}
	if client.Retryable() || server.Retryable() {
		t.Fatal("SoapFault must never be retryable")
	}
}
