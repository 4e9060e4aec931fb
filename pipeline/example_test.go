package pipeline_test

import (
	"context"
	"fmt"

	"github.com/aperturestack/svcclient/pipeline"
	"github.com/aperturestack/svcclient/request"
	"github.com/aperturestack/svcclient/resilience"
)

type echoTransport struct{}

func (echoTransport) Send(ctx context.Context, req request.Request) (request.Response, error) {
	return request.NewResponse(request.Body{Bytes: []byte("pong")}, 200, request.NewMultiMap(), 0), nil
}

func (echoTransport) SendStream(ctx context.Context, req request.Request) (*pipeline.StreamHandle, error) {
	return pipeline.NewStreamHandle(0), nil
}

func ExampleClient_Execute() {
	client := pipeline.NewRESTClient(pipeline.ClientConfig{
		Service:   "ping",
		Transport: echoTransport{},
		Retry:     resilience.RetryConfig{MaxAttempts: 1},
	})

	resp, err := client.Execute(context.Background(), request.New("ping", "/ping", "GET", request.ProtocolREST))
	if err != nil {
		fmt.Println("error:", err)
		return
	}
	fmt.Println(string(resp.Body.Bytes))
	// Output:
	// pong
}
