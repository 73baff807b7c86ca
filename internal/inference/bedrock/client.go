// Package bedrock adapts Amazon Bedrock's streaming invoke API to the
// gateway's inference contract.
package bedrock

import (
	"context"
	"encoding/json"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime/types"

	"github.com/kaystudios/assistant-gateway/internal/inference"
)

// API is the slice of the Bedrock runtime client the gateway uses.
type API interface {
	InvokeModelWithResponseStream(ctx context.Context, params *bedrockruntime.InvokeModelWithResponseStreamInput, optFns ...func(*bedrockruntime.Options)) (*bedrockruntime.InvokeModelWithResponseStreamOutput, error)
}

// Client invokes Bedrock models with response streaming.
type Client struct {
	api API
}

// New creates a client over an existing Bedrock runtime API.
func New(api API) *Client {
	return &Client{api: api}
}

// NewFromConfig creates a client from an AWS config.
func NewFromConfig(cfg aws.Config) *Client {
	return New(bedrockruntime.NewFromConfig(cfg))
}

// chunkPayload is the subset of a Bedrock stream chunk the gateway reads.
// Both the Nova and Anthropic message formats deliver text through
// contentBlockDelta.delta.text.
type chunkPayload struct {
	ContentBlockDelta *struct {
		Delta struct {
			Text string `json:"text"`
		} `json:"delta"`
	} `json:"contentBlockDelta"`
}

// Invoke starts a streaming model invocation. Errors from the API call and
// from the stream itself are classified into domain error kinds here, at the
// boundary where the raw codes are still visible.
func (c *Client) Invoke(ctx context.Context, req *inference.Request) (inference.Stream, error) {
	out, err := c.api.InvokeModelWithResponseStream(ctx, &bedrockruntime.InvokeModelWithResponseStreamInput{
		ModelId:     aws.String(req.ModelID),
		Body:        req.Body,
		ContentType: aws.String("application/json"),
		Accept:      aws.String("application/json"),
	})
	if err != nil {
		return nil, classify(err)
	}

	events := make(chan inference.Event)
	go func() {
		defer close(events)

		stream := out.GetStream()
		defer stream.Close()

		for raw := range stream.Events() {
			chunk, ok := raw.(*types.ResponseStreamMemberChunk)
			if !ok {
				continue
			}
			var payload chunkPayload
			if err := json.Unmarshal(chunk.Value.Bytes, &payload); err != nil {
				events <- inference.Event{Err: classify(err)}
				return
			}
			if payload.ContentBlockDelta != nil {
				events <- inference.Event{Delta: payload.ContentBlockDelta.Delta.Text}
			}
		}

		if err := stream.Err(); err != nil {
			events <- inference.Event{Err: classify(err)}
		}
	}()

	return events, nil
}
