package graph

import (
	"context"

	"github.com/cloudwego/eino/callbacks"
	ecmodel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/rs/zerolog"
)

// LoggerCallback logs chat model calls made by the recommendation chains.
type LoggerCallback struct {
	log zerolog.Logger
}

var _ callbacks.Handler = (*LoggerCallback)(nil)

func NewLoggerCallback(log zerolog.Logger) *LoggerCallback {
	return &LoggerCallback{log: log.With().Str("component", "llm").Logger()}
}

func runName(info *callbacks.RunInfo) (string, string) {
	if info == nil {
		return "", ""
	}
	return info.Name, string(info.Component)
}

func (cb *LoggerCallback) OnStart(ctx context.Context, info *callbacks.RunInfo, input callbacks.CallbackInput) context.Context {
	name, component := runName(info)
	ev := cb.log.Debug().Str("node", name).Str("node_type", component)
	if in := ecmodel.ConvCallbackInput(input); in != nil {
		ev = ev.Int("messages", len(in.Messages))
	}
	ev.Msg("llm call started")
	return ctx
}

func (cb *LoggerCallback) OnEnd(ctx context.Context, info *callbacks.RunInfo, output callbacks.CallbackOutput) context.Context {
	out := ecmodel.ConvCallbackOutput(output)
	if out == nil {
		return ctx
	}
	name, _ := runName(info)
	ev := cb.log.Debug().Str("node", name)
	if out.TokenUsage != nil {
		ev = ev.Int("prompt_tokens", out.TokenUsage.PromptTokens).
			Int("completion_tokens", out.TokenUsage.CompletionTokens).
			Int("total_tokens", out.TokenUsage.TotalTokens)
	}
	if out.Message != nil && out.Message.ResponseMeta != nil {
		ev = ev.Str("finish_reason", out.Message.ResponseMeta.FinishReason)
	}
	ev.Msg("llm call finished")
	return ctx
}

func (cb *LoggerCallback) OnError(ctx context.Context, info *callbacks.RunInfo, err error) context.Context {
	name, component := runName(info)
	cb.log.Warn().Err(err).Str("node", name).Str("node_type", component).Msg("llm call failed")
	return ctx
}

func (cb *LoggerCallback) OnStartWithStreamInput(ctx context.Context, info *callbacks.RunInfo,
	input *schema.StreamReader[callbacks.CallbackInput]) context.Context {
	input.Close()
	return ctx
}

func (cb *LoggerCallback) OnEndWithStreamOutput(ctx context.Context, info *callbacks.RunInfo,
	output *schema.StreamReader[callbacks.CallbackOutput]) context.Context {
	output.Close()
	return ctx
}
