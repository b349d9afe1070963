package ai

import "go.uber.org/fx"

var Module = fx.Module("providers.ai",
	fx.Provide(func(g *OpenAIGenerator) Generator { return g }),
	fx.Provide(NewOpenAIGenerator),
)
