package ai_test

import (
	"context"
	"testing"

	"traceforge/ai"
	"traceforge/errors"
	"traceforge/mocks"

	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func TestGlobalizer_Localize(t *testing.T) {
	ctx := context.Background()
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	generator := mocks.NewMockGenerator(ctrl)
	g := ai.NewGlobalizer(generator)

	t.Run("should build the localization instruction", func(t *testing.T) {
		req := require.New(t)
		generator.EXPECT().Generate(ctx, gomock.Any()).
			DoAndReturn(func(_ context.Context, p ai.Prompt) (string, error) {
				req.Contains(p.Instruction, "optimized for people in India")
				req.Contains(p.Instruction, "The tone should be casual")
				req.Contains(p.Instruction, "output language should be Hindi")
				req.Contains(p.Instruction, "spotty internet")
				req.Equal("Write a short welcome message for new customers of our bank", p.Input)
				req.InDelta(0.5, p.Temperature, 1e-9)
				return "localized", nil
			}).Times(1)

		res, err := g.Localize(ctx, ai.LocalizeRequest{
			Prompt:         "  Write a short welcome message for new customers of our bank ",
			Region:         "India",
			Tone:           "Casual",
			Language:       "Hindi",
			Infrastructure: true,
		})
		req.NoError(err)
		req.Equal("localized", res.Prompt)
	})

	t.Run("should reject invalid requests without calling upstream", func(t *testing.T) {
		generator.EXPECT().Generate(gomock.Any(), gomock.Any()).Times(0)

		for _, r := range []ai.LocalizeRequest{
			{Prompt: "  ", Region: "India", Tone: "Casual", Language: "Hindi"},
			{Prompt: "hi", Region: "Mars", Tone: "Casual", Language: "Hindi"},
			{Prompt: "hi", Region: "India", Tone: "Angry", Language: "Hindi"},
			{Prompt: "hi", Region: "India", Tone: "Casual", Language: "Klingon"},
		} {
			_, err := g.Localize(ctx, r)
			require.ErrorIs(t, err, errors.ErrInvalidInput)
		}
	})
}

func TestGlobalizer_GenerateCode(t *testing.T) {
	ctx := context.Background()

	t.Run("should target the subregion and explain", func(t *testing.T) {
		req := require.New(t)
		ctrl := gomock.NewController(t)
		generator := mocks.NewMockGenerator(ctrl)
		g := ai.NewGlobalizer(generator)

		gomock.InOrder(
			generator.EXPECT().Generate(ctx, gomock.Any()).
				DoAndReturn(func(_ context.Context, p ai.Prompt) (string, error) {
					req.Contains(p.Instruction, "geared toward the Kerala environment")
					req.NotContains(p.Instruction, "low-bandwidth")
					req.InDelta(0.6, p.Temperature, 1e-9)
					return "print('hi')", nil
				}),
			generator.EXPECT().Generate(ctx, gomock.Any()).
				DoAndReturn(func(_ context.Context, p ai.Prompt) (string, error) {
					req.Contains(p.Instruction, "explains code clearly in Malayalam")
					req.Contains(p.Input, "to a user in Kerala")
					req.Contains(p.Input, "print('hi')")
					req.InDelta(0.4, p.Temperature, 1e-9)
					return "explained", nil
				}),
		)

		res, err := g.GenerateCode(ctx, ai.CodeRequest{
			Prompt: "localized", Region: "India", Subregion: "Kerala",
			Tone: "Professional", Language: "English", ExplainIn: "Malayalam",
		})
		req.NoError(err)
		req.Equal("print('hi')", res.Code)
		req.Equal("explained", res.Explanation)
	})

	t.Run("should ignore the subregion outside India", func(t *testing.T) {
		req := require.New(t)
		ctrl := gomock.NewController(t)
		generator := mocks.NewMockGenerator(ctrl)
		g := ai.NewGlobalizer(generator)

		generator.EXPECT().Generate(ctx, gomock.Any()).
			DoAndReturn(func(_ context.Context, p ai.Prompt) (string, error) {
				req.Contains(p.Instruction, "geared toward the Europe environment")
				return "code", nil
			}).Times(1)

		res, err := g.GenerateCode(ctx, ai.CodeRequest{
			Prompt: "p", Region: "Europe", Subregion: "Kerala", Tone: "Academic", Language: "English",
		})
		req.NoError(err)
		req.Empty(res.Explanation)
	})

	t.Run("should reject an unknown Indian subregion", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		generator := mocks.NewMockGenerator(ctrl)
		g := ai.NewGlobalizer(generator)

		_, err := g.GenerateCode(ctx, ai.CodeRequest{
			Prompt: "p", Region: "India", Subregion: "Atlantis", Tone: "Academic", Language: "English",
		})
		require.ErrorIs(t, err, errors.ErrInvalidInput)
	})
}

func TestDetectLanguage(t *testing.T) {
	req := require.New(t)
	text := "The quick brown fox jumps over the lazy dog while the children are playing in the garden " +
		"and their parents are drinking tea on the terrace of the house near the river."
	req.Equal("en", ai.DetectLanguage(text))
	req.Empty(ai.DetectLanguage(""))
}
