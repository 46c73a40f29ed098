package ai

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"traceforge/errors"

	"github.com/abadojack/whatlanggo"
)

var (
	Regions   = []string{"India", "United States", "Europe", "Middle East", "Africa", "Southeast Asia"}
	Tones     = []string{"Professional", "Casual", "Academic", "Persuasive", "Youth-Oriented"}
	Languages = []string{"English", "Hindi", "Tamil", "Telugu", "Bengali", "Gujarati", "Kannada", "Punjabi", "Marathi", "Urdu"}
	// ExplanationLanguages adds Malayalam to the output languages.
	ExplanationLanguages = []string{"English", "Hindi", "Marathi", "Tamil", "Telugu", "Bengali", "Malayalam", "Gujarati", "Kannada", "Punjabi", "Urdu"}
	// IndiaSubregions are infrastructure presets, only meaningful when the region is India.
	IndiaSubregions = []string{
		"Delhi", "Mumbai", "Bangalore", "Kolkata", "Chennai", "Kerala", "Hyderabad",
		"Gangetic Plain - Rural Bihar/UP", "North-East India", "Rajasthan",
		"Punjab/Haryana", "Tier 2 Towns",
	}
)

const (
	localizeTemperature = 0.5
	codeTemperature     = 0.6
	explainTemperature  = 0.4
)

type LocalizeRequest struct {
	Prompt   string `json:"prompt"`
	Region   string `json:"region"`
	Tone     string `json:"tone"`
	Language string `json:"language"`
	// Infrastructure asks for mobile-first, low bandwidth aware output.
	Infrastructure bool `json:"infrastructure"`
}

type LocalizeResult struct {
	Prompt         string `json:"prompt"`
	SourceLanguage string `json:"source_language"`
}

type CodeRequest struct {
	Prompt         string `json:"prompt"`
	Region         string `json:"region"`
	Subregion      string `json:"subregion,omitempty"`
	Tone           string `json:"tone"`
	Language       string `json:"language"`
	Infrastructure bool   `json:"infrastructure"`
	// ExplainIn is empty when no explanation is wanted.
	ExplainIn string `json:"explain_in,omitempty"`
}

type CodeResult struct {
	Code        string `json:"code"`
	Explanation string `json:"explanation,omitempty"`
}

// Globalizer rewrites prompts for a target audience and produces
// region-aware starter code.
type Globalizer struct {
	generator Generator
}

func NewGlobalizer(generator Generator) *Globalizer {
	return &Globalizer{generator: generator}
}

func (g *Globalizer) Localize(ctx context.Context, req LocalizeRequest) (LocalizeResult, error) {
	req.Prompt = strings.TrimSpace(req.Prompt)
	if req.Prompt == "" {
		return LocalizeResult{}, fmt.Errorf("%w: empty prompt", errors.ErrInvalidInput)
	}
	if err := checkChoice("region", req.Region, Regions); err != nil {
		return LocalizeResult{}, err
	}
	if err := checkChoice("tone", req.Tone, Tones); err != nil {
		return LocalizeResult{}, err
	}
	if err := checkChoice("language", req.Language, Languages); err != nil {
		return LocalizeResult{}, err
	}

	instruction := fmt.Sprintf("You are an expert at prompt localization. Rewrite prompts so that they are understandable, "+
		"culturally appropriate, and optimized for people in %s. The tone should be %s and the output language should be %s.",
		req.Region, strings.ToLower(req.Tone), req.Language)
	if req.Infrastructure {
		instruction += " Consider local infrastructure issues like mobile-first usage, spotty internet, or edge devices."
	}

	out, err := g.generator.Generate(ctx, Prompt{Instruction: instruction, Input: req.Prompt, Temperature: localizeTemperature})
	if err != nil {
		return LocalizeResult{}, err
	}
	return LocalizeResult{Prompt: out, SourceLanguage: DetectLanguage(req.Prompt)}, nil
}

// GenerateCode writes a starter pipeline for an already localized prompt,
// then explains it when req.ExplainIn is set.
func (g *Globalizer) GenerateCode(ctx context.Context, req CodeRequest) (CodeResult, error) {
	req.Prompt = strings.TrimSpace(req.Prompt)
	if req.Prompt == "" {
		return CodeResult{}, fmt.Errorf("%w: empty prompt", errors.ErrInvalidInput)
	}
	if err := checkChoice("region", req.Region, Regions); err != nil {
		return CodeResult{}, err
	}
	if err := checkChoice("tone", req.Tone, Tones); err != nil {
		return CodeResult{}, err
	}
	if err := checkChoice("language", req.Language, Languages); err != nil {
		return CodeResult{}, err
	}
	target, err := infrastructureTarget(req.Region, req.Subregion)
	if err != nil {
		return CodeResult{}, err
	}

	instruction := fmt.Sprintf("You are a senior AI engineer. Generate a starter pipeline in Python for the following prompt, "+
		"geared toward the %s environment. The tone should be %s, and the primary language should be %s.",
		target, strings.ToLower(req.Tone), req.Language)
	if req.Infrastructure {
		instruction += " Adapt the code for regional infrastructure such as mobile-first use or low-bandwidth."
	}

	code, err := g.generator.Generate(ctx, Prompt{Instruction: instruction, Input: req.Prompt, Temperature: codeTemperature})
	if err != nil {
		return CodeResult{}, err
	}
	result := CodeResult{Code: code}
	if req.ExplainIn == "" {
		return result, nil
	}

	explanation, err := g.Explain(ctx, code, target, req.ExplainIn)
	if err != nil {
		return CodeResult{}, err
	}
	result.Explanation = explanation
	return result, nil
}

// Explain describes code to a beginner located in target, in language.
func (g *Globalizer) Explain(ctx context.Context, code, target, language string) (string, error) {
	if err := checkChoice("explanation language", language, ExplanationLanguages); err != nil {
		return "", err
	}
	return g.generator.Generate(ctx, Prompt{
		Instruction: fmt.Sprintf("You are a helpful programming tutor who explains code clearly in %s.", language),
		Input: fmt.Sprintf("Explain the following Python pipeline to a user in %s. Use %s and keep it beginner-friendly.\n\n%s",
			target, language, code),
		Temperature: explainTemperature,
	})
}

// DetectLanguage returns the ISO 639-1 code of text, empty when unreliable.
func DetectLanguage(text string) string {
	info := whatlanggo.Detect(text)
	if !info.IsReliable() {
		return ""
	}
	return info.Lang.Iso6391()
}

func infrastructureTarget(region, subregion string) (string, error) {
	if subregion == "" || region != "India" {
		return region, nil
	}
	if err := checkChoice("subregion", subregion, IndiaSubregions); err != nil {
		return "", err
	}
	return subregion, nil
}

func checkChoice(field, value string, allowed []string) error {
	if !slices.Contains(allowed, value) {
		return fmt.Errorf("%w: unknown %s %q", errors.ErrInvalidInput, field, value)
	}
	return nil
}
