package ai

import (
	"encoding/json"
	"strings"
)

// DescriptionInput describes the product a description is generated for.
type DescriptionInput struct {
	Category         string `json:"category" validate:"required,max=120"`
	Material         string `json:"material" validate:"required,max=120"`
	Dimensions       string `json:"dimensions" validate:"max=120"`
	Colors           Colors `json:"colors"`
	CareInstructions string `json:"careInstructions" validate:"max=1000"`
}

// Colors accepts either a JSON array of names or a single string. A string
// that itself holds a JSON array is decoded as one, which is how multipart
// clients send it.
type Colors []string

func (c *Colors) UnmarshalJSON(data []byte) error {
	var list []string
	if err := json.Unmarshal(data, &list); err == nil {
		*c = cleanColors(list)
		return nil
	}
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*c = ParseColors(raw)
	return nil
}

// ParseColors decodes a form value into colors.
func ParseColors(raw string) Colors {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	var list []string
	if strings.HasPrefix(raw, "[") && json.Unmarshal([]byte(raw), &list) == nil {
		return cleanColors(list)
	}
	return Colors{raw}
}

func cleanColors(list []string) Colors {
	out := make(Colors, 0, len(list))
	for _, color := range list {
		if color = strings.TrimSpace(color); color != "" {
			out = append(out, color)
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

// DescriptionResult wraps the generated text.
type DescriptionResult struct {
	Description string `json:"description"`
}

type TranslateInput struct {
	Text           string `json:"text" validate:"required,max=5000"`
	TargetLanguage string `json:"targetLanguage" validate:"omitempty,max=16"`
}

type TranslateResult struct {
	TranslatedText string `json:"translated_text"`
	Language       string `json:"language"`
}

type VoiceInput struct {
	Instructions string `json:"instructions" validate:"required,max=5000"`
	Language     string `json:"language" validate:"omitempty,max=16"`
}

type VoiceResult struct {
	AudioURL string `json:"audio_url"`
	Language string `json:"language"`
}
