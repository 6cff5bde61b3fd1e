package ai

import (
	"context"
	"fmt"
	"math/rand/v2"
	"strings"
	"time"

	"github.com/rootsreach/rootsreach-backend/pkg/config"
	pkgerrors "github.com/rootsreach/rootsreach-backend/pkg/errors"
	"github.com/rootsreach/rootsreach-backend/pkg/logger"
)

const defaultCareText = " Handle with care to preserve its beauty for years to come."

var descriptionTemplates = []string{
	"This beautiful %[1]s is handcrafted by skilled artisans using traditional techniques. Made from %[2]s, it showcases the rich heritage and craftsmanship of our artisan community. Each piece is unique and tells a story of cultural significance.",
	"Handmade with love and care, this %[1]s is crafted from premium %[2]s. Our artisans put their heart and soul into creating this masterpiece, ensuring every detail is perfect. This product not only adds beauty to your space but also supports local artisan communities.",
	"Experience the magic of traditional craftsmanship with this exquisite %[1]s. Meticulously crafted from %[2]s, this piece represents generations of skill passed down through our artisan families. Each product is unique and made with attention to detail.",
}

// Picker returns an index in [0, n).
type Picker func(n int) int

// Service generates product copy from templates. It stands in for a hosted
// language model and has the same text-in, text-out surface.
type Service interface {
	GenerateDescription(ctx context.Context, input DescriptionInput) (*DescriptionResult, error)
	Translate(ctx context.Context, input TranslateInput) (*TranslateResult, error)
	GenerateVoice(ctx context.Context, input VoiceInput) (*VoiceResult, error)
}

// Option customises the service.
type Option func(*service)

// WithPicker overrides the random template choice.
func WithPicker(pick Picker) Option {
	return func(s *service) {
		if pick != nil {
			s.pick = pick
		}
	}
}

// WithClock overrides the clock used to name audio files.
func WithClock(now func() time.Time) Option {
	return func(s *service) {
		if now != nil {
			s.now = now
		}
	}
}

type service struct {
	cfg  config.AIConfig
	logg *logger.Logger
	pick Picker
	now  func() time.Time
}

// NewService builds the template service.
func NewService(cfg config.AIConfig, logg *logger.Logger, opts ...Option) (Service, error) {
	if logg == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if strings.TrimSpace(cfg.VoiceBaseURL) == "" {
		return nil, fmt.Errorf("voice base url is required")
	}
	s := &service{
		cfg:  cfg,
		logg: logg,
		pick: rand.IntN,
		now:  time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

func (s *service) GenerateDescription(ctx context.Context, input DescriptionInput) (*DescriptionResult, error) {
	category := strings.TrimSpace(input.Category)
	material := strings.TrimSpace(input.Material)
	if category == "" || material == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product details are required (category and material at minimum)").
			WithDetails(missingFields(map[string]string{"category": category, "material": material}))
	}

	idx := s.pick(len(descriptionTemplates))
	if idx < 0 || idx >= len(descriptionTemplates) {
		idx = 0
	}

	var b strings.Builder
	fmt.Fprintf(&b, descriptionTemplates[idx], category, material)
	if dims := strings.TrimSpace(input.Dimensions); dims != "" {
		fmt.Fprintf(&b, " It measures approximately %s.", dims)
	}
	if len(input.Colors) > 0 {
		fmt.Fprintf(&b, " Available in %s.", strings.Join(input.Colors, ", "))
	}
	if care := strings.TrimSpace(input.CareInstructions); care != "" {
		b.WriteString(" " + care)
	} else {
		b.WriteString(defaultCareText)
	}
	return &DescriptionResult{Description: b.String()}, nil
}

func (s *service) Translate(ctx context.Context, input TranslateInput) (*TranslateResult, error) {
	if strings.TrimSpace(input.Text) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "text is required").
			WithDetails(map[string]string{"text": "required"})
	}
	lang := strings.TrimSpace(input.TargetLanguage)
	if lang == "" {
		lang = s.cfg.DefaultTranslateLanguage
	}
	return &TranslateResult{
		TranslatedText: fmt.Sprintf("%s [Translated to %s]", input.Text, lang),
		Language:       lang,
	}, nil
}

func (s *service) GenerateVoice(ctx context.Context, input VoiceInput) (*VoiceResult, error) {
	if strings.TrimSpace(input.Instructions) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "instructions are required").
			WithDetails(map[string]string{"instructions": "required"})
	}
	lang := strings.TrimSpace(input.Language)
	if lang == "" {
		lang = s.cfg.DefaultVoiceLanguage
	}

	s.logg.Debug(s.logg.WithFields(ctx, map[string]any{
		"language":     lang,
		"instructions": len(input.Instructions),
	}), "ai.voice_requested")

	base := strings.TrimRight(s.cfg.VoiceBaseURL, "/")
	return &VoiceResult{
		AudioURL: fmt.Sprintf("%s/audio/%d.mp3", base, s.now().UnixMilli()),
		Language: lang,
	}, nil
}

func missingFields(values map[string]string) map[string]string {
	out := map[string]string{}
	for field, value := range values {
		if value == "" {
			out[field] = "required"
		}
	}
	return out
}
