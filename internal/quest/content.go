package quest

import (
	"fmt"
	"slices"
	"strings"
)

type Kind string

const (
	KindQuestion   Kind = "question"
	KindMultimedia Kind = "multimedia"
	KindReview     Kind = "review"
	KindProduct    Kind = "product"
)

// Kinds lists the canonical kinds in display order.
var Kinds = []Kind{KindQuestion, KindMultimedia, KindReview, KindProduct}

// kindAliases maps legacy content vocabularies onto the canonical kinds.
var kindAliases = map[string]Kind{
	"question":      KindQuestion,
	"quiz":          KindQuestion,
	"multimedia":    KindMultimedia,
	"info":          KindMultimedia,
	"review":        KindReview,
	"google_review": KindReview,
	"product":       KindProduct,
	"collectible":   KindProduct,
}

// ParseKind normalizes a catalog kind tag, including legacy aliases.
func ParseKind(raw string) (Kind, error) {
	k, ok := kindAliases[strings.ToLower(strings.TrimSpace(raw))]
	if !ok {
		return "", fmt.Errorf("%w: unknown kind %q", ErrInvalidContent, raw)
	}
	return k, nil
}

// Content is the kind-specific payload of a POI. The set of implementations
// is closed: QuestionContent, MultimediaContent, ReviewContent, ProductContent.
type Content interface {
	Kind() Kind
	validate() error
}

type QuestionContent struct {
	Prompt        string
	Options       []string
	CorrectAnswer string
	Explanation   string
}

func (QuestionContent) Kind() Kind { return KindQuestion }

func (c QuestionContent) validate() error {
	if len(c.Options) == 0 {
		return fmt.Errorf("%w: question has no options", ErrInvalidContent)
	}
	correct := strings.TrimSpace(c.CorrectAnswer)
	if correct == "" {
		return fmt.Errorf("%w: question has no correct answer", ErrInvalidContent)
	}
	if !slices.ContainsFunc(c.Options, func(o string) bool { return strings.TrimSpace(o) == correct }) {
		return fmt.Errorf("%w: correct answer is not among the options", ErrInvalidContent)
	}
	return nil
}

type MediaType string

const (
	MediaVideo        MediaType = "video"
	MediaImageGallery MediaType = "image_gallery"
	MediaAudio        MediaType = "audio"
)

type MultimediaContent struct {
	Media       MediaType
	URL         string
	Images      []string
	Description string
}

func (MultimediaContent) Kind() Kind { return KindMultimedia }

func (c MultimediaContent) validate() error { return nil }

type ReviewContent struct {
	Message string
	URL     string
}

func (ReviewContent) Kind() Kind { return KindReview }

func (c ReviewContent) validate() error { return nil }

type ProductContent struct {
	Name        string
	Description string
	Benefits    []string
	ContactInfo string
}

func (ProductContent) Kind() Kind { return KindProduct }

func (c ProductContent) validate() error { return nil }

// ValidateContent checks that a POI can be resolved at all.
func ValidateContent(p POI) error {
	if p.Content == nil {
		return fmt.Errorf("%w: poi %s has no content", ErrInvalidContent, p.ID)
	}
	if p.Points < 0 {
		return fmt.Errorf("%w: poi %s has negative points", ErrInvalidContent, p.ID)
	}
	return p.Content.validate()
}

// DefaultSignal is the acknowledgement recorded when the client sends none.
func DefaultSignal(k Kind) string {
	switch k {
	case KindReview:
		return "reviewed"
	case KindProduct:
		return "found"
	default:
		return "viewed"
	}
}
